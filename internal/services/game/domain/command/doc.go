// Package command defines the command envelope accepted by the engine and
// the rejection shape returned when a command is declined.
package command
