// Package service hosts the storydeck MCP server and its transports.
package service
