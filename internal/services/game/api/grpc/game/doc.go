// Package game exposes the game gateway as a gRPC service.
//
// Messages are google.protobuf.Struct values so the service needs no
// generated code; field names are snake_case and mirror the read model.
package game
