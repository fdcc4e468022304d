package engine

import (
	apperrors "github.com/louisbranch/storydeck/internal/platform/errors"
	"github.com/louisbranch/storydeck/internal/services/game/domain/command"
)

// Decision is the pure outcome of applying a command.
type Decision struct {
	Delta      Delta
	Rejections []command.Rejection
}

// Rejected reports whether the command was declined.
func (d Decision) Rejected() bool {
	return len(d.Rejections) > 0
}

// Err returns the first rejection as a domain error, or nil.
func (d Decision) Err() error {
	if !d.Rejected() {
		return nil
	}
	return d.Rejections[0].Err()
}

func accept(delta Delta) Decision {
	return Decision{Delta: delta}
}

func reject(code apperrors.Code, message string) Decision {
	return Decision{Rejections: []command.Rejection{command.Reject(code, message)}}
}
