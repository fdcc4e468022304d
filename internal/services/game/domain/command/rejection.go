package command

import apperrors "github.com/louisbranch/storydeck/internal/platform/errors"

// Rejection captures a domain-level reason a command was declined.
type Rejection struct {
	Code    apperrors.Code
	Message string
}

// Reject builds a rejection.
func Reject(code apperrors.Code, message string) Rejection {
	return Rejection{Code: code, Message: message}
}

// Err converts the rejection into a domain error.
func (r Rejection) Err() error {
	return apperrors.New(r.Code, r.Message)
}

func (r Rejection) Error() string {
	return string(r.Code) + ": " + r.Message
}
