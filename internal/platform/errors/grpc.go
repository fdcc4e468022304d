package errors

import (
	"context"
	"errors"
	"log"

	"github.com/louisbranch/storydeck/internal/platform/errors/i18n"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultLocale is the default locale for error messages.
const DefaultLocale = i18n.BaseLocale

// HandleError converts errors to gRPC status for client responses.
// Domain errors get a user-facing message from the i18n catalog for locale;
// their internal message is offered to the template as "reason".
func HandleError(err error, locale string) error {
	if err == nil {
		return nil
	}
	if locale == "" {
		locale = DefaultLocale
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		catalog := i18n.ForLocale(locale)
		values := map[string]string{"reason": appErr.Message}
		for k, v := range appErr.Metadata {
			values[k] = v
		}
		userMsg := catalog.Format(string(appErr.Code), values)
		return appErr.ToGRPCStatus(catalog.Locale(), userMsg)
	}
	if _, ok := status.FromError(err); ok && status.Code(err) != codes.Unknown {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request deadline exceeded")
	}

	log.Printf("internal error: %v", err)
	return status.Error(codes.Internal, "an unexpected error occurred")
}

// IsCode checks if the error has the specified code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
