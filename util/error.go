package util

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NewUserError returns an error carrying a grpc status code, suitable for
// translation at the transport boundary.
func NewUserError(code codes.Code, message string) error {
	return status.Error(code, message)
}

// ErrorMessage extracts the user-facing message from an error produced by
// NewUserError; other errors yield a generic message so internal detail never
// reaches a viewer.
func ErrorMessage(err error) string {
	if st, ok := status.FromError(err); ok && st.Message() != "" {
		return st.Message()
	}
	return "Unknown error."
}
