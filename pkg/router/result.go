package router

import "github.com/trupti79916/mcp-multiple-db-toolbox/pkg/dberrors"

// CallResult is the uniform envelope every dispatch resolves to: either a
// success payload (rows, documents, scalar) or a typed failure. Backend-native
// errors never escape in their raw shape.
type CallResult struct {
	OK      bool
	Payload interface{}
	Err     *dberrors.Error
}

// Success wraps a payload in a successful result.
func Success(payload interface{}) CallResult {
	return CallResult{OK: true, Payload: payload}
}

// Failure wraps an error in a failed result, categorizing it if needed.
func Failure(err error) CallResult {
	return CallResult{Err: dberrors.AsError(err)}
}

// ErrorType returns the failure's error type, or "" for a success.
func (r CallResult) ErrorType() dberrors.ErrorType {
	if r.Err == nil {
		return ""
	}
	return r.Err.Type
}
