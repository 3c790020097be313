package vimba

import (
	"errors"
	"fmt"
)

// ErrorCode is a vendor status code. Zero means success.
type ErrorCode int32

const (
	ErrorSuccess        ErrorCode = 0
	ErrorInternalFault  ErrorCode = -1
	ErrorApiNotStarted  ErrorCode = -2
	ErrorNotFound       ErrorCode = -3
	ErrorBadHandle      ErrorCode = -4
	ErrorDeviceNotOpen  ErrorCode = -5
	ErrorInvalidAccess  ErrorCode = -6
	ErrorBadParameter   ErrorCode = -7
	ErrorStructSize     ErrorCode = -8
	ErrorMoreData       ErrorCode = -9
	ErrorWrongType      ErrorCode = -10
	ErrorInvalidValue   ErrorCode = -11
	ErrorTimeout        ErrorCode = -12
	ErrorOther          ErrorCode = -13
	ErrorResources      ErrorCode = -14
	ErrorInvalidCall    ErrorCode = -15
	ErrorNoTL           ErrorCode = -16
	ErrorNotImplemented ErrorCode = -17
	ErrorNotSupported   ErrorCode = -18
	ErrorIncomplete     ErrorCode = -19
	ErrorIO             ErrorCode = -20
)

var codeMessages = map[ErrorCode]string{
	ErrorSuccess:        "Success.",
	ErrorInternalFault:  "Unexpected fault in VmbApi or driver.",
	ErrorApiNotStarted:  "API not started.",
	ErrorNotFound:       "Not found.",
	ErrorBadHandle:      "Invalid handle.",
	ErrorDeviceNotOpen:  "Device not open.",
	ErrorInvalidAccess:  "Invalid access.",
	ErrorBadParameter:   "Bad parameter.",
	ErrorStructSize:     "Wrong DLL version.",
	ErrorMoreData:       "More data returned than memory provided.",
	ErrorWrongType:      "Wrong type.",
	ErrorInvalidValue:   "Invalid value.",
	ErrorTimeout:        "Timeout.",
	ErrorOther:          "TL error.",
	ErrorResources:      "Resource not available.",
	ErrorInvalidCall:    "Invalid call.",
	ErrorNoTL:           "TL not loaded.",
	ErrorNotImplemented: "Not implemented.",
	ErrorNotSupported:   "Not supported.",
	ErrorIncomplete:     "Operation is not complete.",
	ErrorIO:             "IO error.",
}

// Message returns the human-readable text for a code.
func (c ErrorCode) Message() string {
	if msg, ok := codeMessages[c]; ok {
		return msg
	}
	return "Undefined error code"
}

// Error lets vendor implementations return a bare code as an error.
func (c ErrorCode) Error() string {
	return fmt.Sprintf("%s (%d)", c.Message(), int32(c))
}

// Error is a failed vendor call translated for callers: the wrapper
// operation that failed, a message and the vendor code.
type Error struct {
	Op   string
	Msg  string
	Code ErrorCode
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (code %d)", e.Op, e.Msg, int32(e.Code))
}

// Is matches another *Error or a bare ErrorCode with the same code.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case *Error:
		return t.Code == e.Code
	case ErrorCode:
		return t == e.Code
	}
	return false
}

// Wrap translates err into an *Error for op. A nil err stays nil and an
// existing *Error keeps its code but takes the new op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var ve *Error
	if errors.As(err, &ve) {
		return &Error{Op: op, Msg: ve.Msg, Code: ve.Code}
	}
	var code ErrorCode
	if errors.As(err, &code) {
		if code == ErrorSuccess {
			return nil
		}
		return &Error{Op: op, Msg: code.Message(), Code: code}
	}
	return &Error{Op: op, Msg: err.Error(), Code: ErrorOther}
}

// Errorf builds an *Error with a formatted message.
func Errorf(op string, code ErrorCode, format string, args ...any) error {
	return &Error{Op: op, Msg: fmt.Sprintf(format, args...), Code: code}
}

// CodeOf extracts the vendor code carried by err, ErrorOther if none.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrorSuccess
	}
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Code
	}
	var code ErrorCode
	if errors.As(err, &code) {
		return code
	}
	return ErrorOther
}
