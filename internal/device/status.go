package device

import "fmt"

// Driver status codes, as returned by the RKNN runtime.
const (
	StatusFail              = -1
	StatusTimeout           = -2
	StatusDeviceUnavailable = -3
	StatusMallocFail        = -4
	StatusParamInvalid      = -5
	StatusModelInvalid      = -6
	StatusCtxInvalid        = -7
	StatusInputInvalid      = -8
	StatusOutputInvalid     = -9
)

var statusText = map[int]string{
	StatusFail:              "failed",
	StatusTimeout:           "timeout",
	StatusDeviceUnavailable: "device unavailable",
	StatusMallocFail:        "memory allocation failed",
	StatusParamInvalid:      "invalid parameter",
	StatusModelInvalid:      "invalid model",
	StatusCtxInvalid:        "invalid context",
	StatusInputInvalid:      "invalid input",
	StatusOutputInvalid:     "invalid output",
}

// StatusError is a negative status returned by a driver call.
type StatusError struct {
	Op   string
	Code int
}

func (e *StatusError) Error() string {
	text, ok := statusText[e.Code]
	if !ok {
		text = "unknown error"
	}
	return fmt.Sprintf("%s fail! ret=%d (%s)", e.Op, e.Code, text)
}

func status(op string, code int) error {
	if code >= 0 {
		return nil
	}
	return &StatusError{Op: op, Code: code}
}
