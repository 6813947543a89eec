package protocol

import "fmt"

// Decode error codes.
const (
	ErrBadJSON    = "E_PROTO_BAD_JSON"
	ErrMissingCmd = "E_PROTO_MISSING_CMD"
	ErrUnknownCmd = "E_PROTO_UNKNOWN_CMD"
)

var knownCodes = map[string]struct{}{
	ErrBadJSON:    {},
	ErrMissingCmd: {},
	ErrUnknownCmd: {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// DecodeError reports a frame that could not be turned into a Command.
// It is always local to the single frame; the connection stays open.
type DecodeError struct {
	Code string
	Cmd  string // set for ErrUnknownCmd
	Line string
}

func (e *DecodeError) Error() string {
	if e.Cmd != "" {
		return fmt.Sprintf("%s: cmd %q", e.Code, e.Cmd)
	}
	return e.Code
}
