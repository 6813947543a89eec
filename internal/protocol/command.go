package protocol

import (
	"encoding/json"
	"strings"
)

// Command names, matched case-insensitively against the "cmd" field.
const (
	CmdMove       = "move"
	CmdLook       = "look"
	CmdJump       = "jump"
	CmdSprint     = "sprint"
	CmdScreenshot = "screenshot"
	CmdState      = "state"

	// CmdNone marks a structurally valid line that resolved to no action
	// (e.g. sprint without a usable "enabled"). Callers ignore it.
	CmdNone = ""
)

// Command is the decoded form of one wire line. Kind selects which payload
// is meaningful; the rest stay zero.
type Command struct {
	Kind string

	Move       MoveCmd
	Look       LookCmd
	Sprint     SprintCmd
	Screenshot ScreenshotCmd
	State      StateCmd
}

type MoveCmd struct {
	Forward  float64
	Right    float64
	Duration float64 // seconds; window length
}

type LookCmd struct {
	YawRate   float64 // deg/sec
	PitchRate float64 // deg/sec
	Duration  float64 // seconds
}

type SprintCmd struct {
	Enabled bool
}

type ScreenshotCmd struct {
	Path   string // empty: caller default
	ShowUI bool
}

type StateCmd struct {
	Path string // empty: caller default
}

// Durations carries the configured fallback window lengths for move/look
// commands that omit "duration".
type Durations struct {
	Move float64
	Look float64
}

// Decode parses one NDJSON frame into a Command. All optionality and
// defaulting live here: numeric fields fall back to 0 (or the configured
// duration) when absent or mistyped, string/bool fields are only honored
// when their JSON type matches.
func Decode(line []byte, defaults Durations) (Command, error) {
	var obj map[string]any
	if err := json.Unmarshal(line, &obj); err != nil || obj == nil {
		return Command{}, &DecodeError{Code: ErrBadJSON, Line: string(line)}
	}

	name, ok := obj["cmd"].(string)
	if !ok {
		return Command{}, &DecodeError{Code: ErrMissingCmd, Line: string(line)}
	}

	switch strings.ToLower(name) {
	case CmdMove:
		return Command{Kind: CmdMove, Move: MoveCmd{
			Forward:  numOr(obj, "forward", 0),
			Right:    numOr(obj, "right", 0),
			Duration: numOr(obj, "duration", defaults.Move),
		}}, nil

	case CmdLook:
		return Command{Kind: CmdLook, Look: LookCmd{
			YawRate:   numOr(obj, "yawRate", 0),
			PitchRate: numOr(obj, "pitchRate", 0),
			Duration:  numOr(obj, "duration", defaults.Look),
		}}, nil

	case CmdJump:
		return Command{Kind: CmdJump}, nil

	case CmdSprint:
		enabled, ok := obj["enabled"].(bool)
		if !ok {
			// Required field absent or mistyped: the whole command is a no-op.
			return Command{Kind: CmdNone}, nil
		}
		return Command{Kind: CmdSprint, Sprint: SprintCmd{Enabled: enabled}}, nil

	case CmdScreenshot:
		return Command{Kind: CmdScreenshot, Screenshot: ScreenshotCmd{
			Path:   strOr(obj, "path", ""),
			ShowUI: boolOr(obj, "showUI", false),
		}}, nil

	case CmdState:
		return Command{Kind: CmdState, State: StateCmd{
			Path: strOr(obj, "path", ""),
		}}, nil
	}

	return Command{}, &DecodeError{Code: ErrUnknownCmd, Cmd: name, Line: string(line)}
}

func numOr(obj map[string]any, key string, def float64) float64 {
	if v, ok := obj[key].(float64); ok {
		return v
	}
	return def
}

func strOr(obj map[string]any, key, def string) string {
	if v, ok := obj[key].(string); ok {
		return v
	}
	return def
}

func boolOr(obj map[string]any, key string, def bool) bool {
	if v, ok := obj[key].(bool); ok {
		return v
	}
	return def
}
