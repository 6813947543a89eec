package control

// CommandLogEntry records one wire command, accepted or rejected.
type CommandLogEntry struct {
	TS   float64 `json:"ts"`
	Conn string  `json:"conn"`
	Cmd  string  `json:"cmd,omitempty"`
	Err  string  `json:"err,omitempty"`  // decode error code, when rejected
	Line string  `json:"line,omitempty"` // raw frame, only for rejects
}

// FrameLogEntry records one non-idle resolved frame.
type FrameLogEntry struct {
	TS       float64    `json:"ts"`
	MoveAxis [2]float64 `json:"move"`
	LookRate [2]float64 `json:"look"`
	Jumps    int        `json:"jumps,omitempty"`
	Sprint   *bool      `json:"sprint,omitempty"`
}

// CommandLogger receives the command and frame streams. Implementations live
// in internal/persistence; entries must be accepted without blocking the
// frame loop.
type CommandLogger interface {
	WriteCommand(e CommandLogEntry) error
	WriteFrame(e FrameLogEntry) error
}

// SessionRecorder receives connection lifecycle events.
type SessionRecorder interface {
	RecordSessionOpen(id, remoteAddr string)
	RecordSessionClose(id string)
}

// SnapshotRecorder receives metadata for every written state document.
type SnapshotRecorder interface {
	RecordStateSnapshot(ts float64, path string, pos [3]float64, yaw float64)
}
