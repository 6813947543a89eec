package protocol

// StateDoc is the world-state document written by the "state" command.
// Shape and field names are wire contract; see schemas/state.schema.json.
type StateDoc struct {
	TS float64 `json:"ts"` // unix seconds, fractional

	Pawn PawnInfo `json:"pawn"` // empty object when no entity is bound

	Pos   *[3]float64 `json:"pos,omitempty"`
	Rot   *RotInfo    `json:"rot,omitempty"`
	Vel   *[3]float64 `json:"vel,omitempty"`
	Speed *float64    `json:"speed,omitempty"`

	Move    MoveInfo  `json:"move"`
	Trace   TraceInfo `json:"trace"`
	Blocked Blocked   `json:"blocked"`
}

type PawnInfo struct {
	Name  string `json:"name,omitempty"`
	Class string `json:"class,omitempty"`
}

type RotInfo struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// Movement modes.
const (
	ModeWalking    = "Walking"
	ModeNavWalking = "NavWalking"
	ModeFalling    = "Falling"
	ModeSwimming   = "Swimming"
	ModeFlying     = "Flying"
	ModeCustom     = "Custom"
	ModeNone       = "None"
)

type MoveInfo struct {
	Mode       string `json:"mode,omitempty"`
	IsFalling  bool   `json:"isFalling"`
	IsCrouched bool   `json:"isCrouched"`
}

// TraceInfo holds directional proximity probe distances. A probe that hits
// nothing reports its full range.
type TraceInfo struct {
	Forward ForwardTraces `json:"forward"`
	Left    SideTrace     `json:"left"`
	Right   SideTrace     `json:"right"`
	Down    DownTrace     `json:"down"`
}

type ForwardTraces struct {
	Knee  float64 `json:"knee"`
	Waist float64 `json:"waist"`
	Chest float64 `json:"chest"`
}

type SideTrace struct {
	Waist float64 `json:"waist"`
}

type DownTrace struct {
	Dist float64 `json:"dist"`
}

type Blocked struct {
	Forward bool `json:"forward"`
}
