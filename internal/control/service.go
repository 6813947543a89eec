package control

import (
	"log"
	"math"
	"path/filepath"
	"sync/atomic"
	"time"

	"strands.run/internal/protocol"
	"strands.run/internal/snapshot"
	"strands.run/internal/transport/lineserver"
)

// Default output paths, relative to the configured save dir.
const (
	DefaultScreenshotFile = "AutoScreenshot.png"
	DefaultStateFile      = "WorldState/agent_state.json"
)

// ScreenCapturer is the external image-capture collaborator. The service
// validates and forwards screenshot requests, nothing more.
type ScreenCapturer interface {
	RequestScreenshot(path string, showUI bool) error
}

// StateProvider resolves the current snapshot source; it may report none.
type StateProvider func() (snapshot.StateSource, bool)

// Capabilities are the host-simulation collaborators injected into the
// service. Entities is required; the rest may be nil.
type Capabilities struct {
	Entities EntityProvider
	State    StateProvider
	Prober   snapshot.Prober
	Capture  ScreenCapturer
}

// Config is the immutable service configuration, snapshotted at start.
type Config struct {
	Bind string // empty: loopback
	Port int

	Durations protocol.Durations

	NormalWalkSpeed float64
	SprintWalkSpeed float64

	SaveDir string
}

// Status is the per-frame digest published to observers.
type Status struct {
	TS       float64    `json:"ts"`
	MoveAxis [2]float64 `json:"move"`
	LookRate [2]float64 `json:"look"`
	Jumps    int        `json:"jumps"`
	Sprint   *bool      `json:"sprint,omitempty"`
	Conns    int        `json:"conns"`
}

// StatusSink receives the per-frame status. Publish must not block.
type StatusSink interface {
	Publish(st Status)
}

// Metrics is a point-in-time copy of the service counters.
type Metrics struct {
	Frames       uint64  `json:"frames"`
	Commands     uint64  `json:"commands"`
	DecodeErrors uint64  `json:"decode_errors"`
	Snapshots    uint64  `json:"snapshots"`
	Screenshots  uint64  `json:"screenshots"`
	Conns        int     `json:"conns"`
	MoveWindows  int     `json:"move_windows"`
	LookWindows  int     `json:"look_windows"`
	StepMS       float64 `json:"step_ms"`
}

// Service is the remote-control server: one listener, one scheduler, one
// applicator, driven by the host's fixed-rate frame loop. Start/Stop manage
// the transport; Tick must be called from exactly one goroutine.
type Service struct {
	cfg  Config
	log  *log.Logger
	caps Capabilities

	transport *lineserver.Server
	sched     *Scheduler
	app       *Applicator

	cmdLog   CommandLogger    // optional
	snapRec  SnapshotRecorder // optional
	status   StatusSink       // optional

	frames       atomic.Uint64
	commands     atomic.Uint64
	decodeErrors atomic.Uint64
	snapshots    atomic.Uint64
	screenshots  atomic.Uint64
	moveWindows  atomic.Int64
	lookWindows  atomic.Int64
	stepMS       atomic.Uint64 // float64 bits
}

func NewService(cfg Config, caps Capabilities, logger *log.Logger) *Service {
	s := &Service{
		cfg:       cfg,
		log:       logger,
		caps:      caps,
		transport: lineserver.New(logger),
		sched:     NewScheduler(),
		app:       NewApplicator(caps.Entities, cfg.NormalWalkSpeed, cfg.SprintWalkSpeed, logger),
	}
	return s
}

// SetCommandLogger installs the command/frame journal. Call before Start.
func (s *Service) SetCommandLogger(l CommandLogger) { s.cmdLog = l }

// SetSessionRecorder wires connection lifecycle events through the
// transport's frame-context hooks. Call before Start.
func (s *Service) SetSessionRecorder(r SessionRecorder) {
	if r == nil {
		return
	}
	s.transport.OnConnect = r.RecordSessionOpen
	s.transport.OnDisconnect = r.RecordSessionClose
}

// SetSnapshotRecorder installs the state-snapshot metadata sink. Call
// before Start.
func (s *Service) SetSnapshotRecorder(r SnapshotRecorder) { s.snapRec = r }

// SetStatusSink installs the observer publisher. Call before Start.
func (s *Service) SetStatusSink(sink StatusSink) { s.status = sink }

// Start binds the command listener. Failure is fatal only to Start itself.
func (s *Service) Start() error {
	bind := s.cfg.Bind
	if bind == "" {
		bind = "127.0.0.1"
	}
	return s.transport.Start(bind, s.cfg.Port)
}

// Stop closes the listener and every connection. Idempotent.
func (s *Service) Stop() { s.transport.Stop() }

// Addr exposes the bound listener address (nil when not started).
func (s *Service) Addr() string {
	a := s.transport.Addr()
	if a == nil {
		return ""
	}
	return a.String()
}

// Tick runs one frame: drain, decode, ingest, resolve, apply. dt is the
// frame delta in seconds. Every per-line failure is local; nothing here
// returns an error to the loop.
func (s *Service) Tick(now time.Time, dt float64) {
	start := time.Now()
	ts := unixSeconds(now)

	for _, fr := range s.transport.DrainAll() {
		cmd, err := protocol.Decode([]byte(fr.Line), s.cfg.Durations)
		if err != nil {
			s.decodeErrors.Add(1)
			s.log.Printf("drop frame from %s: %v", fr.Conn, err)
			if s.cmdLog != nil {
				code := ""
				if de, ok := err.(*protocol.DecodeError); ok {
					code = de.Code
				}
				_ = s.cmdLog.WriteCommand(CommandLogEntry{TS: ts, Conn: fr.Conn.String(), Err: code, Line: fr.Line})
			}
			continue
		}
		if cmd.Kind == protocol.CmdNone {
			continue
		}

		s.commands.Add(1)
		if s.cmdLog != nil {
			_ = s.cmdLog.WriteCommand(CommandLogEntry{TS: ts, Conn: fr.Conn.String(), Cmd: cmd.Kind})
		}

		switch cmd.Kind {
		case protocol.CmdState:
			s.writeState(cmd.State, now)
		case protocol.CmdScreenshot:
			s.requestScreenshot(cmd.Screenshot)
		default:
			s.sched.Ingest(cmd, now)
		}
	}

	rf := s.sched.Resolve(now)
	s.app.Apply(rf, dt)

	if s.cmdLog != nil && !idle(rf) {
		_ = s.cmdLog.WriteFrame(FrameLogEntry{
			TS:       ts,
			MoveAxis: rf.MoveAxis,
			LookRate: rf.LookRate,
			Jumps:    rf.JumpCount,
			Sprint:   rf.Sprint,
		})
	}

	conns := s.transport.ConnCount()
	moves, looks := s.sched.PendingWindows()
	s.frames.Add(1)
	s.moveWindows.Store(int64(moves))
	s.lookWindows.Store(int64(looks))
	s.stepMS.Store(math.Float64bits(float64(time.Since(start).Microseconds()) / 1000))

	if s.status != nil {
		s.status.Publish(Status{
			TS:       ts,
			MoveAxis: rf.MoveAxis,
			LookRate: rf.LookRate,
			Jumps:    rf.JumpCount,
			Sprint:   rf.Sprint,
			Conns:    conns,
		})
	}
}

func (s *Service) writeState(cmd protocol.StateCmd, now time.Time) {
	path := cmd.Path
	if path == "" {
		path = filepath.Join(s.cfg.SaveDir, DefaultStateFile)
	}

	var src snapshot.StateSource
	if s.caps.State != nil {
		if got, ok := s.caps.State(); ok {
			src = got
		}
	}

	doc := snapshot.Build(src, s.caps.Prober, now)
	if err := snapshot.Write(path, doc); err != nil {
		// No response channel exists; the failure is visible in logs only.
		s.log.Printf("state snapshot: %v", err)
		return
	}
	s.snapshots.Add(1)
	s.log.Printf("wrote state -> %s", path)

	if s.snapRec != nil {
		var pos [3]float64
		var yaw float64
		if doc.Pos != nil {
			pos = *doc.Pos
		}
		if doc.Rot != nil {
			yaw = doc.Rot.Yaw
		}
		s.snapRec.RecordStateSnapshot(doc.TS, path, pos, yaw)
	}
}

func (s *Service) requestScreenshot(cmd protocol.ScreenshotCmd) {
	if s.caps.Capture == nil {
		s.log.Printf("screenshot requested but no capture collaborator is bound")
		return
	}
	path := cmd.Path
	if path == "" {
		path = filepath.Join(s.cfg.SaveDir, DefaultScreenshotFile)
	}
	if err := s.caps.Capture.RequestScreenshot(path, cmd.ShowUI); err != nil {
		s.log.Printf("screenshot: %v", err)
		return
	}
	s.screenshots.Add(1)
	s.log.Printf("requested screenshot -> %s (showUI=%v)", path, cmd.ShowUI)
}

// ConnCount reports the number of live connections.
func (s *Service) ConnCount() int { return s.transport.ConnCount() }

func (s *Service) Metrics() Metrics {
	return Metrics{
		Frames:       s.frames.Load(),
		Commands:     s.commands.Load(),
		DecodeErrors: s.decodeErrors.Load(),
		Snapshots:    s.snapshots.Load(),
		Screenshots:  s.screenshots.Load(),
		Conns:        s.transport.ConnCount(),
		MoveWindows:  int(s.moveWindows.Load()),
		LookWindows:  int(s.lookWindows.Load()),
		StepMS:       math.Float64frombits(s.stepMS.Load()),
	}
}

func idle(f ResolvedFrame) bool {
	return f.JumpCount == 0 && f.Sprint == nil && nearlyZero(f.MoveAxis) && nearlyZero(f.LookRate)
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
