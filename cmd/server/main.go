package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"strands.run/internal/config"
	"strands.run/internal/control"
	"strands.run/internal/persistence/indexdb"
	"strands.run/internal/persistence/journal"
	"strands.run/internal/protocol"
	"strands.run/internal/sim"
	"strands.run/internal/snapshot"
	"strands.run/internal/transport/observer"
)

func main() {
	var (
		adminAddr  = flag.String("admin_addr", "127.0.0.1:8080", "admin http listen address (empty to disable)")
		configPath = flag.String("config", "./configs/settings.yaml", "settings path")
		port       = flag.Int("port", 0, "command listener port (overrides config)")
		dataDir    = flag.String("data", "", "runtime data directory (overrides config)")
		saveDir    = flag.String("save", "", "screenshot/state output root (overrides config)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite command index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	settings, err := config.Load(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load settings: %v", err)
		}
		logger.Printf("settings not found (%s); using defaults", *configPath)
		settings = config.Defaults()
	}
	if *port != 0 {
		settings.Port = *port
	}
	if *dataDir != "" {
		settings.DataDir = *dataDir
	}
	if *saveDir != "" {
		settings.SaveDir = *saveDir
	}
	if *disableDB {
		settings.IndexDB = false
	}
	if err := settings.Validate(); err != nil {
		logger.Fatalf("settings: %v", err)
	}
	_ = os.MkdirAll(settings.DataDir, 0o755)

	// Built-in scene: a flat plane with a few boxes to walk around, jump
	// onto, and probe against.
	scene := sim.NewScene(
		sim.Box{Min: [3]float64{400, -150, 0}, Max: [3]float64{460, 150, 220}},
		sim.Box{Min: [3]float64{-300, 300, 0}, Max: [3]float64{-100, 500, 40}},
		sim.Box{Min: [3]float64{0, -700, 0}, Max: [3]float64{200, -500, 120}},
	)
	pawn := sim.NewCharacter("pawn-1", 0, 0)
	pawn.SetMaxWalkSpeed(settings.NormalWalkSpeed)

	svc := control.NewService(control.Config{
		Port: settings.Port,
		Durations: protocol.Durations{
			Move: settings.DefaultMoveDurationS,
			Look: settings.DefaultLookDurationS,
		},
		NormalWalkSpeed: settings.NormalWalkSpeed,
		SprintWalkSpeed: settings.SprintWalkSpeed,
		SaveDir:         settings.SaveDir,
	}, control.Capabilities{
		Entities: control.EntityProviderFunc(func() (control.Entity, bool) { return pawn, true }),
		State:    func() (snapshot.StateSource, bool) { return pawn, true },
		Prober:   scene,
		Capture:  sim.NewCapturer(scene, pawn),
	}, logger)

	// Optional: read-model index (does not affect control semantics).
	var idx *indexdb.SQLiteIndex
	if settings.IndexDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(settings.DataDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		svc.SetSessionRecorder(idx)
		svc.SetSnapshotRecorder(idx)
	}

	var jnl *journal.Journal
	if settings.Journal {
		jnl = journal.New(settings.DataDir)
		defer jnl.Close()
	}
	svc.SetCommandLogger(multiCommandLogger{a: jnl, b: idx})

	obsSrv := observer.NewServer(observer.Info{
		TickRateHz:  settings.TickRateHz,
		ControlAddr: fmt.Sprintf("127.0.0.1:%d", settings.Port),
		StartedAt:   time.Now(),
	}, logger)
	svc.SetStatusSink(obsSrv)

	ctx, cancel := signalContext()
	defer cancel()

	if settings.AutoStart {
		if err := svc.Start(); err != nil {
			logger.Fatalf("start listener: %v", err)
		}
		logger.Printf("command listener on %s", svc.Addr())
	} else {
		logger.Printf("auto_start=false; command listener idle")
	}
	defer svc.Stop()

	// Latest state document, republished every frame for the admin surface.
	// The pawn itself is confined to the frame loop.
	var lastState atomic.Pointer[protocol.StateDoc]
	{
		doc := snapshot.Build(pawn, scene, time.Now())
		lastState.Store(&doc)
	}

	// Frame loop: fixed rate, measured dt.
	go func() {
		interval := time.Second / time.Duration(settings.TickRateHz)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		last := time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				dt := now.Sub(last).Seconds()
				last = now
				if dt <= 0 || dt > 1 {
					dt = interval.Seconds()
				}
				svc.Tick(now, dt)
				pawn.Step(scene, dt)
				doc := snapshot.Build(pawn, scene, now)
				lastState.Store(&doc)
			}
		}
	}()

	if strings.TrimSpace(*adminAddr) == "" {
		logger.Printf("admin http disabled")
		<-ctx.Done()
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		m := svc.Metrics()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP strands_frames_total Frames processed by the control loop.\n")
		fmt.Fprintf(rw, "# TYPE strands_frames_total counter\n")
		fmt.Fprintf(rw, "strands_frames_total %d\n", m.Frames)

		fmt.Fprintf(rw, "# HELP strands_commands_total Commands accepted.\n")
		fmt.Fprintf(rw, "# TYPE strands_commands_total counter\n")
		fmt.Fprintf(rw, "strands_commands_total %d\n", m.Commands)

		fmt.Fprintf(rw, "# HELP strands_decode_errors_total Rejected input lines.\n")
		fmt.Fprintf(rw, "# TYPE strands_decode_errors_total counter\n")
		fmt.Fprintf(rw, "strands_decode_errors_total %d\n", m.DecodeErrors)

		fmt.Fprintf(rw, "# HELP strands_snapshots_total State documents written.\n")
		fmt.Fprintf(rw, "# TYPE strands_snapshots_total counter\n")
		fmt.Fprintf(rw, "strands_snapshots_total %d\n", m.Snapshots)

		fmt.Fprintf(rw, "# HELP strands_screenshots_total Screenshots requested.\n")
		fmt.Fprintf(rw, "# TYPE strands_screenshots_total counter\n")
		fmt.Fprintf(rw, "strands_screenshots_total %d\n", m.Screenshots)

		fmt.Fprintf(rw, "# HELP strands_connections Current command connections.\n")
		fmt.Fprintf(rw, "# TYPE strands_connections gauge\n")
		fmt.Fprintf(rw, "strands_connections %d\n", m.Conns)

		fmt.Fprintf(rw, "# HELP strands_pending_windows Pending input windows.\n")
		fmt.Fprintf(rw, "# TYPE strands_pending_windows gauge\n")
		fmt.Fprintf(rw, "strands_pending_windows{kind=%q} %d\n", "move", m.MoveWindows)
		fmt.Fprintf(rw, "strands_pending_windows{kind=%q} %d\n", "look", m.LookWindows)

		fmt.Fprintf(rw, "# HELP strands_frame_step_ms Last frame duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE strands_frame_step_ms gauge\n")
		fmt.Fprintf(rw, "strands_frame_step_ms %.3f\n", m.StepMS)

		fmt.Fprintf(rw, "# HELP strands_observers Connected status observers.\n")
		fmt.Fprintf(rw, "# TYPE strands_observers gauge\n")
		fmt.Fprintf(rw, "strands_observers %d\n", obsSrv.SubscriberCount())
	})

	enableAdminHTTP := envBool("STRANDS_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("STRANDS_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP {
		// Local-only admin endpoints (do not affect control semantics).
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				ControlAddr string            `json:"control_addr"`
				Metrics     control.Metrics   `json:"metrics"`
				State       protocol.StateDoc `json:"state"`
			}{
				ControlAddr: svc.Addr(),
				Metrics:     svc.Metrics(),
				State:       *lastState.Load(),
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})

		mux.HandleFunc("/admin/v1/observer/bootstrap", obsSrv.BootstrapHandler())
		mux.HandleFunc("/admin/v1/observer/ws", obsSrv.WSHandler())
	} else {
		logger.Printf("admin endpoints disabled (STRANDS_ENABLE_ADMIN_HTTP=false)")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (STRANDS_ENABLE_PPROF_HTTP=false)")
	}

	srv := &http.Server{
		Addr:              *adminAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("admin http on %s", *adminAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func envBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

// multiCommandLogger fans journal writes out to the JSONL journal and the
// sqlite index. Either side may be nil.
type multiCommandLogger struct {
	a *journal.Journal
	b *indexdb.SQLiteIndex
}

func (m multiCommandLogger) WriteCommand(e control.CommandLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteCommand(e)
	}
	if m.b != nil {
		if e.Err != "" {
			m.b.RecordCommand(e.Err)
		} else {
			m.b.RecordCommand(e.Cmd)
		}
	}
	return nil
}

func (m multiCommandLogger) WriteFrame(e control.FrameLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteFrame(e)
	}
	return nil
}
