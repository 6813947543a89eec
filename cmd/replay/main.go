// Command replay reads a recorded journal and either reruns the frame
// stream against a fresh pawn or summarizes the command stream.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"strands.run/internal/control"
	"strands.run/internal/sim"
)

func main() {
	var (
		dataDir = flag.String("data", "./data", "runtime data directory")
		mode    = flag.String("mode", "frames", "frames: rerun resolved input, commands: summarize the command stream")
		fromTS  = flag.Float64("from_ts", 0, "skip entries before this unix timestamp")
		toTS    = flag.Float64("to_ts", 0, "stop after this unix timestamp (0: no limit)")
	)
	flag.Parse()

	dir := filepath.Join(*dataDir, "journal")
	prefix := "frames-"
	if *mode == "commands" {
		prefix = "commands-"
	}
	files, err := listJournalFiles(dir, prefix)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list journal:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "no %s*.jsonl.zst files in %s\n", prefix, dir)
		os.Exit(1)
	}

	switch *mode {
	case "frames":
		replayFrames(files, *fromTS, *toTS)
	case "commands":
		summarizeCommands(files, *fromTS, *toTS)
	default:
		fmt.Fprintln(os.Stderr, "unknown -mode:", *mode)
		os.Exit(2)
	}
}

func listJournalFiles(dir, prefix string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

func scanFile[T any](path string, visit func(T) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var entry T
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		if err := visit(entry); err != nil {
			return err
		}
	}
	return sc.Err()
}

func replayFrames(files []string, fromTS, toTS float64) {
	pawn := sim.NewCharacter("replay", 0, 0)
	scene := sim.NewScene()

	var frames uint64
	var lastTS float64
	visit := func(e control.FrameLogEntry) error {
		if e.TS < fromTS {
			return nil
		}
		if toTS != 0 && e.TS > toTS {
			return nil
		}
		if lastTS != 0 && e.TS < lastTS {
			return fmt.Errorf("timestamps out of order: %f after %f", e.TS, lastTS)
		}
		dt := 1.0 / 30
		if lastTS != 0 && e.TS > lastTS && e.TS-lastTS < 1 {
			dt = e.TS - lastTS
		}
		lastTS = e.TS

		if e.Sprint != nil {
			if *e.Sprint {
				pawn.SetMaxWalkSpeed(1000)
			} else {
				pawn.SetMaxWalkSpeed(600)
			}
		}
		pawn.AddMovementInput(e.MoveAxis[0], e.MoveAxis[1])
		pawn.AddYawPitchInput(e.LookRate[0]*dt, e.LookRate[1]*dt)
		for i := 0; i < e.Jumps; i++ {
			pawn.Jump()
		}
		pawn.Step(scene, dt)
		frames++
		return nil
	}

	for _, path := range files {
		if err := scanFile(path, visit); err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
	}

	pos := pawn.Position()
	yaw, pitch, _ := pawn.Rotation()
	fmt.Printf("replayed %d frames: pos=(%.1f %.1f %.1f) yaw=%.1f pitch=%.1f mode=%s\n",
		frames, pos[0], pos[1], pos[2], yaw, pitch, pawn.MovementMode())
}

func summarizeCommands(files []string, fromTS, toTS float64) {
	counts := map[string]uint64{}
	errs := map[string]uint64{}
	conns := map[string]struct{}{}
	var total uint64

	visit := func(e control.CommandLogEntry) error {
		if e.TS < fromTS {
			return nil
		}
		if toTS != 0 && e.TS > toTS {
			return nil
		}
		total++
		if e.Conn != "" {
			conns[e.Conn] = struct{}{}
		}
		if e.Err != "" {
			errs[e.Err]++
			return nil
		}
		counts[e.Cmd]++
		return nil
	}

	for _, path := range files {
		if err := scanFile(path, visit); err != nil {
			fmt.Fprintln(os.Stderr, "summarize:", err)
			os.Exit(1)
		}
	}

	fmt.Printf("entries=%d connections=%d\n", total, len(conns))
	for _, kind := range sortedKeys(counts) {
		fmt.Printf("  %-12s %d\n", kind, counts[kind])
	}
	if len(errs) > 0 {
		fmt.Println("rejected:")
		for _, code := range sortedKeys(errs) {
			fmt.Printf("  %-24s %d\n", code, errs[code])
		}
	}
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
