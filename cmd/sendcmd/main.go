// Command sendcmd sends one control command to a running server as a single
// NDJSON line over TCP.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"time"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "move":
		moveCmd(os.Args[2:])
	case "look":
		lookCmd(os.Args[2:])
	case "jump":
		jumpCmd(os.Args[2:])
	case "sprint":
		sprintCmd(os.Args[2:])
	case "screenshot":
		screenshotCmd(os.Args[2:])
	case "state":
		stateCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: sendcmd <move|look|jump|sprint|screenshot|state> [flags]")
}

func netFlags(fs *flag.FlagSet) (host *string, port *int) {
	host = fs.String("host", "127.0.0.1", "server host")
	port = fs.Int("port", 17777, "server port")
	return
}

func send(host string, port int, payload map[string]any) {
	line, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintln(os.Stderr, "encode:", err)
		os.Exit(1)
	}
	addr := net.JoinHostPort(host, fmt.Sprint(port))
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not connect to %s: %v\n", addr, err)
		os.Exit(1)
	}
	defer conn.Close()
	_ = conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Write(append(line, '\n')); err != nil {
		fmt.Fprintln(os.Stderr, "send:", err)
		os.Exit(1)
	}
}

func moveCmd(args []string) {
	fs := flag.NewFlagSet("move", flag.ExitOnError)
	host, port := netFlags(fs)
	forward := fs.Float64("forward", 0, "forward/back input (-1..1)")
	right := fs.Float64("right", 0, "right/left input (-1..1)")
	duration := fs.Float64("duration", -1, "window seconds (server default when omitted)")
	_ = fs.Parse(args)

	payload := map[string]any{"cmd": "move", "forward": *forward, "right": *right}
	if *duration >= 0 {
		payload["duration"] = *duration
	}
	send(*host, *port, payload)
}

func lookCmd(args []string) {
	fs := flag.NewFlagSet("look", flag.ExitOnError)
	host, port := netFlags(fs)
	yawRate := fs.Float64("yaw_rate", 0, "yaw rate deg/sec")
	pitchRate := fs.Float64("pitch_rate", 0, "pitch rate deg/sec")
	duration := fs.Float64("duration", -1, "window seconds (server default when omitted)")
	_ = fs.Parse(args)

	payload := map[string]any{"cmd": "look", "yawRate": *yawRate, "pitchRate": *pitchRate}
	if *duration >= 0 {
		payload["duration"] = *duration
	}
	send(*host, *port, payload)
}

func jumpCmd(args []string) {
	fs := flag.NewFlagSet("jump", flag.ExitOnError)
	host, port := netFlags(fs)
	_ = fs.Parse(args)
	send(*host, *port, map[string]any{"cmd": "jump"})
}

func sprintCmd(args []string) {
	fs := flag.NewFlagSet("sprint", flag.ExitOnError)
	host, port := netFlags(fs)
	enabled := fs.Bool("enabled", false, "enable sprint")
	_ = fs.Parse(args)
	send(*host, *port, map[string]any{"cmd": "sprint", "enabled": *enabled})
}

func screenshotCmd(args []string) {
	fs := flag.NewFlagSet("screenshot", flag.ExitOnError)
	host, port := netFlags(fs)
	path := fs.String("path", "", "output path (server default when empty)")
	showUI := fs.Bool("show_ui", false, "include the HUD overlay")
	_ = fs.Parse(args)

	payload := map[string]any{"cmd": "screenshot"}
	if *path != "" {
		payload["path"] = *path
	}
	if *showUI {
		payload["showUI"] = true
	}
	send(*host, *port, payload)
}

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	host, port := netFlags(fs)
	path := fs.String("path", "", "output path (server default when empty)")
	_ = fs.Parse(args)

	payload := map[string]any{"cmd": "state"}
	if *path != "" {
		payload["path"] = *path
	}
	send(*host, *port, payload)
}
