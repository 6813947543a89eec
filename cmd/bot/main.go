// Command bot drives a running server with a scripted patrol: walk a
// square, jump, sprint one leg, then dump state and a screenshot.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"time"
)

type step struct {
	payload map[string]any
	pause   time.Duration
}

func main() {
	var (
		addr  = flag.String("addr", "127.0.0.1:17777", "server address")
		loops = flag.Int("loops", 1, "patrol repetitions (0: forever)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	conn, err := net.DialTimeout("tcp", *addr, 2*time.Second)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	leg := func(sprint bool) []step {
		out := []step{}
		if sprint {
			out = append(out, step{payload: map[string]any{"cmd": "sprint", "enabled": true}})
		}
		out = append(out,
			step{payload: map[string]any{"cmd": "move", "forward": 1, "duration": 1.5}, pause: 1600 * time.Millisecond},
			step{payload: map[string]any{"cmd": "look", "yawRate": 90, "duration": 1.0}, pause: 1100 * time.Millisecond},
		)
		if sprint {
			out = append(out, step{payload: map[string]any{"cmd": "sprint", "enabled": false}})
		}
		return out
	}

	var script []step
	script = append(script, leg(false)...)
	script = append(script, leg(true)...)
	script = append(script, leg(false)...)
	script = append(script, leg(false)...)
	script = append(script,
		step{payload: map[string]any{"cmd": "jump"}, pause: 800 * time.Millisecond},
		step{payload: map[string]any{"cmd": "state"}, pause: 200 * time.Millisecond},
		step{payload: map[string]any{"cmd": "screenshot", "showUI": true}, pause: 200 * time.Millisecond},
	)

	for i := 0; *loops == 0 || i < *loops; i++ {
		for _, st := range script {
			select {
			case <-stop:
				return
			default:
			}
			line, err := json.Marshal(st.payload)
			if err != nil {
				logger.Fatalf("encode: %v", err)
			}
			_ = conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
			if _, err := conn.Write(append(line, '\n')); err != nil {
				logger.Fatalf("send: %v", err)
			}
			logger.Printf("sent %s", line)
			if st.pause > 0 {
				select {
				case <-stop:
					return
				case <-time.After(st.pause):
				}
			}
		}
		logger.Printf("patrol %d complete", i+1)
	}
}
