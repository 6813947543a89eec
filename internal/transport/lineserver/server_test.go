package lineserver

import (
	"io"
	"log"
	"net"
	"testing"
	"time"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := New(log.New(io.Discard, "", 0))
	if err := s.Start("127.0.0.1", 0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(s.Stop)
	return s
}

// drainUntil polls DrainAll until cond returns true or the deadline passes.
// The reader goroutine delivers data asynchronously, so tests poll the way
// the frame loop would.
func drainUntil(t *testing.T, s *Server, cond func(got []Frame) bool) []Frame {
	t.Helper()
	var all []Frame
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		all = append(all, s.DrainAll()...)
		if cond(all) {
			return all
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline; frames=%v", all)
	return nil
}

func TestServer_DeliversFramesInOrder(t *testing.T) {
	s := newTestServer(t)

	c, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	if _, err := c.Write([]byte("{\"cmd\":\"jump\"}\n{\"cmd\":\"move\",\"forward\":1}\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	frames := drainUntil(t, s, func(got []Frame) bool { return len(got) >= 2 })
	if frames[0].Line != `{"cmd":"jump"}` || frames[1].Line != `{"cmd":"move","forward":1}` {
		t.Fatalf("frames out of order: %v", frames)
	}
	if frames[0].Conn != frames[1].Conn {
		t.Fatalf("frames from one socket must share a connection id")
	}
}

func TestServer_DataBeforeCloseIsNotLost(t *testing.T) {
	s := newTestServer(t)

	c, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if _, err := c.Write([]byte("{\"cmd\":\"jump\"}\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = c.Close()

	frames := drainUntil(t, s, func(got []Frame) bool { return len(got) >= 1 })
	if frames[0].Line != `{"cmd":"jump"}` {
		t.Fatalf("frame = %q", frames[0].Line)
	}

	// The connection is removed only after its final drain.
	drainUntil(t, s, func([]Frame) bool { return s.ConnCount() == 0 })
}

func TestServer_TracksMultipleConnections(t *testing.T) {
	s := newTestServer(t)

	c1, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c1.Close()
	c2, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c2.Close()

	_, _ = c1.Write([]byte("{\"a\":1}\n"))
	_, _ = c2.Write([]byte("{\"b\":2}\n"))

	frames := drainUntil(t, s, func(got []Frame) bool { return len(got) >= 2 })
	if frames[0].Conn == frames[1].Conn {
		t.Fatalf("expected distinct connection ids, got %s twice", frames[0].Conn)
	}
	if s.ConnCount() != 2 {
		t.Fatalf("ConnCount = %d, want 2", s.ConnCount())
	}
}

func TestServer_StopIsIdempotentAndUnbinds(t *testing.T) {
	s := New(log.New(io.Discard, "", 0))
	if err := s.Start("127.0.0.1", 0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	addr := s.Addr().String()

	s.Stop()
	s.Stop() // second call is a no-op

	if s.Running() {
		t.Fatalf("server still running after Stop")
	}
	if _, err := net.DialTimeout("tcp", addr, 200*time.Millisecond); err == nil {
		t.Fatalf("listener should be closed after Stop")
	}
	if got := s.DrainAll(); got != nil {
		t.Fatalf("DrainAll after Stop = %v, want nil", got)
	}
}

func TestServer_StartTwiceIsNoop(t *testing.T) {
	s := newTestServer(t)
	addr := s.Addr().String()
	if err := s.Start("127.0.0.1", 0); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if s.Addr().String() != addr {
		t.Fatalf("second Start rebound the listener")
	}
}
