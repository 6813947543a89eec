package lineserver

import (
	"errors"
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/google/uuid"
)

// Frame is one complete command line received from a connection.
type Frame struct {
	Conn uuid.UUID
	Line string
}

const (
	// Max bytes pulled from one socket per read.
	readChunk = 64 * 1024

	// Backlog of accepted sockets awaiting adoption by the frame loop.
	acceptBacklog = 16

	// Buffered chunks per connection between its reader and the frame loop.
	connBacklog = 64
)

type clientConn struct {
	id   uuid.UUID
	c    net.Conn
	in   chan []byte // closed by the reader on EOF/error
	buf  LineBuffer
	dead bool
}

// Server owns the TCP listener and the set of live connections.
//
// An accept goroutine pushes new sockets onto a bounded handoff channel and a
// per-connection reader pushes raw chunks onto that connection's channel;
// both become visible only when the frame loop calls DrainAll. Connection
// set and framer state are mutated exclusively from the DrainAll caller, so
// the frame loop never blocks on I/O and needs no locks around per-frame
// command state.
type Server struct {
	log *log.Logger

	// Optional lifecycle hooks, invoked from the frame-loop context (and
	// from Stop). Set before Start.
	OnConnect    func(id, remoteAddr string)
	OnDisconnect func(id string)

	mu       sync.Mutex
	ln       net.Listener
	accepted chan net.Conn
	conns    map[uuid.UUID]*clientConn
	done     chan struct{}
	running  bool

	wg sync.WaitGroup
}

func New(logger *log.Logger) *Server {
	return &Server{
		log:   logger,
		conns: make(map[uuid.UUID]*clientConn),
	}
}

// Start binds the listener. It is a no-op when already running.
func (s *Server) Start(bind string, port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(bind, fmt.Sprintf("%d", port)))
	if err != nil {
		return fmt.Errorf("listen %s:%d: %w", bind, port, err)
	}
	s.ln = ln
	s.accepted = make(chan net.Conn, acceptBacklog)
	s.done = make(chan struct{})
	s.running = true

	s.wg.Add(1)
	go s.acceptLoop(ln, s.accepted, s.done)

	s.log.Printf("listening on %s", ln.Addr())
	return nil
}

// Addr returns the bound listener address, or nil when stopped.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Stop closes the listener and every socket and waits for the accept and
// reader goroutines to finish. Idempotent; safe to call at any time.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	ln := s.ln
	s.ln = nil
	accepted := s.accepted
	conns := s.conns
	s.conns = make(map[uuid.UUID]*clientConn)
	close(s.done)
	s.mu.Unlock()

	_ = ln.Close()
	for _, cc := range conns {
		_ = cc.c.Close()
		if s.OnDisconnect != nil {
			s.OnDisconnect(cc.id.String())
		}
	}
	s.wg.Wait()

	// Sockets accepted but never adopted by a drain pass.
	close(accepted)
	for c := range accepted {
		_ = c.Close()
	}
	s.log.Printf("stopped")
}

func (s *Server) acceptLoop(ln net.Listener, accepted chan<- net.Conn, done <-chan struct{}) {
	defer s.wg.Done()
	for {
		c, err := ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.log.Printf("accept: %v", err)
			}
			return
		}
		if tc, ok := c.(*net.TCPConn); ok {
			_ = tc.SetNoDelay(true)
		}
		select {
		case accepted <- c:
		case <-done:
			_ = c.Close()
			return
		default:
			// Handoff queue full; shed the connection rather than block accept.
			s.log.Printf("accept backlog full, dropping %s", c.RemoteAddr())
			_ = c.Close()
		}
	}
}

func (s *Server) readLoop(cc *clientConn, done <-chan struct{}) {
	defer s.wg.Done()
	defer close(cc.in)
	for {
		chunk := make([]byte, readChunk)
		n, err := cc.c.Read(chunk)
		if n > 0 {
			select {
			case cc.in <- chunk[:n]:
			case <-done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// DrainAll adopts newly accepted sockets, takes every chunk currently
// buffered for each connection and returns the complete frames, in arrival
// order per connection. A connection whose reader has finished is removed
// only after this final drain, so bytes sent just before a close are never
// lost. Must be called from a single goroutine (the frame loop).
func (s *Server) DrainAll() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}

	// Adopt pending sockets first so data sent right after connect is
	// picked up in this same pass.
adopt:
	for {
		select {
		case c := <-s.accepted:
			cc := &clientConn{id: uuid.New(), c: c, in: make(chan []byte, connBacklog)}
			s.conns[cc.id] = cc
			s.wg.Add(1)
			go s.readLoop(cc, s.done)
			s.log.Printf("client connected: %s id=%s", c.RemoteAddr(), cc.id)
			if s.OnConnect != nil {
				s.OnConnect(cc.id.String(), c.RemoteAddr().String())
			}
		default:
			break adopt
		}
	}

	var frames []Frame
	for id, cc := range s.conns {
		s.drain(cc, &frames)
		if cc.dead {
			_ = cc.c.Close()
			delete(s.conns, id)
			s.log.Printf("client disconnected: id=%s", id)
			if s.OnDisconnect != nil {
				s.OnDisconnect(id.String())
			}
		}
	}
	return frames
}

// drain moves every immediately available chunk into the connection's framer
// and appends completed frames. Liveness is decided only after the buffered
// data is consumed: a closed reader channel still yields its remaining
// chunks before reporting closure.
func (s *Server) drain(cc *clientConn, frames *[]Frame) {
	for {
		select {
		case chunk, ok := <-cc.in:
			if !ok {
				cc.dead = true
				return
			}
			cc.buf.Append(chunk)
			for {
				line, ok := cc.buf.Next()
				if !ok {
					break
				}
				*frames = append(*frames, Frame{Conn: cc.id, Line: line})
			}
		default:
			return // nothing more available right now
		}
	}
}

// ConnCount reports the number of tracked connections.
func (s *Server) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Running reports whether the listener is up.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
