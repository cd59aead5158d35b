package device

import (
	"log"
	"net"
	"sync"

	"regctl/internal/protocol"
)

// recvBufSize bounds a single read the way spec.md §4.3 describes: the
// server does not re-chunk or buffer frames beyond what one recv call
// returns, and the driver sends each frame as one write.
const recvBufSize = 255

// Server accepts one client at a time, performs the ACK handshake, and
// dispatches frames to mem's command interpreter until the client sends
// exit or disconnects. It mirrors the accept/read/dispatch loop shape
// of the teacher's HasherServer, generalized from gRPC handlers to a
// raw byte-stream protocol.
type Server struct {
	mem      *Memory
	listener net.Listener
	log      *log.Logger

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// NewServer creates a server over mem. A nil logger discards all log
// output, matching the optional log_cb pattern of spec.md §4.4.
func NewServer(mem *Memory, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(discard{}, "", 0)
	}
	return &Server{mem: mem, log: logger}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// Start binds addr and runs the accept loop on a background goroutine.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr returns the bound listener address, useful for tests that start
// the server on port 0.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener, which unblocks the accept loop, and waits
// for it to exit, per spec.md §4.3's shutdown rule.
func (s *Server) Stop() {
	s.mu.Lock()
	s.running = false
	ln := s.listener
	s.mu.Unlock()
	if ln != nil {
		ln.Close()
	}
	s.wg.Wait()
}

func (s *Server) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for s.isRunning() {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.isRunning() {
				s.log.Printf("device: accept error: %v", err)
			}
			return
		}
		s.serveClient(conn)
	}
}

// serveClient handles exactly one client to completion: handshake,
// then a blocking read/dispatch loop until exit or error/EOF. Only one
// client is ever in this function at a time (spec.md §3: at most one
// client connected), since accept does not return again until this
// call finishes.
func (s *Server) serveClient(conn net.Conn) {
	defer conn.Close()

	if _, err := conn.Write([]byte(protocol.AckToken)); err != nil {
		s.log.Printf("device: ACK handshake failed: %v", err)
		return
	}

	buf := make([]byte, recvBufSize)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		payload := string(buf[:n])
		if payload == protocol.ExitToken {
			return
		}

		req, perr := protocol.Parse(payload)
		var resp protocol.Message
		if perr != nil {
			resp = s.mem.Malformed()
		} else {
			resp = s.mem.Execute(req)
		}

		if _, err := conn.Write([]byte(protocol.Format(resp))); err != nil {
			return
		}
	}
}
