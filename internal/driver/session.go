package driver

import (
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"regctl/internal/protocol"
)

// DefaultTimeout is the default send/receive timeout, spec.md §4.4.
const DefaultTimeout = 5000 * time.Millisecond

// LogFunc is the optional log callback of spec.md §4.4's create(log_cb).
type LogFunc func(msg string)

// Session owns one client connection plus the state spec.md §4.4
// requires around it: a mutex serializing every public operation, a
// send/receive timeout, and the last error observed. It is the
// session-object replacement for the teacher's process-wide
// CGMinerClient singleton (spec.md §9: "global state -> session
// object").
type Session struct {
	mu sync.Mutex

	conn    net.Conn
	timeout time.Duration
	logCB   LogFunc

	connected bool
	lastErr   *Error
}

// NewSession creates a session. logCB may be nil.
func NewSession(logCB LogFunc) *Session {
	return &Session{timeout: DefaultTimeout, logCB: logCB}
}

func (s *Session) log(format string, args ...interface{}) {
	if s.logCB != nil {
		s.logCB(fmt.Sprintf(format, args...))
	}
}

// setErr records e as the last error and logs its message. Must be
// called with mu held; returns e for a one-line `return s.setErr(...)`.
func (s *Session) setErr(e *Error) *Error {
	s.lastErr = e
	s.log("%s", e.Error())
	return e
}

// Connect opens a stream to host:port and completes the ACK handshake.
func (s *Session) Connect(host string, port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return s.setErr(newErr(ErrAlreadyInitialized, "session already connected"))
	}

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	conn, err := net.DialTimeout("tcp", addr, s.timeout)
	if err != nil {
		return s.setErr(wrapErr(ErrConnectionFailed, err, "dial %s", addr))
	}

	conn.SetReadDeadline(time.Now().Add(s.timeout))
	ack := make([]byte, len(protocol.AckToken))
	if _, err := io.ReadFull(conn, ack); err != nil {
		conn.Close()
		if isTimeout(err) {
			return s.setErr(wrapErr(ErrTimeout, err, "waiting for ACK"))
		}
		return s.setErr(wrapErr(ErrConnectionFailed, err, "reading ACK handshake"))
	}
	if string(ack) != protocol.AckToken {
		conn.Close()
		return s.setErr(newErr(ErrConnectionFailed, "unexpected handshake %q", ack))
	}

	s.conn = conn
	s.connected = true
	return nil
}

// Disconnect sends exit and closes the stream. Always leaves the
// session disconnected, even if the exit send fails.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnectLocked()
}

func (s *Session) disconnectLocked() error {
	if !s.connected {
		return nil
	}
	s.conn.SetWriteDeadline(time.Now().Add(s.timeout))
	_, werr := s.conn.Write([]byte(protocol.ExitToken))
	cerr := s.conn.Close()
	s.conn = nil
	s.connected = false
	if werr != nil {
		return s.setErr(wrapErr(ErrCommunicationFailed, werr, "sending exit"))
	}
	if cerr != nil {
		return s.setErr(wrapErr(ErrCommunicationFailed, cerr, "closing connection"))
	}
	return nil
}

// Destroy disconnects if connected and releases session resources.
// After Destroy, the session must not be reused.
func (s *Session) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnectLocked()
}

// SetTimeout updates the send/receive timeout. If connected, it takes
// effect on the next exchange (deadlines are set per-call).
func (s *Session) SetTimeout(ms int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = time.Duration(ms) * time.Millisecond
}

// IsConnected reports whether the session currently holds an open
// connection.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// LastErrorMessage returns the human-readable description of the most
// recent error, or "" if none has occurred.
func (s *Session) LastErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastErr == nil {
		return ""
	}
	return s.lastErr.Error()
}

// LastErrorCode returns the code of the most recent error.
func (s *Session) LastErrorCode() ErrorCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastErr == nil {
		return ErrNone
	}
	return s.lastErr.Code
}

// exchange sends one frame and returns the response frame, applying
// the session timeout to both the send and the receive, per spec.md
// §5. Must be called with mu held.
func (s *Session) exchange(frame string) (string, *Error) {
	if !s.connected {
		return "", s.setErr(newErr(ErrNotConnected, "session not connected"))
	}

	s.conn.SetWriteDeadline(time.Now().Add(s.timeout))
	if _, err := s.conn.Write([]byte(frame)); err != nil {
		if isTimeout(err) {
			return "", s.setErr(wrapErr(ErrTimeout, err, "sending frame %q", frame))
		}
		return "", s.setErr(wrapErr(ErrCommunicationFailed, err, "sending frame %q", frame))
	}

	s.conn.SetReadDeadline(time.Now().Add(s.timeout))
	buf := make([]byte, protocol.FrameLen)
	if _, err := io.ReadFull(s.conn, buf); err != nil {
		if isTimeout(err) {
			return "", s.setErr(wrapErr(ErrTimeout, err, "receiving response to %q", frame))
		}
		return "", s.setErr(wrapErr(ErrCommunicationFailed, err, "receiving response to %q", frame))
	}
	return string(buf), nil
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

// SendRaw parses frame, exchanges it, checks that the response parses,
// and returns the response text as received. Reserved for tests per spec.md §4.4; not
// part of the shipping surface exposed by the high-level API.
func (s *Session) SendRaw(frame string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := protocol.Parse(frame); err != nil {
		return "", s.setErr(wrapErr(ErrProtocolError, err, "formatting outgoing frame %q", frame))
	}
	resp, eerr := s.exchange(frame)
	if eerr != nil {
		return "", eerr
	}
	if _, err := protocol.Parse(resp); err != nil {
		return "", s.setErr(wrapErr(ErrProtocolError, err, "parsing response %q", resp))
	}
	return resp, nil
}
