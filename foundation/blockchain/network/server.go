package network

import (
	"errors"
	"fmt"
	"net"
	"runtime/debug"
	"sync"
	"time"
)

// Handler answers one request. A returned error is sent back to the caller
// as an error message.
type Handler func(from net.Addr, msg Message) (Message, error)

// Server accepts peer connections. Each connection carries one request and
// its reply and is handled by its own goroutine.
type Server struct {
	handler   Handler
	timeout   time.Duration
	evHandler func(v string, args ...any)

	mu       sync.Mutex
	listener net.Listener
	shutdown bool
	wg       sync.WaitGroup
}

// NewServer constructs a server dispatching requests to the handler. A zero
// timeout uses DefaultTimeout.
func NewServer(handler Handler, timeout time.Duration, evHandler func(v string, args ...any)) *Server {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	return &Server{
		handler:   handler,
		timeout:   timeout,
		evHandler: evHandler,
	}
}

// Listen binds the server to the address. Use port 0 to have one picked.
func (s *Server) Listen(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	return nil
}

// Addr returns the address the server is bound to.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until Shutdown is called. It returns nil after
// a shutdown.
func (s *Server) Serve() error {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()

	if listener == nil {
		return errors.New("server is not listening")
	}

	s.evHandler("network: Serve: started: addr[%s]", listener.Addr())
	defer s.evHandler("network: Serve: completed")

	for {
		conn, err := listener.Accept()
		if err != nil {
			s.mu.Lock()
			shutdown := s.shutdown
			s.mu.Unlock()

			if shutdown {
				return nil
			}

			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}

			return fmt.Errorf("accept: %w", err)
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// Shutdown closes the listener and waits for the open connections to be
// answered.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	s.shutdown = true
	listener := s.listener
	s.mu.Unlock()

	var err error
	if listener != nil {
		err = listener.Close()
	}

	s.wg.Wait()

	return err
}

// handleConn reads one request and writes the reply. A request that can't
// be decoded drops the connection without a reply.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	defer func() {
		if rec := recover(); rec != nil {
			s.evHandler("network: handleConn: PANIC: %v: %s", rec, debug.Stack())
		}
	}()

	if err := conn.SetDeadline(time.Now().Add(s.timeout)); err != nil {
		return
	}

	msg, err := ReadMessage(conn)
	if err != nil {
		s.evHandler("network: handleConn: from[%s]: dropped: %s", conn.RemoteAddr(), err)
		return
	}

	resp, err := s.handler(conn.RemoteAddr(), msg)
	if err != nil {
		resp = errorMessage(err)
	}

	if err := WriteMessage(conn, resp); err != nil {
		s.evHandler("network: handleConn: from[%s]: reply %s: ERROR: %s", conn.RemoteAddr(), msg.Type, err)
	}
}
