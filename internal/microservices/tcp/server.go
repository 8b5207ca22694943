package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/text/encoding"
	"golang.org/x/time/rate"

	"hellotcp/internal/codec"
)

const DefaultAddr = ":8080"

var (
	ErrServerClosed     = errors.New("tcp server closed")
	ErrNotListening     = errors.New("tcp server is not listening")
	ErrAlreadyListening = errors.New("tcp server is already listening")
)

// Options for the TCP server; zero values keep the plain behaviour
// (port 8080, utf-8, unbounded connections, no idle timeout)
type Options struct {
	Addr           string
	Charset        string
	ReadBufferSize int
	MaxConnections int64   // concurrent connections, 0 = unbounded
	AcceptRate     float64 // accepts per second, 0 = unlimited
	AcceptBurst    int
	IdleTimeout    time.Duration // 0 = wait forever for the next chunk
	Logger         *slog.Logger
}

// Stats counters of the server since it started listening
type Stats struct {
	Addr              string `json:"addr"`
	TotalConnections  int64  `json:"total_connections"`
	ActiveConnections int64  `json:"active_connections"`
	TotalMessages     int64  `json:"total_messages"`
	TotalBytes        int64  `json:"total_bytes"`
	ErrorCount        int64  `json:"error_count"`
	Uptime            string `json:"uptime"`
}

type TCPServer struct {
	Manager *ConnectionManager

	opts     Options
	handlers []Handler
	charset  encoding.Encoding
	logger   *slog.Logger
	limiter  *rate.Limiter       // nil when accepts are unthrottled
	slots    *semaphore.Weighted // nil when connections are unbounded

	mu        sync.Mutex
	listener  net.Listener
	startedAt time.Time
	stopped   bool
	quitChan  chan struct{} // closed on Stop, every goroutine watching it winds down
	stopOnce  sync.Once
	wg        sync.WaitGroup // one per connection goroutine

	totalConnections atomic.Int64
	totalMessages    atomic.Int64
	totalBytes       atomic.Int64
	errorCount       atomic.Int64
}

// NewServer builds a server that passes every decoded message through handlers
// in order. With no handlers the messages are logged at debug level.
func NewServer(opts Options, handlers ...Handler) (*TCPServer, error) {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.ReadBufferSize <= 0 {
		opts.ReadBufferSize = codec.DefaultBufferSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	charset, err := codec.LookupCharset(opts.Charset)
	if err != nil {
		return nil, err
	}
	if len(handlers) == 0 {
		handlers = []Handler{NewLogHandler(logger, slog.LevelDebug)}
	}

	s := &TCPServer{
		Manager:  NewConnectionManager(logger),
		opts:     opts,
		handlers: handlers,
		charset:  charset,
		logger:   logger,
		quitChan: make(chan struct{}),
	}
	if opts.AcceptRate > 0 {
		burst := opts.AcceptBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.AcceptRate), burst)
	}
	if opts.MaxConnections > 0 {
		s.slots = semaphore.NewWeighted(opts.MaxConnections)
	}
	return s, nil
}

// Listen binds the listening socket without accepting yet
func (s *TCPServer) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrServerClosed
	}
	if s.listener != nil {
		return ErrAlreadyListening
	}

	listener, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to start TCP server on %s: %w", s.opts.Addr, err)
	}
	s.listener = listener
	s.startedAt = time.Now()

	s.logger.Info("server_started",
		"addr", listener.Addr().String(),
		"max_connections", s.opts.MaxConnections,
		"charset", s.opts.Charset,
	)
	return nil
}

// Start listens and serves until ctx is cancelled or Stop is called
func (s *TCPServer) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Serve runs the accept loop on the bound listener. It returns nil once the
// server is stopped, either through Stop or through ctx, and all connection
// goroutines have finished.
func (s *TCPServer) Serve(ctx context.Context) error {
	s.mu.Lock()
	listener, stopped := s.listener, s.stopped
	s.mu.Unlock()
	if stopped {
		return ErrServerClosed
	}
	if listener == nil {
		return ErrNotListening
	}

	defer s.Stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.quitChan:
			cancel()
		}
	}()

	for {
		if err := s.acquire(ctx); err != nil {
			return nil // only fails once ctx is done, which means we're stopping
		}

		conn, err := listener.Accept()
		if err != nil {
			s.release()
			if s.isStopping() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.errorCount.Add(1)
			s.logger.Error("accept_failed", "error", err.Error())
			continue
		}

		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			conn.Close()
			s.release()
			return nil
		}
		s.wg.Add(1)
		s.mu.Unlock()

		s.totalConnections.Add(1)
		go func(conn net.Conn) {
			defer s.wg.Done()
			defer s.release()
			s.handleConnection(ctx, conn)
		}(conn)
	}
}

// acquire waits for the accept rate limiter and a free connection slot
func (s *TCPServer) acquire(ctx context.Context) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if s.slots != nil {
		if err := s.slots.Acquire(ctx, 1); err != nil {
			return err
		}
	}
	return nil
}

func (s *TCPServer) release() {
	if s.slots != nil {
		s.slots.Release(1)
	}
}

func (s *TCPServer) isStopping() bool {
	select {
	case <-s.quitChan:
		return true
	default:
		return false
	}
}

// handle connections/lifecycle of single client connection
func (s *TCPServer) handleConnection(ctx context.Context, conn net.Conn) {
	// per-connection setup, runs once before the first read
	c := NewConnection(conn)
	s.Manager.AddConnection(c)
	defer s.Manager.RemoveConnection(c)
	defer c.Close()

	// Stop may have swept the manager before we registered
	if s.isStopping() {
		return
	}

	log := s.logger.With("conn_id", c.ID, "remote_addr", c.RemoteAddr)
	log.Debug("connection_active", "local_addr", c.LocalAddr)
	decoder := codec.NewDecoder(conn, s.charset, s.opts.ReadBufferSize)

	for {
		if s.opts.IdleTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.opts.IdleTimeout))
		}

		msg, err := decoder.Next()
		if err != nil {
			var netErr net.Error
			switch {
			case errors.Is(err, io.EOF):
				log.Debug("connection_inactive",
					"messages", c.messages.Load(),
					"duration", time.Since(c.ConnectedAt).String(),
				)
			case errors.As(err, &netErr) && netErr.Timeout():
				log.Warn("connection_idle_timeout", "idle_timeout", s.opts.IdleTimeout.String())
			case errors.Is(err, net.ErrClosed) || s.isStopping():
				// closed by Stop
			default:
				s.errorCount.Add(1)
				log.Error("connection_read_error", "error", err.Error())
			}
			return
		}

		c.record(len(msg))
		s.totalMessages.Add(1)
		s.totalBytes.Add(int64(len(msg)))
		s.dispatch(ctx, c, msg, log)
	}
}

func (s *TCPServer) dispatch(ctx context.Context, c *Connection, msg string, log *slog.Logger) {
	for _, h := range s.handlers {
		if err := h.HandleMessage(ctx, c, msg); err != nil {
			s.errorCount.Add(1)
			log.Warn("handler_failed", "error", err.Error())
		}
	}
}

// Addr returns the bound address, nil before Listen
func (s *TCPServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and every open connection, then waits for the
// connection goroutines to finish. Safe to call more than once.
func (s *TCPServer) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		close(s.quitChan)
		if s.listener != nil {
			s.listener.Close()
		}
		s.mu.Unlock()

		s.Manager.CloseAllConnections()
		s.wg.Wait()
		s.logger.Info("server_stopped",
			"total_connections", s.totalConnections.Load(),
			"total_messages", s.totalMessages.Load(),
		)
	})
}

func (s *TCPServer) Stats() Stats {
	stats := Stats{
		TotalConnections:  s.totalConnections.Load(),
		ActiveConnections: int64(s.Manager.Count()),
		TotalMessages:     s.totalMessages.Load(),
		TotalBytes:        s.totalBytes.Load(),
		ErrorCount:        s.errorCount.Load(),
	}
	s.mu.Lock()
	if s.listener != nil {
		stats.Addr = s.listener.Addr().String()
		stats.Uptime = time.Since(s.startedAt).Round(time.Second).String()
	}
	s.mu.Unlock()
	return stats
}

// Connections lists the currently open connections
func (s *TCPServer) Connections() []ConnectionInfo {
	return s.Manager.Snapshot()
}
