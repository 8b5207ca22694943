package tcp

// client.go = the sending side: connect, write one string, flush.
// nothing is ever read back from the server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"hellotcp/internal/codec"
)

const DefaultMessage = "hello world."

var ErrConnect = errors.New("tcp connect failed")

type ClientOptions struct {
	Charset     string
	DialTimeout time.Duration // 0 = only ctx bounds the connect
	Logger      *slog.Logger
}

// TCPClient is one outbound connection with a string encoder attached
type TCPClient struct {
	conn    net.Conn
	encoder *codec.Encoder
	logger  *slog.Logger
}

// Dial blocks until the connection is established. Failures wrap ErrConnect
// and keep the underlying cause (e.g. syscall.ECONNREFUSED).
func Dial(ctx context.Context, addr string, opts ClientOptions) (*TCPClient, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	charset, err := codec.LookupCharset(opts.Charset)
	if err != nil {
		return nil, err
	}

	dialer := net.Dialer{Timeout: opts.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, addr, err)
	}

	logger.Debug("client_connected",
		"local_addr", conn.LocalAddr().String(),
		"remote_addr", conn.RemoteAddr().String(),
	)
	return &TCPClient{
		conn:    conn,
		encoder: codec.NewEncoder(conn, charset),
		logger:  logger,
	}, nil
}

// Send encodes msg, writes it and flushes. No acknowledgement is awaited.
func (c *TCPClient) Send(msg string) error {
	if err := c.encoder.WriteAndFlush(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	c.logger.Debug("message_sent",
		"remote_addr", c.conn.RemoteAddr().String(),
		"bytes", len(msg),
	)
	return nil
}

func (c *TCPClient) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

func (c *TCPClient) Close() error {
	return c.conn.Close()
}

// SendOnce connects, sends msg and closes the connection
func SendOnce(ctx context.Context, addr, msg string, opts ClientOptions) error {
	client, err := Dial(ctx, addr, opts)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.Send(msg)
}
