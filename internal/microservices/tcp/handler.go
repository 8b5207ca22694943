package tcp

import (
	"context"
	"log/slog"
)

// Handler consumes decoded messages. Handlers run in order on the connection's
// goroutine; a returned error is logged and the next message is still read.
type Handler interface {
	HandleMessage(ctx context.Context, c *Connection, msg string) error
}

// HandlerFunc adapts a plain function to Handler
type HandlerFunc func(ctx context.Context, c *Connection, msg string) error

func (f HandlerFunc) HandleMessage(ctx context.Context, c *Connection, msg string) error {
	return f(ctx, c, msg)
}

// LogHandler writes every decoded message to the logger together with the
// connection it arrived on.
type LogHandler struct {
	logger *slog.Logger
	level  slog.Level
}

func NewLogHandler(logger *slog.Logger, level slog.Level) *LogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogHandler{logger: logger, level: level}
}

func (h *LogHandler) HandleMessage(ctx context.Context, c *Connection, msg string) error {
	h.logger.Log(ctx, h.level, "message_received",
		"conn_id", c.ID,
		"remote_addr", c.RemoteAddr,
		"local_addr", c.LocalAddr,
		"message", msg,
	)
	return nil
}
