package tcp

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Connection is the server side of one accepted client connection
type Connection struct {
	ID          string // unique identifier = key in the manager map
	RemoteAddr  string
	LocalAddr   string
	ConnectedAt time.Time

	conn      net.Conn
	messages  atomic.Int64 // decode events seen on this connection
	bytes     atomic.Int64 // decoded bytes seen on this connection
	closeOnce sync.Once
	closeErr  error
}

// ConnectionInfo is a point-in-time view of a Connection, safe to hand out
type ConnectionInfo struct {
	ID          string    `json:"id"`
	RemoteAddr  string    `json:"remote_addr"`
	LocalAddr   string    `json:"local_addr"`
	ConnectedAt time.Time `json:"connected_at"`
	Messages    int64     `json:"messages"`
	Bytes       int64     `json:"bytes"`
}

// constructor for Connection
func NewConnection(conn net.Conn) *Connection {
	return &Connection{
		ID:          uuid.NewString(),
		RemoteAddr:  conn.RemoteAddr().String(),
		LocalAddr:   conn.LocalAddr().String(),
		ConnectedAt: time.Now(),
		conn:        conn,
	}
}

func (c *Connection) record(n int) {
	c.messages.Add(1)
	c.bytes.Add(int64(n))
}

func (c *Connection) Info() ConnectionInfo {
	return ConnectionInfo{
		ID:          c.ID,
		RemoteAddr:  c.RemoteAddr,
		LocalAddr:   c.LocalAddr,
		ConnectedAt: c.ConnectedAt,
		Messages:    c.messages.Load(),
		Bytes:       c.bytes.Load(),
	}
}

// Close closes the underlying socket; safe to call from several goroutines
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
