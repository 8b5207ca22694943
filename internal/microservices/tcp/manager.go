package tcp

import (
	"log/slog"
	"sort"
	"sync"
)

type ConnectionManager struct {
	clients map[string]*Connection
	// key: connection ID, value: Connection pointer
	mu     sync.RWMutex // read-write mutex for concurrent access
	logger *slog.Logger
}

// constructor for ConnectionManager
func NewConnectionManager(logger *slog.Logger) *ConnectionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnectionManager{
		clients: make(map[string]*Connection),
		logger:  logger,
	}
}

// method to add a new connection
func (m *ConnectionManager) AddConnection(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c.ID] = c
	m.logger.Debug("connection_added",
		"conn_id", c.ID,
		"active", len(m.clients),
	)
}

// method to remove a connection
func (m *ConnectionManager) RemoveConnection(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, c.ID)
	m.logger.Debug("connection_removed",
		"conn_id", c.ID,
		"active", len(m.clients),
	)
}

func (m *ConnectionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Snapshot returns info for every active connection, oldest first
func (m *ConnectionManager) Snapshot() []ConnectionInfo {
	m.mu.RLock()
	out := make([]ConnectionInfo, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, c.Info())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
	return out
}

// method to close all connections
// the connection goroutines remove themselves once their read fails
func (m *ConnectionManager) CloseAllConnections() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, c := range m.clients {
		if err := c.Close(); err != nil {
			m.logger.Warn("connection_close_failed",
				"conn_id", id,
				"error", err.Error(),
			)
			continue
		}
		m.logger.Debug("connection_closed",
			"conn_id", id,
		)
	}
}
