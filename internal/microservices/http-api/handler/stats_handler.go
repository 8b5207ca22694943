package handler

import (
	"net/http"

	"hellotcp/internal/microservices/tcp"

	"github.com/gin-gonic/gin"
)

// StatsSource is what the admin API reads from; *tcp.TCPServer satisfies it
type StatsSource interface {
	Stats() tcp.Stats
	Connections() []tcp.ConnectionInfo
}

type StatsHandler struct {
	src StatsSource
}

func NewStatsHandler(src StatsSource) *StatsHandler {
	return &StatsHandler{src: src}
}

func (h *StatsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/check-conn", h.CheckConn)
	rg.GET("/stats", h.Stats)
	rg.GET("/connections", h.Connections)
}

func (h *StatsHandler) CheckConn(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *StatsHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.src.Stats())
}

func (h *StatsHandler) Connections(c *gin.Context) {
	conns := h.src.Connections()
	c.JSON(http.StatusOK, gin.H{
		"count":       len(conns),
		"connections": conns,
	})
}

// NewRouter builds the read-only admin engine
func NewRouter(src StatsSource) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	NewStatsHandler(src).RegisterRoutes(&r.RouterGroup)
	return r
}
