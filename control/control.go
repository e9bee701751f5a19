// Package control is the engine's HTTP control-and-debug surface (spec
// §10): map-config reload, cache purge/stats, and a websocket feed that
// pushes per-frame Statistics to any connected client.
//
// Grounded on the teacher's routers/Geoapi.go route-grouping shape and
// tile_proxy/webtile_downloader.go's task/websocket-broadcast pattern,
// generalized from "poll one download task's progress" to "stream every
// frame's traversal statistics to every connected debug client".
package control

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/GrainArc/vtsclient/config"
	"github.com/GrainArc/vtsclient/rescache"
	"github.com/GrainArc/vtsclient/traverse"
)

// Server wires the control API onto a gin engine. One Server per
// running client process, shared across every registered layer.
type Server struct {
	cache *rescache.Cache

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]bool

	reload func() error
}

// New builds a Server over the engine's shared cache. reload is called
// on POST /control/reload to re-fetch and re-validate the map-config
// document (spec §4.2 "map reload" cancellation protocol); it may be
// nil if the caller doesn't support hot reload.
func New(cache *rescache.Cache, reload func() error) *Server {
	return &Server{
		cache: cache,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*websocket.Conn]bool),
		reload:  reload,
	}
}

// Register mounts the control routes under /control on r.
func (s *Server) Register(r *gin.Engine) {
	grp := r.Group("/control")
	{
		grp.GET("/stats", s.handleStats)
		grp.POST("/purge", s.handlePurge)
		grp.POST("/reload", s.handleReload)
		grp.GET("/ws", s.handleWebsocket)
	}
}

// statsResponse is the JSON shape returned by GET /control/stats and
// broadcast over the websocket feed.
type statsResponse struct {
	Resources int    `json:"resources"`
	RamBytes  uint64 `json:"ramBytes"`
	GpuBytes  uint64 `json:"gpuBytes"`
	Tick      uint64 `json:"tick"`
	Time      int64  `json:"time"`
}

func (s *Server) snapshot() statsResponse {
	ram, gpu := s.cache.MemoryUsage()
	return statsResponse{
		Resources: s.cache.Size(),
		RamBytes:  ram,
		GpuBytes:  gpu,
		Tick:      s.cache.CurrentTick(),
		Time:      time.Now().Unix(),
	}
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.snapshot())
}

// handlePurge resets every non-Ready resource to Initializing, the
// engine's response to a view-cache invalidation request (spec §4.2).
func (s *Server) handlePurge(c *gin.Context) {
	s.cache.Purge()
	c.JSON(http.StatusOK, gin.H{"status": "purged"})
}

func (s *Server) handleReload(c *gin.Context) {
	if s.reload == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "reload not configured"})
		return
	}
	if err := s.reload(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reloaded"})
}

// handleWebsocket upgrades the connection and registers it for
// PublishFrame broadcasts until the client disconnects.
func (s *Server) handleWebsocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	conn.WriteJSON(s.snapshot())

	go s.drain(conn)
}

// drain reads (and discards) client messages until the connection
// closes, then unregisters it. Mirrors the teacher's handleWSConnection:
// a websocket.Conn needs a live reader or the peer's close frame is
// never observed.
func (s *Server) drain(conn *websocket.Conn) {
	defer s.unregister(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) unregister(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

// PublishFrame broadcasts a frame's Statistics to every connected
// debug client. Called by the render thread once per Driver.Tick; a
// slow or dead client is dropped rather than blocking the broadcast.
func (s *Server) PublishFrame(stats traverse.Statistics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.clients) == 0 {
		return
	}

	msg := struct {
		statsResponse
		MetaNodesTraversed uint64 `json:"metaNodesTraversed"`
	}{statsResponse: s.snapshot(), MetaNodesTraversed: stats.MetaNodesTraversedTotal}

	for conn := range s.clients {
		conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := conn.WriteJSON(msg); err != nil {
			config.Logger.Printf("control: dropping websocket client: %v", err)
			delete(s.clients, conn)
			conn.Close()
		}
	}
}
