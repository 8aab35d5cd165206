package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dkassen/procmate/internal/supervisor"
)

// Router provides embeddable HTTP handlers over a Supervisor.
// Endpoints (relative to basePath):
//
//	GET  /processes                  bulk snapshot
//	GET  /processes/:key             single status
//	GET  /processes/:key/logs        query: limit=N
//	POST /processes/:key/start
//	POST /processes/:key/stop        query: wait=10s (optional)
//	POST /processes/:key/restart     query: wait=10s (optional)
//	POST /processes/:key/ensure      idempotent start
//	POST /processes/:key/autostart   query: enabled=true|false
//	POST /sweep                      run the autostart sweep now
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	sup      *supervisor.Supervisor
	basePath string
}

func NewRouter(sup *supervisor.Supervisor, basePath string) *Router {
	return &Router{sup: sup, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted
// in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/processes", r.handleSnapshot)
	group.GET("/processes/:key", r.handleStatus)
	group.GET("/processes/:key/logs", r.handleLogs)
	group.POST("/processes/:key/start", r.handleStart)
	group.POST("/processes/:key/stop", r.handleStop)
	group.POST("/processes/:key/restart", r.handleRestart)
	group.POST("/processes/:key/ensure", r.handleEnsure)
	group.POST("/processes/:key/autostart", r.handleAutostart)
	group.POST("/sweep", r.handleSweep)
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr, basePath string, sup *supervisor.Supervisor) (*http.Server, error) {
	r := NewRouter(sup, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second, // stop may wait through a kill timeout
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

func (r *Router) handleSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, r.sup.Snapshot(c.Request.Context()))
}

func (r *Router) handleStatus(c *gin.Context) {
	st, err := r.sup.Status(c.Request.Context(), c.Param("key"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (r *Router) handleLogs(c *gin.Context) {
	limit := 100
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}
	entries, err := r.sup.Logs(c.Param("key"), limit)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (r *Router) handleStart(c *gin.Context) {
	st, err := r.sup.Start(c.Param("key"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (r *Router) handleStop(c *gin.Context) {
	if err := r.sup.Stop(c.Param("key"), waitParam(c)); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, okResp{OK: true})
}

func (r *Router) handleRestart(c *gin.Context) {
	st, err := r.sup.Restart(c.Param("key"), waitParam(c))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (r *Router) handleEnsure(c *gin.Context) {
	st, err := r.sup.EnsureRunning(c.Param("key"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (r *Router) handleAutostart(c *gin.Context) {
	enabled, err := strconv.ParseBool(c.Query("enabled"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResp{Error: "enabled query param required (true|false)"})
		return
	}
	if err := r.sup.SetAutostart(c.Param("key"), enabled); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, okResp{OK: true})
}

func (r *Router) handleSweep(c *gin.Context) {
	r.sup.EnsureAutostart()
	c.JSON(http.StatusOK, okResp{OK: true})
}

func waitParam(c *gin.Context) time.Duration {
	if s := c.Query("wait"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return 0 // supervisor default
}
