package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dkassen/procmate/internal/supervisor"
)

func sanitizeBase(basePath string) string {
	bp := strings.TrimSpace(basePath)
	if bp == "" {
		return ""
	}
	if !strings.HasPrefix(bp, "/") {
		bp = "/" + bp
	}
	return strings.TrimRight(bp, "/")
}

// writeErr maps supervisor error kinds to HTTP statuses.
func writeErr(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, supervisor.ErrUnknownProcess):
		status = http.StatusNotFound
	case errors.Is(err, supervisor.ErrAlreadyRunning), errors.Is(err, supervisor.ErrNotRunning):
		status = http.StatusConflict
	case errors.Is(err, supervisor.ErrShuttingDown):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, errorResp{Error: err.Error()})
}
