package api

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
)

// MountStatic serves an admin UI build from dir. Unknown paths outside
// /api fall back to index.html so client-side routes resolve.
func MountStatic(r *gin.Engine, dir string, logger *slog.Logger) {
	if _, err := os.Stat(dir); err != nil {
		logger.Warn("static directory unavailable, UI not mounted", "dir", dir, "err", err)
		return
	}
	r.Use(static.Serve("/", static.LocalFile(dir, false)))

	index := filepath.Join(dir, "index.html")
	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		if _, err := os.Stat(index); err != nil {
			c.Status(http.StatusNotFound)
			return
		}
		c.File(index)
	})
	logger.Info("serving static UI", "dir", dir)
}
