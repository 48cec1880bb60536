package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/serialmux/internal/link"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const version = "0.1.0"

type publishRequest struct {
	// Payload is base64 in JSON.
	Payload []byte `json:"payload"`
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		st := s.link.Status()
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"uptime":    time.Since(s.appeared).String(),
			"service":   s.app,
			"version":   version,
			"link":      st.Name,
			"connected": st.Connected,
			"synced":    st.Link.Synced,
		})
	})

	s.router.GET("/link", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.link.Status())
	})

	s.router.POST("/link/channels/:name", func(c *gin.Context) {
		var req publishRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		name := c.Param("name")
		if err := s.link.Publish(name, req.Payload); err != nil {
			status := http.StatusInternalServerError
			switch {
			case errors.Is(err, link.ErrUnknownChannel):
				status = http.StatusNotFound
			case errors.Is(err, link.ErrPayloadLength):
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "queued", "channel": name})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
