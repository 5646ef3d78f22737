package httpserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/orgball2608/social-feed-bot/pkg/errors"
)

type response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, response{Code: 0, Message: "success", Data: data})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, response{Code: status, Message: message})
}

// Health godoc
// @Summary Liveness probe
// @Router /healthz [get]
func (s *Server) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// ListFeed returns every card of the feed, newest first.
// @Router /feed [get]
func (s *Server) ListFeed(c *gin.Context) {
	cards := s.reconciler.Snapshot()
	success(c, gin.H{"total": len(cards), "cards": cards})
}

// GetCard returns the current state of one card.
// @Router /feed/{id} [get]
func (s *Server) GetCard(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid post id")
		return
	}
	card, ok := s.reconciler.Card(id)
	if !ok {
		fail(c, http.StatusNotFound, "post not in feed")
		return
	}
	success(c, card.State())
}

// Refresh fetches the feed again.
// @Router /feed/refresh [post]
func (s *Server) Refresh(c *gin.Context) {
	if err := s.loader.Refresh(c.Request.Context()); err != nil {
		status := http.StatusBadGateway
		if errors.IsUnauthorized(err) {
			status = http.StatusUnauthorized
		}
		fail(c, status, errors.GetMessage(err))
		return
	}
	success(c, gin.H{"total": len(s.reconciler.Posts())})
}
