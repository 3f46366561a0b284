package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/marconicastro/zeropragas-sub000/internal/events"
)

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.orch.Stats().Snapshot())
}

// handleActivity streams delivery lifecycle events as server-sent events.
// Optional downstream/kind query parameters filter the stream.
func (s *Server) handleActivity(c *gin.Context) {
	if s.hub == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "activity stream not enabled"})
		return
	}

	id, err := gonanoid.New()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "subscriber id"})
		return
	}

	sub := &events.Subscriber{
		ID:         id,
		Downstream: c.Query("downstream"),
		Kind:       c.Query("kind"),
		Activity:   make(chan events.DeliveryActivity, 64),
	}
	s.hub.Subscribe(sub)
	defer s.hub.Unsubscribe(id)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")

	c.Stream(func(w io.Writer) bool {
		select {
		case activity, ok := <-sub.Activity:
			if !ok {
				return false
			}
			data, err := json.Marshal(activity)
			if err != nil {
				return true
			}
			c.SSEvent("activity", string(data))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
