package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/marconicastro/zeropragas-sub000/internal/domain"
	"github.com/marconicastro/zeropragas-sub000/internal/logging"
)

// browserEventRequest is the browser-origin event API body. The payload
// arrives partially enriched client-side (UTM, device, session keys mixed
// in with the commercial fields).
type browserEventRequest struct {
	Kind       string         `json:"kind"`
	OccurredAt string         `json:"occurred_at,omitempty"` // RFC3339; defaults to receipt time
	Payload    map[string]any `json:"payload"`
}

func (s *Server) handleBrowserEvent(c *gin.Context) {
	var req browserEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}

	kind := domain.EventKind(req.Kind)
	if !domain.KnownKinds[kind] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown event kind"})
		return
	}

	occurredAt := time.Now().UTC()
	if req.OccurredAt != "" {
		t, err := time.Parse(time.RFC3339, req.OccurredAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "occurred_at must be RFC3339"})
			return
		}
		occurredAt = t.UTC()
	}

	payload := req.Payload
	if payload == nil {
		payload = make(map[string]any)
	}
	// The requester's address and agent feed downstream matching when the
	// browser did not capture them itself.
	if _, ok := payload["client_ip"]; !ok {
		payload["client_ip"] = c.ClientIP()
	}
	if _, ok := payload["user_agent"]; !ok {
		payload["user_agent"] = c.Request.UserAgent()
	}

	ev := &domain.InboundEvent{
		ID:         uuid.New().String(),
		Kind:       kind,
		Source:     "browser",
		OccurredAt: occurredAt,
		Payload:    payload,
	}

	ctx := logging.WithEvent(c.Request.Context(), ev.ID, string(ev.Kind))
	fp, duplicate, _ := s.accept(ctx, ev)

	// 200 for duplicates (idempotent success), 202 for newly accepted.
	if duplicate {
		c.JSON(http.StatusOK, gin.H{"status": "duplicate", "fingerprint": fp})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "event_id": ev.ID, "fingerprint": fp})
}
