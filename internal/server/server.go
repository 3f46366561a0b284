// Package server exposes the HTTP ingestion surface: the signed webhook
// endpoint, the browser-origin event API, and the operational read-only
// endpoints (stats, activity stream, health, metrics). Authentication
// happens here, before the delivery core is ever invoked.
package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marconicastro/zeropragas-sub000/internal/broker"
	brokernats "github.com/marconicastro/zeropragas-sub000/internal/broker/nats"
	"github.com/marconicastro/zeropragas-sub000/internal/config"
	"github.com/marconicastro/zeropragas-sub000/internal/delivery"
	"github.com/marconicastro/zeropragas-sub000/internal/domain"
	"github.com/marconicastro/zeropragas-sub000/internal/events"
	"github.com/marconicastro/zeropragas-sub000/internal/logging"
	"github.com/marconicastro/zeropragas-sub000/internal/store"
	"github.com/marconicastro/zeropragas-sub000/internal/worker"
)

type Server struct {
	cfg       *config.Config
	orch      *delivery.Orchestrator
	publisher broker.Publisher       // optional; nil means in-process delivery
	users     store.UserContextStore // optional
	hub       *events.Hub
	keyHashes map[string]bool
}

func New(cfg *config.Config, orch *delivery.Orchestrator, publisher broker.Publisher, users store.UserContextStore, hub *events.Hub, keyHashes map[string]bool) *Server {
	return &Server{
		cfg:       cfg,
		orch:      orch,
		publisher: publisher,
		users:     users,
		hub:       hub,
		keyHashes: keyHashes,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestIDMiddleware())

	r.POST("/webhook/:source", s.handleWebhook)
	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1", s.apiKeyMiddleware())
	v1.POST("/events", s.handleBrowserEvent)
	v1.GET("/stats", s.handleStats)
	v1.GET("/activity", s.handleActivity)

	return r
}

// accept runs the shared acceptance path: dedup, then hand-off to the
// broker when one is configured, otherwise in-process background delivery.
// The caller gets its answer as soon as the event is deduplicated and
// accepted; keeping webhook producers from re-submitting while we retry is
// the whole point of acking early.
func (s *Server) accept(ctx context.Context, ev *domain.InboundEvent) (fp string, duplicate bool, accepted bool) {
	fp, duplicate = s.orch.Accept(ev)
	if duplicate {
		return fp, true, false
	}

	if s.publisher != nil {
		data, err := json.Marshal(worker.Message{Event: *ev, Fingerprint: fp})
		if err == nil {
			err = s.publisher.Publish(ctx, brokernats.SubjectEvents, data)
		}
		if err == nil {
			return fp, false, true
		}
		logging.FromContext(ctx).Error("broker publish failed, delivering in-process",
			slog.String("code", "BROKER_ERROR"), slog.Any("error", err))
	}

	// Detach from the request context so delivery survives the response.
	go s.orch.DeliverAccepted(context.WithoutCancel(ctx), ev, fp)
	return fp, false, true
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(200, gin.H{"status": "SERVING"})
}
