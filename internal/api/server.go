package api

import (
	"strings"

	"hookboard/internal/ingest"
	"hookboard/internal/store"

	"github.com/go-logr/logr"
)

const (
	defaultEventTypeHeader = "X-GitHub-Event"
	defaultDeliveryHeader  = "X-GitHub-Delivery"
)

// ServerOptions carry the delivery-mechanism conventions: which headers name
// the event type and the delivery id. Defaults match GitHub.
type ServerOptions struct {
	EventTypeHeader string
	DeliveryHeader  string
}

type Server struct {
	store           store.Store
	normalizer      ingest.Normalizer
	log             logr.Logger
	eventTypeHeader string
	deliveryHeader  string
}

func NewServer(st store.Store, n ingest.Normalizer, log logr.Logger) *Server {
	return NewServerWithOptions(st, n, log, ServerOptions{})
}

func NewServerWithOptions(st store.Store, n ingest.Normalizer, log logr.Logger, opts ServerOptions) *Server {
	return &Server{
		store:           st,
		normalizer:      n,
		log:             log,
		eventTypeHeader: nonEmpty(opts.EventTypeHeader, defaultEventTypeHeader),
		deliveryHeader:  nonEmpty(opts.DeliveryHeader, defaultDeliveryHeader),
	}
}

func nonEmpty(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
