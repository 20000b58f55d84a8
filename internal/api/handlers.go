package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"hookboard/internal/ingest"
	"hookboard/internal/model"
	"hookboard/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": "hookboard",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// handleWebhook ingests one delivery. Unsupported event types, malformed
// payloads, and duplicates all answer 200 so the sender does not redeliver;
// only transport-level garbage (400) and storage outages (500) are errors,
// and the 500 path is the one case where redelivery is the desired recovery.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", false)
		return
	}
	body, err := readBodyLimited(w, r, maxWebhookBodyBytes)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body is too large", false)
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "unable to read body", false)
		return
	}
	if !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON", false)
		return
	}

	eventType := r.Header.Get(s.eventTypeHeader)
	delivery := r.Header.Get(s.deliveryHeader)

	ev, err := s.normalizer.Normalize(eventType, body)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrUnsupportedEvent):
			s.log.V(1).Info("ignoring delivery", "event_type", eventType, "delivery", delivery, "reason", "unsupported")
			writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "reason": "unsupported_event_type"})
		default:
			s.log.Info("rejected delivery", "event_type", eventType, "delivery", delivery, "error", err.Error())
			writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "reason": "malformed_payload"})
		}
		return
	}

	status, err := s.store.Upsert(r.Context(), ev)
	if err != nil {
		if errors.Is(err, store.ErrInvalidEvent) {
			s.log.Info("rejected delivery", "event_type", eventType, "delivery", delivery, "error", err.Error())
			writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "reason": "malformed_payload"})
			return
		}
		s.log.Error(err, "store write failed", "request_id", ev.RequestID, "delivery", delivery)
		writeError(w, http.StatusInternalServerError, "STORAGE_UNAVAILABLE", "event store is unavailable", true)
		return
	}

	if status == store.AlreadyExists {
		s.log.V(1).Info("duplicate delivery", "request_id", ev.RequestID, "delivery", delivery)
		writeJSON(w, http.StatusOK, map[string]string{"status": "duplicate", "request_id": ev.RequestID})
		return
	}
	s.log.Info("event stored", "request_id", ev.RequestID, "action", string(ev.Action), "author", ev.Author)
	writeJSON(w, http.StatusOK, map[string]string{"status": "created", "request_id": ev.RequestID})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", false)
		return
	}
	events, err := s.store.ListAll(r.Context())
	if err != nil {
		s.log.Error(err, "store read failed")
		writeError(w, http.StatusInternalServerError, "STORAGE_UNAVAILABLE", "event store is unavailable", true)
		return
	}
	if events == nil {
		events = []model.CanonicalEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}
