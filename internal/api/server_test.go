package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hookboard/internal/model"
	"hookboard/internal/providers/github"
	"hookboard/internal/store"

	"github.com/go-logr/logr"
)

const pushPayload = `{
	"ref": "refs/heads/main",
	"pusher": {"name": "alice"},
	"head_commit": {"id": "abc123", "timestamp": "2026-01-29T10:15:32Z", "author": {"login": "alice"}}
}`

func newTestServer(t *testing.T) (http.Handler, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	srv := NewServer(st, github.Parser{}, logr.Discard())
	return srv.Routes(), st
}

func postWebhook(t *testing.T, h http.Handler, eventType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if eventType != "" {
		req.Header.Set("X-GitHub-Event", eventType)
	}
	req.Header.Set("X-GitHub-Delivery", "test-delivery-1")
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	return res
}

func getEvents(t *testing.T, h http.Handler) []map[string]interface{} {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("GET /events: %d: %s", res.Code, res.Body.String())
	}
	var events []map[string]interface{}
	if err := json.Unmarshal(res.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	return events
}

func TestPushFlowAndIdempotence(t *testing.T) {
	h, _ := newTestServer(t)

	res := postWebhook(t, h, "push", pushPayload)
	if res.Code != http.StatusOK {
		t.Fatalf("webhook: %d: %s", res.Code, res.Body.String())
	}
	var body map[string]string
	_ = json.Unmarshal(res.Body.Bytes(), &body)
	if body["status"] != "created" || body["request_id"] != "abc123" {
		t.Fatalf("unexpected response: %v", body)
	}

	events := getEvents(t, h)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	want := map[string]interface{}{
		"request_id":  "abc123",
		"author":      "alice",
		"action":      "PUSH",
		"from_branch": "main",
		"to_branch":   "main",
		"timestamp":   "2026-01-29T10:15:32Z",
	}
	for k, v := range want {
		if events[0][k] != v {
			t.Fatalf("field %s: got %v want %v", k, events[0][k], v)
		}
	}

	// Redelivery of the identical payload must not grow the log.
	res = postWebhook(t, h, "push", pushPayload)
	if res.Code != http.StatusOK {
		t.Fatalf("redelivery: %d", res.Code)
	}
	_ = json.Unmarshal(res.Body.Bytes(), &body)
	if body["status"] != "duplicate" {
		t.Fatalf("redelivery status: %v", body)
	}
	if got := len(getEvents(t, h)); got != 1 {
		t.Fatalf("expected 1 event after redelivery, got %d", got)
	}
}

func TestPullRequestOpenThenMerge(t *testing.T) {
	h, _ := newTestServer(t)

	prBody := func(merged bool, updated string) string {
		return fmt.Sprintf(`{
			"action": %q,
			"sender": {"login": "bob"},
			"pull_request": {
				"number": 42,
				"merged": %t,
				"head": {"ref": "feature/x"},
				"base": {"ref": "main"},
				"created_at": "2026-01-29T09:00:00Z",
				"updated_at": %q
			}
		}`, map[bool]string{false: "opened", true: "closed"}[merged], merged, updated)
	}

	if res := postWebhook(t, h, "pull_request", prBody(false, "2026-01-29T09:00:00Z")); res.Code != http.StatusOK {
		t.Fatalf("open: %d", res.Code)
	}
	if res := postWebhook(t, h, "pull_request", prBody(true, "2026-01-29T14:30:00Z")); res.Code != http.StatusOK {
		t.Fatalf("merge: %d", res.Code)
	}

	events := getEvents(t, h)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %v", len(events), events)
	}
	if events[0]["action"] != "PULL_REQUEST" || events[1]["action"] != "MERGE" {
		t.Fatalf("actions: %v %v", events[0]["action"], events[1]["action"])
	}
	if events[0]["request_id"] == events[1]["request_id"] {
		t.Fatalf("open and merge share request_id %v", events[0]["request_id"])
	}
	for _, e := range events {
		if e["from_branch"] != "feature/x" || e["to_branch"] != "main" {
			t.Fatalf("branches: %v", e)
		}
	}
}

func TestUnsupportedAndMalformedAreAbsorbed(t *testing.T) {
	h, _ := newTestServer(t)

	res := postWebhook(t, h, "issues", `{"action":"opened"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("unsupported type: %d", res.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(res.Body.Bytes(), &body)
	if body["reason"] != "unsupported_event_type" {
		t.Fatalf("unexpected body: %v", body)
	}

	res = postWebhook(t, h, "push", `{"ref":"refs/heads/main"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("malformed payload: %d", res.Code)
	}
	_ = json.Unmarshal(res.Body.Bytes(), &body)
	if body["reason"] != "malformed_payload" {
		t.Fatalf("unexpected body: %v", body)
	}

	if got := len(getEvents(t, h)); got != 0 {
		t.Fatalf("rejections altered the store: %d events", got)
	}
}

func TestTransportLevelBadJSONIsClientError(t *testing.T) {
	h, _ := newTestServer(t)
	res := postWebhook(t, h, "push", `{not json`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestWebhookMethodNotAllowed(t *testing.T) {
	h, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

type downStore struct{}

func (downStore) Upsert(context.Context, model.CanonicalEvent) (store.UpsertStatus, error) {
	return "", fmt.Errorf("%w: connection refused", store.ErrUnavailable)
}

func (downStore) ListAll(context.Context) ([]model.CanonicalEvent, error) {
	return nil, fmt.Errorf("%w: connection refused", store.ErrUnavailable)
}

func TestStorageOutageSurfacesAsServerError(t *testing.T) {
	srv := NewServer(downStore{}, github.Parser{}, logr.Discard())
	h := srv.Routes()

	res := postWebhook(t, h, "push", pushPayload)
	if res.Code != http.StatusInternalServerError {
		t.Fatalf("webhook during outage: %d", res.Code)
	}
	var errBody struct {
		Error struct {
			Code      string `json:"code"`
			Retryable bool   `json:"retryable"`
		} `json:"error"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &errBody); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if errBody.Error.Code != "STORAGE_UNAVAILABLE" || !errBody.Error.Retryable {
		t.Fatalf("unexpected error body: %+v", errBody)
	}

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	eRes := httptest.NewRecorder()
	h.ServeHTTP(eRes, req)
	if eRes.Code != http.StatusInternalServerError {
		t.Fatalf("events during outage: %d", eRes.Code)
	}
}

func TestEmptyStoreListsEmptyArray(t *testing.T) {
	h, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	if strings.TrimSpace(res.Body.String()) != "[]" {
		t.Fatalf("expected [], got %q", res.Body.String())
	}
}

func TestDashboardServedAtRootOnly(t *testing.T) {
	h, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	if res.Code != http.StatusOK || !strings.Contains(res.Body.String(), "hookboard") {
		t.Fatalf("dashboard: %d", res.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/nope", nil)
	res = httptest.NewRecorder()
	h.ServeHTTP(res, req)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown path, got %d", res.Code)
	}
}
