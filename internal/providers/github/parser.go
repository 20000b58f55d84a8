package github

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"hookboard/internal/ingest"
	"hookboard/internal/model"

	githubv53 "github.com/google/go-github/v53/github"
)

// Header names used by GitHub webhook deliveries.
const (
	EventTypeHeader = "X-GitHub-Event"
	DeliveryHeader  = "X-GitHub-Delivery"
)

// Parser maps GitHub webhook payloads onto canonical events. Only push and
// pull_request deliveries are handled; everything else is rejected as
// unsupported. A pull_request delivery with the merged flag set is a MERGE,
// any other pull_request delivery is a PULL_REQUEST.
type Parser struct{}

var _ ingest.Normalizer = Parser{}

func (Parser) Normalize(eventType string, body []byte) (model.CanonicalEvent, error) {
	switch strings.TrimSpace(strings.ToLower(eventType)) {
	case "push":
		return normalizePush(body)
	case "pull_request":
		return normalizePullRequest(body)
	default:
		return model.CanonicalEvent{}, fmt.Errorf("%w: %q", ingest.ErrUnsupportedEvent, eventType)
	}
}

func normalizePush(body []byte) (model.CanonicalEvent, error) {
	var p githubv53.PushEvent
	if err := json.Unmarshal(body, &p); err != nil {
		return model.CanonicalEvent{}, fmt.Errorf("%w: decode push: %v", ingest.ErrMalformedPayload, err)
	}

	head := p.GetHeadCommit()
	if head == nil || head.GetID() == "" {
		return model.CanonicalEvent{}, fmt.Errorf("%w: push without head commit", ingest.ErrMalformedPayload)
	}
	branch := branchFromRef(p.GetRef())
	if branch == "" {
		return model.CanonicalEvent{}, fmt.Errorf("%w: push without ref", ingest.ErrMalformedPayload)
	}
	author := pushAuthor(p)
	if author == "" {
		return model.CanonicalEvent{}, fmt.Errorf("%w: push without author", ingest.ErrMalformedPayload)
	}
	ts := head.GetTimestamp()
	if ts.GetTime() == nil || ts.GetTime().IsZero() {
		return model.CanonicalEvent{}, fmt.Errorf("%w: push without commit timestamp", ingest.ErrMalformedPayload)
	}

	return model.CanonicalEvent{
		RequestID:  head.GetID(),
		Author:     author,
		Action:     model.ActionPush,
		FromBranch: branch,
		ToBranch:   branch,
		Timestamp:  ts.GetTime().UTC(),
	}, nil
}

func normalizePullRequest(body []byte) (model.CanonicalEvent, error) {
	var p githubv53.PullRequestEvent
	if err := json.Unmarshal(body, &p); err != nil {
		return model.CanonicalEvent{}, fmt.Errorf("%w: decode pull_request: %v", ingest.ErrMalformedPayload, err)
	}

	pr := p.GetPullRequest()
	if pr == nil || pr.GetNumber() <= 0 {
		return model.CanonicalEvent{}, fmt.Errorf("%w: pull_request without number", ingest.ErrMalformedPayload)
	}
	from := pr.GetHead().GetRef()
	to := pr.GetBase().GetRef()
	if from == "" || to == "" {
		return model.CanonicalEvent{}, fmt.Errorf("%w: pull_request without head/base refs", ingest.ErrMalformedPayload)
	}
	author := nonEmpty(p.GetSender().GetLogin(), pr.GetUser().GetLogin())
	if author == "" {
		return model.CanonicalEvent{}, fmt.Errorf("%w: pull_request without author", ingest.ErrMalformedPayload)
	}
	ts := prTimestamp(pr)
	if ts.IsZero() {
		return model.CanonicalEvent{}, fmt.Errorf("%w: pull_request without timestamps", ingest.ErrMalformedPayload)
	}

	action := model.ActionPullRequest
	if pr.GetMerged() {
		action = model.ActionMerge
	}

	return model.CanonicalEvent{
		// Composite key: the open/update record and the merge record of the
		// same PR must coexist under distinct identities.
		RequestID:  fmt.Sprintf("%d:%s", pr.GetNumber(), action),
		Author:     author,
		Action:     action,
		FromBranch: from,
		ToBranch:   to,
		Timestamp:  ts.UTC(),
	}, nil
}

// branchFromRef extracts the branch name from a full ref path, keeping any
// slashes inside the name: refs/heads/feature/login -> feature/login.
func branchFromRef(ref string) string {
	ref = strings.TrimSpace(ref)
	if rest, ok := strings.CutPrefix(ref, "refs/heads/"); ok {
		return rest
	}
	if rest, ok := strings.CutPrefix(ref, "refs/tags/"); ok {
		return rest
	}
	return ref
}

func pushAuthor(p githubv53.PushEvent) string {
	if p.Pusher != nil && p.Pusher.GetName() != "" {
		return p.Pusher.GetName()
	}
	if hc := p.GetHeadCommit(); hc != nil {
		return nonEmpty(hc.GetAuthor().GetLogin(), hc.GetAuthor().GetName())
	}
	return ""
}

func prTimestamp(pr *githubv53.PullRequest) time.Time {
	if t := pr.UpdatedAt.GetTime(); t != nil && !t.IsZero() {
		return *t
	}
	if t := pr.CreatedAt.GetTime(); t != nil && !t.IsZero() {
		return *t
	}
	return time.Time{}
}

func nonEmpty(a, b string) string {
	a = strings.TrimSpace(a)
	if a != "" {
		return a
	}
	return strings.TrimSpace(b)
}
