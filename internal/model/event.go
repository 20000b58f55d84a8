package model

import "time"

// Action is the normalized kind of a stored GitHub event.
type Action string

const (
	ActionPush        Action = "PUSH"
	ActionPullRequest Action = "PULL_REQUEST"
	ActionMerge       Action = "MERGE"
)

// CanonicalEvent is the deduplicated representation of one GitHub action,
// independent of the raw payload shape that produced it. RequestID is the
// identity key: the head commit SHA for pushes, and "<number>:<action>" for
// pull request events, so an open and a later merge of the same PR coexist.
type CanonicalEvent struct {
	RequestID  string    `json:"request_id"`
	Author     string    `json:"author"`
	Action     Action    `json:"action"`
	FromBranch string    `json:"from_branch"`
	ToBranch   string    `json:"to_branch"`
	Timestamp  time.Time `json:"timestamp"`
}

func (a Action) Valid() bool {
	switch a {
	case ActionPush, ActionPullRequest, ActionMerge:
		return true
	}
	return false
}
