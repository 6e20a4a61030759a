package fake

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/medlens/internal/core/ports/driven"
)

// Ensure VisionModel implements the interface.
var _ driven.VisionModel = (*VisionModel)(nil)

// ErrNoReply is returned when a scripted model has run out of replies.
var ErrNoReply = errors.New("fake: no scripted reply")

// Reply is one scripted model answer.
type Reply struct {
	Content string
	Err     error
}

// VisionModel replays scripted replies in order and records every request.
// When Respond is set it is used instead of the script.
type VisionModel struct {
	Respond func(driven.CompletionRequest) (string, error)

	mu       sync.Mutex
	replies  []Reply
	requests []driven.CompletionRequest
}

// NewVisionModel creates a model that answers with replies in order.
func NewVisionModel(replies ...Reply) *VisionModel {
	return &VisionModel{replies: replies}
}

// Complete records req and returns the next scripted reply.
func (m *VisionModel) Complete(ctx context.Context, req driven.CompletionRequest) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	respond := m.Respond
	var next *Reply
	if respond == nil && len(m.replies) > 0 {
		r := m.replies[0]
		m.replies = m.replies[1:]
		next = &r
	}
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if respond != nil {
		return respond(req)
	}
	if next == nil {
		return "", ErrNoReply
	}
	return next.Content, next.Err
}

// Requests returns a copy of the recorded requests.
func (m *VisionModel) Requests() []driven.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]driven.CompletionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// ModelName returns the fake model name.
func (m *VisionModel) ModelName() string {
	return "fake-vision"
}
