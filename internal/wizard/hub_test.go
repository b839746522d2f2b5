package wizard

import (
	"testing"

	"github.com/cloudwego/eino/adk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/degaulle/sorashorts/internal/workflow"
)

func TestHubStatus(t *testing.T) {
	h := NewHub()
	assert.Equal(t, Status{ContinueLabel: "Continue"}, h.Status())

	h.Render(workflow.Event{Kind: workflow.EventContinue, Busy: true, Text: "Analyzing..."})
	assert.True(t, h.Status().ContinueBusy)
	assert.Equal(t, "Analyzing...", h.Status().ContinueLabel)
	h.Render(workflow.Event{Kind: workflow.EventContinue})
	assert.Equal(t, Status{ContinueLabel: "Continue"}, h.Status())

	h.Render(workflow.Event{Kind: workflow.EventStatus, Text: "Generating scene 2 of 5...", Detail: "a lab"})
	assert.Equal(t, "Generating scene 2 of 5...", h.Status().Text)
	assert.Equal(t, "a lab", h.Status().Detail)

	h.Render(workflow.Event{Kind: workflow.EventError, Message: "rate limited"})
	assert.Empty(t, h.Status().Text)
	assert.Empty(t, h.Status().Detail)
}

func TestHubFanOut(t *testing.T) {
	h := NewHub()
	a, cancelA := h.Subscribe()
	b, cancelB := h.Subscribe()
	assert.Equal(t, 2, h.Subscribers())

	h.Render(workflow.Event{Kind: workflow.EventDramaReady})
	for _, it := range []*adk.AsyncIterator[workflow.Event]{a, b} {
		e, ok := it.Next()
		require.True(t, ok)
		assert.Equal(t, workflow.EventDramaReady, e.Kind)
	}

	cancelA()
	cancelA()
	_, ok := a.Next()
	assert.False(t, ok)
	assert.Equal(t, 1, h.Subscribers())

	h.Render(workflow.Event{Kind: workflow.EventReset})
	e, ok := b.Next()
	require.True(t, ok)
	assert.Equal(t, workflow.EventReset, e.Kind)

	h.Close()
	_, ok = b.Next()
	assert.False(t, ok)
	cancelB()

	late, _ := h.Subscribe()
	_, ok = late.Next()
	assert.False(t, ok)
	assert.Zero(t, h.Subscribers())
}
