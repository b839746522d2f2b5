package wizard

import (
	"sync"

	"github.com/cloudwego/eino/adk"

	"github.com/degaulle/sorashorts/internal/workflow"
)

// Status is the part of the view that only exists as rendered events: the
// generation status line and the continue affordance.
type Status struct {
	Text          string `json:"text,omitempty"`
	Detail        string `json:"detail,omitempty"`
	ContinueBusy  bool   `json:"continue_busy"`
	ContinueLabel string `json:"continue_label"`
}

const continueLabel = "Continue"

// Hub is the renderer of one browser session. It keeps the latest status and
// fans every event out to the open event streams.
type Hub struct {
	mu     sync.Mutex
	status Status
	subs   map[int]*adk.AsyncGenerator[workflow.Event]
	nextID int
	closed bool
}

func NewHub() *Hub {
	return &Hub{
		status: Status{ContinueLabel: continueLabel},
		subs:   make(map[int]*adk.AsyncGenerator[workflow.Event]),
	}
}

func (h *Hub) Render(e workflow.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch e.Kind {
	case workflow.EventStatus:
		h.status.Text, h.status.Detail = e.Text, e.Detail
	case workflow.EventContinue:
		h.status.ContinueBusy = e.Busy
		h.status.ContinueLabel = continueLabel
		if e.Busy && e.Text != "" {
			h.status.ContinueLabel = e.Text
		}
	case workflow.EventStoryboardReset, workflow.EventReset, workflow.EventVideo,
		workflow.EventError, workflow.EventDramaReady:
		h.status.Text, h.status.Detail = "", ""
	}

	// the queue behind Send is unbounded, Send never blocks
	for _, gen := range h.subs {
		gen.Send(e)
	}
}

func (h *Hub) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Subscribe opens an event stream. Next on the iterator returns false once
// cancel was called or the hub closed.
func (h *Hub) Subscribe() (*adk.AsyncIterator[workflow.Event], func()) {
	iter, gen := adk.NewAsyncIteratorPair[workflow.Event]()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		gen.Close()
		return iter, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = gen

	return iter, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if g, ok := h.subs[id]; ok {
			delete(h.subs, id)
			g.Close()
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every open stream.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, gen := range h.subs {
		delete(h.subs, id)
		gen.Close()
	}
}

var _ workflow.Renderer = (*Hub)(nil)
