package workflow

import "github.com/degaulle/sorashorts/internal/model"

type EventKind string

const (
	EventScreen          EventKind = "screen"
	EventPhoto           EventKind = "photo"
	EventContinue        EventKind = "continue"
	EventStatus          EventKind = "status"
	EventStoryboardReset EventKind = "storyboard_reset"
	EventScene           EventKind = "scene"
	EventDramaReady      EventKind = "drama_ready"
	EventVideo           EventKind = "video"
	EventError           EventKind = "error"
	EventErrorDismissed  EventKind = "error_dismissed"
	EventReset           EventKind = "reset"
)

// SceneView is one filled storyboard slot.
type SceneView struct {
	Number   int    `json:"scene_number"`
	Prompt   string `json:"prompt"`
	ImageURL string `json:"image_url"`
}

// Event is what the orchestrator tells the rendering layer. Only the fields
// relevant to Kind are set.
type Event struct {
	Kind     EventKind    `json:"kind"`
	Screen   model.Screen `json:"screen,omitempty"`
	Text     string       `json:"text,omitempty"`
	Detail   string       `json:"detail,omitempty"`
	Busy     bool         `json:"busy,omitempty"`
	Scene    *SceneView   `json:"scene,omitempty"`
	VideoURL string       `json:"video_url,omitempty"`
	Message  string       `json:"message,omitempty"`
}

// Renderer reacts to workflow events. Render is never called with the
// orchestrator's lock held, so implementations may call back into it.
type Renderer interface {
	Render(Event)
}

type RendererFunc func(Event)

func (f RendererFunc) Render(e Event) {
	f(e)
}

type nopRenderer struct{}

func (nopRenderer) Render(Event) {}
