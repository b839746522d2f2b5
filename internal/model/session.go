package model

// Session holds everything one wizard run knows. It replaces page-level
// globals: a single value scoped to one browser session, reset explicitly.
type Session struct {
	Photo     string   `json:"-"`                    // data URI, travels in every image request
	Gender    Gender   `json:"gender,omitempty"`     // detected gender
	Show      string   `json:"show,omitempty"`       // selected show
	Prompts   []string `json:"prompts,omitempty"`    // scene prompts, index-aligned with Images
	Images    []string `json:"images,omitempty"`     // generated image URLs
	VideoURL  string   `json:"video_url,omitempty"`  // finished video
	RequestID string   `json:"request_id,omitempty"` // video job being polled
}

// HasPhoto reports whether a photo has been accepted.
func (s *Session) HasPhoto() bool {
	return s.Photo != ""
}

// AddScene records one finished scene, keeping prompts and images aligned.
func (s *Session) AddScene(prompt, imageURL string) {
	s.Prompts = append(s.Prompts, prompt)
	s.Images = append(s.Images, imageURL)
}

// ClearStoryboard drops the scenes of a previous run.
func (s *Session) ClearStoryboard() {
	s.Prompts = nil
	s.Images = nil
}

// SeedImage returns the first generated image, the only one used for video.
func (s *Session) SeedImage() (string, bool) {
	if len(s.Images) == 0 {
		return "", false
	}
	return s.Images[0], true
}

// Reset empties every entity except the photo, so a new show can be tried
// without uploading again.
func (s *Session) Reset() {
	*s = Session{Photo: s.Photo}
}

// Clone returns a copy safe to hand out while a run keeps mutating s.
func (s *Session) Clone() Session {
	c := *s
	c.Prompts = append([]string(nil), s.Prompts...)
	c.Images = append([]string(nil), s.Images...)
	return c
}
