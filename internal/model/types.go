package model

import "strings"

// Screen 向导界面
type Screen string

const (
	ScreenUpload   Screen = "upload"
	ScreenSelect   Screen = "select"
	ScreenGenerate Screen = "generate"
	ScreenResult   Screen = "result"
)

// Screens lists every wizard screen in navigation order.
var Screens = []Screen{ScreenUpload, ScreenSelect, ScreenGenerate, ScreenResult}

// Valid reports whether s names a known screen.
func (s Screen) Valid() bool {
	for _, known := range Screens {
		if s == known {
			return true
		}
	}
	return false
}

// Gender is the best-effort value returned by gender detection. Values other
// than male/female are passed through untouched.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"

	// DefaultGender replaces any failed detection.
	DefaultGender = GenderMale
)

// Scene 分镜场景
type Scene struct {
	Number int    `json:"scene_number,omitempty"` // 1-based; zero when the storyboard omitted it
	Prompt string `json:"prompt"`                 // image prompt
}

// ImageRequest carries everything one scene image call needs.
type ImageRequest struct {
	Photo       string `json:"photo"`            // data URI of the user photo
	Prompt      string `json:"prompt"`           // scene prompt
	ShowName    string `json:"show_name"`        // chosen show
	SceneNumber int    `json:"scene_number"`     // 1-based scene number
	Gender      Gender `json:"gender,omitempty"` // empty when detection is disabled
}

// VideoJob is the answer to a video generation request: either a queued
// request to poll or an already finished video.
type VideoJob struct {
	RequestID string `json:"request_id,omitempty"`
	VideoURL  string `json:"video_url,omitempty"`
}

// VideoStatus is the queue status reported by the backend.
type VideoStatus string

const (
	VideoCompleted VideoStatus = "COMPLETED"
	VideoFailed    VideoStatus = "FAILED"
)

// Terminal reports whether polling should stop on this status. Every other
// value (PENDING, IN_QUEUE, IN_PROGRESS, ...) counts as pending.
func (s VideoStatus) Terminal() bool {
	return s == VideoCompleted || s == VideoFailed
}

// DownloadName builds the file name offered when saving the finished video.
func DownloadName(show string) string {
	return "SoraShorts-" + strings.Join(strings.Fields(show), "-") + ".mp4"
}
