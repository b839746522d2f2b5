package workflow

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/degaulle/sorashorts/internal/backend"
	"github.com/degaulle/sorashorts/internal/model"
)

// GenericErrorMessage is shown when a failure carries no message of its own.
const GenericErrorMessage = "Something went wrong during generation"

var (
	ErrBusy        = errors.New("a generation run is already in progress")
	ErrNotReady    = errors.New("storyboard is not complete")
	ErrNoPhoto     = errors.New("no photo uploaded")
	ErrNoVideo     = errors.New("no video generated yet")
	ErrNoScenes    = errors.New("no scenes returned from storyboard generation")
	ErrNoRequestID = errors.New("no request ID returned from video generation")

	errOutOfOrder = errors.New("stage result arrived out of order")
	errNoWaiter   = errors.New("video polling is not configured")
)

// Stage is the position of the current run inside the pipeline.
type Stage string

const (
	StageIdle        Stage = "idle"
	StageDetecting   Stage = "detecting_gender"
	StageStoryboard  Stage = "storyboard"
	StageImages      Stage = "images"
	StageDramaReady  Stage = "drama_ready"
	StageScenePrompt Stage = "scene_prompt"
	StageVideo       Stage = "video"
	StagePolling     Stage = "polling"
	StageDone        Stage = "done"
	StageFailed      Stage = "failed"
)

// Busy reports whether a backend call is outstanding in this stage.
func (s Stage) Busy() bool {
	switch s {
	case StageDetecting, StageStoryboard, StageImages, StageScenePrompt, StageVideo, StagePolling:
		return true
	default:
		return false
	}
}

type ActionKind string

const (
	ActNone               ActionKind = "none"
	ActDetectGender       ActionKind = "detect_gender"
	ActRequestStoryboard  ActionKind = "request_storyboard"
	ActRequestImage       ActionKind = "request_image"
	ActAwaitDrama         ActionKind = "await_drama"
	ActRequestScenePrompt ActionKind = "request_scene_prompt"
	ActRequestVideo       ActionKind = "request_video"
	ActPollVideo          ActionKind = "poll_video"
	ActShowResult         ActionKind = "show_result"
	ActShowError          ActionKind = "show_error"
)

// Action is the machine's answer to an input: what the driver must do next.
type Action struct {
	Kind ActionKind

	Photo  string       // ActDetectGender
	Show   string       // ActRequestStoryboard, ActRequestScenePrompt
	Gender model.Gender // ActRequestStoryboard

	Image model.ImageRequest // ActRequestImage
	Index int                // ActRequestImage, 0-based
	Total int                // ActRequestImage

	SeedImage string // ActRequestVideo
	Prompt    string // ActRequestVideo

	RequestID string // ActPollVideo
	VideoURL  string // ActShowResult
	Err       error  // ActShowError
}

// Machine is the wizard state machine. It performs no I/O: user inputs and
// stage results go in, the next Action comes out. It is not safe for
// concurrent use.
type Machine struct {
	screens      Screens
	session      model.Session
	detectGender bool
	stage        Stage
	scenes       []model.Scene
	errMsg       string
}

// NewMachine builds a machine on the upload screen. detectGender enables the
// gender detection call on continue.
func NewMachine(detectGender bool) *Machine {
	return &Machine{
		screens:      NewScreens(),
		detectGender: detectGender,
		stage:        StageIdle,
	}
}

func (m *Machine) Screen() model.Screen {
	return m.screens.Active()
}

func (m *Machine) Stage() Stage {
	return m.stage
}

// Session returns a copy of the session values.
func (m *Machine) Session() model.Session {
	return m.session.Clone()
}

// Scenes returns the storyboard of the current run with scene numbers filled.
func (m *Machine) Scenes() []model.Scene {
	return append([]model.Scene(nil), m.scenes...)
}

// ErrorMessage is the text of the open error modal, if any.
func (m *Machine) ErrorMessage() string {
	return m.errMsg
}

// AcceptPhoto stores the photo as a data URI. Non-image MIME types are
// ignored and false is returned.
func (m *Machine) AcceptPhoto(mimeType string, data []byte) bool {
	if !strings.HasPrefix(mimeType, "image/") || m.stage.Busy() {
		return false
	}
	m.session.Photo = "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
	return true
}

func (m *Machine) Retake() error {
	if m.stage.Busy() {
		return ErrBusy
	}
	m.session.Photo = ""
	return nil
}

// Continue leaves the upload screen. Without a photo it does nothing.
func (m *Machine) Continue() (Action, error) {
	if m.stage.Busy() {
		return Action{}, ErrBusy
	}
	if !m.session.HasPhoto() {
		return Action{Kind: ActNone}, nil
	}
	if !m.detectGender {
		m.show(model.ScreenSelect)
		return Action{Kind: ActNone}, nil
	}
	m.stage = StageDetecting
	return Action{Kind: ActDetectGender, Photo: m.session.Photo}, nil
}

// GenderDetected records the detection result. Any failure, including an
// empty answer, falls back to the default.
func (m *Machine) GenderDetected(g model.Gender, err error) Action {
	if m.stage != StageDetecting {
		return m.fail(errOutOfOrder)
	}
	if err != nil || g == "" {
		g = model.DefaultGender
	}
	m.session.Gender = g
	m.stage = StageIdle
	m.show(model.ScreenSelect)
	return Action{Kind: ActNone}
}

// SelectShow starts a storyboard run for a preset or custom show. Blank
// input is ignored.
func (m *Machine) SelectShow(show string) (Action, error) {
	if m.stage.Busy() {
		return Action{}, ErrBusy
	}
	show = strings.TrimSpace(show)
	if show == "" {
		return Action{Kind: ActNone}, nil
	}
	if !m.session.HasPhoto() {
		return Action{}, ErrNoPhoto
	}
	m.session.Show = show
	m.session.ClearStoryboard()
	m.scenes = nil
	m.errMsg = ""
	m.stage = StageStoryboard
	m.show(model.ScreenGenerate)
	return Action{Kind: ActRequestStoryboard, Show: show, Gender: m.session.Gender}, nil
}

func (m *Machine) StoryboardLoaded(scenes []model.Scene, err error) Action {
	if m.stage != StageStoryboard {
		return m.fail(errOutOfOrder)
	}
	if err != nil {
		return m.fail(err)
	}
	if len(scenes) == 0 {
		return m.fail(ErrNoScenes)
	}
	m.scenes = make([]model.Scene, len(scenes))
	for i, s := range scenes {
		if s.Number == 0 {
			s.Number = i + 1
		}
		m.scenes[i] = s
	}
	m.stage = StageImages
	return m.nextImage()
}

// ImageLoaded records the image of the scene requested last and moves on to
// the next scene, or to the drama step after the last one.
func (m *Machine) ImageLoaded(imageURL string, err error) Action {
	if m.stage != StageImages || len(m.session.Images) >= len(m.scenes) {
		return m.fail(errOutOfOrder)
	}
	scene := m.scenes[len(m.session.Images)]
	if errors.Is(err, backend.ErrNoImageURL) || (err == nil && imageURL == "") {
		return m.fail(fmt.Errorf("no image returned for scene %d", scene.Number))
	}
	if err != nil {
		return m.fail(err)
	}
	m.session.AddScene(scene.Prompt, imageURL)
	return m.nextImage()
}

func (m *Machine) nextImage() Action {
	i := len(m.session.Images)
	if i >= len(m.scenes) {
		m.stage = StageDramaReady
		return Action{Kind: ActAwaitDrama}
	}
	scene := m.scenes[i]
	return Action{
		Kind:  ActRequestImage,
		Index: i,
		Total: len(m.scenes),
		Image: model.ImageRequest{
			Photo:       m.session.Photo,
			Prompt:      scene.Prompt,
			ShowName:    m.session.Show,
			SceneNumber: scene.Number,
			Gender:      m.session.Gender,
		},
	}
}

// RequestDrama starts the video phase once every scene has an image.
func (m *Machine) RequestDrama() (Action, error) {
	if m.stage.Busy() {
		return Action{}, ErrBusy
	}
	if m.stage != StageDramaReady {
		return Action{}, ErrNotReady
	}
	m.stage = StageScenePrompt
	return Action{Kind: ActRequestScenePrompt, Show: m.session.Show}, nil
}

func (m *Machine) ScenePromptLoaded(prompt string, err error) Action {
	if m.stage != StageScenePrompt {
		return m.fail(errOutOfOrder)
	}
	if err != nil {
		return m.fail(err)
	}
	seed, ok := m.session.SeedImage()
	if !ok {
		return m.fail(ErrNotReady)
	}
	m.stage = StageVideo
	return Action{Kind: ActRequestVideo, SeedImage: seed, Prompt: prompt}
}

func (m *Machine) VideoSubmitted(job model.VideoJob, err error) Action {
	if m.stage != StageVideo {
		return m.fail(errOutOfOrder)
	}
	if err != nil {
		return m.fail(err)
	}
	if job.RequestID != "" {
		m.session.RequestID = job.RequestID
		m.stage = StagePolling
		return Action{Kind: ActPollVideo, RequestID: job.RequestID}
	}
	if job.VideoURL != "" {
		return m.finish(job.VideoURL)
	}
	return m.fail(ErrNoRequestID)
}

func (m *Machine) VideoPolled(videoURL string, err error) Action {
	if m.stage != StagePolling {
		return m.fail(errOutOfOrder)
	}
	m.session.RequestID = ""
	if err != nil {
		return m.fail(err)
	}
	return m.finish(videoURL)
}

// DismissError closes the error modal and always lands on show selection.
// Session values are left as they are. It reports false and changes nothing
// when no modal is open.
func (m *Machine) DismissError() bool {
	if m.stage != StageFailed {
		return false
	}
	m.errMsg = ""
	m.stage = StageIdle
	m.show(model.ScreenSelect)
	return true
}

// TryAgain clears everything but the photo and returns to show selection.
func (m *Machine) TryAgain() error {
	if m.stage.Busy() {
		return ErrBusy
	}
	m.session.Reset()
	m.scenes = nil
	m.errMsg = ""
	m.stage = StageIdle
	m.show(model.ScreenSelect)
	return nil
}

func (m *Machine) finish(videoURL string) Action {
	m.session.VideoURL = videoURL
	m.stage = StageDone
	m.show(model.ScreenResult)
	return Action{Kind: ActShowResult, VideoURL: videoURL}
}

func (m *Machine) fail(err error) Action {
	m.stage = StageFailed
	m.errMsg = Message(err)
	return Action{Kind: ActShowError, Err: err}
}

func (m *Machine) show(name model.Screen) {
	// names used here are constants, Show cannot fail
	_ = m.screens.Show(name)
}

// Message is the modal text for err. Text sent by the backend is shown as
// is; messages of our own get a capital first letter.
func Message(err error) string {
	if err == nil || err.Error() == "" {
		return GenericErrorMessage
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.FromBody {
		return apiErr.Message
	}
	msg := err.Error()
	r, size := utf8.DecodeRuneInString(msg)
	return string(unicode.ToUpper(r)) + msg[size:]
}
