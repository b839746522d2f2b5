package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/degaulle/sorashorts/internal/metrics"
	"github.com/degaulle/sorashorts/internal/model"
	"github.com/degaulle/sorashorts/internal/poller"
)

// Backend is the generation API as seen by one workflow run.
type Backend interface {
	DetectGender(ctx context.Context, photo string) (model.Gender, error)
	GenerateStoryboard(ctx context.Context, show string, gender model.Gender) ([]model.Scene, error)
	GenerateImage(ctx context.Context, req model.ImageRequest) (string, error)
	GenerateScenePrompt(ctx context.Context, show string) (string, error)
	GenerateVideo(ctx context.Context, imageURL, prompt string) (model.VideoJob, error)
}

// VideoWaiter blocks until a queued video job has a URL.
type VideoWaiter interface {
	Wait(ctx context.Context, requestID string, onPending func(attempt int)) (string, error)
}

// Fetcher downloads the finished video for the save action.
type Fetcher interface {
	Fetch(ctx context.Context, videoURL string) ([]byte, error)
}

type Config struct {
	DetectGender bool
	Waiter       VideoWaiter
	Fetcher      Fetcher
	Renderer     Renderer
	Log          *logrus.Entry
}

// Orchestrator executes the machine's actions against the backend and
// reports every transition to a Renderer. One orchestrator serves one
// session; its methods may be called from different goroutines but only one
// run is in flight at a time.
type Orchestrator struct {
	mu       sync.Mutex
	machine  *Machine
	backend  Backend
	waiter   VideoWaiter
	fetcher  Fetcher
	renderer Renderer
	log      *logrus.Entry
}

func New(b Backend, cfg Config) *Orchestrator {
	o := &Orchestrator{
		machine:  NewMachine(cfg.DetectGender),
		backend:  b,
		waiter:   cfg.Waiter,
		fetcher:  cfg.Fetcher,
		renderer: cfg.Renderer,
		log:      cfg.Log,
	}
	if o.renderer == nil {
		o.renderer = nopRenderer{}
	}
	if o.log == nil {
		o.log = logrus.NewEntry(logrus.StandardLogger())
	}
	return o
}

// Snapshot is a consistent read of the session for the rendering layer.
type Snapshot struct {
	Screen     model.Screen  `json:"screen"`
	Stage      Stage         `json:"stage"`
	Busy       bool          `json:"busy"`
	HasPhoto   bool          `json:"has_photo"`
	Session    model.Session `json:"session"`
	Scenes     []model.Scene `json:"scenes,omitempty"`
	DramaReady bool          `json:"drama_ready"`
	Error      string        `json:"error,omitempty"`
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := o.machine.Session()
	return Snapshot{
		Screen:     o.machine.Screen(),
		Stage:      o.machine.Stage(),
		Busy:       o.machine.Stage().Busy(),
		HasPhoto:   s.HasPhoto(),
		Session:    s,
		Scenes:     o.machine.Scenes(),
		DramaReady: o.machine.Stage() == StageDramaReady,
		Error:      o.machine.ErrorMessage(),
	}
}

// Scene returns the filled storyboard slot with the given scene number.
func (o *Orchestrator) Scene(number int) (SceneView, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := o.machine.Session()
	for i, sc := range o.machine.Scenes() {
		if sc.Number == number && i < len(s.Images) {
			return SceneView{Number: sc.Number, Prompt: s.Prompts[i], ImageURL: s.Images[i]}, true
		}
	}
	return SceneView{}, false
}

// AcceptPhoto takes a picked, captured or dropped file. Files that are not
// images are ignored without an error.
func (o *Orchestrator) AcceptPhoto(mimeType string, data []byte) bool {
	o.mu.Lock()
	ok := o.machine.AcceptPhoto(mimeType, data)
	o.mu.Unlock()
	if !ok {
		o.log.WithField("mime", mimeType).Debug("ignored non-image file")
		return false
	}
	o.renderer.Render(Event{Kind: EventPhoto})
	return true
}

func (o *Orchestrator) Retake() error {
	o.mu.Lock()
	err := o.machine.Retake()
	o.mu.Unlock()
	if err != nil {
		return err
	}
	o.renderer.Render(Event{Kind: EventPhoto})
	return nil
}

// Continue runs gender detection, when enabled, and moves to show
// selection. The continue affordance is busy only for the detection call.
func (o *Orchestrator) Continue(ctx context.Context) error {
	o.mu.Lock()
	act, err := o.machine.Continue()
	o.mu.Unlock()
	if err != nil {
		return err
	}

	if act.Kind == ActDetectGender {
		o.renderer.Render(Event{Kind: EventContinue, Busy: true, Text: "Analyzing..."})
		start := time.Now()
		g, err := o.backend.DetectGender(ctx, act.Photo)
		metrics.StageDuration.WithLabelValues("detect_gender").Observe(time.Since(start).Seconds())
		if err != nil || g == "" {
			metrics.GenderFallbacks.Inc()
			o.log.WithError(err).Warn("gender detection failed, using default")
		}
		o.mu.Lock()
		o.machine.GenderDetected(g, err)
		g = o.machine.session.Gender
		o.mu.Unlock()
		o.log.WithField("gender", g).Info("gender detected")
		o.renderer.Render(Event{Kind: EventContinue, Busy: false})
	}

	o.renderScreen()
	return nil
}

// Run is the blocking remainder of a run whose input was already accepted.
type Run func(ctx context.Context) error

// BeginShow validates a show selection and returns the run that generates the
// storyboard and every scene image. A blank show returns a nil Run.
func (o *Orchestrator) BeginShow(show string) (Run, error) {
	o.mu.Lock()
	act, err := o.machine.SelectShow(show)
	o.mu.Unlock()
	if err != nil || act.Kind == ActNone {
		return nil, err
	}
	o.renderScreen()
	o.renderer.Render(Event{Kind: EventStoryboardReset})
	return func(ctx context.Context) error {
		return o.drive(ctx, "storyboard", act)
	}, nil
}

// SelectShow generates the storyboard and every scene image for show. It
// blocks until the last image arrived or a stage failed; failures are also
// rendered as an error event.
func (o *Orchestrator) SelectShow(ctx context.Context, show string) error {
	run, err := o.BeginShow(show)
	if err != nil || run == nil {
		return err
	}
	return run(ctx)
}

// BeginDrama validates that the storyboard is complete and returns the run
// that writes the video prompt, submits the first scene image for video
// generation and waits for the result.
func (o *Orchestrator) BeginDrama() (Run, error) {
	o.mu.Lock()
	act, err := o.machine.RequestDrama()
	o.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		return o.drive(ctx, "drama", act)
	}, nil
}

func (o *Orchestrator) GenerateDrama(ctx context.Context) error {
	run, err := o.BeginDrama()
	if err != nil {
		return err
	}
	return run(ctx)
}

// DismissError closes an open error modal. A dismiss without one is ignored.
func (o *Orchestrator) DismissError() bool {
	o.mu.Lock()
	dismissed := o.machine.DismissError()
	o.mu.Unlock()
	if !dismissed {
		return false
	}
	o.renderer.Render(Event{Kind: EventErrorDismissed})
	o.renderScreen()
	return true
}

func (o *Orchestrator) TryAgain() error {
	o.mu.Lock()
	err := o.machine.TryAgain()
	o.mu.Unlock()
	if err != nil {
		return err
	}
	o.renderer.Render(Event{Kind: EventReset})
	o.renderScreen()
	return nil
}

// SaveResult is what the save action produced. When the bytes could not be
// fetched Fallback is set and the caller should open VideoURL directly.
type SaveResult struct {
	FileName string
	VideoURL string
	Data     []byte
	Fallback bool
}

func (o *Orchestrator) Save(ctx context.Context) (SaveResult, error) {
	o.mu.Lock()
	s := o.machine.Session()
	o.mu.Unlock()
	if s.VideoURL == "" {
		return SaveResult{}, ErrNoVideo
	}
	res := SaveResult{FileName: model.DownloadName(s.Show), VideoURL: s.VideoURL}
	if o.fetcher == nil {
		res.Fallback = true
		return res, nil
	}
	data, err := o.fetcher.Fetch(ctx, s.VideoURL)
	if err != nil {
		o.log.WithError(err).Warn("video download failed, falling back to url")
		res.Fallback = true
		return res, nil
	}
	res.Data = data
	return res, nil
}

// drive executes actions until the phase ends: storyboard ready, video
// ready, or a failure.
func (o *Orchestrator) drive(ctx context.Context, phase string, act Action) error {
	log := o.log.WithFields(logrus.Fields{"run_id": uuid.NewString(), "phase": phase})
	metrics.RunsStarted.WithLabelValues(phase).Inc()
	stage := string(act.Kind)

	for {
		switch act.Kind {
		case ActRequestStoryboard:
			stage = "storyboard"
			log = log.WithField("show", act.Show)
			o.status("Writing your storyboard...", "AI is crafting a 5-scene plot for "+act.Show)
			start := time.Now()
			scenes, err := o.backend.GenerateStoryboard(ctx, act.Show, act.Gender)
			o.observe(stage, start)
			log.WithField("scenes", len(scenes)).Info("storyboard received")
			act = o.step(func(m *Machine) Action { return m.StoryboardLoaded(scenes, err) })

		case ActRequestImage:
			stage = "image"
			req := act.Image
			o.status(fmt.Sprintf("Generating scene %d of %d...", req.SceneNumber, act.Total), req.Prompt)
			start := time.Now()
			imageURL, err := o.backend.GenerateImage(ctx, req)
			o.observe(stage, start)
			next := o.step(func(m *Machine) Action { return m.ImageLoaded(imageURL, err) })
			if next.Kind != ActShowError {
				log.WithField("scene", req.SceneNumber).Info("scene image ready")
				o.renderer.Render(Event{Kind: EventScene, Scene: &SceneView{
					Number:   req.SceneNumber,
					Prompt:   req.Prompt,
					ImageURL: imageURL,
				}})
			}
			act = next

		case ActAwaitDrama:
			metrics.RunsSucceeded.WithLabelValues(phase).Inc()
			o.renderer.Render(Event{Kind: EventDramaReady})
			return nil

		case ActRequestScenePrompt:
			stage = "scene_prompt"
			o.status("Generating drama...", "Writing your scene with AI")
			start := time.Now()
			prompt, err := o.backend.GenerateScenePrompt(ctx, act.Show)
			o.observe(stage, start)
			act = o.step(func(m *Machine) Action { return m.ScenePromptLoaded(prompt, err) })

		case ActRequestVideo:
			stage = "video"
			o.status("Generating drama...", "Creating your short drama video")
			start := time.Now()
			job, err := o.backend.GenerateVideo(ctx, act.SeedImage, act.Prompt)
			o.observe(stage, start)
			act = o.step(func(m *Machine) Action { return m.VideoSubmitted(job, err) })

		case ActPollVideo:
			stage = "poll"
			log = log.WithField("request_id", act.RequestID)
			log.Info("video queued")
			o.status("Generating drama...", "This may take a minute or two...")
			if o.waiter == nil {
				act = o.step(func(m *Machine) Action { return m.VideoPolled("", errNoWaiter) })
				continue
			}
			videoURL, err := o.waiter.Wait(ctx, act.RequestID, func(attempt int) {
				dots := strings.Repeat(".", attempt%3+1)
				o.status("Generating drama...", "Rendering your drama"+dots)
			})
			act = o.step(func(m *Machine) Action { return m.VideoPolled(videoURL, err) })

		case ActShowResult:
			metrics.RunsSucceeded.WithLabelValues(phase).Inc()
			log.WithField("video_url", act.VideoURL).Info("video ready")
			o.renderer.Render(Event{Kind: EventVideo, VideoURL: act.VideoURL})
			o.renderScreen()
			return nil

		case ActShowError:
			metrics.StageFailures.WithLabelValues(stage).Inc()
			log.WithError(act.Err).WithField("stage", stage).Error("generation failed")
			sentry.CaptureException(act.Err)
			o.renderer.Render(Event{Kind: EventError, Message: Message(act.Err)})
			return act.Err

		default:
			return nil
		}
	}
}

func (o *Orchestrator) step(f func(m *Machine) Action) Action {
	o.mu.Lock()
	defer o.mu.Unlock()
	return f(o.machine)
}

func (o *Orchestrator) status(text, detail string) {
	o.renderer.Render(Event{Kind: EventStatus, Text: text, Detail: detail})
}

func (o *Orchestrator) renderScreen() {
	o.mu.Lock()
	screen := o.machine.Screen()
	o.mu.Unlock()
	o.renderer.Render(Event{Kind: EventScreen, Screen: screen})
}

func (o *Orchestrator) observe(stage string, start time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

var _ VideoWaiter = (*poller.Poller)(nil)
