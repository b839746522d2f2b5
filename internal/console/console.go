package console

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"

	"github.com/degaulle/sorashorts/internal/workflow"
)

// Renderer writes workflow events to the log. It stands in for the browser
// in headless runs.
type Renderer struct {
	Log *logrus.Entry
}

func (r Renderer) Render(e workflow.Event) {
	log := r.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	switch e.Kind {
	case workflow.EventStatus:
		log.WithField("detail", e.Detail).Info(e.Text)
	case workflow.EventScene:
		log.WithFields(logrus.Fields{
			"scene": e.Scene.Number,
			"image": e.Scene.ImageURL,
		}).Info("scene ready")
	case workflow.EventVideo:
		log.WithField("video_url", e.VideoURL).Info("drama ready")
	case workflow.EventError:
		log.Error(e.Message)
	default:
		log.WithField("event", e.Kind).Debug(e.Screen)
	}
}

type Options struct {
	PhotoPath string
	Show      string
	// OutPath is where the video is written. Empty means the download name in
	// the working directory; a directory gets the download name appended.
	OutPath string
}

// Result is what a headless run produced. Path is empty when the video could
// not be downloaded and only VideoURL is known.
type Result struct {
	Path     string
	VideoURL string
}

// Run drives one complete wizard pass: photo, continue, show, drama, save.
func Run(ctx context.Context, orch *workflow.Orchestrator, opts Options) (Result, error) {
	if strings.TrimSpace(opts.Show) == "" {
		return Result{}, errors.New("show required")
	}
	data, err := os.ReadFile(opts.PhotoPath)
	if err != nil {
		return Result{}, fmt.Errorf("read photo: %w", err)
	}
	mimeType, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
	if !orch.AcceptPhoto(mimeType, data) {
		return Result{}, fmt.Errorf("%s is not an image (%s)", opts.PhotoPath, mimeType)
	}
	if err := orch.Continue(ctx); err != nil {
		return Result{}, err
	}
	if err := orch.SelectShow(ctx, opts.Show); err != nil {
		return Result{}, err
	}
	if err := orch.GenerateDrama(ctx); err != nil {
		return Result{}, err
	}

	saved, err := orch.Save(ctx)
	if err != nil {
		return Result{}, err
	}
	res := Result{VideoURL: saved.VideoURL}
	if saved.Fallback {
		logrus.WithField("video_url", saved.VideoURL).Warn("download failed, open the video url instead")
		return res, nil
	}

	res.Path = outputPath(opts.OutPath, saved.FileName)
	if err := os.WriteFile(res.Path, saved.Data, 0o644); err != nil {
		return Result{}, fmt.Errorf("write video: %w", err)
	}
	return res, nil
}

func outputPath(out, name string) string {
	if out == "" {
		return name
	}
	if fi, err := os.Stat(out); err == nil && fi.IsDir() {
		return filepath.Join(out, name)
	}
	return out
}
