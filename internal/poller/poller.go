// Package poller waits on a queued video job with a fixed interval and a hard
// attempt ceiling.
package poller

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/degaulle/sorashorts/internal/metrics"
	"github.com/degaulle/sorashorts/internal/model"
)

const (
	DefaultInterval    = 5 * time.Second
	DefaultMaxAttempts = 120
)

var (
	ErrVideoFailed = errors.New("video generation failed")
	ErrNoVideoURL  = errors.New("video completed but no url returned")
	ErrTimedOut    = errors.New("video generation timed out")

	errPending = errors.New("video still pending")
)

// StatusChecker is the slice of the backend the poller needs.
type StatusChecker interface {
	VideoStatus(ctx context.Context, requestID string) (model.VideoStatus, error)
	VideoResult(ctx context.Context, requestID string) (string, error)
}

type Poller struct {
	checker     StatusChecker
	interval    time.Duration
	maxAttempts int
	newTimer    func() backoff.Timer
	observe     func(attempts int)
	log         *logrus.Entry
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithMaxAttempts(n int) Option {
	return func(p *Poller) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithTimer swaps the timer used between attempts. Tests pass one that fires
// immediately and records the requested delays.
func WithTimer(newTimer func() backoff.Timer) Option {
	return func(p *Poller) {
		p.newTimer = newTimer
	}
}

// WithAttemptObserver replaces the hook that receives the number of status
// checks made for each job. It defaults to the poll attempts histogram.
func WithAttemptObserver(observe func(attempts int)) Option {
	return func(p *Poller) {
		p.observe = observe
	}
}

func New(checker StatusChecker, opts ...Option) *Poller {
	p := &Poller{
		checker:     checker,
		interval:    DefaultInterval,
		maxAttempts: DefaultMaxAttempts,
		observe: func(attempts int) {
			metrics.PollAttempts.Observe(float64(attempts))
		},
		log: logrus.WithField("component", "poller"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Wait polls requestID until the job completes, fails, or the attempt budget
// runs out. onPending is called after every attempt that saw a non-terminal
// status, with the 1-based attempt number.
//
// Errors on a single status or result round trip are retried on the next
// tick. Only FAILED, a completed job without a URL, the exhausted budget and
// ctx cancellation end the wait with an error.
func (p *Poller) Wait(ctx context.Context, requestID string, onPending func(attempt int)) (string, error) {
	log := p.log.WithField("request_id", requestID)
	attempt := 0
	var videoURL string

	operation := func() error {
		attempt++
		status, err := p.checker.VideoStatus(ctx, requestID)
		if err != nil {
			log.WithError(err).WithField("attempt", attempt).Warn("status check failed, retrying")
			return err
		}
		if !status.Terminal() {
			log.WithFields(logrus.Fields{"attempt": attempt, "status": status}).Debug("video pending")
			if onPending != nil {
				onPending(attempt)
			}
			return errPending
		}
		if status == model.VideoFailed {
			return backoff.Permanent(ErrVideoFailed)
		}
		u, err := p.checker.VideoResult(ctx, requestID)
		if err != nil {
			log.WithError(err).WithField("attempt", attempt).Warn("result fetch failed, retrying")
			return err
		}
		if u == "" {
			return backoff.Permanent(ErrNoVideoURL)
		}
		videoURL = u
		return nil
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(p.interval)
	b = backoff.WithMaxRetries(b, uint64(p.maxAttempts-1))
	b = backoff.WithContext(b, ctx)

	var timer backoff.Timer
	if p.newTimer != nil {
		timer = p.newTimer()
	}

	err := backoff.RetryNotifyWithTimer(operation, b, nil, timer)
	if p.observe != nil {
		p.observe(attempt)
	}
	switch {
	case err == nil:
		log.WithField("attempts", attempt).Info("video ready")
		return videoURL, nil
	case errors.Is(err, ErrVideoFailed), errors.Is(err, ErrNoVideoURL):
		return "", err
	case ctx.Err() != nil:
		return "", ctx.Err()
	default:
		log.WithField("attempts", attempt).Warn("video polling budget exhausted")
		return "", ErrTimedOut
	}
}
