// Package detector implements the foreground app detection loop: poll
// the OS probe each tick, run the classification cascade, pick the one
// app the user is interacting with, and accumulate its active seconds.
package detector

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fernwall/screentime/internal/domain"
)

// IdleApp is the foreground value when no candidate exists.
const IdleApp = "idle"

// DefaultProbeTimeout bounds each probe enumeration so a stalled
// platform call cannot stall the tick loop.
const DefaultProbeTimeout = 3 * time.Second

// Recorder receives one usage sample per tick with a focused app.
// The usage reporter's pending batch implements this.
type Recorder interface {
	Append(entry domain.UsageLogEntry)
}

// Config holds detector settings.
type Config struct {
	DeviceID     string
	PollInterval time.Duration
	ProbeTimeout time.Duration
}

// Detector drives the per-tick classification cascade and keeps the
// per-app running totals for the current session.
type Detector struct {
	config     Config
	probe      domain.SystemProbe
	classifier domain.AppClassifier
	recorder   Recorder
	logger     *zap.Logger

	mu         sync.Mutex
	usageToday map[string]int64     // classified app name -> accumulated seconds
	lastSeenB  map[string]time.Time // secondary candidates by app, last tick seen
	lastTick   time.Time
	current    string // foreground app as of the last tick
	curTitle   string
	curExe     string
}

// New creates a detector.
func New(config Config, probe domain.SystemProbe, classifier domain.AppClassifier, recorder Recorder, logger *zap.Logger) *Detector {
	if config.ProbeTimeout == 0 {
		config.ProbeTimeout = DefaultProbeTimeout
	}
	return &Detector{
		config:     config,
		probe:      probe,
		classifier: classifier,
		recorder:   recorder,
		logger:     logger,
		usageToday: make(map[string]int64),
		lastSeenB:  make(map[string]time.Time),
	}
}

// Run starts the polling loop. Blocks until the context is canceled.
func (d *Detector) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	d.logger.Info("foreground detector started",
		zap.Duration("poll_interval", d.config.PollInterval))

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("foreground detector stopping")
			return ctx.Err()
		case now := <-ticker.C:
			d.Tick(ctx, now)
		}
	}
}

// Tick runs one detection pass. Probe failures degrade to an idle tick;
// a failure classifying one process never aborts the remaining ones.
func (d *Detector) Tick(ctx context.Context, now time.Time) {
	probeCtx, cancel := context.WithTimeout(ctx, d.config.ProbeTimeout)
	defer cancel()

	procs, err := d.probe.ListProcesses(probeCtx)
	if err != nil {
		d.logger.Warn("process enumeration failed, skipping tick", zap.Error(err))
		d.advance(IdleApp, "", "", now)
		return
	}

	windows, err := d.probe.ListVisibleWindows(probeCtx)
	if err != nil {
		// Window data is an input to branch (A) only; the cascade still
		// works on branch (B) without it.
		d.logger.Debug("window enumeration failed", zap.Error(err))
		windows = nil
	}

	candidacies := d.classifyAll(procs, windows, now)
	app, title, exe := d.pick(candidacies)
	d.advance(app, title, exe, now)
}

// classifyAll folds every process through the cascade, returning tagged
// results. Never indexes into a map that assumes presence.
func (d *Detector) classifyAll(procs []domain.ProcessInfo, windows []domain.WindowInfo, now time.Time) []domain.Candidacy {
	// Keep the most-recently-activated window per owning PID.
	windowByPID := make(map[int32]*domain.WindowInfo, len(windows))
	for i := range windows {
		w := &windows[i]
		if prev, ok := windowByPID[w.OwnerPID]; !ok || w.ActivatedAt.After(prev.ActivatedAt) {
			windowByPID[w.OwnerPID] = w
		}
	}

	activeUser := d.probe.ActiveUsername()
	results := make([]domain.Candidacy, 0, len(procs))
	for _, proc := range procs {
		results = append(results, d.classifyOne(proc, windowByPID[proc.PID], activeUser, now))
	}
	return results
}

// classifyOne applies the cascade with strict precedence:
// (A) owns a visible window -> foreground candidate;
// (B) not blacklisted and under the active user's session -> secondary;
// (C) otherwise excluded. Partial metadata excludes for this tick.
func (d *Detector) classifyOne(proc domain.ProcessInfo, window *domain.WindowInfo, activeUser string, now time.Time) domain.Candidacy {
	if proc.Name == "" {
		return domain.Candidacy{Kind: domain.Excluded, Reason: "no name", Process: proc}
	}
	if !d.classifier.IsTrackable(proc.Name) {
		return domain.Candidacy{Kind: domain.Excluded, Reason: "blacklisted", Process: proc}
	}

	app := strings.ToLower(d.classifier.FriendlyName(proc.Name))

	if window != nil {
		return domain.Candidacy{
			Kind:    domain.CandidateForeground,
			App:     app,
			Window:  window,
			Process: proc,
		}
	}

	if proc.Username != "" && activeUser != "" && proc.Username == activeUser {
		d.lastSeenB[app] = now
		return domain.Candidacy{
			Kind:    domain.CandidateBackground,
			App:     app,
			Process: proc,
		}
	}

	return domain.Candidacy{Kind: domain.Excluded, Reason: "no window, not active user", Process: proc}
}

// pick chooses the single foreground app. (A) candidates win, ties
// broken by most-recently-activated window; otherwise the
// most-recently-seen (B) candidate; otherwise idle.
func (d *Detector) pick(candidacies []domain.Candidacy) (app, title, exe string) {
	var bestA *domain.Candidacy
	var bestB *domain.Candidacy

	for i := range candidacies {
		c := &candidacies[i]
		switch c.Kind {
		case domain.CandidateForeground:
			if bestA == nil || c.Window.ActivatedAt.After(bestA.Window.ActivatedAt) {
				bestA = c
			}
		case domain.CandidateBackground:
			if bestB == nil || d.lastSeenB[c.App].After(d.lastSeenB[bestB.App]) {
				bestB = c
			}
		}
	}

	if bestA != nil {
		return bestA.App, bestA.Window.Title, bestA.Process.ExePath
	}
	if bestB != nil {
		return bestB.App, "", bestB.Process.ExePath
	}
	return IdleApp, "", ""
}

// advance accumulates elapsed wall-clock time since the previous tick
// into the app that was foreground across that span, emits the sample,
// and records the new foreground app.
func (d *Detector) advance(app, title, exe string, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.lastTick.IsZero() && d.current != "" && d.current != IdleApp {
		elapsed := int64(now.Sub(d.lastTick) / time.Second)
		if elapsed > 0 {
			// zero-default on first touch: a never-before-seen app name
			// must not fault
			d.usageToday[d.current] += elapsed

			if d.recorder != nil {
				d.recorder.Append(domain.UsageLogEntry{
					DeviceID:        d.config.DeviceID,
					AppName:         d.current,
					WindowTitle:     d.curTitle,
					ExePath:         d.curExe,
					Timestamp:       d.lastTick,
					DurationSeconds: elapsed,
					IsFocused:       true,
				})
			}
		}
	}

	if app != d.current {
		d.logger.Debug("foreground changed",
			zap.String("from", d.current),
			zap.String("to", app))
	}
	d.current = app
	d.curTitle = title
	d.curExe = exe
	d.lastTick = now
}

// Current returns the foreground app as of the last tick.
func (d *Detector) Current() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// UsageToday returns a copy of the per-app accumulated seconds for the
// current session.
func (d *Detector) UsageToday() map[string]int64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[string]int64, len(d.usageToday))
	for app, secs := range d.usageToday {
		out[app] = secs
	}
	return out
}
