package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lazypower/seedsoil/internal/llm"
	"github.com/lazypower/seedsoil/internal/store"
)

var (
	// ErrPulseInProgress is returned when a pulse is requested while one runs.
	ErrPulseInProgress = errors.New("pulse already in progress")
	// ErrNoSummarizer is returned when no LLM provider is configured.
	ErrNoSummarizer = errors.New("no summarizer configured: set an LLM API key")
)

// Puller fetches the remote snapshot. A nil document means the remote is
// empty or absent.
type Puller interface {
	Pull(ctx context.Context) (*store.Document, error)
}

// Engine is the session controller. It owns the garden, the pulse guard and
// the event hub; every outer surface goes through it.
type Engine struct {
	DB          *store.DB
	Garden      *Garden
	Hub         *Hub
	Summarizer  Summarizer
	Synthesizer Synthesizer
	Puller      Puller

	// MaxRawChars bounds the text sent for distillation. Zero means 30,000.
	MaxRawChars int

	// Now is the clock; tests replace it.
	Now func() time.Time

	pulsing  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates an Engine over db. client may be nil, in which case pulses
// fail with ErrNoSummarizer.
func New(db *store.DB, client llm.Client) (*Engine, error) {
	hub := NewHub()
	garden, err := NewGarden(db, hub)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		DB:     db,
		Garden: garden,
		Hub:    hub,
		Now:    time.Now,
		stopCh: make(chan struct{}),
	}
	if client != nil {
		d := NewDistiller(client)
		e.Summarizer = d
		e.Synthesizer = d
	}
	return e, nil
}

// SetPuller configures the remote snapshot source used by StartSession.
func (e *Engine) SetPuller(p Puller) {
	e.Puller = p
}

// Subscribe returns a channel of engine events.
func (e *Engine) Subscribe(buffer int) (<-chan Event, func()) {
	return e.Hub.Subscribe(buffer)
}

func (e *Engine) notify(format string, args ...any) {
	e.Hub.Publish(Event{Kind: EventNotify, Message: fmt.Sprintf(format, args...)})
}

// SessionReport describes what StartSession did.
type SessionReport struct {
	Pulled  bool  `json:"pulled"`
	PullErr error `json:"-"`
	Decayed int   `json:"decayed"`
}

// StartSession pulls the remote snapshot when a puller is configured, then
// applies decay once. A failed pull is reported and the session continues
// on local data.
func (e *Engine) StartSession(ctx context.Context) (SessionReport, error) {
	var rep SessionReport

	if e.Puller != nil {
		doc, err := e.Puller.Pull(ctx)
		switch {
		case err != nil:
			rep.PullErr = err
			log.Printf("session: pull failed: %v", err)
			e.notify("sync pull failed: %v", err)
		case doc != nil:
			if err := e.Garden.Replace(doc.Collection(), false); err != nil {
				return rep, fmt.Errorf("apply remote snapshot: %w", err)
			}
			rep.Pulled = true
		}
	}

	n, err := e.Garden.Decay(e.Now())
	if err != nil {
		return rep, err
	}
	rep.Decayed = n
	if n > 0 {
		log.Printf("decay: updated %d items", n)
	}
	return rep, nil
}

// Capture plants new text as an active, undistilled item.
func (e *Engine) Capture(text string) (store.Item, error) {
	it, err := NewItem(text, e.Now())
	if err != nil {
		return store.Item{}, err
	}
	if err := e.Garden.Plant(it); err != nil {
		return store.Item{}, fmt.Errorf("capture: %w", err)
	}
	return it, nil
}

// Pulsing reports whether a pulse is running.
func (e *Engine) Pulsing() bool {
	return e.pulsing.Load()
}

// RunPulse distills every undistilled item and refreshes the gaps. Only one
// pulse runs at a time; a concurrent call gets ErrPulseInProgress. Item and
// synthesis failures are reported, not returned.
func (e *Engine) RunPulse(ctx context.Context) (*PulseReport, error) {
	if e.Summarizer == nil {
		return nil, ErrNoSummarizer
	}
	if !e.pulsing.CompareAndSwap(false, true) {
		return nil, ErrPulseInProgress
	}
	defer e.pulsing.Store(false)

	started := e.Now()
	e.Hub.Publish(Event{Kind: EventPulseStarted})

	q := &Queue{
		Store:       e.Garden,
		Summarizer:  e.Summarizer,
		Synthesizer: e.Synthesizer,
		MaxRawChars: e.MaxRawChars,
	}
	report := q.Run(ctx)

	for _, r := range report.Results {
		if r.Err != nil {
			e.notify("could not distill %s: %v", r.ItemID, r.Err)
		}
	}
	if report.SynthesisErr != nil {
		e.notify("synthesis failed: %v", report.SynthesisErr)
	}

	run := &store.PulseRun{
		StartedAt:   started.UnixMilli(),
		FinishedAt:  e.Now().UnixMilli(),
		Queued:      report.Queued,
		Distilled:   report.Distilled,
		Failed:      report.Failed,
		Synthesized: report.Synthesized,
	}
	if report.NoNewSeeds {
		run.Note = "no new seeds"
	}
	if err := e.DB.RecordPulse(run); err != nil {
		log.Printf("pulse: %v", err)
	}

	e.Hub.Publish(Event{
		Kind:    EventPulseFinished,
		Message: fmt.Sprintf("distilled %d of %d, %d failed", report.Distilled, report.Queued, report.Failed),
	})
	return &report, nil
}

// MarkReviewed records a review outcome. Unknown or buried items are a no-op.
func (e *Engine) MarkReviewed(id string, success bool) (bool, error) {
	now := e.Now()
	kind := EventReviewed
	if !success {
		kind = EventArchived
	}
	return e.Garden.Mutate(id, kind, func(it *store.Item) bool {
		return reviewItem(it, success, now)
	})
}

// Archive buries an active item.
func (e *Engine) Archive(id string) (bool, error) {
	return e.Garden.Mutate(id, EventArchived, buryItem)
}

// Resurrect returns a buried item to active at half strength.
func (e *Engine) Resurrect(id string) (bool, error) {
	now := e.Now()
	return e.Garden.Mutate(id, EventResurrected, func(it *store.Item) bool {
		return resurrectItem(it, now)
	})
}

// ClearAll deletes every item and the gaps.
func (e *Engine) ClearAll() error {
	return e.Garden.Clear()
}

// Items returns every item, newest first.
func (e *Engine) Items() []store.Item {
	return e.Garden.Snapshot().Items
}

// Get returns one item by id.
func (e *Engine) Get(id string) (store.Item, bool) {
	return e.Garden.Get(id)
}

// Review returns the seeds to present for review.
func (e *Engine) Review() []store.Item {
	return SelectForReview(e.Garden.Snapshot().Items)
}

// Buried returns the buried items.
func (e *Engine) Buried() []store.Item {
	return BuriedItems(e.Garden.Snapshot().Items)
}

// Gaps returns the last synthesis result.
func (e *Engine) Gaps() []string {
	return e.Garden.Snapshot().Gaps
}

// Document snapshots the collection in its portable form.
func (e *Engine) Document() store.Document {
	return store.NewDocument(e.Garden.Snapshot())
}

// Import replaces the local collection with doc. Unlike a pull it counts as
// a local change.
func (e *Engine) Import(doc *store.Document) error {
	if doc == nil {
		return fmt.Errorf("import: nil document")
	}
	if err := e.Garden.Replace(doc.Collection(), true); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	return nil
}

// StartDecayTimer re-applies decay daily for long-running processes.
func (e *Engine) StartDecayTimer() {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if n, err := e.Garden.Decay(e.Now()); err != nil {
					log.Printf("decay error: %v", err)
				} else if n > 0 {
					log.Printf("decay: updated %d items", n)
				}
			case <-e.stopCh:
				return
			}
		}
	}()
}

// Stop shuts down the engine's background goroutines and closes subscribers.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
		e.Hub.Close()
	})
}
