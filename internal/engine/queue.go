package engine

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/lazypower/seedsoil/internal/store"
)

// ErrorKind classifies a pulse failure.
type ErrorKind string

const (
	KindTransient          ErrorKind = "transient"
	KindMalformedSummary   ErrorKind = "malformed_summary"
	KindMalformedSynthesis ErrorKind = "malformed_synthesis"
	KindStore              ErrorKind = "store"
)

// synthesisThreshold is the number of active, distilled seeds that must be
// exceeded before a synthesis pass runs.
const synthesisThreshold = 2

// PulseError is a failure recorded during a pulse. It never aborts the pulse.
type PulseError struct {
	Kind   ErrorKind
	ItemID string
	Err    error
}

func (e *PulseError) Error() string {
	if e.ItemID != "" {
		return fmt.Sprintf("%s (%s): %v", e.ItemID, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *PulseError) Unwrap() error { return e.Err }

// ItemStore is what the distillation queue needs from the collection owner.
// Every call re-locates the item by id; a false return means it is gone.
type ItemStore interface {
	Snapshot() store.Collection
	SetProcessing(id string, on bool) bool
	SetSeed(id string, seed *store.Seed) (bool, error)
	ReplaceGaps(gaps []string) error
}

// ItemResult is the outcome of one queued item.
type ItemResult struct {
	ItemID string      `json:"id"`
	Seed   *store.Seed `json:"seed,omitempty"`
	Kind   ErrorKind   `json:"kind,omitempty"`
	Error  string      `json:"error,omitempty"`
	Err    error       `json:"-"`
}

// OK reports whether the item was distilled.
func (r ItemResult) OK() bool { return r.Err == nil && r.Seed != nil }

// PulseReport summarizes one pulse.
type PulseReport struct {
	Queued       int          `json:"queued"`
	Results      []ItemResult `json:"results"`
	Distilled    int          `json:"distilled"`
	Failed       int          `json:"failed"`
	Skipped      int          `json:"skipped"`
	NoNewSeeds   bool         `json:"noNewSeeds"`
	Synthesized  bool         `json:"synthesized"`
	Gaps         []string     `json:"gaps,omitempty"`
	SynthesisErr *PulseError  `json:"-"`
	SynthesisMsg string       `json:"synthesisError,omitempty"`
}

type distillJob struct {
	id  string
	raw string
}

// Queue is one pulse's work list, consumed by a single worker.
type Queue struct {
	Store       ItemStore
	Summarizer  Summarizer
	Synthesizer Synthesizer // optional

	// MaxRawChars bounds the text sent to the summarizer. Zero means 30,000.
	MaxRawChars int
}

// RunDistillation runs one pulse with the default limits.
func RunDistillation(ctx context.Context, st ItemStore, sum Summarizer, syn Synthesizer) PulseReport {
	q := &Queue{Store: st, Summarizer: sum, Synthesizer: syn}
	return q.Run(ctx)
}

// Run summarizes undistilled items one at a time, in collection order. A
// failed item is recorded and the worker moves on. When more than two
// active items carry a seed, their essences are sent for synthesis and the
// gaps replaced. The report always comes back; failures live inside it.
func (q *Queue) Run(ctx context.Context) PulseReport {
	var report PulseReport

	limit := q.MaxRawChars
	if limit <= 0 {
		limit = maxRawChars
	}

	jobs := pendingJobs(q.Store.Snapshot())
	report.Queued = len(jobs)
	report.NoNewSeeds = len(jobs) == 0

	for _, job := range jobs {
		res := distillOne(ctx, q.Store, q.Summarizer, job, limit)
		switch {
		case res.OK():
			report.Distilled++
		case res.Err == nil:
			report.Skipped++
		default:
			report.Failed++
			log.Printf("pulse: %v", res.Err)
		}
		report.Results = append(report.Results, res)
	}

	if q.Synthesizer != nil {
		synthesize(ctx, q.Store, q.Synthesizer, &report)
	}
	return report
}

func pendingJobs(c store.Collection) []distillJob {
	var jobs []distillJob
	for i := range c.Items {
		if !c.Items[i].Distilled() {
			jobs = append(jobs, distillJob{id: c.Items[i].ID, raw: c.Items[i].Raw})
		}
	}
	return jobs
}

func distillOne(ctx context.Context, st ItemStore, sum Summarizer, job distillJob, limit int) ItemResult {
	res := ItemResult{ItemID: job.id}

	if !st.SetProcessing(job.id, true) {
		return res // cleared while queued
	}
	seed, err := sum.Summarize(ctx, truncateRaw(job.raw, limit))
	st.SetProcessing(job.id, false)

	if err != nil {
		kind := KindTransient
		if errors.Is(err, ErrMalformedSummary) {
			kind = KindMalformedSummary
		}
		return failed(res, &PulseError{Kind: kind, ItemID: job.id, Err: err})
	}

	ok, err := st.SetSeed(job.id, seed)
	if err != nil {
		return failed(res, &PulseError{Kind: KindStore, ItemID: job.id, Err: err})
	}
	if ok {
		res.Seed = seed
	}
	return res
}

func failed(res ItemResult, perr *PulseError) ItemResult {
	res.Err = perr
	res.Kind = perr.Kind
	res.Error = perr.Err.Error()
	return res
}

func synthesize(ctx context.Context, st ItemStore, syn Synthesizer, report *PulseReport) {
	var essences []string
	for _, it := range st.Snapshot().Items {
		if it.Active() && it.Distilled() {
			essences = append(essences, it.Seed.Essence)
		}
	}
	if len(essences) <= synthesisThreshold {
		return
	}

	gaps, err := syn.Synthesize(ctx, essences)
	if err == nil {
		err = st.ReplaceGaps(gaps)
		if err != nil {
			report.SynthesisErr = &PulseError{Kind: KindStore, Err: err}
		}
	} else {
		kind := KindTransient
		if errors.Is(err, ErrMalformedSynthesis) {
			kind = KindMalformedSynthesis
		}
		report.SynthesisErr = &PulseError{Kind: kind, Err: err}
	}

	if report.SynthesisErr != nil {
		report.SynthesisMsg = report.SynthesisErr.Error()
		log.Printf("pulse: synthesis failed: %v", report.SynthesisErr)
		return
	}
	report.Synthesized = true
	report.Gaps = gaps
}
