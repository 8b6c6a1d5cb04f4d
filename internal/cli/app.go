package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/lazypower/seedsoil/internal/config"
	"github.com/lazypower/seedsoil/internal/engine"
	"github.com/lazypower/seedsoil/internal/llm"
	"github.com/lazypower/seedsoil/internal/remote"
	"github.com/lazypower/seedsoil/internal/store"
)

// app bundles everything a command needs.
type app struct {
	cfg  *config.Config
	db   *store.DB
	eng  *engine.Engine
	sync *remote.Coordinator // nil when sync is off

	// decayed counts items the session start decayed and no push has
	// carried to the remote yet.
	decayed int
}

// openApp loads config and wires the database, LLM client, remote store and
// engine. When session is true it also pulls the remote snapshot and applies
// decay, the same as a UI session start. Commands that start a session must
// push before exiting, through push or pushDecay.
func openApp(ctx context.Context, session bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	client, err := llm.NewClient(cfg.LLM)
	if err != nil {
		log.Printf("llm: not configured (%v), distillation disabled", err)
		client = nil
	}

	eng, err := engine.New(db, client)
	if err != nil {
		db.Close()
		return nil, err
	}
	eng.MaxRawChars = cfg.Pulse.MaxRawChars

	a := &app{cfg: cfg, db: db, eng: eng}

	a.sync, err = remote.New(cfg.Sync)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open sync backend: %w", err)
	}
	if a.sync != nil {
		eng.SetPuller(a.sync)
	}

	if session {
		if _, err := a.startSession(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

// startSession pulls and decays, remembering whether decay left local
// state ahead of the remote.
func (a *app) startSession(ctx context.Context) (engine.SessionReport, error) {
	rep, err := a.eng.StartSession(ctx)
	if err != nil {
		return rep, err
	}
	if rep.PullErr != nil {
		fmt.Fprintf(os.Stderr, "warning: sync pull failed: %v\n", rep.PullErr)
	}
	a.decayed = rep.Decayed
	return rep, nil
}

// push writes the current snapshot to the remote after a one-shot command
// changed something. Failures are warnings; local state is already saved.
func (a *app) push(ctx context.Context) {
	if a.sync == nil {
		return
	}
	a.decayed = 0
	if err := a.sync.Push(ctx, a.eng.Document()); err != nil {
		fmt.Fprintf(os.Stderr, "warning: sync push failed: %v\n", err)
	}
}

// pushDecay pushes only when the session start decayed something. Commands
// that change nothing themselves end with it.
func (a *app) pushDecay(ctx context.Context) {
	if a.decayed > 0 {
		a.push(ctx)
	}
}

// follow pushes a snapshot after every mutation event until ctx ends or the
// returned stop func runs. stop drains queued events and waits for pushes
// already started.
func (a *app) follow(ctx context.Context) (stop func()) {
	if a.sync == nil {
		return func() {}
	}
	events, cancel := a.eng.Subscribe(64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.sync.Follow(ctx, events, a.eng.Document)
	}()
	return func() {
		cancel()
		<-done
	}
}

func (a *app) Close() {
	a.eng.Stop()
	a.db.Close()
}
