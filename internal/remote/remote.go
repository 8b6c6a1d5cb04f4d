// Package remote keeps the collection in a single remote document. The policy
// is whole-document last-writer-wins: a pull replaces local state, a push
// replaces the remote.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lazypower/seedsoil/internal/config"
	"github.com/lazypower/seedsoil/internal/engine"
	"github.com/lazypower/seedsoil/internal/store"
)

// ErrSyncInProgress is returned when a pull or push arrives while another
// remote operation is in flight. The call is dropped, not queued.
var ErrSyncInProgress = errors.New("sync already in progress")

// DocumentStore is a single remote document.
type DocumentStore interface {
	// Fetch returns the document content. found is false when the document
	// does not exist yet.
	Fetch(ctx context.Context) (content string, found bool, err error)
	// Replace overwrites the document content wholesale.
	Replace(ctx context.Context, content string) error
}

// Coordinator serializes access to the remote document. At most one remote
// operation is outstanding at a time.
type Coordinator struct {
	store DocumentStore

	busy    atomic.Bool
	writes  atomic.Int64
	dropped atomic.Int64
}

// NewCoordinator creates a Coordinator over s.
func NewCoordinator(s DocumentStore) *Coordinator {
	return &Coordinator{store: s}
}

// New builds the coordinator for the configured backend, or nil when sync
// is not configured.
func New(cfg config.SyncConfig) (*Coordinator, error) {
	var (
		ds  DocumentStore
		err error
	)
	switch cfg.Backend {
	case "":
		return nil, nil
	case "gist":
		ds = NewGist(cfg.APIURL, cfg.GistID, cfg.FileName, cfg.Token, 30*time.Second)
	case "git":
		ds, err = OpenGitRepo(cfg.RepoPath, cfg.FileName, cfg.Remote, cfg.Token)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown sync backend: %q", cfg.Backend)
	}
	return NewCoordinator(ds), nil
}

func (c *Coordinator) acquire() bool {
	if c.busy.CompareAndSwap(false, true) {
		return true
	}
	c.dropped.Add(1)
	return false
}

func (c *Coordinator) release() {
	c.busy.Store(false)
}

// Pull fetches the remote snapshot. An absent or empty remote returns a nil
// document so callers leave local data alone.
func (c *Coordinator) Pull(ctx context.Context) (*store.Document, error) {
	if !c.acquire() {
		return nil, ErrSyncInProgress
	}
	defer c.release()

	content, found, err := c.store.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("pull: %w", err)
	}
	if !found || strings.TrimSpace(content) == "" {
		return nil, nil
	}
	doc, err := store.DecodeDocument([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("pull: %w", err)
	}
	return doc, nil
}

// Push writes doc over the remote document.
func (c *Coordinator) Push(ctx context.Context, doc store.Document) error {
	if !c.acquire() {
		return ErrSyncInProgress
	}
	defer c.release()

	data, err := doc.EncodeJSON()
	if err != nil {
		return fmt.Errorf("push: %w", err)
	}
	if err := c.store.Replace(ctx, string(data)); err != nil {
		return fmt.Errorf("push: %w", err)
	}
	c.writes.Add(1)
	return nil
}

// Writes returns how many pushes reached the remote.
func (c *Coordinator) Writes() int64 { return c.writes.Load() }

// Dropped returns how many calls were rejected by the in-flight guard.
func (c *Coordinator) Dropped() int64 { return c.dropped.Load() }

// Follow pushes a fresh snapshot after every local mutation event until
// events is closed or ctx is done. Pushes run in the background; one that
// collides with an in-flight sync is dropped and not retried.
func (c *Coordinator) Follow(ctx context.Context, events <-chan engine.Event, snapshot func() store.Document) {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !ev.Mutation {
				continue
			}
			doc := snapshot()
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := c.Push(ctx, doc)
				switch {
				case err == nil:
				case errors.Is(err, ErrSyncInProgress):
					log.Printf("sync: push dropped after %s, another sync is running", ev.Kind)
				default:
					log.Printf("sync: %v", err)
				}
			}()
		}
	}
}
