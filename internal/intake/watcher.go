package intake

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lazypower/seedsoil/internal/engine"
	"github.com/lazypower/seedsoil/internal/store"
)

// processedDir is where ingested files are moved, inside the inbox.
const processedDir = "processed"

// Garden is the part of the session controller intake needs.
type Garden interface {
	Capture(text string) (store.Item, error)
	RunPulse(ctx context.Context) (*engine.PulseReport, error)
}

// Inbox captures files dropped into a directory.
type Inbox struct {
	Dir      string
	Registry *Registry
	Garden   Garden

	// Pulse runs a pulse after each captured file.
	Pulse bool
	// Debounce is how long a file must be quiet before it is read.
	Debounce time.Duration
}

// NewInbox creates an Inbox and its directories.
func NewInbox(dir string, reg *Registry, g Garden, pulse bool) (*Inbox, error) {
	if err := os.MkdirAll(filepath.Join(dir, processedDir), 0755); err != nil {
		return nil, fmt.Errorf("create inbox: %w", err)
	}
	return &Inbox{
		Dir:      dir,
		Registry: reg,
		Garden:   g,
		Pulse:    pulse,
		Debounce: 250 * time.Millisecond,
	}, nil
}

// Ingest extracts and captures one file, then moves it to processed/.
// Unsupported files are left in place.
func (in *Inbox) Ingest(ctx context.Context, path string) (store.Item, error) {
	rel, err := filepath.Rel(in.Dir, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	if !in.Registry.Accepts(rel) {
		return store.Item{}, fmt.Errorf("%s: %w", rel, ErrUnsupportedFormat)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return store.Item{}, fmt.Errorf("read %s: %w", rel, err)
	}
	txt, err := in.Registry.Extract(rel, data)
	if err != nil {
		return store.Item{}, err
	}

	it, err := in.Garden.Capture(txt)
	if err != nil {
		return store.Item{}, fmt.Errorf("capture %s: %w", rel, err)
	}
	if err := in.archive(path); err != nil {
		log.Printf("intake: %v", err)
	}

	if in.Pulse {
		if _, err := in.Garden.RunPulse(ctx); err != nil {
			log.Printf("intake: pulse after %s: %v", rel, err)
		}
	}
	return it, nil
}

func (in *Inbox) archive(path string) error {
	dest := filepath.Join(in.Dir, processedDir, filepath.Base(path))
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(dest)
		dest = fmt.Sprintf("%s-%d%s", dest[:len(dest)-len(ext)], time.Now().UnixNano(), ext)
	}
	if err := os.Rename(path, dest); err != nil {
		return fmt.Errorf("move %s to processed: %w", filepath.Base(path), err)
	}
	return nil
}

// Scan ingests every file currently in the inbox, oldest name first.
// Failures are logged and skipped. Returns the number captured.
func (in *Inbox) Scan(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(in.Dir)
	if err != nil {
		return 0, fmt.Errorf("read inbox: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	n := 0
	for _, name := range names {
		if _, err := in.Ingest(ctx, filepath.Join(in.Dir, name)); err != nil {
			if !errors.Is(err, ErrUnsupportedFormat) {
				log.Printf("intake: %v", err)
			}
			continue
		}
		n++
	}
	return n, nil
}

// Watch scans the inbox, then captures files as they arrive until ctx is
// done. Files are ingested one at a time.
func (in *Inbox) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(in.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", in.Dir, err)
	}

	if _, err := in.Scan(ctx); err != nil {
		return err
	}

	ready := make(chan string, 64)
	var (
		mu     sync.Mutex
		timers = make(map[string]*time.Timer)
	)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()

	// Editors write in bursts; wait for the file to settle.
	schedule := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := timers[path]; ok {
			t.Reset(in.Debounce)
			return
		}
		timers[path] = time.AfterFunc(in.Debounce, func() {
			mu.Lock()
			delete(timers, path)
			mu.Unlock()
			select {
			case ready <- path:
			case <-ctx.Done():
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if filepath.Dir(event.Name) != filepath.Clean(in.Dir) {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			schedule(event.Name)

		case path := <-ready:
			if _, err := os.Stat(path); err != nil {
				continue // already ingested
			}
			it, err := in.Ingest(ctx, path)
			switch {
			case err == nil:
				log.Printf("intake: captured %s from %s", it.ID, filepath.Base(path))
			case errors.Is(err, ErrUnsupportedFormat):
				log.Printf("intake: skipping %s", filepath.Base(path))
			default:
				log.Printf("intake: %v", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("intake: fsnotify error: %v", err)
		}
	}
}
