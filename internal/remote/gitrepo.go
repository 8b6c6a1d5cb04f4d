package remote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

const originRemote = "origin"

// GitRepo stores the document as a file committed to a git repository.
// When a remote URL is configured, fetches pull from origin first and
// replacements are pushed after the commit.
type GitRepo struct {
	Path string
	File string

	repo      *git.Repository
	token     string
	hasRemote bool
	mu        sync.Mutex
}

// OpenGitRepo opens the repository at path, initializing it if needed.
// remoteURL, when set, is registered as origin.
func OpenGitRepo(path, file, remoteURL, token string) (*GitRepo, error) {
	if file == "" {
		file = "seedsoil.json"
	}

	repo, err := git.PlainOpen(path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, fmt.Errorf("create repository directory: %w", err)
		}
		repo, err = git.PlainInit(path, false)
	}
	if err != nil {
		return nil, fmt.Errorf("open git repository: %w", err)
	}

	g := &GitRepo{Path: path, File: file, repo: repo, token: token}

	if _, err := repo.Remote(originRemote); err == nil {
		g.hasRemote = true
	} else if remoteURL != "" {
		_, err := repo.CreateRemote(&gitconfig.RemoteConfig{
			Name: originRemote,
			URLs: []string{remoteURL},
		})
		if err != nil {
			return nil, fmt.Errorf("add remote: %w", err)
		}
		g.hasRemote = true
	}
	return g, nil
}

func (g *GitRepo) auth() transport.AuthMethod {
	if g.token == "" {
		return nil
	}
	return &http.BasicAuth{
		Username: "git", // Can be anything except empty string
		Password: g.token,
	}
}

// Fetch pulls from origin when configured and reads the document file.
func (g *GitRepo) Fetch(ctx context.Context) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.hasRemote {
		wt, err := g.repo.Worktree()
		if err != nil {
			return "", false, fmt.Errorf("get worktree: %w", err)
		}
		err = wt.PullContext(ctx, &git.PullOptions{RemoteName: originRemote, Auth: g.auth()})
		switch {
		case err == nil, errors.Is(err, git.NoErrAlreadyUpToDate), errors.Is(err, transport.ErrEmptyRemoteRepository):
		default:
			return "", false, fmt.Errorf("git pull: %w", err)
		}
	}

	data, err := os.ReadFile(filepath.Join(g.Path, g.File))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read document: %w", err)
	}
	return string(data), true, nil
}

// Replace writes the document, commits it and pushes when origin exists.
// An unchanged document makes no commit.
func (g *GitRepo) Replace(ctx context.Context, content string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := os.WriteFile(filepath.Join(g.Path, g.File), []byte(content), 0644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}

	wt, err := g.repo.Worktree()
	if err != nil {
		return fmt.Errorf("get worktree: %w", err)
	}
	if _, err := wt.Add(g.File); err != nil {
		return fmt.Errorf("stage document: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("get status: %w", err)
	}
	if status.IsClean() {
		return nil
	}

	_, err = wt.Commit("sync: update "+g.File, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "seedsoil",
			Email: "sync@seedsoil.local",
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("commit document: %w", err)
	}

	if !g.hasRemote {
		return nil
	}
	err = g.repo.PushContext(ctx, &git.PushOptions{RemoteName: originRemote, Auth: g.auth()})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("git push: %w", err)
	}
	return nil
}

// Commits returns the number of commits on HEAD, or zero for an empty repository.
func (g *GitRepo) Commits() (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ref, err := g.repo.Head()
	if err != nil {
		return 0, nil
	}
	iter, err := g.repo.Log(&git.LogOptions{From: ref.Hash()})
	if err != nil {
		return 0, fmt.Errorf("git log: %w", err)
	}
	n := 0
	err = iter.ForEach(func(*object.Commit) error {
		n++
		return nil
	})
	return n, err
}
