package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGistFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/gists/g1", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"files":{"seedsoil.json":{"content":"{\"items\":[],\"gaps\":[]}"},"other.txt":{"content":"x"}}}`))
	}))
	defer srv.Close()

	g := NewGist(srv.URL, "g1", "", "tok", time.Second)
	content, found, err := g.Fetch(context.Background())
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"items":[],"gaps":[]}`, content)
}

func TestGistFetch_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, found, err := NewGist(srv.URL, "g1", "", "", time.Second).Fetch(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGistFetch_MissingFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"files":{"notes.md":{"content":"hi"}}}`))
	}))
	defer srv.Close()

	_, found, err := NewGist(srv.URL, "g1", "seedsoil.json", "", time.Second).Fetch(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGistFetch_Truncated(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/gists/g1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"files": map[string]any{
				"seedsoil.json": map[string]any{"content": "{\"ite", "truncated": true, "raw_url": srv.URL + "/raw"},
			},
		})
	})
	mux.HandleFunc("/raw", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[],"gaps":["full"]}`))
	})

	content, found, err := NewGist(srv.URL, "g1", "", "", time.Second).Fetch(context.Background())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Contains(t, content, "full")
}

func TestGistFetch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, _, err := NewGist(srv.URL, "g1", "", "", time.Second).Fetch(context.Background())
	assert.Error(t, err)
}

func TestGistReplace(t *testing.T) {
	var got struct {
		Files map[string]struct {
			Content string `json:"content"`
		} `json:"files"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PATCH", r.Method)
		assert.Equal(t, "/gists/g1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	g := NewGist(srv.URL+"/", "g1", "garden.json", "tok", time.Second)
	require.NoError(t, g.Replace(context.Background(), `{"items":[]}`))
	assert.Equal(t, `{"items":[]}`, got.Files["garden.json"].Content)
}

func TestGistReplace_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := NewGist(srv.URL, "g1", "", "", time.Second).Replace(context.Background(), "{}")
	assert.ErrorContains(t, err, "401")
}
