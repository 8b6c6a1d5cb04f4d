package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/seedsoil/internal/engine"
	"github.com/lazypower/seedsoil/internal/remote"
	"github.com/lazypower/seedsoil/internal/store"
)

// testHome points config and database at a temp dir with no LLM or sync.
func testHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SEEDSOIL_DB", filepath.Join(home, "seedsoil.db"))
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("GITHUB_TOKEN", "")
	return home
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	configPath = ""
	reviewedFailed = false
	clearYes = false
	exportFormat = "json"
	exportOutput = ""
	importFormat = ""
	intakeDir = ""
	intakeWatch = false
	versionShort = false
	quiet = false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func plant(t *testing.T, text string) string {
	t.Helper()
	out, err := run(t, "", "capture", text)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "planted "), out)
	return strings.TrimSpace(strings.TrimPrefix(out, "planted "))
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "seedsoil dev")

	out, err = run(t, "", "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)
}

func TestCaptureAndStatus(t *testing.T) {
	testHome(t)
	plant(t, "the map is not the territory")

	out, err := run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "active:      1")
	assert.Contains(t, out, "undistilled: 1")
	assert.Contains(t, out, "llm:         not configured")
	assert.Contains(t, out, "sync:        off")
}

func TestCaptureFromStdin(t *testing.T) {
	testHome(t)
	out, err := run(t, "read from a pipe\n", "capture")
	require.NoError(t, err)
	assert.Contains(t, out, "planted ")

	_, err = run(t, "   ", "capture", "-")
	assert.ErrorIs(t, err, engine.ErrEmptySeed)
}

func TestLifecycleCommands(t *testing.T) {
	testHome(t)
	id := plant(t, "seed")

	out, err := run(t, "", "archive", id)
	require.NoError(t, err)
	assert.Equal(t, "buried "+id+"\n", out)

	out, err = run(t, "", "archive", id)
	require.NoError(t, err)
	assert.Equal(t, id+": no change\n", out)

	out, err = run(t, "", "buried")
	require.NoError(t, err)
	assert.Contains(t, out, id)

	out, err = run(t, "", "resurrect", id)
	require.NoError(t, err)
	assert.Equal(t, "resurrected "+id+"\n", out)

	out, err = run(t, "", "reviewed", "--failed", id)
	require.NoError(t, err)
	assert.Equal(t, "reviewed "+id+"\n", out)

	out, err = run(t, "", "buried")
	require.NoError(t, err)
	assert.Contains(t, out, id)
}

func TestReviewEmpty(t *testing.T) {
	testHome(t)
	plant(t, "not distilled yet")

	out, err := run(t, "", "review")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to review")
}

func TestPulseWithoutLLM(t *testing.T) {
	testHome(t)
	plant(t, "waiting")
	_, err := run(t, "", "pulse")
	assert.ErrorIs(t, err, engine.ErrNoSummarizer)
}

func TestClearNeedsYes(t *testing.T) {
	testHome(t)
	plant(t, "keep")

	_, err := run(t, "", "clear")
	require.Error(t, err)

	out, err := run(t, "", "clear", "--yes")
	require.NoError(t, err)
	assert.Equal(t, "cleared\n", out)

	out, err = run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "active:      0")
}

func TestExportImportYAML(t *testing.T) {
	home := testHome(t)
	id := plant(t, "travel light")
	file := filepath.Join(home, "garden.yaml")

	_, err := run(t, "", "export", "--format", "yaml", "-o", file)
	require.NoError(t, err)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "raw: travel light")

	_, err = run(t, "", "clear", "--yes")
	require.NoError(t, err)

	out, err := run(t, "", "import", file)
	require.NoError(t, err)
	assert.Equal(t, "imported 1 seeds\n", out)

	out, err = run(t, "", "export")
	require.NoError(t, err)
	assert.Contains(t, out, id)
}

func TestImportRejectsBadDocument(t *testing.T) {
	testHome(t)
	plant(t, "survivor")

	_, err := run(t, `{"items":[{"id":""}]}`, "import")
	require.Error(t, err)

	out, err := run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "active:      1")
}

func TestSyncRequiresBackend(t *testing.T) {
	testHome(t)
	_, err := run(t, "", "sync", "pull")
	assert.ErrorIs(t, err, errSyncOff)
}

func TestIntakeOnce(t *testing.T) {
	home := testHome(t)
	inbox := filepath.Join(home, "inbox")
	require.NoError(t, os.MkdirAll(inbox, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "note.md"), []byte("# Title\n\nsome idea"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "photo.png"), []byte{0x89}, 0644))

	out, err := run(t, "", "intake", "--dir", inbox)
	require.NoError(t, err)
	assert.Equal(t, "captured 1 files\n", out)

	assert.FileExists(t, filepath.Join(inbox, "processed", "note.md"))
	assert.FileExists(t, filepath.Join(inbox, "photo.png"))
}

// gitSyncHome is testHome with a local git repository as the remote, seeded
// with one active item last seen 49 hours ago.
func gitSyncHome(t *testing.T) string {
	t.Helper()
	home := testHome(t)
	repo := filepath.Join(home, "remote")
	t.Setenv("SEEDSOIL_SYNC_BACKEND", "git")
	t.Setenv("SEEDSOIL_SYNC_REPO_PATH", repo)

	seen := time.Now().Add(-49 * time.Hour).UnixMilli()
	doc := fmt.Sprintf(`{"items":[{"id":"old","raw":"water the roots","seed":null,`+
		`"soil":{"strength":1,"lastSeen":%d,"nextReview":%d,"status":"active"}}],"gaps":[]}`,
		seen, seen+24*time.Hour.Milliseconds())
	_, err := run(t, doc, "import")
	require.NoError(t, err)
	require.InDelta(t, 1.0, remoteStrength(t, repo), 1e-9)
	return repo
}

func remoteStrength(t *testing.T, repo string) float64 {
	t.Helper()
	g, err := remote.OpenGitRepo(repo, "", "", "")
	require.NoError(t, err)
	content, found, err := g.Fetch(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	doc, err := store.DecodeDocument([]byte(content))
	require.NoError(t, err)
	require.Len(t, doc.Items, 1)
	return doc.Items[0].Soil.Strength
}

func TestCommandsWithoutChangesPushSessionDecay(t *testing.T) {
	for _, args := range [][]string{{"review"}, {"buried"}, {"archive", "missing"}} {
		t.Run(args[0], func(t *testing.T) {
			repo := gitSyncHome(t)

			_, err := run(t, "", args...)
			require.NoError(t, err)
			assert.InDelta(t, 0.8, remoteStrength(t, repo), 1e-9)
		})
	}
}

func TestFollowBeforeSessionPushesDecay(t *testing.T) {
	repo := gitSyncHome(t)
	configPath = ""
	ctx := context.Background()

	a, err := openApp(ctx, false)
	require.NoError(t, err)
	stop := a.follow(ctx)
	rep, err := a.startSession(ctx)
	require.NoError(t, err)
	stop()
	a.Close()

	assert.True(t, rep.Pulled)
	assert.Equal(t, 1, rep.Decayed)
	assert.InDelta(t, 0.8, remoteStrength(t, repo), 1e-9)
}

func TestPushDecayClearsAfterPush(t *testing.T) {
	gitSyncHome(t)
	configPath = ""
	ctx := context.Background()

	a, err := openApp(ctx, true)
	require.NoError(t, err)
	defer a.Close()
	require.Equal(t, 1, a.decayed)

	a.pushDecay(ctx)
	assert.Equal(t, 0, a.decayed)
	assert.Equal(t, int64(1), a.sync.Writes())
}

func TestShow(t *testing.T) {
	testHome(t)
	id := plant(t, "compost feeds the next season")

	out, err := run(t, "", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "status:    active")
	assert.Contains(t, out, "raw:\ncompost feeds the next season\n")

	_, err = run(t, "", "show", "nope")
	assert.Error(t, err)
}
