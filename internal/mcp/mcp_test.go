package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/seedsoil/internal/engine"
	"github.com/lazypower/seedsoil/internal/llm"
	"github.com/lazypower/seedsoil/internal/store"
)

func testHandlers(t *testing.T, client llm.Client) (*Handlers, *engine.Engine) {
	t.Helper()
	db, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	eng, err := engine.New(db, client)
	require.NoError(t, err)
	t.Cleanup(eng.Stop)
	return NewHandlers(eng), eng
}

func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func resultJSON(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func errorCode(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.True(t, res.IsError)
	errObj := resultJSON(t, res)["error"].(map[string]any)
	return errObj["code"].(string)
}

func TestToolNames(t *testing.T) {
	assert.Equal(t, []string{
		"seed_archive", "seed_buried", "seed_capture", "seed_gaps", "seed_get",
		"seed_pulse", "seed_resurrect", "seed_review", "seed_reviewed",
	}, ToolNames())
}

func TestNewServerRegistersTools(t *testing.T) {
	_, eng := testHandlers(t, nil)
	s := NewServer(eng, "test")
	require.NotNil(t, s)
	for name, entry := range toolRegistry {
		assert.Equal(t, name, entry.def.Name)
	}
}

func TestHandleCapture(t *testing.T) {
	h, eng := testHandlers(t, nil)
	ctx := context.Background()

	res, err := h.HandleCapture(ctx, makeRequest(map[string]any{"text": "slow is smooth"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	out := resultJSON(t, res)
	assert.Equal(t, "slow is smooth", out["raw"])
	assert.Len(t, eng.Items(), 1)

	res, err = h.HandleCapture(ctx, makeRequest(map[string]any{"text": "  "}))
	require.NoError(t, err)
	assert.Equal(t, "invalid_request", errorCode(t, res))

	res, err = h.HandleCapture(ctx, makeRequest(map[string]any{"text": 42}))
	require.NoError(t, err)
	assert.Equal(t, "invalid_request", errorCode(t, res))
}

func TestHandleLifecycle(t *testing.T) {
	h, eng := testHandlers(t, nil)
	ctx := context.Background()
	it, err := eng.Capture("seed")
	require.NoError(t, err)

	res, err := h.HandleArchive(ctx, makeRequest(map[string]any{"id": it.ID}))
	require.NoError(t, err)
	assert.Equal(t, true, resultJSON(t, res)["changed"])

	res, err = h.HandleBuried(ctx, makeRequest(nil))
	require.NoError(t, err)
	assert.Len(t, resultJSON(t, res)["items"], 1)

	res, err = h.HandleReviewed(ctx, makeRequest(map[string]any{"id": it.ID, "success": true}))
	require.NoError(t, err)
	assert.Equal(t, false, resultJSON(t, res)["changed"], "buried items ignore reviews")

	res, err = h.HandleResurrect(ctx, makeRequest(map[string]any{"id": it.ID}))
	require.NoError(t, err)
	out := resultJSON(t, res)
	assert.Equal(t, true, out["changed"])
	soil := out["item"].(map[string]any)["soil"].(map[string]any)
	assert.Equal(t, 0.5, soil["strength"])

	res, err = h.HandleReviewed(ctx, makeRequest(map[string]any{"id": it.ID, "success": true}))
	require.NoError(t, err)
	assert.Equal(t, true, resultJSON(t, res)["changed"])
	got, _ := eng.Get(it.ID)
	assert.Equal(t, 1.0, got.Soil.Strength)
}

func TestHandleMissingArguments(t *testing.T) {
	h, _ := testHandlers(t, nil)
	ctx := context.Background()

	res, err := h.HandleArchive(ctx, makeRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, "invalid_request", errorCode(t, res))

	res, err = h.HandleReviewed(ctx, makeRequest(map[string]any{"id": "x"}))
	require.NoError(t, err)
	assert.Equal(t, "invalid_request", errorCode(t, res))

	res, err = h.HandleGet(ctx, makeRequest(map[string]any{"id": "ghost"}))
	require.NoError(t, err)
	assert.Equal(t, "not_found", errorCode(t, res))
}

func TestHandleUnknownIDIsNoOp(t *testing.T) {
	h, _ := testHandlers(t, nil)
	res, err := h.HandleResurrect(context.Background(), makeRequest(map[string]any{"id": "ghost"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	out := resultJSON(t, res)
	assert.Equal(t, false, out["changed"])
	assert.NotContains(t, out, "item")
}

func TestHandlePulse(t *testing.T) {
	ctx := context.Background()

	h, _ := testHandlers(t, nil)
	res, err := h.HandlePulse(ctx, makeRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, "unconfigured", errorCode(t, res))

	mock := &llm.MockClient{Response: &llm.Response{
		Content: `{"essence":"e","nuggets":["n"],"action":"a"}`,
	}}
	h, eng := testHandlers(t, mock)
	_, err = eng.Capture("something worth keeping")
	require.NoError(t, err)

	res, err = h.HandlePulse(ctx, makeRequest(nil))
	require.NoError(t, err)
	require.False(t, res.IsError)
	out := resultJSON(t, res)
	assert.Equal(t, float64(1), out["distilled"])

	res, err = h.HandleReview(ctx, makeRequest(nil))
	require.NoError(t, err)
	assert.Len(t, resultJSON(t, res)["items"], 1)
}

// ctxClient fails any completion whose context is already done.
type ctxClient struct{}

func (ctxClient) Complete(ctx context.Context, prompt string) (*llm.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &llm.Response{Content: `{"essence":"e","nuggets":[],"action":"a"}`}, nil
}

func TestHandlePulse_OutlivesCancelledCall(t *testing.T) {
	h, eng := testHandlers(t, ctxClient{})
	_, err := eng.Capture("first")
	require.NoError(t, err)
	_, err = eng.Capture("second")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := h.HandlePulse(ctx, makeRequest(nil))
	require.NoError(t, err)
	require.False(t, res.IsError)
	out := resultJSON(t, res)
	assert.Equal(t, float64(2), out["distilled"])
	assert.Equal(t, float64(0), out["failed"])
}

func TestHandleGapsEmpty(t *testing.T) {
	h, _ := testHandlers(t, nil)
	res, err := h.HandleGaps(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, []any{}, resultJSON(t, res)["gaps"])
}
