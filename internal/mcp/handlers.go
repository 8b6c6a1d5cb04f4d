package mcp

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/lazypower/seedsoil/internal/engine"
	"github.com/lazypower/seedsoil/internal/store"
)

// Handlers holds the engine the tools act on.
type Handlers struct {
	eng *engine.Engine
}

// NewHandlers creates the tool handlers for eng.
func NewHandlers(eng *engine.Engine) *Handlers {
	return &Handlers{eng: eng}
}

type captureRequest struct {
	Text string `json:"text"`
}

type idRequest struct {
	ID string `json:"id"`
}

type reviewedRequest struct {
	ID      string `json:"id"`
	Success *bool  `json:"success"`
}

// HandleCapture plants a new seed.
func (h *Handlers) HandleCapture(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in, err := decode[captureRequest](req)
	if err != nil {
		return errorResult("invalid_request", err.Error()), nil
	}
	it, err := h.eng.Capture(in.Text)
	if errors.Is(err, engine.ErrEmptySeed) {
		return errorResult("invalid_request", err.Error()), nil
	}
	if err != nil {
		return errorResult("internal", err.Error()), nil
	}
	return successResult(it)
}

// HandlePulse runs a pulse to completion. A client that gives up on the call
// does not stop the pulse.
func (h *Handlers) HandlePulse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := h.eng.RunPulse(context.WithoutCancel(ctx))
	switch {
	case errors.Is(err, engine.ErrPulseInProgress):
		return errorResult("busy", err.Error()), nil
	case errors.Is(err, engine.ErrNoSummarizer):
		return errorResult("unconfigured", err.Error()), nil
	case err != nil:
		return errorResult("internal", err.Error()), nil
	}
	return successResult(report)
}

// HandleReview lists the seeds due for review.
func (h *Handlers) HandleReview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(map[string]any{"items": nonNil(h.eng.Review())})
}

// HandleReviewed records a review outcome.
func (h *Handlers) HandleReviewed(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in, err := decode[reviewedRequest](req)
	if err != nil {
		return errorResult("invalid_request", err.Error()), nil
	}
	if in.ID == "" || in.Success == nil {
		return errorResult("invalid_request", "id and success are required"), nil
	}
	changed, err := h.eng.MarkReviewed(in.ID, *in.Success)
	return h.mutationResult(in.ID, changed, err)
}

// HandleArchive buries a seed.
func (h *Handlers) HandleArchive(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in, err := decode[idRequest](req)
	if err != nil || in.ID == "" {
		return errorResult("invalid_request", "id is required"), nil
	}
	changed, err := h.eng.Archive(in.ID)
	return h.mutationResult(in.ID, changed, err)
}

// HandleResurrect revives a buried seed.
func (h *Handlers) HandleResurrect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in, err := decode[idRequest](req)
	if err != nil || in.ID == "" {
		return errorResult("invalid_request", "id is required"), nil
	}
	changed, err := h.eng.Resurrect(in.ID)
	return h.mutationResult(in.ID, changed, err)
}

// HandleBuried lists buried seeds.
func (h *Handlers) HandleBuried(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(map[string]any{"items": nonNil(h.eng.Buried())})
}

// HandleGaps returns the last synthesis result.
func (h *Handlers) HandleGaps(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gaps := h.eng.Gaps()
	if gaps == nil {
		gaps = []string{}
	}
	return successResult(map[string]any{"gaps": gaps})
}

// HandleGet fetches one seed.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in, err := decode[idRequest](req)
	if err != nil || in.ID == "" {
		return errorResult("invalid_request", "id is required"), nil
	}
	it, ok := h.eng.Get(in.ID)
	if !ok {
		return errorResult("not_found", "no seed with id "+in.ID), nil
	}
	return successResult(it)
}

func (h *Handlers) mutationResult(id string, changed bool, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return errorResult("internal", err.Error()), nil
	}
	out := map[string]any{"id": id, "changed": changed}
	if it, ok := h.eng.Get(id); ok {
		out["item"] = it
	}
	return successResult(out)
}

func nonNil(items []store.Item) []store.Item {
	if items == nil {
		return []store.Item{}
	}
	return items
}

// errorResult reports a failure with IsError set so clients treat it as one.
func errorResult(code, msg string) *mcp.CallToolResult {
	content, _ := json.Marshal(map[string]any{
		"error": map[string]string{"code": code, "message": msg},
	})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
