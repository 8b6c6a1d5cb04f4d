package transcript

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const agentLog = `{"type":"user","message":{"role":"user","content":"How do I keep notes from rotting?"}}
{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"Review them on a schedule."},{"type":"tool_use","name":"search"}]}}
not json at all
{"type":"user","message":{"role":"user","content":"ok"}}
{"type":"system","message":{"role":"system","content":"session started"}}
{"type":"user","message":{"role":"user","content":"<system-reminder>hidden</system-reminder>And what about old ones?"}}
{"type":"assistant","message":{"role":"assistant","content":"Bury the ones you stop caring about."}}
`

func TestParseAgentLog(t *testing.T) {
	turns, err := Parse(strings.NewReader(agentLog))
	require.NoError(t, err)

	assert.Equal(t, []Turn{
		{Role: "user", Text: "How do I keep notes from rotting?"},
		{Role: "assistant", Text: "Review them on a schedule."},
		{Role: "user", Text: "And what about old ones?"},
		{Role: "assistant", Text: "Bury the ones you stop caring about."},
	}, turns)
}

func TestParseFlatExport(t *testing.T) {
	in := `{"role":"user","content":"flat shaped message"}
{"role":"assistant","content":"flat shaped reply"}
{"role":"tool","content":"tool output here"}`
	turns, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "user", turns[0].Role)
	assert.Equal(t, "assistant", turns[1].Role)
}

func TestParseSkipsJSONBodies(t *testing.T) {
	turns, err := Parse(strings.NewReader(`{"role":"user","content":"{\"tool_result\": 1}"}`))
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestCondenseClipsMiddleReplies(t *testing.T) {
	long := strings.Repeat("é", 1500)
	turns := []Turn{
		{Role: "user", Text: "question one"},
		{Role: "assistant", Text: long},
		{Role: "assistant", Text: long},
		{Role: "assistant", Text: long},
	}
	out := Condense(turns)
	parts := strings.Split(out, "\n\n")
	require.Len(t, parts, 4)

	assert.Equal(t, "Me: question one", parts[0])
	assert.Equal(t, "Reply: "+strings.Repeat("é", edgeReplyChars)+"...", parts[1])
	assert.Equal(t, "Reply: "+strings.Repeat("é", midReplyChars)+"...", parts[2])
	assert.Equal(t, "Reply: "+strings.Repeat("é", edgeReplyChars)+"...", parts[3])
}

func TestCondenseKeepsUserMessagesWhole(t *testing.T) {
	long := strings.Repeat("x", 5000)
	out := Condense([]Turn{{Role: "user", Text: long}})
	assert.Equal(t, "Me: "+long, out)
}

func TestText(t *testing.T) {
	out, err := Text([]byte(agentLog))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Me: How do I keep notes from rotting?"))
	assert.Contains(t, out, "Reply: Bury the ones you stop caring about.")

	_, err = Text([]byte("garbage\n"))
	assert.ErrorIs(t, err, ErrNoTurns)
}
