package llm

import "fmt"

// InternalSentinel prefixes every prompt seedsoil sends. The claude-cli
// provider starts a full agent session, and that session's hooks would
// otherwise capture our own prompts.
const InternalSentinel = "[seedsoil-internal]"

// DistillPrompt asks for the essence, key nuggets and one action for a captured fragment.
func DistillPrompt(raw string) string {
	return fmt.Sprintf(InternalSentinel+` Act as a Socratic Mentor. Extract the DNA of the text below.

TEXT:
%s

Rules:
- essence is exactly one sentence
- nuggets are short, standalone insights (2 to 5)
- action is one concrete challenge the reader can do this week
- Return ONLY a JSON object, no other text

Return JSON:
{ "essence": "1 sentence", "nuggets": ["insight1", "insight2"], "action": "1 challenge" }`, raw)
}

// SynthesisPrompt asks for gaps across the essences of every active, distilled seed.
func SynthesisPrompt(essences string) string {
	return fmt.Sprintf(InternalSentinel+` Act as a Socratic Mentor. Below is one line per idea a learner is currently growing.

IDEAS:
%s

Identify the gaps: questions, missing foundations or tensions between these ideas
that the learner has not yet addressed. Keep each gap to one sentence.

Return ONLY a JSON object, no other text:
{ "gaps": ["gap1", "gap2"] }`, essences)
}
