package services

import (
	"strings"

	"github.com/elimu-hub/cbc-chatbot/models"
)

// fragmentDelimiter separates evidence fragments inside the prompt.
const fragmentDelimiter = "\n\n---\n\n"

// noEvidenceMarker is emitted when retrieval produced nothing, so the model
// knows explicitly that it is answering from general knowledge.
const noEvidenceMarker = "NO DIRECT FRAGMENTS FOUND. Answer using general CBC expert knowledge."

// identityPrompt describes the assistant's domain and the authoritative facts
// it must not contradict.
const identityPrompt = `You are a professional and helpful Kenyan education advisor specializing in the CBC/CBE (Competency-Based Curriculum/Education) system.

KEY CONTEXT (Updated January 2026):
- Grade 10 reporting date: January 12, 2026.
- All 1.13 million Grade 9 learners have been placed in Senior Schools.
- Second placement review window: January 6-9, 2026.
- Pure Sciences pathway offers 36 specific career options.
- Official school and KNEC updates are found at kec.ac.ke and knec.ac.ke.

YOUR GOALS:
1. Provide accurate, up-to-date information on CBC transitions and Grade 10 placement.
2. Explain career pathways (STEM, Social Sciences, Arts & Sports) clearly.
3. Support parents with actionable advice and reassurance.
4. Direct users to official channels for specific technical or school-specific issues.

TONE:
- Empathetic, professional, and patriotic.
- Clear, simple language (avoiding overly dense jargon).

IMPORTANT:
- If a fact is outside your knowledge base, recommend checking with the school principal or the KNEC portal (knec.ac.ke).`

// rulesPrompt constrains how retrieved evidence is used.
const rulesPrompt = `---
DATABASE DRILL RESULTS (DEEP SEARCH):
The following fragments have been retrieved from the CBC Knowledge Base using a multi-phrasing deep search.
Identify related facts across different fragments and synthesize them into a coherent, expert response.
Retrieved fragments take priority over your general knowledge when they conflict.
Mirror the language the user writes in.

RETRIEVED DATA:`

// BuildSystemPrompt assembles the system message: identity block, behavioral
// rules, then the evidence fragments (or the explicit no-evidence marker).
// Order is fixed and no truncation happens here; the fan-out caps upstream
// bound the total size.
func BuildSystemPrompt(bundle []models.Fragment) string {
	var b strings.Builder
	b.WriteString(identityPrompt)
	b.WriteString("\n\n")
	b.WriteString(rulesPrompt)
	b.WriteString("\n")

	if len(bundle) == 0 {
		b.WriteString(noEvidenceMarker)
	} else {
		for i, frag := range bundle {
			if i > 0 {
				b.WriteString(fragmentDelimiter)
			}
			b.WriteString(frag.Text)
		}
	}
	b.WriteString("\n---")
	return b.String()
}
