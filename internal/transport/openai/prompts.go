package openai

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/buyingguide/internal/domain/llm"
)

const plannerPrompt = `You plan searches for a headphone buying guide.

Read the user's request. Earlier conversation turns may be present; treat the
latest message as a refinement of them ("make it wireless", "raise budget to
100", "same but for the gym") and describe the CURRENT request only.

Output exactly one JSON object and nothing else:

{
  "budget": number or null,             // US dollars
  "budget_flex_pct": number,            // 0.2 to 0.5
  "ceiling_only": boolean,              // true when the user states only a maximum ("under $80")
  "min_reviews": integer,               // 10 to 50
  "use_case": "commute" | "gym" | "audiophile" | "gaming" | "general",
  "priority_aspects": [string],         // e.g. "bass", "comfort", "noise_cancelling", "battery", "mic_quality"
  "must_have_keywords": [string],       // hard requirements such as "wireless"
  "boost_keywords": [string],           // soft preferences
  "notes": string                       // one sentence on how you read the request
}`

const explainerPrompt = `You are a concise headphone expert. Be conversational, direct and brief. No emojis.

The user message is JSON with the shopper's query, the structured plan and up
to five ranked products (price, rating, review count, sample pros and cons).

For a new request: one line summarizing what they want, then the top three
products as "**Title** - $price", "Rating: X.X / 5.0 (N reviews)" and one
sentence on why it fits. Finish with one sentence of guidance. Stay under 150
words and never mention internal scores.

For follow-ups (more detail, reviews, comparisons, "why"), answer only the
question in two or three short sentences, or a small table for comparisons.
Recognize references such as "#1" or "the first one".`

// plannerMessage folds the conversation into a single user message.
func plannerMessage(query string, history []llm.Turn) string {
	if len(history) == 0 {
		return query
	}

	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	for _, t := range history {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Content)
	}
	b.WriteString("\nUser's latest message (a refinement of the above):\n")
	b.WriteString(query)
	b.WriteString("\n\nDescribe the CURRENT request as a single JSON plan.")
	return b.String()
}
