package risk

import (
	"fmt"
	"strings"
)

// buildPrompt renders the evaluation prompt. When an injected emergency
// context is active the narrative is weighted at 80% versus 20% for the
// live metrics, and the model is instructed to force an exit verdict for
// exploit-class narratives.
func buildPrompt(in Input) string {
	b := strings.Builder{}
	b.WriteString("Analyze crypto risk:\n")
	fmt.Fprintf(&b, "Token: %s\n", in.Sentiment.Token)
	fmt.Fprintf(&b, "Sentiment Score: %.0f/100\n", in.Sentiment.Score)
	fmt.Fprintf(&b, "Price Change 24h: %s%%\n", in.Price.PriceChange24h.StringFixed(2))
	fmt.Fprintf(&b, "Volume 24h: $%s\n", in.Price.Volume24h.StringFixed(0))

	if in.Injected != nil {
		b.WriteString("\n=== EMERGENCY CONTEXT ===\n")
		fmt.Fprintf(&b, "Severity: %s\n", in.Injected.Severity)
		fmt.Fprintf(&b, "Breaking: %s\n", in.Injected.Headline)
		b.WriteString("Weight this emergency narrative at 80% versus 20% for the metrics above.\n")
		b.WriteString("If the narrative implies an exploit, hack, insolvency, or bridge compromise, ")
		b.WriteString("respond with riskScore above 85 and shouldExit true.\n")
	}

	b.WriteString("\nShould we exit the position? Respond with JSON: {\"riskScore\": 0-100, \"shouldExit\": boolean, \"reason\": string}")
	return b.String()
}
