package risk

import "strings"

// parseVerdict extracts the first well-formed JSON object from raw model
// output, tolerating surrounding prose and markdown fences.
func parseVerdict(raw string) (Verdict, bool) {
	candidate, ok := firstJSONObject(raw)
	if !ok {
		return Verdict{}, false
	}

	var parsed struct {
		RiskScore  float64 `json:"riskScore"`
		ShouldExit bool    `json:"shouldExit"`
		Reason     string  `json:"reason"`
	}
	if err := json.UnmarshalFromString(candidate, &parsed); err != nil {
		return Verdict{}, false
	}

	score := int(parsed.RiskScore + 0.5)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return Verdict{RiskScore: score, ShouldExit: parsed.ShouldExit, Reason: parsed.Reason}, true
}

// firstJSONObject scans for the first balanced top-level {...} span,
// honouring string literals and escapes.
func firstJSONObject(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return "", false
}
