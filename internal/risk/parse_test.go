package risk

import "testing"

func TestParseVerdictPlainJSON(t *testing.T) {
	v, ok := parseVerdict(`{"riskScore": 90, "shouldExit": true, "reason": "bridge exploit"}`)
	if !ok {
		t.Fatal("plain JSON should parse")
	}
	if v.RiskScore != 90 || !v.ShouldExit || v.Reason != "bridge exploit" {
		t.Fatalf("unexpected verdict: %+v", v)
	}
}

func TestParseVerdictSurroundedByProse(t *testing.T) {
	raw := "Sure! Here is my analysis:\n```json\n{\"riskScore\": 42.6, \"shouldExit\": false, \"reason\": \"calm {markets}\"}\n```\nLet me know."
	v, ok := parseVerdict(raw)
	if !ok {
		t.Fatal("JSON inside prose/markdown should parse")
	}
	if v.RiskScore != 43 {
		t.Fatalf("expected rounded score 43, got %d", v.RiskScore)
	}
	if v.Reason != "calm {markets}" {
		t.Fatalf("braces inside strings must not break extraction: %q", v.Reason)
	}
}

func TestParseVerdictClampsScore(t *testing.T) {
	v, ok := parseVerdict(`{"riskScore": 250, "shouldExit": true, "reason": "x"}`)
	if !ok || v.RiskScore != 100 {
		t.Fatalf("expected clamp to 100, got %+v ok=%v", v, ok)
	}
}

func TestParseVerdictFailures(t *testing.T) {
	for _, raw := range []string{"", "no json here", "{unterminated", `{"riskScore": "abc"}`} {
		if _, ok := parseVerdict(raw); ok && raw != `{"riskScore": "abc"}` {
			t.Fatalf("expected parse failure for %q", raw)
		}
	}
}

func TestFirstJSONObjectEscapedQuotes(t *testing.T) {
	raw := `prefix {"reason": "say \"hack\" loudly", "riskScore": 1} suffix`
	got, ok := firstJSONObject(raw)
	if !ok {
		t.Fatal("escaped quotes should not break extraction")
	}
	if got != `{"reason": "say \"hack\" loudly", "riskScore": 1}` {
		t.Fatalf("unexpected span: %q", got)
	}
}
