package types

import "testing"

func TestParseLegacyConditionNotes(t *testing.T) {
	notes := "Scanned group of plants.\n" +
		"Condition breakdown:\n" +
		"- Aphids (Infested): 4 plants\n" +
		"- Healthy: 1 plant\n" +
		"Next scan scheduled automatically."

	counts := ParseLegacyConditionNotes(notes)
	if len(counts) != 2 {
		t.Fatalf("parsed %d entries, want 2", len(counts))
	}
	if counts.CountFor("Aphids (Infested)") != 4 {
		t.Errorf("Aphids count = %d, want 4", counts.CountFor("Aphids (Infested)"))
	}
	if counts.CountFor("Healthy") != 1 {
		t.Errorf("Healthy count = %d, want 1", counts.CountFor("Healthy"))
	}
}

func TestParseLegacyConditionNotes_IgnoresMalformedLines(t *testing.T) {
	notes := "- Aphids (Infested): zero plants\n" +
		"- Leaf Spot: -3 plants\n" +
		"- : 4 plants\n" +
		"random prose line\n" +
		"- Whiteflies (Infested): 2 plants"

	counts := ParseLegacyConditionNotes(notes)
	if len(counts) != 2 {
		t.Fatalf("parsed %d entries, want 2: %v", len(counts), counts)
	}
	if counts.CountFor("Whiteflies (Infested)") != 2 {
		t.Errorf("Whiteflies count = %d, want 2", counts.CountFor("Whiteflies (Infested)"))
	}
}

func TestParseLegacyConditionNotes_Empty(t *testing.T) {
	if counts := ParseLegacyConditionNotes(""); counts != nil {
		t.Errorf("empty notes should parse to nil, got %v", counts)
	}
}

func TestRenderConditionNotes(t *testing.T) {
	counts := ConditionCounts{
		{Condition: "Aphids (Infested)", Count: 4},
		{Condition: "Healthy", Count: 2},
	}

	got := RenderConditionNotes(counts)
	want := "Condition breakdown:\n" +
		"- Aphids (Infested): 4 plants\n" +
		"- Healthy: 2 plants"
	if got != want {
		t.Errorf("RenderConditionNotes() = %q, want %q", got, want)
	}

	if RenderConditionNotes(nil) != "" {
		t.Error("empty counts should render to an empty string")
	}
}

// TestRenderParseRoundTrip verifies the rendered breakdown is recoverable by
// the legacy parser, which is what keeps old and new records convertible.
func TestRenderParseRoundTrip(t *testing.T) {
	counts := ConditionCounts{
		{Condition: "Leaf Spot (Diseased)", Count: 3},
		{Condition: "Aphids (Infested)", Count: 1},
	}

	parsed := ParseLegacyConditionNotes(RenderConditionNotes(counts))
	if len(parsed) != len(counts) {
		t.Fatalf("round trip produced %d entries, want %d", len(parsed), len(counts))
	}
	for i := range counts {
		if parsed[i] != counts[i] {
			t.Errorf("entry %d = %+v, want %+v", i, parsed[i], counts[i])
		}
	}
}
