package types

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// legacyCountLine matches the per-condition breakdown lines the legacy system
// embedded in plant notes, e.g. "- Aphids (Infested): 4 plants".
var legacyCountLine = regexp.MustCompile(`^-\s*(.+?):\s*(\d+)\s*plants?\s*$`)

// ParseLegacyConditionNotes recovers the structured per-condition count
// breakdown from a legacy notes blob. Lines that do not match the breakdown
// format are ignored. Used once when migrating old records; new records carry
// ConditionCounts directly.
func ParseLegacyConditionNotes(notes string) ConditionCounts {
	var out ConditionCounts
	for _, line := range strings.Split(notes, "\n") {
		m := legacyCountLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[2])
		if err != nil || n <= 0 {
			continue
		}
		out = append(out, ConditionCount{Condition: strings.TrimSpace(m[1]), Count: n})
	}
	return out
}

// RenderConditionNotes produces the human-readable breakdown for display.
// This is a rendering artifact only; the engine never parses it back.
func RenderConditionNotes(counts ConditionCounts) string {
	if len(counts) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Condition breakdown:\n")
	for _, cc := range counts {
		fmt.Fprintf(&b, "- %s: %d plants\n", cc.Condition, cc.Count)
	}
	return strings.TrimRight(b.String(), "\n")
}

// GroupDisplayName renders the aggregate display-name convention for group
// records, e.g. "Tomato Group (6 plants, 2 conditions)".
func GroupDisplayName(base string, counts ConditionCounts) string {
	return fmt.Sprintf("%s (%d plants, %d conditions)", base, counts.Total(), len(counts))
}
