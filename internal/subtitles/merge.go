package subtitles

import "fmt"

// MergeBilingual pairs primary and secondary cues by index and stacks their
// text under the primary cue's timing window. When the lists differ in length
// the extra cues are dropped and a warning is returned; mismatches are not an
// error.
func MergeBilingual(primary, secondary []Cue) ([]Cue, []string) {
	var warnings []string
	count := len(primary)
	if len(secondary) < count {
		count = len(secondary)
	}
	if len(primary) != len(secondary) {
		warnings = append(warnings, fmt.Sprintf(
			"subtitle cue counts differ: %d primary vs %d secondary, pairing by index up to %d",
			len(primary), len(secondary), count))
	}

	merged := make([]Cue, 0, count)
	for i := 0; i < count; i++ {
		merged = append(merged, Cue{
			Index: i + 1,
			Start: primary[i].Start,
			End:   primary[i].End,
			Text:  primary[i].Text + "\n" + secondary[i].Text,
		})
	}
	return merged, warnings
}
