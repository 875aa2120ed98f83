package subtitles

import (
	"strings"
	"testing"
	"time"
)

const sampleSRT = `1
00:00:01,000 --> 00:00:03,500
Hello there.

2
00:00:04,000 --> 00:00:08,250
This is the second line.
It wraps.
`

func TestParse(t *testing.T) {
	cues, err := Parse(sampleSRT)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cues) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(cues))
	}
	if cues[0].Start != time.Second || cues[0].End != 3500*time.Millisecond {
		t.Fatalf("unexpected first cue timing: %v -> %v", cues[0].Start, cues[0].End)
	}
	if cues[1].Text != "This is the second line.\nIt wraps." {
		t.Fatalf("unexpected multiline text: %q", cues[1].Text)
	}
}

func TestParseToleratesPeriodSeparator(t *testing.T) {
	cues, err := Parse("1\n00:00:01.000 --> 00:00:02.000\nx\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cues[0].Start != time.Second {
		t.Fatalf("unexpected start: %v", cues[0].Start)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, bad := range []string{
		"not a number\n00:00:01,000 --> 00:00:02,000\nx",
		"1\n00:00:01,000 00:00:02,000\nx",
		"1\nbadtime --> 00:00:02,000\nx",
	} {
		if _, err := Parse(bad); err == nil {
			t.Fatalf("expected parse error for %q", bad)
		}
	}
}

func TestComposeRoundTrip(t *testing.T) {
	original, err := Parse(sampleSRT)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	reparsed, err := Parse(Compose(original))
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if len(reparsed) != len(original) {
		t.Fatalf("round trip changed cue count: %d -> %d", len(original), len(reparsed))
	}
	for i := range original {
		if reparsed[i].Start != original[i].Start || reparsed[i].End != original[i].End {
			t.Fatalf("cue %d timing changed", i)
		}
		if reparsed[i].Text != original[i].Text {
			t.Fatalf("cue %d text changed: %q -> %q", i, original[i].Text, reparsed[i].Text)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	cases := map[time.Duration]string{
		0: "00:00:00,000",
		time.Hour + 2*time.Minute + 3*time.Second + 45*time.Millisecond: "01:02:03,045",
		90 * time.Minute: "01:30:00,000",
	}
	for d, want := range cases {
		if got := FormatTimestamp(d); got != want {
			t.Fatalf("FormatTimestamp(%v) = %q, want %q", d, got, want)
		}
	}
}

func TestMergeBilingualEqualLength(t *testing.T) {
	en := []Cue{
		{Index: 1, Start: 0, End: 2 * time.Second, Text: "Hello."},
		{Index: 2, Start: 3 * time.Second, End: 5 * time.Second, Text: "Goodbye."},
	}
	zh := []Cue{
		{Index: 1, Start: 0, End: 2 * time.Second, Text: "你好。"},
		{Index: 2, Start: 3 * time.Second, End: 5 * time.Second, Text: "再见。"},
	}

	merged, warnings := MergeBilingual(en, zh)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(merged) != 2 {
		t.Fatalf("expected 2 merged cues, got %d", len(merged))
	}

	// Re-parse through the codec to confirm the bilingual layout survives.
	reparsed, err := Parse(Compose(merged))
	if err != nil {
		t.Fatalf("reparse merged: %v", err)
	}
	for i := range reparsed {
		if reparsed[i].Start != en[i].Start || reparsed[i].End != en[i].End {
			t.Fatalf("merged cue %d does not keep primary timing", i)
		}
		want := en[i].Text + "\n" + zh[i].Text
		if reparsed[i].Text != want {
			t.Fatalf("merged cue %d text = %q, want %q", i, reparsed[i].Text, want)
		}
	}
}

func TestMergeBilingualLengthMismatchWarns(t *testing.T) {
	en := []Cue{
		{Start: 0, End: time.Second, Text: "one"},
		{Start: time.Second, End: 2 * time.Second, Text: "two"},
		{Start: 2 * time.Second, End: 3 * time.Second, Text: "three"},
	}
	zh := []Cue{
		{Start: 0, End: time.Second, Text: "一"},
	}

	merged, warnings := MergeBilingual(en, zh)
	if len(merged) != 1 {
		t.Fatalf("expected pairing up to shorter length, got %d cues", len(merged))
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "3 primary vs 1 secondary") {
		t.Fatalf("expected mismatch warning, got %v", warnings)
	}
}

func TestMergeBilingualEmpty(t *testing.T) {
	merged, warnings := MergeBilingual(nil, nil)
	if len(merged) != 0 || len(warnings) != 0 {
		t.Fatalf("expected empty result, got %v / %v", merged, warnings)
	}
}
