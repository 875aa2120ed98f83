package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sublingo/internal/config"
	"sublingo/internal/pipeline"
)

// runFlags are the per-run configuration overrides shared by the process,
// batch, and subtitles commands.
type runFlags struct {
	device         string
	sourceLanguage string
	targetLanguage string
	outputFormat   string
	termDictionary string
	enableTTS      bool
	enableTerms    bool
	maxRetries     int
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.device, "device", "", "Compute device (auto, cpu, cuda, mps)")
	cmd.Flags().StringVar(&f.sourceLanguage, "source-lang", "", "Source language code (empty for auto-detect)")
	cmd.Flags().StringVar(&f.targetLanguage, "target-lang", "", "Target translation language code")
	cmd.Flags().StringVar(&f.outputFormat, "output-format", "", "Output container format (mp4, mkv, ...)")
	cmd.Flags().StringVar(&f.termDictionary, "term-dict", "", "CSV term dictionary path (enables term processing)")
	cmd.Flags().BoolVar(&f.enableTTS, "tts", false, "Synthesize translated speech alongside subtitles")
	cmd.Flags().BoolVar(&f.enableTerms, "terms", false, "Apply term dictionary substitutions")
	cmd.Flags().IntVar(&f.maxRetries, "max-retries", 0, "Retry attempts per pipeline step")
}

// overrides converts only the flags the user actually set.
func (f *runFlags) overrides(cmd *cobra.Command) config.Overrides {
	var o config.Overrides
	flags := cmd.Flags()
	if flags.Changed("device") {
		o.Device = &f.device
	}
	if flags.Changed("source-lang") {
		o.SourceLanguage = &f.sourceLanguage
	}
	if flags.Changed("target-lang") {
		o.TargetLanguage = &f.targetLanguage
	}
	if flags.Changed("output-format") {
		o.OutputFormat = &f.outputFormat
	}
	if flags.Changed("term-dict") {
		o.TermDictionaryPath = &f.termDictionary
		enabled := strings.TrimSpace(f.termDictionary) != ""
		o.EnableTermProcessing = &enabled
	}
	if flags.Changed("tts") {
		o.EnableTTS = &f.enableTTS
	}
	if flags.Changed("terms") {
		o.EnableTermProcessing = &f.enableTerms
	}
	if flags.Changed("max-retries") {
		o.MaxRetries = &f.maxRetries
	}
	return o
}

func printRunSummary(out io.Writer, state *pipeline.State) {
	rows := make([][]string, 0, len(state.Results()))
	for _, res := range state.Results() {
		detail := res.OutputPath
		if res.ErrorMessage != "" {
			detail = res.ErrorMessage
		}
		rows = append(rows, []string{
			res.StepName,
			string(res.Status),
			formatDuration(res.Duration),
			detail,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Step", "Status", "Duration", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	))

	for _, warning := range state.Warnings {
		fmt.Fprintf(out, "Warning: %s\n", warning)
	}
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second / 10).String()
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
