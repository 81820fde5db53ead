package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/scrubd-io/scrubd/internal/classifier"
	"github.com/scrubd-io/scrubd/internal/config"
)

var patternsFormat string

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List the compiled PII recognizers",
	RunE:  runPatterns,
}

func init() {
	patternsCmd.Flags().StringVar(&patternsFormat, "format", "text", "Output format: text or json")
	rootCmd.AddCommand(patternsCmd)
}

func runPatterns(cmd *cobra.Command, args []string) error {
	_, span := tracer.Start(cmd.Context(), "patterns")
	defer span.End()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	if patternsFormat == "json" {
		return renderPatternsJSON(cmd.OutOrStdout(), engine.Scanner().Recognizers())
	}
	renderPatternsText(cmd.OutOrStdout(), engine.Scanner().Recognizers())
	return nil
}

type recognizerSummary struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Sensitivity int    `json:"sensitivity"`
	Validator   string `json:"validator,omitempty"`
	Patterns    int    `json:"patterns"`
}

// summarize collapses the per-pattern list into one entry per recognizer.
func summarize(compiled []classifier.PIIPattern) []recognizerSummary {
	var out []recognizerSummary
	index := make(map[string]int)
	for i := range compiled {
		p := &compiled[i]
		if at, ok := index[p.Name]; ok {
			out[at].Patterns++
			continue
		}
		index[p.Name] = len(out)
		out = append(out, recognizerSummary{
			Name:        p.Name,
			Label:       p.Label,
			Sensitivity: p.Sensitivity,
			Validator:   p.Validator,
			Patterns:    1,
		})
	}
	return out
}

func renderPatternsText(w io.Writer, compiled []classifier.PIIPattern) {
	summaries := summarize(compiled)
	fmt.Fprintf(w, "Recognizers (%d):\n\n", len(summaries))
	for _, s := range summaries {
		validator := s.Validator
		if validator == "" {
			validator = "-"
		}
		fmt.Fprintf(w, "  %-24s %-14s sensitivity %d | validator %-12s | %d pattern(s)\n",
			s.Name, s.Label, s.Sensitivity, validator, s.Patterns)
	}
}

func renderPatternsJSON(w io.Writer, compiled []classifier.PIIPattern) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summarize(compiled))
}
