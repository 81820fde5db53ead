package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/scrubd-io/scrubd/internal/audit"
	"github.com/scrubd-io/scrubd/internal/config"
	"github.com/scrubd-io/scrubd/internal/extract"
	"github.com/scrubd-io/scrubd/internal/pipeline"
)

var (
	scanMode    string
	scanMinConf float64
	scanFormat  string
	scanJSONOut string
	scanNoAudit bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [text|file|directory]",
	Short: "Detect PII in text, a file, or a directory of files",
	Long: `Scan detects PII in the given input and prints the entities found
together with an aggregate risk assessment.

The argument is treated as a file path when it names an existing file, as a
directory to scan recursively when it names one, and as literal text
otherwise. Use '-' to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanMode, "mode", "regex", "Detection mode: regex or hybrid")
	scanCmd.Flags().Float64Var(&scanMinConf, "min-confidence", -1, "Confidence threshold; entities below are dropped (default: from config)")
	scanCmd.Flags().StringVar(&scanFormat, "format", "text", "Output format: text or json")
	scanCmd.Flags().StringVar(&scanJSONOut, "json", "", "Also write the JSON report to this file")
	scanCmd.Flags().BoolVar(&scanNoAudit, "no-audit", false, "Skip writing a signed audit record")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "scan")
	defer span.End()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	extractor := buildExtractor(cfg)

	minConf := scanMinConf
	if minConf < 0 {
		minConf = cfg.MinConfidence
	}

	if info, statErr := os.Stat(args[0]); statErr == nil && info.IsDir() {
		return scanDirectory(ctx, cmd.OutOrStdout(), cfg, engine, extractor, args[0], minConf)
	}

	text, partial, err := resolveInput(ctx, extractor, args[0])
	if err != nil {
		return err
	}

	d, err := engine.Detect(ctx, pipeline.DetectRequest{
		Text:          text,
		Mode:          scanMode,
		MinConfidence: minConf,
	})
	if err != nil {
		return err
	}

	if !scanNoAudit {
		recordCLIAudit(ctx, cfg, d, text)
	}

	if scanJSONOut != "" {
		if err := writeJSONReport(scanJSONOut, func(w io.Writer) error {
			return renderDetectionJSON(w, d, partial)
		}); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if scanFormat == "json" {
		return renderDetectionJSON(out, d, partial)
	}
	renderDetectionText(out, d, partial)
	return nil
}

// writeJSONReport renders a JSON report into a file, 0600 like the other
// CLI outputs.
func writeJSONReport(path string, render func(io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// resolveInput treats the argument as a file when one exists at that path,
// as stdin when it is "-", and as literal text otherwise. Partial extraction
// (some rows skipped) is reported, not fatal.
func resolveInput(ctx context.Context, extractor *extract.Extractor, arg string) (text string, partial bool, err error) {
	if arg == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", false, fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), false, nil
	}
	if info, statErr := os.Stat(arg); statErr == nil && info.Mode().IsRegular() {
		text, err = extractor.Extract(ctx, arg)
		var pe *extract.PartialError
		if errors.As(err, &pe) {
			return pe.Text, true, nil
		}
		if err != nil {
			return "", false, fmt.Errorf("extracting %s: %w", arg, err)
		}
		return text, false, nil
	}
	return arg, false, nil
}

// scanDirectory walks root and scans every supported file, printing one
// summary line per file. Unsupported and unreadable files are skipped.
func scanDirectory(ctx context.Context, w io.Writer, cfg *config.Config, engine *pipeline.Engine, extractor *extract.Extractor, root string, minConf float64) error {
	type fileResult struct {
		Path     string `json:"path"`
		Entities int    `json:"entities"`
		Score    int    `json:"score"`
		Bucket   string `json:"bucket"`
	}
	var results []fileResult

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !extract.Supported(path) {
			return nil
		}
		text, _, err := resolveInput(ctx, extractor, path)
		if err != nil {
			log.Warn().Str("path", path).Err(err).Msg("skipping file")
			return nil
		}
		det, err := engine.Detect(ctx, pipeline.DetectRequest{Text: text, Mode: scanMode, MinConfidence: minConf})
		if err != nil {
			return err
		}
		if !scanNoAudit {
			recordCLIAudit(ctx, cfg, det, text)
		}
		results = append(results, fileResult{
			Path:     path,
			Entities: len(det.Entities),
			Score:    det.Risk.Score,
			Bucket:   det.Risk.Bucket,
		})
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("walking %s: %w", root, walkErr)
	}

	encodeResults := func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	if scanJSONOut != "" {
		if err := writeJSONReport(scanJSONOut, encodeResults); err != nil {
			return err
		}
	}
	if scanFormat == "json" {
		return encodeResults(w)
	}
	if len(results) == 0 {
		fmt.Fprintln(w, "No supported files found.")
		return nil
	}
	fmt.Fprintf(w, "Scanned %d files:\n\n", len(results))
	for _, r := range results {
		fmt.Fprintf(w, "  %-40s %3d entities | risk %3d (%s)\n", r.Path, r.Entities, r.Score, r.Bucket)
	}
	return nil
}

// renderDetectionText writes entities and the risk summary to w (testable).
func renderDetectionText(w io.Writer, d *pipeline.Detection, partial bool) {
	if partial {
		fmt.Fprintln(w, "Note: some rows could not be parsed and were skipped.")
	}
	if len(d.Entities) == 0 {
		fmt.Fprintln(w, "No PII detected.")
	} else {
		fmt.Fprintf(w, "Detected %d entities:\n\n", len(d.Entities))
		for i := range d.Entities {
			ent := &d.Entities[i]
			marker := ""
			if ent.IsPlaceholder {
				marker = " [placeholder]"
			}
			fmt.Fprintf(w, "  %-14s %.2f  [%d:%d)  %s%s\n",
				ent.Label, ent.Confidence, ent.Start, ent.End, ent.Value, marker)
		}
	}
	if d.FilteredCount > 0 {
		fmt.Fprintf(w, "\n%d low-confidence entities filtered.\n", d.FilteredCount)
	}
	fmt.Fprintf(w, "\nRisk: %d (%s)\n", d.Risk.Score, d.Risk.Bucket)
	if len(d.Risk.Compliance) > 0 {
		fmt.Fprintf(w, "Compliance: %s\n", strings.Join(d.Risk.Compliance, ", "))
	}
	if d.NLPDegraded {
		fmt.Fprintln(w, "Warning: NLP supplier unavailable, pattern-only results.")
	}
}

func renderDetectionJSON(w io.Writer, d *pipeline.Detection, partial bool) error {
	out := map[string]interface{}{
		"entities":       d.Entities,
		"risk":           d.Risk,
		"filtered_count": d.FilteredCount,
		"mode":           d.Mode,
		"nlp":            d.NLPUsed,
		"nlp_degraded":   d.NLPDegraded,
	}
	if partial {
		out["partial"] = true
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// recordCLIAudit appends a signed scan summary, best-effort.
func recordCLIAudit(ctx context.Context, cfg *config.Config, d *pipeline.Detection, text string) {
	if err := cfg.EnsureDataDir(); err != nil {
		log.Warn().Err(err).Msg("audit skipped: data directory")
		return
	}
	store, err := audit.NewStore(cfg.AuditDBPath(), cfg.SigningKey)
	if err != nil {
		log.Warn().Err(err).Msg("audit skipped: store unavailable")
		return
	}
	defer store.Close()

	rec := audit.NewRecord("cli", d.Mode, text)
	rec.PlaceholderCount = d.Risk.PlaceholderCount
	rec.FilteredCount = d.FilteredCount
	rec.RiskScore = d.Risk.Score
	rec.RiskBucket = d.Risk.Bucket
	for label, n := range d.Risk.Counts {
		rec.Counts[label] = n
	}

	auditCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := store.Append(auditCtx, rec); err != nil {
		log.Warn().Err(err).Msg("audit append failed")
	}
}
