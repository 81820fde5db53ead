package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scrubd-io/scrubd/internal/config"
	"github.com/scrubd-io/scrubd/internal/mask"
	"github.com/scrubd-io/scrubd/internal/pipeline"
)

var (
	maskMode         string
	maskModeAlias    string
	maskDetectMode   string
	maskMinConf      float64
	maskTypes        []string
	maskPlaceholders bool
	maskOutput       string
	maskNoAudit      bool
)

var maskCmd = &cobra.Command{
	Use:   "mask [text|file]",
	Short: "Detect PII and rewrite the matched spans",
	Long: `Mask detects PII in the given input and rewrites every matched span
according to the masking mode:

  partial    keep a recognizable fragment (last 4 digits, domain, year)
  full       replace with [REDACTED:LABEL] tokens
  synthetic  substitute checksum-valid fake values with a [SYN-n] watermark

The argument is treated as a file path when it names an existing file and as
literal text otherwise. Use '-' to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runMask,
}

func init() {
	maskCmd.Flags().StringVar(&maskMode, "mask-mode", mask.ModePartial, "Masking mode: partial, full, or synthetic")
	maskCmd.Flags().StringVar(&maskModeAlias, "masking", "", "Alias for --mask-mode")
	_ = maskCmd.Flags().MarkHidden("masking")
	maskCmd.Flags().StringVar(&maskDetectMode, "mode", "regex", "Detection mode: regex or hybrid")
	maskCmd.Flags().Float64Var(&maskMinConf, "min-confidence", -1, "Confidence threshold; entities below are left unmasked (default: from config)")
	maskCmd.Flags().StringSliceVar(&maskTypes, "mask-types", nil, "Only mask these labels (e.g. email,phone); default: all")
	maskCmd.Flags().BoolVar(&maskPlaceholders, "include-placeholders", false, "Also mask placeholder values")
	maskCmd.Flags().StringVarP(&maskOutput, "output", "o", "", "Write masked text to this file instead of stdout")
	maskCmd.Flags().BoolVar(&maskNoAudit, "no-audit", false, "Skip writing a signed audit record")
	rootCmd.AddCommand(maskCmd)
}

func runMask(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "mask")
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

	minConf := maskMinConf
	if minConf < 0 {
		minConf = cfg.MinConfidence
	}
	if maskModeAlias != "" {
		maskMode = maskModeAlias
	}

	text, partial, err := resolveInput(ctx, extractor, args[0])
	if err != nil {
		return err
	}

	res, err := engine.Mask(ctx, pipeline.MaskRequest{
		Text:          text,
		Mode:          maskDetectMode,
		MinConfidence: minConf,
		Masking: mask.Config{
			Mode:                maskMode,
			IncludePlaceholders: maskPlaceholders,
			MaskTypes:           maskTypes,
		},
	})
	if err != nil {
		return err
	}

	if !maskNoAudit {
		recordCLIAudit(ctx, cfg, res.Detection, text)
	}

	if partial {
		fmt.Fprintln(cmd.ErrOrStderr(), "Note: some rows could not be parsed and were skipped.")
	}
	if res.Detection.FilteredCount > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d low-confidence entities left unmasked.\n", res.Detection.FilteredCount)
	}

	if maskOutput != "" {
		if err := os.WriteFile(maskOutput, []byte(res.Masked), 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", maskOutput, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Masked text written to %s\n", maskOutput)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Masked)
	return nil
}
