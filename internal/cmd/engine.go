package cmd

import (
	"fmt"
	"strings"

	"github.com/scrubd-io/scrubd/internal/classifier"
	"github.com/scrubd-io/scrubd/internal/config"
	"github.com/scrubd-io/scrubd/internal/extract"
	"github.com/scrubd-io/scrubd/internal/nlp"
	"github.com/scrubd-io/scrubd/internal/pipeline"
	"github.com/scrubd-io/scrubd/internal/risk"
)

// buildEngine wires the detection pipeline from resolved configuration.
func buildEngine(cfg *config.Config) (*pipeline.Engine, error) {
	var scanOpts []classifier.ScannerOption
	if cfg.PatternsFile != "" {
		scanOpts = append(scanOpts, classifier.WithPatternFile(cfg.PatternsFile))
	}
	scanner, err := classifier.NewScanner(scanOpts...)
	if err != nil {
		return nil, fmt.Errorf("compiling recognizers: %w", err)
	}

	var supplier nlp.Supplier
	if cfg.NLPBaseURL != "" {
		supplier = nlp.NewHTTPSupplier(cfg.NLPBaseURL, 0)
	}

	return pipeline.New(scanner, risk.NewDefaultScorer(), supplier), nil
}

func buildExtractor(cfg *config.Config) *extract.Extractor {
	return extract.NewExtractor(cfg.MaxFileMB)
}

// parseAPIKeys splits the comma-separated api_keys setting.
func parseAPIKeys(raw string) []string {
	var keys []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			keys = append(keys, part)
		}
	}
	return keys
}
