package pipeline

import (
	"log/slog"

	"github.com/toricodesthings/workload-parser/internal/config"
	"github.com/toricodesthings/workload-parser/internal/convert"
	"github.com/toricodesthings/workload-parser/internal/converters"
	"github.com/toricodesthings/workload-parser/internal/workload"
)

// FromConfig wires the full converter registry and the workload parser.
// PatternsFile, when set, replaces the built-in patterns.
func FromConfig(cfg config.Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	wcfg := workload.Config{Logger: logger.With("component", "workload")}
	if cfg.PatternsFile != "" {
		pat, err := workload.LoadPatterns(cfg.PatternsFile)
		if err != nil {
			return nil, err
		}
		wcfg.Patterns = &pat
	}
	parser, err := workload.New(wcfg)
	if err != nil {
		return nil, err
	}

	registry := converters.NewRegistry(cfg, logger)
	return New(Config{
		Engine:          convert.NewEngine(registry, logger.With("component", "convert")),
		Parser:          parser,
		MaxFileBytes:    cfg.MaxUploadBytes,
		DownloadTimeout: cfg.DownloadTimeout,
		Logger:          logger.With("component", "pipeline"),
	}), nil
}
