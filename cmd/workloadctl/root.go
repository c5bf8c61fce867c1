package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/toricodesthings/workload-parser/internal/config"
	"github.com/toricodesthings/workload-parser/internal/pipeline"
	"github.com/toricodesthings/workload-parser/internal/workload"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "workloadctl",
		Short:         "Parse academic workload documents from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("patterns", "", "YAML patterns file (overrides PATTERNS_FILE)")
	root.AddCommand(newParseCmd(), newPatternsCmd())
	return root
}

func newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a workload document and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			verbose, _ := cmd.Flags().GetBool("verbose")
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			pipe, err := pipeline.FromConfig(cfg, logger)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ParseTimeout)
			defer cancel()

			res, err := pipe.ProcessFile(ctx, args[0])
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			compact, _ := cmd.Flags().GetBool("compact")
			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(res)
		},
	}
	cmd.Flags().Bool("compact", false, "print single-line JSON")
	cmd.Flags().BoolP("verbose", "v", false, "log conversion details to stderr")
	return cmd
}

func newPatternsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "Print the active row and signature patterns as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			pat := workload.DefaultPatterns()
			if cfg.PatternsFile != "" {
				if pat, err = workload.LoadPatterns(cfg.PatternsFile); err != nil {
					return err
				}
			}
			if _, err := workload.New(workload.Config{Patterns: &pat}); err != nil {
				return fmt.Errorf("invalid patterns: %w", err)
			}
			b, err := pat.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Load()
	if p, _ := cmd.Flags().GetString("patterns"); p != "" {
		if _, err := os.Stat(p); err != nil {
			return cfg, fmt.Errorf("patterns file: %w", err)
		}
		cfg.PatternsFile = p
	}
	return cfg, nil
}
