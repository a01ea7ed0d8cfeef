package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/knowledge"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

func newKBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Build and inspect knowledge-base artifacts",
	}
	cmd.AddCommand(newKBBuildCmd(), newKBInspectCmd())
	return cmd
}

func newKBBuildCmd() *cobra.Command {
	var (
		appID int
		out   string
		opts  knowledge.BuildOptions
		debug bool
	)
	cmd := &cobra.Command{
		Use:   "build [flags] <source-dir>",
		Short: "Embed a directory of documents into an application's artifact",
		Example: `  kotae kb build --app 1 ./corpus/recettes
  kotae kb build --out /tmp/test.kb --chunk-size 120 ./docs`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, _, err := loadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if out == "" {
				if out, err = artifactFor(cfg, appID); err != nil {
					return err
				}
			}

			logger, err := utils.NewLogger(cfg.Debug || debug)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer logger.Sync()

			embedder, err := embedding.New(cfg.Embedding, logger)
			if err != nil {
				return err
			}
			defer embedder.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			base, err := knowledge.NewBuilder(embedder, opts, logger).BuildDir(ctx, args[0])
			if err != nil {
				return err
			}
			if err := knowledge.Save(out, base); err != nil {
				return err
			}
			logger.Info("artifact written",
				zap.String("path", out),
				zap.Int("passages", base.Len()),
				zap.Int("dimensions", base.Dimensions),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d passages to %s\n", base.Len(), out)
			return nil
		},
	}
	cmd.Flags().IntVar(&appID, "app", 0, "application id whose artifact path is written")
	cmd.Flags().StringVar(&out, "out", "", "artifact path (overrides --app)")
	cmd.Flags().IntVar(&opts.ChunkSize, "chunk-size", 200, "passage size in words")
	cmd.Flags().IntVar(&opts.ChunkOverlap, "overlap", 40, "overlap between passages in words")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", 32, "passages per embedding call")
	cmd.Flags().StringSliceVar(&opts.Extensions, "ext", nil, "file extensions to read (default: all supported)")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return cmd
}

// artifactFor resolves the artifact path of a configured application.
func artifactFor(cfg *config.Config, appID int) (string, error) {
	if appID == 0 {
		return "", fmt.Errorf("either --app or --out is required")
	}
	for _, app := range cfg.Applications {
		if app.ID == appID {
			return knowledge.ArtifactPath(models.Application{
				ID:            app.ID,
				Name:          app.Name,
				KnowledgeBase: app.KnowledgeBase,
			}, cfg.DataPath), nil
		}
	}
	return "", fmt.Errorf("application %d is not declared in config", appID)
}

func newKBInspectCmd() *cobra.Command {
	var (
		samples int
		output  string
	)
	cmd := &cobra.Command{
		Use:   "inspect [flags] <artifact>",
		Short: "Summarize a knowledge-base artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseFormat(output)
			if err != nil {
				return err
			}
			summary, err := knowledge.Inspect(args[0], samples)
			if err != nil {
				return err
			}
			return cli.WriteSummary(cmd.OutOrStdout(), summary, format)
		},
	}
	cmd.Flags().IntVar(&samples, "samples", 3, "number of passages to preview")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	return cmd
}
