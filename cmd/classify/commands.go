package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/Quan024/Phan-loai-bao/infrastructure/artifacts"
	"github.com/Quan024/Phan-loai-bao/infrastructure/config"
	"github.com/Quan024/Phan-loai-bao/infrastructure/dataset"
	"github.com/Quan024/Phan-loai-bao/infrastructure/di"
	"github.com/Quan024/Phan-loai-bao/pkg/api"

	"github.com/spf13/cobra"
)

var (
	configPath string
	seed       uint64
	jsonOutput bool

	rootCmd = &cobra.Command{
		Use:          "classify",
		Short:        "Classify paper titles with the citation graph network",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				return os.Setenv("CONFIG_PATH", configPath)
			}
			return nil
		},
	}

	predictCmd = &cobra.Command{
		Use:   "predict [title...]",
		Short: "Add each title to the graph in order and print its top classes",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runPredict,
	}

	inspectCmd = &cobra.Command{
		Use:   "inspect",
		Short: "Load the dataset and weights and print their shapes",
		Args:  cobra.NoArgs,
		RunE:  runInspect,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the YAML config (overrides CONFIG_PATH)")
	predictCmd.Flags().Uint64Var(&seed, "seed", 0, "embedding seed, 0 draws from the clock")
	predictCmd.Flags().BoolVar(&jsonOutput, "json", false, "print one JSON object per title")

	rootCmd.AddCommand(predictCmd, inspectCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	// One-shot runs need neither hot reload nor remote sinks.
	cfg.Source = ""
	cfg.Tracing.Enabled = false
	cfg.Metrics.Enabled = false
	cfg.Events.Provider = "none"
	if cfg.Logging.Level == "info" {
		cfg.Logging.Level = "warn"
	}
	return cfg, nil
}

func runPredict(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		cfg.Embedding.Seed = seed
	}

	ctx := cmd.Context()
	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = container.Close(closeCtx)
	}()

	out := cmd.OutOrStdout()
	for _, title := range args {
		result, err := container.Classifier.Predict(ctx, title)
		if err != nil {
			return fmt.Errorf("%q: %w", title, err)
		}

		resp := api.PredictResponse{Title: result.Paper.Title.String()}
		for _, p := range result.Predictions {
			resp.Predictions = append(resp.Predictions, api.PredictionItem{Class: p.Label, Confidence: p.Confidence()})
		}
		if err := printPrediction(out, resp, result.Attachment.NodeIndex, result.Attachment.AttachedTo); err != nil {
			return err
		}
	}
	return nil
}

func printPrediction(out io.Writer, resp api.PredictResponse, nodeIndex, attachedTo int) error {
	if jsonOutput {
		return json.NewEncoder(out).Encode(resp)
	}

	fmt.Fprintf(out, "%s (node %d, attached to %d)\n", resp.Title, nodeIndex, attachedTo)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for i, p := range resp.Predictions {
		fmt.Fprintf(tw, "  %d.\t%s\t%.2f%%\n", i+1, p.Class, p.Confidence)
	}
	return tw.Flush()
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	classes, err := di.ProvideClassTable(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	start := time.Now()
	bundle, err := artifacts.Load(ctx, artifacts.Options{
		Dataset: dataset.Options{
			ContentPath:       cfg.Dataset.ContentPath,
			CitesPath:         cfg.Dataset.CitesPath,
			Classes:           classes,
			NormalizeFeatures: cfg.Dataset.NormalizeFeatures,
		},
		WeightsPath: cfg.Model.WeightsPath,
	})
	if err != nil {
		return err
	}
	model, err := bundle.Model()
	if err != nil {
		return err
	}

	ds := bundle.Dataset
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "nodes\t%d\n", ds.NumNodes)
	fmt.Fprintf(tw, "features\t%d\n", ds.NumFeatures)
	fmt.Fprintf(tw, "directed edges\t%d\n", len(ds.Src))
	fmt.Fprintf(tw, "skipped citations\t%d\n", ds.SkippedCitations)
	fmt.Fprintf(tw, "hidden channels\t%d\n", model.Hidden())
	fmt.Fprintf(tw, "classes\t%d\n", model.NumClasses())
	for id, label := range classes.Labels() {
		fmt.Fprintf(tw, "  class %d\t%s\n", id, label)
	}
	fmt.Fprintf(tw, "load time\t%s\n", time.Since(start).Round(time.Millisecond))
	return tw.Flush()
}
