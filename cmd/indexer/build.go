package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/buyingguide/internal/metrics"
	"github.com/kailas-cloud/buyingguide/internal/usecase/builder"
)

type buildOptions struct {
	metadata  string
	reviews   string
	output    string
	workDir   string
	workers   int
	batchSize int
	resume    bool
	fresh     bool
	publish   bool
	redis     redisOptions
}

func newBuildCmd(a *app) *cobra.Command {
	o := &buildOptions{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Run the three index passes over raw metadata and review dumps",
		Long: `Build filters product metadata to headphones, keeps reviews of those
products, and aggregates them into a JSON Lines index with a manifest.
Inputs may be .jsonl, .jsonl.gz, .jsonl.zst or .parquet.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, a, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.metadata, "metadata", "", "raw product metadata dump (required)")
	f.StringVar(&o.reviews, "reviews", "", "raw review dump (required)")
	f.StringVarP(&o.output, "output", "o", "data/headphones_index.jsonl", "index destination")
	f.StringVar(&o.workDir, "work-dir", "data/work", "directory for intermediate files and build state")
	f.IntVar(&o.workers, "workers", 0, "aggregation workers (default: number of CPUs)")
	f.IntVar(&o.batchSize, "batch-size", 0, "reviews per aggregation batch")
	f.BoolVar(&o.resume, "resume", false, "skip passes whose inputs and outputs are unchanged")
	f.BoolVar(&o.fresh, "fresh", false, "remove intermediate files and state before building")
	f.BoolVar(&o.publish, "publish", false, "verify and publish the index after a successful build")
	o.redis.bind(cmd)
	_ = cmd.MarkFlagRequired("metadata")
	_ = cmd.MarkFlagRequired("reviews")
	return cmd
}

func runBuild(cmd *cobra.Command, a *app, o *buildOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := builder.New(builder.Config{
		WorkDir:   o.workDir,
		Workers:   o.workers,
		BatchSize: o.batchSize,
		Resume:    o.resume,
	}, metrics.NewBuilderMetrics(a.registry), a.logger)

	if o.fresh {
		if err := svc.Reset(); err != nil {
			return err
		}
	}

	rep, err := svc.Build(ctx, builder.Inputs{Metadata: o.metadata, Reviews: o.reviews, Output: o.output})
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "build %s -> %s\n", rep.BuildID, rep.Output)
	for _, p := range []struct {
		name  string
		stats builder.PassStats
	}{
		{builder.PassProducts, rep.Products},
		{builder.PassReviews, rep.Reviews},
		{builder.PassAggregate, rep.Aggregate},
	} {
		resumed := ""
		if p.stats.Resumed {
			resumed = " (resumed)"
		}
		fmt.Fprintf(out, "  %-9s read=%d kept=%d skipped=%v %s%s\n",
			p.name, p.stats.Read, p.stats.Kept, p.stats.Skipped, p.stats.Duration.Round(time.Millisecond), resumed)
	}

	if !o.publish {
		return nil
	}
	store, err := o.redis.open(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := publish(ctx, rep.Output, store, a.logger)
	if err != nil {
		return err
	}
	a.logger.Info("build published", zap.String("build_id", rec.BuildID))
	fmt.Fprintf(out, "published %s (%d products)\n", rec.BuildID, rec.Products)
	return nil
}
