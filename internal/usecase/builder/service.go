// Package builder turns raw marketplace dumps into the product index in
// three streaming passes.
package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/buyingguide/internal/metrics"
)

// Pass names used in metrics, state and reports.
const (
	PassProducts  = "products"
	PassReviews   = "reviews"
	PassAggregate = "aggregate"
)

const (
	productsFile = "products.jsonl"
	reviewsFile  = "reviews.jsonl"

	defaultBatchSize = 512
)

// Skip reasons shared by the passes.
const (
	reasonMalformed = "malformed"
	reasonDuplicate = "duplicate"
	reasonNoPrice   = "no_price"
	reasonUnmatched = "unmatched"
	reasonNoReviews = "no_reviews"
	reasonInvalid   = "invalid"
)

// Config tunes a build.
type Config struct {
	// WorkDir holds intermediate files and state.json.
	WorkDir string
	// Workers is the aggregation pool size. Defaults to runtime.NumCPU().
	Workers int
	// BatchSize is the number of reviews per aggregation batch.
	BatchSize int
	// Resume skips passes whose inputs and outputs are unchanged since the
	// last recorded run.
	Resume bool
}

// Inputs names the raw dumps and the index destination.
type Inputs struct {
	Metadata string
	Reviews  string
	Output   string
}

// PassStats summarizes one pass.
type PassStats struct {
	Read     int64            `json:"read"`
	Kept     int64            `json:"kept"`
	Skipped  map[string]int64 `json:"skipped,omitempty"`
	Duration time.Duration    `json:"duration"`
	Resumed  bool             `json:"resumed,omitempty"`
}

func (s *PassStats) skip(reason string) {
	if s.Skipped == nil {
		s.Skipped = make(map[string]int64)
	}
	s.Skipped[reason]++
}

// Report is the outcome of a successful build.
type Report struct {
	BuildID   string
	Output    string
	SHA256    string
	Products  PassStats
	Reviews   PassStats
	Aggregate PassStats
}

// Service runs builds.
type Service struct {
	cfg     Config
	metrics *metrics.BuilderMetrics
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a builder Service. m may be nil.
func New(cfg Config, m *metrics.BuilderMetrics, logger *zap.Logger) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{cfg: cfg, metrics: m, logger: logger, now: time.Now}
}

// Build runs the three passes. On failure nothing is renamed over
// in.Output.
func (s *Service) Build(ctx context.Context, in Inputs) (Report, error) {
	if in.Metadata == "" || in.Reviews == "" || in.Output == "" {
		return Report{}, fmt.Errorf("metadata, reviews and output paths are required")
	}
	if err := os.MkdirAll(s.cfg.WorkDir, 0o750); err != nil {
		return Report{}, fmt.Errorf("create work dir: %w", err)
	}

	st := loadState(s.statePath(), s.logger)
	productsPath := filepath.Join(s.cfg.WorkDir, productsFile)
	reviewsPath := filepath.Join(s.cfg.WorkDir, reviewsFile)

	var rep Report
	var err error

	rep.Products, err = s.runPass(ctx, st, PassProducts, []string{in.Metadata}, productsPath,
		func(ctx context.Context) (PassStats, error) {
			return s.filterProducts(ctx, in.Metadata, productsPath)
		})
	if err != nil {
		return rep, err
	}

	rep.Reviews, err = s.runPass(ctx, st, PassReviews, []string{in.Reviews, productsPath}, reviewsPath,
		func(ctx context.Context) (PassStats, error) {
			return s.filterReviews(ctx, in.Reviews, productsPath, reviewsPath)
		})
	if err != nil {
		return rep, err
	}

	start := s.now()
	res, err := s.aggregate(ctx, productsPath, reviewsPath, in.Output,
		map[string]PassStats{PassProducts: rep.Products, PassReviews: rep.Reviews})
	if err != nil {
		return rep, err
	}
	res.stats.Duration = s.now().Sub(start)
	s.observePass(PassAggregate, res.stats)

	rep.Aggregate = res.stats
	rep.BuildID = res.manifest.BuildID
	rep.SHA256 = res.manifest.SHA256
	rep.Output = in.Output

	if s.metrics != nil {
		s.metrics.Products.Set(float64(res.manifest.Products))
	}
	s.logger.Info("index built",
		zap.String("build_id", rep.BuildID),
		zap.String("output", in.Output),
		zap.Int("products", res.manifest.Products),
		zap.Int64("reviews", res.manifest.Reviews),
	)
	return rep, nil
}

// runPass runs fn unless resuming and the recorded fingerprints still match.
func (s *Service) runPass(
	ctx context.Context, st *state, pass string, inputs []string, output string,
	fn func(context.Context) (PassStats, error),
) (PassStats, error) {
	fps, err := fingerprints(inputs)
	if err != nil {
		return PassStats{}, err
	}

	if s.cfg.Resume {
		if rec, ok := st.completed(pass, fps, output); ok {
			s.logger.Info("pass up to date, skipping", zap.String("pass", pass))
			rec.Stats.Resumed = true
			return rec.Stats, nil
		}
	}

	start := s.now()
	stats, err := fn(ctx)
	if err != nil {
		return stats, fmt.Errorf("%s pass: %w", pass, err)
	}
	stats.Duration = s.now().Sub(start)
	s.observePass(pass, stats)

	out, err := fingerprintOf(output)
	if err != nil {
		return stats, err
	}
	st.record(pass, passRecord{Inputs: fps, Output: out, Stats: stats, CompletedAt: s.now().UTC()})
	if err := st.save(s.statePath()); err != nil {
		// The build itself succeeded; a lost state file only costs a rerun.
		s.logger.Warn("failed to save builder state", zap.Error(err))
	}
	return stats, nil
}

func (s *Service) observePass(pass string, stats PassStats) {
	s.logger.Info("pass complete",
		zap.String("pass", pass),
		zap.Int64("read", stats.Read),
		zap.Int64("kept", stats.Kept),
		zap.Any("skipped", stats.Skipped),
		zap.Duration("duration", stats.Duration),
	)
	if s.metrics == nil {
		return
	}
	s.metrics.PassDuration.WithLabelValues(pass).Observe(stats.Duration.Seconds())
}

func (s *Service) countRead(pass string, st *PassStats) {
	st.Read++
	if s.metrics != nil {
		s.metrics.RecordsRead.WithLabelValues(pass).Inc()
	}
}

func (s *Service) countKept(pass string, st *PassStats) {
	st.Kept++
	if s.metrics != nil {
		s.metrics.RecordsKept.WithLabelValues(pass).Inc()
	}
}

func (s *Service) countSkip(pass, reason string, st *PassStats) {
	st.skip(reason)
	if s.metrics != nil {
		s.metrics.RecordsSkipped.WithLabelValues(pass, reason).Inc()
	}
}

// Reset removes intermediate files and recorded state.
func (s *Service) Reset() error {
	for _, name := range []string{stateFile, productsFile, reviewsFile} {
		if err := os.Remove(filepath.Join(s.cfg.WorkDir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("reset %s: %w", name, err)
		}
	}
	return nil
}

func (s *Service) statePath() string {
	return filepath.Join(s.cfg.WorkDir, stateFile)
}
