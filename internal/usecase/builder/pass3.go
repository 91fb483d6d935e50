package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/buyingguide/internal/domain"
	"github.com/kailas-cloud/buyingguide/internal/repository/artifact"
)

type aggregateResult struct {
	stats    PassStats
	manifest artifact.Manifest
}

// aggregate is pass 3: reader -> batches -> N workers -> merge -> index.
func (s *Service) aggregate(
	ctx context.Context, productsPath, reviewsPath, out string, earlier map[string]PassStats,
) (aggregateResult, error) {
	var res aggregateResult

	metas, err := loadMetas(ctx, productsPath)
	if err != nil {
		return res, fmt.Errorf("%s pass: %w", PassAggregate, err)
	}

	accs, reviews, err := s.foldReviews(ctx, reviewsPath)
	if err != nil {
		return res, fmt.Errorf("%s pass: %w", PassAggregate, err)
	}

	w, err := artifact.CreateIndex(out)
	if err != nil {
		return res, err
	}
	defer w.Abort()

	ids := make([]string, 0, len(metas))
	for id := range metas {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		s.countRead(PassAggregate, &res.stats)
		acc, ok := accs[id]
		if !ok || acc.Count() == 0 {
			s.countSkip(PassAggregate, reasonNoReviews, &res.stats)
			continue
		}
		p, err := acc.Product(metas[id])
		if err != nil {
			s.logger.Warn("dropping product that failed validation", zap.String("id", id), zap.Error(err))
			s.countSkip(PassAggregate, reasonInvalid, &res.stats)
			continue
		}
		if err := w.Write(p); err != nil {
			return res, err
		}
		s.countKept(PassAggregate, &res.stats)
	}

	if w.Count() == 0 {
		return res, fmt.Errorf("%w: no product has a surviving review", domain.ErrEmptyInput)
	}

	res.manifest, err = w.Commit(artifact.Manifest{
		BuildID:   uuid.NewString(),
		CreatedAt: s.now().UTC(),
		Reviews:   reviews,
		Skipped:   skippedByPass(earlier, res.stats),
	})
	if err != nil {
		return res, err
	}
	return res, nil
}

// foldReviews streams the pass 2 file through the worker pool and merges
// the per-worker partials.
func (s *Service) foldReviews(ctx context.Context, path string) (map[string]*Accumulator, int64, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	batches := make(chan []reviewLine, s.cfg.Workers*2)
	partials := make([]map[string]*Accumulator, s.cfg.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			partials[workerID] = s.worker(batches)
		}(i)
	}

	var total int64
	produceErr := func() error {
		defer close(batches)
		batch := make([]reviewLine, 0, s.cfg.BatchSize)
		err := artifact.ScanLines(ctx, f, func(line int, data []byte) error {
			var r reviewLine
			if err := json.Unmarshal(data, &r); err != nil {
				return fmt.Errorf("%s line %d: %w", filepath.Base(path), line, err)
			}
			total++
			batch = append(batch, r)
			if len(batch) >= s.cfg.BatchSize {
				select {
				case batches <- batch:
				case <-ctx.Done():
					return ctx.Err() //nolint:wrapcheck // context error
				}
				batch = make([]reviewLine, 0, s.cfg.BatchSize)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if len(batch) > 0 {
			batches <- batch
		}
		return nil
	}()

	wg.Wait()
	if produceErr != nil {
		return nil, 0, produceErr
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err //nolint:wrapcheck // context error
	}

	merged := make(map[string]*Accumulator)
	for _, part := range partials {
		for id, acc := range part {
			if dst, ok := merged[id]; ok {
				dst.Merge(acc)
				continue
			}
			merged[id] = acc
		}
	}
	return merged, total, nil
}

func (s *Service) worker(batches <-chan []reviewLine) map[string]*Accumulator {
	accs := make(map[string]*Accumulator)
	for batch := range batches {
		for _, r := range batch {
			acc, ok := accs[r.ID]
			if !ok {
				acc = NewAccumulator()
				accs[r.ID] = acc
			}
			acc.Add(r)
		}
		if s.metrics != nil {
			s.metrics.BatchesTotal.Inc()
		}
	}
	return accs
}

// skippedByPass flattens skip counters into "<pass>/<reason>" keys.
func skippedByPass(earlier map[string]PassStats, last PassStats) map[string]int64 {
	out := make(map[string]int64)
	add := func(pass string, st PassStats) {
		for reason, n := range st.Skipped {
			out[pass+"/"+reason] += n
		}
	}
	for pass, st := range earlier {
		add(pass, st)
	}
	add(PassAggregate, last)
	return out
}
