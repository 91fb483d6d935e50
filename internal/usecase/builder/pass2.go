package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/buyingguide/internal/domain"
	"github.com/kailas-cloud/buyingguide/internal/repository/artifact"
	"github.com/kailas-cloud/buyingguide/internal/repository/source"
)

// filterReviews is pass 2: keep reviews of pass 1 survivors.
func (s *Service) filterReviews(ctx context.Context, in, productsPath, out string) (PassStats, error) {
	var stats PassStats
	ids, err := loadIDs(ctx, productsPath)
	if err != nil {
		return stats, err
	}

	f, err := artifact.CreateAtomic(out)
	if err != nil {
		return stats, err
	}
	defer f.Abort()

	decoded := 0
	err = source.Each(ctx, in, func(_ int, data []byte) error {
		s.countRead(PassReviews, &stats)

		var key reviewKey
		if err := json.Unmarshal(data, &key); err != nil {
			s.countSkip(PassReviews, reasonMalformed, &stats)
			return nil
		}
		decoded++
		id := key.ID()
		if _, ok := ids[id]; !ok {
			s.countSkip(PassReviews, reasonUnmatched, &stats)
			return nil
		}

		var raw RawReview
		if err := json.Unmarshal(data, &raw); err != nil {
			s.countSkip(PassReviews, reasonMalformed, &stats)
			return nil
		}
		star, ok := roundStar(raw.Rating)
		if !ok {
			s.countSkip(PassReviews, reasonMalformed, &stats)
			return nil
		}

		if err := f.Encode(reviewLine{
			ID:      id,
			Star:    star,
			Helpful: max(raw.HelpfulVote, 0),
			Text:    reviewText(raw.Title, raw.Text),
		}); err != nil {
			return err
		}
		s.countKept(PassReviews, &stats)
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("read %s: %w", filepath.Base(in), err)
	}
	if decoded == 0 {
		return stats, fmt.Errorf("%w: no decodable review records in %s", domain.ErrEmptyInput, in)
	}
	if stats.Kept == 0 {
		return stats, fmt.Errorf("%w: no reviews match the filtered products", domain.ErrEmptyInput)
	}
	if _, err := f.Commit(); err != nil {
		return stats, err
	}
	return stats, nil
}

func roundStar(rating *float64) (int, bool) {
	if rating == nil || math.IsNaN(*rating) || math.IsInf(*rating, 0) {
		return 0, false
	}
	star := int(math.Round(*rating))
	if star < 1 || star > 5 {
		return 0, false
	}
	return star, true
}

func reviewText(title, body string) string {
	title, body = strings.TrimSpace(title), strings.TrimSpace(body)
	switch {
	case title == "":
		return body
	case body == "":
		return title
	default:
		return title + ". " + body
	}
}

// loadIDs reads only the identifiers from the pass 1 file.
func loadIDs(ctx context.Context, path string) (map[string]struct{}, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	ids := make(map[string]struct{})
	err = artifact.ScanLines(ctx, f, func(line int, data []byte) error {
		var m struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("%s line %d: %w", filepath.Base(path), line, err)
		}
		ids[m.ID] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
