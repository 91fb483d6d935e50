package builder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// RawProduct is one product metadata record from the marketplace dump.
type RawProduct struct {
	ParentASIN   string          `json:"parent_asin"`
	ASIN         string          `json:"asin"`
	Title        string          `json:"title"`
	MainCategory string          `json:"main_category"`
	Categories   stringList      `json:"categories"`
	Price        any             `json:"price"`
	Features     stringList      `json:"features"`
	Description  stringList      `json:"description"`
	Details      json.RawMessage `json:"details"`
	Images       imageList       `json:"images"`
	Store        string          `json:"store"`
}

// ID returns the parent ASIN, falling back to the ASIN.
func (r *RawProduct) ID() string {
	if id := strings.TrimSpace(r.ParentASIN); id != "" {
		return id
	}
	return strings.TrimSpace(r.ASIN)
}

// DetailsText flattens the details object into lowercase text. Malformed
// details yield an empty string.
func (r *RawProduct) DetailsText() string {
	if len(r.Details) == 0 {
		return ""
	}
	var m map[string]any
	if err := json.Unmarshal(r.Details, &m); err != nil {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, m[k])
	}
	return strings.ToLower(b.String())
}

// LeafCategory returns the most specific category.
func (r *RawProduct) LeafCategory() string {
	for i := len(r.Categories) - 1; i >= 0; i-- {
		if c := strings.TrimSpace(r.Categories[i]); c != "" {
			return c
		}
	}
	return strings.TrimSpace(r.MainCategory)
}

// RawReview is one review record from the marketplace dump.
type RawReview struct {
	ParentASIN  string   `json:"parent_asin"`
	ASIN        string   `json:"asin"`
	Rating      *float64 `json:"rating"`
	Title       string   `json:"title"`
	Text        string   `json:"text"`
	HelpfulVote int      `json:"helpful_vote"`
}

// reviewKey is decoded first so unmatched reviews are dropped without
// materializing their text.
type reviewKey struct {
	ParentASIN string `json:"parent_asin"`
	ASIN       string `json:"asin"`
}

func (k reviewKey) ID() string {
	if id := strings.TrimSpace(k.ParentASIN); id != "" {
		return id
	}
	return strings.TrimSpace(k.ASIN)
}

// stringList accepts a JSON array of strings, a single string or null.
type stringList []string

func (s *stringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = nil
		return nil
	case len(data) > 0 && data[0] == '"':
		var one string
		if err := json.Unmarshal(data, &one); err != nil {
			return fmt.Errorf("string list: %w", err)
		}
		*s = stringList{one}
		return nil
	}
	var many []any
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("string list: %w", err)
	}
	out := make(stringList, 0, len(many))
	for _, v := range many {
		if str, ok := v.(string); ok {
			out = append(out, str)
		}
	}
	*s = out
	return nil
}

// imageList keeps the first usable URL of the images field, which is either
// a list of URL strings or a list of {hi_res, large, thumb} objects.
type imageList []string

func (l *imageList) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		// Images are cosmetic; ignore shapes we do not understand.
		*l = nil
		return nil //nolint:nilerr // tolerated
	}
	out := make(imageList, 0, len(items))
	for _, it := range items {
		var url string
		if err := json.Unmarshal(it, &url); err == nil {
			if url != "" {
				out = append(out, url)
			}
			continue
		}
		var obj struct {
			HiRes string `json:"hi_res"`
			Large string `json:"large"`
			Thumb string `json:"thumb"`
		}
		if err := json.Unmarshal(it, &obj); err != nil {
			continue
		}
		for _, u := range []string{obj.HiRes, obj.Large, obj.Thumb} {
			if u != "" {
				out = append(out, u)
				break
			}
		}
	}
	*l = out
	return nil
}

// First returns the first image URL or "".
func (l imageList) First() string {
	if len(l) == 0 {
		return ""
	}
	return l[0]
}
