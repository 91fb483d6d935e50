package plan

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/buyingguide/internal/domain/feature"
)

// UseCase is the listening scenario a plan targets.
type UseCase string

// Use cases understood by the ranking stage. The zero value means none.
const (
	UseCaseNone       UseCase = ""
	UseCaseCommute    UseCase = "commute"
	UseCaseGym        UseCase = "gym"
	UseCaseAudiophile UseCase = "audiophile"
	UseCaseGaming     UseCase = "gaming"
	UseCaseGeneral    UseCase = "general"
)

// Profile is the association table entry for a use case.
type Profile struct {
	// Tags boost the use-case signal when present on a candidate.
	Tags feature.Set
	// ExcludedCategories are rejected by the filter stage (lowercase).
	ExcludedCategories []string
}

var profiles = map[UseCase]Profile{
	UseCaseGym: {
		Tags:               feature.NewSet(feature.SweatProof, feature.SecureFit, feature.WaterResistant),
		ExcludedCategories: []string{"over-ear headphones"},
	},
	UseCaseCommute: {
		Tags: feature.NewSet(feature.ANC, feature.Wireless, feature.LongBattery, feature.Foldable),
	},
	UseCaseAudiophile: {
		Tags: feature.NewSet(feature.HiRes, feature.OpenBack, feature.Wired, feature.OverEar),
	},
	UseCaseGaming: {
		Tags: feature.NewSet(feature.Microphone, feature.LowLatency, feature.Surround),
	},
}

// ParseUseCase validates s. Empty input yields UseCaseNone.
func ParseUseCase(s string) (UseCase, error) {
	u := UseCase(strings.ToLower(strings.TrimSpace(s)))
	switch u {
	case UseCaseNone, UseCaseCommute, UseCaseGym, UseCaseAudiophile, UseCaseGaming, UseCaseGeneral:
		return u, nil
	default:
		return UseCaseNone, fmt.Errorf("unknown use case %q", s)
	}
}

// Profile returns the association entry; unknown and general use cases have none.
func (u UseCase) Profile() Profile {
	return profiles[u]
}
