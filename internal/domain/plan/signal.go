package plan

// Signal names one normalized scoring component.
type Signal string

// Scoring signals.
const (
	SignalBudgetFit    Signal = "budget_fit"
	SignalRating       Signal = "rating"
	SignalFeatureMatch Signal = "feature_match"
	SignalUseCase      Signal = "use_case"
	SignalPopularity   Signal = "popularity"
)

// Signals lists every signal in reporting order.
var Signals = []Signal{
	SignalBudgetFit,
	SignalRating,
	SignalFeatureMatch,
	SignalUseCase,
	SignalPopularity,
}

// DefaultWeights returns the documented default weight table. The weights sum to 1.
func DefaultWeights() map[Signal]float64 {
	return map[Signal]float64{
		SignalBudgetFit:    0.30,
		SignalRating:       0.30,
		SignalFeatureMatch: 0.20,
		SignalUseCase:      0.15,
		SignalPopularity:   0.05,
	}
}

// ParseSignal validates a signal name.
func ParseSignal(s string) (Signal, bool) {
	for _, sig := range Signals {
		if string(sig) == s {
			return sig, true
		}
	}
	return "", false
}
