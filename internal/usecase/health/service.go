// Package health aggregates component checks for the /health endpoint.
package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure; recommendations may still work.
	Degraded Status = "degraded"
	// Unhealthy indicates the index is not loaded and nothing can be served.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names used as Report.Checks keys.
const (
	ComponentDatabase = "database"
	ComponentLLM      = "llm"
	ComponentIndex    = "index"
)

// Report aggregates health check results.
type Report struct {
	Status   Status
	Checks   map[string]CheckResult
	Products int
	BuildID  string
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	llm       LLMChecker
	snapshots Snapshots
}

// New creates a Service. db and llm can be nil.
func New(db DBPinger, llm LLMChecker, snapshots Snapshots) *Service {
	return &Service{db: db, llm: llm, snapshots: snapshots}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	r := Report{Status: Healthy, Checks: make(map[string]CheckResult)}

	if s.db != nil {
		r.Checks[ComponentDatabase] = result(s.db.Ping(ctx))
	}
	if s.llm != nil {
		r.Checks[ComponentLLM] = result(s.llm.HealthCheck(ctx))
	}

	snap, err := s.snapshots.Current()
	r.Checks[ComponentIndex] = result(err)
	if err == nil {
		r.Products = snap.Len()
		r.BuildID = snap.BuildID()
	}

	for _, v := range r.Checks {
		if v == CheckError {
			r.Status = Degraded
			break
		}
	}
	if r.Checks[ComponentIndex] == CheckError {
		r.Status = Unhealthy
	}
	return r
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
