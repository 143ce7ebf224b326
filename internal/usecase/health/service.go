package health

import (
	"context"
	"strconv"

	"github.com/kailas-cloud/searchsync/internal/domain/record"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the backend is up but some documents failed to sync.
	Degraded Status = "degraded"
	// Unhealthy indicates the search backend is unreachable.
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

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	// Details carries numeric context such as failed ledger entries.
	Details map[string]string
}

// Service coordinates health checks.
type Service struct {
	backend BackendPinger
	ledger  LedgerReader
}

// New creates a Service. ledger can be nil.
func New(backend BackendPinger, ledger LedgerReader) *Service {
	return &Service{backend: backend, ledger: ledger}
}

// Check pings the backend and inspects the sync ledger.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	details := make(map[string]string)

	if s.backend.Ping(ctx) {
		checks["backend"] = CheckOK
	} else {
		checks["backend"] = CheckError
	}

	if s.ledger != nil {
		counts := s.ledger.StatusCounts()
		failed := 0
		for status, n := range counts {
			details["sync_"+string(status)] = strconv.Itoa(n)
			if status == record.StatusFailed {
				failed = n
			}
		}
		details["sync_queue"] = strconv.Itoa(s.ledger.QueueLen())
		if failed > 0 {
			checks["sync"] = CheckError
		} else {
			checks["sync"] = CheckOK
		}
	}

	status := Healthy
	switch {
	case checks["backend"] == CheckError:
		status = Unhealthy
	case checks["sync"] == CheckError:
		status = Degraded
	}

	return Report{Status: status, Checks: checks, Details: details}
}
