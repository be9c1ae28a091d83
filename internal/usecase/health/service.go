package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/callrag/internal/logger"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates a partial failure. The assist pipeline still answers,
	// possibly keyword-only or with the template fallback.
	Degraded Status = "degraded"
	// Unhealthy indicates the primary store is down.
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

// Component names reported in Report.Checks.
const (
	Database      = "database"
	Embedding     = "embedding"
	Chat          = "chat"
	CrossEncoder  = "cross_encoder"
	Elasticsearch = "elasticsearch"
	Postgres      = "postgres"
)

// DefaultTimeout bounds each individual check.
const DefaultTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Service coordinates health checks.
type Service struct {
	primary string
	checks  map[string]Checker
	timeout time.Duration
}

// New creates a Service. The database checker is primary: its failure marks the
// whole report Unhealthy. Optional checkers are added with With.
func New(db DBPinger) *Service {
	return &Service{
		primary: Database,
		checks:  map[string]Checker{Database: Pinger(db)},
		timeout: DefaultTimeout,
	}
}

// With registers an optional component. A nil checker is ignored.
func (s *Service) With(name string, c Checker) *Service {
	if c != nil {
		s.checks[name] = c
	}
	return s
}

// WithTimeout overrides the per-check timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs all registered checks concurrently.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]CheckResult, len(s.checks))
	)

	for name, c := range s.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			res := CheckOK
			if err := c.HealthCheck(cctx); err != nil {
				logger.FromContext(ctx).Warn("Health check failed",
					zap.String("component", name), zap.Error(err))
				res = CheckError
			}
			mu.Lock()
			checks[name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks[s.primary] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}
