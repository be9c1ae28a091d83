package health

import "context"

// Checker checks one dependency. Redis pingers, embedders, chat models and the
// cross-encoder client all satisfy it through small adapters in main.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// CheckerFunc adapts a plain function to Checker.
type CheckerFunc func(ctx context.Context) error

// HealthCheck calls f.
func (f CheckerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

// Pinger adapts a DBPinger to Checker.
func Pinger(p DBPinger) Checker {
	return CheckerFunc(p.Ping)
}
