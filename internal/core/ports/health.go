package ports

import "context"

// HealthChecker checks external dependency health.
type HealthChecker interface {
	// Ping verifies connectivity. Returns nil if healthy.
	Ping(ctx context.Context) error
	// Name returns the dependency name (e.g., "postgresql", "redis").
	Name() string
}

// CheckFunc adapts a ping function to HealthChecker.
func CheckFunc(name string, ping func(ctx context.Context) error) HealthChecker {
	return checkFunc{name: name, ping: ping}
}

type checkFunc struct {
	name string
	ping func(ctx context.Context) error
}

func (c checkFunc) Ping(ctx context.Context) error { return c.ping(ctx) }
func (c checkFunc) Name() string                   { return c.name }
