// Package healthcheck defines the checks served by the web server.
package healthcheck

// HealthcheckFunc returns a status message and whether the check passed. Checks must not block; anything that
// needs a roundtrip should be tracked in the background and reported from there.
type HealthcheckFunc func() (string, HealthyStatus)

type HealthyStatus bool

const (
	Healthy   = HealthyStatus(true)
	Unhealthy = HealthyStatus(false)
)

// HealthCheckProvider is implemented by components that can tell if the process is ready for traffic.
type HealthCheckProvider interface {
	HealthChecks() []HealthcheckFunc
}

// DeepCheckProvider is implemented by components that depend on something outside the process.
type DeepCheckProvider interface {
	DeepChecks() []HealthcheckFunc
}

// MaybeAppendHealthChecks collects the checks of maybeProvider if it implements either provider interface.
func MaybeAppendHealthChecks(healthChecks []HealthcheckFunc, deepChecks []HealthcheckFunc, maybeProvider interface{}) ([]HealthcheckFunc, []HealthcheckFunc) {
	if hcp, ok := maybeProvider.(HealthCheckProvider); ok {
		healthChecks = append(healthChecks, hcp.HealthChecks()...)
	}
	if dcp, ok := maybeProvider.(DeepCheckProvider); ok {
		deepChecks = append(deepChecks, dcp.DeepChecks()...)
	}
	return healthChecks, deepChecks
}

// Run executes checks and splits their reports into passed and failed. Both slices are non-nil.
func Run(checks []HealthcheckFunc) (good []string, bad []string) {
	good = []string{}
	bad = []string{}
	for _, check := range checks {
		report, status := check()
		if status == Healthy {
			good = append(good, report)
		} else {
			bad = append(bad, report)
		}
	}
	return good, bad
}
