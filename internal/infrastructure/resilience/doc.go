/*
Package resilience provides circuit breaker implementation for graceful degradation.

# Overview

The resolution client wraps backend calls in a breaker so that an unreachable
backend fails fast and sessions fall back to cached flows (or to letting the
host proceed) instead of stacking timeouts.

# Features

- Three-state circuit breaker (Closed, Open, Half-Open)
- Error classification: only backend faults count against the circuit
- Cancelled calls are not judged either way
- Injectable clock for deterministic tests

# Usage

	breaker := resilience.New("resolve", resilience.Settings{
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsFailure: func(err error) bool {
			return errors.Is(err, client.ErrNetwork) || errors.Is(err, client.ErrServer)
		},
	})

	err := breaker.Execute(ctx, func(ctx context.Context) error {
		return call(ctx)
	})

# States

- Closed: Normal operation, requests pass through
- Open: Service unavailable, requests fail immediately
- Half-Open: Testing if service recovered, limited requests allowed

# Pattern

The circuit breaker transitions between states based on success/failure rates:

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open
*/
package resilience
