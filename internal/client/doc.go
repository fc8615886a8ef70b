/*
Package client implements the resolution backend contract.

# Endpoints

	POST {base}/v1/placements/{name}/resolve   which flow a placement shows
	POST {base}/v1/completions                 confirmed completion record
	POST {base}/v1/events                      fire-and-forget analytics

Every request carries the environment, SDK version, platform and app version
headers, a fresh X-Request-ID and the API key as a bearer token.

# Failure model

Calls return *Error with a Kind matched through errors.Is:

  - ErrNetwork: connectivity, timeout or open circuit (retry later)
  - ErrUnauthorized: 401/403
  - ErrRateLimited: 429
  - ErrRequest: other 4xx or invalid input
  - ErrServer: 5xx
  - ErrDecode: 2xx body that could not be used

A 204 or 404 from resolve is a valid empty resolution. Resolve is never
retried internally; completion records retry transport errors and 5xx
responses through go-retryablehttp. Only ErrNetwork and ErrServer count
against the circuit breaker. Event delivery has a breaker of its own, so
a failing events endpoint never opens the resolve circuit.

# Events

TrackEvent enqueues onto a bounded queue drained by one worker, which keeps
events in emission order. A full queue drops the event and counts it. Close
drains the queue.
*/
package client
