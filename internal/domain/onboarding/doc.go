/*
Package onboarding runs the presentation lifecycle of one placement.

# States

	Idle -> Resolving -> Presenting -> Completed | Skipped | Dismissed
	                  -> Dismissed (nothing to show, or abandoned)
	                  -> Failed -> Resolving (Present again)

Reset returns to Idle from anywhere. ShouldProceed is true in every state
but Presenting, so a host never blocks its user on a missing flow.

# Cache policies

  - cache_first: a cached flow is shown at once and a background refresh
    updates only the cache
  - network_first: the backend answers, the cache covers its failures
  - network_only: cached resolutions are neither read nor written;
    completion state and responses still persist

With RespectLocalCompletion a placement completed on this device is
dismissed without a backend call.

# Completion

Completing persists responses and the completion flag locally, records the
completion with the backend, then emits flow_completed. A failed remote
record leaves the controller Completed and is returned to the caller.
*/
package onboarding
