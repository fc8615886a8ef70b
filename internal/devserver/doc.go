/*
Package devserver is a sandbox resolution backend for local iteration and
integration tests.

Campaigns come from a YAML, TOML or JSON file:

	campaigns:
	  - id: welcome_q3
	    placement: home
	    audience: {plan: [free, trial]}
	    holdoutPercent: 10
	    sticky: true
	    variants:
	      - {id: a, weight: 1, flow: welcome}
	      - {id: b, weight: 1, flow: welcome_short}

Flows are JSON fixtures discovered under a directory and checked by the flow
decoder at load. Sticky campaigns hash campaign and subject into 10000
buckets, so a subject keeps its variant across resolves. A recorded
completion makes later resolves for that subject and placement empty.
*/
package devserver
