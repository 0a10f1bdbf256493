/*
Package events provides an in-memory event broker for rollout progress
pub/sub.

The events package implements a lightweight event bus for broadcasting
rollout progress to interested subscribers. The pipeline components publish
as they work; the CLI renderer subscribes to print a live transcript, and
controller tests subscribe to assert transition ordering without reaching
into controller internals.

# Architecture

	┌──────────────────── EVENT BROKER ──────────────────────┐
	│                                                         │
	│  ┌──────────────────────────────────────────┐           │
	│  │              Event Broker                │           │
	│  │  - In-memory message bus                 │           │
	│  │  - Topic-agnostic (all events broadcast) │           │
	│  │  - Non-blocking publish                  │           │
	│  └──────────────────┬───────────────────────┘           │
	│                     │                                   │
	│  ┌──────────────────▼───────────────────────┐           │
	│  │          Event Distribution              │           │
	│  │                                          │           │
	│  │  Publisher → Event Channel (buffer: 100) │           │
	│  │       ↓                                  │           │
	│  │  Broadcast Loop                          │           │
	│  │       ↓                                  │           │
	│  │  Subscriber Channels (buffer: 50 each)   │           │
	│  └──────────────────┬───────────────────────┘           │
	│                     │                                   │
	│  ┌──────────────────▼───────────────────────┐           │
	│  │           Event Types                    │           │
	│  │                                          │           │
	│  │  Rollout lifecycle:                      │           │
	│  │    - rollout.started                     │           │
	│  │    - rollout.state_changed               │           │
	│  │    - rollout.finished                    │           │
	│  │                                          │           │
	│  │  Gate progress:                          │           │
	│  │    - secret.checked                      │           │
	│  │    - probe.attempt                       │           │
	│  │                                          │           │
	│  │  Platform effects:                       │           │
	│  │    - service.found / service.absent      │           │
	│  │    - revision.deployed                   │           │
	│  │    - traffic.shifted                     │           │
	│  │    - traffic.rolled_back                 │           │
	│  └──────────────────────────────────────────┘           │
	└─────────────────────────────────────────────────────────┘

# Delivery Semantics

Publish never blocks the pipeline: events flow through a buffered channel
and a subscriber whose buffer is full simply misses that event. Progress
reporting is best-effort by design; the authoritative record is the
RolloutResult, not the event stream. A nil *Broker is valid and drops all
events, so components publish unconditionally.

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	go func() {
		for evt := range sub {
			fmt.Printf("%s %s\n", evt.Type, evt.Message)
		}
	}()

	broker.Publish(&events.Event{
		Type:    events.EventStateChanged,
		Message: "deploying -> health_checking",
		Metadata: map[string]string{"revision": tag},
	})

# Integration Points

  - pkg/rollout: publishes lifecycle and transition events
  - cmd/rollout: subscribes to render progress lines
  - pkg/rollout tests: subscribe to assert each transition fires once
*/
package events
