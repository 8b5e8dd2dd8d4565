// Package agent contains the module lifecycle supervisor and the chat
// workflow that turns finished transcriptions into spoken replies.
//
// The two primary abstractions are:
//
//   - [Module] — an independently started and stopped subsystem (microphone
//     capture, transcription, speech synthesis) talking to the rest of the
//     agent only through the event bus.
//   - [Supervisor] — owns the modules and the dispatch loop; it starts
//     modules in registration order, consumes every bus event, and drives
//     the chat workflow.
//
// This package lives under internal/ because it encapsulates
// application-private orchestration logic and is not intended to be imported
// by external code.
package agent

import "context"

// Module is one supervised subsystem of the agent.
//
// The supervisor calls Start once, then Run on a dedicated goroutine, and
// finally Stop during shutdown. Run blocks until its work ends or ctx is
// cancelled; returning a non-nil error tears the whole agent down.
type Module interface {
	// Name identifies the module in logs and metrics.
	Name() string

	// Start performs synchronous initialisation (opening devices,
	// subscribing to queues). A Start error aborts the whole startup.
	Start(ctx context.Context) error

	// Run executes the module's main loop until ctx is cancelled.
	Run(ctx context.Context) error

	// Stop releases the module's resources. Called in reverse registration
	// order after every Run loop has exited.
	Stop(ctx context.Context) error
}
