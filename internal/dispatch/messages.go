// Package dispatch routes filter requests to calculators. One calculator is
// active at a time; recently used calculators stay cached by fingerprint so
// switching back to a known filter configuration republishes settled results
// instead of recomputing them.
package dispatch

import (
	"fmt"

	"github.com/taalatlas/dialectsearch/internal/model"
)

// Op identifies a request type
type Op string

const (
	OpStartCalc  Op = "start_calc"
	OpSetVisible Op = "set_visible"
	OpPause      Op = "pause"
	OpResume     Op = "resume"
	OpTerminate  Op = "terminate"
)

// Request is one instruction to the dispatcher
type Request struct {
	Op         Op
	Filters    model.FilterSet
	VisibleIDs []string
}

// Response is one incremental publication from the active calculator.
// Consumers upsert Matched, remove Unmatched, and treat Done as the end of
// the current pass. Err carries recoverable protocol failures.
type Response struct {
	Matched   []*model.MatchedItem
	Unmatched []string
	Done      bool
	Err       error
}

// Sink receives responses. Calls are serialized by the dispatcher.
type Sink func(Response)

// ProtocolError marks a malformed or out-of-order request. The dispatcher
// reports it through the sink and keeps running.
type ProtocolError struct {
	Op     Op
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error on %q: %s", e.Op, e.Reason)
}
