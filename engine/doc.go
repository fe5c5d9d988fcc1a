// Package engine implements the graph execution core: named nodes over a
// shared key-value state, ordered conditional edges, and a single run state
// machine exposed both as a synchronous call and as an event-emitting call.
//
// Failure policy is "fail into data": a step that returns an error (or
// panics) is absorbed at the node boundary and converted into diagnostic
// state, and the run continues. Only structural problems (missing entry
// point, dangling edge target) terminate a run, and even those surface as
// a result field rather than a raised fault.
package engine
