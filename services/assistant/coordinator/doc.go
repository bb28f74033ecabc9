// Package coordinator drives an assistant run on a remote thread to a
// terminal outcome.
//
// A run is polled at a fixed interval until it completes, terminates
// abnormally or asks for tool outputs. Pending tool calls are resolved
// through a tool invoker and submitted together as one batch; any failed
// resolution stops the run without submitting anything. The wait is bounded
// by a wall clock limit and an optional poll count, and stops when the
// caller's context is cancelled.
package coordinator
