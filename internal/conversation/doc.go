// Package conversation implements the chat controller of budgetquery.
//
// # Overview
//
// A Controller owns the state of one conversation and sequences the three
// remote steps of a turn:
//
//  1. interpret: the question (plus optional clarification) becomes SQL,
//     a clarifying question, or a refusal
//  2. execute: the SQL runs and the result replaces the current result
//  3. observe: once per conversation, a summary of the first result
//
// The controller never draws anything. Every visible outcome is an Event
// handed to a Presenter; the terminal and browser front ends render the same
// event stream.
//
// # Routing
//
// Each message is routed in a fixed order:
//
//   - while a clarifying question is open, the message answers it
//   - after a successful result, the message refines the last question
//   - otherwise the message is a new question
//
// # Concurrency
//
// Turns are single-flight: Submit returns ErrBusy while a turn is running
// rather than queueing. Snapshot, Phase and Download may be called from any
// goroutine.
package conversation
