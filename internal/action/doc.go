// Package action builds typed actions from loosely typed caller input and
// posts them.
//
// A Helper supplies two things: the Shape registered for a kind (an explicit
// table, no type hierarchy walking) and WrapData, which turns raw caller
// input into the payload the shape expects. Factory runs the four-step
// construction (resolve shape, check shape, wrap, construct) and reports
// each failure as a coded *ConstructionError. Creator posts what the
// factory builds, either on the caller's goroutine (Send) or on a bounded
// worker pool (SendAsync).
package action
