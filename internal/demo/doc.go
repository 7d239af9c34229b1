// Package demo is a small to-do domain wired onto the dispatch runtime:
// users, their to-do lists, and the kinds that load, add and close to-dos.
//
// The data source is canned. Scenarios and tests use it to drive the
// runtime end to end.
package demo
