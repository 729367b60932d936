// Package engine holds the pure rule evaluators of the shield: air quality
// threat, humidity interlock and occupancy (noise cancellation) selection.
//
// Evaluators take plain values and return decisions. They never talk to
// devices, never read the clock and never mutate their inputs, so every rule
// can be tested without standing up a collaborator.
package engine
