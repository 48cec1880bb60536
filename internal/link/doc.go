// Package link runs one mux engine against a reconnecting transport.
//
// The Runner goroutine is the only one that touches the engine. Other
// goroutines publish through the outbox, run closures with Do, and read
// the last published Status.
package link
