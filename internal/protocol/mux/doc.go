// Package mux owns the channel-multiplexing protocol engine.
//
// Ownership boundary:
// - TX, RX and pending-subscription channel tables
// - SYNC/SYNC_RSP heartbeat state machine
// - SCRB/SCRB_RSP subscription handshake
// - receive reassembly over a non-blocking stream
//
// The engine is tick driven: the host calls Process with a monotonically
// increasing millisecond timestamp. It never blocks, never reads a clock and
// is not safe for concurrent use.
package mux
