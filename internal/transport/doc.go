// Package transport adapts byte links to the non-blocking stream the mux
// engine drives.
//
// Every adapter owns one background reader that fills a bounded buffer, so
// Available and Read never wait on the wire. Read-side failures are latched:
// once the peer goes away Available reports 0, Write returns the latched
// error, and Err exposes it to whoever owns the reconnect loop.
package transport
