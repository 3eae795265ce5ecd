// Package server assembles the Clipstream HTTP server from the API handlers.
//
// The server builds a consistent middleware chain of request IDs, logging,
// security headers, CORS, metrics, and authentication so handlers all share
// common protections and instrumentation behind one multiplexer.
package server
