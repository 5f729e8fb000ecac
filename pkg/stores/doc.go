// Package stores provides the run journal: an optional SQLite database
// recording every provisioning run and the outcome of each step. The
// journal is an engine.Observer and never affects run outcomes; write
// errors are logged and dropped.
package stores
