// Package store keeps the status board's in-memory health state: the latest
// snapshot and a bounded per-service outcome window used for uptime %.
package store
