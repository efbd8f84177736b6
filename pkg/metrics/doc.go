// Package metrics defines Prometheus metrics for the alertmail core,
// covering mail delivery attempts, retries, and configuration store
// operations.
package metrics
