// Package delivery posts formatted webhook messages to Discord.
//
// Deliveries run on a fixed-size worker pool behind a bounded queue so
// the notification-ingest path never blocks on network I/O; when the
// queue is full the delivery is dropped and logged. A token-bucket rate
// limiter paces outbound requests. Failures are terminal: the outcome
// is logged and published on the event bus, but never retried.
package delivery
