// Package notifier delivers fired habit reminders to Telegram.
//
// A reminder becomes one HTML message with done, later and skip buttons.
// Sends share a token-bucket rate limit and each one is bounded by the
// configured send timeout, so a stuck transport cannot hold a scheduler
// goroutine forever. Failed sends are returned to the caller and never
// retried here.
package notifier
