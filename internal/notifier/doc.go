// Package notifier delivers short schedule-change messages to a Telegram chat.
//
// Events from the in-process bus are formatted into one-line messages and
// queued. A single worker sends them through a Sender, throttled by a token
// bucket and retried with jittered backoff. When the notifier is disabled,
// messages are only logged.
//
// The service keeps a small in-memory history of sent messages.
package notifier
