// Package notifications delivers pipeline outcomes as ntfy push messages.
//
// The ntfy implementation posts plain-text bodies with Title, Tags, and
// Priority headers to the configured topic URL. Without a topic, NewService
// returns a no-op so callers never branch on whether notifications are on.
// Individual events can be switched off in [notifications].
package notifications
