// Package common contains shared constants and sentinel errors used across
// notifier components.
package common

// SessionTokenHeaderName is the gRPC metadata key used to carry the bus
// session token from the foreground client to the background service.
const SessionTokenHeaderName = "session_token"

// RequestIDHeaderName carries a per-envelope correlation id.
const RequestIDHeaderName = "request_id"

// FriendsUserName is the reserved user name that routes to the aggregate
// friends feed instead of a per-user row.
const FriendsUserName = "friends"

// DefaultSessionFileName is the session file name under the user's config dir.
const DefaultSessionFileName = "notifier/session"
