package token

// State is the position of the token manager in the OAuth lifecycle.
type State int

const (
	StateIdle State = iota
	StateAuthorizationRequested
	StateAuthorizationReceived
	StateAuthorized
	StateRefreshInProgress
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAuthorizationRequested:
		return "authorization_requested"
	case StateAuthorizationReceived:
		return "authorization_received"
	case StateAuthorized:
		return "authorized"
	case StateRefreshInProgress:
		return "refresh_in_progress"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
