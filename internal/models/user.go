package models

// FriendsKey is the primary key of the singleton friends row.
const FriendsKey = "friends"

// User is a tracked account. FullName is assigned by Reddit on first lookup
// and never changes afterwards; LastPost is the newest item already seen.
type User struct {
	UserName  string `json:"userName"`
	FullName  string `json:"fullName"`
	LastPost  string `json:"lastPost"`
	Submitted bool   `json:"submitted"`
	Comments  bool   `json:"comments"`
}

// Friends holds the cursors of the aggregate friends feeds.
type Friends struct {
	Key            string `json:"key"`
	LastSubmission string `json:"lastSubmission"`
	LastComment    string `json:"lastComment"`
}
