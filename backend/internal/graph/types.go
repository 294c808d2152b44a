package graph

import "time"

// SentinelCircle is the circle tag meaning "no restriction beyond default".
// It never resolves to a stored circle.
const SentinelCircle = "All Followers"

// User represents a registered user
type User struct {
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Follow represents a directed follower edge
type Follow struct {
	Follower string `json:"follower"`
	Followee string `json:"followee"`
}

// Circle is a creator-defined named subset of that creator's followers
type Circle struct {
	Creator string   `json:"creator"`
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// Botscore is the per-user reputation record. Score is the externally
// computed bot-likelihood; Threshold is the user's display preference.
// Both are percentages in [0,100].
type Botscore struct {
	Username  string `json:"username"`
	Score     int    `json:"score"`
	Threshold int    `json:"threshold"`
}

// Default botscore values assigned at user creation
const (
	DefaultBotscore  = 0
	DefaultThreshold = 100
)

// Freet is a single user-authored feed item. Circle is the raw tag chosen
// at creation; it is resolved against the author's circles at read time,
// never re-validated after creation.
type Freet struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	Circle    string    `json:"circle,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
