package domain

import (
	"errors"
	"time"
)

// ErrSessionNotFound is returned when mutating a session the store does not hold.
var ErrSessionNotFound = errors.New("session not found")

// Session is the transient state of one visitor. It lives only in memory.
type Session struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	DietPreferences string    `json:"diet_preferences"`
	SearchHistory   []string  `json:"search_history"`
	LastMealPlan    string    `json:"last_meal_plan"`
}

// SessionStore holds sessions for the lifetime of the process.
// Get returns a copy; mutations go through the store.
type SessionStore interface {
	Create() Session
	Get(id string) (Session, bool)
	Delete(id string)

	SetPreferences(id, preferences string) error
	AppendHistory(id, query string) error
	SetLastMealPlan(id, plan string) error
}

// Hasher fingerprints a payload, e.g. for download ETags.
type Hasher interface {
	Hash(data []byte) string
}
