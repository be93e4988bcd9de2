package store

import "langstory/pkg/domain"

// Store defines persistence operations over user rows.
//
// Language data lives in a single JSON column per user, so SaveLanguages
// overwrites the whole languages structure in one row update. Two concurrent
// read-modify-write cycles on the same user are last-write-wins.
type Store interface {
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)

	// SaveLanguages replaces the user's entire languages structure.
	SaveLanguages(userID string, languages domain.Languages) error
	// SaveCoin overwrites the user's coin balance.
	SaveCoin(userID string, coin int) error
}

// SessionStore issues and validates session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}
