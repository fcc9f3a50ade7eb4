package models

import "github.com/google/uuid"

// ensureID assigns a random UUID when the caller did not supply one. Keeping
// generation in Go lets the same models run on Postgres and SQLite.
func ensureID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}
