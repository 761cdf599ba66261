package models

import "github.com/google/uuid"

// ensureID assigns a fresh identifier when the caller did not provide one.
// Ids are minted in Go rather than by a column default so the same models
// work against Postgres and the SQLite test harness.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
