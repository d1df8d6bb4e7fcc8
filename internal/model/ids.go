package model

import "github.com/google/uuid"

// ensureID проставляет UUID, если он ещё не задан.
// Идентификаторы генерируются на стороне приложения, чтобы схема
// одинаково работала в Postgres и в SQLite (тесты).
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
