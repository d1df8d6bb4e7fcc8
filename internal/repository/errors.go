package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Коды Postgres, после которых операцию имеет смысл повторить целиком.
var transientCodes = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"23P01": {}, // exclusion_violation (сработало ограничение на пересечение броней)
	"23505": {}, // unique_violation (номер брони)
	"55P03": {}, // lock_not_available
	"57014": {}, // query_canceled (statement_timeout)
}

// IsNotFound сообщает, что запись не найдена.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsTransient сообщает, что ошибка вызвана конкуренцией или таймаутом
// и операцию можно повторить.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		_, ok := transientCodes[pgErr.Code]
		return ok
	}
	return false
}
