package outbox

import (
	"context"
	"time"

	"github.com/Leganyst/booking-engine/internal/model"
	"github.com/Leganyst/booking-engine/internal/repository"
)

// StoreQueue — очередь поверх таблицы outbox_events.
// Захват, публикация и отметки выполняются в одной транзакции: в Postgres
// захваченные строки заблокированы (SKIP LOCKED), и другие экземпляры
// публикатора их пропускают.
//
// Неудачная попытка откладывает событие на RetryDelay; до этого срока
// Claim его пропускает.
type StoreQueue struct {
	store *repository.Store
	now   func() time.Time
	delay func(attempt int) time.Duration
}

func NewStoreQueue(store *repository.Store) *StoreQueue {
	return &StoreQueue{store: store, now: time.Now, delay: RetryDelay}
}

const (
	BaseRetryDelay = 5 * time.Second
	MaxRetryDelay  = 15 * time.Minute
)

// RetryDelay — пауза перед попыткой номер attempt+1: BaseRetryDelay,
// удваивается с каждой неудачей и ограничена MaxRetryDelay.
func RetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return BaseRetryDelay
	}
	d := BaseRetryDelay
	for range attempt - 1 {
		d *= 2
		if d >= MaxRetryDelay {
			return MaxRetryDelay
		}
	}
	return d
}

func (q *StoreQueue) Process(
	ctx context.Context,
	limit int,
	handle func(context.Context, model.OutboxEvent) error,
) (Stats, error) {
	var stats Stats

	err := q.store.InTx(ctx, nil, func(tx *repository.Store) error {
		stats = Stats{}

		now := q.now()
		events, err := tx.Outbox.Claim(ctx, now, limit)
		if err != nil {
			return err
		}
		stats.Claimed = len(events)

		for _, ev := range events {
			if pubErr := handle(ctx, ev); pubErr != nil {
				retryAt := now.Add(q.delay(ev.RetryCount + 1))
				if err := tx.Outbox.Fail(ctx, ev.ID, pubErr.Error(), retryAt); err != nil {
					return err
				}
				stats.Failed++
				continue
			}
			if err := tx.Outbox.Complete(ctx, ev.ID, q.now()); err != nil {
				return err
			}
			stats.Published++
		}

		stats.Pending, err = tx.Outbox.CountPending(ctx)
		return err
	})

	return stats, err
}
