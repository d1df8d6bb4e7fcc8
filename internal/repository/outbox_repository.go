package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/booking-engine/internal/db"
	"github.com/Leganyst/booking-engine/internal/model"
)

type OutboxRepository interface {
	// Записать событие; вызывается в транзакции изменения брони.
	Append(ctx context.Context, event *model.OutboxEvent) error
	// Захватить до limit необработанных событий, срок попытки которых наступил
	// к now, в порядке создания.
	// В Postgres строки блокируются FOR UPDATE SKIP LOCKED до конца транзакции.
	Claim(ctx context.Context, now time.Time, limit int) ([]model.OutboxEvent, error)
	// Отметить событие опубликованным.
	Complete(ctx context.Context, id uuid.UUID, at time.Time) error
	// Зафиксировать неудачную попытку публикации и отложить следующую до retryAt.
	Fail(ctx context.Context, id uuid.UUID, reason string, retryAt time.Time) error
	// Количество необработанных событий.
	CountPending(ctx context.Context) (int64, error)
}

type GormOutboxRepository struct {
	db *gorm.DB
}

func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

func (r *GormOutboxRepository) Append(ctx context.Context, event *model.OutboxEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *GormOutboxRepository) Claim(ctx context.Context, now time.Time, limit int) ([]model.OutboxEvent, error) {
	q := r.db.WithContext(ctx).
		Where("processed_at IS NULL").
		Where("next_attempt_at IS NULL OR next_attempt_at <= ?", now.UTC()).
		Order("created_at, id").
		Limit(limit)
	if db.IsPostgres(r.db) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}

	var events []model.OutboxEvent
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *GormOutboxRepository) Complete(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.OutboxEvent{}).
		Where("id = ? AND processed_at IS NULL", id).
		Updates(map[string]any{
			"processed_at": at.UTC(),
			"last_error":   "",
		}).Error
}

func (r *GormOutboxRepository) Fail(ctx context.Context, id uuid.UUID, reason string, retryAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"retry_count":     gorm.Expr("retry_count + 1"),
			"last_error":      reason,
			"next_attempt_at": retryAt.UTC(),
		}).Error
}

func (r *GormOutboxRepository) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.OutboxEvent{}).
		Where("processed_at IS NULL").
		Count(&n).Error
	return n, err
}
