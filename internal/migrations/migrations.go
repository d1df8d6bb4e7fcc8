package migrations

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"github.com/Leganyst/booking-engine/internal/db"
	"github.com/Leganyst/booking-engine/internal/model"
)

//go:embed sql/*.sql
var files embed.FS

// Up создаёт таблицы через AutoMigrate и накатывает SQL-миграции goose.
// SQL-миграции содержат только Postgres-специфичное (exclusion constraint,
// частичные индексы), поэтому для SQLite они пропускаются.
func Up(ctx context.Context, gdb *gorm.DB) error {
	if err := model.AutoMigrate(gdb.WithContext(ctx)); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if !db.IsPostgres(gdb) {
		return nil
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("db.DB(): %w", err)
	}

	goose.SetBaseFS(files)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, "sql"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
