// Package sqlite предоставляет инфраструктурные компоненты для работы с SQLite
// через драйвер modernc.org/sqlite (без cgo).
//
// Основные возможности:
//   - открытие файловой и in-memory базы с PRAGMA настройками в DSN
//   - миграции golang-migrate из встроенной файловой системы (embed.FS)
//   - классификация ошибок драйвера по видам из internal/shared
//
// # Быстрый старт
//
//	db, err := sqlite.NewDB(ctx, "data/cron.db")
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//
//	if _, err := sqlite.ApplyMigrationsFromFS(db, migrations, "migrations"); err != nil {
//		return err
//	}
//
// Для тестов используйте NewInMemoryDB: пул ограничен одним соединением,
// поэтому схема видна всем запросам.
package sqlite
