// Package pg содержит инфраструктуру PostgreSQL: пул pgx, ожидание
// доступности БД, миграции golang-migrate из embed.FS и классификацию
// ошибок драйвера.
package pg
