package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Коды ошибок PostgreSQL, которые различает сервис.
const (
	PgErrUniqueViolation           = "23505" // unique_violation
	PgErrForeignKeyViolation       = "23503" // foreign_key_violation
	PgErrInvalidTextRepresentation = "22P02" // invalid_text_representation
	PgErrSerializationFailure      = "40001" // serialization_failure
	PgErrDeadlockDetected          = "40P01" // deadlock_detected
	PgErrLockNotAvailable          = "55P03" // lock_not_available
)

// Querier - общий набор методов пула и транзакции.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

// Conn возвращает транзакцию из контекста, если она открыта, иначе пул.
func Conn(ctx context.Context, pool *pgxpool.Pool) Querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

// Transactor выполняет функцию в одной транзакции.
type Transactor struct {
	pool *pgxpool.Pool
}

// NewTransactor создает новый экземпляр Transactor.
func NewTransactor(pool *pgxpool.Pool) *Transactor {
	return &Transactor{pool: pool}
}

// WithinTransaction выполняет fn в транзакции. Временные ошибки хранилища
// (deadlock, serialization failure, lock timeout) повторяются один раз.
// Вложенный вызов использует уже открытую транзакцию.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	err := t.run(ctx, fn)
	if IsTransient(err) {
		err = t.run(ctx, fn)
	}
	return err
}

func (t *Transactor) run(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// PgErrorCode возвращает код ошибки PostgreSQL или пустую строку.
func PgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// ConstraintName возвращает имя нарушенного ограничения, если оно известно.
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

// IsUniqueViolation проверяет нарушение уникального ограничения.
func IsUniqueViolation(err error) bool {
	return PgErrorCode(err) == PgErrUniqueViolation
}

// IsMissingReference проверяет, что запрос ссылается на несуществующую запись:
// идентификатор не является UUID либо внешний ключ указывает в пустоту.
func IsMissingReference(err error) bool {
	switch PgErrorCode(err) {
	case PgErrInvalidTextRepresentation, PgErrForeignKeyViolation:
		return true
	default:
		return false
	}
}

// IsTransient проверяет, можно ли повторить транзакцию.
func IsTransient(err error) bool {
	switch PgErrorCode(err) {
	case PgErrSerializationFailure, PgErrDeadlockDetected, PgErrLockNotAvailable:
		return true
	default:
		return false
	}
}
