package repository

import (
	"errors"
	"fmt"

	"github.com/senyabanana/procurement-service/internal/db"

	"github.com/jackc/pgx/v5"
)

var (
	// ErrNotFound - запись не найдена.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate - нарушено уникальное ограничение.
	ErrDuplicate = errors.New("duplicate record")
)

// Имена уникальных ограничений из миграций.
const (
	ConstraintRfxReference   = "rfx_reference_number_key"
	ConstraintReviewReviewer = "bid_review_bid_reviewer_key"
	ConstraintContractBid    = "contract_bid_id_key"
)

// translateError приводит ошибки pgx к ошибкам репозитория; исходная ошибка
// остается в цепочке, чтобы можно было узнать имя ограничения.
func translateError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if db.IsMissingReference(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	}
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrDuplicate, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsDuplicateOf проверяет нарушение конкретного уникального ограничения.
func IsDuplicateOf(err error, constraint string) bool {
	return errors.Is(err, ErrDuplicate) && db.ConstraintName(err) == constraint
}
