package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/repository"
)

// Transactor выполняет функцию в одной транзакции хранилища.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// DocumentStore - внешнее хранилище документов предложений.
type DocumentStore interface {
	PutDocument(ctx context.Context, key, contentType string, data []byte) (string, error)
	RemoveDocument(ctx context.Context, key string) error
}

// Clock возвращает текущее время в UTC.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// storeError превращает ошибку репозитория в ответ not_found либо в
// внутреннюю ошибку, которую обработчик залогирует.
func storeError(err error, op, entity, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return models.NotFoundError("%s %s not found", entity, id)
	}
	return fmt.Errorf("%s: %w", op, err)
}
