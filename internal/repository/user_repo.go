package repository

import (
	"context"

	"github.com/senyabanana/procurement-service/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// UserDirectory - интерфейс для проверки пользователей. Учетные записи ведет
// внешний сервис, здесь нужна только проверка существования.
type UserDirectory interface {
	FindMissingUsers(ctx context.Context, userIds []string) ([]string, error)
}

// PostgresUserDirectory - реализация UserDirectory поверх таблицы employee.
type PostgresUserDirectory struct {
	DB *pgxpool.Pool
}

// NewPostgresUserDirectory создаёт новый экземпляр PostgresUserDirectory.
func NewPostgresUserDirectory(db *pgxpool.Pool) *PostgresUserDirectory {
	return &PostgresUserDirectory{DB: db}
}

// FindMissingUsers возвращает идентификаторы, для которых нет пользователя, в исходном порядке.
func (r *PostgresUserDirectory) FindMissingUsers(ctx context.Context, userIds []string) ([]string, error) {
	if len(userIds) == 0 {
		return nil, nil
	}

	rows, err := db.Conn(ctx, r.DB).Query(ctx, `SELECT id FROM employee WHERE id = ANY($1)`, pq.Array(userIds))
	if err != nil {
		return nil, translateError(err, "select employees")
	}
	defer rows.Close()

	found := make(map[string]bool, len(userIds))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, translateError(err, "scan employee")
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, "select employees")
	}

	var missing []string
	for _, id := range userIds {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}
