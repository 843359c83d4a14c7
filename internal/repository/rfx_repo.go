package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/senyabanana/procurement-service/internal/db"
	"github.com/senyabanana/procurement-service/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// RfxRepository - интерфейс для работы с RFx, критериями и комиссией.
type RfxRepository interface {
	CountCreatedInYear(ctx context.Context, year int) (int, error)
	CreateRfx(ctx context.Context, rfx *models.Rfx) error
	GetRfx(ctx context.Context, rfxId string) (*models.Rfx, error)
	GetRfxForUpdate(ctx context.Context, rfxId string) (*models.Rfx, error)
	ListRfx(ctx context.Context, statuses []string, limit, offset int) ([]models.Rfx, error)
	UpdateCommitteeMember(ctx context.Context, member models.CommitteeMember) error
	UpdateRfxStatus(ctx context.Context, rfxId string, status models.RfxStatus, updatedAt time.Time) error
}

// PostgresRfxRepository - реализация RfxRepository для базы данных.
type PostgresRfxRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresRfxRepository создаёт новый экземпляр PostgresRfxRepository.
func NewPostgresRfxRepository(db *pgxpool.Pool) *PostgresRfxRepository {
	return &PostgresRfxRepository{DB: db}
}

const rfxColumns = `id, reference_number, type, category, title, description, department, estimated_budget, currency,
	hide_budget, publication_date, submission_deadline, closing_date, technical_specification, deliverables,
	required_documents, minimum_score, status, created_by, created_at, updated_at`

// rfxScanTargets возвращает приемники в порядке rfxColumns.
// text[] читается в []string средствами pgx: сервер отдает массивы в бинарном формате.
func rfxScanTargets(rfx *models.Rfx) []any {
	return []any{
		&rfx.ID,
		&rfx.ReferenceNumber,
		&rfx.Type,
		&rfx.Category,
		&rfx.Title,
		&rfx.Description,
		&rfx.Department,
		&rfx.EstimatedBudget,
		&rfx.Currency,
		&rfx.HideBudget,
		&rfx.PublicationDate,
		&rfx.SubmissionDeadline,
		&rfx.ClosingDate,
		&rfx.TechnicalSpecification,
		&rfx.Deliverables,
		&rfx.RequiredDocuments,
		&rfx.MinimumScore,
		&rfx.Status,
		&rfx.CreatedBy,
		&rfx.CreatedAt,
		&rfx.UpdatedAt,
	}
}

func scanRfx(row pgx.Row, rfx *models.Rfx) error {
	return row.Scan(rfxScanTargets(rfx)...)
}

// CountCreatedInYear возвращает число RFx, созданных в указанном году.
func (r *PostgresRfxRepository) CountCreatedInYear(ctx context.Context, year int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM rfx WHERE reference_number LIKE $1`
	err := db.Conn(ctx, r.DB).QueryRow(ctx, query, fmt.Sprintf("%s-%d-%%", models.ReferencePrefix, year)).Scan(&count)
	if err != nil {
		return 0, translateError(err, "count rfx")
	}
	return count, nil
}

// CreateRfx сохраняет RFx вместе с критериями и членами комиссии.
// Должен вызываться внутри транзакции, чтобы запись была атомарной.
func (r *PostgresRfxRepository) CreateRfx(ctx context.Context, rfx *models.Rfx) error {
	conn := db.Conn(ctx, r.DB)
	_, err := conn.Exec(ctx, `
		INSERT INTO rfx (`+rfxColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		rfx.ID,
		rfx.ReferenceNumber,
		rfx.Type,
		rfx.Category,
		rfx.Title,
		rfx.Description,
		rfx.Department,
		rfx.EstimatedBudget,
		rfx.Currency,
		rfx.HideBudget,
		rfx.PublicationDate,
		rfx.SubmissionDeadline,
		rfx.ClosingDate,
		rfx.TechnicalSpecification,
		rfx.Deliverables,
		pq.Array(rfx.RequiredDocuments),
		rfx.MinimumScore,
		rfx.Status,
		rfx.CreatedBy,
		rfx.CreatedAt,
		rfx.UpdatedAt)
	if err != nil {
		return translateError(err, "insert rfx")
	}

	for i, c := range rfx.Criteria {
		_, err = conn.Exec(ctx, `
			INSERT INTO rfx_criterion (id, rfx_id, title, weight, type, position)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			c.ID, rfx.ID, c.Title, c.Weight, c.Type, i)
		if err != nil {
			return translateError(err, "insert rfx criterion")
		}
	}

	for i, m := range rfx.Committee {
		_, err = conn.Exec(ctx, `
			INSERT INTO rfx_committee_member (id, rfx_id, user_id, name, role, is_approved, approved_at, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			m.ID, rfx.ID, m.UserID, m.Name, m.Role, m.IsApproved, m.ApprovedAt, i)
		if err != nil {
			return translateError(err, "insert committee member")
		}
	}
	return nil
}

// GetRfx возвращает RFx с критериями и комиссией.
func (r *PostgresRfxRepository) GetRfx(ctx context.Context, rfxId string) (*models.Rfx, error) {
	return r.getRfx(ctx, `SELECT `+rfxColumns+` FROM rfx WHERE id = $1`, rfxId)
}

// GetRfxForUpdate блокирует строку RFx до конца текущей транзакции.
// Параллельные одобрения одного RFx выполняются последовательно.
func (r *PostgresRfxRepository) GetRfxForUpdate(ctx context.Context, rfxId string) (*models.Rfx, error) {
	return r.getRfx(ctx, `SELECT `+rfxColumns+` FROM rfx WHERE id = $1 FOR UPDATE`, rfxId)
}

func (r *PostgresRfxRepository) getRfx(ctx context.Context, query, rfxId string) (*models.Rfx, error) {
	var rfx models.Rfx
	if err := scanRfx(db.Conn(ctx, r.DB).QueryRow(ctx, query, rfxId), &rfx); err != nil {
		return nil, translateError(err, "select rfx")
	}

	criteria, err := r.getCriteria(ctx, rfx.ID)
	if err != nil {
		return nil, err
	}
	committee, err := r.getCommittee(ctx, rfx.ID)
	if err != nil {
		return nil, err
	}
	rfx.Criteria = criteria
	rfx.Committee = committee
	return &rfx, nil
}

func (r *PostgresRfxRepository) getCriteria(ctx context.Context, rfxId string) ([]models.EvaluationCriterion, error) {
	rows, err := db.Conn(ctx, r.DB).Query(ctx, `
		SELECT id, rfx_id, title, weight, type FROM rfx_criterion WHERE rfx_id = $1 ORDER BY position`, rfxId)
	if err != nil {
		return nil, translateError(err, "select criteria")
	}
	defer rows.Close()

	criteria := []models.EvaluationCriterion{}
	for rows.Next() {
		var c models.EvaluationCriterion
		if err := rows.Scan(&c.ID, &c.RfxID, &c.Title, &c.Weight, &c.Type); err != nil {
			return nil, translateError(err, "scan criterion")
		}
		criteria = append(criteria, c)
	}
	return criteria, rows.Err()
}

func (r *PostgresRfxRepository) getCommittee(ctx context.Context, rfxId string) ([]models.CommitteeMember, error) {
	rows, err := db.Conn(ctx, r.DB).Query(ctx, `
		SELECT id, rfx_id, user_id, name, role, is_approved, approved_at
		FROM rfx_committee_member WHERE rfx_id = $1 ORDER BY position`, rfxId)
	if err != nil {
		return nil, translateError(err, "select committee")
	}
	defer rows.Close()

	members := []models.CommitteeMember{}
	for rows.Next() {
		var m models.CommitteeMember
		if err := rows.Scan(&m.ID, &m.RfxID, &m.UserID, &m.Name, &m.Role, &m.IsApproved, &m.ApprovedAt); err != nil {
			return nil, translateError(err, "scan committee member")
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ListRfx возвращает список RFx, отфильтрованный по статусам.
func (r *PostgresRfxRepository) ListRfx(ctx context.Context, statuses []string, limit, offset int) ([]models.Rfx, error) {
	query := `SELECT ` + rfxColumns + ` FROM rfx`
	var filters []string
	var args []interface{}
	argIndex := 1

	if len(statuses) > 0 {
		filters = append(filters, fmt.Sprintf("status = ANY($%d)", argIndex))
		args = append(args, pq.Array(statuses))
		argIndex++
	}

	if len(filters) > 0 {
		query += " WHERE " + strings.Join(filters, " AND ")
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, reference_number DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := db.Conn(ctx, r.DB).Query(ctx, query, args...)
	if err != nil {
		return nil, translateError(err, "list rfx")
	}

	var list []models.Rfx
	for rows.Next() {
		var rfx models.Rfx
		if err := scanRfx(rows, &rfx); err != nil {
			rows.Close()
			return nil, translateError(err, "scan rfx")
		}
		list = append(list, rfx)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, translateError(err, "list rfx")
	}

	for i := range list {
		committee, err := r.getCommittee(ctx, list[i].ID)
		if err != nil {
			return nil, err
		}
		list[i].Committee = committee
	}
	return list, nil
}

// UpdateCommitteeMember сохраняет флаг одобрения члена комиссии.
func (r *PostgresRfxRepository) UpdateCommitteeMember(ctx context.Context, member models.CommitteeMember) error {
	tag, err := db.Conn(ctx, r.DB).Exec(ctx, `
		UPDATE rfx_committee_member SET is_approved = $1, approved_at = $2 WHERE id = $3`,
		member.IsApproved, member.ApprovedAt, member.ID)
	if err != nil {
		return translateError(err, "update committee member")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateRfxStatus меняет статус RFx.
func (r *PostgresRfxRepository) UpdateRfxStatus(ctx context.Context, rfxId string, status models.RfxStatus, updatedAt time.Time) error {
	tag, err := db.Conn(ctx, r.DB).Exec(ctx, `UPDATE rfx SET status = $1, updated_at = $2 WHERE id = $3`, status, updatedAt, rfxId)
	if err != nil {
		return translateError(err, "update rfx status")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
