package repository

import (
	"context"

	"github.com/senyabanana/procurement-service/internal/db"
	"github.com/senyabanana/procurement-service/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BidRepository - интерфейс для работы с предложениями и их оценками.
type BidRepository interface {
	CreateBid(ctx context.Context, bid *models.SupplierBid) error
	GetBid(ctx context.Context, rfxId, bidId string) (*models.SupplierBid, error)
	ListRfxBids(ctx context.Context, rfxId string, limit, offset int) ([]models.SupplierBid, error)
	UpsertReview(ctx context.Context, review models.BidReview) (*models.BidReview, bool, error)
	UpdateEvaluationSummary(ctx context.Context, bidId string, summary models.EvaluationSummary) error
	GetReview(ctx context.Context, bidId, reviewerId string) (*models.BidReview, error)
}

// PostgresBidRepository - реализация BidRepository для базы данных.
type PostgresBidRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresBidRepository создает новый экземпляр PostgresBidRepository.
func NewPostgresBidRepository(db *pgxpool.Pool) *PostgresBidRepository {
	return &PostgresBidRepository{DB: db}
}

const bidColumns = `id, rfx_id, bidder_id, bidder_name, amount, currency, delivery_date, proposal, documents, inputs,
	evaluation_status, evaluation_notes, evaluated_at, evaluated_by_user_id, submitted_at`

func scanBid(row pgx.Row, bid *models.SupplierBid) error {
	return row.Scan(
		&bid.ID,
		&bid.RfxID,
		&bid.BidderID,
		&bid.BidderName,
		&bid.Amount,
		&bid.Currency,
		&bid.DeliveryDate,
		&bid.Proposal,
		&bid.Documents,
		&bid.Inputs,
		&bid.EvaluationStatus,
		&bid.EvaluationNotes,
		&bid.EvaluatedAt,
		&bid.EvaluatedByUserID,
		&bid.SubmittedAt)
}

// CreateBid сохраняет новое предложение.
func (r *PostgresBidRepository) CreateBid(ctx context.Context, bid *models.SupplierBid) error {
	insertQuery := `INSERT INTO supplier_bid (` + bidColumns + `)
                    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := db.Conn(ctx, r.DB).Exec(
		ctx,
		insertQuery,
		bid.ID,
		bid.RfxID,
		bid.BidderID,
		bid.BidderName,
		bid.Amount,
		bid.Currency,
		bid.DeliveryDate,
		bid.Proposal,
		bid.Documents,
		bid.Inputs,
		bid.EvaluationStatus,
		bid.EvaluationNotes,
		bid.EvaluatedAt,
		bid.EvaluatedByUserID,
		bid.SubmittedAt)
	return translateError(err, "insert bid")
}

// GetBid возвращает предложение RFx вместе со всеми решениями проверяющих.
func (r *PostgresBidRepository) GetBid(ctx context.Context, rfxId, bidId string) (*models.SupplierBid, error) {
	var bid models.SupplierBid
	query := `SELECT ` + bidColumns + ` FROM supplier_bid WHERE id = $1 AND rfx_id = $2`
	if err := scanBid(db.Conn(ctx, r.DB).QueryRow(ctx, query, bidId, rfxId), &bid); err != nil {
		return nil, translateError(err, "select bid")
	}

	reviews, err := r.getReviews(ctx, bid.ID)
	if err != nil {
		return nil, err
	}
	bid.Reviews = reviews
	return &bid, nil
}

// ListRfxBids возвращает список предложений для RFx.
func (r *PostgresBidRepository) ListRfxBids(ctx context.Context, rfxId string, limit, offset int) ([]models.SupplierBid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM supplier_bid
		WHERE rfx_id = $1
		ORDER BY submitted_at, id
		LIMIT $2 OFFSET $3`
	rows, err := db.Conn(ctx, r.DB).Query(ctx, query, rfxId, limit, offset)
	if err != nil {
		return nil, translateError(err, "list bids")
	}
	defer rows.Close()

	var bids []models.SupplierBid
	for rows.Next() {
		var bid models.SupplierBid
		if err := scanBid(rows, &bid); err != nil {
			return nil, translateError(err, "scan bid")
		}
		bids = append(bids, bid)
	}
	return bids, rows.Err()
}

func (r *PostgresBidRepository) getReviews(ctx context.Context, bidId string) ([]models.BidReview, error) {
	rows, err := db.Conn(ctx, r.DB).Query(ctx, `
		SELECT id, bid_id, reviewer_id, status, notes, updated_at
		FROM bid_review WHERE bid_id = $1 ORDER BY updated_at, reviewer_id`, bidId)
	if err != nil {
		return nil, translateError(err, "select reviews")
	}
	defer rows.Close()

	reviews := []models.BidReview{}
	for rows.Next() {
		var review models.BidReview
		if err := rows.Scan(&review.ID, &review.BidID, &review.ReviewerID, &review.Status, &review.Notes, &review.UpdatedAt); err != nil {
			return nil, translateError(err, "scan review")
		}
		reviews = append(reviews, review)
	}
	return reviews, rows.Err()
}

// UpsertReview записывает решение проверяющего: одна строка на пару (предложение, проверяющий).
// Повторное решение того же проверяющего перезаписывает статус, заметки и время.
// Второе значение - true, если строка была создана.
func (r *PostgresBidRepository) UpsertReview(ctx context.Context, review models.BidReview) (*models.BidReview, bool, error) {
	query := `
		INSERT INTO bid_review (id, bid_id, reviewer_id, status, notes, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ON CONSTRAINT ` + ConstraintReviewReviewer + ` DO UPDATE
		SET status = EXCLUDED.status, notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at
		RETURNING id, bid_id, reviewer_id, status, notes, updated_at, (xmax = 0)`

	var saved models.BidReview
	var inserted bool
	err := db.Conn(ctx, r.DB).QueryRow(ctx, query,
		review.ID,
		review.BidID,
		review.ReviewerID,
		review.Status,
		review.Notes,
		review.UpdatedAt).Scan(
		&saved.ID,
		&saved.BidID,
		&saved.ReviewerID,
		&saved.Status,
		&saved.Notes,
		&saved.UpdatedAt,
		&inserted)
	if err != nil {
		return nil, false, translateError(err, "upsert review")
	}
	return &saved, inserted, nil
}

// UpdateEvaluationSummary перезаписывает сводные поля оценки предложения.
func (r *PostgresBidRepository) UpdateEvaluationSummary(ctx context.Context, bidId string, summary models.EvaluationSummary) error {
	tag, err := db.Conn(ctx, r.DB).Exec(ctx, `
		UPDATE supplier_bid
		SET evaluation_status = $1, evaluation_notes = $2, evaluated_at = $3, evaluated_by_user_id = $4
		WHERE id = $5`,
		summary.Status, summary.Notes, summary.EvaluatedAt, summary.EvaluatedBy, bidId)
	if err != nil {
		return translateError(err, "update bid evaluation")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetReview возвращает решение конкретного проверяющего.
func (r *PostgresBidRepository) GetReview(ctx context.Context, bidId, reviewerId string) (*models.BidReview, error) {
	var review models.BidReview
	err := db.Conn(ctx, r.DB).QueryRow(ctx, `
		SELECT id, bid_id, reviewer_id, status, notes, updated_at
		FROM bid_review WHERE bid_id = $1 AND reviewer_id = $2`, bidId, reviewerId).Scan(
		&review.ID, &review.BidID, &review.ReviewerID, &review.Status, &review.Notes, &review.UpdatedAt)
	if err != nil {
		return nil, translateError(err, "select review")
	}
	return &review, nil
}
