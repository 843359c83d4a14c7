package repository

import (
	"context"
	"time"

	"github.com/senyabanana/procurement-service/internal/db"
	"github.com/senyabanana/procurement-service/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ContractRepository - интерфейс для работы с контрактами.
type ContractRepository interface {
	ContractExistsForBid(ctx context.Context, bidId string) (bool, error)
	CreateContract(ctx context.Context, contract *models.Contract) error
	GetContract(ctx context.Context, contractId string) (*models.Contract, error)
	GetSupplierContractForUpdate(ctx context.Context, contractId, supplierId string) (*models.Contract, error)
	SignContract(ctx context.Context, contractId, signature string, signedAt time.Time) error
}

// PostgresContractRepository - реализация ContractRepository для базы данных.
type PostgresContractRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresContractRepository создает новый экземпляр PostgresContractRepository.
func NewPostgresContractRepository(db *pgxpool.Pool) *PostgresContractRepository {
	return &PostgresContractRepository{DB: db}
}

const contractColumns = `id, bid_id, rfx_id, title, supplier_id, supplier_name, value, currency, start_date, end_date,
	status, supplier_signature, signed_at, created_by, created_at`

func scanContract(row pgx.Row, c *models.Contract) error {
	return row.Scan(
		&c.ID,
		&c.BidID,
		&c.RfxID,
		&c.Title,
		&c.SupplierID,
		&c.SupplierName,
		&c.Value,
		&c.Currency,
		&c.StartDate,
		&c.EndDate,
		&c.Status,
		&c.SupplierSignature,
		&c.SignedAt,
		&c.CreatedBy,
		&c.CreatedAt)
}

// ContractExistsForBid проверяет, выпущен ли уже контракт по предложению.
func (r *PostgresContractRepository) ContractExistsForBid(ctx context.Context, bidId string) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.DB).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM contract WHERE bid_id = $1)`, bidId).Scan(&exists)
	if err != nil {
		return false, translateError(err, "check contract")
	}
	return exists, nil
}

// CreateContract сохраняет контракт. Второй контракт по тому же предложению
// отклоняется уникальным индексом и возвращается как ErrDuplicate.
func (r *PostgresContractRepository) CreateContract(ctx context.Context, c *models.Contract) error {
	_, err := db.Conn(ctx, r.DB).Exec(ctx, `
		INSERT INTO contract (`+contractColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		c.ID,
		c.BidID,
		c.RfxID,
		c.Title,
		c.SupplierID,
		c.SupplierName,
		c.Value,
		c.Currency,
		c.StartDate,
		c.EndDate,
		c.Status,
		c.SupplierSignature,
		c.SignedAt,
		c.CreatedBy,
		c.CreatedAt)
	return translateError(err, "insert contract")
}

// GetContract возвращает контракт по ID.
func (r *PostgresContractRepository) GetContract(ctx context.Context, contractId string) (*models.Contract, error) {
	var c models.Contract
	query := `SELECT ` + contractColumns + ` FROM contract WHERE id = $1`
	if err := scanContract(db.Conn(ctx, r.DB).QueryRow(ctx, query, contractId), &c); err != nil {
		return nil, translateError(err, "select contract")
	}
	return &c, nil
}

// GetSupplierContractForUpdate возвращает контракт поставщика и блокирует строку.
func (r *PostgresContractRepository) GetSupplierContractForUpdate(ctx context.Context, contractId, supplierId string) (*models.Contract, error) {
	var c models.Contract
	query := `SELECT ` + contractColumns + ` FROM contract WHERE id = $1 AND supplier_id = $2 FOR UPDATE`
	if err := scanContract(db.Conn(ctx, r.DB).QueryRow(ctx, query, contractId, supplierId), &c); err != nil {
		return nil, translateError(err, "select contract")
	}
	return &c, nil
}

// SignContract сохраняет подпись и переводит контракт из Draft в Active.
func (r *PostgresContractRepository) SignContract(ctx context.Context, contractId, signature string, signedAt time.Time) error {
	tag, err := db.Conn(ctx, r.DB).Exec(ctx, `
		UPDATE contract SET supplier_signature = $1, signed_at = $2, status = $3
		WHERE id = $4 AND status = $5`,
		signature, signedAt, models.ActiveContract, contractId, models.DraftContract)
	if err != nil {
		return translateError(err, "sign contract")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
