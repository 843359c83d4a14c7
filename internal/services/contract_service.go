package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/repository"

	"github.com/google/uuid"
)

type ContractService struct {
	Repo    repository.ContractRepository
	BidRepo repository.BidRepository
	RfxRepo repository.RfxRepository
	Tx      Transactor
	Now     Clock
}

// NewContractService создает новый экземпляр ContractService.
func NewContractService(repo repository.ContractRepository, bidRepo repository.BidRepository, rfxRepo repository.RfxRepository, tx Transactor) *ContractService {
	return &ContractService{Repo: repo, BidRepo: bidRepo, RfxRepo: rfxRepo, Tx: tx, Now: systemClock}
}

// CreateContract выпускает контракт в статусе Draft по одобренному предложению.
// На одно предложение допускается только один контракт.
func (s *ContractService) CreateContract(ctx context.Context, req models.ContractRequest, creatorId string) (*models.ContractSummary, error) {
	rfxId := strings.TrimSpace(req.RfxID)
	bidId := strings.TrimSpace(req.BidID)
	if rfxId == "" || bidId == "" {
		return nil, models.ValidationError("rfxId and bidId are required")
	}
	if err := validateContractTerms(req); err != nil {
		return nil, err
	}

	var contract *models.Contract
	err := s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.RfxRepo.GetRfx(ctx, rfxId); err != nil {
			return storeError(err, "get rfx", "rfx", rfxId)
		}
		bid, err := s.BidRepo.GetBid(ctx, rfxId, bidId)
		if err != nil {
			return storeError(err, "get bid", "bid", bidId)
		}
		if !strings.EqualFold(string(bid.EvaluationStatus), string(models.ApprovedBid)) {
			return models.ConflictError(models.CodeInvalidStatus, "bid %s is %s, only approved bids can be contracted", bid.ID, bid.EvaluationStatus)
		}

		exists, err := s.Repo.ContractExistsForBid(ctx, bid.ID)
		if err != nil {
			return fmt.Errorf("check contract: %w", err)
		}
		if exists {
			return duplicateContract(bid.ID)
		}

		contract = newContract(req, creatorId, s.Now())
		contract.BidID = &bid.ID
		contract.RfxID = &bid.RfxID
		return s.Repo.CreateContract(ctx, contract)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, duplicateContract(bidId)
		}
		return nil, err
	}
	return models.NewContractSummary(*contract), nil
}

// CreateDirectContract создает контракт вне процедуры RFx, без ссылки на предложение.
func (s *ContractService) CreateDirectContract(ctx context.Context, req models.ContractRequest, creatorId string) (*models.ContractSummary, error) {
	if strings.TrimSpace(req.RfxID) != "" || strings.TrimSpace(req.BidID) != "" {
		return nil, models.ValidationError("direct contracts cannot reference an rfx or a bid")
	}
	if err := validateContractTerms(req); err != nil {
		return nil, err
	}

	contract := newContract(req, creatorId, s.Now())
	if err := s.Repo.CreateContract(ctx, contract); err != nil {
		return nil, fmt.Errorf("create contract: %w", err)
	}
	return models.NewContractSummary(*contract), nil
}

func validateContractTerms(req models.ContractRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return models.ValidationError("title is required")
	}
	if strings.TrimSpace(req.SupplierID) == "" || strings.TrimSpace(req.SupplierName) == "" {
		return models.ValidationError("supplierId and supplierName are required")
	}
	if req.Value <= 0 {
		return models.ValidationError("contract value must be greater than zero")
	}
	if strings.TrimSpace(req.Currency) == "" {
		return models.ValidationError("currency is required")
	}
	if req.StartDate == nil || req.EndDate == nil {
		return models.ValidationError("startDate and endDate are required")
	}
	if req.EndDate.Before(*req.StartDate) {
		return models.ValidationError("endDate must not be before startDate")
	}
	return nil
}

func newContract(req models.ContractRequest, creatorId string, now time.Time) *models.Contract {
	return &models.Contract{
		ID:           uuid.NewString(),
		Title:        strings.TrimSpace(req.Title),
		SupplierID:   strings.TrimSpace(req.SupplierID),
		SupplierName: strings.TrimSpace(req.SupplierName),
		Value:        req.Value,
		Currency:     strings.ToUpper(strings.TrimSpace(req.Currency)),
		StartDate:    req.StartDate.UTC(),
		EndDate:      req.EndDate.UTC(),
		Status:       models.DraftContract,
		CreatedBy:    creatorId,
		CreatedAt:    now,
	}
}

func duplicateContract(bidId string) error {
	return models.ConflictError(models.CodeDuplicate, "a contract already exists for bid %s", bidId)
}

// SignContract сохраняет подпись поставщика и переводит контракт из Draft в Active.
// Подписать можно только один раз.
func (s *ContractService) SignContract(ctx context.Context, contractId, supplierId, signature string) (*models.ContractSummary, error) {
	if supplierId == "" {
		return nil, models.UnauthorizedError("supplier identity is required")
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.CodeInvalidSignature, "signature is required")
	}

	var contract *models.Contract
	err := s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		c, err := s.Repo.GetSupplierContractForUpdate(ctx, contractId, supplierId)
		if err != nil {
			return storeError(err, "lock contract", "contract", contractId)
		}
		if c.Status != models.DraftContract {
			return models.ConflictError(models.CodeInvalidStatus, "contract is %s, only Draft contracts can be signed", c.Status)
		}

		now := s.Now()
		if err := s.Repo.SignContract(ctx, c.ID, signature, now); err != nil {
			return storeError(err, "sign contract", "contract", c.ID)
		}
		c.Status = models.ActiveContract
		c.SupplierSignature = &signature
		c.SignedAt = &now
		contract = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return models.NewContractSummary(*contract), nil
}

// GetContract возвращает контракт по ID.
func (s *ContractService) GetContract(ctx context.Context, contractId string) (*models.ContractSummary, error) {
	contract, err := s.Repo.GetContract(ctx, contractId)
	if err != nil {
		return nil, storeError(err, "get contract", "contract", contractId)
	}
	return models.NewContractSummary(*contract), nil
}
