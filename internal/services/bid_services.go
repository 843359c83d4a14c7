package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/repository"

	"github.com/google/uuid"
)

type BidService struct {
	Repo      repository.BidRepository
	RfxRepo   repository.RfxRepository
	Tx        Transactor
	Documents DocumentStore
	Now       Clock
}

// NewBidService создает новый экземпляр BidService. documents может быть nil:
// тогда содержимое документов хранится в самом предложении.
func NewBidService(repo repository.BidRepository, rfxRepo repository.RfxRepository, tx Transactor, documents DocumentStore) *BidService {
	return &BidService{Repo: repo, RfxRepo: rfxRepo, Tx: tx, Documents: documents, Now: systemClock}
}

// SubmitBid проверяет предложение по требованиям RFx и сохраняет его.
func (s *BidService) SubmitBid(ctx context.Context, rfxId, bidderId string, req models.BidRequest) (*models.BidConfirmation, error) {
	if bidderId == "" {
		return nil, models.UnauthorizedError("bidder identity is required")
	}

	rfx, err := s.RfxRepo.GetRfx(ctx, rfxId)
	if err != nil {
		return nil, storeError(err, "get rfx", "rfx", rfxId)
	}

	now := s.Now()
	if err := checkAcceptingBids(rfx, now); err != nil {
		return nil, err
	}
	if err := validateBidTerms(req); err != nil {
		return nil, err
	}
	if err := checkRequiredDocuments(rfx.RequiredDocuments, req.Documents); err != nil {
		return nil, err
	}
	decoded, err := decodeDocuments(req.Documents)
	if err != nil {
		return nil, err
	}
	inputs := mergeBidInputs(req)
	if err := checkRequiredInputs(models.RequiredInputs(*rfx), inputs); err != nil {
		return nil, err
	}

	bid := &models.SupplierBid{
		ID:               uuid.NewString(),
		RfxID:            rfx.ID,
		BidderID:         bidderId,
		BidderName:       strings.TrimSpace(req.BidderName),
		Amount:           req.Amount,
		Currency:         strings.ToUpper(strings.TrimSpace(req.Currency)),
		DeliveryDate:     req.DeliveryDate.UTC(),
		Proposal:         req.Proposal,
		Inputs:           inputs,
		EvaluationStatus: models.PendingReview,
		SubmittedAt:      now,
	}

	documents, uploaded, err := s.storeDocuments(ctx, bid, req.Documents, decoded)
	if err != nil {
		return nil, errors.Join(err, s.removeDocuments(ctx, uploaded))
	}
	bid.Documents = documents

	if err := s.Repo.CreateBid(ctx, bid); err != nil {
		return nil, errors.Join(fmt.Errorf("create bid: %w", err), s.removeDocuments(ctx, uploaded))
	}

	return &models.BidConfirmation{
		BidID:            bid.ID,
		RfxID:            rfx.ID,
		ReferenceNumber:  rfx.ReferenceNumber,
		EvaluationStatus: bid.EvaluationStatus,
		SubmittedAt:      bid.SubmittedAt,
	}, nil
}

func checkAcceptingBids(rfx *models.Rfx, now time.Time) error {
	if rfx.Status != models.PublishedRfx {
		return models.ConflictError(models.CodeNotPublished, "rfx %s is not open for bids (status %s)", rfx.ReferenceNumber, rfx.Status)
	}
	deadline := rfx.ClosingDate
	if rfx.SubmissionDeadline != nil {
		deadline = *rfx.SubmissionDeadline
	}
	if now.After(deadline) {
		return models.ConflictError(models.CodeDeadlinePassed, "submission deadline %s has passed", deadline.Format(time.RFC3339))
	}
	return nil
}

func validateBidTerms(req models.BidRequest) error {
	if req.Amount <= 0 {
		return models.NewErrorResponse(http.StatusBadRequest, models.CodeInvalidAmount, "bid amount must be greater than zero")
	}
	if strings.TrimSpace(req.Currency) == "" {
		return models.NewErrorResponse(http.StatusBadRequest, models.CodeInvalidCurrency, "currency is required")
	}
	if req.DeliveryDate == nil || req.DeliveryDate.IsZero() {
		return models.NewErrorResponse(http.StatusBadRequest, models.CodeMissingDeliveryDate, "delivery date is required")
	}
	if strings.TrimSpace(req.Proposal) == "" {
		return models.NewErrorResponse(http.StatusBadRequest, models.CodeMissingProposal, "proposal is required")
	}
	return nil
}

// checkRequiredDocuments требует каждый документ из списка RFx: совпадение имени
// без учета регистра и непустое содержимое.
func checkRequiredDocuments(required []string, documents []models.BidDocument) error {
	var missing []string
	for _, name := range required {
		found := false
		for _, doc := range documents {
			if strings.EqualFold(strings.TrimSpace(doc.Name), name) && strings.TrimSpace(doc.Content) != "" {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return models.NewErrorResponse(http.StatusBadRequest, models.CodeDocumentsIncomplete,
			"missing required documents: "+strings.Join(missing, ", "))
	}
	return nil
}

func decodeDocuments(documents []models.BidDocument) ([][]byte, error) {
	decoded := make([][]byte, len(documents))
	for i, doc := range documents {
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(doc.Content))
		if err != nil {
			return nil, models.NewErrorResponse(http.StatusBadRequest, models.CodeDocumentsInvalid,
				fmt.Sprintf("document %q is not valid base64", documentLabel(doc, i)))
		}
		decoded[i] = data
	}
	return decoded, nil
}

func documentLabel(doc models.BidDocument, i int) string {
	if name := strings.TrimSpace(doc.Name); name != "" {
		return name
	}
	if doc.FileName != "" {
		return doc.FileName
	}
	return "#" + strconv.Itoa(i+1)
}

// mergeBidInputs дополняет текстовые поля значениями из структурных полей
// запроса: сумма, срок поставки и описание предложения всегда заданы ими.
func mergeBidInputs(req models.BidRequest) []models.BidInput {
	inputs := make([]models.BidInput, 0, len(req.Inputs)+3)
	for _, in := range req.Inputs {
		inputs = append(inputs, models.BidInput{Name: strings.TrimSpace(in.Name), Value: in.Value})
	}

	derived := []models.BidInput{
		{Name: models.InputBidAmount, Value: strconv.FormatFloat(req.Amount, 'f', -1, 64)},
		{Name: models.InputProposalSummary, Value: req.Proposal},
	}
	if req.DeliveryDate != nil {
		derived = append(derived, models.BidInput{Name: models.InputDeliveryDate, Value: req.DeliveryDate.UTC().Format(time.DateOnly)})
	}
	for _, d := range derived {
		if findInput(inputs, d.Name) < 0 {
			inputs = append(inputs, d)
		}
	}
	return inputs
}

func findInput(inputs []models.BidInput, name string) int {
	for i, in := range inputs {
		if strings.EqualFold(in.Name, name) {
			return i
		}
	}
	return -1
}

func checkRequiredInputs(required []string, inputs []models.BidInput) error {
	var missing []string
	for _, name := range required {
		idx := findInput(inputs, name)
		if idx < 0 || strings.TrimSpace(inputs[idx].Value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return models.NewErrorResponse(http.StatusBadRequest, models.CodeInputsIncomplete,
			"missing required inputs: "+strings.Join(missing, ", "))
	}
	return nil
}

// storeDocuments передает декодированные документы в хранилище. Возвращает
// описания для сохранения и ключи уже загруженных объектов.
func (s *BidService) storeDocuments(ctx context.Context, bid *models.SupplierBid, documents []models.BidDocument, decoded [][]byte) ([]models.BidDocument, []string, error) {
	out := make([]models.BidDocument, 0, len(documents))
	var uploaded []string
	for i, doc := range documents {
		stored := models.BidDocument{
			Name:        strings.TrimSpace(doc.Name),
			FileName:    doc.FileName,
			ContentType: doc.ContentType,
			Size:        len(decoded[i]),
		}
		if s.Documents == nil {
			stored.Content = strings.TrimSpace(doc.Content)
			out = append(out, stored)
			continue
		}

		key := documentKey(bid, doc, i)
		objectKey, err := s.Documents.PutDocument(ctx, key, doc.ContentType, decoded[i])
		if err != nil {
			return nil, uploaded, fmt.Errorf("store document %q: %w", documentLabel(doc, i), err)
		}
		uploaded = append(uploaded, objectKey)
		stored.ObjectKey = objectKey
		out = append(out, stored)
	}
	return out, uploaded, nil
}

func documentKey(bid *models.SupplierBid, doc models.BidDocument, i int) string {
	name := path.Base(strings.ReplaceAll(doc.FileName, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "document"
	}
	return fmt.Sprintf("rfx/%s/bids/%s/%02d-%s", bid.RfxID, bid.ID, i+1, name)
}

// removeDocuments удаляет загруженные объекты после неудачной подачи.
// Ошибки удаления возвращаются вместе, чтобы их увидел лог обработчика.
func (s *BidService) removeDocuments(ctx context.Context, keys []string) error {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for _, key := range keys {
		if err := s.Documents.RemoveDocument(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("remove document %q: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// EvaluateBid записывает решение проверяющего и обновляет сводную оценку предложения.
// Решение хранится по одному на пару (предложение, проверяющий), а сводные поля
// предложения всегда отражают последнее обработанное решение.
func (s *BidService) EvaluateBid(ctx context.Context, rfxId, bidId string, req models.EvaluationRequest, reviewerId string) (*models.BidSummary, error) {
	if reviewerId == "" {
		return nil, models.UnauthorizedError("reviewer identity is required")
	}
	status, ok := models.ParseEvaluationStatus(req.Status)
	if !ok {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.CodeInvalidStatus,
			fmt.Sprintf("invalid evaluation status %q", req.Status))
	}

	var result *models.SupplierBid
	err := s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.RfxRepo.GetRfx(ctx, rfxId); err != nil {
			return storeError(err, "get rfx", "rfx", rfxId)
		}
		if _, err := s.Repo.GetBid(ctx, rfxId, bidId); err != nil {
			return storeError(err, "get bid", "bid", bidId)
		}

		now := s.Now()
		review := models.BidReview{
			ID:         uuid.NewString(),
			BidID:      bidId,
			ReviewerID: reviewerId,
			Status:     status,
			Notes:      req.Notes,
			UpdatedAt:  now,
		}
		if _, _, err := s.Repo.UpsertReview(ctx, review); err != nil {
			return fmt.Errorf("record review: %w", err)
		}

		summary := models.EvaluationSummary{
			Status:      status,
			Notes:       req.Notes,
			EvaluatedAt: now,
			EvaluatedBy: reviewerId,
		}
		if err := s.Repo.UpdateEvaluationSummary(ctx, bidId, summary); err != nil {
			return storeError(err, "update bid evaluation", "bid", bidId)
		}

		bid, err := s.Repo.GetBid(ctx, rfxId, bidId)
		if err != nil {
			return storeError(err, "reload bid", "bid", bidId)
		}
		result = bid
		return nil
	})
	if err != nil {
		return nil, err
	}
	return models.NewBidSummary(*result), nil
}

// GetBid возвращает предложение вместе с решениями всех проверяющих.
func (s *BidService) GetBid(ctx context.Context, rfxId, bidId string) (*models.SupplierBid, error) {
	bid, err := s.Repo.GetBid(ctx, rfxId, bidId)
	if err != nil {
		return nil, storeError(err, "get bid", "bid", bidId)
	}
	if bid.Reviews == nil {
		bid.Reviews = []models.BidReview{}
	}
	return bid, nil
}

// ListRfxBids получает список предложений для RFx.
func (s *BidService) ListRfxBids(ctx context.Context, rfxId string, limit, offset int) ([]models.SupplierBid, error) {
	if _, err := s.RfxRepo.GetRfx(ctx, rfxId); err != nil {
		return nil, storeError(err, "get rfx", "rfx", rfxId)
	}
	bids, err := s.Repo.ListRfxBids(ctx, rfxId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	if bids == nil {
		bids = []models.SupplierBid{}
	}
	return bids, nil
}

// GetReviewerReview возвращает решение конкретного проверяющего по предложению.
func (s *BidService) GetReviewerReview(ctx context.Context, rfxId, bidId, reviewerId string) (*models.BidReview, error) {
	if _, err := s.Repo.GetBid(ctx, rfxId, bidId); err != nil {
		return nil, storeError(err, "get bid", "bid", bidId)
	}
	review, err := s.Repo.GetReview(ctx, bidId, reviewerId)
	if err != nil {
		return nil, storeError(err, "get review", "review by", reviewerId)
	}
	return review, nil
}
