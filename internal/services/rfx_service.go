package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/repository"

	"github.com/google/uuid"
)

// referenceAttempts - сколько раз создание RFx пробует номер: исходный и один повтор.
const referenceAttempts = 2

type RfxService struct {
	Repo  repository.RfxRepository
	Users repository.UserDirectory
	Tx    Transactor
	Now   Clock
}

// NewRfxService создаёт новый экземпляр RfxService.
func NewRfxService(repo repository.RfxRepository, users repository.UserDirectory, tx Transactor) *RfxService {
	return &RfxService{Repo: repo, Users: users, Tx: tx, Now: systemClock}
}

// CreateRfx проверяет запрос, выдает регистрационный номер и сохраняет RFx
// вместе с критериями и комиссией.
func (s *RfxService) CreateRfx(ctx context.Context, req models.RfxRequest, creatorId string) (*models.RfxDetail, error) {
	now := s.Now()

	status, err := s.validateCreate(ctx, req)
	if err != nil {
		return nil, err
	}

	rfx := buildRfx(req, status, creatorId, now)

	for attempt := 1; ; attempt++ {
		err = s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
			count, err := s.Repo.CountCreatedInYear(ctx, now.Year())
			if err != nil {
				return err
			}
			rfx.ReferenceNumber = models.FormatReference(now.Year(), count+1)
			return s.Repo.CreateRfx(ctx, rfx)
		})
		if err == nil {
			break
		}
		if repository.IsDuplicateOf(err, repository.ConstraintRfxReference) {
			if attempt < referenceAttempts {
				continue
			}
			return nil, models.ConflictError(models.CodeDuplicate, "reference number %s is already taken", rfx.ReferenceNumber)
		}
		return nil, fmt.Errorf("create rfx: %w", err)
	}

	return models.NewRfxDetail(*rfx), nil
}

func (s *RfxService) validateCreate(ctx context.Context, req models.RfxRequest) (models.RfxStatus, error) {
	if strings.TrimSpace(req.Title) == "" {
		return "", models.ValidationError("title is required")
	}

	status, ok := models.ParseRfxStatus(req.Status)
	if !ok {
		return "", models.ValidationError("invalid status %q", req.Status)
	}

	if len(req.Criteria) == 0 {
		return "", models.ValidationError("at least one evaluation criterion is required")
	}
	for i, c := range req.Criteria {
		if strings.TrimSpace(c.Title) == "" {
			return "", models.ValidationError("criterion %d: title is required", i+1)
		}
		if c.Weight < 0 {
			return "", models.ValidationError("criterion %q: weight must not be negative", c.Title)
		}
		if _, ok := models.ParseCriterionType(c.Type); !ok {
			return "", models.ValidationError("criterion %q: invalid type %q", c.Title, c.Type)
		}
	}
	if models.TotalWeight(req.Criteria) <= 0 {
		return "", models.ValidationError("total criteria weight must be greater than zero")
	}

	if req.MinimumScore < 0 || req.MinimumScore > 100 {
		return "", models.ValidationError("minimum score must be between 0 and 100")
	}

	if req.ClosingDate == nil {
		return "", models.ValidationError("closing date is required")
	}
	if !req.ClosingDate.After(s.Now()) {
		return "", models.ValidationError("closing date must be in the future")
	}
	if req.SubmissionDeadline != nil && req.SubmissionDeadline.After(*req.ClosingDate) {
		return "", models.ValidationError("submission deadline must not be after the closing date")
	}

	seen := make(map[string]bool)
	for i, m := range req.Committee {
		if strings.TrimSpace(m.Name) == "" {
			return "", models.ValidationError("committee member %d: name is required", i+1)
		}
		if m.UserID == nil || *m.UserID == "" {
			continue
		}
		if seen[*m.UserID] {
			return "", models.ValidationError("user %s is listed in the committee more than once", *m.UserID)
		}
		seen[*m.UserID] = true
	}

	missing, err := s.Users.FindMissingUsers(ctx, models.CommitteeUserIDs(req.Committee))
	if err != nil {
		return "", fmt.Errorf("resolve committee users: %w", err)
	}
	if len(missing) > 0 {
		return "", models.ValidationError("unknown committee users: %s", strings.Join(missing, ", "))
	}

	return status, nil
}

func buildRfx(req models.RfxRequest, status models.RfxStatus, creatorId string, now time.Time) *models.Rfx {
	rfx := &models.Rfx{
		ID:                     uuid.NewString(),
		Type:                   strings.TrimSpace(req.Type),
		Category:               strings.TrimSpace(req.Category),
		Title:                  strings.TrimSpace(req.Title),
		Description:            req.Description,
		Department:             strings.TrimSpace(req.Department),
		EstimatedBudget:        req.EstimatedBudget,
		Currency:               strings.ToUpper(strings.TrimSpace(req.Currency)),
		HideBudget:             req.HideBudget,
		PublicationDate:        req.PublicationDate,
		SubmissionDeadline:     req.SubmissionDeadline,
		ClosingDate:            req.ClosingDate.UTC(),
		TechnicalSpecification: req.TechnicalSpecification,
		Deliverables:           req.Deliverables,
		RequiredDocuments:      models.NormalizeDocumentList(req.RequiredDocuments),
		MinimumScore:           req.MinimumScore,
		Status:                 status,
		CreatedBy:              creatorId,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	for _, c := range req.Criteria {
		criterionType, _ := models.ParseCriterionType(c.Type)
		rfx.Criteria = append(rfx.Criteria, models.EvaluationCriterion{
			ID:     uuid.NewString(),
			RfxID:  rfx.ID,
			Title:  strings.TrimSpace(c.Title),
			Weight: c.Weight,
			Type:   criterionType,
		})
	}

	rfx.Committee = make([]models.CommitteeMember, 0, len(req.Committee))
	for _, m := range req.Committee {
		var userId *string
		if m.UserID != nil && *m.UserID != "" {
			id := *m.UserID
			userId = &id
		}
		rfx.Committee = append(rfx.Committee, models.CommitteeMember{
			ID:     uuid.NewString(),
			RfxID:  rfx.ID,
			UserID: userId,
			Name:   strings.TrimSpace(m.Name),
			Role:   strings.TrimSpace(m.Role),
		})
	}
	return rfx
}

// ApproveRfx отмечает одобрение члена комиссии. Когда одобрили все члены,
// RFx публикуется. Строка RFx заблокирована до конца транзакции.
func (s *RfxService) ApproveRfx(ctx context.Context, rfxId, userId string) (*models.RfxDetail, error) {
	var result *models.Rfx
	err := s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		rfx, err := s.Repo.GetRfxForUpdate(ctx, rfxId)
		if err != nil {
			return storeError(err, "lock rfx", "rfx", rfxId)
		}

		idx := models.FindMemberByUser(rfx.Committee, userId)
		if idx < 0 {
			return models.ForbiddenError("you are not a committee member of this rfx")
		}
		if rfx.Status != models.DraftRfx {
			return models.ConflictError(models.CodeInvalidStatus, "rfx is %s, only Draft rfx can be approved", rfx.Status)
		}
		member := &rfx.Committee[idx]
		if member.IsApproved {
			return models.ConflictError(models.CodeAlreadyApproved, "committee member %s has already approved this rfx", member.Name)
		}

		now := s.Now()
		member.IsApproved = true
		member.ApprovedAt = &now
		if err := s.Repo.UpdateCommitteeMember(ctx, *member); err != nil {
			return storeError(err, "approve committee member", "committee member", member.ID)
		}

		if models.AllApproved(rfx.Committee) {
			if err := s.Repo.UpdateRfxStatus(ctx, rfx.ID, models.PublishedRfx, now); err != nil {
				return storeError(err, "publish rfx", "rfx", rfx.ID)
			}
			rfx.Status = models.PublishedRfx
			rfx.UpdatedAt = now
		}
		result = rfx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return models.NewRfxDetail(*result), nil
}

// CloseRfx закрывает RFx. Закрыть может администратор или член комиссии,
// в том числе RFx в статусе Draft.
func (s *RfxService) CloseRfx(ctx context.Context, rfxId, userId string, isAdmin bool) (*models.RfxDetail, error) {
	var result *models.Rfx
	err := s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		rfx, err := s.Repo.GetRfxForUpdate(ctx, rfxId)
		if err != nil {
			return storeError(err, "lock rfx", "rfx", rfxId)
		}

		if !isAdmin && models.FindMemberByUser(rfx.Committee, userId) < 0 {
			return models.ForbiddenError("only an administrator or a committee member can close this rfx")
		}
		if rfx.Status == models.ClosedRfx {
			return models.ConflictError(models.CodeAlreadyClosed, "rfx %s is already closed", rfx.ReferenceNumber)
		}

		now := s.Now()
		if err := s.Repo.UpdateRfxStatus(ctx, rfx.ID, models.ClosedRfx, now); err != nil {
			return storeError(err, "close rfx", "rfx", rfx.ID)
		}
		rfx.Status = models.ClosedRfx
		rfx.UpdatedAt = now
		result = rfx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return models.NewRfxDetail(*result), nil
}

// GetRfx возвращает RFx с производным статусом комиссии. Скрытый бюджет
// видят только автор, члены комиссии и администратор.
func (s *RfxService) GetRfx(ctx context.Context, rfxId, userId string, isAdmin bool) (*models.RfxDetail, error) {
	rfx, err := s.Repo.GetRfx(ctx, rfxId)
	if err != nil {
		return nil, storeError(err, "get rfx", "rfx", rfxId)
	}
	return models.NewRfxDetail(*rfx).RedactFor(userId, isAdmin), nil
}

// ListRfx получает список RFx, при необходимости отфильтрованный по статусам.
func (s *RfxService) ListRfx(ctx context.Context, statuses []string, limit, offset int, userId string, isAdmin bool) ([]models.RfxDetail, error) {
	filter := make([]string, 0, len(statuses))
	for _, raw := range statuses {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		status, ok := models.ParseRfxStatus(raw)
		if !ok {
			return nil, models.ValidationError("unsupported status: %s", raw)
		}
		filter = append(filter, string(status))
	}

	list, err := s.Repo.ListRfx(ctx, filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list rfx: %w", err)
	}

	details := make([]models.RfxDetail, 0, len(list))
	for _, rfx := range list {
		details = append(details, *models.NewRfxDetail(rfx).RedactFor(userId, isAdmin))
	}
	return details, nil
}
