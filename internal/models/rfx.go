package models

import (
	"fmt"
	"strings"
	"time"
)

type (
	RfxStatus     string // Статус RFx
	CriterionType string // Тип критерия оценки
)

const (
	DraftRfx     RfxStatus = "Draft"     // RFx создан, ждет одобрения комиссии
	PublishedRfx RfxStatus = "Published" // RFx опубликован, принимает предложения
	ClosedRfx    RfxStatus = "Closed"    // RFx закрыт

	TechnicalCriterion  CriterionType = "technical"
	CommercialCriterion CriterionType = "commercial"
)

// ReferencePrefix - префикс регистрационного номера RFx.
const ReferencePrefix = "RFX"

// ParseRfxStatus проверяет статус RFx; пустое значение означает Draft.
func ParseRfxStatus(s string) (RfxStatus, bool) {
	switch RfxStatus(strings.TrimSpace(s)) {
	case "":
		return DraftRfx, true
	case DraftRfx:
		return DraftRfx, true
	case PublishedRfx:
		return PublishedRfx, true
	case ClosedRfx:
		return ClosedRfx, true
	default:
		return "", false
	}
}

// ParseCriterionType проверяет тип критерия без учета регистра.
func ParseCriterionType(s string) (CriterionType, bool) {
	switch CriterionType(strings.ToLower(strings.TrimSpace(s))) {
	case TechnicalCriterion:
		return TechnicalCriterion, true
	case CommercialCriterion:
		return CommercialCriterion, true
	default:
		return "", false
	}
}

// FormatReference собирает номер вида RFX-2026-0042.
func FormatReference(year, seq int) string {
	return fmt.Sprintf("%s-%d-%04d", ReferencePrefix, year, seq)
}

// Rfx представляет модель запроса предложений.
type Rfx struct {
	ID                     string                `json:"id"`
	ReferenceNumber        string                `json:"referenceNumber"`
	Type                   string                `json:"type"`
	Category               string                `json:"category"`
	Title                  string                `json:"title"`
	Description            string                `json:"description"`
	Department             string                `json:"department"`
	EstimatedBudget        float64               `json:"estimatedBudget"`
	Currency               string                `json:"currency"`
	HideBudget             bool                  `json:"hideBudget"`
	PublicationDate        *time.Time            `json:"publicationDate,omitempty"`
	SubmissionDeadline     *time.Time            `json:"submissionDeadline,omitempty"`
	ClosingDate            time.Time             `json:"closingDate"`
	TechnicalSpecification string                `json:"technicalSpecification,omitempty"`
	Deliverables           string                `json:"deliverables,omitempty"`
	RequiredDocuments      []string              `json:"requiredDocuments"`
	MinimumScore           int                   `json:"minimumScore"`
	Status                 RfxStatus             `json:"status"`
	CreatedBy              string                `json:"createdBy"`
	CreatedAt              time.Time             `json:"createdAt"`
	UpdatedAt              time.Time             `json:"updatedAt"`
	Criteria               []EvaluationCriterion `json:"criteria"`
	Committee              []CommitteeMember     `json:"committee"`
}

// EvaluationCriterion представляет взвешенный критерий оценки.
type EvaluationCriterion struct {
	ID     string        `json:"id"`
	RfxID  string        `json:"-"`
	Title  string        `json:"title"`
	Weight int           `json:"weight"`
	Type   CriterionType `json:"type"`
}

// RfxRequest представляет структуру запроса для создания RFx.
type RfxRequest struct {
	Type                   string                   `json:"type"`
	Category               string                   `json:"category"`
	Title                  string                   `json:"title"`
	Description            string                   `json:"description"`
	Department             string                   `json:"department"`
	EstimatedBudget        float64                  `json:"estimatedBudget"`
	Currency               string                   `json:"currency"`
	HideBudget             bool                     `json:"hideBudget"`
	PublicationDate        *time.Time               `json:"publicationDate"`
	SubmissionDeadline     *time.Time               `json:"submissionDeadline"`
	ClosingDate            *time.Time               `json:"closingDate"`
	TechnicalSpecification string                   `json:"technicalSpecification"`
	Deliverables           string                   `json:"deliverables"`
	RequiredDocuments      []string                 `json:"requiredDocuments"`
	MinimumScore           int                      `json:"minimumScore"`
	Status                 string                   `json:"status"`
	Criteria               []CriterionRequest       `json:"criteria"`
	Committee              []CommitteeMemberRequest `json:"committee"`
}

type CriterionRequest struct {
	Title  string `json:"title"`
	Weight int    `json:"weight"`
	Type   string `json:"type"`
}

type CommitteeMemberRequest struct {
	UserID *string `json:"userId"`
	Name   string  `json:"name"`
	Role   string  `json:"role"`
}

// RfxDetail - RFx вместе с производным статусом комиссии.
// EstimatedBudget равен nil, если бюджет скрыт от читателя.
type RfxDetail struct {
	Rfx
	EstimatedBudget *float64 `json:"estimatedBudget,omitempty"`
	CommitteeStatus string   `json:"committeeStatus"`
}

// NewRfxDetail строит проекцию для чтения.
func NewRfxDetail(rfx Rfx) *RfxDetail {
	budget := rfx.EstimatedBudget
	return &RfxDetail{Rfx: rfx, EstimatedBudget: &budget, CommitteeStatus: CommitteeStatus(rfx.Status, rfx.Committee)}
}

// RedactFor убирает скрытый бюджет для всех, кроме автора, членов комиссии и администратора.
func (d *RfxDetail) RedactFor(userId string, isAdmin bool) *RfxDetail {
	if !d.HideBudget || isAdmin || userId == d.CreatedBy || FindMemberByUser(d.Committee, userId) >= 0 {
		return d
	}
	d.EstimatedBudget = nil
	return d
}

// TotalWeight возвращает сумму весов критериев.
func TotalWeight(criteria []CriterionRequest) int {
	total := 0
	for _, c := range criteria {
		total += c.Weight
	}
	return total
}

// NormalizeDocumentList разбирает список документов: элементы могут содержать
// несколько названий через ";", пустые и повторяющиеся (без учета регистра) отбрасываются.
func NormalizeDocumentList(items []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(items))
	for _, item := range items {
		for _, part := range strings.Split(item, ";") {
			name := strings.TrimSpace(part)
			if name == "" {
				continue
			}
			key := strings.ToLower(name)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, name)
		}
	}
	return out
}
