package models

import (
	"strings"
	"time"
)

type EvaluationStatus string // Статус оценки предложения

const (
	PendingReview      EvaluationStatus = "Pending Review"      // Ожидает рассмотрения
	UnderReview        EvaluationStatus = "Under Review"        // На рассмотрении
	Recommended        EvaluationStatus = "Recommended"         // Рекомендовано
	ApprovedBid        EvaluationStatus = "Approved"            // Одобрено
	RejectedBid        EvaluationStatus = "Rejected"            // Отклонено
	NeedsClarification EvaluationStatus = "Needs Clarification" // Требует уточнений
)

var evaluationStatuses = []EvaluationStatus{
	PendingReview,
	UnderReview,
	Recommended,
	ApprovedBid,
	RejectedBid,
	NeedsClarification,
}

// ParseEvaluationStatus приводит статус к каноническому написанию без учета регистра.
func ParseEvaluationStatus(s string) (EvaluationStatus, bool) {
	s = strings.TrimSpace(s)
	for _, status := range evaluationStatuses {
		if strings.EqualFold(string(status), s) {
			return status, true
		}
	}
	return "", false
}

// Имена обязательных полей предложения.
const (
	InputBidAmount           = "Bid Amount"
	InputDeliveryDate        = "Delivery Date"
	InputProposalSummary     = "Proposal Summary"
	InputTechnicalCompliance = "Technical Compliance Notes"
	InputDeliveryApproach    = "Delivery Approach"
)

// RequiredInputs возвращает обязательные поля для RFx.
func RequiredInputs(rfx Rfx) []string {
	inputs := []string{InputBidAmount, InputDeliveryDate, InputProposalSummary}
	if strings.TrimSpace(rfx.TechnicalSpecification) != "" {
		inputs = append(inputs, InputTechnicalCompliance)
	}
	if strings.TrimSpace(rfx.Deliverables) != "" {
		inputs = append(inputs, InputDeliveryApproach)
	}
	return inputs
}

// SupplierBid представляет модель предложения поставщика.
type SupplierBid struct {
	ID                string           `json:"id"`
	RfxID             string           `json:"rfxId"`
	BidderID          string           `json:"bidderId"`
	BidderName        string           `json:"bidderName"`
	Amount            float64          `json:"amount"`
	Currency          string           `json:"currency"`
	DeliveryDate      time.Time        `json:"deliveryDate"`
	Proposal          string           `json:"proposal"`
	Documents         []BidDocument    `json:"documents"`
	Inputs            []BidInput       `json:"inputs"`
	EvaluationStatus  EvaluationStatus `json:"evaluationStatus"`
	EvaluationNotes   *string          `json:"evaluationNotes,omitempty"`
	EvaluatedAt       *time.Time       `json:"evaluatedAtUtc,omitempty"`
	EvaluatedByUserID *string          `json:"evaluatedByUserId,omitempty"`
	SubmittedAt       time.Time        `json:"submittedAt"`
	Reviews           []BidReview      `json:"reviews,omitempty"`
}

// BidDocument - загруженный документ. Content хранится в base64, пока документ
// не передан во внешнее хранилище; после этого заполняется ObjectKey.
type BidDocument struct {
	Name        string `json:"name"`
	FileName    string `json:"fileName,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Content     string `json:"content,omitempty"`
	ObjectKey   string `json:"objectKey,omitempty"`
	Size        int    `json:"size,omitempty"`
}

// BidInput - текстовое поле предложения.
type BidInput struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// BidRequest представляет структуру запроса для подачи предложения.
type BidRequest struct {
	BidderName   string        `json:"bidderName"`
	Amount       float64       `json:"amount"`
	Currency     string        `json:"currency"`
	DeliveryDate *time.Time    `json:"deliveryDate"`
	Proposal     string        `json:"proposal"`
	Documents    []BidDocument `json:"documents"`
	Inputs       []BidInput    `json:"inputs"`
}

// BidReview представляет решение одного проверяющего по предложению.
type BidReview struct {
	ID         string           `json:"id"`
	BidID      string           `json:"-"`
	ReviewerID string           `json:"reviewerId"`
	Status     EvaluationStatus `json:"status"`
	Notes      *string          `json:"notes,omitempty"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// EvaluationRequest - решение проверяющего.
type EvaluationRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

// EvaluationSummary - сводные поля оценки, которые перезаписывает последний проверяющий.
type EvaluationSummary struct {
	Status      EvaluationStatus
	Notes       *string
	EvaluatedAt time.Time
	EvaluatedBy string
}

// BidConfirmation возвращается после подачи предложения.
type BidConfirmation struct {
	BidID            string           `json:"bidId"`
	RfxID            string           `json:"rfxId"`
	ReferenceNumber  string           `json:"referenceNumber"`
	EvaluationStatus EvaluationStatus `json:"evaluationStatus"`
	SubmittedAt      time.Time        `json:"submittedAt"`
}

// BidSummary - проекция предложения после оценки.
type BidSummary struct {
	ID                string           `json:"id"`
	RfxID             string           `json:"rfxId"`
	BidderID          string           `json:"bidderId"`
	Amount            float64          `json:"amount"`
	Currency          string           `json:"currency"`
	EvaluationStatus  EvaluationStatus `json:"evaluationStatus"`
	EvaluationNotes   *string          `json:"evaluationNotes,omitempty"`
	EvaluatedAt       *time.Time       `json:"evaluatedAtUtc,omitempty"`
	EvaluatedByUserID *string          `json:"evaluatedByUserId,omitempty"`
	Reviews           []BidReview      `json:"reviews"`
}

// NewBidSummary строит проекцию предложения.
func NewBidSummary(bid SupplierBid) *BidSummary {
	reviews := bid.Reviews
	if reviews == nil {
		reviews = []BidReview{}
	}
	return &BidSummary{
		ID:                bid.ID,
		RfxID:             bid.RfxID,
		BidderID:          bid.BidderID,
		Amount:            bid.Amount,
		Currency:          bid.Currency,
		EvaluationStatus:  bid.EvaluationStatus,
		EvaluationNotes:   bid.EvaluationNotes,
		EvaluatedAt:       bid.EvaluatedAt,
		EvaluatedByUserID: bid.EvaluatedByUserID,
		Reviews:           reviews,
	}
}
