package models

import "time"

type ContractStatus string // Статус контракта

const (
	DraftContract  ContractStatus = "Draft"  // Контракт создан, ждет подписи поставщика
	ActiveContract ContractStatus = "Active" // Контракт подписан
)

// Contract представляет модель контракта.
type Contract struct {
	ID                string         `json:"id"`
	BidID             *string        `json:"bidId,omitempty"`
	RfxID             *string        `json:"rfxId,omitempty"`
	Title             string         `json:"title"`
	SupplierID        string         `json:"supplierId"`
	SupplierName      string         `json:"supplierName"`
	Value             float64        `json:"value"`
	Currency          string         `json:"currency"`
	StartDate         time.Time      `json:"startDate"`
	EndDate           time.Time      `json:"endDate"`
	Status            ContractStatus `json:"status"`
	SupplierSignature *string        `json:"supplierSignature,omitempty"`
	SignedAt          *time.Time     `json:"signedAt,omitempty"`
	CreatedBy         string         `json:"createdBy"`
	CreatedAt         time.Time      `json:"createdAt"`
}

// ContractRequest представляет структуру запроса для создания контракта.
type ContractRequest struct {
	RfxID        string     `json:"rfxId"`
	BidID        string     `json:"bidId"`
	Title        string     `json:"title"`
	SupplierID   string     `json:"supplierId"`
	SupplierName string     `json:"supplierName"`
	Value        float64    `json:"value"`
	Currency     string     `json:"currency"`
	StartDate    *time.Time `json:"startDate"`
	EndDate      *time.Time `json:"endDate"`
}

// SignRequest - подпись поставщика.
type SignRequest struct {
	Signature string `json:"signature"`
}

// ContractSummary - проекция контракта для ответа.
type ContractSummary struct {
	ID           string         `json:"id"`
	BidID        *string        `json:"bidId,omitempty"`
	RfxID        *string        `json:"rfxId,omitempty"`
	Title        string         `json:"title"`
	SupplierID   string         `json:"supplierId"`
	SupplierName string         `json:"supplierName"`
	Value        float64        `json:"value"`
	Currency     string         `json:"currency"`
	StartDate    time.Time      `json:"startDate"`
	EndDate      time.Time      `json:"endDate"`
	Status       ContractStatus `json:"status"`
	IsSigned     bool           `json:"isSigned"`
	SignedAt     *time.Time     `json:"signedAt,omitempty"`
}

// NewContractSummary строит проекцию контракта.
func NewContractSummary(c Contract) *ContractSummary {
	return &ContractSummary{
		ID:           c.ID,
		BidID:        c.BidID,
		RfxID:        c.RfxID,
		Title:        c.Title,
		SupplierID:   c.SupplierID,
		SupplierName: c.SupplierName,
		Value:        c.Value,
		Currency:     c.Currency,
		StartDate:    c.StartDate,
		EndDate:      c.EndDate,
		Status:       c.Status,
		IsSigned:     c.SupplierSignature != nil,
		SignedAt:     c.SignedAt,
	}
}
