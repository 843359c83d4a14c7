package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/services"

	"go.uber.org/zap"
)

// ContractHandler - структура для обработки HTTP-запросов по контрактам.
type ContractHandler struct {
	Service *services.ContractService
	Logger  *zap.Logger
	Timeout time.Duration
}

// NewContractHandler создает новый экземпляр ContractHandler.
func NewContractHandler(service *services.ContractService, logger *zap.Logger, timeout time.Duration) *ContractHandler {
	return &ContractHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// CreateContract обрабатывает выпуск контракта по одобренному предложению.
func (h *ContractHandler) CreateContract(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, h.Service.CreateContract)
}

// CreateDirectContract обрабатывает создание контракта вне процедуры RFx.
func (h *ContractHandler) CreateDirectContract(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, h.Service.CreateDirectContract)
}

type createContractFunc func(ctx context.Context, req models.ContractRequest, creatorId string) (*models.ContractSummary, error)

func (h *ContractHandler) create(w http.ResponseWriter, r *http.Request, create createContractFunc) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var contractReq models.ContractRequest
	if !decodeBody(w, r, &contractReq) {
		return
	}

	contract, err := create(ctx, contractReq, user.UserID)
	if err != nil {
		sendError(h.Logger, w, r, err, "failed to create contract")
		return
	}

	h.Logger.Info("contract created", zap.String("contract_id", contract.ID), zap.String("supplier_id", contract.SupplierID))
	sendJSON(h.Logger, w, http.StatusCreated, contract)
}

// GetContract обрабатывает запросы для получения контракта.
func (h *ContractHandler) GetContract(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	contract, err := h.Service.GetContract(ctx, r.PathValue("contractId"))
	if err != nil {
		sendError(h.Logger, w, r, err, "failed to retrieve contract")
		return
	}
	sendJSON(h.Logger, w, http.StatusOK, contract)
}

// SignContract обрабатывает подпись контракта поставщиком.
func (h *ContractHandler) SignContract(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var signReq models.SignRequest
	if !decodeBody(w, r, &signReq) {
		return
	}

	contract, err := h.Service.SignContract(ctx, r.PathValue("contractId"), user.UserID, signReq.Signature)
	if err != nil {
		sendError(h.Logger, w, r, err, "failed to sign contract")
		return
	}

	h.Logger.Info("contract signed", zap.String("contract_id", contract.ID), zap.String("supplier_id", user.UserID))
	sendJSON(h.Logger, w, http.StatusOK, contract)
}
