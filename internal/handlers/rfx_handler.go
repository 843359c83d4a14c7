package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/services"
	"github.com/senyabanana/procurement-service/internal/utils"

	"go.uber.org/zap"
)

// RfxHandler - структура для обработки HTTP-запросов по RFx.
type RfxHandler struct {
	Service *services.RfxService
	Logger  *zap.Logger
	Timeout time.Duration
}

// NewRfxHandler создаёт новый экземпляр RfxHandler.
func NewRfxHandler(service *services.RfxService, logger *zap.Logger, timeout time.Duration) *RfxHandler {
	return &RfxHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// CreateRfx обрабатывает запросы для создания RFx.
func (h *RfxHandler) CreateRfx(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var rfxReq models.RfxRequest
	if !decodeBody(w, r, &rfxReq) {
		return
	}

	rfx, err := h.Service.CreateRfx(ctx, rfxReq, user.UserID)
	if err != nil {
		sendError(h.Logger, w, r, err, "failed to create rfx")
		return
	}

	h.Logger.Info("rfx created", zap.String("rfx_id", rfx.ID), zap.String("reference", rfx.ReferenceNumber))
	sendJSON(h.Logger, w, http.StatusCreated, rfx)
}

// ListRfx обрабатывает запросы для получения списка RFx.
func (h *RfxHandler) ListRfx(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	limit, offset, err := utils.ParseLimitOffset(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	if err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, err.Error())
		return
	}
	statuses := utils.SplitQueryValues(r.URL.Query()["status"])

	list, err := h.Service.ListRfx(ctx, statuses, limit, offset, user.UserID, user.IsAdmin())
	if err != nil {
		sendError(h.Logger, w, r, err, "failed to fetch rfx list")
		return
	}
	sendJSON(h.Logger, w, http.StatusOK, list)
}

// GetRfx обрабатывает запросы для получения RFx.
func (h *RfxHandler) GetRfx(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	rfx, err := h.Service.GetRfx(ctx, r.PathValue("rfxId"), user.UserID, user.IsAdmin())
	if err != nil {
		sendError(h.Logger, w, r, err, "failed to fetch rfx")
		return
	}
	sendJSON(h.Logger, w, http.StatusOK, rfx)
}

// ApproveRfx обрабатывает одобрение RFx членом комиссии.
func (h *RfxHandler) ApproveRfx(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	rfx, err := h.Service.ApproveRfx(ctx, r.PathValue("rfxId"), user.UserID)
	if err != nil {
		sendError(h.Logger, w, r, err, "failed to approve rfx")
		return
	}

	if rfx.Status == models.PublishedRfx {
		h.Logger.Info("rfx published", zap.String("rfx_id", rfx.ID), zap.String("reference", rfx.ReferenceNumber))
	}
	sendJSON(h.Logger, w, http.StatusOK, rfx)
}

// CloseRfx обрабатывает закрытие RFx.
func (h *RfxHandler) CloseRfx(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	rfx, err := h.Service.CloseRfx(ctx, r.PathValue("rfxId"), user.UserID, user.IsAdmin())
	if err != nil {
		sendError(h.Logger, w, r, err, "failed to close rfx")
		return
	}
	sendJSON(h.Logger, w, http.StatusOK, rfx)
}
