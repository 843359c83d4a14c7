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

// BidHandler - структура для обработки HTTP-запросов.
type BidHandler struct {
	Service *services.BidService
	Logger  *zap.Logger
	Timeout time.Duration
}

// NewBidHandler создает новый экземпляр BidHandler.
func NewBidHandler(service *services.BidService, logger *zap.Logger, timeout time.Duration) *BidHandler {
	return &BidHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// SubmitBid обрабатывает запросы для подачи предложения.
func (h *BidHandler) SubmitBid(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var bidReq models.BidRequest
	if !decodeBody(w, r, &bidReq) {
		return
	}

	confirmation, err := h.Service.SubmitBid(ctx, r.PathValue("rfxId"), user.UserID, bidReq)
	if err != nil {
		sendError(h.Logger, w, r, err, "failed to submit bid")
		return
	}

	h.Logger.Info("bid submitted",
		zap.String("rfx_id", confirmation.RfxID),
		zap.String("bid_id", confirmation.BidID),
		zap.String("bidder_id", user.UserID))
	sendJSON(h.Logger, w, http.StatusCreated, confirmation)
}

// ListRfxBids обрабатывает запросы для получения списка предложений по RFx.
func (h *BidHandler) ListRfxBids(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	limit, offset, err := utils.ParseLimitOffset(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	if err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, err.Error())
		return
	}

	bids, err := h.Service.ListRfxBids(ctx, r.PathValue("rfxId"), limit, offset)
	if err != nil {
		sendError(h.Logger, w, r, err, "failed to retrieve bids")
		return
	}
	sendJSON(h.Logger, w, http.StatusOK, bids)
}

// GetBid обрабатывает запросы для получения предложения.
func (h *BidHandler) GetBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bid, err := h.Service.GetBid(ctx, r.PathValue("rfxId"), r.PathValue("bidId"))
	if err != nil {
		sendError(h.Logger, w, r, err, "failed to retrieve bid")
		return
	}
	sendJSON(h.Logger, w, http.StatusOK, bid)
}

// EvaluateBid обрабатывает решение проверяющего по предложению.
func (h *BidHandler) EvaluateBid(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var evalReq models.EvaluationRequest
	if !decodeBody(w, r, &evalReq) {
		return
	}

	summary, err := h.Service.EvaluateBid(ctx, r.PathValue("rfxId"), r.PathValue("bidId"), evalReq, user.UserID)
	if err != nil {
		sendError(h.Logger, w, r, err, "failed to evaluate bid")
		return
	}
	sendJSON(h.Logger, w, http.StatusOK, summary)
}

// GetReviewerReview обрабатывает запросы для получения решения проверяющего.
func (h *BidHandler) GetReviewerReview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	review, err := h.Service.GetReviewerReview(ctx, r.PathValue("rfxId"), r.PathValue("bidId"), r.PathValue("reviewerId"))
	if err != nil {
		sendError(h.Logger, w, r, err, "failed to retrieve review")
		return
	}
	sendJSON(h.Logger, w, http.StatusOK, review)
}
