package router

import (
	"net/http"

	"github.com/senyabanana/procurement-service/internal/handlers"

	"go.uber.org/zap"
)

// Handlers - обработчики, которые регистрирует роутер.
type Handlers struct {
	Rfx      *handlers.RfxHandler
	Bid      *handlers.BidHandler
	Contract *handlers.ContractHandler
}

func InitRoutes(h Handlers, jwtSecret string, logger *zap.Logger) http.Handler {
	api := http.NewServeMux()

	api.HandleFunc("POST /api/rfx", h.Rfx.CreateRfx)
	api.HandleFunc("GET /api/rfx", h.Rfx.ListRfx)
	api.HandleFunc("GET /api/rfx/{rfxId}", h.Rfx.GetRfx)
	api.HandleFunc("POST /api/rfx/{rfxId}/approve", h.Rfx.ApproveRfx)
	api.HandleFunc("POST /api/rfx/{rfxId}/close", h.Rfx.CloseRfx)

	api.HandleFunc("POST /api/rfx/{rfxId}/bids", h.Bid.SubmitBid)
	api.HandleFunc("GET /api/rfx/{rfxId}/bids", h.Bid.ListRfxBids)
	api.HandleFunc("GET /api/rfx/{rfxId}/bids/{bidId}", h.Bid.GetBid)
	api.HandleFunc("PUT /api/rfx/{rfxId}/bids/{bidId}/evaluation", h.Bid.EvaluateBid)
	api.HandleFunc("GET /api/rfx/{rfxId}/bids/{bidId}/reviews/{reviewerId}", h.Bid.GetReviewerReview)

	api.HandleFunc("POST /api/contracts", h.Contract.CreateContract)
	api.Handle("POST /api/contracts/direct",
		handlers.RequireRole(handlers.RoleAdmin)(http.HandlerFunc(h.Contract.CreateDirectContract)))
	api.HandleFunc("GET /api/contracts/{contractId}", h.Contract.GetContract)
	api.HandleFunc("POST /api/contracts/{contractId}/sign", h.Contract.SignContract)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/ping", handlers.PingHandler)
	mux.Handle("/api/", handlers.JWTAuth(jwtSecret)(api))

	return handlers.Chain(mux, handlers.RequestID, handlers.Logger(logger))
}
