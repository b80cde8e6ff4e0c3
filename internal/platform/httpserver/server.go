package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	commissionescrowservice "commissionvault/contexts/finance-core/commission-escrow-service"
	domainerrors "commissionvault/contexts/finance-core/commission-escrow-service/domain/errors"
	escrowhttp "commissionvault/contexts/finance-core/commission-escrow-service/transport/http"
	"commissionvault/internal/platform/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	userIDHeader   = "X-User-Id"
	maxRequestBody = 1 << 20
)

type Server struct {
	mux     *http.ServeMux
	handler http.Handler
	logger  *slog.Logger
	escrow  commissionescrowservice.Module
	srv     *http.Server
}

// New wires the escrow routes. A nil limiter disables rate limiting.
func New(
	escrow commissionescrowservice.Module,
	limiter *RateLimiter,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		escrow: escrow,
	}
	s.registerRoutes()
	s.handler = metrics.Middleware(rateLimitMiddleware(limiter)(s.mux))
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until Shutdown; a clean shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.srv.Addr,
	)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	s.mux.HandleFunc("POST /v1/escrow/contracts", s.handlePublishContract)
	s.mux.HandleFunc("GET /v1/escrow/contracts/{contract_id}", s.handleGetContract)
	s.mux.HandleFunc("GET /v1/escrow/contracts/{contract_id}/harvest-preview", s.handlePreviewHarvest)
	s.mux.HandleFunc("POST /v1/escrow/contracts/{contract_id}/harvest", s.handleHarvest)
	s.mux.HandleFunc("POST /v1/escrow/contracts/{contract_id}/orders", s.handleCreateOrder)

	s.mux.HandleFunc("GET /v1/escrow/orders/{order_id}", s.handleGetOrder)
	s.mux.HandleFunc("POST /v1/escrow/orders/{order_id}/confirm", s.handleConfirmOrder)
	s.mux.HandleFunc("POST /v1/escrow/orders/{order_id}/dispute", s.handleDisputeOrder)
	s.mux.HandleFunc("POST /v1/escrow/orders/{order_id}/slash", s.handleSlashOrder)

	s.mux.HandleFunc("GET /v1/escrow/tickets", s.handleListTickets)
	s.mux.HandleFunc("GET /v1/escrow/tickets/{ticket_id}", s.handleGetTicket)
	s.mux.HandleFunc("POST /v1/escrow/tickets/{ticket_id}/claim", s.handleClaimCommission)

	s.mux.HandleFunc("GET /v1/escrow/payouts", s.handleListPayouts)

	s.mux.HandleFunc("GET /v1/escrow/vaults/{vault_id}", s.handleGetVaultPool)
	s.mux.HandleFunc("POST /v1/escrow/vaults/{vault_id}/yield", s.handleRecordVaultYield)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePublishContract(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req escrowhttp.PublishContractRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.escrow.Handler.PublishContractHandler(r.Context(), merchantID, req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetContract(w http.ResponseWriter, r *http.Request) {
	resp, err := s.escrow.Handler.GetContractHandler(r.Context(), r.PathValue("contract_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePreviewHarvest(w http.ResponseWriter, r *http.Request) {
	resp, err := s.escrow.Handler.PreviewHarvestHandler(r.Context(), r.PathValue("contract_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHarvest(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.escrow.Handler.HarvestInterestHandler(r.Context(), callerID, r.PathValue("contract_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	distributorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req escrowhttp.CreateOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.escrow.Handler.CreateOrderHandler(r.Context(), distributorID, r.PathValue("contract_id"), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	resp, err := s.escrow.Handler.GetOrderHandler(r.Context(), r.PathValue("order_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleConfirmOrder(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.escrow.Handler.ConfirmOrderHandler(r.Context(), callerID, r.PathValue("order_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDisputeOrder(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.escrow.Handler.DisputeOrderHandler(r.Context(), callerID, r.PathValue("order_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSlashOrder(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.escrow.Handler.SlashOrderHandler(r.Context(), callerID, r.PathValue("order_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	distributorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.escrow.Handler.ListTicketsHandler(r.Context(), distributorID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.escrow.Handler.GetTicketHandler(r.Context(), callerID, r.PathValue("ticket_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClaimCommission(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.escrow.Handler.ClaimCommissionHandler(r.Context(), callerID, r.PathValue("ticket_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListPayouts(w http.ResponseWriter, r *http.Request) {
	recipientID, ok := requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.escrow.Handler.ListPayoutsHandler(r.Context(), recipientID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetVaultPool(w http.ResponseWriter, r *http.Request) {
	resp, err := s.escrow.Handler.GetVaultPoolHandler(r.Context(), r.PathValue("vault_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecordVaultYield(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req escrowhttp.RecordVaultYieldRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.escrow.Handler.RecordVaultYieldHandler(r.Context(), callerID, r.PathValue("vault_id"), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domainerrors.ErrShareTooHigh):
		writeError(w, http.StatusBadRequest, "share_too_high", err.Error())
	case errors.Is(err, domainerrors.ErrCommissionTooHigh):
		writeError(w, http.StatusBadRequest, "commission_too_high", err.Error())
	case errors.Is(err, domainerrors.ErrInvalidDeposit),
		errors.Is(err, domainerrors.ErrInvalidContract),
		errors.Is(err, domainerrors.ErrInvalidOrder):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domainerrors.ErrInvalidYield):
		writeError(w, http.StatusBadRequest, "invalid_yield", err.Error())
	case errors.Is(err, domainerrors.ErrNotMerchant):
		writeError(w, http.StatusForbidden, "not_merchant", err.Error())
	case errors.Is(err, domainerrors.ErrNotDistributor):
		writeError(w, http.StatusForbidden, "not_distributor", err.Error())
	case errors.Is(err, domainerrors.ErrNotVaultOperator):
		writeError(w, http.StatusForbidden, "not_vault_operator", err.Error())
	case errors.Is(err, domainerrors.ErrContractNotFound):
		writeError(w, http.StatusNotFound, "contract_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrTicketNotFound):
		writeError(w, http.StatusNotFound, "ticket_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrAlreadyDisputed):
		writeError(w, http.StatusConflict, "already_disputed", err.Error())
	case errors.Is(err, domainerrors.ErrOrderNotPending):
		writeError(w, http.StatusConflict, "order_not_pending", err.Error())
	case errors.Is(err, domainerrors.ErrOrderNotConfirmed):
		writeError(w, http.StatusConflict, "order_not_confirmed", err.Error())
	case errors.Is(err, domainerrors.ErrAlreadyClaimed):
		writeError(w, http.StatusConflict, "already_claimed", err.Error())
	case errors.Is(err, domainerrors.ErrTicketAlreadyIssued):
		writeError(w, http.StatusConflict, "ticket_already_issued", err.Error())
	case errors.Is(err, domainerrors.ErrDeadlineNotReached):
		writeError(w, http.StatusConflict, "deadline_not_reached", err.Error())
	case errors.Is(err, domainerrors.ErrInsufficientStake):
		writeError(w, http.StatusConflict, "insufficient_stake", err.Error())
	case errors.Is(err, domainerrors.ErrConcurrentUpdate):
		writeError(w, http.StatusConflict, "concurrent_update", err.Error())
	case errors.Is(err, domainerrors.ErrConversionFailed),
		errors.Is(err, domainerrors.ErrAmountOverflow):
		writeError(w, http.StatusUnprocessableEntity, "conversion_failed", err.Error())
	case errors.Is(err, domainerrors.ErrVaultInsufficientLiquidity):
		writeError(w, http.StatusServiceUnavailable, "vault_insufficient_liquidity", err.Error())
	default:
		s.logger.Error("escrow request failed",
			"event", "http_request_failed",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get(userIDHeader))
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return "", false
	}
	return userID, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, escrowhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
