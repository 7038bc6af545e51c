package handler

import (
	"food-wallet-service/internal/adapter/http/dto"
	"food-wallet-service/internal/adapter/http/middleware"
	"food-wallet-service/internal/core/domain"
	"food-wallet-service/internal/core/ports"
	"food-wallet-service/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
)

// WalletHandler handles wallet endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// GetWallet handles GET /api/v1/wallet.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	w, err := h.walletSvc.GetWallet(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WalletResponse{
		Coins:           w.Coins,
		Currency:        w.Currency,
		RechargeOptions: h.walletSvc.RechargeOptions(),
	})
}

// Overview handles GET /api/v1/wallet/overview.
func (h *WalletHandler) Overview(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	overview, err := h.walletSvc.Overview(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, overview)
}

// Recharge handles POST /api/v1/wallet/recharge.
func (h *WalletHandler) Recharge(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	key, ok := idempotencyKey(c)
	if !ok {
		return
	}

	var req dto.RechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.walletSvc.Recharge(c.Request.Context(), ports.RechargeRequest{
		UserID:         userID,
		Amount:         req.Amount,
		IdempotencyKey: key,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditResourceID, result.EntryID.String())
	response.OK(c, result)
}

// History handles GET /api/v1/wallet/history.
func (h *WalletHandler) History(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var q dto.HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = defaultPageSize
	}

	params := ports.LedgerListParams{
		UserID:   userID,
		Page:     q.Page,
		PageSize: q.PageSize,
	}
	if q.Type != "" {
		t := domain.LedgerEntryType(q.Type)
		params.Type = &t
	}

	entries, total, err := h.walletSvc.History(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	response.Paginated(c, entries, total, q.Page, q.PageSize)
}
