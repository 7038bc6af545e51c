package handler

import (
	"errors"
	"fmt"
	"io"

	"food-wallet-service/internal/adapter/http/dto"
	"food-wallet-service/internal/adapter/http/middleware"
	"food-wallet-service/internal/core/domain"
	"food-wallet-service/internal/core/ports"
	"food-wallet-service/pkg/apperror"
	"food-wallet-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CheckoutHandler handles checkout endpoints.
type CheckoutHandler struct {
	checkoutSvc ports.CheckoutService
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(checkoutSvc ports.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutSvc: checkoutSvc}
}

// Quote handles GET /api/v1/checkout/quote.
func (h *CheckoutHandler) Quote(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	quote, err := h.checkoutSvc.Quote(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, quote)
}

// Checkout handles POST /api/v1/checkout. An empty body pays the whole cart.
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	key, ok := idempotencyKey(c)
	if !ok {
		return
	}

	var req dto.CheckoutRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			response.BindError(c, err)
			return
		}
	}

	lineIDs, err := parseLineIDs(req.LineIDs)
	if err != nil {
		response.Error(c, err)
		return
	}

	result := h.checkoutSvc.Checkout(c.Request.Context(), ports.CheckoutRequest{
		UserID:         userID,
		LineIDs:        lineIDs,
		IdempotencyKey: key,
	})

	if result.IsPaid() {
		c.Set(middleware.CtxAuditResourceID, result.CheckoutID.String())
		response.OK(c, result)
		return
	}
	response.Error(c, outcomeError(result))
}

func parseLineIDs(raw []string) ([]uuid.UUID, *apperror.AppError) {
	ids := make([]uuid.UUID, 0, len(raw))
	for i, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, apperror.InvalidFields([]apperror.FieldError{
				{Field: fmt.Sprintf("line_ids[%d]", i), Rule: "uuid"},
			})
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// outcomeError maps a non-paid result to its error envelope.
func outcomeError(r *domain.CheckoutResult) *apperror.AppError {
	var appErr *apperror.AppError
	switch r.Outcome {
	case domain.CheckoutInsufficientFunds:
		appErr = apperror.ErrInsufficientFunds()
	case domain.CheckoutWalletNotFound:
		appErr = apperror.ErrWalletNotFound()
	case domain.CheckoutEmptyCart:
		appErr = apperror.ErrEmptyCart()
	case domain.CheckoutCartChanged:
		appErr = apperror.ErrCartChanged()
	default:
		appErr = apperror.ErrCheckoutFailed(r.Err)
	}
	if r.Message != "" {
		appErr = appErr.WithMessage(r.Message)
	}
	return appErr
}
