package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"food-wallet-service/internal/core/domain"
	"food-wallet-service/internal/core/ports"
	"food-wallet-service/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func setupCartService(t *testing.T) (ports.CartService, *mocks.MockCartRepository, *mocks.MockMenuRepository) {
	ctrl := gomock.NewController(t)
	cartRepo := mocks.NewMockCartRepository(ctrl)
	menuRepo := mocks.NewMockMenuRepository(ctrl)
	return NewCartService(cartRepo, menuRepo), cartRepo, menuRepo
}

func TestCartService_AddMenuItem(t *testing.T) {
	svc, cartRepo, menuRepo := setupCartService(t)
	ctx := context.Background()
	userID := uuid.New()
	item := &domain.MenuItem{ID: uuid.New(), Name: "Paella", Price: coins("12.50"), ImageRef: "paella.png", Available: true}

	menuRepo.EXPECT().GetByID(ctx, item.ID).Return(item, nil)
	cartRepo.EXPECT().Add(ctx, gomock.Any()).Return(nil)

	line, err := svc.AddMenuItem(ctx, userID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, userID, line.UserID)
	assert.Equal(t, "Paella", line.Name)
	assert.Equal(t, "paella.png", line.ImageRef)
	assert.True(t, line.UnitPrice().Equal(coins("12.5")))
	assert.Equal(t, int64(1), line.Qty())
}

func TestCartService_AddMenuItem_Unavailable(t *testing.T) {
	svc, _, menuRepo := setupCartService(t)
	ctx := context.Background()
	id := uuid.New()

	menuRepo.EXPECT().GetByID(ctx, id).Return(&domain.MenuItem{ID: id, Available: false}, nil)

	_, err := svc.AddMenuItem(ctx, uuid.New(), id)
	assertAppError(t, err, "CART_002")
}

func TestCartService_AddMenuItem_Unknown(t *testing.T) {
	svc, _, menuRepo := setupCartService(t)
	ctx := context.Background()
	id := uuid.New()

	menuRepo.EXPECT().GetByID(ctx, id).Return(nil, nil)

	_, err := svc.AddMenuItem(ctx, uuid.New(), id)
	assertAppError(t, err, "CART_002")
}

func TestCartService_AddLine_KeepsRawValues(t *testing.T) {
	svc, cartRepo, _ := setupCartService(t)
	ctx := context.Background()
	userID := uuid.New()

	var stored *domain.CartLine
	cartRepo.EXPECT().Add(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, l *domain.CartLine) error {
		stored = l
		return nil
	})

	line, err := svc.AddLine(ctx, userID, ports.CartLineInput{
		Name:     "  Burger ",
		Price:    json.RawMessage(`"8.5"`),
		Quantity: json.RawMessage(`"two"`),
	})
	require.NoError(t, err)
	require.Same(t, stored, line)
	assert.Equal(t, "Burger", line.Name)
	assert.JSONEq(t, `"8.5"`, string(line.Price))
	assert.JSONEq(t, `"two"`, string(line.Quantity))
	assert.True(t, line.Subtotal().Equal(coins("8.5")))
}

func TestCartService_AddLine_NameRequired(t *testing.T) {
	svc, _, _ := setupCartService(t)

	_, err := svc.AddLine(context.Background(), uuid.New(), ports.CartLineInput{Name: "  ", Price: json.RawMessage(`1`)})
	assertAppError(t, err, "CART_003")
}

func TestCartService_AddLine_RejectsOutOfRangeNumbers(t *testing.T) {
	svc, _, _ := setupCartService(t)
	ctx := context.Background()

	for name, input := range map[string]ports.CartLineInput{
		"quantity above int64": {Name: "Rice", Price: json.RawMessage(`1`), Quantity: json.RawMessage(`"18446744073709551576"`)},
		"price exponent":       {Name: "Rice", Price: json.RawMessage(`"1e99999999"`)},
		"price precision":      {Name: "Rice", Price: json.RawMessage(`"1e-40"`)},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.AddLine(ctx, uuid.New(), input)
			assertAppError(t, err, "CART_003")
		})
	}
}

func TestCartService_View(t *testing.T) {
	svc, cartRepo, _ := setupCartService(t)
	ctx := context.Background()
	userID := uuid.New()

	cartRepo.EXPECT().ListByUser(ctx, userID).Return([]domain.CartLine{
		cartLine(userID, "A", `10`, `3`),
		cartLine(userID, "B", `null`, ""),
		cartLine(userID, "C", `"2.25"`, `0`),
	}, nil)

	view, err := svc.View(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, view.Lines, 3)
	assert.True(t, view.Total.Equal(coins("32.25")))
}

func TestCartService_View_Empty(t *testing.T) {
	svc, cartRepo, _ := setupCartService(t)
	ctx := context.Background()
	userID := uuid.New()

	cartRepo.EXPECT().ListByUser(ctx, userID).Return(nil, nil)

	view, err := svc.View(ctx, userID)
	require.NoError(t, err)
	assert.NotNil(t, view.Lines)
	assert.True(t, view.Total.IsZero())
}

func TestCartService_Remove_Idempotent(t *testing.T) {
	svc, cartRepo, _ := setupCartService(t)
	ctx := context.Background()
	userID, lineID := uuid.New(), uuid.New()

	cartRepo.EXPECT().Delete(ctx, userID, lineID).Return(false, nil)

	assert.NoError(t, svc.Remove(ctx, userID, lineID))
}

func TestCartService_Clear(t *testing.T) {
	svc, cartRepo, _ := setupCartService(t)
	ctx := context.Background()
	userID := uuid.New()

	cartRepo.EXPECT().Clear(ctx, userID).Return(int64(3), nil)
	n, err := svc.Clear(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	cartRepo.EXPECT().Clear(ctx, userID).Return(int64(0), errors.New("db down"))
	_, err = svc.Clear(ctx, userID)
	assertAppError(t, err, "SYS_001")
}
