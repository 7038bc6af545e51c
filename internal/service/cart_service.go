package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"food-wallet-service/internal/core/domain"
	"food-wallet-service/internal/core/ports"
	"food-wallet-service/pkg/apperror"

	"github.com/google/uuid"
)

type cartService struct {
	cartRepo ports.CartRepository
	menuRepo ports.MenuRepository
	now      func() time.Time
}

// NewCartService creates a new cart service.
func NewCartService(cartRepo ports.CartRepository, menuRepo ports.MenuRepository) ports.CartService {
	return &cartService{
		cartRepo: cartRepo,
		menuRepo: menuRepo,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// AddMenuItem copies a catalogue dish into the cart with quantity 1.
func (s *cartService) AddMenuItem(ctx context.Context, userID, menuItemID uuid.UUID) (*domain.CartLine, error) {
	item, err := s.menuRepo.GetByID(ctx, menuItemID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get menu item: %w", err))
	}
	if item == nil || !item.Available {
		return nil, apperror.ErrMenuItemNotFound()
	}

	line := item.ToCartLine(userID, s.now())
	if err := s.cartRepo.Add(ctx, line); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("add cart line: %w", err))
	}
	return line, nil
}

// AddLine stores a line exactly as the client described it. Price and quantity
// are kept raw; they are only interpreted when the cart is totaled.
func (s *cartService) AddLine(ctx context.Context, userID uuid.UUID, input ports.CartLineInput) (*domain.CartLine, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperror.ErrInvalidCartLine("name is required")
	}
	if domain.CheckLooseNumber(input.Price) != nil {
		return nil, apperror.ErrInvalidCartLine("price is out of range")
	}
	if domain.CheckLooseNumber(input.Quantity) != nil {
		return nil, apperror.ErrInvalidCartLine("quantity is out of range")
	}

	line := &domain.CartLine{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		Price:     input.Price,
		Quantity:  input.Quantity,
		ImageRef:  input.ImageRef,
		CreatedAt: s.now(),
	}
	if err := s.cartRepo.Add(ctx, line); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("add cart line: %w", err))
	}
	return line, nil
}

func (s *cartService) View(ctx context.Context, userID uuid.UUID) (*ports.CartView, error) {
	lines, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list cart: %w", err))
	}
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return &ports.CartView{Lines: lines, Total: domain.ComputeTotal(lines)}, nil
}

// Remove deletes one line. Removing a line that is already gone succeeds.
func (s *cartService) Remove(ctx context.Context, userID, lineID uuid.UUID) error {
	if _, err := s.cartRepo.Delete(ctx, userID, lineID); err != nil {
		return apperror.InternalError(fmt.Errorf("delete cart line: %w", err))
	}
	return nil
}

func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.cartRepo.Clear(ctx, userID)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("clear cart: %w", err))
	}
	return n, nil
}
