package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"food-wallet-service/internal/core/domain"
	"food-wallet-service/internal/core/ports"
	"food-wallet-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	userRepo   ports.UserRepository
	walletRepo ports.WalletRepository
	transactor ports.DBTransactor
	hashSvc    ports.HashService
	tokenSvc   ports.TokenService
	currency   string
	log        zerolog.Logger

	decoyOnce sync.Once
	decoyHash string
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	userRepo ports.UserRepository,
	walletRepo ports.WalletRepository,
	transactor ports.DBTransactor,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
	currency string,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		userRepo:   userRepo,
		walletRepo: walletRepo,
		transactor: transactor,
		hashSvc:    hashSvc,
		tokenSvc:   tokenSvc,
		currency:   currency,
		log:        log.With().Str("component", "auth").Logger(),
	}
}

// Register creates a user and an empty wallet in one transaction.
func (s *AuthServiceImpl) Register(ctx context.Context, req ports.RegisterRequest) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check email: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrEmailExists()
	}

	passwordHash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.userRepo.Create(ctx, dbTx, user); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, apperror.ErrEmailExists()
		}
		return nil, apperror.InternalError(fmt.Errorf("create user: %w", err))
	}

	wallet := &domain.Wallet{
		UserID:    user.ID,
		Coins:     decimal.Zero,
		Currency:  s.currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.walletRepo.Create(ctx, dbTx, wallet); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	return user, nil
}

// Login validates credentials and returns a JWT token.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (string, time.Time, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("find user: %w", err))
	}
	if user == nil {
		s.verifyDecoy(password)
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(password, user.PasswordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	if s.hashSvc.NeedsRehash(user.PasswordHash) {
		s.upgradeHash(ctx, user.ID, password)
	}

	token, expiry, err := s.tokenSvc.Generate(user.ID, user.Email)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return token, expiry, nil
}

// Me returns the account behind an authenticated request.
func (s *AuthServiceImpl) Me(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrNotFound("User")
	}
	return user, nil
}

// verifyDecoy spends the same hashing work as a real check so unknown emails
// cannot be told apart by response time.
func (s *AuthServiceImpl) verifyDecoy(password string) {
	s.decoyOnce.Do(func() {
		hash, err := s.hashSvc.Hash(uuid.NewString())
		if err != nil {
			s.log.Warn().Err(err).Msg("decoy hash unavailable")
			return
		}
		s.decoyHash = hash
	})
	if s.decoyHash != "" {
		_, _ = s.hashSvc.Verify(password, s.decoyHash)
	}
}

// upgradeHash stores a hash with the current cost. Failures only cost a retry on the next login.
func (s *AuthServiceImpl) upgradeHash(ctx context.Context, userID uuid.UUID, password string) {
	hash, err := s.hashSvc.Hash(password)
	if err == nil {
		err = s.userRepo.UpdatePasswordHash(ctx, userID, hash)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID.String()).Msg("password rehash failed")
		return
	}
	s.log.Info().Str("user_id", userID.String()).Msg("password hash upgraded")
}
