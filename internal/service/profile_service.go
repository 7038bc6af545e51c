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

type profileService struct {
	profileRepo ports.ProfileRepository
	encSvc      ports.EncryptionService
}

// NewProfileService creates a new profile service. The DNI is stored encrypted.
func NewProfileService(profileRepo ports.ProfileRepository, encSvc ports.EncryptionService) ports.ProfileService {
	return &profileService{
		profileRepo: profileRepo,
		encSvc:      encSvc,
	}
}

// Get returns the stored profile, or an empty one if the user never saved it.
func (s *profileService) Get(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error) {
	profile, err := s.profileRepo.Get(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if profile == nil {
		return &domain.UserProfile{UserID: userID}, nil
	}

	dni, err := s.encSvc.Decrypt(profile.DNIEncrypted, userID)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("decrypt dni: %w", err))
	}
	profile.DNI = dni
	return profile, nil
}

func (s *profileService) Update(ctx context.Context, userID uuid.UUID, input ports.ProfileInput) (*domain.UserProfile, error) {
	dni := strings.TrimSpace(input.DNI)
	encDNI, err := s.encSvc.Encrypt(dni, userID)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("encrypt dni: %w", err))
	}

	profile := &domain.UserProfile{
		UserID:       userID,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Address:      strings.TrimSpace(input.Address),
		DNIEncrypted: encDNI,
		Info:         strings.TrimSpace(input.Info),
		ImageURL:     strings.TrimSpace(input.ImageURL),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := s.profileRepo.Upsert(ctx, profile); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("save profile: %w", err))
	}

	profile.DNI = dni
	return profile, nil
}
