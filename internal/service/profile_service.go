package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/spec-kit/farmer-dashboard/internal/domain"
	"github.com/spec-kit/farmer-dashboard/internal/persistence"
	"github.com/spec-kit/farmer-dashboard/internal/repository"
	apperrors "github.com/spec-kit/farmer-dashboard/pkg/util/errorutil"
)

// ProfileService manages the farmer's region preference.
type ProfileService struct {
	profiles repository.ProfileRepository
}

// NewProfileService builds the service.
func NewProfileService(profiles repository.ProfileRepository) *ProfileService {
	return &ProfileService{profiles: profiles}
}

// Region returns the caller's saved region, "" when unset.
func (s *ProfileService) Region(ctx context.Context, identity domain.Identity) (string, error) {
	profile, err := s.profiles.GetByUserID(ctx, identity.UserID)
	if err != nil {
		return "", mapStoreError(err)
	}
	return profile.Region, nil
}

// SetRegion validates and stores the caller's region.
func (s *ProfileService) SetRegion(ctx context.Context, identity domain.Identity, region string) (string, error) {
	region = strings.TrimSpace(region)
	if region == "" {
		return "", apperrors.NewValidationError("region is required", map[string]any{"field": "region"})
	}
	if utf8.RuneCountInString(region) > domain.RegionMaxLength {
		return "", apperrors.NewValidationError("region is too long", map[string]any{
			"field":      "region",
			"max_length": domain.RegionMaxLength,
		})
	}

	profile, err := s.profiles.UpsertRegion(ctx, identity.UserID, region)
	if err != nil {
		return "", mapStoreError(err)
	}
	return profile.Region, nil
}

func mapStoreError(err error) error {
	if errors.Is(err, persistence.ErrPostgresNotConfigured) {
		return apperrors.NewStoreUnavailable(err)
	}
	return apperrors.ToDomainError(err)
}
