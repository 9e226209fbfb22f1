package dto

import "github.com/spec-kit/farmer-dashboard/internal/domain"

// IdentityResponse is returned by the identity-check endpoint.
type IdentityResponse struct {
	ID   string      `json:"id"`
	Role domain.Role `json:"role"`
}

// RegionRequest payload for saving the profile region.
type RegionRequest struct {
	Region string `json:"region"`
}

// RegionResponse carries the saved region, "" when unset.
type RegionResponse struct {
	Region string `json:"region"`
}
