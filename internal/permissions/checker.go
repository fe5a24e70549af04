package permissions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mdnaeem95/halaltech/internal/models"
)

// Checker evaluates a profile's permissions from its current role.
type Checker struct {
	db       *gorm.DB
	registry *Registry
}

// NewChecker constructs a checker backed by db. A nil registry uses Default.
func NewChecker(db *gorm.DB, registry *Registry) (*Checker, error) {
	if db == nil {
		return nil, errors.New("permission checker: db is required")
	}
	if registry == nil {
		registry = Default
	}
	return &Checker{db: db, registry: registry}, nil
}

// Check reports whether the profile holds permissionID. Inactive profiles hold nothing.
func (c *Checker) Check(ctx context.Context, profileID, permissionID string) (bool, error) {
	profile, err := c.loadProfile(ctx, profileID)
	if err != nil {
		return false, err
	}
	if !profile.IsActive {
		return false, nil
	}
	return c.registry.Allows(profile.Role, strings.TrimSpace(permissionID))
}

// ProfilePermissions returns the sorted effective permissions of a profile.
func (c *Checker) ProfilePermissions(ctx context.Context, profileID string) ([]string, error) {
	profile, err := c.loadProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if !profile.IsActive {
		return []string{}, nil
	}
	return c.registry.RolePermissions(profile.Role)
}

func (c *Checker) loadProfile(ctx context.Context, profileID string) (*models.Profile, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		return nil, errors.New("permission checker: profile id is required")
	}

	var profile models.Profile
	if err := c.db.WithContext(ctx).
		Select("id", "role", "is_active").
		Take(&profile, "id = ?", profileID).Error; err != nil {
		return nil, fmt.Errorf("permission checker: load profile: %w", err)
	}
	return &profile, nil
}
