package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mdnaeem95/halaltech/internal/models"
	"github.com/mdnaeem95/halaltech/pkg/crypto"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Profile{},
		&models.Session{},
		&models.AuditLog{},
		&models.Notification{},
		&models.CacheEntry{},
		&models.SystemSetting{},
		&models.Service{},
		&models.ServicePackage{},
		&models.Project{},
		&models.ProjectAssignment{},
		&models.ProjectMessage{},
		&models.Quote{},
		&models.Invoice{},
		&models.FreelancerProfile{},
		&models.FreelancerSkill{},
		&models.FreelancerAvailability{},
	)
}

// SeedOption customises SeedData.
type SeedOption func(*seedConfig)

type seedConfig struct {
	adminEmail    string
	adminPassword string
	adminName     string
	catalog       bool
}

// WithBootstrapAdmin ensures an admin profile with the given credentials
// exists. An existing profile with the same email is left untouched.
func WithBootstrapAdmin(email, password, name string) SeedOption {
	return func(cfg *seedConfig) {
		cfg.adminEmail = strings.ToLower(strings.TrimSpace(email))
		cfg.adminPassword = password
		cfg.adminName = strings.TrimSpace(name)
	}
}

// WithStarterCatalog seeds the default service catalog the first time the
// database is initialised.
func WithStarterCatalog() SeedOption {
	return func(cfg *seedConfig) {
		cfg.catalog = true
	}
}

// SeedData populates the bootstrap admin and starter catalog.
func SeedData(db *gorm.DB, opts ...SeedOption) error {
	cfg := seedConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.adminEmail != "" {
		if err := seedAdmin(db, cfg); err != nil {
			return err
		}
	}

	if cfg.catalog {
		if err := seedCatalogOnce(context.Background(), db); err != nil {
			return err
		}
	}

	return nil
}

func seedAdmin(db *gorm.DB, cfg seedConfig) error {
	if cfg.adminPassword == "" {
		return errors.New("bootstrap admin password is required")
	}

	var count int64
	if err := db.Model(&models.Profile{}).Where("email = ?", cfg.adminEmail).Count(&count).Error; err != nil {
		return fmt.Errorf("lookup bootstrap admin: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := crypto.HashPassword(cfg.adminPassword)
	if err != nil {
		return fmt.Errorf("hash bootstrap admin password: %w", err)
	}

	name := cfg.adminName
	if name == "" {
		name = "Administrator"
	}

	admin := models.Profile{
		Email:        cfg.adminEmail,
		PasswordHash: hash,
		FullName:     name,
		Role:         models.RoleAdmin,
		IsVerified:   true,
		IsActive:     true,
	}
	return db.Create(&admin).Error
}

func seedCatalogOnce(ctx context.Context, db *gorm.DB) error {
	seeded, err := GetSystemSetting(ctx, db, CatalogSeededSetting)
	if err != nil {
		return err
	}
	if seeded != "" {
		return nil
	}

	if err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return seedCatalog(tx)
	}); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}

	return UpsertSystemSetting(ctx, db, CatalogSeededSetting, time.Now().UTC().Format(time.RFC3339))
}
