package api

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/mdnaeem95/halaltech/internal/app"
	"github.com/mdnaeem95/halaltech/internal/billing"
	"github.com/mdnaeem95/halaltech/internal/cache"
	"github.com/mdnaeem95/halaltech/internal/realtime"
	"github.com/mdnaeem95/halaltech/internal/services"
	"github.com/mdnaeem95/halaltech/pkg/mail"
)

// Services groups the domain services shared by the router and background jobs.
type Services struct {
	Audit         *services.AuditService
	Notifications *services.NotificationService
	Profiles      *services.ProfileService
	Catalog       *services.CatalogService
	Projects      *services.ProjectService
	Quotes        *services.QuoteService
	Invoices      *services.InvoiceService
	Messages      *services.MessageService
	Freelancers   *services.FreelancerService
	Seeds         *services.SeedService
	Dashboard     *services.DashboardService
}

// ServiceDeps lists what the domain services need. Store, Mailer and Hub are optional.
type ServiceDeps struct {
	DB       *gorm.DB
	Config   *app.Config
	Sessions services.SessionRevoker
	Store    cache.Store
	Mailer   mail.Mailer
	Hub      *realtime.Hub
}

// NewServices constructs every domain service from configuration.
func NewServices(deps ServiceDeps) (*Services, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	cfg := deps.Config
	db := deps.DB

	calculator, err := billing.NewCalculator(cfg.Billing.CalculatorConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise billing calculator: %w", err)
	}

	svc := &Services{}
	if svc.Audit, err = services.NewAuditService(db); err != nil {
		return nil, err
	}
	if svc.Notifications, err = services.NewNotificationService(db, deps.Hub); err != nil {
		return nil, err
	}
	if svc.Profiles, err = services.NewProfileService(db, svc.Audit, deps.Sessions); err != nil {
		return nil, err
	}
	if svc.Catalog, err = services.NewCatalogService(db, svc.Audit); err != nil {
		return nil, err
	}
	if svc.Projects, err = services.NewProjectService(db, svc.Audit, svc.Notifications, deps.Hub); err != nil {
		return nil, err
	}
	if svc.Quotes, err = services.NewQuoteService(db, svc.Audit, svc.Notifications, calculator, cfg.Quotes.QuoteServiceConfig()); err != nil {
		return nil, err
	}
	if svc.Invoices, err = services.NewInvoiceService(db, svc.Audit, svc.Notifications, calculator); err != nil {
		return nil, err
	}
	if svc.Messages, err = services.NewMessageService(db, svc.Notifications, deps.Hub); err != nil {
		return nil, err
	}
	if svc.Freelancers, err = services.NewFreelancerService(db, svc.Audit, svc.Notifications, deps.Store, deps.Mailer, cfg.FreelancerServiceConfig()); err != nil {
		return nil, err
	}
	svc.Profiles.WithMarketplace(svc.Freelancers)
	if svc.Seeds, err = services.NewSeedService(db, svc.Audit, svc.Freelancers); err != nil {
		return nil, err
	}
	if svc.Dashboard, err = services.NewDashboardService(db); err != nil {
		return nil, err
	}
	return svc, nil
}
