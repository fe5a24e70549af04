package app

import (
	"strings"

	"github.com/mdnaeem95/halaltech/internal/billing"
	"github.com/mdnaeem95/halaltech/internal/services"
)

// CalculatorConfig converts BillingConfig into billing parameters.
func (c BillingConfig) CalculatorConfig() billing.Config {
	return billing.Config{
		TaxRate:        c.TaxRate,
		Currency:       strings.TrimSpace(c.Currency),
		PaymentDueDays: c.PaymentDueDays,
		InvoicePrefix:  strings.TrimSpace(c.InvoicePrefix),
	}
}

// QuoteServiceConfig converts QuotesConfig into QuoteService parameters.
func (c QuotesConfig) QuoteServiceConfig() services.QuoteConfig {
	return services.QuoteConfig{ValidityDays: c.ValidityDays}
}

// FreelancerServiceConfig combines marketplace caching with the portal link used in review emails.
func (c *Config) FreelancerServiceConfig() services.FreelancerConfig {
	return services.FreelancerConfig{
		CacheTTL:  c.Marketplace.CacheTTL,
		PortalURL: strings.TrimRight(strings.TrimSpace(c.Email.PortalURL), "/"),
	}
}
