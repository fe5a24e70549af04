// Package billing holds the money arithmetic shared by quotes and invoices.
package billing

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mdnaeem95/halaltech/pkg/crypto"
)

// Defaults applied when configuration leaves a field empty.
const (
	DefaultTaxRate        = 0.09
	DefaultCurrency       = "SGD"
	DefaultPaymentDueDays = 14
	DefaultInvoicePrefix  = "INV"
)

// Config describes how invoices are priced and numbered.
type Config struct {
	TaxRate        float64
	Currency       string
	PaymentDueDays int
	InvoicePrefix  string
}

// Breakdown is the priced result of applying tax to an amount.
type Breakdown struct {
	Amount      float64
	TaxRate     float64
	TaxAmount   float64
	TotalAmount float64
	Currency    string
}

// Calculator applies a fixed tax configuration.
type Calculator struct {
	cfg Config
}

// NewCalculator returns a calculator with defaults filled in. A negative tax
// rate is rejected; zero is allowed for tax-exempt deployments.
func NewCalculator(cfg Config) (*Calculator, error) {
	if cfg.TaxRate < 0 || cfg.TaxRate >= 1 {
		return nil, fmt.Errorf("billing: tax rate %.4f out of range", cfg.TaxRate)
	}
	if strings.TrimSpace(cfg.Currency) == "" {
		cfg.Currency = DefaultCurrency
	}
	if cfg.PaymentDueDays <= 0 {
		cfg.PaymentDueDays = DefaultPaymentDueDays
	}
	if strings.TrimSpace(cfg.InvoicePrefix) == "" {
		cfg.InvoicePrefix = DefaultInvoicePrefix
	}
	cfg.Currency = strings.ToUpper(strings.TrimSpace(cfg.Currency))
	return &Calculator{cfg: cfg}, nil
}

// Default returns a calculator configured for Singapore GST.
func Default() *Calculator {
	calc, _ := NewCalculator(Config{TaxRate: DefaultTaxRate})
	return calc
}

// Config returns the effective configuration.
func (c *Calculator) Config() Config {
	return c.cfg
}

// Price applies tax to amount. tax = round(amount*rate, 2) and
// total = round(amount+tax, 2), so TotalAmount equals Amount+TaxAmount at cent
// precision. The unrounded float sum can differ in the last bits; compare
// totals with RoundMoney rather than ==.
func (c *Calculator) Price(amount float64) (Breakdown, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Breakdown{}, errors.New("billing: amount must be positive")
	}
	amount = RoundMoney(amount)
	tax := RoundMoney(amount * c.cfg.TaxRate)
	return Breakdown{
		Amount:      amount,
		TaxRate:     c.cfg.TaxRate,
		TaxAmount:   tax,
		TotalAmount: RoundMoney(amount + tax),
		Currency:    c.cfg.Currency,
	}, nil
}

// DueDate returns the payment due date for an invoice issued at issued.
func (c *Calculator) DueDate(issued time.Time) time.Time {
	return issued.AddDate(0, 0, c.cfg.PaymentDueDays)
}

// InvoiceNumber renders PREFIX-YYYYMM-XXXXXXXX for the issue month.
func (c *Calculator) InvoiceNumber(issued time.Time) (string, error) {
	code, err := crypto.RandomCode(8)
	if err != nil {
		return "", fmt.Errorf("billing: invoice number: %w", err)
	}
	return fmt.Sprintf("%s-%s-%s", c.cfg.InvoicePrefix, issued.UTC().Format("200601"), code), nil
}

// RoundMoney rounds to cents, half away from zero. The small epsilon absorbs
// binary representation error such as 1.005 being stored as 1.00499...
func RoundMoney(value float64) float64 {
	scaled := value * 100
	if scaled >= 0 {
		return math.Floor(scaled+0.5+1e-9) / 100
	}
	return -math.Floor(-scaled+0.5+1e-9) / 100
}
