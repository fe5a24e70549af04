package billing

import (
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPriceAppliesGST(t *testing.T) {
	calc := Default()

	cases := []struct {
		amount float64
		tax    float64
		total  float64
	}{
		{amount: 1000, tax: 90, total: 1090},
		{amount: 99.99, tax: 9, total: 108.99},
		{amount: 0.5, tax: 0.05, total: 0.55},
		{amount: 1234.56, tax: 111.11, total: 1345.67},
		{amount: 12.5, tax: 1.13, total: 13.63},
	}

	for _, tc := range cases {
		got, err := calc.Price(tc.amount)
		require.NoError(t, err)
		require.Equal(t, tc.tax, got.TaxAmount, "tax for %v", tc.amount)
		require.Equal(t, tc.total, got.TotalAmount, "total for %v", tc.amount)
		require.InDelta(t, got.Amount+got.TaxAmount, got.TotalAmount, 1e-9)
		require.Equal(t, 0.09, got.TaxRate)
		require.Equal(t, "SGD", got.Currency)
	}
}

func TestPriceTotalsAddUpInCents(t *testing.T) {
	calc := Default()
	for cents := 1; cents <= 100000; cents++ {
		got, err := calc.Price(float64(cents) / 100)
		require.NoError(t, err)

		amount := int64(math.Round(got.Amount * 100))
		tax := int64(math.Round(got.TaxAmount * 100))
		total := int64(math.Round(got.TotalAmount * 100))
		require.Equal(t, int64(cents), amount)
		require.Equal(t, amount+tax, total, "amount %d cents", cents)
		require.Equal(t, got.TotalAmount, RoundMoney(got.Amount+got.TaxAmount))
	}
}

func TestPriceRejectsNonPositive(t *testing.T) {
	calc := Default()
	_, err := calc.Price(0)
	require.Error(t, err)
	_, err = calc.Price(-10)
	require.Error(t, err)
}

func TestNewCalculatorValidatesRate(t *testing.T) {
	_, err := NewCalculator(Config{TaxRate: -0.1})
	require.Error(t, err)

	calc, err := NewCalculator(Config{TaxRate: 0, Currency: "usd"})
	require.NoError(t, err)
	got, err := calc.Price(100)
	require.NoError(t, err)
	require.Zero(t, got.TaxAmount)
	require.Equal(t, "USD", got.Currency)
	require.Equal(t, DefaultPaymentDueDays, calc.Config().PaymentDueDays)
}

func TestRoundMoney(t *testing.T) {
	require.Equal(t, 1.01, RoundMoney(1.005))
	require.Equal(t, 2.68, RoundMoney(2.675))
	require.Equal(t, -1.01, RoundMoney(-1.005))
	require.Equal(t, 3.0, RoundMoney(2.999))
}

func TestInvoiceNumberAndDueDate(t *testing.T) {
	calc := Default()
	issued := time.Date(2025, 3, 17, 8, 0, 0, 0, time.UTC)

	number, err := calc.InvoiceNumber(issued)
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^INV-202503-[A-Z2-9]{8}$`), number)

	require.Equal(t, issued.AddDate(0, 0, 14), calc.DueDate(issued))
}
