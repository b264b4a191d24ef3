// Package money implements the invoice arithmetic: subtotal, value-added tax,
// deductions and the statutory transaction tax. All amounts are decimals; no
// value ever passes through a binary float once it has been coerced.
package money

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// DefaultVATRate is the value-added tax applied to VAT payers.
	DefaultVATRate = decimal.RequireFromString("0.20")
	// DefaultTransactionTaxRate is the statutory transaction tax, in percent.
	DefaultTransactionTaxRate = decimal.RequireFromString("0.4")
)

// Input is everything the calculator needs for one invoice. A nil
// TransactionTaxRate selects the calculator's default rate.
type Input struct {
	Hours              decimal.Decimal
	Rate               decimal.Decimal
	AdvanceDeduction   decimal.Decimal
	LodgingDeduction   decimal.Decimal
	IsVATPayer         bool
	IsReverseCharge    bool
	TransactionTaxRate *decimal.Decimal
}

// Breakdown is the result of Calculate.
type Breakdown struct {
	Hours              decimal.Decimal `json:"hours"`
	Rate               decimal.Decimal `json:"rate"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	VAT                decimal.Decimal `json:"vat"`
	AdvanceDeduction   decimal.Decimal `json:"advance_deduction"`
	LodgingDeduction   decimal.Decimal `json:"lodging_deduction"`
	Total              decimal.Decimal `json:"total"`
	TransactionTaxRate decimal.Decimal `json:"transaction_tax_rate"`
	TransactionTax     decimal.Decimal `json:"transaction_tax"`
}

type Calculator struct {
	vatRate        decimal.Decimal
	defaultTaxRate decimal.Decimal
}

func NewCalculator(vatRate, defaultTaxRate decimal.Decimal) *Calculator {
	if vatRate.IsNegative() {
		vatRate = decimal.Zero
	}
	if !defaultTaxRate.IsPositive() {
		defaultTaxRate = DefaultTransactionTaxRate
	}
	return &Calculator{vatRate: vatRate, defaultTaxRate: defaultTaxRate}
}

func DefaultCalculator() *Calculator {
	return NewCalculator(DefaultVATRate, DefaultTransactionTaxRate)
}

func (c *Calculator) DefaultTransactionTaxRate() decimal.Decimal {
	return c.defaultTaxRate
}

// Calculate computes the full breakdown. Inputs are clamped to be
// non-negative. The total is not clamped: deductions larger than the gross
// amount yield a negative total, for which no transaction tax is due.
func (c *Calculator) Calculate(in Input) Breakdown {
	hours := NonNegative(in.Hours)
	rate := NonNegative(in.Rate)
	advance := NonNegative(in.AdvanceDeduction)
	lodging := NonNegative(in.LodgingDeduction)

	taxRate := c.defaultTaxRate
	if in.TransactionTaxRate != nil {
		taxRate = NonNegative(*in.TransactionTaxRate)
	}

	subtotal := Subtotal(hours, rate)
	vat := VAT(subtotal, c.vatRate, in.IsVATPayer, in.IsReverseCharge)
	total := Total(subtotal, vat, advance, lodging)

	tax := decimal.Zero
	if total.IsPositive() {
		tax = TransactionTax(total, taxRate)
	}

	return Breakdown{
		Hours:              hours,
		Rate:               rate,
		Subtotal:           subtotal,
		VAT:                vat,
		AdvanceDeduction:   advance,
		LodgingDeduction:   lodging,
		Total:              total,
		TransactionTaxRate: taxRate,
		TransactionTax:     tax,
	}
}

// Subtotal is hours × rate rounded to cents. VAT and total are derived from
// the rounded figure so the printed lines add up.
func Subtotal(hours, rate decimal.Decimal) decimal.Decimal {
	return hours.Mul(rate).Round(2)
}

// VAT is subtotal × vatRate for VAT payers outside reverse charge, else zero.
func VAT(subtotal, vatRate decimal.Decimal, isVATPayer, isReverseCharge bool) decimal.Decimal {
	if !isVATPayer || isReverseCharge {
		return decimal.Zero
	}
	return subtotal.Mul(vatRate).Round(2)
}

// Total is subtotal + vat − advance − lodging.
func Total(subtotal, vat, advance, lodging decimal.Decimal) decimal.Decimal {
	return subtotal.Add(vat).Sub(advance).Sub(lodging)
}

// TransactionTax is ceil(total × rate / 100 × 100) / 100 where rate is a
// percentage. It always rounds up to the next cent.
func TransactionTax(total, ratePercent decimal.Decimal) decimal.Decimal {
	return total.Mul(ratePercent).Ceil().Shift(-2)
}

// NonNegative returns d, or zero when d is negative.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Coerce converts loosely typed upstream values into a decimal. Anything that
// is not a finite number, or a string holding one, becomes zero.
func Coerce(v any) decimal.Decimal {
	switch x := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return x
	case *decimal.Decimal:
		if x == nil {
			return decimal.Zero
		}
		return *x
	case float64:
		return fromFloat(x)
	case *float64:
		if x == nil {
			return decimal.Zero
		}
		return fromFloat(*x)
	case float32:
		return fromFloat(float64(x))
	case int:
		return decimal.NewFromInt(int64(x))
	case int32:
		return decimal.NewFromInt32(x)
	case int64:
		return decimal.NewFromInt(x)
	case uint:
		return decimal.NewFromUint64(uint64(x))
	case uint64:
		return decimal.NewFromUint64(x)
	case json.Number:
		return fromString(string(x))
	case string:
		return fromString(x)
	case Flex:
		return x.Decimal
	case *Flex:
		if x == nil {
			return decimal.Zero
		}
		return x.Decimal
	default:
		return decimal.Zero
	}
}

func fromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

func fromString(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Flex is a decimal that accepts JSON numbers, numeric strings and garbage.
// Garbage decodes to zero instead of failing the whole request.
type Flex struct {
	decimal.Decimal
}

func NewFlex(v any) *Flex {
	return &Flex{Decimal: Coerce(v)}
}

func (f *Flex) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		f.Decimal = decimal.Zero
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			f.Decimal = decimal.Zero
			return nil
		}
		f.Decimal = fromString(s)
		return nil
	}
	f.Decimal = fromString(string(data))
	return nil
}

// Value returns the decimal of a possibly nil Flex.
func (f *Flex) Value() decimal.Decimal {
	if f == nil {
		return decimal.Zero
	}
	return f.Decimal
}
