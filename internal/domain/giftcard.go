package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// GiftCardRecord is the durable trace of one created gift card, linking it
// back to the order and line item unit that produced it.
type GiftCardRecord struct {
	ID            string          `json:"id"`
	Shop          string          `json:"shop"`
	OrderID       int64           `json:"order_id"`
	OrderName     string          `json:"order_name"`
	LineItemID    int64           `json:"line_item_id"`
	UnitIndex     int             `json:"unit_index"` // 0-based unit within the line item
	GiftCardID    string          `json:"gift_card_id"`
	Code          string          `json:"-"` // cash-equivalent, revealed only on demand
	MaskedCode    string          `json:"masked_code"`
	Value         decimal.Decimal `json:"value"`
	Currency      string          `json:"currency"`
	CustomerID    int64           `json:"customer_id,omitempty"`
	CustomerName  string          `json:"customer_name,omitempty"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	PrintedAt     *time.Time      `json:"printed_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// OrderRun status values.
const (
	OrderRunComplete = "complete"
	OrderRunPartial  = "partial"
	OrderRunFailed   = "failed"
)

// OrderRun records the outcome of processing one paid order: how many gift
// cards were requested versus actually issued. It doubles as the
// idempotency marker for orders where every creation call failed.
type OrderRun struct {
	ID        string    `json:"id"`
	Shop      string    `json:"shop"`
	OrderID   int64     `json:"order_id"`
	Status    string    `json:"status"`
	Requested int       `json:"requested"`
	Issued    int       `json:"issued"`
	CreatedAt time.Time `json:"created_at"`
}

// RunStatus derives the order run status from requested and issued counts.
// A run with nothing requested (matched items of zero quantity, or no
// parseable prices) is complete, not failed: no creation call failed.
func RunStatus(requested, issued int) string {
	switch {
	case issued >= requested:
		return OrderRunComplete
	case issued == 0:
		return OrderRunFailed
	default:
		return OrderRunPartial
	}
}

// UnitValue computes the monetary value assigned to one gift card unit:
// the line item's unit price minus the printed overhead, floored at zero
// and rounded to the currency's minor unit.
func UnitValue(unitPrice, printedOverhead decimal.Decimal) decimal.Decimal {
	v := unitPrice.Sub(printedOverhead)
	if v.IsNegative() {
		v = decimal.Zero
	}
	return v.Round(2)
}

// FormatCode formats a full gift card code for display: upper-cased and
// grouped into blocks of four characters. Display only, never stored.
func FormatCode(code string) string {
	code = strings.ToUpper(strings.ReplaceAll(code, " ", ""))
	var b strings.Builder
	for i, r := range code {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// MaskCode returns a representation of a gift card code that is safe to log
// or display routinely: everything but the last four characters hidden.
func MaskCode(code string) string {
	code = strings.ReplaceAll(code, " ", "")
	if len(code) <= 4 {
		return code
	}
	return "••••" + strings.ToUpper(code[len(code)-4:])
}
