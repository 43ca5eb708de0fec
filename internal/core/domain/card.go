package domain

import (
	"strconv"
	"strings"
)

// Card is an in-flight card captured from a request. It exists only in
// memory during a confirm or tokenize call and must never reach a repository;
// persistence paths accept PaymentMethodSummary instead.
type Card struct {
	Number   string `json:"number"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
	CVC      string `json:"cvc"`
	Name     string `json:"name,omitempty"`
}

// Last4 returns the trailing four digits of the PAN.
func (c *Card) Last4() string {
	if len(c.Number) < 4 {
		return c.Number
	}
	return c.Number[len(c.Number)-4:]
}

// Brand infers the card brand from the leading digits. Enough for display
// and routing; not a full BIN table.
func (c *Card) Brand() string {
	n := c.Number
	switch {
	case strings.HasPrefix(n, "4"):
		return "visa"
	case hasPrefixInRange(n, 51, 55) || hasPrefixInRange(n, 2221, 2720):
		return "mastercard"
	case strings.HasPrefix(n, "34") || strings.HasPrefix(n, "37"):
		return "amex"
	case strings.HasPrefix(n, "6011") || strings.HasPrefix(n, "65"):
		return "discover"
	default:
		return "unknown"
	}
}

// Summary converts the card into its persistable form.
func (c *Card) Summary() PaymentMethodSummary {
	return PaymentMethodSummary{
		Type:     "card",
		Brand:    c.Brand(),
		Last4:    c.Last4(),
		ExpMonth: c.ExpMonth,
		ExpYear:  c.ExpYear,
	}
}

// ValidLuhn runs the Luhn checksum over the PAN.
func (c *Card) ValidLuhn() bool {
	sum := 0
	double := false
	for i := len(c.Number) - 1; i >= 0; i-- {
		d := c.Number[i]
		if d < '0' || d > '9' {
			return false
		}
		n := int(d - '0')
		if double {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		double = !double
	}
	return len(c.Number) >= 12 && sum%10 == 0
}

func hasPrefixInRange(n string, lo, hi int) bool {
	width := len(strconv.Itoa(lo))
	if len(n) < width {
		return false
	}
	v, err := strconv.Atoi(n[:width])
	if err != nil {
		return false
	}
	return v >= lo && v <= hi
}
