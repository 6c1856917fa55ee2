package cli

import (
	"strings"

	"smartexpense/internal/core"
)

// FormatMoney renders an amount with thousands separators and two decimals.
// e.g., 1234567.5 -> "1,234,567.50"
func FormatMoney(m core.Money) string {
	s := m.String()
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	return sign + groupThousands(whole) + "." + frac
}

// FormatPercent renders a rate as "12.34%".
func FormatPercent(r core.Rate) string {
	return r.String() + "%"
}

// FormatChange renders a signed percentage change, e.g. "+5.00%".
func FormatChange(r core.Rate) string {
	if r.Sign() > 0 {
		return "+" + FormatPercent(r)
	}
	return FormatPercent(r)
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// OrDash returns "-" for an empty string.
func OrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
