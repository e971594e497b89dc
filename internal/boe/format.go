package boe

import "fmt"

const notAvailable = "N/A"

// FormatPct renders a ratio as a percentage with two decimals ("6.36%").
func FormatPct(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return fmt.Sprintf("%.2f%%", *v*100)
}

// FormatNum renders a plain number with two decimals ("1.52").
func FormatNum(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return fmt.Sprintf("%.2f", *v)
}

// FormatMult renders a multiple with an x suffix ("4.00x").
func FormatMult(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return fmt.Sprintf("%.2fx", *v)
}
