package format

import (
	"fmt"
)

func HumanNumber(b uint64) string {
	const (
		Thousand = 1000
		Million  = Thousand * 1000
		Billion  = Million * 1000
	)

	switch {
	case b >= Billion:
		return fmt.Sprintf("%sB", decimalPlace(float64(b)/Billion))
	case b >= Million:
		return fmt.Sprintf("%sM", decimalPlace(float64(b)/Million))
	case b >= Thousand:
		return fmt.Sprintf("%sK", decimalPlace(float64(b)/Thousand))
	default:
		return fmt.Sprintf("%d", b)
	}
}

// Ratio formats how many bytes each symbol stands for on average, or "-"
// when there are no symbols.
func Ratio(bytes, symbols int) string {
	if symbols == 0 {
		return "-"
	}

	return fmt.Sprintf("%.2fx", float64(bytes)/float64(symbols))
}

func decimalPlace(number float64) string {
	switch {
	case number >= 100:
		return fmt.Sprintf("%.0f", number)
	case number >= 10:
		return fmt.Sprintf("%.1f", number)
	default:
		return fmt.Sprintf("%.2f", number)
	}
}
