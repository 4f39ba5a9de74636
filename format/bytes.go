package format

import "fmt"

// byteUnits are decimal, largest first.
var byteUnits = []struct {
	size   int64
	suffix string
}{
	{1e12, "TB"},
	{1e9, "GB"},
	{1e6, "MB"},
	{1e3, "KB"},
}

// HumanBytes renders a file or corpus size with one decimal in the largest
// unit it exceeds.
func HumanBytes(b int64) string {
	for _, u := range byteUnits {
		if b > u.size {
			return fmt.Sprintf("%.1f %s", float64(b)/float64(u.size), u.suffix)
		}
	}

	return fmt.Sprintf("%d B", b)
}
