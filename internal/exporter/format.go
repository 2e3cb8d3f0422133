package exporter

import (
	"strconv"
)

// formatFloat formats a float64 value for CSV output with a fixed number of
// decimal places so columns line up in spreadsheet tools
func formatFloat(f float64, decimals int) string {
	return strconv.FormatFloat(f, 'f', decimals, 64)
}

// formatValue renders one sheet cell for CSV output
func formatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return formatFloat(x, 3)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}
