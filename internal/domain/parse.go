package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// amountUnitsPattern matches a decimal amount immediately followed by a
// units tail of letters or a percent sign, e.g. "250мл", "5%", "1.5кг".
var amountUnitsPattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:[.,][0-9]+)?)([\p{L}%]*)\s*$`)

// DefaultUnits is used when a source gives no units at all.
const DefaultUnits = "шт"

// ParseAmountUnits splits a short free-text string like "/100 г" or
// "0,5 кг" into a numeric amount and a units name. It never fails:
// unparseable input degrades to amount 1.0 and DefaultUnits.
func ParseAmountUnits(s string) (float64, string) {
	s = strings.TrimSpace(strings.TrimLeft(s, "/"))

	if m := amountUnitsPattern.FindStringSubmatch(s); m != nil {
		amount, err := parseDecimal(m[1])
		if err == nil {
			units := m[2]
			if units == "" {
				units = DefaultUnits
			}
			return amount, units
		}
	}

	fields := strings.Fields(s)
	switch {
	case len(fields) >= 2:
		amount, err := parseDecimal(fields[len(fields)-2])
		if err != nil {
			amount = 1.0
		}
		return amount, fields[len(fields)-1]
	case len(fields) == 1:
		amount, err := parseDecimal(fields[0])
		if err != nil {
			amount = 1.0
		}
		return amount, DefaultUnits
	default:
		return 1.0, DefaultUnits
	}
}

// parseDecimal reads a decimal number tolerating a comma separator and
// embedded spaces, the way store pages print prices ("1 234,50").
func parseDecimal(s string) (float64, error) {
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	return strconv.ParseFloat(s, 64)
}
