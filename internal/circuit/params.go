package circuit

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// paramPattern matches a single parameter value: numbers, pi expressions, or combinations.
// Examples: "1.5707", "pi", "pi/2", "3*pi/4", "-pi", "-2*pi/3", "3.14e-2"
const paramPattern = `-?(?:\d*\.?\d*\*?pi(?:/\d+\.?\d*)?|\d+\.?\d*(?:[eE][+\-]?\d+)?|\.\d+(?:[eE][+\-]?\d+)?)`

// piExprRegex matches expressions like: pi, 2pi, 2*pi, pi/2, 3pi/4, 3*pi/4, -pi, -pi/2, -3*pi/4
var piExprRegex = regexp.MustCompile(`^(-?)(\d*\.?\d*)\s*\*?\s*pi(?:\s*/\s*(\d+\.?\d*))?$`)

// maxDisplayDen bounds the denominators formatParam will render as pi fractions.
const maxDisplayDen = 64

// ParseParam parses a single parameter expression, supporting plain numbers and pi expressions.
// Returns the parsed float64 value and true on success, or 0 and false on failure.
//
// Supported formats:
//   - Plain numbers: "1.5707", "3.14", "-0.5"
//   - Pi constant: "pi"
//   - Pi fractions: "pi/2", "pi/4", "pi/3"
//   - Coefficients: "2pi", "2*pi", "3pi/4", "3*pi/4"
//   - Negative: "-pi", "-pi/2", "-3*pi/4"
func ParseParam(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if val, err := strconv.ParseFloat(s, 64); err == nil {
		return val, true
	}

	s = strings.ToLower(s)
	matches := piExprRegex.FindStringSubmatch(s)
	if matches == nil {
		return 0, false
	}
	coeff := 1.0
	if matches[2] != "" {
		var err error
		coeff, err = strconv.ParseFloat(matches[2], 64)
		if err != nil {
			return 0, false
		}
	}
	result := coeff * math.Pi
	if matches[3] != "" {
		denom, err := strconv.ParseFloat(matches[3], 64)
		if err != nil || denom == 0 {
			return 0, false
		}
		result /= denom
	}
	if matches[1] == "-" {
		result = -result
	}
	return result, true
}

// parseParamList parses a comma separated parameter list.
func parseParamList(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	params := make([]float64, 0, len(parts))
	for _, part := range parts {
		val, ok := ParseParam(part)
		if !ok {
			return nil, fmt.Errorf("bad parameter %q", strings.TrimSpace(part))
		}
		params = append(params, val)
	}
	return params, nil
}

// FormatParam formats an angle in radians, using pi notation when the value
// is a small rational multiple of pi. The angle is never wrapped: crz(3*pi/2)
// and crz(-pi/2) are different gates.
func FormatParam(val float64) string {
	if val == 0 {
		return "0"
	}
	if num, den, ok := piFraction(val); ok {
		sign := ""
		if num < 0 {
			sign = "-"
			num = -num
		}
		switch {
		case den == 1 && num == 1:
			return sign + "pi"
		case den == 1:
			return fmt.Sprintf("%s%d*pi", sign, num)
		case num == 1:
			return fmt.Sprintf("%spi/%d", sign, den)
		default:
			return fmt.Sprintf("%s%d*pi/%d", sign, num, den)
		}
	}
	return strconv.FormatFloat(val, 'g', -1, 64)
}

// piFraction finds num/den with den <= maxDisplayDen such that val ≈ num·π/den.
func piFraction(val float64) (int64, int64, bool) {
	x := val / math.Pi
	for den := int64(1); den <= maxDisplayDen; den++ {
		n := math.Round(x * float64(den))
		if math.Abs(x*float64(den)-n) < 1e-9*float64(den) {
			return int64(n), den, true
		}
	}
	return 0, 0, false
}
