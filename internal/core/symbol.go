package core

import (
	"fmt"
	"regexp"
	"strings"
)

// validSymbol matches stock symbols like AAPL, BRK.B, 0700.HK, 600519.SS
var validSymbol = regexp.MustCompile(`^[A-Z0-9]{1,10}([.\-][A-Z]{1,4})?$`)

// NormalizeSymbol canonicalizes a user supplied symbol to upper case and checks
// its format. Failures are ErrValidation.
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return "", WrapError(ErrValidation, fmt.Errorf("symbol cannot be empty"))
	}
	if len(s) > 20 {
		return "", WrapError(ErrValidation, fmt.Errorf("symbol too long: %s", s))
	}
	if !validSymbol.MatchString(s) {
		return "", WrapError(ErrValidation, fmt.Errorf("invalid symbol format: %s", s))
	}
	return s, nil
}
