// Package phone normalizes Sri Lankan phone numbers.
//
// Upstream producers disagree on whether the country code or the trunk zero
// is included, so every number is reduced to one canonical form
// ("94" + 9-digit national number) before it is stored or compared.
package phone

import (
	"fmt"
	"strings"

	apperrors "github.com/yourusername/dealership-api/internal/pkg/errors"
)

const (
	// CountryCode is the calling code prepended to canonical numbers.
	CountryCode = "94"

	nationalLength = 9
)

// Normalize returns the canonical form 94XXXXXXXXX. Accepted inputs:
// 0XXXXXXXXX, 94XXXXXXXXX, +94XXXXXXXXX, 0094XXXXXXXXX and the bare
// 9-digit national number. Spaces, dashes, dots and parentheses are ignored.
func Normalize(raw string) (string, error) {
	national, err := nationalNumber(raw)
	if err != nil {
		return "", err
	}
	return CountryCode + national, nil
}

// Variants returns the three textual forms a stored identifier may have:
// canonical, with a leading plus, and local with the trunk zero.
func Variants(raw string) ([]string, error) {
	national, err := nationalNumber(raw)
	if err != nil {
		return nil, err
	}
	return []string{
		CountryCode + national,
		"+" + CountryCode + national,
		"0" + national,
	}, nil
}

// Local formats a number for display, e.g. 0771234567.
func Local(raw string) string {
	national, err := nationalNumber(raw)
	if err != nil {
		return raw
	}
	return "0" + national
}

func nationalNumber(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: mobile number is required", apperrors.ErrValidation)
	}

	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return "", fmt.Errorf("%w: mobile number contains invalid character %q", apperrors.ErrValidation, r)
		}
	}
	digits := b.String()

	switch {
	case strings.HasPrefix(digits, "00"+CountryCode) && len(digits) == 4+nationalLength:
		digits = digits[4:]
	case strings.HasPrefix(digits, CountryCode) && len(digits) == 2+nationalLength:
		digits = digits[2:]
	case strings.HasPrefix(digits, "0") && len(digits) == 1+nationalLength:
		digits = digits[1:]
	case len(digits) == nationalLength:
	default:
		return "", fmt.Errorf("%w: mobile number %q is not a valid Sri Lankan number", apperrors.ErrValidation, raw)
	}

	if digits[0] == '0' {
		return "", fmt.Errorf("%w: mobile number %q is not a valid Sri Lankan number", apperrors.ErrValidation, raw)
	}
	return digits, nil
}
