// Package rut validates the check digit of a Chilean national identification
// number (RUT) using the standard modulo-11 algorithm.
package rut

// Verify reports whether checkDigit is the correct modulo-11 check digit for
// nationalID. nationalID must be 7 to 9 digits; checkDigit one of 0-9, K or k.
// Malformed input returns false, never panics. Pure, no I/O.
func Verify(nationalID, checkDigit string) bool {
	if len(nationalID) < 7 || len(nationalID) > 9 {
		return false
	}
	if len(checkDigit) != 1 {
		return false
	}

	// Weighted sum over digits from least-significant, weights cycling 2..7.
	sum := 0
	weight := 2
	for i := len(nationalID) - 1; i >= 0; i-- {
		c := nationalID[i]
		if c < '0' || c > '9' {
			return false
		}
		sum += int(c-'0') * weight
		weight++
		if weight > 7 {
			weight = 2
		}
	}

	expected := expectedDigit(sum % 11)

	got := checkDigit[0]
	if got == 'k' {
		got = 'K'
	}
	return got == expected
}

func expectedDigit(remainder int) byte {
	switch remainder {
	case 0:
		return '0'
	case 1:
		return 'K'
	default:
		return byte('0' + 11 - remainder)
	}
}
