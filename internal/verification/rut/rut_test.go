package rut

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// referenceDigit mirrors the published modulo-11 rule and is used to generate
// valid pairs for the sweep tests.
func referenceDigit(nationalID string) string {
	sum := 0
	weight := 2
	for i := len(nationalID) - 1; i >= 0; i-- {
		sum += int(nationalID[i]-'0') * weight
		weight++
		if weight > 7 {
			weight = 2
		}
	}
	switch r := sum % 11; r {
	case 0:
		return "0"
	case 1:
		return "K"
	default:
		return fmt.Sprintf("%d", 11-r)
	}
}

func TestVerify_KnownPairs(t *testing.T) {
	tests := []struct {
		name       string
		nationalID string
		checkDigit string
		want       bool
	}{
		{"eight digit id", "12345678", "5", true},
		{"repeated ones", "11111111", "1", true},
		{"check digit K", "1112111", "K", true},
		{"check digit k lowercase", "1112111", "k", true},
		{"check digit zero", "1111211", "0", true},
		{"wrong digit", "12345678", "9", false},
		{"K where digit expected", "12345678", "K", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Verify(tt.nationalID, tt.checkDigit))
		})
	}
}

func TestVerify_SweepAllDigits(t *testing.T) {
	// For each id the reference digit must verify and every other candidate
	// must fail.
	ids := []string{"1234567", "7654321", "12345678", "98765432", "123456789", "11111111", "1112111"}

	for _, id := range ids {
		expected := referenceDigit(id)
		require.True(t, Verify(id, expected), "id %s with digit %s", id, expected)

		for _, candidate := range []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", "K"} {
			if candidate == expected {
				continue
			}
			assert.False(t, Verify(id, candidate), "id %s must reject digit %s", id, candidate)
		}
	}
}

func TestVerify_MalformedInput(t *testing.T) {
	tests := []struct {
		name       string
		nationalID string
		checkDigit string
	}{
		{"too short", "123456", "5"},
		{"too long", "1234567890", "5"},
		{"empty id", "", "5"},
		{"letters in id", "1234567a", "5"},
		{"empty check digit", "12345678", ""},
		{"multi-char check digit", "12345678", "55"},
		{"symbol check digit", "12345678", "-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, Verify(tt.nationalID, tt.checkDigit))
		})
	}
}
