package namematch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "MARIA GONZALEZ", "maria gonzalez"},
		{"strips diacritics", "María José Pérez Ñuñez", "maria jose perez nunez"},
		{"collapses whitespace", "  juan \t carlos   soto ", "juan carlos soto"},
		{"empty", "", ""},
		{"whitespace only", "   \t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{"identical", "Juan Perez", "Juan Perez", 100},
		{"identical after normalization", "JUAN  PÉREZ", "juan perez", 100},
		{"omitted middle name", "maria gonzalez", "maria elena gonzalez", 67},
		{"compound surname containment", "ana maria rojas", "ana maria rojas-fuentes", 100},
		{"fully different", "pedro pablo soto", "carmen gloria diaz", 0},
		{"half match", "juan soto", "juan diaz", 50},
		{"concatenated surname", "rojas fuentes", "rojasfuentes", 100},
		{"concatenated surname reversed", "rojasfuentes", "rojas fuentes", 100},
		{"duplicated token", "juan juan perez", "juan perez", 100},
		{"duplicated token reversed", "juan perez", "juan juan perez", 100},
		{"empty a", "", "juan perez", 0},
		{"empty b", "juan perez", "", 0},
		{"both empty", "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
		})
	}
}

func TestCompare_Symmetry(t *testing.T) {
	pairs := [][2]string{
		{"maria gonzalez", "maria elena gonzalez"},
		{"juan soto", "juan diaz"},
		{"ana rojas", "ana maria rojas fuentes"},
		{"pedro", "pedro pablo"},
		{"rojas fuentes", "rojasfuentes"},
		{"juan juan perez", "juan perez"},
		{"ana maria rojas-fuentes", "ana rojas fuentes"},
	}

	for _, p := range pairs {
		assert.Equal(t, Compare(p[0], p[1]), Compare(p[1], p[0]), "Compare(%q,%q)", p[0], p[1])
	}
}

func TestCompare_Bounds(t *testing.T) {
	inputs := []string{"", "a", "juan perez", "maría josé pérez ñuñez de la fuente", "x y z"}

	for _, a := range inputs {
		for _, b := range inputs {
			score := Compare(a, b)
			assert.GreaterOrEqual(t, score, 0)
			assert.LessOrEqual(t, score, 100)
		}
	}
}
