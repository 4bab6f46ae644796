package utils

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestPercentOf(t *testing.T) {
	cases := []struct {
		amount, ratio, want string
	}{
		{"100", "60", "60"},
		{"100", "40", "40"},
		{"10", "33.3333", "3.3333"},
		{"0", "50", "0"},
		{"7.5", "10", "0.75"},
	}
	for _, tc := range cases {
		amount, _ := decimal.NewFromString(tc.amount)
		ratio, _ := decimal.NewFromString(tc.ratio)
		want, _ := decimal.NewFromString(tc.want)
		if got := PercentOf(amount, ratio); !got.Equal(want) {
			t.Errorf("PercentOf(%s, %s) = %s, want %s", tc.amount, tc.ratio, got, want)
		}
	}
}

func TestUniqueSlice(t *testing.T) {
	got := UniqueSlice([]int{3, 1, 3, 2, 1})
	if len(got) != 3 || got[0] != 3 || got[1] != 1 || got[2] != 2 {
		t.Errorf("UniqueSlice = %v, want [3 1 2] preserving first-seen order", got)
	}
	if got := UniqueSlice([]string(nil)); len(got) != 0 {
		t.Errorf("UniqueSlice(nil) = %v", got)
	}
}

func TestNormalizeName(t *testing.T) {
	if got := NormalizeName("  Corn Meal "); got != "corn meal" {
		t.Errorf("NormalizeName = %q", got)
	}
}

func TestPreconditionError(t *testing.T) {
	err := PreconditionError("order %d is %s", 7, "pending")
	if !errors.Is(err, ErrPrecondition) {
		t.Error("PreconditionError does not wrap ErrPrecondition")
	}
	if err.Error() != "precondition failed: order 7 is pending" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestRowErrorAndExternalToolError(t *testing.T) {
	toolErr := &ExternalToolError{Tool: "mysqldump", ExitCode: 2, Stderr: "access denied"}
	if toolErr.Error() != "mysqldump failed (exit=2): access denied" {
		t.Errorf("message = %q", toolErr.Error())
	}
}
