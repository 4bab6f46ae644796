package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

func DereferencePtr[T any](ptr *T, def T) T {
	if ptr == nil {
		return def
	}
	return *ptr
}

func Ptr[T any](v T) *T {
	return &v
}

func UniqueSlice[T comparable](in []T) []T {
	seen := make(map[T]struct{}, len(in))
	out := make([]T, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func MergeIntSlices(a, b []int) []int {
	return UniqueSlice(append(a, b...))
}

// NormalizeName trims and lower-cases a business name for matching
// (formula ingredient names against material names).
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// PercentOf returns amount * ratio / 100 at 4-decimal ledger precision.
func PercentOf(amount decimal.Decimal, ratio decimal.Decimal) decimal.Decimal {
	return amount.Mul(ratio).Div(decimal.NewFromInt(100)).Round(4)
}
