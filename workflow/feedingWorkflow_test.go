package workflow

import (
	"testing"

	"bitbucket.org/mmagritech/farm_backend/models"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestPlanFeedingDeductions_SplitsByRatio(t *testing.T) {
	// 100kg feeding of a 60% corn / 40% soybean formula consumes 60kg + 40kg.
	ingredients := []models.FeedFormulaIngredient{
		{MaterialName: "corn", Ratio: dec("60")},
		{MaterialName: "soybean", Ratio: dec("40")},
	}
	plan := PlanFeedingDeductions(dec("100"), ingredients)
	if len(plan) != 2 {
		t.Fatalf("expected 2 deductions, got %d", len(plan))
	}
	if plan[0].MaterialName != "corn" || !plan[0].Quantity.Equal(dec("60")) {
		t.Errorf("corn deduction = %s %s, want corn 60", plan[0].MaterialName, plan[0].Quantity)
	}
	if plan[1].MaterialName != "soybean" || !plan[1].Quantity.Equal(dec("40")) {
		t.Errorf("soybean deduction = %s %s, want soybean 40", plan[1].MaterialName, plan[1].Quantity)
	}
}

func TestPlanFeedingDeductions_DropsNonPositive(t *testing.T) {
	ingredients := []models.FeedFormulaIngredient{
		{MaterialName: "corn", Ratio: dec("100")},
		{MaterialName: "filler", Ratio: dec("0")},
		{MaterialName: "bogus", Ratio: dec("-5")},
	}
	plan := PlanFeedingDeductions(dec("50"), ingredients)
	if len(plan) != 1 {
		t.Fatalf("expected 1 deduction, got %d", len(plan))
	}
	if plan[0].MaterialName != "corn" {
		t.Errorf("kept %s, want corn", plan[0].MaterialName)
	}
}

func TestPlanFeedingDeductions_FractionalAmounts(t *testing.T) {
	ingredients := []models.FeedFormulaIngredient{
		{MaterialName: "corn", Ratio: dec("33.3333")},
	}
	plan := PlanFeedingDeductions(dec("10"), ingredients)
	if len(plan) != 1 {
		t.Fatalf("expected 1 deduction, got %d", len(plan))
	}
	// Quantities are kept at the ledger's 4-decimal precision.
	if plan[0].Quantity.Exponent() < -4 {
		t.Errorf("quantity %s has more than 4 decimal places", plan[0].Quantity)
	}
	if !plan[0].Quantity.Equal(dec("3.3333")) {
		t.Errorf("quantity = %s, want 3.3333", plan[0].Quantity)
	}
}

func TestPlanFeedingDeductions_NormalizesIngredientNames(t *testing.T) {
	// Material names are stored lower-trimmed; the plan must match that form
	// however the formula spells the ingredient.
	ingredients := []models.FeedFormulaIngredient{
		{MaterialName: "  Corn Meal ", Ratio: dec("100")},
	}
	plan := PlanFeedingDeductions(dec("10"), ingredients)
	if len(plan) != 1 {
		t.Fatalf("expected 1 deduction, got %d", len(plan))
	}
	if plan[0].MaterialName != "corn meal" {
		t.Errorf("material name = %q, want %q", plan[0].MaterialName, "corn meal")
	}
}

func TestPlanFeedingDeductions_ZeroAmount(t *testing.T) {
	ingredients := []models.FeedFormulaIngredient{
		{MaterialName: "corn", Ratio: dec("60")},
	}
	if plan := PlanFeedingDeductions(dec("0"), ingredients); len(plan) != 0 {
		t.Errorf("zero feeding amount produced %d deductions", len(plan))
	}
}
