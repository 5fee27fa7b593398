package rules

import "github.com/opensource-finance/loyalty/internal/domain"

// Guard IDs of the built-in rule table.
const (
	GuardInsufficientTenure         = "insufficient-tenure"
	GuardLoyal                      = "loyal"
	GuardBelowConsistencyAndRevenue = "below-consistency-and-revenue"
	GuardBelowConsistency           = "below-consistency"
	GuardBelowRevenue               = "below-revenue"
)

// Threshold checks are written as negated passes so that NaN metrics fail.
const (
	passesConsistency = "consistency_rate >= min_consistency_rate"
	passesRevenue     = "revenue_in_window >= min_revenue_window"
)

// BuiltinGuards returns the loyalty framework rules in evaluation order.
// Tenure is a hard gate and is checked before anything else.
func BuiltinGuards() []domain.Guard {
	return []domain.Guard{
		{
			ID:         GuardInsufficientTenure,
			Expression: "!has_tenure || tenure_years < min_tenure_years",
			Status:     domain.StatusIneligible,
			Reason:     domain.ReasonInsufficientTenure,
		},
		{
			ID:         GuardLoyal,
			Expression: passesConsistency + " && " + passesRevenue,
			Status:     domain.StatusLoyal,
		},
		{
			ID:         GuardBelowConsistencyAndRevenue,
			Expression: "!(" + passesConsistency + ") && !(" + passesRevenue + ")",
			Status:     domain.StatusNotQualified,
			Reason:     domain.ReasonBelowConsistencyAndRevenue,
		},
		{
			ID:         GuardBelowConsistency,
			Expression: "!(" + passesConsistency + ")",
			Status:     domain.StatusNotQualified,
			Reason:     domain.ReasonBelowConsistency,
		},
		{
			ID:         GuardBelowRevenue,
			Expression: "!(" + passesRevenue + ")",
			Status:     domain.StatusNotQualified,
			Reason:     domain.ReasonBelowRevenue,
		},
	}
}
