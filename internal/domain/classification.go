package domain

// Status is the loyalty tier assigned to a customer.
type Status string

const (
	StatusLoyal        Status = "Loyal"
	StatusNotQualified Status = "Not Qualified"
	StatusIneligible   Status = "Ineligible"
)

// Statuses lists every status in report order.
var Statuses = []Status{StatusLoyal, StatusNotQualified, StatusIneligible}

// Rank orders statuses for output sorting. Unknown statuses sort last.
func (s Status) Rank() int {
	switch s {
	case StatusLoyal:
		return 0
	case StatusNotQualified:
		return 1
	case StatusIneligible:
		return 2
	default:
		return 3
	}
}

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	return s.Rank() < 3
}

// Reasons explain why a customer is not Loyal.
const (
	ReasonInsufficientTenure         = "Insufficient Tenure"
	ReasonBelowConsistencyAndRevenue = "Below Consistency & Revenue Thresholds"
	ReasonBelowConsistency           = "Below Consistency Threshold"
	ReasonBelowRevenue               = "Below Revenue Threshold"
)

// ClassificationResult is the classifier's decision for one customer.
// Reason is empty for Loyal customers.
type ClassificationResult struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`

	// GuardID names the guard that matched.
	GuardID string `json:"guardId"`
}

// Guard is one ordered classification rule. Expression is a CEL boolean
// expression over the metric and threshold variables; the first guard whose
// expression is true decides the outcome.
type Guard struct {
	ID         string `json:"id"`
	Expression string `json:"expression"`
	Status     Status `json:"status"`
	Reason     string `json:"reason,omitempty"`
}
