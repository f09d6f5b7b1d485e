package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TrendLabel classifies the overall spending trajectory.
type TrendLabel string

const (
	// TrendIncreasing indicates spending grew beyond the trend band.
	TrendIncreasing TrendLabel = "increasing"
	// TrendDecreasing indicates spending shrank beyond the trend band.
	TrendDecreasing TrendLabel = "decreasing"
	// TrendStable indicates spending stayed within the trend band.
	TrendStable TrendLabel = "stable"
	// TrendUnknown indicates insufficient history to judge.
	TrendUnknown TrendLabel = "unknown"
)

// MonthlyTotal is one month's summed amount. Slices of these are kept in
// chronological order.
type MonthlyTotal struct {
	Month  string // formatted as 2006-01
	Amount decimal.Decimal
}

// RankedEntry is one row of a ranked breakdown (top categories, merchants).
type RankedEntry struct {
	Name   string
	Amount decimal.Decimal
}

// PeriodDelta captures period-over-period change.
type PeriodDelta struct {
	Current  decimal.Decimal
	Previous decimal.Decimal
	Percent  float64
}

// SpendingInsights is a derived, disposable snapshot over transaction
// history. It is regenerated on demand and never persisted as the source of
// truth.
type SpendingInsights struct {
	GeneratedAt       time.Time
	CategoryBreakdown map[string]decimal.Decimal
	TotalIncome       decimal.Decimal
	TotalExpense      decimal.Decimal
	Net               decimal.Decimal
	DailyAverage      decimal.Decimal
	WeeklyAverage     decimal.Decimal
	MonthlyAverage    decimal.Decimal
	Trend             TrendLabel
	MonthlyTotals     []MonthlyTotal
	TopCategories     []RankedEntry
	TopMerchants      []RankedEntry
	ExpenseDelta      PeriodDelta
	IncomeDelta       PeriodDelta
	Recommendations   []Recommendation
	Anomalies         []Anomaly
}

// RecommendationType categorizes a recommendation.
type RecommendationType string

// Recommendation type constants.
const (
	RecommendationSaving       RecommendationType = "saving"
	RecommendationBudgeting    RecommendationType = "budgeting"
	RecommendationInvestment   RecommendationType = "investment"
	RecommendationSpending     RecommendationType = "spending"
	RecommendationCashflow     RecommendationType = "cashflow"
	RecommendationOptimization RecommendationType = "optimization"
)

// Priority ranks how urgently a recommendation should be acted on.
type Priority string

// Priority constants, highest first.
const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Rank returns a sortable weight for the priority, lower is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// Recommendation is a rule-derived suggestion surfaced with the insights.
type Recommendation struct {
	CreatedAt        time.Time
	ID               string
	Title            string
	Description      string
	Type             RecommendationType
	Priority         Priority
	Categories       []string
	PotentialSavings decimal.NullDecimal
	Actionable       bool
}

// AnomalyType categorizes a detected anomaly.
type AnomalyType string

// Anomaly type constants.
const (
	AnomalyUnusualAmount    AnomalyType = "unusual-amount"
	AnomalyUnusualFrequency AnomalyType = "unusual-frequency"
	AnomalyUnusualTime      AnomalyType = "unusual-time"
	AnomalyUnusualMerchant  AnomalyType = "unusual-merchant"
)

// MetadataKind tags which arm of a MetadataValue is populated.
type MetadataKind int

// Metadata kinds.
const (
	MetadataNumber MetadataKind = iota
	MetadataString
	MetadataBool
	MetadataStringList
)

// MetadataValue is a bounded tagged variant for anomaly metadata. Exactly
// one arm is meaningful, selected by Kind.
type MetadataValue struct {
	Str    string
	List   []string
	Number float64
	Kind   MetadataKind
	Bool   bool
}

// NumberValue builds a numeric metadata value.
func NumberValue(n float64) MetadataValue { return MetadataValue{Kind: MetadataNumber, Number: n} }

// StringValue builds a string metadata value.
func StringValue(s string) MetadataValue { return MetadataValue{Kind: MetadataString, Str: s} }

// BoolValue builds a boolean metadata value.
func BoolValue(b bool) MetadataValue { return MetadataValue{Kind: MetadataBool, Bool: b} }

// StringListValue builds a string-list metadata value.
func StringListValue(l []string) MetadataValue {
	return MetadataValue{Kind: MetadataStringList, List: l}
}

// Anomaly flags a transaction that deviates from historical behavior.
// Severity is the normalized deviation magnitude, clamped to [0,1].
type Anomaly struct {
	DetectedAt  time.Time
	Metadata    map[string]MetadataValue
	ID          string
	Type        AnomalyType
	Description string
	Merchant    string
	Category    string
	Amount      decimal.Decimal
	Severity    float64
}
