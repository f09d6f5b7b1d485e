package insights

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harishnv/smartspend/internal/model"
)

const (
	// zScoreThreshold is the deviation above which an expense counts as an
	// unusual amount for its category.
	zScoreThreshold = 2.0
	// flatRatioThreshold applies when category history is flat (near-zero
	// deviation): flag when the amount exceeds this multiple of the mean.
	flatRatioThreshold = 2.0
	// minCategoryHistory is the number of other expenses a category needs
	// before amount anomalies are evaluated at all.
	minCategoryHistory = 3
	// newMerchantFloor is the minimum amount for a first-time merchant to be
	// worth flagging. Small first purchases are routine, not anomalous.
	newMerchantFloor = 1000
	// severityDivisor normalizes a z-score into the [0,1] severity scale.
	severityDivisor = 6.0

	epsilon = 1e-9
)

// detectAnomalies scans expenses for amounts that deviate from their
// category's history and for large first-time merchants. Severity grows
// monotonically with deviation and is clamped to [0,1]. A dataset where
// every amount equals its category mean produces no amount anomalies.
func detectAnomalies(transactions []model.Transaction, now time.Time) []model.Anomaly {
	byCategory := make(map[string][]float64)
	merchantCount := make(map[string]int)

	for _, txn := range transactions {
		if txn.Direction != model.DirectionExpense {
			continue
		}
		amount, _ := txn.Amount.Float64()
		byCategory[txn.Category] = append(byCategory[txn.Category], amount)
		if txn.Merchant != "" {
			merchantCount[txn.Merchant]++
		}
	}

	floor := decimal.NewFromInt(newMerchantFloor)
	var anomalies []model.Anomaly

	for _, txn := range transactions {
		if txn.Direction != model.DirectionExpense {
			continue
		}

		if a := amountAnomaly(&txn, byCategory[txn.Category], now); a != nil {
			anomalies = append(anomalies, *a)
		}

		if txn.Merchant != "" && merchantCount[txn.Merchant] == 1 && txn.Amount.GreaterThanOrEqual(floor) {
			amount, _ := txn.Amount.Float64()
			anomalies = append(anomalies, model.Anomaly{
				ID:          uuid.NewString(),
				Type:        model.AnomalyUnusualMerchant,
				Description: fmt.Sprintf("First transaction with %s for %s", txn.Merchant, txn.Amount.StringFixed(2)),
				Merchant:    txn.Merchant,
				Category:    txn.Category,
				Amount:      txn.Amount,
				Severity:    0.4,
				DetectedAt:  now,
				Metadata: map[string]model.MetadataValue{
					"first_seen": model.BoolValue(true),
					"amount":     model.NumberValue(amount),
				},
			})
		}
	}

	return anomalies
}

// amountAnomaly evaluates one expense against its category history using
// leave-one-out statistics, so the candidate never dilutes its own baseline.
func amountAnomaly(txn *model.Transaction, categoryAmounts []float64, now time.Time) *model.Anomaly {
	if len(categoryAmounts) < minCategoryHistory+1 {
		return nil
	}

	amount, _ := txn.Amount.Float64()
	mean, stddev := leaveOneOut(categoryAmounts, amount)

	var severity float64
	var score float64
	if stddev < epsilon {
		// Flat history: every other amount is (near) identical.
		if mean < epsilon {
			return nil
		}
		ratio := math.Abs(amount-mean) / mean
		if ratio <= flatRatioThreshold {
			return nil
		}
		score = ratio
		severity = clamp01(ratio / 10)
	} else {
		z := math.Abs(amount-mean) / stddev
		if z <= zScoreThreshold {
			return nil
		}
		score = z
		severity = clamp01(z / severityDivisor)
	}

	return &model.Anomaly{
		ID:   uuid.NewString(),
		Type: model.AnomalyUnusualAmount,
		Description: fmt.Sprintf("%s expense of %s deviates from the category average of %.2f",
			txn.Category, txn.Amount.StringFixed(2), mean),
		Merchant:   txn.Merchant,
		Category:   txn.Category,
		Amount:     txn.Amount,
		Severity:   severity,
		DetectedAt: now,
		Metadata: map[string]model.MetadataValue{
			"category_mean": model.NumberValue(mean),
			"deviation":     model.NumberValue(score),
		},
	}
}

// leaveOneOut computes mean and standard deviation of the amounts with one
// occurrence of the candidate value removed.
func leaveOneOut(amounts []float64, candidate float64) (mean, stddev float64) {
	rest := make([]float64, 0, len(amounts)-1)
	skipped := false
	for _, a := range amounts {
		if !skipped && math.Abs(a-candidate) < epsilon {
			skipped = true
			continue
		}
		rest = append(rest, a)
	}
	if len(rest) == 0 {
		return candidate, 0
	}

	var sum float64
	for _, a := range rest {
		sum += a
	}
	mean = sum / float64(len(rest))

	var variance float64
	for _, a := range rest {
		variance += (a - mean) * (a - mean)
	}
	variance /= float64(len(rest))

	return mean, math.Sqrt(variance)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
