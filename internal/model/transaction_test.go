package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDedupKey_StableUnderNormalization(t *testing.T) {
	at := time.Date(2026, 3, 12, 10, 30, 15, 0, time.UTC)

	base := RawMessage{Sender: "AD-ICICIB", Body: "Rs 500 debited from A/c XX1234", ReceivedAt: at}

	variants := []RawMessage{
		{Sender: "ad-icicib", Body: "Rs 500 debited from A/c XX1234", ReceivedAt: at},
		{Sender: " AD-ICICIB ", Body: "Rs  500   debited\nfrom A/c XX1234", ReceivedAt: at},
		// Same minute, different seconds.
		{Sender: "AD-ICICIB", Body: "Rs 500 debited from A/c XX1234", ReceivedAt: at.Add(40 * time.Second)},
	}

	for i, v := range variants {
		assert.Equal(t, base.DedupKey(), v.DedupKey(), "variant %d", i)
	}
}

func TestDedupKey_Distinguishes(t *testing.T) {
	at := time.Date(2026, 3, 12, 10, 30, 0, 0, time.UTC)
	base := RawMessage{Sender: "AD-ICICIB", Body: "Rs 500 debited", ReceivedAt: at}

	differentBody := RawMessage{Sender: "AD-ICICIB", Body: "Rs 501 debited", ReceivedAt: at}
	differentSender := RawMessage{Sender: "VM-HDFCBK", Body: "Rs 500 debited", ReceivedAt: at}
	differentMinute := RawMessage{Sender: "AD-ICICIB", Body: "Rs 500 debited", ReceivedAt: at.Add(time.Minute)}

	assert.NotEqual(t, base.DedupKey(), differentBody.DedupKey())
	assert.NotEqual(t, base.DedupKey(), differentSender.DedupKey())
	assert.NotEqual(t, base.DedupKey(), differentMinute.DedupKey())
}

func TestParseDirection(t *testing.T) {
	assert.Equal(t, DirectionIncome, ParseDirection("income"))
	assert.Equal(t, DirectionIncome, ParseDirection(" INCOME "))
	assert.Equal(t, DirectionExpense, ParseDirection("expense"))
	assert.Equal(t, DirectionExpense, ParseDirection("garbage"))
	assert.Equal(t, DirectionExpense, ParseDirection(""))
}
