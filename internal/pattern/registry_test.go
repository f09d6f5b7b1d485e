package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harishnv/smartspend/internal/model"
)

func TestNewRegistry_RejectsEmptySenderMatcher(t *testing.T) {
	_, err := NewRegistry([]model.BankPattern{{Name: "nameless"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty sender matcher")
}

func TestNewRegistry_RejectsInvalidRegex(t *testing.T) {
	_, err := NewRegistry([]model.BankPattern{{Name: "broken", SenderMatch: "(["}})
	require.Error(t, err)
}

func TestFind(t *testing.T) {
	registry, err := NewRegistry(DefaultPatterns())
	require.NoError(t, err)

	tests := []struct {
		name   string
		sender string
		want   string
	}{
		{"exact token", "ICICI", "ICICI Bank"},
		{"sender prefix noise", "AD-ICICIB", "ICICI Bank"},
		{"case insensitive", "vm-hdfcbk", "HDFC Bank"},
		{"sbi alias", "BZ-SBIN", "State Bank of India"},
		{"paytm alias", "PYTM-T", "Paytm Payments Bank"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := registry.Find(tt.sender)
			require.NotNil(t, p)
			assert.Equal(t, tt.want, p.Name)
		})
	}
}

func TestFind_UnknownSenderIsNil(t *testing.T) {
	registry, err := NewRegistry(DefaultPatterns())
	require.NoError(t, err)

	assert.Nil(t, registry.Find("VK-PIZZAHT"))
	assert.Nil(t, registry.Find(""))
}

func TestFindByName(t *testing.T) {
	registry, err := NewRegistry(DefaultPatterns())
	require.NoError(t, err)

	p := registry.FindByName("Paytm Payments Bank")
	require.NotNil(t, p)
	assert.Contains(t, p.CreditKeywords, "cashback")

	assert.Nil(t, registry.FindByName("Unknown Bank"))
	assert.Nil(t, registry.FindByName(""))
}

func TestFind_FirstMatchWins(t *testing.T) {
	registry, err := NewRegistry([]model.BankPattern{
		{Name: "first", SenderMatch: "BANK"},
		{Name: "second", SenderMatch: "BANKX"},
	})
	require.NoError(t, err)

	p := registry.Find("BANKX")
	require.NotNil(t, p)
	assert.Equal(t, "first", p.Name)
}

func TestDefaultPatterns_AllValid(t *testing.T) {
	patterns := DefaultPatterns()
	require.NotEmpty(t, patterns)

	for _, p := range patterns {
		assert.True(t, p.Valid(), "pattern %q", p.Name)
		assert.NotEmpty(t, p.DebitKeywords, "pattern %q", p.Name)
		assert.NotEmpty(t, p.CreditKeywords, "pattern %q", p.Name)
	}

	registry, err := NewRegistry(patterns)
	require.NoError(t, err)
	assert.Equal(t, len(patterns), registry.Len())
}
