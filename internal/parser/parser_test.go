package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eugenenazirov/code-allocator/internal/allocator"
)

func TestParse_SupportedLineFormats(t *testing.T) {
	input := strings.Join([]string{
		"X9D5YZT5787Y57PG    ¥50,000",
		"XAAAAAAAAAAAAAA1¥30,000",
		"xbbbbbbbbbbbbbb2 20000",
		"XCCCCCCCCCCCCCC3 - balance: 10,500 yen",
	}, "\r\n")

	result := Parse(input)

	require.Len(t, result.Lines, 4)
	assert.Equal(t, 4, result.ValidCount)
	assert.Equal(t, 0, result.InvalidCount)
	assert.Equal(t, 110_500, result.TotalAmount)
	assert.Equal(t, []allocator.Item{
		{Code: "X9D5YZT5787Y57PG", Amount: 50_000},
		{Code: "XAAAAAAAAAAAAAA1", Amount: 30_000},
		{Code: "XBBBBBBBBBBBBBB2", Amount: 20_000},
		{Code: "XCCCCCCCCCCCCCC3", Amount: 10_500},
	}, result.Items)
	for i, line := range result.Lines {
		assert.Equal(t, i+1, line.Number)
		assert.True(t, line.Valid)
		assert.Empty(t, line.Error)
	}
}

func TestParse_SplitsSingleLinePaste(t *testing.T) {
	input := "X9D5YZT5787Y57PG ¥50,000 XAAAAAAAAAAAAAA1 ¥30,000 XBBBBBBBBBBBBBB2 ¥20,000"

	result := Parse(input)

	require.Len(t, result.Items, 3)
	assert.Equal(t, "XAAAAAAAAAAAAAA1", result.Items[1].Code)
	assert.Equal(t, 100_000, result.TotalAmount)
}

func TestParse_FlagsDuplicates(t *testing.T) {
	input := "X9D5YZT5787Y57PG ¥50,000\nX9D5YZT5787Y57PG ¥40,000\n\n\nXAAAAAAAAAAAAAA1 ¥30,000"

	result := Parse(input)

	require.Len(t, result.Lines, 3)
	assert.Equal(t, 1, result.DuplicateCount)
	assert.Equal(t, 2, result.ValidCount)
	assert.Equal(t, 1, result.InvalidCount)
	assert.False(t, result.Lines[1].Valid)
	assert.Equal(t, errDuplicateCode, result.Lines[1].Error)
	assert.Equal(t, 80_000, result.TotalAmount)
}

func TestParse_RejectsInvalidAmounts(t *testing.T) {
	input := "X9D5YZT5787Y57PG ¥0\nXAAAAAAAAAAAAAA1 ¥250,000\nXBBBBBBBBBBBBBB2 ¥99999999999999999999999"

	result := Parse(input)

	require.Len(t, result.Lines, 3)
	assert.Equal(t, 0, result.ValidCount)
	for _, line := range result.Lines {
		assert.False(t, line.Valid)
		assert.Equal(t, errInvalidAmount, line.Error)
	}
	assert.Equal(t, 250_000, result.Lines[1].Amount)
	assert.Equal(t, 0, result.Lines[2].Amount)
	assert.Empty(t, result.Items)
}

func TestParse_MaxAmountOption(t *testing.T) {
	result := Parse("XAAAAAAAAAAAAAA1 ¥250,000", WithMaxAmount(300_000))

	require.Len(t, result.Items, 1)
	assert.Equal(t, 250_000, result.Items[0].Amount)
}

func TestParse_UnrecognisedLine(t *testing.T) {
	long := "this line carries no gift code at all and keeps going well past fifty characters"

	result := Parse("short\n" + long)

	require.Len(t, result.Lines, 2)
	assert.Equal(t, errUnrecognised+": short", result.Lines[0].Error)
	assert.True(t, strings.HasSuffix(result.Lines[1].Error, "..."))
	assert.Equal(t, 2, result.InvalidCount)
}

func TestParse_EmptyInput(t *testing.T) {
	result := Parse("   \r\n  ")

	assert.NotNil(t, result.Lines)
	assert.NotNil(t, result.Items)
	assert.Empty(t, result.Lines)
	assert.Zero(t, result.TotalAmount)
}
