package export

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/louisbranch/tracengine/compute"
)

func TestSummaryStatsSkipsMetadataAndStrings(t *testing.T) {
	table := compute.NewTable("value", "label", "__run__")
	table.AddRow(1.0, "a", "run-001")
	table.AddRow(2.0, "b", "run-002")
	table.AddRow(3.0, "c", "run-003")

	summary := SummaryStats(table)
	assert.Equal(t, []string{"column", "mean", "std", "min", "max", "median", "count"}, summary.Columns)
	require.Len(t, summary.Rows, 1)

	row := summary.Rows[0]
	assert.Equal(t, "value", row[0])
	assert.InDelta(t, 2.0, row[1].(float64), 1e-12)
	assert.InDelta(t, 1.0, row[2].(float64), 1e-12) // sample std of 1,2,3
	assert.Equal(t, 1.0, row[3])
	assert.Equal(t, 3.0, row[4])
	assert.Equal(t, 2.0, row[5])
	assert.Equal(t, 3, row[6])
}

func TestSummaryStatsIgnoresMissingCells(t *testing.T) {
	table := compute.NewTable("value")
	table.AddRow(1.0)
	table.AddRow(math.NaN())
	table.AddRow(nil)
	table.AddRow(5.0)

	summary := SummaryStats(table)
	require.Len(t, summary.Rows, 1)

	row := summary.Rows[0]
	assert.InDelta(t, 3.0, row[1].(float64), 1e-12)
	assert.Equal(t, 1.0, row[3])
	assert.Equal(t, 5.0, row[4])
	assert.Equal(t, 2, row[6], "count excludes NaN and nil cells")
}

func TestSummaryStatsMixedColumnExcluded(t *testing.T) {
	table := compute.NewTable("mixed")
	table.AddRow(1.0)
	table.AddRow("oops")

	summary := SummaryStats(table)
	assert.Empty(t, summary.Rows)
}

func TestSummaryStatsSingleSampleStd(t *testing.T) {
	table := compute.NewTable("value")
	table.AddRow(4.0)

	summary := SummaryStats(table)
	require.Len(t, summary.Rows, 1)
	assert.True(t, math.IsNaN(summary.Rows[0][2].(float64)), "std needs two samples")
	assert.Equal(t, 4.0, summary.Rows[0][5])
}

func TestSummaryStatsNilAndEmpty(t *testing.T) {
	assert.Empty(t, SummaryStats(nil).Rows)
	assert.Empty(t, SummaryStats(compute.NewTable("value")).Rows)
}
