package treasury

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func TestCalculateAllocation_NationalTenPercent(t *testing.T) {
	totals := ReportTotals{
		Diezmos:  d(10_000_000),
		Ofrendas: d(1_000_000),
		Misiones: d(50_000),
	}

	alloc := CalculateAllocation(totals)

	require.Len(t, alloc.Entries, 2)
	assert.Equal(t, CategoryFondoNacional, alloc.Entries[0].Category)
	assert.True(t, alloc.Entries[0].Amount.Equal(d(1_100_000)),
		"expected 1,100,000 got %s", alloc.Entries[0].Amount)
	assert.Equal(t, CategoryMisiones, alloc.Entries[1].Category)
	assert.True(t, alloc.Entries[1].Amount.Equal(d(50_000)))
	assert.True(t, alloc.TotalAllocated().Equal(d(1_150_000)))
}

func TestCalculateAllocation_ZeroAmountsExcluded(t *testing.T) {
	totals := ReportTotals{
		Misiones: d(30_000),
		APY:      d(20_000),
	}

	alloc := CalculateAllocation(totals)

	// No congregational income, so no fondo nacional entry.
	require.Len(t, alloc.Entries, 2)
	assert.Equal(t, CategoryMisiones, alloc.Entries[0].Category)
	assert.Equal(t, CategoryAPY, alloc.Entries[1].Category)
}

func TestCalculateAllocation_OrderIsFixed(t *testing.T) {
	totals := ReportTotals{
		Diezmos:          d(1_000_000),
		Misiones:         d(10),
		LazosAmor:        d(20),
		MisionPosible:    d(30),
		APY:              d(40),
		InstitutoBiblico: d(50),
		DiezmoPastoral:   d(60),
	}

	alloc := CalculateAllocation(totals)

	want := []AllocationCategory{
		CategoryFondoNacional,
		CategoryMisiones,
		CategoryLazosAmor,
		CategoryMisionPosible,
		CategoryAPY,
		CategoryInstitutoBiblico,
		CategoryDiezmoPastoral,
	}
	require.Len(t, alloc.Entries, len(want))
	for i, cat := range want {
		assert.Equal(t, cat, alloc.Entries[i].Category)
	}
}

func TestCalculateAllocation_Residual(t *testing.T) {
	t.Run("positive residual", func(t *testing.T) {
		totals := ReportTotals{
			Diezmos:          d(2_000_000),
			Ofrendas:         d(500_000),
			Misiones:         d(100_000),
			EnergiaElectrica: d(150_000),
			Agua:             d(50_000),
		}

		alloc := CalculateAllocation(totals)

		// income 2,600,000 - designated 100,000 - expenses 200,000 - 10% 250,000
		assert.True(t, alloc.ResidualPastoral.Equal(d(2_050_000)),
			"got %s", alloc.ResidualPastoral)
		assert.False(t, alloc.ResidualClamped)
	})

	t.Run("negative residual clamps to zero", func(t *testing.T) {
		totals := ReportTotals{
			Diezmos:     d(100_000),
			OtrosGastos: d(500_000),
		}

		alloc := CalculateAllocation(totals)

		assert.True(t, alloc.ResidualPastoral.IsZero())
		assert.True(t, alloc.ResidualClamped)
	})
}

func TestCalculateAllocation_RoundingHalfUp(t *testing.T) {
	totals := ReportTotals{
		Diezmos:  decimal.NewFromFloat(333.35),
		Ofrendas: decimal.Zero,
	}

	alloc := CalculateAllocation(totals)

	require.Len(t, alloc.Entries, 1)
	// 10% of 333.35 = 33.335 rounds to 33.34
	assert.True(t, alloc.Entries[0].Amount.Equal(decimal.NewFromFloat(33.34)),
		"got %s", alloc.Entries[0].Amount)
}

func TestReportTotals_TotalIncome(t *testing.T) {
	totals := ReportTotals{
		Diezmos:    d(100),
		Ofrendas:   d(200),
		Anexos:     d(10),
		Otros:      d(5),
		Misiones:   d(50),
		Caballeros: d(25),
		// Expenses must not count as income.
		Agua: d(1_000),
	}

	assert.True(t, totals.TotalIncome().Equal(d(390)))
	assert.True(t, totals.TotalExpenses().Equal(d(1_000)))
}
