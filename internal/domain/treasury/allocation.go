package treasury

import "github.com/shopspring/decimal"

// AllocationCategory names a national destination fund for a posted amount
type AllocationCategory string

const (
	CategoryFondoNacional    AllocationCategory = "fondo_nacional"
	CategoryMisiones         AllocationCategory = "misiones"
	CategoryLazosAmor        AllocationCategory = "lazos_amor"
	CategoryMisionPosible    AllocationCategory = "mision_posible"
	CategoryAPY              AllocationCategory = "apy"
	CategoryInstitutoBiblico AllocationCategory = "instituto_biblico"
	CategoryDiezmoPastoral   AllocationCategory = "diezmo_pastoral"
)

// FundName returns the display name of the category's destination fund
func (c AllocationCategory) FundName() string {
	switch c {
	case CategoryFondoNacional:
		return "Fondo Nacional"
	case CategoryMisiones:
		return "Misiones"
	case CategoryLazosAmor:
		return "Lazos de Amor"
	case CategoryMisionPosible:
		return "Mision Posible"
	case CategoryAPY:
		return "APY"
	case CategoryInstitutoBiblico:
		return "Instituto Biblico"
	case CategoryDiezmoPastoral:
		return "Diezmo Pastoral"
	}
	return string(c)
}

// fondoNacionalRate is the fixed national share of congregational income
var fondoNacionalRate = decimal.NewFromFloat(0.10)

// ReportTotals are the category totals of one monthly report, the sole input
// of the allocation calculation.
type ReportTotals struct {
	// Congregational income
	Diezmos  decimal.Decimal
	Ofrendas decimal.Decimal
	Anexos   decimal.Decimal
	Otros    decimal.Decimal

	// Designated offerings remitted in full to national funds
	Misiones         decimal.Decimal
	LazosAmor        decimal.Decimal
	MisionPosible    decimal.Decimal
	APY              decimal.Decimal
	InstitutoBiblico decimal.Decimal
	DiezmoPastoral   decimal.Decimal

	// Designated offerings that stay local
	Caballeros decimal.Decimal
	Damas      decimal.Decimal
	Jovenes    decimal.Decimal
	Ninos      decimal.Decimal

	// Operating expenses
	EnergiaElectrica  decimal.Decimal
	Agua              decimal.Decimal
	RecoleccionBasura decimal.Decimal
	OtrosGastos       decimal.Decimal
}

// TotalIncome sums every income category
func (t ReportTotals) TotalIncome() decimal.Decimal {
	return t.Diezmos.Add(t.Ofrendas).Add(t.Anexos).Add(t.Otros).
		Add(t.Misiones).Add(t.LazosAmor).Add(t.MisionPosible).
		Add(t.APY).Add(t.InstitutoBiblico).Add(t.DiezmoPastoral).
		Add(t.Caballeros).Add(t.Damas).Add(t.Jovenes).Add(t.Ninos)
}

// TotalExpenses sums the operating expense categories
func (t ReportTotals) TotalExpenses() decimal.Decimal {
	return t.EnergiaElectrica.Add(t.Agua).Add(t.RecoleccionBasura).Add(t.OtrosGastos)
}

// nationalDesignatedTotal sums the categories remitted 100% to national funds
func (t ReportTotals) nationalDesignatedTotal() decimal.Decimal {
	return t.Misiones.Add(t.LazosAmor).Add(t.MisionPosible).
		Add(t.APY).Add(t.InstitutoBiblico).Add(t.DiezmoPastoral)
}

// AllocationEntry is one posting destination with its amount
type AllocationEntry struct {
	Category AllocationCategory
	Amount   decimal.Decimal
}

// Allocation is the computed national distribution for one report.
// Entries is ordered (fondo nacional first, then designated categories in
// declaration order) and never contains zero amounts.
type Allocation struct {
	Entries []AllocationEntry
	// ResidualPastoral is the pastoral compensation left after remittances
	// and operating expenses, clamped at zero.
	ResidualPastoral decimal.Decimal
	// ResidualClamped is set when the raw residual was negative. The caller
	// treats it as a data-quality warning, never as an error.
	ResidualClamped bool
}

// TotalAllocated sums all entry amounts
func (a Allocation) TotalAllocated() decimal.Decimal {
	total := decimal.Zero
	for _, e := range a.Entries {
		total = total.Add(e.Amount)
	}
	return total
}

// CalculateAllocation computes the national-fund distribution for a report's
// totals. Pure function, no I/O:
//
//   - fondo nacional receives 10% of tithes plus regular offerings, rounded
//     to two places.
//   - each nationally designated category contributes its full declared
//     amount, each to its own destination fund.
//   - everything else stays local; the residual is the pastoral compensation.
func CalculateAllocation(t ReportTotals) Allocation {
	fondoNacional := t.Diezmos.Add(t.Ofrendas).Mul(fondoNacionalRate).Round(2)

	ordered := []AllocationEntry{
		{Category: CategoryFondoNacional, Amount: fondoNacional},
		{Category: CategoryMisiones, Amount: t.Misiones},
		{Category: CategoryLazosAmor, Amount: t.LazosAmor},
		{Category: CategoryMisionPosible, Amount: t.MisionPosible},
		{Category: CategoryAPY, Amount: t.APY},
		{Category: CategoryInstitutoBiblico, Amount: t.InstitutoBiblico},
		{Category: CategoryDiezmoPastoral, Amount: t.DiezmoPastoral},
	}

	entries := make([]AllocationEntry, 0, len(ordered))
	for _, e := range ordered {
		if e.Amount.IsPositive() {
			entries = append(entries, e)
		}
	}

	residual := t.TotalIncome().
		Sub(t.nationalDesignatedTotal()).
		Sub(t.TotalExpenses()).
		Sub(fondoNacional)

	clamped := false
	if residual.IsNegative() {
		residual = decimal.Zero
		clamped = true
	}

	return Allocation{
		Entries:          entries,
		ResidualPastoral: residual,
		ResidualClamped:  clamped,
	}
}
