package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"ledgerpulse/internal/core/types"
	"ledgerpulse/internal/domain/ledger"
)

var hundred = decimal.NewFromInt(100)

// BuildProfitReport folds a set of entries into the accrual-basis view.
// Pure function: no I/O, no mutation of the input.
func BuildProfitReport(entries []ledger.Entry) ProfitReport {
	report := ProfitReport{
		Revenue:           types.Zero(),
		COGS:              types.Zero(),
		OperatingExpenses: types.Zero(),
	}

	for i := range entries {
		e := &entries[i]
		if !ledger.CountsForAccrual(e) {
			continue
		}

		switch e.Category {
		case ledger.CategorySales:
			report.Revenue = report.Revenue.Add(e.Amount)
		case ledger.CategoryCOGS:
			report.COGS = report.COGS.Add(e.Amount)
		case ledger.CategoryOpex:
			report.OperatingExpenses = report.OperatingExpenses.Add(e.Amount)
		}
	}

	report.GrossProfit = report.Revenue.Sub(report.COGS)
	report.NetProfit = report.GrossProfit.Sub(report.OperatingExpenses)
	report.GrossMargin = marginPercent(report.GrossProfit, report.Revenue)
	report.NetMargin = marginPercent(report.NetProfit, report.Revenue)
	report.ExpenseBreakdown = expenseBreakdown(report.COGS, report.OperatingExpenses)

	return report
}

// marginPercent computes part/whole as a percentage with 2 decimal
// places, defined as 0 when the whole is not positive.
func marginPercent(part, whole types.Money) types.Money {
	if !whole.IsPositive() {
		return types.Zero()
	}
	return part.Mul(hundred).DivRound(whole, 2)
}

// expenseBreakdown ranks expense categories by their share of total
// COGS+Opex.
func expenseBreakdown(cogs, opex types.Money) []ExpenseShare {
	total := cogs.Add(opex)

	shares := []ExpenseShare{
		{Category: ledger.CategoryCOGS, Amount: cogs, Share: marginPercent(cogs, total)},
		{Category: ledger.CategoryOpex, Amount: opex, Share: marginPercent(opex, total)},
	}

	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].Amount.GreaterThan(shares[j].Amount)
	})

	return shares
}
