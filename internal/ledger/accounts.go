package ledger

import "fmt"

// Chart-of-accounts helpers. Account names are plain colon-separated paths,
// mirroring the original ledger_writer's Ledger-CLI-style accounts.

// CustomerBalance is the liability account holding a customer's free cash.
func CustomerBalance(user string) string {
	return fmt.Sprintf("Liabilities:Customer:%s:Balance", user)
}

// CustomerMargin is the liability account holding a customer's locked margin.
func CustomerMargin(user string) string {
	return fmt.Sprintf("Liabilities:Customer:%s:Margin", user)
}

// CustomerCommodityBalance is the liability account holding a customer's
// free balance of a specific commodity, used by spot settlement where each
// side of a trade moves a different commodity rather than a shared "QUOTE".
func CustomerCommodityBalance(user, commodity string) string {
	return fmt.Sprintf("Liabilities:Customer:%s:Balance:%s", user, commodity)
}

const (
	AssetBank           = "Assets:Exchange:Bank"
	AssetTradingPnL     = "Assets:Exchange:Trading"
	AssetInsuranceFund  = "Assets:Exchange:InsuranceFund"
	AssetHedgeCash      = "Assets:Exchange:Hedge:Cash"
	AssetHedgePositions = "Assets:Exchange:Hedge:Positions"

	RevenueTradingFees      = "Revenue:Trading:Fees"
	RevenueTradingSpread    = "Revenue:Trading:Spread"
	RevenueTradingCustLoss  = "Revenue:Trading:CustomerLoss"
	RevenueTradingADL       = "Revenue:Trading:ADL"
	RevenueHedgingRealized  = "Revenue:Hedging:Realized"

	ExpenseTradingPayout   = "Expenses:Trading:CustomerPayout"
	ExpenseInsuranceLiq    = "Expenses:Insurance:Liquidation"
	ExpenseHedgingRealized = "Expenses:Hedging:Realized"

	EquityOpening  = "Equity:Opening"
	EquityRetained = "Equity:Retained"
)

// RevenueFunding is the exchange-side funding account for symbol that
// ProcessFunding posts to when customers net received funding (the exchange
// is the net payer).
func RevenueFunding(symbol string) string {
	return fmt.Sprintf("Revenue:Funding:%s", symbol)
}

// ExpenseFunding is the exchange-side funding account for symbol that
// ProcessFunding posts to when customers net paid funding (the exchange is
// the net receiver).
func ExpenseFunding(symbol string) string {
	return fmt.Sprintf("Expenses:Funding:%s", symbol)
}
