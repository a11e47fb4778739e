package position

import (
	"fmt"
	"sync"
	"time"

	"brokerageProject/internal/catalog"
	"brokerageProject/internal/config"
	"brokerageProject/internal/ledger"
	"brokerageProject/internal/money"
)

// Catalog is the subset of catalog.Catalog the position manager needs: mark
// price and margin rate lookups for a symbol, independent of the matching
// engine's own narrower Catalog interface.
type Catalog interface {
	Get(symbol string) (catalog.Product, bool)
	All() []catalog.Product
}

// Manager holds every account and position behind one lock (§5: "user
// accounts map and positions map: mutated under the position manager's
// lock; read paths take the same lock for a coherent snapshot"), grounded
// on the teacher's MarginService/LiquidationService state, made integer and
// in-memory-first with the ledger journal as the durable mirror.
type Manager struct {
	mu sync.Mutex

	catalog Catalog
	book    *ledger.Journal

	accounts  map[string]*UserAccount
	positions map[string]*Position
	exposures map[string]*ExchangeExposure

	insuranceFund money.Amount

	limits Limits
}

// Limits bundles the per-user/per-product caps §4.2 enforces before commit.
type Limits struct {
	MaxPositionPerUser        float64
	MaxNotionalPerUser        float64
	MaxOpenPositions          int
	MaxOpenInterestPerProduct float64
	InsuranceContributionRate float64
	FundingDampening          float64
	MaxFundingRate            float64
}

// DefaultLimits reads §6's enumerated risk parameters from the environment
// via internal/config, the configuration source the spec calls for.
func DefaultLimits() Limits {
	return Limits{
		MaxPositionPerUser:        config.MaxPositionPerUser(),
		MaxNotionalPerUser:        config.MaxNotionalPerUser(),
		MaxOpenPositions:          config.MaxOpenPositions(),
		MaxOpenInterestPerProduct: config.MaxOpenInterestPerProduct(),
		InsuranceContributionRate: config.InsuranceContributionRate(),
		FundingDampening:          config.FundingDampening(),
		MaxFundingRate:            config.MaxFundingRate(),
	}
}

// New constructs a Manager. book is the durable ledger every balance change
// must post through; insuranceFundOpening is the balance recovered from the
// ledger on restart (mirroring the original's "recover insurance fund
// balance from DB on restart").
func New(cat Catalog, book *ledger.Journal, limits Limits, insuranceFundOpening money.Amount) *Manager {
	return &Manager{
		catalog:       cat,
		book:          book,
		accounts:      make(map[string]*UserAccount),
		positions:     make(map[string]*Position),
		exposures:     make(map[string]*ExchangeExposure),
		insuranceFund: insuranceFundOpening,
		limits:        limits,
	}
}

// getOrCreateAccount returns (creating if absent) the account for user.
// Must be called under mu.
func (m *Manager) getOrCreateAccount(user string) *UserAccount {
	a, ok := m.accounts[user]
	if !ok {
		a = &UserAccount{UserID: user, IsActive: true}
		m.accounts[user] = a
	}
	return a
}

// GetOrCreateAccount is the public, locked form.
func (m *Manager) GetOrCreateAccount(user string) UserAccount {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.getOrCreateAccount(user)
}

// Deposit credits user's free balance and records the ledger posting
// (§4.3 "Deposit amount A for user U": DR Assets:Exchange:Bank +A, CR
// Liabilities:Customer:U:Balance -A).
func (m *Manager) Deposit(user string, amount money.Amount) error {
	if amount <= 0 {
		return fmt.Errorf("position: deposit amount must be positive")
	}
	m.mu.Lock()
	a := m.getOrCreateAccount(user)
	a.Balance = a.Balance.Add(amount)
	m.mu.Unlock()

	return m.book.Append(ledger.Transaction{
		ID:          fmt.Sprintf("deposit-%s-%d", user, time.Now().UnixNano()),
		Date:        time.Now(),
		Description: fmt.Sprintf("deposit %s for %s", amount, user),
		Category:    "deposits",
		Postings: []ledger.Posting{
			{Account: ledger.AssetBank, Amount: amount, Commodity: "QUOTE"},
			{Account: ledger.CustomerBalance(user), Amount: amount.Neg(), Commodity: "QUOTE"},
		},
	})
}

// Withdraw debits user's free balance, rejecting if it would go negative
// (§3 "balance ≥ 0 after any committed operation" except mid-liquidation).
func (m *Manager) Withdraw(user string, amount money.Amount) error {
	if amount <= 0 {
		return fmt.Errorf("position: withdraw amount must be positive")
	}
	m.mu.Lock()
	a := m.getOrCreateAccount(user)
	if a.Available().Cmp(amount) < 0 {
		m.mu.Unlock()
		return fmt.Errorf("position: insufficient available balance for %s", user)
	}
	a.Balance = a.Balance.Sub(amount)
	m.mu.Unlock()

	return m.book.Append(ledger.Transaction{
		ID:          fmt.Sprintf("withdraw-%s-%d", user, time.Now().UnixNano()),
		Date:        time.Now(),
		Description: fmt.Sprintf("withdraw %s for %s", amount, user),
		Category:    "deposits",
		Postings: []ledger.Posting{
			{Account: ledger.CustomerBalance(user), Amount: amount, Commodity: "QUOTE"},
			{Account: ledger.AssetBank, Amount: amount.Neg(), Commodity: "QUOTE"},
		},
	})
}

// GetBalance returns user's free balance.
func (m *Manager) GetBalance(user string) money.Amount {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrCreateAccount(user).Balance
}

// GetEquity returns user's equity (balance + unrealized PnL).
func (m *Manager) GetEquity(user string) money.Amount {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrCreateAccount(user).Equity()
}

// GetPosition returns a copy of the (user, symbol) position, if any.
func (m *Manager) GetPosition(user, symbol string) (Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[posKey(user, symbol)]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// GetAllPositions returns a copy of every open position for user.
func (m *Manager) GetAllPositions(user string) []Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Position
	for _, p := range m.positions {
		if p.UserID == user {
			out = append(out, *p)
		}
	}
	return out
}

// InsuranceFundBalance returns the current insurance fund balance.
func (m *Manager) InsuranceFundBalance() money.Amount {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insuranceFund
}

// ContributeToInsuranceFund adds amount to the fund directly (admin op or
// an external contribution), posting the matching ledger leg.
func (m *Manager) ContributeToInsuranceFund(amount money.Amount) error {
	if amount <= 0 {
		return fmt.Errorf("position: contribution must be positive")
	}
	m.mu.Lock()
	m.insuranceFund = m.insuranceFund.Add(amount)
	m.mu.Unlock()
	return m.book.Append(ledger.Transaction{
		ID:          fmt.Sprintf("insurance-contrib-%d", time.Now().UnixNano()),
		Date:        time.Now(),
		Description: "insurance fund contribution",
		Category:    "liquidations",
		Postings: []ledger.Posting{
			{Account: ledger.AssetInsuranceFund, Amount: amount, Commodity: "QUOTE"},
			{Account: ledger.EquityOpening, Amount: amount.Neg(), Commodity: "QUOTE"},
		},
	})
}
