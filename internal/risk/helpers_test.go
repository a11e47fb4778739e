package risk

import (
	"brokerageProject/internal/catalog"
	"brokerageProject/internal/money"
)

type fakeCatalog struct {
	products map[string]catalog.Product
}

func newFakeCatalog(products ...catalog.Product) *fakeCatalog {
	c := &fakeCatalog{products: make(map[string]catalog.Product)}
	for _, p := range products {
		c.products[p.Symbol] = p
	}
	return c
}

func (c *fakeCatalog) Get(symbol string) (catalog.Product, bool) {
	p, ok := c.products[symbol]
	return p, ok
}

func (c *fakeCatalog) All() []catalog.Product {
	out := make([]catalog.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	return out
}

func btcPerp(markPrice float64) catalog.Product {
	return catalog.Product{
		Symbol:         "BTC-PERP",
		Category:       "perpetual",
		QuoteCurrency:  "USDT",
		ExternalSymbol: "BTCUSDT",
		TickSize:       money.MustFromFloat(0.01),
		MinOrderSize:   0.001,
		MaxOrderSize:   100,
		MarginRate:     0.1,
		MakerFee:       0.0002,
		TakerFee:       0.0005,
		MarkPrice:      money.MustFromFloat(markPrice),
		LastPrice:      money.MustFromFloat(markPrice),
		IsActive:       true,
	}
}

func usdMnt(markPrice float64) catalog.Product {
	return catalog.Product{
		Symbol:        "USD-MNT",
		Category:      "fx",
		QuoteCurrency: "MNT",
		TickSize:      money.MustFromFloat(1),
		MinOrderSize:  1,
		MaxOrderSize:  1_000_000,
		MarginRate:    0.02,
		MarkPrice:     money.MustFromFloat(markPrice),
		LastPrice:     money.MustFromFloat(markPrice),
		IsActive:      true,
	}
}
