package domain

// ZeroDecimalCurrencies are ISO 4217 currencies without a minor unit; their
// amounts pass through as whole numbers. The set is overridable through
// configuration for partners that treat further currencies this way.
var ZeroDecimalCurrencies = map[string]bool{
	"JPY": true,
	"KRW": true,
	"VND": true,
	"CLP": true,
	"ISK": true,
	"UGX": true,
	"RWF": true,
	"XOF": true,
	"XAF": true,
}

// UnitPrice resolves the per-unit price of a category for the given quantity:
// the matching tier band when tiered pricing is configured, otherwise the
// flat category price. The boolean is false when no price is configured.
func UnitPrice(p Pricing, category PriceCategory, quantity int) (int64, bool) {
	if tiers, ok := p.TieredByCategory[category]; ok {
		for _, tier := range tiers {
			if quantity < tier.MinQuantity {
				continue
			}
			if tier.MaxQuantity > 0 && quantity > tier.MaxQuantity {
				continue
			}
			return tier.Price, true
		}
	}
	price, ok := p.ByCategory[category]
	return price, ok
}

// TotalPrice sums the price of all items. A GROUP item is priced per group,
// not per occupant. Items without a configured price contribute zero.
func TotalPrice(p Pricing, items []BookingItem) int64 {
	var total int64
	for _, it := range items {
		price, ok := UnitPrice(p, it.Category, it.Count)
		if !ok {
			continue
		}
		total += price * int64(it.Count)
	}
	return total
}

// MinorUnits converts an amount expressed in whole currency units into the
// canonical wire representation: minor units, except for zero-decimal
// currencies which pass through as whole numbers.
func MinorUnits(whole int64, currency string, zeroDecimal map[string]bool) int64 {
	if zeroDecimal == nil {
		zeroDecimal = ZeroDecimalCurrencies
	}
	if zeroDecimal[currency] {
		return whole
	}
	return whole * 100
}
