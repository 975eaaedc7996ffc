// Package fare prices a ticket from a route base fare and a ticket class.
package fare

import (
	"github.com/Domenick1991/smartticket/internal/domain"
	"github.com/shopspring/decimal"
)

var multipliers = map[domain.TicketClass]decimal.Decimal{
	domain.TicketClassEconomy:  decimal.NewFromInt(1),
	domain.TicketClassBusiness: decimal.RequireFromString("1.5"),
	domain.TicketClassPremium:  decimal.NewFromInt(2),
}

// Multiplier returns the factor for class. Unknown classes price as economy;
// callers that must reject them validate the class first.
func Multiplier(class domain.TicketClass) decimal.Decimal {
	if m, ok := multipliers[class]; ok {
		return m
	}
	return decimal.NewFromInt(1)
}

// Price returns base * Multiplier(class).
func Price(base decimal.Decimal, class domain.TicketClass) decimal.Decimal {
	return base.Mul(Multiplier(class))
}
