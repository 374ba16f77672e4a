package mockapi

import "time"

// DefaultFixture is the fixed data set the mock server starts with.
func DefaultFixture() Fixture {
	base := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	return Fixture{
		Accounts: []Account{
			{ID: "acc-1", Name: "Main", Broker: "IBKR", Currency: "USD", Balance: 25000, CreatedAt: base, UpdatedAt: base},
			{ID: "acc-2", Name: "Swing", Broker: "Saxo", Currency: "EUR", Balance: 12000, CreatedAt: base, UpdatedAt: base},
		},
		Reservations: []Reservation{
			{ID: "res-1", AccountID: "acc-1", Symbol: "EURUSD", Side: "buy", Quantity: 10000, Price: 1.0825, Status: StatusPending, CreatedAt: base, UpdatedAt: base},
			{ID: "res-2", AccountID: "acc-2", Symbol: "DAX", Side: "sell", Quantity: 1, Price: 18250, Status: StatusArmed, CreatedAt: base, UpdatedAt: base},
		},
		Events: []EconomicEvent{
			{ID: "evt-1", Title: "Non-Farm Payrolls", Country: "US", Importance: "high", ScheduledAt: base.Add(4*24*time.Hour + 5*time.Hour + 30*time.Minute), Forecast: "180K", Previous: "199K"},
			{ID: "evt-2", Title: "ECB Rate Decision", Country: "EU", Importance: "high", ScheduledAt: base.Add(3*24*time.Hour + 5*time.Hour + 15*time.Minute), Forecast: "4.50%", Previous: "4.50%"},
			{ID: "evt-3", Title: "Retail Sales m/m", Country: "GB", Importance: "medium", ScheduledAt: base.Add(2 * 24 * time.Hour), Forecast: "0.2%", Previous: "-0.3%"},
			{ID: "evt-4", Title: "Tankan Survey", Country: "JP", Importance: "low", ScheduledAt: base.Add(24 * time.Hour)},
		},
	}
}
