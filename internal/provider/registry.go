package provider

import (
	"github.com/shopspring/decimal"
)

// DemoAccount is an in-registry stand-in for a real bank or mobile-money
// account. Balances are static fixtures; simulations never mutate them.
type DemoAccount struct {
	Number  string          `json:"number"`
	Holder  string          `json:"holder"`
	Type    string          `json:"type"`
	Balance decimal.Decimal `json:"balance"`
}

// Config describes one settlement provider. SwiftCode is descriptive
// metadata only, never used for routing.
type Config struct {
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	SwiftCode  string          `json:"swift_code,omitempty"`
	Currencies []string        `json:"currencies"`
	MinAmount  decimal.Decimal `json:"min_amount"`
	MaxAmount  decimal.Decimal `json:"max_amount"`
	FeeRate    decimal.Decimal `json:"fee_rate"`
	Settlement string          `json:"settlement"`
	Accounts   []DemoAccount   `json:"accounts,omitempty"`
}

func (c Config) FindAccount(number string) (DemoAccount, bool) {
	for _, a := range c.Accounts {
		if a.Number == number {
			return a, true
		}
	}
	return DemoAccount{}, false
}

// Registry is the immutable catalog of provider configurations, built once
// at startup and shared read-only across all requests.
type Registry struct {
	banks       map[string]Config
	mobile      map[string]Config
	bankOrder   []string
	mobileOrder []string
}

// NewRegistry returns the registry loaded with the stock Ethiopian bank and
// mobile-money fixtures.
func NewRegistry() *Registry {
	r := &Registry{
		banks:  make(map[string]Config),
		mobile: make(map[string]Config),
	}

	for _, cfg := range defaultBanks() {
		r.banks[cfg.Code] = cfg
		r.bankOrder = append(r.bankOrder, cfg.Code)
	}
	for _, cfg := range defaultMobileProviders() {
		r.mobile[cfg.Code] = cfg
		r.mobileOrder = append(r.mobileOrder, cfg.Code)
	}

	return r
}

// Bank looks up a bank provider by code. Unknown codes are not an error;
// callers turn the miss into a structured failure.
func (r *Registry) Bank(code string) (Config, bool) {
	cfg, ok := r.banks[code]
	return cfg, ok
}

func (r *Registry) Mobile(code string) (Config, bool) {
	cfg, ok := r.mobile[code]
	return cfg, ok
}

func (r *Registry) Banks() []Config {
	out := make([]Config, 0, len(r.bankOrder))
	for _, code := range r.bankOrder {
		out = append(out, r.banks[code])
	}
	return out
}

func (r *Registry) MobileProviders() []Config {
	out := make([]Config, 0, len(r.mobileOrder))
	for _, code := range r.mobileOrder {
		out = append(out, r.mobile[code])
	}
	return out
}

func etb(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func defaultBanks() []Config {
	return []Config{
		{
			Code:       "cbe",
			Name:       "Commercial Bank of Ethiopia",
			SwiftCode:  "CBETETAA",
			Currencies: []string{"ETB"},
			MinAmount:  etb("10"),
			MaxAmount:  etb("500000"),
			FeeRate:    etb("0.015"),
			Settlement: "T+1",
			Accounts: []DemoAccount{
				{Number: "1000123456789", Holder: "Abebe Bekele", Type: "savings", Balance: etb("50000")},
				{Number: "1000987654321", Holder: "Tigist Alemu", Type: "checking", Balance: etb("250000")},
				{Number: "1000555555555", Holder: "Green Valley Farms PLC", Type: "business", Balance: etb("1200.50")},
			},
		},
		{
			Code:       "awash",
			Name:       "Awash Bank",
			SwiftCode:  "AWINETAA",
			Currencies: []string{"ETB"},
			MinAmount:  etb("10"),
			MaxAmount:  etb("300000"),
			FeeRate:    etb("0.018"),
			Settlement: "T+1",
			Accounts: []DemoAccount{
				{Number: "0130123456789", Holder: "Mulu Haile", Type: "savings", Balance: etb("75000")},
				{Number: "0130987654321", Holder: "Selam Agro Traders", Type: "business", Balance: etb("430000")},
			},
		},
		{
			Code:       "dashen",
			Name:       "Dashen Bank",
			SwiftCode:  "DASHETAA",
			Currencies: []string{"ETB"},
			MinAmount:  etb("10"),
			MaxAmount:  etb("250000"),
			FeeRate:    etb("0.02"),
			Settlement: "T+0",
			Accounts: []DemoAccount{
				{Number: "5010123456789", Holder: "Yonas Tesfaye", Type: "savings", Balance: etb("18000")},
				{Number: "5010987654321", Holder: "Rift Valley Coffee Union", Type: "business", Balance: etb("890000")},
			},
		},
		{
			Code:       "abyssinia",
			Name:       "Bank of Abyssinia",
			SwiftCode:  "ABYSETAA",
			Currencies: []string{"ETB"},
			MinAmount:  etb("10"),
			MaxAmount:  etb("200000"),
			FeeRate:    etb("0.017"),
			Settlement: "T+1",
			Accounts: []DemoAccount{
				{Number: "2020123456789", Holder: "Hana Girma", Type: "savings", Balance: etb("32000")},
			},
		},
	}
}

func defaultMobileProviders() []Config {
	return []Config{
		{
			Code:       "telebirr",
			Name:       "Telebirr",
			Currencies: []string{"ETB"},
			MinAmount:  etb("5"),
			MaxAmount:  etb("10000"),
			FeeRate:    etb("0.01"),
			Settlement: "T+0",
			Accounts: []DemoAccount{
				{Number: "+251911123456", Holder: "Abebe Bekele", Type: "wallet", Balance: etb("8000")},
				{Number: "+251911987654", Holder: "Tigist Alemu", Type: "wallet", Balance: etb("45000")},
			},
		},
		{
			Code:       "mpesa",
			Name:       "M-Pesa Ethiopia",
			Currencies: []string{"ETB"},
			MinAmount:  etb("5"),
			MaxAmount:  etb("25000"),
			FeeRate:    etb("0.012"),
			Settlement: "T+0",
			Accounts: []DemoAccount{
				{Number: "+251700123456", Holder: "Yonas Tesfaye", Type: "wallet", Balance: etb("12000")},
			},
		},
		{
			Code:       "cbebirr",
			Name:       "CBE Birr",
			Currencies: []string{"ETB"},
			MinAmount:  etb("5"),
			MaxAmount:  etb("15000"),
			FeeRate:    etb("0.01"),
			Settlement: "T+0",
			Accounts: []DemoAccount{
				{Number: "+251922123456", Holder: "Mulu Haile", Type: "wallet", Balance: etb("6000")},
			},
		},
		{
			Code:       "hellocash",
			Name:       "HelloCash",
			Currencies: []string{"ETB"},
			MinAmount:  etb("5"),
			MaxAmount:  etb("20000"),
			FeeRate:    etb("0.015"),
			Settlement: "T+0",
			Accounts: []DemoAccount{
				{Number: "+251933123456", Holder: "Hana Girma", Type: "wallet", Balance: etb("3500")},
			},
		},
	}
}
