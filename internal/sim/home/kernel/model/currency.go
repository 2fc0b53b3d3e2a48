package model

import "fmt"

// Currency is the furnishing token type of a shop entry.
type Currency int

const (
	CurrencyMeso  Currency = 1
	CurrencyMeret Currency = 3
)

func (c Currency) String() string {
	switch c {
	case CurrencyMeso:
		return "mesos"
	case CurrencyMeret:
		return "merets"
	default:
		return fmt.Sprintf("currency(%d)", int(c))
	}
}

func (c Currency) Valid() bool { return c == CurrencyMeso || c == CurrencyMeret }

// Budget is the shared home balance delegates spend from.
type Budget struct {
	Mesos  int64 `json:"mesos"`
	Merets int64 `json:"merets"`
}

// Balance returns a pointer to the field holding c, or nil for unknown currencies.
func (b *Budget) Balance(c Currency) *int64 {
	switch c {
	case CurrencyMeso:
		return &b.Mesos
	case CurrencyMeret:
		return &b.Merets
	default:
		return nil
	}
}
