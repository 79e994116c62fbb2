package domain

import "time"

// TradeType tags the lifecycle state of a trade record.
type TradeType string

const (
	TradeTypeSell     TradeType = "Sell"
	TradeTypeAsk      TradeType = "Ask"
	TradeTypeExecuted TradeType = "Executed"
)

// TradeRecord is the single entity stored in the world state. The
// JSON field names are part of the wire contract and must stay
// capitalized exactly as tagged.
type TradeRecord struct {
	ID           string     `json:"ID"`
	Owner        string     `json:"Owner"`
	TradeType    TradeType  `json:"TradeType"`
	Value        float64    `json:"Value"`
	Price        float64    `json:"Price"`
	CreationDate time.Time  `json:"CreationDate"`
	UpdatedDate  *time.Time `json:"UpdatedDate,omitempty"`
}

// Open reports whether the record can still participate in matching.
// Executed records are terminal.
func (r *TradeRecord) Open() bool {
	return r.TradeType == TradeTypeSell || r.TradeType == TradeTypeAsk
}
