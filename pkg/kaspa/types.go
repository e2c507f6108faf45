// Package kaspa is a read-only client for the Kaspa REST API transaction
// feed. Amounts on the wire are integer sompi; one KAS is 1e8 sompi.
package kaspa

import "time"

const SompiPerKAS = 100_000_000

// Transaction is one entry of the full-transactions feed for an address.
type Transaction struct {
	TransactionID string   `json:"transaction_id"`
	BlockTime     int64    `json:"block_time"` // milliseconds
	Outputs       []Output `json:"outputs"`
	Inputs        []Input  `json:"inputs"`
}

type Output struct {
	Amount                 int64  `json:"amount"` // sompi
	ScriptPublicKeyAddress string `json:"script_public_key_address"`
}

type Input struct {
	PreviousOutpointAddress string `json:"previous_outpoint_address"`
}

// Time converts the millisecond block time to a time.Time.
func (t Transaction) Time() time.Time {
	return time.UnixMilli(t.BlockTime)
}

// Sender returns the resolved address of the first input, or "" when the
// feed could not resolve the previous outpoint.
func (t Transaction) Sender() string {
	if len(t.Inputs) == 0 {
		return ""
	}
	return t.Inputs[0].PreviousOutpointAddress
}

// KAS converts a sompi amount to KAS.
func KAS(sompi int64) float64 {
	return float64(sompi) / SompiPerKAS
}

// Sompi converts a KAS amount to sompi, rounding to the nearest base unit.
func Sompi(kas float64) int64 {
	if kas >= 0 {
		return int64(kas*SompiPerKAS + 0.5)
	}
	return int64(kas*SompiPerKAS - 0.5)
}
