package event

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Kind discriminates the tagged values produced by the event source.
type Kind int32

const (
	KindUnknown Kind = iota
	KindPositionDelta
	KindSynced
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindPositionDelta:
		return "PositionDelta"
	case KindSynced:
		return "Synced"
	case KindOther:
		return "Other"
	default:
		return "Unknown"
	}
}

// Address is a hex-encoded on-chain address, normalized to lowercase
// without leading zeros stripped. Two addresses compare equal iff their
// normalized forms are equal.
type Address string

// NormalizeAddress lowercases the address and ensures a 0x prefix.
func NormalizeAddress(s string) Address {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	return Address(s)
}

func (a Address) String() string { return string(a) }

// PositionDelta is an incremental change to a position's collateral and
// debt balances, as observed from chain activity. Amounts are raw on-chain
// integers already converted to decimal but NOT yet scaled to the internal
// unit; the store normalizes them on apply.
type PositionDelta struct {
	PoolAddress       Address
	CollateralAddress Address
	DebtAddress       Address
	UserAddress       Address
	CollateralDelta   decimal.Decimal
	DebtDelta         decimal.Decimal
	BlockNumber       uint64
}

// StreamEvent is one tagged value from the event source. Exactly one of
// the payload fields is meaningful, selected by Kind.
type StreamEvent struct {
	Kind  Kind
	Delta *PositionDelta // set when Kind == KindPositionDelta
	Block uint64         // best-effort block context for Synced/Other
}
