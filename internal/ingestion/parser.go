package ingestion

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"LiqSentinel/internal/event"
)

// Wire format of one position delta as published by the indexer. Amounts
// are decimal strings because raw on-chain integers overflow int64.
type positionDeltaJSON struct {
	PoolAddress       string `json:"pool_address"`
	CollateralAddress string `json:"collateral_address"`
	DebtAddress       string `json:"debt_address"`
	UserAddress       string `json:"user_address"`
	CollateralDelta   string `json:"collateral_delta"`
	DebtDelta         string `json:"debt_delta"`
	BlockNumber       uint64 `json:"block_number"`
}

type syncedJSON struct {
	BlockNumber uint64 `json:"block_number"`
}

type noticeJSON struct {
	BlockNumber uint64 `json:"block_number"`
}

// ParseStreamEvent converts a raw NATS message into a tagged stream event,
// dispatching on its subject.
func ParseStreamEvent(raw RawEvent) (event.StreamEvent, error) {
	switch {
	case strings.HasPrefix(raw.Subject, "liq.deltas."):
		return parsePositionDelta(raw.Data)
	case raw.Subject == "liq.sync":
		return parseSynced(raw.Data)
	case strings.HasPrefix(raw.Subject, "liq.notices."):
		return parseNotice(raw.Data)
	default:
		return event.StreamEvent{}, fmt.Errorf("unknown subject: %s", raw.Subject)
	}
}

func parsePositionDelta(data []byte) (event.StreamEvent, error) {
	var j positionDeltaJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return event.StreamEvent{}, fmt.Errorf("parse PositionDelta: %w", err)
	}

	if j.PoolAddress == "" || j.UserAddress == "" {
		return event.StreamEvent{}, fmt.Errorf("PositionDelta missing addresses")
	}

	collateralDelta, err := decimal.NewFromString(j.CollateralDelta)
	if err != nil {
		return event.StreamEvent{}, fmt.Errorf("parse collateral_delta: %w", err)
	}
	debtDelta, err := decimal.NewFromString(j.DebtDelta)
	if err != nil {
		return event.StreamEvent{}, fmt.Errorf("parse debt_delta: %w", err)
	}

	return event.StreamEvent{
		Kind: event.KindPositionDelta,
		Delta: &event.PositionDelta{
			PoolAddress:       event.NormalizeAddress(j.PoolAddress),
			CollateralAddress: event.NormalizeAddress(j.CollateralAddress),
			DebtAddress:       event.NormalizeAddress(j.DebtAddress),
			UserAddress:       event.NormalizeAddress(j.UserAddress),
			CollateralDelta:   collateralDelta,
			DebtDelta:         debtDelta,
			BlockNumber:       j.BlockNumber,
		},
		Block: j.BlockNumber,
	}, nil
}

func parseSynced(data []byte) (event.StreamEvent, error) {
	var j syncedJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return event.StreamEvent{}, fmt.Errorf("parse Synced: %w", err)
	}
	return event.StreamEvent{Kind: event.KindSynced, Block: j.BlockNumber}, nil
}

func parseNotice(data []byte) (event.StreamEvent, error) {
	var j noticeJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return event.StreamEvent{}, fmt.Errorf("parse notice: %w", err)
	}
	return event.StreamEvent{Kind: event.KindOther, Block: j.BlockNumber}, nil
}
