package events

import (
	"encoding/hex"
	"math/big"
	"strconv"
)

const (
	// TypeFundingDiscountUpdated is emitted when policy operations store a new
	// discount rate.
	TypeFundingDiscountUpdated = "funding.discount_updated"
	// TypeFundingLimitsUpdated is emitted when governance replaces the
	// admissible discount range.
	TypeFundingLimitsUpdated = "funding.limits_updated"
	// TypeFundingPriceUpdated is emitted when the oracle role attests a new
	// citadel price denominated in the sale asset.
	TypeFundingPriceUpdated = "funding.price_updated"
	// TypeFundingDeposit is emitted for every completed asset-for-citadel
	// swap.
	TypeFundingDeposit = "funding.deposit"
)

type FundingDiscountUpdated struct {
	PreviousBps uint64
	DiscountBps uint64
}

func (FundingDiscountUpdated) EventType() string { return TypeFundingDiscountUpdated }

func (e FundingDiscountUpdated) Attributes() map[string]string {
	return map[string]string{
		"previousBps": strconv.FormatUint(e.PreviousBps, 10),
		"discountBps": strconv.FormatUint(e.DiscountBps, 10),
	}
}

type FundingLimitsUpdated struct {
	MinDiscountBps uint64
	MaxDiscountBps uint64
}

func (FundingLimitsUpdated) EventType() string { return TypeFundingLimitsUpdated }

func (e FundingLimitsUpdated) Attributes() map[string]string {
	return map[string]string{
		"minDiscountBps": strconv.FormatUint(e.MinDiscountBps, 10),
		"maxDiscountBps": strconv.FormatUint(e.MaxDiscountBps, 10),
	}
}

type FundingPriceUpdated struct {
	PreviousPrice *big.Int
	Price         *big.Int
}

func (FundingPriceUpdated) EventType() string { return TypeFundingPriceUpdated }

func (e FundingPriceUpdated) Attributes() map[string]string {
	return map[string]string{
		"previousPrice": amountString(e.PreviousPrice),
		"price":         amountString(e.Price),
	}
}

type FundingDeposit struct {
	Depositor  [20]byte
	Asset      string
	AssetIn    *big.Int
	CitadelOut *big.Int
}

func (FundingDeposit) EventType() string { return TypeFundingDeposit }

func (e FundingDeposit) Attributes() map[string]string {
	return map[string]string{
		"depositor":  "0x" + hex.EncodeToString(e.Depositor[:]),
		"asset":      e.Asset,
		"assetIn":    amountString(e.AssetIn),
		"citadelOut": amountString(e.CitadelOut),
	}
}

func amountString(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}
