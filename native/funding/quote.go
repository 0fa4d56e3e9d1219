package funding

import "math/big"

var (
	wad       = pow10(18)
	bigMaxBps = big.NewInt(MaxBps)
	bigOne    = big.NewInt(1)
)

func pow10(n uint) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func mulDivFloor(x, y, denominator *big.Int) *big.Int {
	return new(big.Int).Quo(new(big.Int).Mul(x, y), denominator)
}

func mulDivCeil(x, y, denominator *big.Int) *big.Int {
	quo, rem := new(big.Int).QuoRem(new(big.Int).Mul(x, y), denominator, new(big.Int))
	if rem.Sign() != 0 {
		quo.Add(quo, bigOne)
	}
	return quo
}

// normaliseToWad rescales an asset amount from its native decimals to the
// 18-decimal internal scale. When the asset carries more than 18 decimals the
// downscaling rounds per roundUp: up for amounts owed by the caller, down for
// amounts delivered to the caller.
func normaliseToWad(amount *big.Int, decimals uint8, roundUp bool) *big.Int {
	switch {
	case decimals == 18:
		return new(big.Int).Set(amount)
	case decimals < 18:
		return new(big.Int).Mul(amount, pow10(uint(18-decimals)))
	default:
		divisor := pow10(uint(decimals - 18))
		if roundUp {
			return mulDivCeil(amount, bigOne, divisor)
		}
		return new(big.Int).Quo(amount, divisor)
	}
}

// denormaliseFromWad rescales a WAD amount back to the asset's native
// decimals with the same rounding convention.
func denormaliseFromWad(amount *big.Int, decimals uint8, roundUp bool) *big.Int {
	switch {
	case decimals == 18:
		return new(big.Int).Set(amount)
	case decimals < 18:
		divisor := pow10(uint(18 - decimals))
		if roundUp {
			return mulDivCeil(amount, bigOne, divisor)
		}
		return new(big.Int).Quo(amount, divisor)
	default:
		return new(big.Int).Mul(amount, pow10(uint(decimals-18)))
	}
}

// quoteCitadelOut computes the citadel amount delivered for assetAmountIn at
// the current price and discount. Every division rounds down so an
// underfunded float can never be over-delivered. The caller must have
// validated that the price is positive.
func quoteCitadelOut(s *State, assetAmountIn *big.Int) *big.Int {
	normalized := normaliseToWad(assetAmountIn, s.AssetDecimals, false)
	undiscounted := mulDivFloor(normalized, wad, s.CitadelPriceInAsset)
	markup := new(big.Int).Add(bigMaxBps, new(big.Int).SetUint64(s.Discount))
	return mulDivFloor(undiscounted, markup, bigMaxBps)
}

// assetInForCitadelOut is the inverse quote: the asset amount a caller owes
// for a desired citadel amount. Every division rounds up because the result
// is owed by the caller.
func assetInForCitadelOut(s *State, citadelOut *big.Int) *big.Int {
	markup := new(big.Int).Add(bigMaxBps, new(big.Int).SetUint64(s.Discount))
	undiscounted := mulDivCeil(citadelOut, bigMaxBps, markup)
	normalized := mulDivCeil(undiscounted, s.CitadelPriceInAsset, wad)
	return denormaliseFromWad(normalized, s.AssetDecimals, true)
}
