package funding

import (
	"encoding/hex"
	"fmt"
	"math/big"
)

var usagePrefix = []byte("funding/usage/")

const dayFormat = "20060102"

type dailyUsage struct {
	Day      string
	TotalWei *big.Int
}

func usageKey(addr [20]byte) []byte {
	suffix := hex.EncodeToString(addr[:])
	key := make([]byte, len(usagePrefix)+len(suffix))
	copy(key, usagePrefix)
	copy(key[len(usagePrefix):], suffix)
	return key
}

// checkDepositLimits validates a prospective deposit against the configured
// guardrails without mutating usage. All limits are disabled by default.
func (e *Engine) checkDepositLimits(addr [20]byte, amount *big.Int) error {
	limits := e.risk
	if !limits.Enabled() {
		return nil
	}
	if limits.PerTxMinWei != nil && amount.Cmp(limits.PerTxMinWei) < 0 {
		return fmt.Errorf("%w: %s < %s", ErrDepositBelowMinimum, amount, limits.PerTxMinWei)
	}
	if limits.PerTxMaxWei != nil && amount.Cmp(limits.PerTxMaxWei) > 0 {
		return fmt.Errorf("%w: %s > %s", ErrDepositAboveMaximum, amount, limits.PerTxMaxWei)
	}
	if limits.PerAddressDailyCapWei != nil {
		used, err := e.dailyUsage(addr)
		if err != nil {
			return err
		}
		projected := new(big.Int).Add(used, amount)
		if projected.Cmp(limits.PerAddressDailyCapWei) > 0 {
			return fmt.Errorf("%w: %s of %s used", ErrDailyCapExceeded, used, limits.PerAddressDailyCapWei)
		}
	}
	return nil
}

// recordDeposit accrues the deposited amount into the caller's rolling UTC
// day bucket. Usage tracking only runs while the daily cap is configured.
func (e *Engine) recordDeposit(addr [20]byte, amount *big.Int) error {
	if e.risk.PerAddressDailyCapWei == nil {
		return nil
	}
	used, err := e.dailyUsage(addr)
	if err != nil {
		return err
	}
	record := dailyUsage{
		Day:      e.clock().UTC().Format(dayFormat),
		TotalWei: new(big.Int).Add(used, amount),
	}
	return e.st.KVPut(usageKey(addr), record)
}

func (e *Engine) dailyUsage(addr [20]byte) (*big.Int, error) {
	var record dailyUsage
	ok, err := e.st.KVGet(usageKey(addr), &record)
	if err != nil {
		return nil, err
	}
	today := e.clock().UTC().Format(dayFormat)
	if !ok || record.Day != today || record.TotalWei == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(record.TotalWei), nil
}
