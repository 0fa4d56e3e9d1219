package funding

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Config models the [funding] table of the service configuration. Amount
// fields accept plain integers, underscore separators, and the `Ne18`
// scientific shorthand; empty cap fields leave the corresponding guardrail
// disabled.
type Config struct {
	Asset                string `toml:"Asset"`
	AssetDecimals        uint8  `toml:"AssetDecimals"`
	SaleRecipient        string `toml:"SaleRecipient"`
	MinDiscountBps       uint64 `toml:"MinDiscountBps"`
	MaxDiscountBps       uint64 `toml:"MaxDiscountBps"`
	DiscountBps          uint64 `toml:"DiscountBps"`
	InitialPriceWei      string `toml:"InitialPriceWei"`
	MaxPriceDeviationBps uint64 `toml:"MaxPriceDeviationBps"`
	PerTxMinWei          string `toml:"PerTxMinWei"`
	PerTxMaxWei          string `toml:"PerTxMaxWei"`
	DailyCapWei          string `toml:"DailyCapWei"`
}

// RiskParameters bound individual deposits and per-address daily volume. Nil
// fields disable the corresponding limit.
type RiskParameters struct {
	PerTxMinWei           *big.Int
	PerTxMaxWei           *big.Int
	PerAddressDailyCapWei *big.Int
}

// Enabled reports whether any deposit guardrail is configured.
func (p RiskParameters) Enabled() bool {
	return p.PerTxMinWei != nil || p.PerTxMaxWei != nil || p.PerAddressDailyCapWei != nil
}

// Parameters is the runtime representation of a validated funding
// configuration.
type Parameters struct {
	AssetSymbol          string
	AssetDecimals        uint8
	SaleRecipient        [20]byte
	MinDiscountBps       uint64
	MaxDiscountBps       uint64
	DiscountBps          uint64
	InitialPriceWei      *big.Int
	MaxPriceDeviationBps uint64
	Risk                 RiskParameters
}

// Parameters converts the textual configuration into runtime values and
// verifies the discount invariants up front.
func (c Config) Parameters() (Parameters, error) {
	params := Parameters{
		AssetSymbol:          strings.ToUpper(strings.TrimSpace(c.Asset)),
		AssetDecimals:        c.AssetDecimals,
		MinDiscountBps:       c.MinDiscountBps,
		MaxDiscountBps:       c.MaxDiscountBps,
		DiscountBps:          c.DiscountBps,
		MaxPriceDeviationBps: c.MaxPriceDeviationBps,
	}
	if params.AssetSymbol == "" {
		return params, fmt.Errorf("funding: asset symbol required")
	}
	if c.MaxDiscountBps >= MaxBps {
		return params, fmt.Errorf("%w: maxDiscount >= MAX_BPS", ErrLimitInvalid)
	}
	if c.MinDiscountBps > c.MaxDiscountBps {
		return params, fmt.Errorf("%w: minDiscount > maxDiscount", ErrLimitInvalid)
	}
	if c.DiscountBps < c.MinDiscountBps || c.DiscountBps > c.MaxDiscountBps {
		return params, fmt.Errorf("funding: initial discount %d outside [%d, %d]", c.DiscountBps, c.MinDiscountBps, c.MaxDiscountBps)
	}
	if c.MaxPriceDeviationBps > MaxBps {
		return params, fmt.Errorf("funding: price deviation must not exceed %d bps", MaxBps)
	}
	recipient, err := ParseAddress(c.SaleRecipient)
	if err != nil {
		return params, fmt.Errorf("funding: invalid sale recipient: %w", err)
	}
	if recipient == ([20]byte{}) {
		return params, fmt.Errorf("funding: sale recipient must not be the zero address")
	}
	params.SaleRecipient = recipient
	price, err := parseWeiAmount(c.InitialPriceWei)
	if err != nil {
		return params, fmt.Errorf("funding: invalid initial price: %w", err)
	}
	if price.Sign() <= 0 {
		return params, fmt.Errorf("%w: initial price", ErrPriceInvalid)
	}
	params.InitialPriceWei = price
	params.Risk, err = c.riskParameters()
	if err != nil {
		return params, err
	}
	return params, nil
}

func (c Config) riskParameters() (RiskParameters, error) {
	risk := RiskParameters{}
	assign := func(field string, value string) (*big.Int, error) {
		if strings.TrimSpace(value) == "" {
			return nil, nil
		}
		amount, err := parseWeiAmount(value)
		if err != nil {
			return nil, fmt.Errorf("funding: invalid %s: %w", field, err)
		}
		if amount.Sign() == 0 {
			return nil, nil
		}
		return amount, nil
	}
	var err error
	if risk.PerTxMinWei, err = assign("per-tx minimum", c.PerTxMinWei); err != nil {
		return risk, err
	}
	if risk.PerTxMaxWei, err = assign("per-tx maximum", c.PerTxMaxWei); err != nil {
		return risk, err
	}
	if risk.PerAddressDailyCapWei, err = assign("daily cap", c.DailyCapWei); err != nil {
		return risk, err
	}
	if risk.PerTxMinWei != nil && risk.PerTxMaxWei != nil && risk.PerTxMinWei.Cmp(risk.PerTxMaxWei) > 0 {
		return risk, fmt.Errorf("funding: per-tx minimum exceeds per-tx maximum")
	}
	return risk, nil
}

// ParseAddress normalises a 0x-prefixed hex account identifier into its raw
// 20-byte form.
func ParseAddress(value string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return addr, fmt.Errorf("address required")
	}
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		trimmed = trimmed[2:]
	}
	if len(trimmed) != 40 {
		return addr, fmt.Errorf("address must be 20 bytes (got %d hex chars)", len(trimmed))
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("decode address: %w", err)
	}
	copy(addr[:], decoded)
	return addr, nil
}

func parseWeiAmount(value string) (*big.Int, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(value), "_", "")
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	normalized := trimmed
	var exponent int64
	if idx := strings.IndexAny(normalized, "eE"); idx != -1 {
		expPart := strings.TrimSpace(normalized[idx+1:])
		if expPart == "" {
			return nil, fmt.Errorf("invalid scientific notation")
		}
		expValue, err := strconv.ParseInt(expPart, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid scientific notation")
		}
		exponent = expValue
		normalized = strings.TrimSpace(normalized[:idx])
	}
	normalized = strings.TrimPrefix(normalized, "+")
	if strings.HasPrefix(normalized, "-") {
		return nil, fmt.Errorf("amount must not be negative")
	}
	parts := strings.Split(normalized, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("invalid amount format")
	}
	integerPart := parts[0]
	fractionalPart := ""
	if len(parts) == 2 {
		fractionalPart = parts[1]
	}
	digits := integerPart + fractionalPart
	if digits == "" {
		return big.NewInt(0), nil
	}
	if !isDigits(digits) {
		return nil, fmt.Errorf("invalid amount format")
	}
	fracLen := len(fractionalPart)
	for fracLen > 0 && len(digits) > 0 && digits[len(digits)-1] == '0' {
		digits = digits[:len(digits)-1]
		fracLen--
	}
	digits = strings.TrimLeft(digits, "0")
	totalExponent := exponent - int64(fracLen)
	if totalExponent < 0 {
		return nil, fmt.Errorf("amount must be an integer")
	}
	if digits == "" {
		digits = "0"
	}
	if totalExponent > 0 {
		digits += strings.Repeat("0", int(totalExponent))
	}
	amount := new(big.Int)
	if _, ok := amount.SetString(digits, 10); !ok {
		return nil, fmt.Errorf("invalid amount value")
	}
	return amount, nil
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
