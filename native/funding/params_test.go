package funding

import (
	"errors"
	"math/big"
	"testing"
)

func validConfig() Config {
	return Config{
		Asset:           "wbtc",
		AssetDecimals:   8,
		SaleRecipient:   "0x0101010101010101010101010101010101010101",
		MinDiscountBps:  10,
		MaxDiscountBps:  50,
		DiscountBps:     20,
		InitialPriceWei: "2e18",
	}
}

func TestConfigParameters(t *testing.T) {
	params, err := validConfig().Parameters()
	if err != nil {
		t.Fatalf("parameters: %v", err)
	}
	if params.AssetSymbol != "WBTC" {
		t.Fatalf("symbol must be upper-cased, got %q", params.AssetSymbol)
	}
	wantPrice := new(big.Int).Mul(big.NewInt(2), wad)
	if params.InitialPriceWei.Cmp(wantPrice) != 0 {
		t.Fatalf("price %s, want %s", params.InitialPriceWei, wantPrice)
	}
	if params.SaleRecipient[0] != 0x01 || params.SaleRecipient[19] != 0x01 {
		t.Fatalf("unexpected recipient %x", params.SaleRecipient)
	}
	if params.Risk.Enabled() {
		t.Fatalf("guardrails must stay disabled when unset")
	}
}

func TestConfigParametersRejectsBadLimits(t *testing.T) {
	cfg := validConfig()
	cfg.MaxDiscountBps = MaxBps
	cfg.DiscountBps = MaxBps
	if _, err := cfg.Parameters(); !errors.Is(err, ErrLimitInvalid) {
		t.Fatalf("expected ErrLimitInvalid for max >= MAX_BPS, got %v", err)
	}
	cfg = validConfig()
	cfg.MinDiscountBps = 60
	if _, err := cfg.Parameters(); !errors.Is(err, ErrLimitInvalid) {
		t.Fatalf("expected ErrLimitInvalid for min > max, got %v", err)
	}
	cfg = validConfig()
	cfg.DiscountBps = 5
	if _, err := cfg.Parameters(); err == nil {
		t.Fatalf("expected error for out-of-range initial discount")
	}
}

func TestConfigParametersRejectsBadRecipient(t *testing.T) {
	cfg := validConfig()
	cfg.SaleRecipient = "0x0000000000000000000000000000000000000000"
	if _, err := cfg.Parameters(); err == nil {
		t.Fatalf("zero recipient must be rejected")
	}
	cfg.SaleRecipient = "not-an-address"
	if _, err := cfg.Parameters(); err == nil {
		t.Fatalf("malformed recipient must be rejected")
	}
}

func TestConfigParametersRejectsZeroPrice(t *testing.T) {
	cfg := validConfig()
	cfg.InitialPriceWei = "0"
	if _, err := cfg.Parameters(); !errors.Is(err, ErrPriceInvalid) {
		t.Fatalf("expected ErrPriceInvalid, got %v", err)
	}
}

func TestConfigRiskParameters(t *testing.T) {
	cfg := validConfig()
	cfg.PerTxMinWei = "1_000"
	cfg.PerTxMaxWei = "5e8"
	cfg.DailyCapWei = "10e8"
	params, err := cfg.Parameters()
	if err != nil {
		t.Fatalf("parameters: %v", err)
	}
	if params.Risk.PerTxMinWei.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("per-tx min %s", params.Risk.PerTxMinWei)
	}
	if params.Risk.PerTxMaxWei.Cmp(big.NewInt(500_000_000)) != 0 {
		t.Fatalf("per-tx max %s", params.Risk.PerTxMaxWei)
	}
	if params.Risk.PerAddressDailyCapWei.Cmp(big.NewInt(1_000_000_000)) != 0 {
		t.Fatalf("daily cap %s", params.Risk.PerAddressDailyCapWei)
	}
	cfg.PerTxMinWei = "6e8"
	if _, err := cfg.Parameters(); err == nil {
		t.Fatalf("per-tx minimum above maximum must be rejected")
	}
}

func TestParseWeiAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "0"},
		{"0", "0"},
		{"42", "42"},
		{"1_000_000", "1000000"},
		{"21e18", "21000000000000000000"},
		{"2.5e18", "2500000000000000000"},
		{"1.250e3", "1250"},
	}
	for _, tc := range cases {
		got, err := parseWeiAmount(tc.in)
		if err != nil {
			t.Fatalf("parseWeiAmount(%q): %v", tc.in, err)
		}
		if got.String() != tc.want {
			t.Fatalf("parseWeiAmount(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
	for _, bad := range []string{"-1", "1.5", "1e", "12a", "1.2.3"} {
		if _, err := parseWeiAmount(bad); err == nil {
			t.Fatalf("parseWeiAmount(%q) must fail", bad)
		}
	}
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0xAABBccddeeff00112233445566778899aabbCCDD")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if addr[0] != 0xaa || addr[19] != 0xdd {
		t.Fatalf("unexpected bytes %x", addr)
	}
	for _, bad := range []string{"", "0x1234", "zz"} {
		if _, err := ParseAddress(bad); err == nil {
			t.Fatalf("ParseAddress(%q) must fail", bad)
		}
	}
}
