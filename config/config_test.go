package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleConfig = `
RPCAddress = "0.0.0.0:9000"
DataDir = "/var/lib/citadel"
Env = "prod"

[funding]
Asset = "WBTC"
AssetDecimals = 8
SaleRecipient = "0x0101010101010101010101010101010101010101"
MinDiscountBps = 10
MaxDiscountBps = 50
DiscountBps = 20
InitialPriceWei = "2e18"
PerTxMaxWei = "5e8"
DailyCapWei = "10e8"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress != Default().RPCAddress {
		t.Fatalf("expected default RPC address, got %q", cfg.RPCAddress)
	}
	if cfg.Env != "dev" {
		t.Fatalf("expected dev environment, got %q", cfg.Env)
	}
}

func TestLoadFullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress != "0.0.0.0:9000" || cfg.Env != "prod" {
		t.Fatalf("unexpected top-level values: %+v", cfg)
	}
	params, err := cfg.FundingParameters()
	if err != nil {
		t.Fatalf("funding parameters: %v", err)
	}
	if params.AssetSymbol != "WBTC" || params.AssetDecimals != 8 {
		t.Fatalf("unexpected asset: %s/%d", params.AssetSymbol, params.AssetDecimals)
	}
	if params.DiscountBps != 20 || params.MinDiscountBps != 10 || params.MaxDiscountBps != 50 {
		t.Fatalf("unexpected discount settings: %+v", params)
	}
	if params.Risk.PerTxMaxWei == nil || params.Risk.PerAddressDailyCapWei == nil {
		t.Fatalf("guardrails must be populated")
	}
	if params.Risk.PerTxMinWei != nil {
		t.Fatalf("unset guardrail must stay disabled")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	if _, err := Load(writeConfig(t, "RPCAdress = \"typo\"\n")); err == nil {
		t.Fatalf("unknown key must be rejected")
	}
}

func TestLoadFillsBlankAddress(t *testing.T) {
	cfg, err := Load(writeConfig(t, "RPCAddress = \"\"\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress != Default().RPCAddress {
		t.Fatalf("blank address must fall back to the default, got %q", cfg.RPCAddress)
	}
}
