package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"citadel/config"
	"citadel/core/state"
	"citadel/native/funding"
	"citadel/observability/logging"
	"citadel/rpc"
	"citadel/storage"
)

func main() {
	configPath := flag.String("config", "./config.toml", "path to the TOML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup("citadeld", cfg.Env)

	params, err := cfg.FundingParameters()
	if err != nil {
		logger.Error("invalid funding configuration", "err", err)
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)
	if err := ensureToken(manager, funding.CitadelSymbol, "Citadel", funding.CitadelDecimals); err != nil {
		logger.Error("register citadel token", "err", err)
		os.Exit(1)
	}
	if err := ensureToken(manager, params.AssetSymbol, params.AssetSymbol, params.AssetDecimals); err != nil {
		logger.Error("register sale asset", "err", err)
		os.Exit(1)
	}

	engine := funding.NewEngine(manager)
	engine.SetPauses(manager)
	switch err := engine.Initialise(params); {
	case err == nil:
		logger.Info("funding state initialised",
			"asset", params.AssetSymbol,
			"discountBps", params.DiscountBps,
			"price", params.InitialPriceWei.String())
	case errors.Is(err, funding.ErrAlreadyInitialised):
		// Restarts keep the persisted state; only the in-memory guardrails
		// are re-adopted from configuration.
		engine.SetRiskParameters(params.Risk)
		if err := engine.SetPriceDeviationLimit(params.MaxPriceDeviationBps); err != nil {
			logger.Error("apply price deviation limit", "err", err)
			os.Exit(1)
		}
		logger.Info("funding state loaded", "asset", params.AssetSymbol)
	default:
		logger.Error("initialise funding state", "err", err)
		os.Exit(1)
	}

	server := rpc.NewServer(engine, logger)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("rpc server stopped", "err", err)
		os.Exit(1)
	}
}

func ensureToken(manager *state.Manager, symbol, name string, decimals uint8) error {
	if manager.TokenExists(symbol) {
		return nil
	}
	return manager.RegisterToken(symbol, name, decimals)
}
