package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"escrowd/config"
	"escrowd/core/state"
	"escrowd/native/common"
	"escrowd/native/escrow"
	"escrowd/native/platform"
	"escrowd/observability"
	"escrowd/observability/logging"
	"escrowd/rpc"
	"escrowd/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("ESCROWD_ENV"))
	logger := logging.Setup("escrowd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	manager := state.NewManager(db)
	platformMgr := platform.NewManager(manager)

	engine := escrow.NewEngine()
	engine.SetState(manager)
	engine.SetLedger(manager)
	engine.SetPlatform(platformMgr)
	engine.SetEmitter(observability.NewRecorder(logger))

	if err := bootstrapPlatform(cfg, platformMgr, logger); err != nil {
		logger.Error("Failed to bootstrap platform config", slog.Any("error", err))
		os.Exit(1)
	}

	server := rpc.NewServer(engine, platformMgr, logger)
	logger.Info("escrowd starting", "network", cfg.NetworkName, "dataDir", cfg.DataDir)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server terminated", slog.Any("error", err))
		os.Exit(1)
	}
}

// bootstrapPlatform seeds the fee policy from the genesis section on first
// boot. An already initialized store wins over the file so a restart never
// silently reverts RPC-driven updates.
func bootstrapPlatform(cfg *config.Config, mgr *platform.Manager, logger *slog.Logger) error {
	if _, err := mgr.Config(); err == nil {
		return nil
	} else if !errors.Is(err, platform.ErrNotInitialized) {
		return err
	}
	if !cfg.HasGenesis() {
		logger.Warn("platform config not initialized; settlements disabled until platform_initialize is called")
		return nil
	}
	admin, wallet, err := cfg.GenesisAddresses()
	if err != nil {
		return err
	}
	if err := mgr.Initialize(common.NewCallerAuthorizer(admin), wallet, admin, cfg.Genesis.FeeBps); err != nil {
		return err
	}
	logger.Info("platform config initialized from genesis", "feeBps", cfg.Genesis.FeeBps, "admin", cfg.Genesis.Admin)
	return nil
}
