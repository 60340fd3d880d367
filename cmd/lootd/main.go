package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lootgo/server/internal/config"
	"github.com/lootgo/server/internal/core/event"
	coresys "github.com/lootgo/server/internal/core/system"
	"github.com/lootgo/server/internal/data"
	"github.com/lootgo/server/internal/handler"
	"github.com/lootgo/server/internal/loot"
	gonet "github.com/lootgo/server/internal/net"
	"github.com/lootgo/server/internal/net/packet"
	"github.com/lootgo/server/internal/persist"
	"github.com/lootgo/server/internal/scripting"
	"github.com/lootgo/server/internal/system"
	"github.com/lootgo/server/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string, serverID int) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              lootgo  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m        掉落物拾取 · 權威伺服器            \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1m伺服器:\033[0m %s \033[90m(編號: %d)\033[0m\n\n", serverName, serverID)
}

// displayWidth counts CJK runes as two columns.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		if r > 0x7F {
			w += 2
		} else {
			w++
		}
	}
	return w
}

func printSection(title string) {
	lineLen := max(46-displayWidth(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-displayWidth(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("LOOTGO_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.ID)

	// 3. Connect to PostgreSQL and run migrations
	printSection("資料庫")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	printOK("PostgreSQL 連線成功")

	version, err := persist.RunMigrations(ctx, db.Pool)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	printOK(fmt.Sprintf("資料庫遷移完成 (版本 %d)", version))

	// 4. Create repositories
	accountRepo := persist.NewAccountRepo(db)
	inventoryRepo := persist.NewInventoryRepo(db)
	ledgerRepo := persist.NewLedgerRepo(db)

	// A crash leaves accounts flagged online; nobody is connected at boot.
	n, err := accountRepo.ResetOnline(ctx)
	if err != nil {
		return fmt.Errorf("reset online flags: %w", err)
	}
	if n > 0 {
		printStat("重設上線狀態", int(n))
	}
	fmt.Println()

	// 5. Load item catalog and loot spawns
	printSection("資料載入")

	itemTable, err := data.LoadItemTable(filepath.Join(cfg.Server.DataDir, "items.yaml"))
	if err != nil {
		return fmt.Errorf("load item table: %w", err)
	}
	printStat("道具模板", itemTable.Count())

	spawnList, err := data.LoadSpawnList(filepath.Join(cfg.Server.DataDir, "loot_spawns.yaml"), itemTable)
	if err != nil {
		return fmt.Errorf("load spawn list: %w", err)
	}
	printStat("掉落點", len(spawnList))

	scripts, err := scripting.NewEngine(cfg.Server.ScriptsDir, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer scripts.Close()
	if scripts.HasHook("despawn_ticks") {
		printOK("Lua 消失時間腳本已載入")
	}

	// 6. World state, event bus and loot spawner
	worldState := world.NewState()
	bus := event.NewBus()
	broadcaster := system.NewLootBroadcaster(worldState)

	spawner := system.NewSpawner(worldState, bus, broadcaster, itemTable, spawnList, time.Now().UnixNano(), log)
	spawner.PickupDelay = cfg.Pickup.DropPickupDelay
	spawner.DespawnTicks = cfg.Pickup.DespawnTicks
	spawner.Despawn = scripts.DespawnTicks
	printStat("掉落物生成", spawner.SpawnAll())
	fmt.Println()

	// 7. Systems shared with handlers
	persistSys := system.NewPersistenceSystem(worldState, inventoryRepo, accountRepo, ledgerRepo, log, cfg.Character.SaveIntervalTicks)

	quota := cfg.Pickup.OneStackQuota
	pickupSys := system.NewPickupSystem(worldState, bus, broadcaster, system.PickupConfig{
		Quota:         quota,
		MaxDistanceSq: cfg.Pickup.MaxDistanceSq,
		Language:      cfg.Server.Language,
	}, log)
	visibilitySys := system.NewVisibilitySystem(worldState, 5)
	dispatchSys := system.NewEventDispatchSystem(bus)

	// 8. Packet registry and handlers
	pktReg := packet.NewRegistry(log)
	deps := &handler.Deps{
		Config:      cfg,
		Log:         log,
		World:       worldState,
		Bus:         bus,
		Items:       itemTable,
		Accounts:    accountRepo,
		Inventories: inventoryRepo,
		Pickups:     pickupSys,
		View:        visibilitySys,
		Spawn:       loot.Vec3{X: cfg.Character.SpawnX, Y: cfg.Character.SpawnY, Z: cfg.Character.SpawnZ},
	}
	handler.RegisterAll(pktReg, deps)

	// 9. Create network server
	proxies, err := gonet.ParseTrustedProxies(cfg.Network.TrustedProxies)
	if err != nil {
		return fmt.Errorf("network: %w", err)
	}
	netServer, err := gonet.NewServer(cfg.Network.BindAddress, gonet.ServerOptions{
		InQueueSize:      cfg.Network.InQueueSize,
		OutQueueSize:     cfg.Network.OutQueueSize,
		PacketsPerSecond: packetsPerSecond(cfg.RateLimit),
		WriteTimeout:     cfg.Network.WriteTimeout,
		TrustedProxies:   proxies,
	}, log)
	if err != nil {
		return fmt.Errorf("net server: %w", err)
	}
	go netServer.AcceptLoop()
	if cfg.Network.WSBindAddress != "" {
		if err := netServer.ListenWS(cfg.Network.WSBindAddress); err != nil {
			netServer.Shutdown()
			return fmt.Errorf("websocket listener: %w", err)
		}
	}

	// 10. Audit trail and event subscriptions
	var auditOut system.AuditLog
	var auditWriter *persist.AuditWriter
	if cfg.Audit.Enabled {
		auditWriter = persist.NewAuditWriter(cfg.Audit.Dir, cfg.Audit.Prefix)
		auditOut = auditWriter
	}
	audit := system.NewAuditSink(auditOut, persistSys, dispatchSys.Tick, log)

	event.Subscribe(bus, spawner.OnLootRemoved)
	event.Subscribe(bus, audit.OnPickup)
	event.Subscribe(bus, func(ev event.PlayerLoggedIn) {
		log.Debug("玩家進入世界", zap.Uint64("session", ev.SessionID), zap.String("account", ev.AccountName))
	})
	event.Subscribe(bus, func(ev event.PlayerDisconnected) {
		log.Debug("玩家離開世界", zap.Uint64("session", ev.SessionID))
	})

	// 11. Register systems with the runner
	store := gonet.NewSessionStore()
	inputSys := system.NewInputSystem(netServer, pktReg, store, cfg.Network.MaxPacketsPerTick,
		worldState, bus, persistSys, accountRepo, log)

	runner := coresys.NewRunner()
	runner.Register(inputSys)
	runner.Register(dispatchSys)
	runner.Register(pickupSys)
	runner.Register(system.NewLootTickSystem(worldState, bus, broadcaster, spawner, log))
	runner.Register(visibilitySys)
	runner.Register(system.NewOutputSystem(store))
	runner.Register(persistSys)
	runner.Register(system.NewCleanupSystem(worldState))

	// 12. Start game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Network.TickRate)
	defer ticker.Stop()

	printSection("伺服器就緒")
	printReady(fmt.Sprintf("監聽位址 %s", netServer.Addr().String()))
	if cfg.Network.WSBindAddress != "" {
		printReady(fmt.Sprintf("WebSocket 位址 %s", cfg.Network.WSBindAddress))
	}
	printReady(fmt.Sprintf("遊戲迴圈啟動 (tick: %s, 單堆上限: %d)", cfg.Network.TickRate, quota))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Network.TickRate)
		case sig := <-shutdownCh:
			log.Info("收到關閉信號", zap.String("signal", sig.String()))
			// Save all players before stopping
			persistSys.SaveAllPlayers()
			if auditWriter != nil {
				if err := auditWriter.Close(); err != nil {
					log.Error("關閉稽核紀錄失敗", zap.Error(err))
				}
			}
			netServer.Shutdown()
			log.Info("伺服器已停止",
				zap.Int("players", worldState.PlayerCount()),
				zap.Int("loot", worldState.LootCount()),
			)
			return nil
		}
	}
}

func packetsPerSecond(cfg config.RateLimitConfig) int {
	if !cfg.Enabled {
		return 0
	}
	return cfg.PacketsPerSecond
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
