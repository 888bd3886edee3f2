package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/wowgo/server/internal/config"
	coresys "github.com/wowgo/server/internal/core/system"
	"github.com/wowgo/server/internal/data"
	"github.com/wowgo/server/internal/game"
	"github.com/wowgo/server/internal/handler"
	gonet "github.com/wowgo/server/internal/net"
	"github.com/wowgo/server/internal/net/packet"
	"github.com/wowgo/server/internal/persist"
	"github.com/wowgo/server/internal/scripting"
	"github.com/wowgo/server/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
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
	fmt.Println("\033[36;1m  │\033[0m             WowGo  v0.1.0                 \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      魔獸 3.3.5a · Go 遊戲伺服器          \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1m伺服器:\033[0m %s \033[90m(編號: %d)\033[0m\n\n", serverName, serverID)
}

func printSection(title string) {
	// Use rune count for CJK width calculation (each CJK char = 2 columns)
	displayWidth := 0
	for _, r := range title {
		if r > 0x7F {
			displayWidth += 2
		} else {
			displayWidth++
		}
	}
	lineLen := 46 - displayWidth - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	displayWidth := 0
	for _, r := range label {
		if r > 0x7F {
			displayWidth += 2
		} else {
			displayWidth++
		}
	}
	dotsLen := 42 - displayWidth - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
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
	if p := os.Getenv("WOWGO_CONFIG"); p != "" {
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

	if err := persist.RunMigrations(ctx, db.Pool); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	printOK("資料庫遷移完成")
	fmt.Println()

	// 4. Create repositories and the async query pipeline
	accountRepo := persist.NewAccountRepo(db)
	charRepo := persist.NewCharacterRepo(db)

	pipeline := persist.NewPipeline(db, cfg.Database.QueryWorkers, log)
	defer pipeline.Close()

	// 5. Load static data tables
	printSection("資料載入")

	mapTable, err := data.LoadMapTable("data")
	if err != nil {
		return fmt.Errorf("load map table: %w", err)
	}
	printStat("地圖", mapTable.Count())
	printStat("地圖分區", mapTable.Partitions())

	startTable, err := data.LoadStartTable("data")
	if err != nil {
		return fmt.Errorf("load start positions: %w", err)
	}
	printStat("出生點", startTable.Count())

	nameTable, err := data.LoadNameTable("data")
	if err != nil {
		return fmt.Errorf("load name lists: %w", err)
	}
	printStat("保留名稱", nameTable.Count())

	// 5a. Initialize Lua scripting engine
	luaEngine, err := scripting.NewEngine("scripts", log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()
	printOK("Lua 腳本載入完成")

	// 5b. World and boot-time rosters
	gameWorld := world.New(mapTable, cfg.World.MapWorkers, log)

	guilds := world.NewGuildManager(gameWorld, pipeline, log)
	if err := guilds.Load(ctx, db); err != nil {
		return fmt.Errorf("load guilds: %w", err)
	}
	printStat("公會", guilds.Count())

	groups := world.NewGroupManager(gameWorld, pipeline, log)
	if err := groups.Load(ctx, db); err != nil {
		return fmt.Errorf("load groups: %w", err)
	}
	printStat("隊伍", groups.Count())

	social := world.NewSocialManager(gameWorld, pipeline, log)
	fmt.Println()

	// 6. Create the dispatch table and register handlers
	table := packet.NewTable()
	hdeps := &handler.Deps{
		Config: cfg,
		Log:    log,
		World:  gameWorld,
		Start:  startTable,
		Names:  nameTable,
	}
	handler.RegisterAll(table, hdeps)

	// 7. Session manager
	deps := &game.Deps{
		Log:        log,
		Table:      table,
		Pipeline:   pipeline,
		Accounts:   accountRepo,
		Characters: charRepo,
		World:      gameWorld,
		Guild:      guilds,
		Group:      groups,
		Social:     social,
		Script:     &scriptHook{engine: luaEngine},
		Cfg:        cfg,
	}
	manager := game.NewSessionManager(deps)

	// 8. Network server
	pktPerSec := 0
	if cfg.RateLimit.Enabled {
		pktPerSec = cfg.RateLimit.PacketsPerSecond
	}
	netServer, err := gonet.NewServer(
		cfg.Network.BindAddress,
		manager,
		cfg.Network.OutQueueSize,
		pktPerSec,
		log,
	)
	if err != nil {
		return fmt.Errorf("net server: %w", err)
	}
	go netServer.AcceptLoop()

	// 9. Tick phases. The session pass runs single-threaded and consumes
	// query callbacks, logout timers and the thread-unsafe packet share;
	// the map pass then drains the thread-safe share in parallel, one
	// partition worker per map group.
	runner := coresys.NewRunner()
	runner.Register(coresys.Func{P: coresys.PhaseSessions, F: manager.UpdateSessions})
	runner.Register(coresys.Func{P: coresys.PhaseMaps, F: gameWorld.UpdateMaps})

	// 10. Start the world loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.World.TickRate)
	defer ticker.Stop()

	printSection("伺服器就緒")
	printReady(fmt.Sprintf("監聽位址 %s", netServer.Addr().String()))
	printReady(fmt.Sprintf("世界迴圈啟動 (tick: %s)", cfg.World.TickRate))
	fmt.Println()

	for {
		select {
		case now := <-ticker.C:
			runner.Tick(now)
		case sig := <-shutdownCh:
			log.Info("收到關閉信號", zap.String("signal", sig.String()))
			manager.Shutdown()
			netServer.Shutdown()
			log.Info("伺服器已停止")
			return nil
		}
	}
}

// scriptHook bridges the session layer's hook surface onto the Lua engine.
type scriptHook struct {
	engine *scripting.Engine
}

func (h *scriptHook) PlayerLoggedIn(accountID uint32, guid uint64, name string, level int, mapID, zone uint32) {
	h.engine.OnPlayerLogin(scripting.PlayerEvent{
		AccountID: accountID, GUID: guid, Name: name,
		Level: level, Map: mapID, Zone: zone,
	})
}

func (h *scriptHook) PlayerLoggedOut(accountID uint32, guid uint64, name string, level int, mapID, zone uint32) {
	h.engine.OnPlayerLogout(scripting.PlayerEvent{
		AccountID: accountID, GUID: guid, Name: name,
		Level: level, Map: mapID, Zone: zone,
	})
}

func (h *scriptHook) UnknownPacket(opcode uint32, size int, account string) {
	h.engine.OnUnknownPacket(opcode, size, account)
}

func (h *scriptHook) Motd(def string) string { return h.engine.Motd(def) }

func (h *scriptHook) NameAllowed(name string) bool { return h.engine.NameAllowed(name) }

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
