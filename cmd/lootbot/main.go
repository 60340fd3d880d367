// lootbot is a headless loot client: it logs in, mirrors the drops the
// server shows it and drives the pickup pipeline from a scripted input
// pattern.
//
// Usage:
//
//	go run ./cmd/lootbot [-config path] [-auto] [-hold-every ticks] [-wander] [-duration 1m]
//	                     [-allow-clear] [-allow id[#meta]]... [-disallow id[#meta]]...
//
// The allowlist edits are saved before the bot connects.
package main

import (
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lootgo/server/internal/client"
	"github.com/lootgo/server/internal/config"
	"github.com/lootgo/server/internal/filter"
	"github.com/lootgo/server/internal/i18n"
	"github.com/lootgo/server/internal/loot"
	gonet "github.com/lootgo/server/internal/net"
	"github.com/lootgo/server/internal/net/packet"
	"github.com/lootgo/server/internal/protocol"
	"github.com/lootgo/server/internal/scripting"
)

func main() {
	var (
		cfgPath   = flag.String("config", "config/server.toml", "config file")
		auto      = flag.Bool("auto", false, "start with auto pickup enabled")
		holdEvery = flag.Int("hold-every", 100, "hold the pickup key every N ticks (0 = never)")
		wander    = flag.Bool("wander", false, "walk around the spawn area")
		lang      = flag.String("lang", "en", "notice language")
		duration  = flag.Duration("duration", 0, "stop after this long (0 = until interrupted)")
		edits     allowEdits
	)
	flag.BoolVar(&edits.Clear, "allow-clear", false, "empty the allowlist before applying -allow")
	flag.Func("allow", "add id[#meta] to the allowlist (repeatable)", func(v string) error {
		e, err := filter.ParseEntry(v)
		if err != nil {
			return err
		}
		edits.Add = append(edits.Add, e)
		return nil
	})
	flag.Func("disallow", "remove id[#meta] from the allowlist (repeatable)", func(v string) error {
		e, err := filter.ParseEntry(v)
		if err != nil {
			return err
		}
		edits.Remove = append(edits.Remove, e)
		return nil
	})
	flag.Parse()

	if err := run(*cfgPath, script{
		Auto:      *auto,
		HoldEvery: *holdEvery,
		Wander:    *wander,
	}, edits, *lang, *duration); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath string, sc script, edits allowEdits, lang string, duration time.Duration) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	zapCfg.DisableCaller = true
	zapCfg.DisableStacktrace = true
	log, err := zapCfg.Build()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	allow, err := filter.Load(cfg.Client.AllowlistPath)
	if err != nil {
		return fmt.Errorf("allowlist: %w", err)
	}
	if err := edits.apply(allow); err != nil {
		return fmt.Errorf("allowlist: %w", err)
	}
	log.Info("白名單已載入", zap.String("path", cfg.Client.AllowlistPath), zap.Int("entries", len(allow.Entries())))
	engine, err := scripting.NewEngine(cfg.Server.ScriptsDir, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer engine.Close()

	opts, err := client.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	agg := loot.NewAggregator(opts.ScanMarginXZ, opts.ScanMarginY)
	agg.IsAllowlisted = allow.Contains
	agg.IsInteresting = engine.IsInteresting

	conn, err := gonet.Dial(cfg.Client.ServerAddress, 5*time.Second)
	if err != nil {
		return err
	}
	defer conn.Close()

	b := &bot{
		conn:    conn,
		mirror:  client.NewWorldMirror(),
		ctrl:    client.NewController(opts, agg),
		script:  sc,
		printer: i18n.NewPrinter(i18n.Match(lang, cfg.Server.Language)),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		log:     log,
	}
	if err := b.login(cfg.Server.ProtocolToken, cfg.Client.Account, cfg.Client.Password, lang); err != nil {
		return err
	}
	log.Info("登入成功", zap.String("account", cfg.Client.Account), zap.Uint32("player", b.mirror.PlayerID))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	var deadline <-chan time.Time
	if duration > 0 {
		deadline = time.After(duration)
	}

	ticker := time.NewTicker(cfg.Network.TickRate)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := b.tick(); err != nil {
				return err
			}
		case err := <-conn.Err:
			return fmt.Errorf("connection closed: %w", err)
		case <-stop:
			_ = conn.Send([]byte{packet.C_OPCODE_QUIT})
			return nil
		case <-deadline:
			log.Info("執行時間到，離線",
				zap.Int("emerald", b.mirror.InventoryCount("minecraft:emerald")),
				zap.Int("picked", b.picked),
			)
			_ = conn.Send([]byte{packet.C_OPCODE_QUIT})
			return nil
		}
	}
}

// allowEdits are the allowlist changes requested on the command line.
type allowEdits struct {
	Clear  bool
	Add    []filter.Entry
	Remove []filter.Entry
}

// apply clears first, then adds, then removes.
func (e allowEdits) apply(a *filter.Allowlist) error {
	if e.Clear {
		if err := a.Clear(); err != nil {
			return err
		}
	}
	for _, x := range e.Add {
		if err := a.Add(x.Stack()); err != nil {
			return err
		}
	}
	for _, x := range e.Remove {
		if err := a.Remove(x.Stack()); err != nil {
			return err
		}
	}
	return nil
}

// bot owns the mirror and controller; all methods run on the main goroutine.
type bot struct {
	conn    *gonet.Client
	mirror  *client.WorldMirror
	ctrl    *client.Controller
	script  script
	printer *i18n.Printer
	rng     *rand.Rand
	log     *zap.Logger

	step   int
	picked int
}

func (b *bot) login(token, account, password, lang string) error {
	if err := b.conn.Send(protocol.Hello{Token: token}.Encode()); err != nil {
		return fmt.Errorf("send hello: %w", err)
	}
	if err := b.await(packet.S_OPCODE_HELLO_OK); err != nil {
		return err
	}
	if err := b.conn.Send(protocol.Login{Account: account, Password: password, Lang: lang}.Encode()); err != nil {
		return fmt.Errorf("send login: %w", err)
	}
	return b.await(packet.S_OPCODE_LOGIN_OK)
}

// await applies packets until one with the wanted opcode arrives.
func (b *bot) await(opcode byte) error {
	timeout := time.After(10 * time.Second)
	for {
		select {
		case data, ok := <-b.conn.In:
			if !ok {
				return errors.New("connection closed during login")
			}
			if _, err := b.mirror.Apply(data); err != nil {
				return err
			}
			if data[0] == opcode {
				return nil
			}
		case <-timeout:
			return fmt.Errorf("timed out waiting for %s", packet.OpcodeName(opcode))
		}
	}
}

func (b *bot) tick() error {
	if err := b.pump(); err != nil {
		return err
	}
	b.step++
	in := b.script.input(b.step)
	if b.script.Wander && b.step%20 == 0 {
		if err := b.walk(); err != nil {
			return err
		}
	}
	f := b.ctrl.Step(in, b.mirror)
	for _, key := range f.Notices {
		b.log.Info(b.printer.Text(key))
	}
	for _, req := range f.Requests {
		for _, part := range req.Chunks(protocol.MaxTargets) {
			pkt, err := part.Encode()
			if err != nil {
				return err
			}
			if err := b.conn.Send(pkt); err != nil {
				return fmt.Errorf("send pickup: %w", err)
			}
		}
		b.log.Debug("送出拾取請求",
			zap.Int("targets", len(req.TargetIDs)),
			zap.Bool("auto", req.IsAuto),
			zap.Bool("limited", req.LimitToMaxStack),
		)
	}
	return nil
}

// pump applies every packet received since the last tick.
func (b *bot) pump() error {
	for {
		select {
		case data, ok := <-b.conn.In:
			if !ok {
				return nil
			}
			msg, err := b.mirror.Apply(data)
			if err != nil {
				return err
			}
			b.react(msg)
		default:
			return nil
		}
	}
}

func (b *bot) react(msg any) {
	switch m := msg.(type) {
	case protocol.Notice:
		b.log.Info(m.Text, zap.String("key", m.Key))
	case protocol.SoundCue:
		if m.Event == protocol.SoundPickup {
			b.picked++
		}
		b.log.Debug("音效", zap.String("event", m.Event), zap.Float32("pitch", m.Pitch))
	case loot.Vec3:
		b.log.Warn("伺服器修正位置", zap.Float64("x", m.X), zap.Float64("y", m.Y), zap.Float64("z", m.Z))
	}
}

func (b *bot) walk() error {
	pos := b.mirror.PlayerPos()
	pos.X += b.rng.Float64()*4 - 2
	pos.Z += b.rng.Float64()*4 - 2
	b.mirror.SetPlayerPos(pos)
	if err := b.conn.Send(protocol.Move{Pos: pos}.Encode()); err != nil {
		return fmt.Errorf("send move: %w", err)
	}
	return nil
}

// script is the bot's fixed input pattern.
type script struct {
	Auto      bool
	HoldEvery int
	Wander    bool
	HoldTicks int // 0 = 20
}

// input returns the held keys for step (1-based). Auto mode is toggled on
// the first step; every HoldEvery steps the pickup key is held long enough
// to trigger a batch pickup, and halfway between holds it is tapped.
func (s script) input(step int) client.Input {
	in := client.Input{ToggleAuto: s.Auto && step == 1}
	if s.HoldEvery <= 0 {
		return in
	}
	hold := s.HoldTicks
	if hold <= 0 {
		hold = 20
	}
	phase := step % s.HoldEvery
	switch {
	case phase < hold:
		in.PickupDown = step >= s.HoldEvery
	case phase == s.HoldEvery/2+hold:
		in.PickupDown = true
	}
	return in
}
