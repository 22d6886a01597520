package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"kioskpad/internal/config"
	"kioskpad/internal/httpapi"
	"kioskpad/internal/input"
	"kioskpad/internal/ipc"
	"kioskpad/internal/logging"
	"kioskpad/internal/mapping"
	"kioskpad/internal/mqttbridge"
	"kioskpad/internal/navigator"
	"kioskpad/internal/service"
	"kioskpad/internal/store"
	"kioskpad/internal/wsapi"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("kioskpad v%s\n", version)
	fmt.Println("Game controller navigation daemon for kiosk launchers")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  kioskpad [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Reads game controllers and keyboards, maps them to logical buttons and")
	fmt.Println("  moves focus across the launcher UI. The UI connects over WebSocket; the")
	fmt.Println("  HTTP API, the IPC socket and MQTT accept the same commands.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start with a config file")
	fmt.Println("  kioskpad -config /etc/kioskpad.yaml")
	fmt.Println()
	fmt.Println("  # Keep mappings in memory and log everything")
	fmt.Println("  kioskpad -store-path '' -log-level debug")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - Requires read access to /dev/input (run as root or add user to 'input' group)")
	fmt.Println("  - Flags override values from the config file")
	fmt.Println()
}

func main() {
	var (
		configPath  = flag.String("config", "", "Path to YAML config file")
		showVersion = flag.Bool("version", false, "Print version and exit")
		showHelp    = flag.Bool("help", false, "Print help message")
	)

	// Overrides are only applied for flags that were set explicitly.
	pollMS := flag.Int("poll-interval-ms", 0, "Controller sampling interval in ms")
	joystickGlob := flag.String("joystick-glob", "", "Glob for joystick device nodes")
	keyboards := flag.String("keyboards", "", "Comma-separated evdev keyboard devices")
	scope := flag.String("scope", "", "Initial navigation scope")
	autoConfigure := flag.Bool("auto-configure", false, "Start the mapping wizard for unknown controllers")
	storePath := flag.String("store-path", "", "SQLite mapping store path (empty keeps mappings in memory)")
	background := flag.Bool("background", false, "Enable the suspend/stop combo listener")
	listen := flag.String("listen", "", "HTTP/WebSocket listen address")
	ipcSocket := flag.String("ipc-socket", "", "Unix domain socket path for IPC")
	mqttEnabled := flag.Bool("mqtt", false, "Enable the MQTT bridge")
	mqttBroker := flag.String("mqtt-broker", "", "MQTT broker URL")
	logLevel := flag.String("log-level", "", "Log level: error, warn, info, debug")
	logFormat := flag.String("log-format", "", "Log format: text or json")

	flag.Usage = printUsage
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var ov config.FlagOverrides
	if set["poll-interval-ms"] {
		ov.PollIntervalMS = pollMS
	}
	if set["joystick-glob"] {
		ov.JoystickGlob = joystickGlob
	}
	if set["keyboards"] {
		ov.KeyboardDevices = keyboards
	}
	if set["scope"] {
		ov.Scope = scope
	}
	if set["auto-configure"] {
		ov.AutoConfigure = autoConfigure
	}
	if set["store-path"] {
		ov.StorePath = storePath
	}
	if set["background"] {
		ov.BackgroundEnabled = background
	}
	if set["listen"] {
		ov.Listen = listen
	}
	if set["ipc-socket"] {
		ov.IPCSocketPath = ipcSocket
	}
	if set["mqtt"] {
		ov.MQTTEnabled = mqttEnabled
	}
	if set["mqtt-broker"] {
		ov.MQTTBroker = mqttBroker
	}
	if set["log-level"] {
		ov.LogLevel = logLevel
	}
	if set["log-format"] {
		ov.LogFormat = logFormat
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadFile(config.ExpandPath(*configPath))
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	ov.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging, version)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("kioskpad stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Mapping store
	var mappings mapping.Store
	if path := config.ExpandPath(cfg.Mapping.StorePath); path != "" {
		db, err := store.Open(store.Config{Path: path})
		if err != nil {
			return fmt.Errorf("open mapping store: %w", err)
		}
		defer db.Close()
		mappings = db
		logger.Info("mapping store opened", "path", db.Path())
	} else {
		mappings = store.NewMemory()
		logger.Warn("mapping store path empty; mappings are kept in memory only")
	}

	source := input.NewJoystickSource(cfg.Input.JoystickGlob, cfg.Input.RescanInterval(), logger)
	defer source.Close()

	layouts := navigator.NewLayoutStore()
	ws := wsapi.NewServer(logger, layouts, wsapi.ServerConfig{})
	hub := ws.Hub()

	hosts := service.MultiHost{hub}

	// Background workers log their own failures; only the input service
	// ends the daemon by returning an error.
	g, gctx := errgroup.WithContext(ctx)
	goRun := func(fn func()) {
		g.Go(func() error {
			fn()
			return nil
		})
	}

	// MQTT is optional; a broker that is down at startup is not fatal.
	var (
		bridge     *mqttbridge.Bridge
		mqttClient *mqttbridge.Client
	)
	if cfg.MQTT.Enabled {
		var err error
		mqttClient, bridge, err = connectMQTT(cfg.MQTT, logger)
		if err != nil {
			logger.Warn("MQTT bridge disabled", "error", err)
		} else {
			defer mqttClient.Close()
			hosts = append(hosts, bridge)
			goRun(func() { bridge.Run(gctx) })
		}
	}

	svc := service.New(service.Options{
		Source:           source,
		Store:            mappings,
		Layouts:          layouts,
		Scroller:         hub,
		Host:             hosts,
		Scope:            cfg.Navigation.Scope,
		PollInterval:     cfg.Input.PollInterval(),
		RepeatInterval:   cfg.Navigation.RepeatInterval(),
		RepeatDelayTicks: cfg.Navigation.RepeatDelayTicks,
		Settle:           cfg.Mapping.Settle(),
		AutoConfigure:    cfg.Mapping.AutoConfigure,
		Background: service.BackgroundOptions{
			Enabled:         cfg.Background.Enabled,
			PollInterval:    cfg.Background.PollInterval(),
			MonitorInterval: cfg.Background.MonitorInterval(),
			SuspendTicks:    cfg.Background.SuspendTicks,
			StopTicks:       cfg.Background.StopTicks,
		},
		Logger: logger,
	})
	ws.SetBackend(svc)
	defer hub.Attach(svc)()
	if bridge != nil {
		defer bridge.Attach(svc)()
		if err := mqttClient.Subscribe(bridge.Topics().Commands(), byte(cfg.MQTT.QoS), bridge.HandleCommand(svc)); err != nil {
			logger.Warn("MQTT command subscription failed", "error", err)
		}
	}

	goRun(func() { hub.Run(gctx) })

	g.Go(func() error {
		if err := svc.Run(gctx); err != nil {
			return fmt.Errorf("input service: %w", err)
		}
		return nil
	})

	api, err := httpapi.New(httpapi.Deps{
		Listen:  cfg.Server.Listen,
		Backend: svc,
		Layouts: layouts,
		WS:      ws,
		Logger:  logger,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("create API server: %w", err)
	}
	if err := api.Start(gctx); err != nil {
		return fmt.Errorf("start API server: %w", err)
	}
	defer api.Close()

	goRun(func() {
		if err := ipc.Serve(gctx, cfg.IPC.SocketPath, svc, logger); err != nil {
			logger.Error("IPC server stopped", "error", err)
		}
	})

	if cfg.Input.HotplugDir != "" {
		pattern := filepath.Base(cfg.Input.JoystickGlob)
		goRun(func() {
			err := input.WatchHotplug(gctx, cfg.Input.HotplugDir, pattern, func() {
				if err := svc.Submit(service.Rescan{}); err != nil && !errors.Is(err, service.ErrStopped) {
					logger.Warn("rescan request dropped", "error", err)
				}
			}, logger)
			if err != nil {
				logger.Warn("hotplug watcher stopped; relying on periodic rescans", "error", err)
			}
		})
	}

	if len(cfg.Input.KeyboardDevices) > 0 {
		keys := make(chan input.KeyEvent, 64)
		goRun(func() {
			if err := input.ReadKeyboards(gctx, cfg.Input.KeyboardDevices, keys, logger); err != nil {
				logger.Warn("keyboard reader stopped", "error", err)
			}
		})
		goRun(func() { forwardKeys(gctx, keys, svc, logger) })
	}

	logger.Info("listening",
		"http", cfg.Server.Listen,
		"ipc", cfg.IPC.SocketPath,
		"joysticks", cfg.Input.JoystickGlob,
		"keyboards", strings.Join(cfg.Input.KeyboardDevices, ","),
		"mqtt", cfg.MQTT.Enabled)

	<-gctx.Done()
	logger.Info("shutting down")
	stop()
	return g.Wait()
}

func connectMQTT(cfg config.MQTTConfig, logger *slog.Logger) (*mqttbridge.Client, *mqttbridge.Bridge, error) {
	var password string
	if cfg.PasswordFile != "" {
		b, err := os.ReadFile(config.ExpandPath(cfg.PasswordFile))
		if err != nil {
			return nil, nil, fmt.Errorf("read MQTT password file: %w", err)
		}
		password = strings.TrimSpace(string(b))
	}

	topics := mqttbridge.Topics{Prefix: cfg.TopicPrefix}
	client, err := mqttbridge.Connect(mqttbridge.Options{
		Broker:      cfg.Broker,
		ClientID:    cfg.ClientID,
		Username:    cfg.Username,
		Password:    password,
		QoS:         byte(cfg.QoS),
		StatusTopic: topics.Status(),
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return client, mqttbridge.NewBridge(client, cfg.TopicPrefix, byte(cfg.QoS), logger), nil
}

// forwardKeys hands keyboard events to the service until ctx ends.
func forwardKeys(ctx context.Context, keys <-chan input.KeyEvent, svc *service.Service, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-keys:
			if err := svc.Submit(service.Key{Code: ev.Code, Value: ev.Value}); err != nil {
				if errors.Is(err, service.ErrStopped) {
					return
				}
				logger.Debug("key event dropped", "code", ev.Code, "error", err)
			}
		}
	}
}
