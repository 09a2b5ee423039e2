package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/remoterelay/internal/atcmd"
	"github.com/muurk/remoterelay/internal/config"
	"github.com/muurk/remoterelay/internal/device"
	"github.com/muurk/remoterelay/internal/discovery"
	"github.com/muurk/remoterelay/internal/flash"
	"github.com/muurk/remoterelay/internal/logging"
	"github.com/muurk/remoterelay/internal/relay"
	"github.com/muurk/remoterelay/internal/server"
	"github.com/muurk/remoterelay/internal/settings"
	"github.com/muurk/remoterelay/internal/version"
	"github.com/muurk/remoterelay/internal/wireless"
)

// Flags override values from the config file when set.
var (
	flashImage string
	serialPort string
	baudRate   int
	httpHost   string
	httpPort   int
	channels   int
	certPath   string
	keyPath    string
	selfSigned bool
	deviceID   string
	logLevel   string
	probeAddr  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the controller",
	Long: `Run the controller until it is shut down over HTTP or interrupted.

A restart requested by the companion or over HTTP reloads the settings from
flash and starts every component again without leaving the process.`,
	Example: `  # Run with the config file from the user config directory
  relayd run

  # Bench setup on a USB serial adapter, API on port 8080
  relayd run --serial /dev/ttyUSB0 --port 8080 --flash ./settings.img

  # Serve HTTPS with a generated certificate
  relayd run --self-signed --port 8443`,
	RunE: runDaemon,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&flashImage, "flash", "", "Settings flash image file")
	f.StringVar(&serialPort, "serial", "", "Serial port of the companion and relay board")
	f.IntVar(&baudRate, "baud", 0, "Serial baud rate")
	f.StringVar(&httpHost, "host", "", "HTTP listen address")
	f.IntVar(&httpPort, "port", 0, "HTTP port")
	f.IntVar(&channels, "channels", 0, "Number of relay channels")
	f.StringVar(&certPath, "cert", "", "TLS certificate file")
	f.StringVar(&keyPath, "key", "", "TLS private key file")
	f.BoolVar(&selfSigned, "self-signed", false, "Serve HTTPS with a generated self-signed certificate")
	f.StringVar(&deviceID, "device-id", "", "Device ID advertised over mDNS (letters and digits)")
	f.StringVar(&logLevel, "log-level", "", "Console log level (debug, info, warn, error)")
	f.StringVar(&probeAddr, "probe", "", "host:port dialled to detect the uplink (default: any interface address)")
}

// loadConfig reads the config file and applies the flags that were set.
func loadConfig(cmd *cobra.Command) (*config.Daemon, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadDaemon(path)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Changed("flash") {
		cfg.Flash.Image = flashImage
	}
	if f.Changed("serial") {
		cfg.Serial.Port = serialPort
	}
	if f.Changed("baud") {
		cfg.Serial.Baud = baudRate
	}
	if f.Changed("host") {
		cfg.HTTP.Host = httpHost
	}
	if f.Changed("port") {
		cfg.HTTP.Port = httpPort
	}
	if f.Changed("channels") {
		cfg.Relay.Channels = channels
	}
	if f.Changed("cert") {
		cfg.HTTP.CertFile = certPath
	}
	if f.Changed("key") {
		cfg.HTTP.KeyFile = keyPath
	}
	if f.Changed("self-signed") {
		cfg.HTTP.SelfSigned = selfSigned
	}
	if f.Changed("device-id") {
		cfg.DeviceID = deviceID
	}
	if f.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if f.Changed("probe") {
		cfg.Wireless.ProbeAddr = probeAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := logging.Initialize(cfg.LogLevel); err != nil {
		return err
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		err := boot(ctx, cfg)
		switch {
		case errors.Is(err, device.ErrRestart):
			logging.Info("Restarting controller")
			continue
		case errors.Is(err, device.ErrHalt):
			logging.Info("Controller halted")
			return nil
		case errors.Is(err, context.Canceled):
			logging.Info("Interrupted, stopping controller")
			return nil
		default:
			return err
		}
	}
}

// boot brings every component up, runs the control loop and tears
// everything down again. It returns the loop's exit reason.
func boot(ctx context.Context, cfg *config.Daemon) error {
	logger := logging.GetLogger()

	image, err := flash.OpenFile(cfg.Flash.Image, flash.SectorSize)
	if err != nil {
		return err
	}
	defer image.Close()

	medium, err := flash.NewEEPROM(image)
	if err != nil {
		return err
	}
	store := settings.New(medium,
		settings.WithLogger(logger.Named("settings")),
		settings.WithSignaller(faultSignaller{logger: logger}),
	)
	record, cursor, _ := store.Load(0)

	link, err := atcmd.OpenSerial(cfg.SerialPort())
	if err != nil {
		return err
	}
	defer link.Close()
	logging.SetSerialWriter(link)
	defer logging.SetSerialWriter(nil)

	board, err := relay.NewBoard(link, cfg.Relay.Channels)
	if err != nil {
		return err
	}

	dctx := &device.Context{Record: record, Cursor: cursor, Store: store, Relay: board}
	recognizer := atcmd.NewRecognizer(link,
		atcmd.WithLogger(logger.Named("atcmd")),
		atcmd.WithVersion(version.Serial()),
	)
	loop := device.NewLoop(dctx, recognizer,
		device.WithTick(cfg.Timing.Tick),
		device.WithLoopLogger(logger.Named("loop")),
	)

	hostname, _ := os.Hostname()
	srv, err := server.New(&server.Config{
		Host:         cfg.HTTP.Host,
		Port:         cfg.HTTP.Port,
		CertPath:     cfg.HTTP.CertFile,
		KeyPath:      cfg.HTTP.KeyFile,
		GenerateCert: cfg.HTTP.SelfSigned,
		Hostname:     hostname,
	}, loop, server.WithLogger(logger.Named("http")))
	if err != nil {
		return err
	}

	ad := discovery.Advertisement{
		ID:       cfg.ResolveDeviceID(hostname),
		Port:     cfg.HTTP.Port,
		Version:  version.Version,
		Channels: cfg.Relay.Channels,
		Auth:     record.LoginString() != "" && record.PasswordString() != "",
	}

	var orch *device.Orchestrator
	hostOpts := []wireless.Option{
		wireless.WithLogger(logger.Named("wireless")),
		wireless.WithProbeInterval(cfg.Wireless.ProbeInterval),
	}
	if cfg.Wireless.ProbeAddr != "" {
		hostOpts = append(hostOpts, wireless.WithProbe(wireless.DialProbe(cfg.Wireless.ProbeAddr, 2*time.Second)))
	}
	host := wireless.New(ad, func(e device.Event) { orch.Post(e) }, hostOpts...)
	defer host.Stop()

	orch = device.NewOrchestrator(dctx, host,
		device.WithConfig(cfg.Orchestrator()),
		device.WithWeb(srv),
		device.WithSignaller(faultSignaller{logger: logger}),
		device.WithLogger(logger.Named("device")),
	)
	dctx.Orchestrator = orch

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe(runCtx) }()

	logger.Info("Controller started",
		zap.String("device_id", ad.ID),
		zap.String("serial", cfg.Serial.Port),
		zap.Int("channels", cfg.Relay.Channels),
		zap.String("flash", cfg.Flash.Image),
	)

	loopErr := make(chan error, 1)
	go func() { loopErr <- loop.Run(runCtx, device.ReadLines(runCtx, link, logger.Named("serial"))) }()

	select {
	case err = <-loopErr:
		cancel()
		if serr := <-serveErr; serr != nil {
			logger.Warn("HTTP server stopped with error", zap.Error(serr))
		}
	case err = <-serveErr:
		// The API could not listen. Stop the loop and report why.
		cancel()
		<-loopErr
		if err == nil {
			err = errors.New("HTTP server stopped unexpectedly")
		}
	}
	return err
}

// faultSignaller reports fault patterns in the log. A host has no status
// LED to blink them on.
type faultSignaller struct {
	logger *zap.Logger
}

func (s faultSignaller) Signal(pattern byte) {
	s.logger.Warn("Fault signal", zap.String("pattern", fmt.Sprintf("%08b", pattern)))
}
