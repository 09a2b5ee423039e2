package wireless

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/remoterelay/internal/device"
	"github.com/muurk/remoterelay/internal/discovery"
	"github.com/muurk/remoterelay/internal/logging"
)

// DefaultProbeInterval is the pause between uplink probes.
const DefaultProbeInterval = time.Second

// ErrNoUplink is returned by probes that found no usable interface.
var ErrNoUplink = errors.New("no usable network interface")

// Probe reports whether the uplink is usable.
type Probe func(ctx context.Context) error

// Advertiser publishes the device on the network.
type Advertiser interface {
	Shutdown()
}

// AdvertiseFunc starts an advertisement.
type AdvertiseFunc func(discovery.Advertisement) (Advertiser, error)

// Host implements device.Wireless on top of the host network.
type Host struct {
	ad        discovery.Advertisement
	post      func(device.Event)
	probe     Probe
	advertise AdvertiseFunc
	interval  time.Duration
	logger    *zap.Logger

	mu         sync.Mutex
	advertiser Advertiser
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	ssid       string
}

// Option configures a Host.
type Option func(*Host)

func WithProbe(p Probe) Option {
	return func(h *Host) {
		h.probe = p
	}
}

func WithAdvertiseFunc(f AdvertiseFunc) Option {
	return func(h *Host) {
		h.advertise = f
	}
}

func WithProbeInterval(d time.Duration) Option {
	return func(h *Host) {
		h.interval = d
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(h *Host) {
		h.logger = l
	}
}

// New returns a Host advertising ad. post receives LinkEstablished and is
// typically Orchestrator.Post.
func New(ad discovery.Advertisement, post func(device.Event), opts ...Option) *Host {
	h := &Host{
		ad:       ad,
		post:     post,
		probe:    InterfaceProbe,
		interval: DefaultProbeInterval,
		logger:   logging.GetLogger(),
		advertise: func(a discovery.Advertisement) (Advertiser, error) {
			return discovery.Advertise(a)
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// StartAP advertises immediately. The ssid is only recorded for status.
func (h *Host) StartAP(ssid, key string) error {
	h.stopProbe()

	h.mu.Lock()
	h.ssid = ssid
	h.mu.Unlock()

	if len(key) > 0 && len(key) < 8 {
		return fmt.Errorf("wpa key too short: %d characters, need at least 8", len(key))
	}
	return h.startAdvertising()
}

// Connect probes the uplink in the background and posts LinkEstablished
// once it answers. Calling Connect while a probe runs restarts it.
func (h *Host) Connect() error {
	h.stopAdvertising()
	h.startProbe("station")
	return nil
}

// AutoConnect is Connect without an attempt budget on the caller side.
func (h *Host) AutoConnect() error {
	h.stopAdvertising()
	h.startProbe("auto")
	return nil
}

// ResetCredentials forgets the access point name.
func (h *Host) ResetCredentials() error {
	h.mu.Lock()
	h.ssid = ""
	h.mu.Unlock()
	return nil
}

// Stop cancels probes and withdraws the advertisement.
func (h *Host) Stop() error {
	h.stopProbe()
	h.stopAdvertising()
	return nil
}

// SSID returns the name passed to the last StartAP.
func (h *Host) SSID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ssid
}

// Advertising reports whether the API is currently announced.
func (h *Host) Advertising() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.advertiser != nil
}

func (h *Host) startAdvertising() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.advertiser != nil {
		return nil
	}

	a, err := h.advertise(h.ad)
	if err != nil {
		return fmt.Errorf("failed to advertise: %w", err)
	}
	h.advertiser = a
	h.logger.Info("Advertising relay API",
		zap.String("instance", h.ad.Instance()),
		zap.Int("port", h.ad.Port),
	)
	return nil
}

func (h *Host) stopAdvertising() {
	h.mu.Lock()
	a := h.advertiser
	h.advertiser = nil
	h.mu.Unlock()

	if a != nil {
		a.Shutdown()
	}
}

func (h *Host) startProbe(mode string) {
	h.stopProbe()

	ctx, cancel := context.WithCancel(context.Background())
	h.mu.Lock()
	h.cancel = cancel
	h.mu.Unlock()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.runProbe(ctx, mode)
	}()
}

func (h *Host) stopProbe() {
	h.mu.Lock()
	cancel := h.cancel
	h.cancel = nil
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	h.wg.Wait()
}

func (h *Host) runProbe(ctx context.Context, mode string) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		err := h.probe(ctx)
		if err == nil {
			break
		}
		h.logger.Debug("Uplink not ready", zap.String("mode", mode), zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}

	if ctx.Err() != nil {
		return
	}
	if err := h.startAdvertising(); err != nil {
		h.logger.Warn("Uplink up but advertising failed", zap.Error(err))
	}
	h.logger.Info("Uplink established", zap.String("mode", mode))
	h.post(device.LinkEstablished{})
}

// InterfaceProbe succeeds when some interface is up, not loopback, and has
// a unicast address.
func InterfaceProbe(ctx context.Context) error {
	ifaces, err := net.Interfaces()
	if err != nil {
		return fmt.Errorf("failed to list interfaces: %w", err)
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.IsGlobalUnicast() {
				return nil
			}
		}
	}
	return ErrNoUplink
}

// DialProbe succeeds when addr accepts a TCP connection.
func DialProbe(addr string, timeout time.Duration) Probe {
	return func(ctx context.Context) error {
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		return conn.Close()
	}
}
