package govee

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"golang.org/x/net/ipv4"
)

// LAN API defaults.
const (
	// defaultLocalPort is where devices send responses.
	defaultLocalPort = 4002

	// defaultCommandPort is the device's unicast command port.
	defaultCommandPort = 4003

	// defaultMulticastHost and defaultMulticastPort address discovery scans.
	defaultMulticastHost = "239.255.255.250"
	defaultMulticastPort = 4001

	// defaultRebindDelay is the retry interval when binding the local
	// response port fails or the socket drops.
	defaultRebindDelay = time.Second

	// maxDatagramSize bounds inbound LAN API datagrams.
	maxDatagramSize = 4096
)

// Status is a decoded device status response.
type Status struct {
	// On is the reported power state.
	On bool

	// Raw is the full devStatus payload (brightness, colour) for
	// diagnostics.
	Raw json.RawMessage
}

// Logger defines the logging interface for the Govee client.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config holds the LAN API connection settings. Zero values fall back to
// the protocol defaults.
type Config struct {
	// DeviceHost is the device's address. May be empty when Discover is
	// set; the first scan responder is adopted.
	DeviceHost string

	// Discover enables multicast discovery on startup.
	Discover bool

	// LocalPort is the local response port to bind. Zero binds an
	// ephemeral port; devices answering the standard port will not reach
	// it, so production configs set 4002.
	LocalPort int

	// CommandPort is the device's command port.
	CommandPort int

	// MulticastHost and MulticastPort address discovery scan requests.
	MulticastHost string
	MulticastPort int

	// RebindDelay is the retry interval for bind failures and dropped
	// sockets.
	RebindDelay time.Duration
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.DeviceHost == "" && !c.Discover {
		return fmt.Errorf("%w: device host required unless discovery is enabled", ErrInvalidConfig)
	}
	for _, p := range []int{c.LocalPort, c.CommandPort, c.MulticastPort} {
		if p < 0 || p > 65535 {
			return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, p)
		}
	}
	return nil
}

// Client speaks the Govee LAN API over UDP.
type Client struct {
	cfg      Config
	logger   Logger
	onStatus func(Status)

	mu         sync.RWMutex
	conn       *net.UDPConn
	deviceHost string
}

// New creates a Client. The client does nothing until Run is called.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.CommandPort == 0 {
		cfg.CommandPort = defaultCommandPort
	}
	if cfg.MulticastHost == "" {
		cfg.MulticastHost = defaultMulticastHost
	}
	if cfg.MulticastPort == 0 {
		cfg.MulticastPort = defaultMulticastPort
	}
	if cfg.RebindDelay == 0 {
		cfg.RebindDelay = defaultRebindDelay
	}

	return &Client{
		cfg:        cfg,
		logger:     noopLogger{},
		deviceHost: cfg.DeviceHost,
	}, nil
}

// SetLogger sets the logger. Call before Run.
func (c *Client) SetLogger(logger Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// OnStatus registers the status response handler. Call before Run. The
// handler runs on the read loop goroutine and must not block.
func (c *Client) OnStatus(fn func(Status)) {
	c.onStatus = fn
}

// Run binds the local response port and consumes inbound datagrams until the
// context is cancelled. Bind failures and dropped sockets are retried after
// the rebind delay; Run only returns on cancellation.
func (c *Client) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: c.cfg.LocalPort})
		if err != nil {
			c.logger.Warn("response port bind failed, retrying",
				"port", c.cfg.LocalPort,
				"retry_in", c.cfg.RebindDelay,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.cfg.RebindDelay):
			}
			continue
		}

		c.logger.Info("listening for device responses", "addr", conn.LocalAddr())
		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		c.joinMulticast(conn)
		c.maybeScan(conn)

		// Unblock the read loop on cancellation.
		closed := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				conn.Close()
			case <-closed:
			}
		}()

		err = c.readLoop(conn)
		close(closed)
		conn.Close()

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()

		if ctx.Err() != nil {
			return nil
		}
		c.logger.Warn("response socket dropped, rebinding",
			"retry_in", c.cfg.RebindDelay,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.cfg.RebindDelay):
		}
	}
}

// SetPower sends an on/off command to the device. Fire-and-forget: the
// device does not acknowledge.
func (c *Client) SetPower(on bool) error {
	payload, err := encodeTurn(on)
	if err != nil {
		return err
	}
	return c.send(payload)
}

// RequestStatus asks the device to report its status. The response arrives
// asynchronously through the OnStatus handler.
func (c *Client) RequestStatus() error {
	payload, err := encodeStatusRequest()
	if err != nil {
		return err
	}
	return c.send(payload)
}

// LocalAddr returns the bound response address, or nil before Run binds.
func (c *Client) LocalAddr() net.Addr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn == nil {
		return nil
	}
	return c.conn.LocalAddr()
}

// DeviceHost returns the current device address, empty before discovery
// adopts one.
func (c *Client) DeviceHost() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.deviceHost
}

// send delivers a command datagram to the device's command port.
func (c *Client) send(payload []byte) error {
	c.mu.RLock()
	conn := c.conn
	host := c.deviceHost
	c.mu.RUnlock()

	if conn == nil {
		return ErrNotConnected
	}
	if host == "" {
		return ErrNoDevice
	}

	addr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(host, strconv.Itoa(c.cfg.CommandPort)))
	if err != nil {
		return err
	}
	_, err = conn.WriteToUDP(payload, addr)
	return err
}

// readLoop decodes inbound datagrams until the socket errors.
func (c *Client) readLoop(conn *net.UDPConn) error {
	buf := make([]byte, maxDatagramSize)
	for {
		n, raddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			return err
		}
		c.handleDatagram(buf[:n], raddr)
	}
}

// handleDatagram routes one inbound LAN API message.
func (c *Client) handleDatagram(b []byte, raddr *net.UDPAddr) {
	cmd, data, err := decodeEnvelope(b)
	if err != nil {
		c.logger.Debug("malformed datagram, ignoring", "from", raddr, "error", err)
		return
	}

	switch cmd {
	case cmdDevStatus:
		var ds devStatusData
		if err := json.Unmarshal(data, &ds); err != nil {
			c.logger.Debug("malformed devStatus payload, ignoring", "from", raddr, "error", err)
			return
		}
		if c.onStatus != nil {
			raw := append(json.RawMessage(nil), data...)
			c.onStatus(Status{On: ds.OnOff == 1, Raw: raw})
		}
	case cmdScan:
		c.handleScanResponse(data, raddr)
	default:
		c.logger.Debug("unhandled command, ignoring", "cmd", cmd, "from", raddr)
	}
}

// handleScanResponse adopts the first discovery responder as the device
// address. Later responders are ignored; a configured address is never
// replaced.
func (c *Client) handleScanResponse(data json.RawMessage, raddr *net.UDPAddr) {
	if !c.cfg.Discover {
		return
	}

	var sd scanData
	if err := json.Unmarshal(data, &sd); err != nil {
		c.logger.Debug("malformed scan payload, ignoring", "from", raddr, "error", err)
		return
	}
	host := sd.IP
	if host == "" && raddr != nil {
		host = raddr.IP.String()
	}
	if host == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deviceHost != "" {
		return
	}
	c.deviceHost = host
	c.logger.Info("discovered device", "host", host, "sku", sd.SKU, "device", sd.Device)
}

// joinMulticast subscribes the response socket to the LAN API group so scan
// responses sent to the group are received too. Failure is not fatal; most
// devices answer unicast.
func (c *Client) joinMulticast(conn *net.UDPConn) {
	group := net.ParseIP(c.cfg.MulticastHost)
	if group == nil {
		c.logger.Debug("invalid multicast group, skipping join", "group", c.cfg.MulticastHost)
		return
	}
	p := ipv4.NewPacketConn(conn)
	if err := p.JoinGroup(nil, &net.UDPAddr{IP: group}); err != nil {
		c.logger.Debug("multicast join failed", "group", c.cfg.MulticastHost, "error", err)
	}
}

// maybeScan sends a discovery scan when no device address is known yet.
func (c *Client) maybeScan(conn *net.UDPConn) {
	if !c.cfg.Discover || c.DeviceHost() != "" {
		return
	}

	payload, err := encodeScan()
	if err != nil {
		return
	}
	addr := &net.UDPAddr{IP: net.ParseIP(c.cfg.MulticastHost), Port: c.cfg.MulticastPort}
	if _, err := conn.WriteToUDP(payload, addr); err != nil {
		c.logger.Warn("discovery scan failed", "error", err)
		return
	}
	c.logger.Info("discovery scan sent", "group", addr)
}
