package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/muurk/framelink/internal/bridge"
	"github.com/muurk/framelink/internal/config"
	"github.com/muurk/framelink/internal/discovery"
	"github.com/muurk/framelink/internal/layout"
	"github.com/muurk/framelink/internal/transport"
	"github.com/muurk/framelink/internal/ui"
)

// errSessionFailed is returned after a failure has already been rendered.
var errSessionFailed = errors.New("session failed")

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// listenCmd prints every received message
var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Print received messages",
	Long: `Connect to the configured device, perform the handshake and print
every message whose id appears in the configuration.

Frames with unknown ids are consumed silently. The session ends on Ctrl+C,
when the device disconnects or when a frame does not match its layout.`,
	Example: `  # Use the connection from the config file
  framelink listen

  # Serial device with a custom config
  framelink listen --config ./bench.yaml --transport serial --address /dev/ttyACM0

  # First bridge announced on the local network
  framelink listen --discover`,
	RunE: runListen,
}

func init() {
	addConnectionFlags(listenCmd)
}

func runListen(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	s, err := openSession(ctx, cfg, printFrame)
	if err != nil {
		return err
	}
	defer s.close()

	fmt.Println(ui.NewHeader("Listen", "framelink listen", map[string]string{
		"Endpoint": s.describe(),
		"Messages": strconv.Itoa(len(cfg.Messages)),
	}).Render())

	if err := s.m.Start(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		fmt.Println(ui.NewFailureResult("Handshake failed", err, failureHints(err)).Render())
		return errSessionFailed
	}
	fmt.Println(ui.StateStyle("running").Render(ui.RunningMarker) + " Connected, waiting for messages (Ctrl+C to stop)")
	fmt.Println()

	select {
	case <-ctx.Done():
	case <-s.m.Done():
	}
	s.close()

	if err := s.m.Err(); err != nil {
		fmt.Println(ui.NewFailureResult("Session failed", err, failureHints(err)).Render())
		return errSessionFailed
	}
	fmt.Println(ui.NewSuccessResult("Session ended", statsDetails(s.m.Stats())).Render())
	return nil
}

func printFrame(id int, name string, labels []string, fields []any) {
	fmt.Printf("%s %s %-14s %s\n",
		ui.MutedStyle.Render(time.Now().Format("15:04:05.000")),
		ui.FrameIDStyle.Render(fmt.Sprintf("%3d", id)),
		name,
		ui.FormatFields(labels, fields),
	)
}

// monitorCmd shows a live table of the latest values
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live table of received messages",
	Long: `Connect to the configured device and show a live table with the latest
values, count and arrival time of each message id.`,
	Example: `  framelink monitor
  framelink monitor --transport tcp --address 192.168.4.16:4000`,
	RunE: runMonitor,
}

func init() {
	addConnectionFlags(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	var p *tea.Program
	s, err := openSession(ctx, cfg, func(id int, name string, labels []string, fields []any) {
		p.Send(ui.FrameMsg{ID: id, Name: name, Labels: labels, Fields: fields, At: time.Now()})
	})
	if err != nil {
		return err
	}
	defer s.close()

	p = tea.NewProgram(ui.NewMonitorModel("framelink monitor", s.describe()), tea.WithAltScreen())
	go feedMonitor(ctx, p, s)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("monitor failed: %w", err)
	}
	s.close()

	if err := s.m.Err(); err != nil {
		fmt.Println(ui.NewFailureResult("Session failed", err, failureHints(err)).Render())
		return errSessionFailed
	}
	fmt.Println(ui.NewSuccessResult("Session ended", statsDetails(s.m.Stats())).Render())
	return nil
}

// feedMonitor starts the session and forwards its state and counters to
// the program until the session ends.
func feedMonitor(ctx context.Context, p *tea.Program, s *session) {
	if err := s.m.Start(ctx); err != nil {
		p.Send(ui.StateMsg{State: s.m.State().String(), Err: err})
		return
	}
	p.Send(ui.StateMsg{State: s.m.State().String()})

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.Send(ui.StatsMsg(s.m.Stats()))
		case <-s.m.Done():
			p.Send(ui.StatsMsg(s.m.Stats()))
			p.Send(ui.StateMsg{State: s.m.State().String(), Err: s.m.Err()})
			return
		case <-ctx.Done():
			p.Quit()
			return
		}
	}
}

// discoverCmd lists bridges on the local network
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find framelink bridges on the local network",
	Long: `Browse mDNS for framelink bridges and print their addresses.

A bridge is started with 'framelink bridge --name <instance>'.`,
	Example: `  framelink discover
  framelink discover --timeout 10`,
	RunE: runDiscover,
}

var discoverTimeout int

func init() {
	discoverCmd.Flags().IntVar(&discoverTimeout, "timeout", 5, "Scan timeout in seconds")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	fmt.Printf("Scanning for framelink bridges (timeout: %ds)...\n\n", discoverTimeout)

	ctx, stop := signalContext()
	defer stop()

	bridges, err := discovery.Scan(ctx, time.Duration(discoverTimeout)*time.Second)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(bridges) == 0 {
		fmt.Println("No bridges found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the bridge was started with --name")
		fmt.Println("  - Check that multicast traffic is allowed on this network")
		fmt.Println("  - Try increasing --timeout for slower networks")
		return nil
	}

	fmt.Printf("Found %d bridge(s):\n\n", len(bridges))
	for i, b := range bridges {
		ep := b.Endpoint(config.DefaultReadTimeout)
		fmt.Printf("%d. %s\n", i+1, b.Instance)
		fmt.Printf("   Host:      %s\n", b.Hostname)
		fmt.Printf("   Transport: %s\n", b.Transport)
		fmt.Printf("   Address:   %s\n", ep.Address)
		fmt.Println()
	}

	fmt.Println("Use 'framelink listen --discover --bridge <instance>' to connect")
	return nil
}

// encodeCmd builds a frame from textual values
var encodeCmd = &cobra.Command{
	Use:   "encode [values...]",
	Short: "Encode a message frame",
	Long: `Pack values with a layout and wrap them in a frame using the configured
header and footer. The frame is printed as hex, or written as raw bytes
with --raw.

The message can be named from the configuration with --message, or given
explicitly with --id and --layout.`,
	Example: `  # Message 5 with a three byte string and an unsigned byte
  framelink encode --id 5 --layout 3sB abc 7

  # Use the id and layout of a configured message
  framelink encode --message position -- 10 -20 30

  # Send the raw frame to a serial device
  framelink encode --id 1 --layout I 42 --raw > /dev/ttyACM0`,
	RunE: runEncode,
}

var (
	encodeID      int
	encodeLayout  string
	encodeMessage string
	encodeRaw     bool
)

func init() {
	encodeCmd.Flags().IntVar(&encodeID, "id", -1, "Message id (0-255)")
	encodeCmd.Flags().StringVar(&encodeLayout, "layout", "", "Payload layout, e.g. 3sB")
	encodeCmd.Flags().StringVar(&encodeMessage, "message", "", "Configured message name (sets --id and --layout)")
	encodeCmd.Flags().BoolVar(&encodeRaw, "raw", false, "Write raw bytes instead of hex")
}

func runEncode(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	id, spec := encodeID, encodeLayout
	if encodeMessage != "" {
		msg, ok := findMessage(cfg, encodeMessage)
		if !ok {
			return fmt.Errorf("message %q is not configured", encodeMessage)
		}
		id, spec = msg.ID, msg.Layout
	}

	frame, err := buildFrame(cfg.Protocol, id, spec, args)
	if err != nil {
		return err
	}

	if encodeRaw {
		_, err = cmd.OutOrStdout().Write(frame)
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(frame))
	return nil
}

func findMessage(cfg *config.Config, name string) (config.MessageSpec, bool) {
	for _, m := range cfg.Messages {
		if m.Name == name {
			return m, true
		}
	}
	return config.MessageSpec{}, false
}

// buildFrame packs args with spec and wraps them as message id.
func buildFrame(p config.ProtocolSettings, id int, spec string, args []string) ([]byte, error) {
	if id < 0 || id > 255 {
		return nil, fmt.Errorf("message id %d out of range 0-255", id)
	}
	l, err := layout.Compile(spec)
	if err != nil {
		return nil, err
	}
	values, err := l.ParseValues(args)
	if err != nil {
		return nil, err
	}
	payload, err := l.Encode(values...)
	if err != nil {
		return nil, err
	}
	return p.MessengerConfig().Markers().EncodeFrame(id, payload)
}

// bridgeCmd exposes a serial device on the network
var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Share a serial device over the network",
	Long: `Relay a local serial device to one network client at a time over TCP or
WebSocket. With --name the bridge is announced via mDNS so that
'framelink listen --discover' finds it.

Device output that arrives while no client is attached is discarded.`,
	Example: `  # Raw TCP on port 4000, announced as "bench"
  framelink bridge --device /dev/ttyACM0 --name bench

  # WebSocket on port 8080
  framelink bridge --device /dev/ttyUSB0 --listen-transport websocket --port 8080`,
	RunE: runBridge,
}

var (
	bridgeDevice    string
	bridgeHost      string
	bridgePort      int
	bridgeTransport string
	bridgePath      string
	bridgeInstance  string
	bridgeTimeout   time.Duration
)

func init() {
	bridgeCmd.Flags().StringVar(&bridgeDevice, "device", "", "Serial device path (required)")
	bridgeCmd.Flags().StringVar(&bridgeHost, "host", "", "Listen address (empty = all interfaces)")
	bridgeCmd.Flags().IntVar(&bridgePort, "port", 4000, "Listen port")
	bridgeCmd.Flags().StringVar(&bridgeTransport, "listen-transport", config.TransportTCP, "Client transport (tcp, websocket)")
	bridgeCmd.Flags().StringVar(&bridgePath, "path", bridge.DefaultPath, "WebSocket request path")
	bridgeCmd.Flags().StringVar(&bridgeInstance, "name", "", "mDNS instance name (empty = do not announce)")
	bridgeCmd.Flags().DurationVar(&bridgeTimeout, "read-timeout", transport.DefaultReadTimeout, "Bound on a single read")
	_ = bridgeCmd.MarkFlagRequired("device")
}

func runBridge(cmd *cobra.Command, args []string) error {
	dev, err := transport.OpenSerial(bridgeDevice, bridgeTimeout)
	if err != nil {
		return err
	}
	defer dev.Close()

	path := ""
	if bridgeTransport == config.TransportWebSocket {
		path = bridgePath
	}
	srv, err := bridge.New(dev, &bridge.Config{
		Host:        bridgeHost,
		Port:        bridgePort,
		Transport:   bridgeTransport,
		Path:        path,
		Instance:    bridgeInstance,
		ReadTimeout: bridgeTimeout,
	})
	if err != nil {
		return err
	}

	addr, err := srv.Listen()
	if err != nil {
		return err
	}

	params := map[string]string{
		"Device":    bridgeDevice,
		"Listening": addr.String(),
		"Transport": bridgeTransport,
	}
	if bridgeInstance != "" {
		params["Announced"] = bridgeInstance
	}
	fmt.Println(ui.NewHeader("Bridge", "framelink bridge", params).Render())
	fmt.Println(ui.MutedStyle.Render("Press Ctrl+C to stop"))

	ctx, stop := signalContext()
	defer stop()
	if err := srv.Serve(ctx); err != nil {
		return err
	}

	fmt.Println(ui.NewSuccessResult("Bridge stopped", map[string]string{
		"Sessions": strconv.Itoa(srv.Sessions()),
	}).Render())
	return nil
}

// configCmd groups configuration file helpers
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write an example configuration",
	Long: `Write an example configuration with a small message catalog to the
configuration path. An existing file is only replaced after confirmation
or with --force.`,
	RunE: runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configForce bool

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file without asking")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil && !configForce {
		if !ui.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("%s exists. Overwrite?", path)) {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}

	if err := config.Example().Save(path); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.NewSuccessResult("Configuration written", map[string]string{
		"Path":     path,
		"Messages": strconv.Itoa(len(config.Example().Messages)),
	}).Render())
	return nil
}
