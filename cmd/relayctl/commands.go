package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/remoterelay/internal/client"
	"github.com/muurk/remoterelay/internal/discovery"
	"github.com/muurk/remoterelay/internal/relay"
	"github.com/muurk/remoterelay/internal/ui"
)

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(channelCmd)
	rootCmd.AddCommand(watchCmd)
	for _, cmd := range lifecycleCmds() {
		rootCmd.AddCommand(cmd)
	}
}

// printJSON writes v indented when --format json is set and reports
// whether it did.
func printJSON(v any) (bool, error) {
	if outputFormat != "json" {
		return false, nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return true, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return true, nil
}

// withTarget resolves the controller and runs fn against it.
func withTarget(fn func(ctx context.Context, t *target) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		t, err := resolveTarget(ctx)
		if err != nil {
			return err
		}
		return fn(ctx, t)
	}
}

var scanTimeout int

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for controllers on the network",
	Long: `Listen for mDNS announcements of remote relay controllers and list them.
Controllers found are remembered in the registry, so later commands can
address them by ID or nickname.`,
	Example: `  # Scan for 5 seconds (default)
  relayctl scan

  # Longer scan on a busy network
  relayctl scan --scan-timeout 15`,
	RunE: func(cmd *cobra.Command, args []string) error {
		scanner := discovery.NewScanner()
		scanner.Timeout = time.Duration(scanTimeout) * time.Second

		fmt.Printf("Scanning for controllers (timeout: %ds)...\n\n", scanTimeout)
		devices, err := scanner.ScanForDevices(cmd.Context())
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		reg := openRegistry()
		for _, d := range devices {
			reg.Seen(d.ID, net.JoinHostPort(d.IP, strconv.Itoa(d.Port)), d.DiscoveredAt)
		}
		if len(devices) > 0 {
			saveRegistry(reg)
		}

		if done, err := printJSON(devices); done {
			return err
		}
		if len(devices) == 0 {
			fmt.Println("No controllers found.")
			fmt.Println("\nTroubleshooting:")
			fmt.Println("  - Check that relayd is running and its uplink is up")
			fmt.Println("  - A controller in access point mode is only visible on its RemoteRelay network")
			fmt.Println("  - Try a longer --scan-timeout")
			return nil
		}

		fmt.Printf("Found %d controller(s):\n\n", len(devices))
		p := ui.NewPrinter(nil)
		for i, d := range devices {
			name := d.ID
			if c, ok := reg.Controllers[d.ID]; ok && c.Nickname != "" {
				name += " (" + c.Nickname + ")"
			}
			fmt.Printf("%d. %s\n", i+1, name)
			p.PrintFields(map[string]string{
				"Address":  d.BaseURL(),
				"Version":  d.GetMetadata("version"),
				"Channels": strconv.Itoa(d.Channels()),
				"Auth":     strconv.FormatBool(d.RequiresAuth()),
			})
			fmt.Println()
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "scan-timeout", int(discovery.DefaultScanTimeout/time.Second), "Scan timeout in seconds")
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change controller settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show controller settings",
	RunE: withTarget(func(ctx context.Context, t *target) error {
		s, err := t.Client.GetSettings()
		if err != nil {
			return err
		}
		if done, err := printJSON(s); done {
			return err
		}
		p := ui.NewPrinter(nil)
		p.PrintHeader("Settings", t.ID)
		p.PrintFields(map[string]string{
			"Login":       s.Login,
			"Debug":       strconv.FormatBool(s.Debug),
			"Serial echo": strconv.FormatBool(s.Serial),
			"Web service": strconv.FormatBool(s.Webservice),
			"Portal":      strconv.FormatBool(s.Portal),
		})
		return nil
	}),
}

var settingsSetCmd = &cobra.Command{
	Use:   "set name=value...",
	Short: "Change controller settings",
	Long: `Change one or more settings and store them on the controller.

Names: debug, serial, webservice, wifimanager_portal (true/false) and
login, password, ssid, wpa_key. Give password or wpa_key as "-" to be
prompted without echo.

Wireless and web service changes take effect after a restart.`,
	Example: `  # Turn on debug logging
  relayctl settings set debug=true

  # Change the password, prompting for it
  relayctl settings set password=-

  # Join a network on next restart
  relayctl settings set ssid=Workshop wpa_key=- wifimanager_portal=false`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pairs, err := parseAssignments(args)
		if err != nil {
			return err
		}
		for _, name := range []string{"password", "wpa_key"} {
			if pairs[name] == "-" {
				secret, err := promptSecret(name + ": ")
				if err != nil {
					return err
				}
				pairs[name] = secret
			}
		}
		update, err := client.ParseSettingsArgs(pairs)
		if err != nil {
			return err
		}

		return withTarget(func(ctx context.Context, t *target) error {
			s, err := t.Client.UpdateSettings(update)
			if err != nil {
				return err
			}
			if done, err := printJSON(s); done {
				return err
			}
			ui.NewPrinter(nil).PrintSuccess("Settings stored on "+t.ID, map[string]string{
				"Changed": strings.Join(sortedKeys(pairs), ", "),
			})
			return nil
		})(cmd, args)
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}

// parseAssignments splits name=value arguments.
func parseAssignments(args []string) (map[string]string, error) {
	pairs := make(map[string]string, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("expected name=value, got %q", arg)
		}
		if _, dup := pairs[name]; dup {
			return nil, fmt.Errorf("%s given twice", name)
		}
		pairs[name] = value
	}
	return pairs, nil
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the controller state",
	RunE: withTarget(func(ctx context.Context, t *target) error {
		s, err := t.Client.GetState()
		if err != nil {
			return err
		}
		if done, err := printJSON(s); done {
			return err
		}
		p := ui.NewPrinter(nil)
		p.PrintHeader("State", t.ID)
		p.PrintState(s)
		return nil
	}),
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Print the controller's recent log",
	RunE: withTarget(func(ctx context.Context, t *target) error {
		text, err := t.Client.GetLog()
		if err != nil {
			return err
		}
		fmt.Print(text)
		return nil
	}),
}

var channelCmd = &cobra.Command{
	Use:   "channel",
	Short: "Read, switch or label relay channels",
}

var channelGetCmd = &cobra.Command{
	Use:   "get <channel>",
	Short: "Show one relay channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ch, err := parseChannel(args[0])
		if err != nil {
			return err
		}
		return withTarget(func(ctx context.Context, t *target) error {
			s, err := t.Client.GetChannel(ch)
			if err != nil {
				return err
			}
			if done, err := printJSON(s); done {
				return err
			}
			fmt.Println(ui.RenderChannel(t.Registry.ChannelLabel(t.ID, ch), s.On()))
			return nil
		})(cmd, args)
	},
}

var channelSetCmd = &cobra.Command{
	Use:   "set <channel> <on|off>",
	Short: "Switch one relay channel",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ch, err := parseChannel(args[0])
		if err != nil {
			return err
		}
		on, err := relay.ParseMode(args[1])
		if err != nil {
			return fmt.Errorf("%q: use on or off", args[1])
		}
		return withTarget(func(ctx context.Context, t *target) error {
			s, err := t.Client.SetChannel(ch, on)
			if err != nil {
				return err
			}
			if done, err := printJSON(s); done {
				return err
			}
			fmt.Println(ui.RenderChannel(t.Registry.ChannelLabel(t.ID, ch), s.On()))
			return nil
		})(cmd, args)
	},
}

var channelLabelCmd = &cobra.Command{
	Use:   "label <channel> [label]",
	Short: "Name a relay channel locally",
	Long: `Store a label for a channel in the relayctl registry. The controller
itself does not know channel names. Without a label the entry is removed.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ch, err := parseChannel(args[0])
		if err != nil {
			return err
		}
		if deviceArg == "" {
			return fmt.Errorf("--device is required to label a channel")
		}
		reg := openRegistry()
		id := deviceArg
		if resolved, _, ok := reg.Resolve(deviceArg); ok {
			id = resolved
		}
		label := ""
		if len(args) == 2 {
			label = args[1]
		}
		reg.SetChannelLabel(id, ch, label)
		saveRegistry(reg)
		fmt.Printf("%s channel %d: %s\n", id, ch, reg.ChannelLabel(id, ch))
		return nil
	},
}

func init() {
	channelCmd.AddCommand(channelGetCmd)
	channelCmd.AddCommand(channelSetCmd)
	channelCmd.AddCommand(channelLabelCmd)
}

func parseChannel(s string) (int, error) {
	ch, err := strconv.Atoi(s)
	if err != nil || ch < 1 || ch > relay.MaxChannels {
		return 0, fmt.Errorf("channel must be 1..%d, got %q", relay.MaxChannels, s)
	}
	return ch, nil
}

var watchChannels int

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the controller state live",
	Long: `Open the controller's event stream and show every state change.
Number keys switch the relays.`,
	RunE: withTarget(func(ctx context.Context, t *target) error {
		states, errs, err := t.Client.Watch(ctx)
		if err != nil {
			return err
		}
		return ui.RunWatch(ui.WatchSource{
			Title:    t.ID,
			States:   states,
			Errs:     errs,
			Channels: watchChannels,
			Label:    func(ch int) string { return t.Registry.ChannelLabel(t.ID, ch) },
			Fetch:    t.Client.GetChannel,
			Set:      t.Client.SetChannel,
		})
	}),
}

func init() {
	watchCmd.Flags().IntVar(&watchChannels, "channels", 2, "Number of relay channels to show")
}

var assumeYes bool

// lifecycleCmds builds reset, erase, shutdown and restart.
func lifecycleCmds() []*cobra.Command {
	type action struct {
		use, short, done string
		confirm          func(id string) bool
		call             func(c *client.Client) error
	}
	actions := []action{
		{"reset", "Restore factory settings and restart", "Factory reset requested",
			func(id string) bool { return ui.ConfirmReset(os.Stdin, os.Stdout, id) },
			(*client.Client).Reset},
		{"erase", "Erase the settings flash and restart", "Erase requested",
			func(id string) bool { return ui.ConfirmErase(os.Stdin, os.Stdout, id) },
			(*client.Client).Erase},
		{"shutdown", "Halt the controller", "Shutdown requested", nil, (*client.Client).Shutdown},
		{"restart", "Restart the controller", "Restart requested", nil, (*client.Client).Restart},
	}

	cmds := make([]*cobra.Command, 0, len(actions))
	for _, a := range actions {
		a := a
		cmd := &cobra.Command{
			Use:   a.use,
			Short: a.short,
			RunE: withTarget(func(ctx context.Context, t *target) error {
				if a.confirm != nil && !assumeYes && !a.confirm(t.ID) {
					return nil
				}
				if err := a.call(t.Client); err != nil {
					return err
				}
				ui.NewPrinter(nil).PrintSuccess(a.done, map[string]string{"Controller": t.ID})
				return nil
			}),
		}
		if a.confirm != nil {
			cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
		}
		cmds = append(cmds, cmd)
	}
	return cmds
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
