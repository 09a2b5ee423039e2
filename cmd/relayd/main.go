// Relayd runs a network-attached relay controller on a Linux or macOS host.
//
// It keeps the controller settings in a flash sector image, answers the
// companion radio's AT commands on the serial link, drives the relay board
// and serves the HTTP API advertised over mDNS.
//
// Usage:
//
//	relayd run [flags]
//
// See 'relayd --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/remoterelay/internal/atcmd"
	"github.com/muurk/remoterelay/internal/config"
	"github.com/muurk/remoterelay/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "relayd",
	Short: "Remote relay controller daemon",
	Long: `relayd turns a host with a serial-attached relay board into a remote
relay controller.

Settings survive restarts in a flash sector image. The companion radio on
the serial link reports wireless status with AT commands, and the HTTP API
switches relays and manages the controller.`,
	Version: version.Version,
}

var configPath string

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to relayd.yaml (default: user config directory)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(initConfigCmd)
	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveConfigPath returns --config or the default location.
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath(config.DaemonFile)
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write a default relayd.yaml",
	Long: `Write the default configuration to the config file so it can be edited.
An existing file is left alone unless --force is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.DefaultDaemon().Save(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

func init() {
	initConfigCmd.Flags().Bool("force", false, "Overwrite an existing file")
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := atcmd.Ports()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Println("No serial ports found.")
			return nil
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Full("relayd"))
	},
}
