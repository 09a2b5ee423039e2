// Relayctl is the operator tool for remote relay controllers.
//
// It finds controllers over mDNS, shows and changes their settings, switches
// relays and follows their state live.
//
// Usage:
//
//	relayctl [command] [flags]
//
// See 'relayctl --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/remoterelay/internal/client"
	"github.com/muurk/remoterelay/internal/logging"
	"github.com/muurk/remoterelay/internal/ui"
	"github.com/muurk/remoterelay/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if _, ok := err.(*client.DeviceError); ok {
			ui.NewPrinter(os.Stderr).PrintError(rootCmd.Name(), err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "relayctl",
	Short: "Remote relay controller utility",
	Long: `Operator tool for remote relay controllers.

Find controllers on the network, show and change their settings, switch
relays, and watch their state change live.

Without --device, relayctl scans for controllers and uses the only one it
finds. Known controllers can be addressed by ID or nickname.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Stay quiet unless REMOTERELAY_LOG_LEVEL asks otherwise.
		return logging.InitializeFromEnv()
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Full("relayctl"))
	},
}
