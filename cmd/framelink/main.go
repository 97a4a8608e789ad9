// Framelink talks to devices that speak a framed binary message protocol over
// a byte stream.
//
// It opens a serial port, TCP socket or WebSocket, performs the optional
// handshake and prints (or tabulates) every registered message it receives.
// It can also expose a local serial device on the network as a bridge that
// other framelink instances find through mDNS.
//
// Usage:
//
//	framelink [command] [flags]
//
// See 'framelink --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/framelink/internal/logging"
	"github.com/muurk/framelink/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "framelink",
	Short: "Framed message protocol client",
	Long: `A client for devices that exchange header/footer framed, big-endian
messages over a serial port, TCP socket or WebSocket.

Messages are described in the configuration file by id and layout. Use
'framelink config init' to write an example configuration.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (default: user config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); falls back to "+logging.LogLevelEnvVar)

	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(bridgeCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("framelink %s\n", version.Full())
	},
}
