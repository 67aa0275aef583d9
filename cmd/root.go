package cmd

import (
	"fmt"
	"github.com/ValentinKolb/nsqc/cmd/lookup"
	"github.com/ValentinKolb/nsqc/cmd/tail"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "nsqc",
		Short: "consumer client for discovery driven pub/sub",
		Long: fmt.Sprintf(`nsqc (v%s)

A consumer client that discovers the producers of a topic, keeps one
connection per producer and multiplexes non-blocking I/O across all of them.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of nsqc",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("nsqc v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(tail.TailCmd)
	RootCmd.AddCommand(lookup.LookupCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
