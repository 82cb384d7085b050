package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/BioHazard786/roomtalk/internal/ui"
	"github.com/BioHazard786/roomtalk/internal/version"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "roomtalk",
	Short:   "Terminal chat rooms over a websocket relay",
	Long:    `RoomTalk is a command-line chat client. Create a room, share its code, and talk with everyone who joins it, right from the terminal.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}
