package cmd

import (
	"fmt"

	"github.com/BioHazard786/roomtalk/internal/clipboard"
	"github.com/BioHazard786/roomtalk/internal/config"
	"github.com/BioHazard786/roomtalk/internal/ui"
	"github.com/spf13/cobra"
)

var (
	flagURL    string
	flagDomain string
	flagRoom   string
	flagName   string
)

var chatCmd = &cobra.Command{
	Use:     "chat",
	Aliases: []string{"c"},
	Short:   "Open the chat screen",
	Long: `Open the interactive chat screen. Create a room with ctrl+n, or enter a
name and a room code to join one.

Examples:
  roomtalk chat
  roomtalk chat --room room42 --name Ann
  roomtalk chat --url ws://localhost:8080/ws`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(config.Options{Domain: flagDomain, WebSocketURL: flagURL})
		if err != nil {
			return err
		}

		toasts := ui.NewToastQueue(32)

		sp := ui.NewConnectionSpinner("Connecting to server...")
		sp.Start()
		chatCtx, err := NewChatContext(cmd.Context(), cfg, toasts, clipboard.New())
		if err != nil {
			sp.Error("Could not reach the server")
			return err
		}
		defer chatCtx.Close()
		sp.Success("Connected to server")

		// Both flags given: join straight away.
		if (flagRoom == "") != (flagName == "") {
			ui.PrintWarning("Joining straight away needs both --room and --name; fill in the rest on screen")
		}
		if flagRoom != "" && flagName != "" {
			if err := chatCtx.Controller.RequestJoin(flagRoom, flagName); err != nil {
				return err
			}
		}

		summary, err := ui.RunChat(cmd.Context(), ui.ChatOptions{
			Chat:      chatCtx.Controller,
			Toasts:    toasts.C(),
			Reconnect: func() error { return chatCtx.Reconnect(cmd.Context()) },
			Name:      flagName,
			Room:      flagRoom,
		})
		if err != nil {
			return err
		}

		fmt.Println()
		ui.RenderSessionSummary(ui.IconChat+" Session Summary", summary)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVarP(&flagURL, "url", "u", "", "Websocket endpoint of the chat server")
	chatCmd.Flags().StringVarP(&flagDomain, "domain", "d", "", "Custom domain")
	chatCmd.Flags().StringVarP(&flagRoom, "room", "r", "", "Room code to join")
	chatCmd.Flags().StringVarP(&flagName, "name", "n", "", "Display name")
}
