package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/BioHazard786/roomtalk/internal/clipboard"
	"github.com/BioHazard786/roomtalk/internal/config"
	"github.com/BioHazard786/roomtalk/internal/session"
	"github.com/BioHazard786/roomtalk/internal/ui"
	"github.com/spf13/cobra"
)

var (
	flagCreateURL    string
	flagCreateDomain string
	flagCreateCopy   bool
)

var errReplyTimeout = errors.New("timed out waiting for the server")

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a room and print its code",
	Long: `Ask the server for a new room, print its code and exit. Share the code
and join with "roomtalk chat --room <code> --name <you>".

Examples:
  roomtalk create
  roomtalk create --copy`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(config.Options{Domain: flagCreateDomain, WebSocketURL: flagCreateURL})
		if err != nil {
			return err
		}
		return createAndShow(cmd.Context(), cfg, flagCreateCopy)
	},
}

func createAndShow(ctx context.Context, cfg *config.Config, copyCode bool) error {
	notes := &heldNotifier{out: ui.PrintNotifier{}}

	sp := ui.NewConnectionSpinner("Connecting to server...")
	sp.Start()
	chatCtx, err := NewChatContext(ctx, cfg, notes, clipboard.New())
	if err != nil {
		sp.Error("Could not reach the server")
		return err
	}
	defer chatCtx.Close()
	sp.Success("Connected to server")

	sp = ui.NewWaitingSpinner("Creating room...")
	sp.Start()
	roomID, err := createRoom(ctx, chatCtx.Controller, cfg.ReplyTimeout)
	if err != nil {
		sp.Error("Room creation failed")
		return err
	}
	sp.Stop()
	notes.release()

	info := ui.NewRoomInfo(roomID, cfg.WebSocketURL)
	if copyCode {
		info.Copied = chatCtx.Controller.CopyRoomCode() == nil
	}
	fmt.Println()
	fmt.Println(info.View())
	return nil
}

// createRoom asks for a room and waits for the server to confirm it.
func createRoom(ctx context.Context, ctrl *session.Controller, timeout time.Duration) (string, error) {
	if err := ctrl.RequestCreateRoom(); err != nil {
		return "", err
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return "", session.NewError("create room", err)
		}

		v := ctrl.Snapshot()
		switch {
		case v.CreatedRoom != "":
			return v.CreatedRoom, nil
		case v.LastFailure != nil:
			return "", v.LastFailure
		case v.Session.Phase != session.PhaseAwaitingRoomCreated:
			return "", session.WrapError("create room", errConnectionLost, v.Connection.String())
		}

		select {
		case <-ctrl.Updates():
		case <-deadline.C:
			return "", session.NewError("create room", errReplyTimeout)
		case <-ctx.Done():
			return "", session.NewError("create room", ctx.Err())
		}
	}
}

var errConnectionLost = errors.New("connection lost")

type heldNote struct {
	kind    session.Kind
	message string
}

// heldNotifier holds notifications back until release, so they do not
// interleave with a running spinner.
type heldNotifier struct {
	out session.Notifier

	mu       sync.Mutex
	released bool
	notes    []heldNote
}

func (h *heldNotifier) Notify(kind session.Kind, message string) {
	h.mu.Lock()
	if !h.released {
		h.notes = append(h.notes, heldNote{kind, message})
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()
	h.out.Notify(kind, message)
}

func (h *heldNotifier) release() {
	h.mu.Lock()
	h.released = true
	notes := h.notes
	h.notes = nil
	h.mu.Unlock()

	for _, n := range notes {
		h.out.Notify(n.kind, n.message)
	}
}

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().StringVarP(&flagCreateURL, "url", "u", "", "Websocket endpoint of the chat server")
	createCmd.Flags().StringVarP(&flagCreateDomain, "domain", "d", "", "Custom domain")
	createCmd.Flags().BoolVarP(&flagCreateCopy, "copy", "c", false, "Copy the room code to the clipboard")
}
