package ui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// RunChat runs the chat screen until the user quits or ctx ends, and
// returns what the session amounted to.
func RunChat(ctx context.Context, opts ChatOptions, progOpts ...tea.ProgramOption) (SessionSummary, error) {
	model := NewChatModel(opts)

	progOpts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, progOpts...)
	p := tea.NewProgram(model, progOpts...)

	final, err := p.Run()
	if m, ok := final.(*ChatModel); ok {
		model = m
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return model.Summary(), fmt.Errorf("chat screen: %w", err)
	}
	return model.Summary(), nil
}
