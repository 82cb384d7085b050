package ui

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// SessionSummary is what a chat session amounted to, printed on exit.
type SessionSummary struct {
	Room        string
	Name        string
	Rooms       int
	Messages    int
	PeakMembers int
	Duration    time.Duration
}

// SessionSummaryView renders the summary as a go-pretty table
func SessionSummaryView(title string, s SessionSummary) string {
	t := table.NewWriter()
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	t.Style().Title.Align = text.AlignCenter
	t.Style().Options.SeparateRows = false

	room := s.Room
	if room == "" {
		room = "-"
	}
	name := s.Name
	if name == "" {
		name = "-"
	}

	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Last Room", room},
		{"Name", name},
		{"Rooms Joined", s.Rooms},
		{"Messages", s.Messages},
		{"Peak Members", s.PeakMembers},
		{"Duration", formatDuration(s.Duration)},
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: text.Colors{text.FgCyan}},
		{Number: 2, Align: text.AlignRight},
	})

	return t.Render()
}

func RenderSessionSummary(title string, s SessionSummary) {
	fmt.Println(SessionSummaryView(title, s))
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
