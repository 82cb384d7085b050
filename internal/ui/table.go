package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// MemberTable renders the people in a room using lipgloss/table
type MemberTable struct {
	members []string
	self    string
}

// NewMemberTable creates a member table; self is marked as "(you)"
func NewMemberTable(members []string, self string) *MemberTable {
	return &MemberTable{members: members, self: self}
}

// View renders the table as a string
func (t *MemberTable) View() string {
	if len(t.members) == 0 {
		return MutedStyle.Render("Nobody here yet")
	}

	var rows [][]string
	for i, name := range t.members {
		label := truncate(name, 20)
		if name == t.self {
			label += " (you)"
		}
		rows = append(rows, []string{fmt.Sprintf("%d", i+1), label})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("#", IconPeople+" Members").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

// RoomInfo is the box shown once the server confirms a new room.
type RoomInfo struct {
	RoomID string
	Server string
	Copied bool
}

func NewRoomInfo(roomID, server string) *RoomInfo {
	return &RoomInfo{RoomID: roomID, Server: server}
}

func (r *RoomInfo) View() string {
	content := fmt.Sprintf("%s Room Created!\n\n%s Room Code:  %s\n%s Server:     %s",
		IconSuccess,
		IconRoom, BoldStyle.Foreground(Primary).Render(r.RoomID),
		IconWeb, MutedStyle.Render(r.Server),
	)
	if r.Copied {
		content += "\n\n" + MutedStyle.Render(IconCopy+" Copied to clipboard")
	}
	content += "\n\n" + MutedStyle.Render(fmt.Sprintf("Share the code, then run: roomtalk chat --room %s --name <you>", r.RoomID))

	return SuccessBoxStyle.Render(content)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return strings.TrimSpace(string(r[:max-3])) + "..."
}
