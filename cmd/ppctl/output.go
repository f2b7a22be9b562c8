package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/dukerupert/progresspoint/internal/offline"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// localRefLen is how much of a local id is shown; any unique prefix is
// accepted back.
const localRefLen = 8

// ref is what the user types to address a record: the server id once
// synced, otherwise a local id prefix.
func ref(serverID int64, localID string) string {
	if serverID != 0 {
		return strconv.FormatInt(serverID, 10)
	}
	if len(localID) > localRefLen {
		return localID[:localRefLen]
	}
	return localID
}

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}

func taskRows(tasks []offline.Task) [][]string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		done := " "
		if t.Completed {
			done = "x"
		}
		name := t.Name
		if !t.Synced {
			name += " *"
		}
		rows = append(rows, []string{ref(t.ServerID, t.LocalID), "[" + done + "]", string(t.Priority), name, t.Date})
	}
	return rows
}

func habitRows(habits []offline.Habit) [][]string {
	rows := make([][]string, 0, len(habits))
	for _, h := range habits {
		name := h.Name
		if !h.Synced {
			name += " *"
		}
		rows = append(rows, []string{ref(h.ServerID, h.LocalID), name, h.StartDate, strconv.Itoa(h.Duration) + "d"})
	}
	return rows
}

// emit writes v in the selected format. Table output uses headers and rows;
// json and yaml encode v itself.
func (a *app) emit(v any, headers []string, rows [][]string, empty string) error {
	switch a.format {
	case "json":
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	if len(rows) == 0 {
		fmt.Fprintln(a.out, mutedStyle.Render(empty))
		return nil
	}
	fmt.Fprintln(a.out, renderTable(headers, rows))
	return nil
}

// sourceNote tells the user when data came from the offline cache. Encoded
// output carries the synced flag instead.
func (a *app) sourceNote(src offline.Source) {
	if src == offline.Local && (a.format == "" || a.format == "table") {
		fmt.Fprintln(a.out, pendingStyle.Render("offline: showing cached data, * marks changes waiting to sync"))
	}
}

func savedNote(w io.Writer, what string, src offline.Source) {
	if src == offline.Local {
		fmt.Fprintln(w, pendingStyle.Render(what+" saved offline, it will sync when the server is back"))
		return
	}
	fmt.Fprintln(w, okStyle.Render(what))
}

func progressBar(pct, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := pct * width / 100
	return okStyle.Render(strings.Repeat("█", filled)) + mutedStyle.Render(strings.Repeat("░", width-filled))
}
