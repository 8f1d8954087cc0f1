// Package status renders the persisted BNC state for the offline status
// command.
package status

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/bncbot/internal/domain"
)

// Render returns a human-readable view of the user table and request queue.
func Render(state domain.State) string {
	return renderView(state, newStyles())
}

func renderView(state domain.State, s styles) string {
	lines := []string{
		s.title.Render("BNC Accounts"),
		s.header.Render(fmt.Sprintf("users: %d, queued requests: %d", len(state.Users), len(state.Queue))),
	}

	lines = append(lines, s.section.Render(renderUsers(state.Users, s)))
	lines = append(lines, s.section.Render(renderQueue(state.Queue, s)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderUsers(users map[string]string, s styles) string {
	if len(users) == 0 {
		return s.empty.Render("No BNC users recorded.")
	}

	parts := []string{s.account.Render("Users")}
	for _, name := range sortedKeys(users) {
		host := users[name]
		if host == "" {
			parts = append(parts, s.pending.Render(fmt.Sprintf("  %s (bind host pending)", name)))
			continue
		}
		parts = append(parts, s.detail.Render(fmt.Sprintf("  %s  %s", name, host)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderQueue(queue map[string]string, s styles) string {
	if len(queue) == 0 {
		return s.empty.Render("Request queue is empty.")
	}

	parts := []string{s.account.Render("Queue")}
	for _, name := range sortedKeys(queue) {
		parts = append(parts, s.detail.Render(fmt.Sprintf("  %s  registered %s", name, queue[name])))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
