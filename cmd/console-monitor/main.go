// console-monitor is a terminal dashboard over the console API: live
// device status plus the state of both realtime channels.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	onlineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	offlineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("246"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

type device struct {
	ID       string `json:"id"`
	Name     string `json:"nombre"`
	Kind     string `json:"tipo"`
	Status   string `json:"estado"`
	Location string `json:"ubicacion"`
}

type devicesResponse struct {
	Devices []device `json:"devices"`
}

type channelsResponse struct {
	Channels map[string]string `json:"channels"`
}

type refreshMsg struct {
	devices  []device
	channels map[string]string
	err      error
}

type tickMsg time.Time

type model struct {
	baseURL  string
	devices  []device
	channels map[string]string
	err      error
}

func (m model) Init() tea.Cmd {
	return tea.Batch(fetch(m.baseURL), tick())
}

func tick() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func fetch(baseURL string) tea.Cmd {
	return func() tea.Msg {
		client := &http.Client{Timeout: 5 * time.Second}

		var devs devicesResponse
		if err := getJSON(client, baseURL+"/api/v1/devices", &devs); err != nil {
			return refreshMsg{err: err}
		}
		var chans channelsResponse
		if err := getJSON(client, baseURL+"/api/v1/channels", &chans); err != nil {
			return refreshMsg{err: err}
		}
		sort.Slice(devs.Devices, func(i, j int) bool { return devs.Devices[i].ID < devs.Devices[j].ID })
		return refreshMsg{devices: devs.Devices, channels: chans.Channels}
	}
}

func getJSON(client *http.Client, url string, out interface{}) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tickMsg:
		return m, tea.Batch(fetch(m.baseURL), tick())
	case refreshMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.devices = msg.devices
		m.channels = msg.channels
	}
	return m, nil
}

func (m model) View() string {
	s := titleStyle.Render("Signage Console: live devices") + "\n"

	if m.err != nil {
		s += errorStyle.Render("  "+m.err.Error()) + "\n"
		return s + dimStyle.Render("\n  q to quit")
	}

	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		state := m.channels[name]
		style := offlineStyle
		if state == "connected" {
			style = onlineStyle
		} else if state == "disconnected" {
			style = errorStyle
		}
		s += fmt.Sprintf("  %-8s %s\n", name, style.Render(state))
	}
	s += "\n"

	if len(m.devices) == 0 {
		s += dimStyle.Render("  no devices") + "\n"
	}
	for _, d := range m.devices {
		style := offlineStyle
		switch d.Status {
		case "online":
			style = onlineStyle
		case "error":
			style = errorStyle
		}
		name := d.Name
		if name == "" {
			name = d.ID
		}
		s += fmt.Sprintf("  %-24s %-16s %-10s %s\n",
			name, d.Kind, style.Render(d.Status), dimStyle.Render(d.Location))
	}

	return s + dimStyle.Render("\n  q to quit")
}

func main() {
	baseURL := os.Getenv("CONSOLE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:3640"
	}

	p := tea.NewProgram(model{baseURL: baseURL, channels: map[string]string{}})
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
