package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

// newWatchCmd creates the watch command: a live terminal view of chart
// health, polling a running serve instance.
func newWatchCmd() *cobra.Command {
	var (
		apiURL   string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live terminal view of chart health",
		RunE: func(cmd *cobra.Command, args []string) error {
			model := newWatchModel(apiURL, interval)
			p := tea.NewProgram(model, tea.WithContext(cmd.Context()))
			_, err := p.Run()
			return err
		},
	}

	cmd.Flags().StringVar(&apiURL, "api", "http://localhost:8080", "base URL of a running serve instance")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "poll interval")
	return cmd
}

// chartStatus mirrors the serve API's chart representation.
type chartStatus struct {
	ContainerID      string   `json:"container_id"`
	Kind             string   `json:"kind"`
	State            string   `json:"state"`
	LastChecked      string   `json:"last_checked"`
	RecoveryAttempts int      `json:"recovery_attempts"`
	ErrorLog         []string `json:"error_log"`
}

type statusMsg struct {
	charts []chartStatus
	err    error
}

type pollTickMsg struct{}

// watchModel is the bubbletea model for the health view.
type watchModel struct {
	apiURL   string
	interval time.Duration
	charts   []chartStatus
	err      error
}

func newWatchModel(apiURL string, interval time.Duration) watchModel {
	return watchModel{apiURL: apiURL, interval: interval}
}

func (m watchModel) Init() tea.Cmd {
	return m.poll
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			return m, m.poll
		}
	case statusMsg:
		m.charts = msg.charts
		m.err = msg.err
		return m, tea.Tick(m.interval, func(time.Time) tea.Msg { return pollTickMsg{} })
	case pollTickMsg:
		return m, m.poll
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Chart Health"))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("r refresh  q quit"))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(StyleError.Render(fmt.Sprintf("%s %v", iconError, m.err)))
		b.WriteString("\n")
		return b.String()
	}

	rows := make([][]string, 0, len(m.charts))
	for _, c := range m.charts {
		errs := "-"
		if n := len(c.ErrorLog); n > 0 {
			errs = fmt.Sprintf("%d", n)
		}
		rows = append(rows, []string{
			c.ContainerID, c.Kind, c.State,
			fmt.Sprintf("%d", c.RecoveryAttempts), errs,
		})
	}

	t := table.New().
		Headers("CONTAINER", "KIND", "STATE", "RECOVERIES", "ERRORS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return StyleDim
			}
			if col == 2 {
				return stateStyle(m.charts[row].State)
			}
			return StyleValue
		})

	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}

func stateStyle(state string) lipgloss.Style {
	switch state {
	case "Rendered":
		return StyleSuccess
	case "Empty", "Loading", "Pending":
		return StyleWarning
	case "Error", "StaticFallback":
		return StyleError
	default:
		return StyleValue
	}
}

// poll fetches the chart list from the serve API.
func (m watchModel) poll() tea.Msg {
	resp, err := http.Get(m.apiURL + "/api/charts")
	if err != nil {
		return statusMsg{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusMsg{err: fmt.Errorf("api returned status %d", resp.StatusCode)}
	}

	var charts []chartStatus
	if err := json.NewDecoder(resp.Body).Decode(&charts); err != nil {
		return statusMsg{err: err}
	}
	return statusMsg{charts: charts}
}
