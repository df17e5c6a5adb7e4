package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	statusadapter "github.com/bdlandchain/landchain-cli/internal/adapters/render/status"
	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

const (
	watchTickInterval = 500 * time.Millisecond
	watchMaxRecords   = 20
)

type watchTickMsg time.Time

type watchActionDoneMsg struct {
	lang domain.Language
}

type watchSubmitDoneMsg struct{}

type watchModel struct {
	ctx     context.Context
	app     *app
	rt      *runtime
	lang    domain.Language
	spinner spinner.Model
	busy    string
	help    lipgloss.Style

	// cursor indexes the records currently listed.
	cursor      int
	pendingOnly bool
	// submitting counts registrations and verifications still waiting for the ledger.
	submitting int
	form       *registrationForm
}

func newWatchModel(ctx context.Context, app *app, rt *runtime) watchModel {
	return watchModel{
		ctx:  ctx,
		app:  app,
		rt:   rt,
		lang: app.language(ctx),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
		),
		help: lipgloss.NewStyle().Faint(true).MarginTop(1),
	}
}

func watchTick() tea.Cmd {
	return tea.Tick(watchTickInterval, func(t time.Time) tea.Msg {
		return watchTickMsg(t)
	})
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(watchTick(), m.spinner.Tick)
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case watchTickMsg:
		return m, watchTick()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case watchActionDoneMsg:
		m.busy = ""
		if msg.lang != "" {
			m.lang = msg.lang
		}
		m.clampCursor()
		return m, nil
	case watchSubmitDoneMsg:
		m.submitting = max(m.submitting-1, 0)
		m.clampCursor()
		return m, nil
	default:
		return m, nil
	}
}

func (m watchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.form != nil {
		return m.handleFormKey(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "d":
		m.rt.coordinator.Disconnect()
		return m, nil
	case "up", "k":
		m.cursor--
		m.clampCursor()
		return m, nil
	case "down", "j":
		m.cursor++
		m.clampCursor()
		return m, nil
	case "p":
		m.pendingOnly = !m.pendingOnly
		m.cursor = 0
		return m, nil
	case "v":
		record, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m.submit(func(ctx context.Context) {
			_, _ = m.rt.coordinator.VerifyLand(ctx, record.UID)
		})
	case "n":
		m.form = newRegistrationForm()
		return m, textinput.Blink
	}

	// One action at a time; results surface as notifications.
	if m.busy != "" {
		return m, nil
	}

	switch msg.String() {
	case "c":
		m.busy = "connecting"
		return m, func() tea.Msg {
			_, _ = m.rt.coordinator.Connect(m.ctx)
			return watchActionDoneMsg{}
		}
	case "r":
		m.busy = "refreshing"
		return m, func() tea.Msg {
			_ = m.rt.coordinator.Refresh(m.ctx)
			return watchActionDoneMsg{}
		}
	case "l":
		m.busy = "saving language"
		return m, func() tea.Msg {
			lang, err := m.app.preferences.ToggleLanguage(m.ctx)
			if err != nil {
				m.app.logger.Warn("toggle language", "error", err.Error())
				return watchActionDoneMsg{}
			}
			return watchActionDoneMsg{lang: lang}
		}
	default:
		return m, nil
	}
}

func (m watchModel) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.form = nil
		return m, nil
	case "tab", "down":
		return m, m.form.move(1)
	case "shift+tab", "up":
		return m, m.form.move(-1)
	case "enter":
		if m.form.focus < len(m.form.fields)-1 {
			return m, m.form.move(1)
		}
		input, err := m.form.input()
		if err != nil {
			m.form.err = err.Error()
			return m, nil
		}
		m.form = nil
		return m.submit(func(ctx context.Context) {
			_, _ = m.rt.coordinator.RegisterLand(ctx, input)
		})
	}

	return m, m.form.update(msg)
}

// submit runs a ledger write in the background.
func (m watchModel) submit(work func(ctx context.Context)) (tea.Model, tea.Cmd) {
	m.submitting++
	return m, func() tea.Msg {
		work(m.ctx)
		return watchSubmitDoneMsg{}
	}
}

func (m watchModel) listed() []domain.LandRecord {
	if m.pendingOnly {
		return m.rt.coordinator.PendingRecords()
	}
	return m.rt.coordinator.Records()
}

func (m watchModel) selected() (domain.LandRecord, bool) {
	records := m.listed()
	if m.cursor < 0 || m.cursor >= min(len(records), watchMaxRecords) {
		return domain.LandRecord{}, false
	}
	return records[m.cursor], true
}

func (m *watchModel) clampCursor() {
	limit := min(len(m.listed()), watchMaxRecords)
	if m.cursor >= limit {
		m.cursor = limit - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m watchModel) snapshot() statusadapter.Snapshot {
	snapshot := statusadapter.Snapshot{
		Network:      m.app.cfg.Network,
		Wallet:       m.rt.coordinator.Wallet(),
		Records:      m.rt.coordinator.Records(),
		Transactions: m.rt.coordinator.RecentTransactions(),
		Toasts:       m.rt.coordinator.Notifications(),
		Language:     m.lang,
	}
	if tx, ok := m.rt.coordinator.LatestTransaction(); ok {
		snapshot.LatestTx = &tx
	}
	return snapshot
}

func (m watchModel) View() string {
	opts := statusadapter.RenderOptions{
		Now:          m.app.now(),
		PendingOnly:  m.pendingOnly,
		MaxRecords:   watchMaxRecords,
		DisplayLimit: m.app.cfg.Tracker.DisplayWindow,
	}
	if record, ok := m.selected(); ok {
		opts.Selected = record.UID
	}

	lines := []string{statusadapter.View(m.snapshot(), opts)}
	if m.busy != "" {
		lines = append(lines, fmt.Sprintf("%s %s", m.spinner.View(), m.busy))
	}
	if m.submitting > 0 {
		lines = append(lines, fmt.Sprintf("%s waiting for %d transaction(s)", m.spinner.View(), m.submitting))
	}
	if m.form != nil {
		lines = append(lines, m.help.Render("register land"), m.form.view())
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}
	lines = append(lines, m.help.Render(strings.Join([]string{
		"c connect", "d disconnect", "r refresh", "↑/↓ select", "p pending", "v verify", "n register", "l language", "q quit",
	}, " • ")))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func newWatchCmd(app *app) *cobra.Command {
	var metricsListen string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Interactive dashboard for the wallet session, records and transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if metricsListen != "" {
				stop, err := serveMetrics(ctx, app, metricsListen)
				if err != nil {
					return err
				}
				defer stop()
			}

			prompter := &releasingPrompter{inner: newTerminalPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())}
			rt, err := app.openRuntime(ctx, runtimeOptions{prompter: prompter})
			if err != nil {
				return err
			}
			defer rt.Close()

			p := tea.NewProgram(
				newWatchModel(ctx, app, rt),
				tea.WithContext(ctx),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
				tea.WithAltScreen(),
			)
			prompter.program = p

			_, err = p.Run()
			if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "Serve prometheus metrics on this address, e.g. 127.0.0.1:9464")

	return cmd
}

// releasingPrompter hands the terminal back from the dashboard while the keystore
// agent asks for an approval or a passphrase.
type releasingPrompter struct {
	inner   *terminalPrompter
	program *tea.Program
}

func (p *releasingPrompter) Confirm(ctx context.Context, question string) (bool, error) {
	restore := p.release()
	defer restore()
	return p.inner.Confirm(ctx, question)
}

func (p *releasingPrompter) Passphrase(ctx context.Context, account common.Address) (string, error) {
	restore := p.release()
	defer restore()
	return p.inner.Passphrase(ctx, account)
}

func (p *releasingPrompter) release() func() {
	if p.program == nil {
		return func() {}
	}
	if err := p.program.ReleaseTerminal(); err != nil {
		return func() {}
	}
	return func() { _ = p.program.RestoreTerminal() }
}

func serveMetrics(ctx context.Context, app *app, addr string) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", app.metrics.Handler())
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error("metrics server stopped", "error", err.Error())
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}, nil
}
