package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/scottzero/facts-that-arent-fun-at-all/internal/browser"
	"github.com/scottzero/facts-that-arent-fun-at-all/internal/config"
	"github.com/scottzero/facts-that-arent-fun-at-all/internal/ratelimit"
	"github.com/scottzero/facts-that-arent-fun-at-all/internal/session"
	"github.com/scottzero/facts-that-arent-fun-at-all/internal/update"
)

const title = "facts that aren't fun at all"

type App struct {
	ctx     context.Context
	cfg     *config.Config
	session *session.Session
	display *Display
	limiter *ratelimit.Limiter
	version string

	width  int
	height int

	spinner spinner.Model

	// State
	current       string
	busy          bool
	rate          *session.RateLimitInfo
	counting      bool
	showHelp      bool
	updateVersion string
	currentDate   string
	err           error
	now           func() time.Time
}

// RunOpts holds all parameters for launching the TUI.
type RunOpts struct {
	Cfg     *config.Config
	Session *session.Session
	Display *Display
	// Limiter is only read for the status bar; nil hides the quota.
	Limiter *ratelimit.Limiter
	Version string
}

func NewApp(ctx context.Context, opts RunOpts) *App {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = spinnerStyle

	return &App{
		ctx:         ctx,
		cfg:         opts.Cfg,
		session:     opts.Session,
		display:     opts.Display,
		limiter:     opts.Limiter,
		version:     opts.Version,
		spinner:     sp,
		busy:        true,
		currentDate: time.Now().Format("Jan 2"),
		now:         time.Now,
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.display.listen(),
		a.startCmd(),
		a.spinner.Tick,
		checkUpdateCmd(a.ctx, a.version),
	)
}

func (a *App) startCmd() tea.Cmd {
	ctx, s := a.ctx, a.session
	return func() tea.Msg {
		s.Start(ctx)
		return nil
	}
}

// tapCmd runs the tap off the UI goroutine; results arrive through the display.
func (a *App) tapCmd() tea.Cmd {
	ctx, s := a.ctx, a.session
	return func() tea.Msg {
		s.Tap(ctx)
		return nil
	}
}

func checkUpdateCmd(ctx context.Context, version string) tea.Cmd {
	return func() tea.Msg {
		res := update.Check(ctx, version)
		if res == nil {
			return nil
		}
		return updateAvailableMsg{version: res.LatestVersion}
	}
}

func countdownCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return countdownMsg{}
	})
}

func openBrowserCmd(url string) tea.Cmd {
	return func() tea.Msg {
		if err := browser.Open(url); err != nil {
			return lookupErrMsg{err: err}
		}
		return nil
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.KeyMsg:
		// Clear sticky error on any keypress
		a.err = nil
		return a.handleKey(msg)

	case factDisplayedMsg:
		return a, a.applyDisplay(msg)

	case countdownMsg:
		if a.rate == nil {
			a.counting = false
			return a, nil
		}
		a.rate.SecondsRemaining = secondsUntil(a.rate.RetryAt, a.now())
		return a, countdownCmd()

	case updateAvailableMsg:
		a.updateVersion = msg.version
		return a, nil

	case lookupErrMsg:
		a.err = msg.err
		return a, nil

	case spinner.TickMsg:
		if a.busy {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	return a, nil
}

func (a *App) applyDisplay(msg factDisplayedMsg) tea.Cmd {
	cmds := []tea.Cmd{a.display.listen()}

	if msg.busy && !a.busy {
		cmds = append(cmds, a.spinner.Tick)
	}
	a.busy = msg.busy
	if msg.current != "" {
		a.current = msg.current
	}

	if msg.info != nil {
		info := *msg.info
		a.rate = &info
		if !a.counting {
			a.counting = true
			cmds = append(cmds, countdownCmd())
		}
	} else {
		a.rate = nil
	}

	return tea.Batch(cmds...)
}

// canTap mirrors the session's own guard so the button greys out.
func (a *App) canTap() bool {
	return !a.busy && a.rate == nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return a, tea.Quit
	}

	if a.showHelp {
		switch msg.String() {
		case "?", "esc", "q":
			a.showHelp = false
		}
		return a, nil
	}

	switch msg.String() {
	case "q":
		return a, tea.Quit
	case " ", "enter", "n":
		if !a.canTap() {
			return a, nil
		}
		return a, a.tapCmd()
	case "s", "o":
		if a.cfg == nil {
			return a, nil
		}
		link := a.cfg.LookupLink(a.current)
		if link == "" {
			return a, nil
		}
		return a, openBrowserCmd(link)
	case "?":
		a.showHelp = true
		return a, nil
	}

	return a, nil
}

func (a *App) quota() quota {
	if a.limiter == nil {
		return quota{}
	}
	d := a.limiter.Peek(a.now())
	return quota{remaining: d.Remaining, limit: d.Limit}
}

func (a *App) View() string {
	if a.width == 0 {
		return lipgloss.NewStyle().Foreground(colorAccent).Render("  " + title)
	}

	if a.showHelp {
		return a.withBottomBar(a.renderHelp())
	}

	// Header
	headerRight := headerDateStyle.Render(a.currentDate)
	headerLeft := headerStyle.Render(truncateStr(title, a.width-lipgloss.Width(headerRight)-2))
	headerGap := a.width - lipgloss.Width(headerLeft) - lipgloss.Width(headerRight)
	if headerGap < 0 {
		headerGap = 0
	}
	header := headerLeft + fmt.Sprintf("%*s", headerGap, "") + headerRight

	// Body
	var body []string
	body = append(body, "", "")
	body = append(body, centerBlock(renderFact(a.current, a.busy, a.spinner.View(), cardWidth(a.width)), a.width))
	body = append(body, "")
	body = append(body, centerBlock(renderButton(a.canTap()), a.width))
	if a.busy && a.current != "" {
		body = append(body, "", centerBlock(a.spinner.View()+" fetching...", a.width))
	}
	if a.rate != nil {
		body = append(body, "", centerBlock(rateNotice(a.rate.SecondsRemaining), a.width))
	}
	if a.updateVersion != "" {
		body = append(body, "", centerBlock(updateStyle.Render("update available: v"+a.updateVersion), a.width))
	}

	content := header + "\n" + strings.Join(body, "\n")
	return a.withBottomBar(content)
}

func (a *App) withBottomBar(content string) string {
	bar := renderStatusBar(a.session.Queued(), a.session.SeenCount(), a.quota(), a.width, a.busy)
	if a.err != nil {
		bar = noticeStyle.Render(a.err.Error())
	}

	lines := strings.Split(content, "\n")
	for len(lines) < a.height-1 {
		lines = append(lines, "")
	}
	if len(lines) >= a.height {
		lines = lines[:max(a.height-1, 0)]
	}
	lines = append(lines, bar)
	return strings.Join(lines, "\n")
}

func (a *App) renderHelp() string {
	heading := lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render(title)
	dim := helpDimStyle

	help := heading + dim.Render(" · keys") + "\n\n" +
		"  space, enter, n   Next fact\n" +
		"  s, o              Look the fact up in your browser\n" +
		"  ?                 Toggle this help\n" +
		"  q, ctrl+c         Quit\n\n" +
		dim.Render(fmt.Sprintf("session %s", a.session.ID()))

	card := helpCardStyle.Render(help)

	return lipgloss.Place(a.width, max(a.height-1, 1), lipgloss.Center, lipgloss.Center, card)
}

// Run starts the TUI application and blocks until it exits.
func Run(ctx context.Context, opts RunOpts) error {
	app := NewApp(ctx, opts)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	opts.Display.Close()
	return err
}
