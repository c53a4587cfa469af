package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/vvka-141/pgjson/pkg/pgjson"
)

type stepState int

const (
	statePending stepState = iota
	stateRunning
	stateDone
	stateFailed
)

type stepRow struct {
	step    pgjson.Step
	state   stepState
	detail  string
	started time.Time
	elapsed time.Duration
}

type (
	stepStartedMsg struct {
		step pgjson.Step
		at   time.Time
	}
	stepCompletedMsg struct {
		step   pgjson.Step
		detail string
		at     time.Time
	}
	stepFailedMsg struct {
		step pgjson.Step
		err  error
		at   time.Time
	}
	workDoneMsg struct{ err error }
)

const maxBarWidth = 60

// progressModel draws one line per step and an overall bar.
type progressModel struct {
	title   string
	rows    []stepRow
	index   map[pgjson.Step]int
	spinner spinner.Model
	bar     progress.Model
	cancel  key.Binding
	onStop  context.CancelFunc

	stopping bool
	done     bool
	err      error
}

func newProgressModel(title string, steps []pgjson.Step, onStop context.CancelFunc) progressModel {
	m := progressModel{
		title: title,
		index: make(map[pgjson.Step]int, len(steps)),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(SpinnerStyle),
		),
		bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		cancel: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("ctrl+c", "cancel"),
		),
		onStop: onStop,
	}
	for i, s := range steps {
		m.rows = append(m.rows, stepRow{step: s})
		m.index[s] = i
	}
	return m
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.cancel) && !m.stopping {
			m.stopping = true
			if m.onStop != nil {
				m.onStop()
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.bar.Width = min(maxBarWidth, max(10, msg.Width-4))
		return m, nil

	case stepStartedMsg:
		if row := m.row(msg.step); row != nil {
			row.state = stateRunning
			row.started = msg.at
		}
		return m, nil

	case stepCompletedMsg:
		if row := m.row(msg.step); row != nil {
			row.state = stateDone
			row.detail = msg.detail
			row.elapsed = since(row.started, msg.at)
		}
		return m, nil

	case stepFailedMsg:
		if row := m.row(msg.step); row != nil {
			row.state = stateFailed
			row.detail = msg.err.Error()
			row.elapsed = since(row.started, msg.at)
		}
		return m, nil

	case workDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) row(step pgjson.Step) *stepRow {
	i, ok := m.index[step]
	if !ok {
		return nil
	}
	return &m.rows[i]
}

func since(start, end time.Time) time.Duration {
	if start.IsZero() {
		return 0
	}
	return end.Sub(start).Round(time.Millisecond)
}

// fraction is the share of steps that finished, failed ones included.
func (m progressModel) fraction() float64 {
	if len(m.rows) == 0 {
		return 0
	}
	finished := 0
	for _, r := range m.rows {
		if r.state == stateDone || r.state == stateFailed {
			finished++
		}
	}
	return float64(finished) / float64(len(m.rows))
}

func (m progressModel) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(m.title))
	b.WriteString("\n")

	for _, r := range m.rows {
		var symbol string
		switch r.state {
		case stateRunning:
			symbol = m.spinner.View()
		case stateDone:
			symbol = SuccessStyle.Render(SymbolCheck)
		case stateFailed:
			symbol = ErrorStyle.Render(SymbolCross)
		default:
			symbol = MutedStyle.Render(SymbolPending)
		}

		line := symbol + " " + StepStyle.Render(r.step.String())
		switch r.state {
		case stateDone:
			line += MutedStyle.Render(fmt.Sprintf("%s (%v)", r.detail, r.elapsed))
		case stateFailed:
			line += ErrorStyle.Render(r.detail)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n" + m.bar.ViewAs(m.fraction()) + "\n")

	switch {
	case m.done && m.err != nil:
		b.WriteString(ErrorStyle.Render(SymbolCross+" "+m.err.Error()) + "\n")
	case m.done:
		b.WriteString(SuccessStyle.Render(SymbolCheck+" done") + "\n")
	case m.stopping:
		b.WriteString(WarningStyle.Render("cancelling...") + "\n")
	default:
		b.WriteString(HelpStyle.Render(m.cancel.Help().Key+" "+m.cancel.Help().Desc) + "\n")
	}
	return b.String()
}

// Reporter forwards step progress and log lines to a running progress view.
// It implements pgjson.ProgressReporter and pgjson.Logger.
type Reporter struct {
	send    func(tea.Msg)
	println func(...interface{})
	now     func() time.Time
	verbose bool
}

var (
	_ pgjson.ProgressReporter = (*Reporter)(nil)
	_ pgjson.Logger           = (*Reporter)(nil)
)

func (r *Reporter) StepStarted(step pgjson.Step) {
	r.send(stepStartedMsg{step: step, at: r.now()})
}

func (r *Reporter) StepCompleted(step pgjson.Step, detail string) {
	r.send(stepCompletedMsg{step: step, detail: detail, at: r.now()})
}

func (r *Reporter) StepFailed(step pgjson.Step, err error) {
	r.send(stepFailedMsg{step: step, err: err, at: r.now()})
}

func (r *Reporter) Verbose(format string, args ...interface{}) {
	if r.verbose {
		r.println(MutedStyle.Render(fmt.Sprintf(format, args...)))
	}
}

func (r *Reporter) Info(format string, args ...interface{}) {
	r.println(fmt.Sprintf(format, args...))
}

func (r *Reporter) Error(format string, args ...interface{}) {
	r.println(ErrorStyle.Render("[ERROR] " + fmt.Sprintf(format, args...)))
}

// RunWithProgress runs work while drawing its progress on stderr.
//
// The view and work run in separate goroutines. Pressing ctrl+c cancels the
// context passed to work; the view stays up until work returns so the
// failed step is shown. When the view exits first (a signal, for example)
// the context is cancelled and later progress and log lines are dropped.
// The error of work is returned.
func RunWithProgress(
	ctx context.Context,
	title string,
	steps []pgjson.Step,
	verbose bool,
	work func(ctx context.Context, r *Reporter) error,
	opts ...tea.ProgramOption,
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(
		newProgressModel(title, steps, cancel),
		append([]tea.ProgramOption{tea.WithOutput(os.Stderr)}, opts...)...,
	)
	// Program.Println blocks forever once the event loop has stopped; Send
	// gives up when the program is done.
	reporter := &Reporter{
		send:    program.Send,
		println: func(a ...interface{}) { program.Send(tea.Println(a...)()) },
		now:     time.Now,
		verbose: verbose,
	}

	var g errgroup.Group
	g.Go(func() error {
		err := work(ctx, reporter)
		program.Send(workDoneMsg{err: err})
		return err
	})
	g.Go(func() error {
		defer cancel()
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("progress view: %w", err)
		}
		return nil
	})
	return g.Wait()
}
