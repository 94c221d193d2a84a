package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/ailoy-run/ailoycache/cache"
	"github.com/ailoy-run/ailoycache/construct"
)

var progressLabelStyle = lipgloss.NewStyle().Bold(true)

type fetchTickMsg construct.FetchedEntry
type fetchDoneMsg struct{ err error }

// prefetchModel is a bubbletea program that consumes the
// construct.PrepareFiles stream off the model and renders a
// bubbles/progress bar, styled with lipgloss — the terminal-progress
// idiom this CLI borrows from the pack's bubbletea-based TUIs.
type prefetchModel struct {
	bar     progress.Model
	events  <-chan fetchTickMsg
	done    <-chan fetchDoneMsg
	current uint
	total   uint
	label   string
	err     error
	closed  bool
}

func (m prefetchModel) Init() tea.Cmd {
	return waitForEvent(m.events, m.done)
}

func waitForEvent(events <-chan fetchTickMsg, done <-chan fetchDoneMsg) tea.Cmd {
	return func() tea.Msg {
		select {
		case e, ok := <-events:
			if !ok {
				return <-done
			}
			return e
		case d := <-done:
			return d
		}
	}
}

func (m prefetchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case fetchTickMsg:
		m.current = msg.Index
		m.total = msg.Total
		m.label = msg.Entry.Filename
		return m, waitForEvent(m.events, m.done)
	case fetchDoneMsg:
		m.err = msg.err
		m.closed = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m prefetchModel) View() string {
	if m.closed {
		if m.err != nil {
			return fmt.Sprintf("prefetch failed: %v\n", m.err)
		}
		return "prefetch complete\n"
	}
	var ratio float64
	if m.total > 0 {
		ratio = float64(m.current) / float64(m.total)
	}
	return fmt.Sprintf("%s\n%s %d/%d\n", progressLabelStyle.Render(m.label), m.bar.ViewAs(ratio), m.current, m.total)
}

func runPrefetchWithProgressUI(ctx context.Context, cl *cache.Client, dirname string) error {
	events := make(chan fetchTickMsg)
	done := make(chan fetchDoneMsg, 1)

	go func() {
		defer close(events)
		for fe, err := range construct.PrepareFiles[struct{}](ctx, cl, dirname, wholeDirClaimer{}) {
			if err != nil {
				done <- fetchDoneMsg{err: err}
				return
			}
			events <- fetchTickMsg(fe)
		}
		done <- fetchDoneMsg{}
	}()

	m := prefetchModel{bar: progress.New(progress.WithDefaultGradient()), events: events, done: done}
	finalModel, err := tea.NewProgram(m).Run()
	if err != nil {
		return fmt.Errorf("render progress: %w", err)
	}
	if fm, ok := finalModel.(prefetchModel); ok && fm.err != nil {
		return fmt.Errorf("prefetch %s: %w", dirname, fm.err)
	}
	return nil
}
