package tui

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/i474232898/weather-widget/internal/weather"
)

func runProgram(t *testing.T, input string, post func(weather.KeyEvent) error) error {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m := NewModel(weather.NewState(""), nil, post, newTestRenderer(&fixedZone{name: "UTC"}))
	return Run(ctx, m,
		tea.WithInput(NewInput(iotest.OneByteReader(strings.NewReader(input)))),
		tea.WithOutput(io.Discard),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	)
}

func TestRun_SplitEscapeSequences(t *testing.T) {
	var got []weather.KeyEvent
	err := runProgram(t, "\x17B\x1b[Ae\x1b[Dr\x7f\r\x03", func(ev weather.KeyEvent) error {
		got = append(got, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []weather.KeyEvent{
		{Kind: weather.KeyNewLocation},
		{Kind: weather.KeyChar, Char: 'B'},
		{Kind: weather.KeyChar, Char: 'e'},
		{Kind: weather.KeyChar, Char: 'r'},
		{Kind: weather.KeyBackspace},
		{Kind: weather.KeyConfirm},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_PostErrorStops(t *testing.T) {
	stop := errors.New("stopped")
	calls := 0
	err := runProgram(t, "abc", func(weather.KeyEvent) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("expected post error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected posting to stop after the first failure, got %d calls", calls)
	}
}

func TestModel_Update(t *testing.T) {
	updates := make(chan weather.State, 1)
	m := NewModel(weather.NewState(""), updates, func(weather.KeyEvent) error { return nil }, newTestRenderer(&fixedZone{name: "UTC"}))

	if m.Init() == nil {
		t.Fatal("expected a command waiting for state updates")
	}

	fetching := weather.State{Phase: weather.PhaseFetching, Attempt: "a1"}
	next, cmd := m.Update(stateMsg(fetching))
	if cmd == nil {
		t.Error("expected the model to keep waiting for updates")
	}
	if got := next.View(); got != fetchingText {
		t.Errorf("expected %q, got %q", fetchingText, got)
	}

	updates <- weather.State{Phase: weather.PhaseTyping, Draft: new(string)}
	if msg, ok := cmd().(stateMsg); !ok || msg.Phase != weather.PhaseTyping {
		t.Errorf("expected the published state, got %#v", msg)
	}

	close(updates)
	if msg := cmd(); msg != nil {
		t.Errorf("expected no message once updates close, got %#v", msg)
	}

	if _, cmd := next.Update(tea.KeyMsg{Type: tea.KeyCtrlC}); cmd == nil {
		t.Error("expected ctrl-c to quit")
	}
}
