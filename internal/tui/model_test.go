package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"openrc-go/pkg/svcstate"
)

func TestModelUpdateAppliesPollSnapshot(t *testing.T) {
	m := New(func() (RunlevelSnapshot, error) { return RunlevelSnapshot{}, nil }, time.Minute)

	snap := RunlevelSnapshot{
		Runlevel: "default",
		Services: []ServiceRow{
			{Name: "sshd", Status: svcstate.Status{Primary: svcstate.Started}},
			{Name: "cron", Status: svcstate.Status{Primary: svcstate.Stopped}},
		},
	}

	updated, cmd := m.Update(pollMsg{snapshot: snap})
	mm := updated.(Model)
	if mm.snapshot.Runlevel != "default" {
		t.Errorf("snapshot.Runlevel = %q, want default", mm.snapshot.Runlevel)
	}
	if len(mm.snapshot.Services) != 2 {
		t.Errorf("snapshot.Services = %v, want 2 rows", mm.snapshot.Services)
	}
	if cmd != nil {
		t.Error("Update(pollMsg) should not emit a follow-up command")
	}
}

func TestModelUpdatePropagatesError(t *testing.T) {
	m := New(func() (RunlevelSnapshot, error) { return RunlevelSnapshot{}, nil }, time.Minute)
	wantErr := errors.New("boom")

	updated, _ := m.Update(pollMsg{err: wantErr})
	mm := updated.(Model)
	if mm.err != wantErr {
		t.Errorf("err = %v, want %v", mm.err, wantErr)
	}
	view := mm.View()
	if view == "" {
		t.Error("View() with an error should still render something")
	}
}

func TestModelQuitsOnQ(t *testing.T) {
	m := New(func() (RunlevelSnapshot, error) { return RunlevelSnapshot{}, nil }, time.Minute)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Error("Update(q) should return tea.Quit")
	}
}

func TestViewRendersStartedAndCrashed(t *testing.T) {
	m := New(func() (RunlevelSnapshot, error) { return RunlevelSnapshot{}, nil }, time.Minute)
	updated, _ := m.Update(pollMsg{snapshot: RunlevelSnapshot{
		Runlevel: "default",
		Services: []ServiceRow{
			{Name: "sshd", Status: svcstate.Status{Primary: svcstate.Started}},
			{Name: "flapper", Status: svcstate.Status{Primary: svcstate.Stopped, Failed: true}, Crashed: true},
		},
	}})
	view := updated.(Model).View()
	if view == "" {
		t.Fatal("View() returned empty string")
	}
	if !strings.Contains(view, "[started]") {
		t.Errorf("View() = %q, want a [started] badge for sshd", view)
	}
	if !strings.Contains(view, "[crashed]") {
		t.Errorf("View() = %q, want a [crashed] badge for flapper", view)
	}
}
