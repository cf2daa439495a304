package telegram

import (
	"testing"

	"github.com/m3rciful/unilinkup/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func noop(tele.Context) error { return nil }

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/lunch", commands.Command{Handler: noop, Description: "Plan lunch", Aliases: []string{"food"}})
	reg.RegisterCommand("/stats", commands.Command{Handler: noop, Description: "Stats", AdminOnly: true})
	reg.RegisterCommand("study", commands.Command{Handler: noop, Description: "no slash"})
	reg.RegisterCommand("/lunch", commands.Command{Handler: noop, Description: "dup"})

	if got := len(reg.Commands()); got != 2 {
		t.Fatalf("commands = %d, want 2", got)
	}
	visible := reg.ListCommands(true)
	if len(visible) != 1 || visible[0].Text != "/lunch" || visible[0].Description != "Plan lunch" {
		t.Fatalf("visible = %+v", visible)
	}
	key, _, ok := reg.LookupCommand("food")
	if !ok || key != "/lunch" {
		t.Fatalf("alias lookup = %q, %v", key, ok)
	}
	if _, _, ok := reg.LookupCommand("study"); ok {
		t.Fatal("unexpected lookup hit for rejected command")
	}
}

func TestRegistryCallbacks(t *testing.T) {
	reg := NewRegistry()
	if err := reg.RegisterCallback("loc", noop); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.RegisterCallback("loc", noop); err == nil {
		t.Fatal("expected duplicate error")
	}
	if err := reg.RegisterCallback("", noop); err == nil {
		t.Fatal("expected invalid registration error")
	}
	if _, ok := reg.GetCallback("loc"); !ok {
		t.Fatal("callback not found")
	}
	if got := reg.ListCallbacks(); len(got) != 1 || got[0] != "loc" {
		t.Fatalf("callbacks = %v", got)
	}
}
