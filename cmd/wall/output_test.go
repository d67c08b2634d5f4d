package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/guestwall/internal/client"
	"github.com/alfredjeanlab/guestwall/internal/model"
	"github.com/alfredjeanlab/guestwall/internal/ui"
)

func init() {
	ui.ForceNoColor()
}

func wallMessages() []model.Message {
	at := time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC)
	return []model.Message{
		{ID: "msg_2", EventID: "evt1", AuthorName: "Luis", Text: "Salud!", Status: model.StatusPending, CreatedAt: at.Add(time.Minute)},
		{ID: "msg_1", EventID: "evt1", AuthorName: "Ana", Text: strings.Repeat("hola ", 40), Status: model.StatusApproved, CreatedAt: at, ApprovedAt: &at},
	}
}

func TestPrintMessageList(t *testing.T) {
	var buf bytes.Buffer
	printMessageList(&buf, wallMessages(), 80)
	out := buf.String()

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[0], "TEXT") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "msg_2") || !strings.HasPrefix(lines[2], "msg_1") {
		t.Errorf("rows out of order:\n%s", out)
	}
	if !strings.Contains(lines[2], "…") {
		t.Errorf("long text should be truncated: %q", lines[2])
	}
	if !strings.HasSuffix(out, "2 messages\n") {
		t.Errorf("missing total:\n%s", out)
	}
}

func TestPrintWall(t *testing.T) {
	var buf bytes.Buffer
	printWall(&buf, "evt1", nil, 80)
	if !strings.Contains(buf.String(), "(no messages yet)") {
		t.Errorf("empty wall = %q", buf.String())
	}

	buf.Reset()
	printWall(&buf, "evt1", wallMessages(), 40)
	out := buf.String()
	if !strings.Contains(out, "[pending]") {
		t.Errorf("non-approved messages should be tagged:\n%s", out)
	}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if n := len([]rune(line)); n > 40 {
			t.Errorf("line wider than 40 runes (%d): %q", n, line)
		}
	}
}

func TestPrintScreens(t *testing.T) {
	var buf bytes.Buffer
	printScreens(&buf, nil)
	if strings.TrimSpace(buf.String()) != "no screens connected" {
		t.Errorf("empty roster = %q", buf.String())
	}

	buf.Reset()
	printScreens(&buf, []client.ScreenEntry{
		{ViewerID: "v1", EventID: "evt1", Role: "screen", View: "approved", IdleSecs: 3, Deliveries: 4},
		{ViewerID: "v2", EventID: "evt1", Role: "admin", View: "all", IdleSecs: 200, Stale: true},
	})
	out := buf.String()
	if !strings.Contains(out, "v1") || !strings.Contains(out, "200s (stale)") {
		t.Errorf("roster:\n%s", out)
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := printJSON(&buf, map[string]string{"status": "ok"}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "{\n  \"status\": \"ok\"\n}\n" {
		t.Errorf("printJSON = %q", buf.String())
	}
}

func TestColorizeHelpOutput_NoColorIsIdentity(t *testing.T) {
	in := "Moderation:\n  approve     Approve pending messages\n\nFlags:\n      --url string   server URL (default \"http://localhost:8080\")\n"
	if got := colorizeHelpOutput(in); got != in {
		t.Errorf("colorizeHelpOutput changed plain text:\n%s", got)
	}
}

func TestHelpListsGroups(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	t.Cleanup(func() { rootCmd.SetOut(nil) })
	rootCmd.HelpFunc()(rootCmd, nil)

	out := buf.String()
	for _, want := range []string{"Wall:", "Moderation:", "Views:", "System:", "submit", "approve", "watch", "serve"} {
		if !strings.Contains(out, want) {
			t.Errorf("help missing %q", want)
		}
	}
}
