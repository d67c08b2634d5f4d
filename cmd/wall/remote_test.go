package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	in := RemotesConfig{
		Active: "boda",
		Remotes: map[string]Remote{
			"boda":  {URL: "https://wall.example.com", Token: "tok_abc", NATSURL: "nats://wall:4222", Event: "evt_1"},
			"local": {URL: "http://localhost:8080"},
		},
	}
	if err := saveRemotesConfig(in); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := loadRemotesConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Active != "boda" {
		t.Errorf("Active = %q, want %q", got.Active, "boda")
	}
	r := got.Remotes["boda"]
	if r != in.Remotes["boda"] {
		t.Errorf("boda remote = %+v, want %+v", r, in.Remotes["boda"])
	}
	if got.Remotes["local"].Event != "" {
		t.Errorf("local remote gained an event: %+v", got.Remotes["local"])
	}
}

func TestLoadRemotesConfig_NoFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := loadRemotesConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Active != "" || len(cfg.Remotes) != 0 {
		t.Errorf("expected empty config, got %+v", cfg)
	}
	if cfg.Remotes == nil {
		t.Error("Remotes map must not be nil after load")
	}
}

func TestSaveRemotesConfig_Permissions(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := saveRemotesConfig(RemotesConfig{Remotes: map[string]Remote{}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	path, _ := remoteConfigPath()
	check := func(p string, want os.FileMode) {
		t.Helper()
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat %s: %v", p, err)
		}
		if got := info.Mode().Perm(); got != want {
			t.Errorf("%s permissions = %04o, want %04o", p, got, want)
		}
	}
	check(path, 0o600)
	check(filepath.Dir(path), 0o700)
}

func TestMaskToken(t *testing.T) {
	stars := func(n int) string { return strings.Repeat("*", n) }
	tests := []struct {
		token string
		want  string
	}{
		{"", ""},
		{"short", "short"},
		{"exactly8", "exactly8"},
		{"tok_verylongsecret", "tok_very**********"},
	}
	for _, tt := range tests {
		if got := maskToken(tt.token, 8, stars); got != tt.want {
			t.Errorf("maskToken(%q) = %q, want %q", tt.token, got, tt.want)
		}
	}
}

// runRemote executes the remote command tree with args and returns its output.
func runRemote(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRemoteCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustRunRemote(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runRemote(t, args...)
	if err != nil {
		t.Fatalf("remote %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestRemoteCommands(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	mustRunRemote(t, "add", "boda", "http://localhost:8080", "--event", "evt_1")
	mustRunRemote(t, "add", "boda", "http://localhost:9090", "--event", "evt_1")
	mustRunRemote(t, "use", "boda")

	cfg, _ := loadRemotesConfig()
	if cfg.Active != "boda" {
		t.Fatalf("Active = %q, want %q", cfg.Active, "boda")
	}
	if len(cfg.Remotes) != 1 || cfg.Remotes["boda"].URL != "http://localhost:9090" {
		t.Fatalf("second add should replace the first: %+v", cfg.Remotes)
	}

	out := mustRunRemote(t, "ls")
	if !strings.Contains(out, "* boda") || !strings.Contains(out, "evt_1") {
		t.Errorf("list missing active marker or event; got:\n%s", out)
	}

	out = mustRunRemote(t, "show")
	for _, want := range []string{"boda (active)", "http://localhost:9090", "evt_1"} {
		if !strings.Contains(out, want) {
			t.Errorf("show missing %q; got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "token:") {
		t.Errorf("show printed an empty token row:\n%s", out)
	}

	mustRunRemote(t, "rm", "boda")
	cfg, _ = loadRemotesConfig()
	if len(cfg.Remotes) != 0 || cfg.Active != "" {
		t.Errorf("after remove: %+v", cfg)
	}
	if out := mustRunRemote(t, "list"); !strings.Contains(out, "no remotes configured") {
		t.Errorf("empty list output: %q", out)
	}
}

func TestRemoteTokenIsMasked(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	mustRunRemote(t, "add", "prod", "https://wall.example.com", "--token", "tok_verylongsecret", "--nats", "nats://wall:4222")
	mustRunRemote(t, "use", "prod")

	out := mustRunRemote(t, "list")
	if strings.Contains(out, "tok_verylongsecret") || !strings.Contains(out, "tok_very...") {
		t.Errorf("list should show a truncated token; got:\n%s", out)
	}
	out = mustRunRemote(t, "show", "prod")
	if strings.Contains(out, "tok_verylongsecret") || !strings.Contains(out, "tok_very**") {
		t.Errorf("show should mask the token; got:\n%s", out)
	}
	if !strings.Contains(out, "nats://wall:4222") {
		t.Errorf("show missing nats url; got:\n%s", out)
	}
}

func TestRemoteErrorsLeaveFileUntouched(t *testing.T) {
	for _, args := range [][]string{
		{"use", "ghost"},
		{"remove", "ghost"},
		{"show"},
		{"show", "ghost"},
	} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			if err := saveRemotesConfig(RemotesConfig{
				Active:  "local",
				Remotes: map[string]Remote{"local": {URL: "http://localhost:8080"}},
			}); err != nil {
				t.Fatal(err)
			}
			if args[0] == "show" && len(args) == 1 {
				mustRunRemote(t, "rm", "local")
			}
			before, _ := loadRemotesConfig()

			if _, err := runRemote(t, args...); err == nil {
				t.Fatal("expected error, got nil")
			}
			after, _ := loadRemotesConfig()
			if after.Active != before.Active || len(after.Remotes) != len(before.Remotes) {
				t.Errorf("config changed: %+v -> %+v", before, after)
			}
		})
	}
}

func TestResolveRemote(t *testing.T) {
	cfg := RemotesConfig{
		Active:  "a",
		Remotes: map[string]Remote{"a": {URL: "http://a"}, "b": {URL: "http://b"}},
	}
	if name, r, err := cfg.resolve(""); err != nil || name != "a" || r.URL != "http://a" {
		t.Errorf("resolve(\"\") = %q %+v %v", name, r, err)
	}
	if name, _, err := cfg.resolve("b"); err != nil || name != "b" {
		t.Errorf("resolve(b) = %q %v", name, err)
	}
	cfg.Active = ""
	if _, _, err := cfg.resolve(""); !errors.Is(err, errNoActiveRemote) {
		t.Errorf("resolve without active = %v", err)
	}
}
