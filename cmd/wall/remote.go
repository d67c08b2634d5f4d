package main

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// RemotesConfig holds all named remotes and tracks which one is active.
type RemotesConfig struct {
	Active  string            `toml:"active"`
	Remotes map[string]Remote `toml:"remotes"`
}

// Remote is a named server profile. Event, when set, is the default event for
// commands that take one.
type Remote struct {
	URL     string `toml:"url"`
	Token   string `toml:"token,omitempty"`
	NATSURL string `toml:"nats_url,omitempty"`
	Event   string `toml:"event,omitempty"`
}

var errNoActiveRemote = errors.New("no active remote; name one or run 'wall remote use <name>'")

// resolve returns the named remote, or the active one when name is empty.
func (c RemotesConfig) resolve(name string) (string, Remote, error) {
	if name == "" {
		name = c.Active
	}
	if name == "" {
		return "", Remote{}, errNoActiveRemote
	}
	r, ok := c.Remotes[name]
	if !ok {
		return "", Remote{}, fmt.Errorf("unknown remote %q", name)
	}
	return name, r, nil
}

func remoteConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".local", "state", "guestwall")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "remotes.toml"), nil
}

func loadRemotesConfig() (RemotesConfig, error) {
	cfg := RemotesConfig{Remotes: map[string]Remote{}}
	path, err := remoteConfigPath()
	if err != nil {
		return cfg, err
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}
	if cfg.Remotes == nil {
		cfg.Remotes = map[string]Remote{}
	}
	return cfg, nil
}

func saveRemotesConfig(cfg RemotesConfig) error {
	path, err := remoteConfigPath()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// updateRemotes loads the remotes file, applies edit and writes it back.
// Nothing is written when edit fails.
func updateRemotes(edit func(*RemotesConfig) error) error {
	cfg, err := loadRemotesConfig()
	if err != nil {
		return err
	}
	if err := edit(&cfg); err != nil {
		return err
	}
	return saveRemotesConfig(cfg)
}

// Active remote, loaded once per process.
var (
	remoteOnce   sync.Once
	activeRemote Remote
)

func loadActiveRemoteOnce() {
	remoteOnce.Do(func() {
		cfg, err := loadRemotesConfig()
		if err != nil {
			return
		}
		if _, r, err := cfg.resolve(""); err == nil {
			activeRemote = r
		}
	})
}

func activeRemoteURL() string {
	loadActiveRemoteOnce()
	return activeRemote.URL
}

func activeRemoteToken() string {
	loadActiveRemoteOnce()
	return activeRemote.Token
}

func activeRemoteNATSURL() string {
	loadActiveRemoteOnce()
	return activeRemote.NATSURL
}

func activeRemoteEvent() string {
	loadActiveRemoteOnce()
	return activeRemote.Event
}

// maskToken keeps the first n characters of a token visible.
func maskToken(token string, n int, fill func(hidden int) string) string {
	if len(token) <= n {
		return token
	}
	return token[:n] + fill(len(token)-n)
}

func writeRemoteTable(out io.Writer, cfg RemotesConfig) error {
	if len(cfg.Remotes) == 0 {
		_, err := fmt.Fprintln(out, "no remotes configured; add one with 'wall remote add <name> <url>'")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  NAME\tURL\tEVENT\tTOKEN")
	for _, name := range slices.Sorted(maps.Keys(cfg.Remotes)) {
		r := cfg.Remotes[name]
		marker := "  "
		if name == cfg.Active {
			marker = "* "
		}
		fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\n", marker, name, r.URL, r.Event,
			maskToken(r.Token, 8, func(int) string { return "..." }))
	}
	return w.Flush()
}

func writeRemoteDetail(out io.Writer, name string, r Remote, active bool) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if active {
		name += " (active)"
	}
	rows := [][2]string{
		{"name", name},
		{"url", r.URL},
		{"token", maskToken(r.Token, 8, func(n int) string { return strings.Repeat("*", n) })},
		{"nats_url", r.NATSURL},
		{"event", r.Event},
	}
	for _, row := range rows {
		if row[1] != "" {
			fmt.Fprintf(w, "%s:\t%s\n", row[0], row[1])
		}
	}
	return w.Flush()
}

// newRemoteCmd builds the remote command tree. Remotes live in a local file,
// so none of the subcommands needs a server client.
func newRemoteCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "remote",
		Short:             "Manage named server remotes",
		GroupID:           "system",
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	}

	var r Remote
	add := &cobra.Command{
		Use:   "add <name> <url>",
		Short: "Add a named remote, replacing any with the same name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, entry := args[0], r
			entry.URL = args[1]
			if err := updateRemotes(func(c *RemotesConfig) error {
				c.Remotes[name] = entry
				return nil
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved remote %s -> %s\n", name, entry.URL)
			return nil
		},
	}
	add.Flags().StringVar(&r.Token, "token", "", "admin bearer token")
	add.Flags().StringVar(&r.NATSURL, "nats", "", "NATS URL for local replicas (wall watch --replica)")
	add.Flags().StringVar(&r.Event, "event", "", "default event ID")

	remove := &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a named remote",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := updateRemotes(func(c *RemotesConfig) error {
				name, _, err := c.resolve(args[0])
				if err != nil {
					return err
				}
				delete(c.Remotes, name)
				if c.Active == name {
					c.Active = ""
				}
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed remote %s\n", args[0])
			return nil
		},
	}

	use := &cobra.Command{
		Use:   "use <name>",
		Short: "Make a remote the default for other commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := updateRemotes(func(c *RemotesConfig) error {
				name, _, err := c.resolve(args[0])
				if err != nil {
					return err
				}
				c.Active = name
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "using remote %s\n", args[0])
			return nil
		},
	}

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List configured remotes",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadRemotesConfig()
			if err != nil {
				return err
			}
			return writeRemoteTable(cmd.OutOrStdout(), cfg)
		},
	}

	show := &cobra.Command{
		Use:   "show [<name>]",
		Short: "Show one remote, the active one by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRemotesConfig()
			if err != nil {
				return err
			}
			name, r, err := cfg.resolve(strings.Join(args, ""))
			if err != nil {
				return err
			}
			return writeRemoteDetail(cmd.OutOrStdout(), name, r, name == cfg.Active)
		},
	}

	root.AddCommand(add, remove, use, list, show)
	return root
}
