package ui

import (
	"strings"
	"testing"

	"github.com/alfredjeanlab/guestwall/internal/model"
)

func TestShouldUseColor_Env(t *testing.T) {
	for _, tc := range []struct {
		name string
		env  map[string]string
		want bool
	}{
		{"NoColor", map[string]string{"NO_COLOR": "1", "CLICOLOR_FORCE": "1"}, false},
		{"Force", map[string]string{"NO_COLOR": "", "CLICOLOR_FORCE": "1"}, true},
		{"Disabled", map[string]string{"NO_COLOR": "", "CLICOLOR_FORCE": "", "CLICOLOR": "0"}, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if got := ShouldUseColor(); got != tc.want {
				t.Errorf("ShouldUseColor() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRenderStatus(t *testing.T) {
	saved := noColor
	t.Cleanup(func() { noColor = saved })

	noColor = false
	got := RenderStatus(model.StatusApproved)
	if !strings.Contains(got, "approved") || !strings.HasPrefix(got, "\x1b[") {
		t.Errorf("colored = %q", got)
	}

	ForceNoColor()
	for _, s := range []model.Status{model.StatusPending, model.StatusApproved, model.StatusRejected} {
		if got := RenderStatus(s); got != s.String() {
			t.Errorf("RenderStatus(%s) = %q without color", s, got)
		}
	}
	if got := RenderAccent("x"); got != "x" {
		t.Errorf("RenderAccent = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	for _, tc := range []struct {
		in    string
		width int
		want  string
	}{
		{"hola", 10, "hola"},
		{"hola", 4, "hola"},
		{"holamundo", 5, "hola…"},
		{"ñandú", 3, "ña…"},
		{"abc", 1, "…"},
		{"abc", 0, "abc"},
	} {
		if got := Truncate(tc.in, tc.width); got != tc.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}

func TestWidthFallback(t *testing.T) {
	if w := Width(); w <= 0 {
		t.Errorf("Width() = %d", w)
	}
}
