package pdf

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestOpener_Command(t *testing.T) {
	tests := []struct {
		name   string
		viewer string
		goos   string
		want   string
	}{
		{"default linux", "", "linux", "xdg-open /tmp/a.pdf"},
		{"zathura", "zathura", "linux", "zathura /tmp/a.pdf"},
		{"default darwin", "system", "darwin", "open /tmp/a.pdf"},
		{"skim", "skim", "darwin", "open -a Skim /tmp/a.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := NewOpener(tt.viewer).command(tt.goos, "/tmp/a.pdf")
			if err != nil {
				t.Fatalf("command() error = %v", err)
			}
			args := append([]string{filepath.Base(cmd.Path)}, cmd.Args[1:]...)
			if got := strings.Join(args, " "); got != tt.want {
				t.Errorf("command = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := NewOpener("").command("plan9", "/tmp/a.pdf"); err == nil {
		t.Error("expected error for unsupported platform")
	}
}

func TestOpener_MissingFile(t *testing.T) {
	err := NewOpener("").Open(filepath.Join(t.TempDir(), "missing.pdf"))
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("Open() error = %v, want does-not-exist error", err)
	}
}
