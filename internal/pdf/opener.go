package pdf

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// ValidViewers lists the supported document viewer values.
var ValidViewers = []string{"system", "skim", "preview", "zathura", "evince", "okular"}

// Opener opens source documents in an external viewer.
type Opener struct {
	viewer string
}

// NewOpener creates an opener for the given viewer preference.
func NewOpener(viewer string) *Opener {
	if viewer == "" {
		viewer = "system"
	}
	return &Opener{viewer: viewer}
}

// Open opens the document at path using the configured viewer.
func (o *Opener) Open(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("document does not exist: %s", path)
		}
		return fmt.Errorf("checking document: %w", err)
	}

	cmd, err := o.command(runtime.GOOS, path)
	if err != nil {
		return err
	}
	return cmd.Start()
}

// command returns the command that opens path on the given platform.
func (o *Opener) command(goos, path string) (*exec.Cmd, error) {
	switch goos {
	case "darwin":
		switch o.viewer {
		case "skim":
			return exec.Command("open", "-a", "Skim", path), nil
		case "preview":
			return exec.Command("open", "-a", "Preview", path), nil
		default:
			return exec.Command("open", path), nil
		}
	case "linux":
		switch o.viewer {
		case "zathura", "evince", "okular":
			return exec.Command(o.viewer, path), nil
		default:
			return exec.Command("xdg-open", path), nil
		}
	default:
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}
