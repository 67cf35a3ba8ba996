package cmd

import (
	"fmt"

	"github.com/spiffcs/stalebot/internal/tui"
)

// autoBoolFlag implements pflag.Value for a boolean that may also be left
// to auto-detection. A nil target means auto.
type autoBoolFlag struct {
	target **bool
}

// newTUIFlag creates the --tui flag value bound to opts.TUI.
func newTUIFlag(opts *Options) *autoBoolFlag {
	return &autoBoolFlag{target: &opts.TUI}
}

func (f *autoBoolFlag) String() string {
	switch {
	case *f.target == nil:
		return "auto"
	case **f.target:
		return "true"
	default:
		return "false"
	}
}

func (f *autoBoolFlag) Set(s string) error {
	switch s {
	case "true", "1", "yes":
		v := true
		*f.target = &v
	case "false", "0", "no":
		v := false
		*f.target = &v
	case "auto":
		*f.target = nil
	default:
		return fmt.Errorf("invalid value %q: use true, false, or auto", s)
	}
	return nil
}

func (f *autoBoolFlag) Type() string {
	return "bool"
}

func (f *autoBoolFlag) IsBoolFlag() bool {
	return true
}

// shouldUseTUI determines whether to use TUI based on options.
func shouldUseTUI(opts *Options) bool {
	// Disable TUI when verbose logging is requested so logs are visible
	if opts.Verbosity > 0 {
		return false
	}
	// Machine-readable reports are often piped; keep stdout clean
	if opts.Format == "json" {
		return false
	}
	if opts.TUI != nil {
		return *opts.TUI
	}
	return tui.ShouldUseTUI()
}
