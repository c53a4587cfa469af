package tui

import (
	"os"

	"golang.org/x/term"
)

// NonInteractiveEnv forces plain output when set to "1".
const NonInteractiveEnv = "PGJSON_NON_INTERACTIVE"

// Mode represents the interaction mode for pgjson.
type Mode int

const (
	// ModeNonInteractive is used for CI/CD pipelines, scripts, and piped output.
	ModeNonInteractive Mode = iota
	// ModeInteractive is used when a human is at the terminal.
	ModeInteractive
)

func (m Mode) String() string {
	if m == ModeInteractive {
		return "interactive"
	}
	return "non-interactive"
}

// DetectMode determines whether pgjson should draw the progress view.
//
// Returns ModeNonInteractive if:
//   - PGJSON_NON_INTERACTIVE=1 is set
//   - CI is set (common CI/CD convention)
//   - NO_COLOR is set
//   - stdin or stderr is not a terminal
func DetectMode() Mode {
	return detectMode(os.Getenv, func(f *os.File) bool {
		return term.IsTerminal(int(f.Fd()))
	})
}

func detectMode(getenv func(string) string, isTerminal func(*os.File) bool) Mode {
	if getenv(NonInteractiveEnv) == "1" || getenv("CI") != "" || getenv("NO_COLOR") != "" {
		return ModeNonInteractive
	}
	// The view renders on stderr so stdout stays pipeable.
	if !isTerminal(os.Stdin) || !isTerminal(os.Stderr) {
		return ModeNonInteractive
	}
	return ModeInteractive
}

// IsInteractive is a convenience function that returns true if running in interactive mode.
func IsInteractive() bool {
	return DetectMode() == ModeInteractive
}
