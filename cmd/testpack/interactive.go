package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/term"
)

type interactiveCtxKeyType struct{}

var interactiveCtxKey = interactiveCtxKeyType{}

const (
	colorAuto   = "auto"
	colorAlways = "always"
	colorNever  = "never"
)

// resolveInteractive decides whether output on f is styled for a person.
// In auto mode, NO_COLOR and CI turn styling off, otherwise f must be a terminal.
func resolveInteractive(mode string, f *os.File) (bool, error) {
	switch mode {
	case colorAlways:
		return true, nil
	case colorNever:
		return false, nil
	case colorAuto, "":
		if os.Getenv("NO_COLOR") != "" || os.Getenv("CI") != "" {
			return false, nil
		}
		return term.IsTerminal(int(f.Fd())), nil
	default:
		return false, fmt.Errorf("invalid color mode %q: must be one of %s, %s, %s", mode, colorAuto, colorAlways, colorNever)
	}
}

func withInteractive(ctx context.Context, interactive bool) context.Context {
	return context.WithValue(ctx, interactiveCtxKey, interactive)
}

func isInteractive(ctx context.Context) bool {
	interactive, _ := ctx.Value(interactiveCtxKey).(bool)
	return interactive
}
