package main

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/urfave/cli/v3"
)

const unknown = "unknown"

// buildInfo is read from the binary's embedded module and VCS information.
type buildInfo struct {
	Version   string
	GoVersion string
	Commit    string
	BuildTime string
	Modified  bool
}

var currentBuild = readBuildInfo()

func readBuildInfo() buildInfo {
	b := buildInfo{Version: unknown, GoVersion: unknown, Commit: unknown, BuildTime: unknown}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return b
	}

	b.Version = info.Main.Version
	b.GoVersion = info.GoVersion

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			b.Commit = setting.Value
		case "vcs.time":
			b.BuildTime = setting.Value
		case "vcs.modified":
			b.Modified = setting.Value == "true"
		}
	}

	return b
}

func (b buildInfo) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "version: %s\n", b.Version)
	fmt.Fprintf(&sb, "go: %s\n", b.GoVersion)
	if b.Commit != unknown {
		if b.Modified {
			fmt.Fprintf(&sb, "commit: %s (dirty)\n", b.Commit)
		} else {
			fmt.Fprintf(&sb, "commit: %s\n", b.Commit)
		}
	}
	if b.BuildTime != unknown {
		fmt.Fprintf(&sb, "built: %s\n", b.BuildTime)
	}
	return sb.String()
}

var versionCommand = &cli.Command{
	Name:  "version",
	Usage: "Print version information",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "short",
			Usage: "Print only the version",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		if command.Bool("short") {
			_, err := fmt.Fprintln(command.Root().Writer, currentBuild.Version)
			return err
		}
		_, err := fmt.Fprint(command.Root().Writer, currentBuild.String())
		return err
	},
}
