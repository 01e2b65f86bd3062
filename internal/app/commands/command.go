// Package commands provides CLI command definitions for the application.
//
// Commands register themselves through register(). A RegFunc may return nil
// to leave its command out of this build.
package commands

import (
	"lastautoindex/internal/app"

	"github.com/urfave/cli/v3"
)

type RegFunc func(a *app.App) *cli.Command

var Registry []RegFunc

func register(rf RegFunc) RegFunc {
	if rf != nil {
		Registry = append(Registry, rf)
	}
	return rf
}

// All builds every registered command for a.
func All(a *app.App) []*cli.Command {
	var cmds []*cli.Command
	for _, rf := range Registry {
		if c := rf(a); c != nil {
			cmds = append(cmds, c)
		}
	}
	return cmds
}
