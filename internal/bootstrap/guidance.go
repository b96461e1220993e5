package bootstrap

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/shinji-kodama/contractbot-workspace/internal/model"
)

var (
	// fatih/color disables itself when stdout is not a terminal.
	successColor = color.New(color.FgGreen, color.Bold)
	labelColor   = color.New(color.FgWhite, color.Bold)
	commandColor = color.New(color.FgCyan)
)

type guidance struct {
	goos   string
	module string
	config string
}

func guidanceFor(opts Options, goos string) guidance {
	g := guidance{goos: goos, module: opts.ServiceModule, config: opts.ServiceConfig}
	if g.module == "" {
		g.module = model.DefaultServiceModule
	}
	if g.config == "" {
		g.config = "/path/to/" + model.DefaultServiceConfig
	}
	return g
}

// writeGuidance prints how to activate the environment and start the
// service.
func writeGuidance(w io.Writer, res *Result, g guidance) {
	fmt.Fprintln(w)
	_, _ = successColor.Fprintln(w, "✓ Environment ready.")
	if res.Created {
		fmt.Fprintf(w, "  Created %s\n", res.Env.Path)
	}
	_, _ = labelColor.Fprintln(w, "Activate it with:")
	_, _ = commandColor.Fprintf(w, "  %s\n", ActivationHint(res.Env.Path, g.goos))
	_, _ = labelColor.Fprintln(w, "Then start the service with:")
	_, _ = commandColor.Fprintf(w, "  python -m %s %s\n", g.module, g.config)
}
