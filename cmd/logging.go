package cmd

import (
	"github.com/achilleasa/raystream/log"
	"github.com/urfave/cli"
)

var logger = log.New("raystream")

// Apply the global logging flags. An explicit --log-level takes precedence
// over the -v and -vv shortcuts.
func setupLogging(ctx *cli.Context) error {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}

	return log.Configure(ctx.GlobalString("log-level"))
}
