package cmd

import (
	"bytes"

	"github.com/achilleasa/raystream/tracer"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// List the registered compute backends.
func ListBackends(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Backend", "Selected by"})
	for _, name := range tracer.Backends() {
		table.Append([]string{name, "--backend " + name})
	}
	table.Render()

	logger.Noticef("available compute backends\n%s", buf.String())
	return nil
}
