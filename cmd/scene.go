package cmd

import (
	"bytes"
	"fmt"

	"github.com/achilleasa/raystream/scene/reader"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Parse one or more scene files and display a summary of their contents.
func SceneInfo(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}
	if ctx.NArg() == 0 {
		return fmt.Errorf("missing scene file argument(s)")
	}

	for _, location := range ctx.Args() {
		sf, err := reader.ReadFile(location)
		if err != nil {
			return err
		}
		displaySceneInfo(sf)
	}
	return nil
}

func displaySceneInfo(sf *reader.SceneFile) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Property", "Value"})
	table.Append([]string{"Spheres", fmt.Sprintf("%d", len(sf.Geometry.Spheres))})
	table.Append([]string{"Triangles", fmt.Sprintf("%d", len(sf.Geometry.Triangles))})
	table.Append([]string{"Materials", fmt.Sprintf("%d", len(sf.Geometry.Materials))})
	table.Append([]string{"Eye", fmt.Sprintf("%v", sf.Eye)})
	table.Append([]string{"Look at", fmt.Sprintf("%v", sf.Camera.LookAt)})
	table.Append([]string{"Up", fmt.Sprintf("%v", sf.Camera.Up)})
	table.Append([]string{"FOV", fmt.Sprintf("%3.1f", sf.Camera.FOV)})
	if sf.Animation != nil {
		table.Append([]string{"Animation", fmt.Sprintf("%v -> %v in %d frames", sf.Animation.From, sf.Animation.To, sf.Animation.Frames())})
	} else {
		table.Append([]string{"Animation", "-"})
	}
	table.Render()

	logger.Noticef("scene %s\n%s", sf.Path, buf.String())
}
