package cmd

import (
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/achilleasa/raystream/scene"
	"github.com/achilleasa/raystream/types"
	"github.com/urfave/cli"
)

func TestParseVec3(t *testing.T) {
	type spec struct {
		in     string
		exp    types.Vec3
		expErr bool
	}

	specs := []spec{
		{"1,2,3", types.Vec3{1, 2, 3}, false},
		{" -0.5 , 0, 10 ", types.Vec3{-0.5, 0, 10}, false},
		{"1,2", types.Vec3{}, true},
		{"1,b,3", types.Vec3{}, true},
	}

	for specIndex, s := range specs {
		v, err := parseVec3(s.in)
		if s.expErr {
			if err == nil {
				t.Fatalf("[spec %d] expected an error", specIndex)
			}
			continue
		}
		if err != nil {
			t.Fatalf("[spec %d] %v", specIndex, err)
		}
		if v != s.exp {
			t.Fatalf("[spec %d] expected %v; got %v", specIndex, s.exp, v)
		}
	}
}

func TestFrameRange(t *testing.T) {
	type spec struct {
		from, to int
		frames   uint32
		exp      []uint32
		expErr   bool
	}

	specs := []spec{
		{0, -1, 2, []uint32{0, 1, 2}, false},
		{1, 1, 5, []uint32{1}, false},
		{3, 5, 5, []uint32{3, 4, 5}, false},
		{0, 6, 5, nil, true},
		{4, 2, 5, nil, true},
		{-1, 2, 5, nil, true},
	}

	for specIndex, s := range specs {
		frames, err := frameRange(s.from, s.to, s.frames)
		if s.expErr {
			if !errors.Is(err, scene.ErrFrameOutOfRange) {
				t.Fatalf("[spec %d] expected ErrFrameOutOfRange; got %v", specIndex, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("[spec %d] %v", specIndex, err)
		}
		if len(frames) != len(s.exp) {
			t.Fatalf("[spec %d] expected frames %v; got %v", specIndex, s.exp, frames)
		}
		for i := range frames {
			if frames[i] != s.exp[i] {
				t.Fatalf("[spec %d] expected frames %v; got %v", specIndex, s.exp, frames)
			}
		}
	}
}

func testApp() *cli.App {
	flags := []cli.Flag{
		cli.IntFlag{Name: "width", Value: 8},
		cli.IntFlag{Name: "height", Value: 6},
		cli.StringFlag{Name: "backend", Value: "cpu"},
		cli.IntFlag{Name: "spp", Value: 1},
		cli.IntFlag{Name: "workers", Value: 2},
		cli.IntFlag{Name: "tile-capacity", Value: 16},
		cli.IntFlag{Name: "queue-capacity", Value: 2},
		cli.StringFlag{Name: "format"},
		cli.StringFlag{Name: "out"},
	}

	app := cli.NewApp()
	app.Name = "raystream-test"
	app.Commands = []cli.Command{
		{Name: "frame", Flags: flags, Action: RenderFrame},
		{
			Name: "animation",
			Flags: append(flags,
				cli.StringFlag{Name: "eye-to"},
				cli.IntFlag{Name: "frames"},
				cli.IntFlag{Name: "from"},
				cli.IntFlag{Name: "to", Value: -1},
			),
			Action: RenderAnimation,
		},
	}
	return app
}

func TestRenderFrameCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "frame.png")
	if err := testApp().Run([]string{"raystream", "frame", "--out", out}); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 6 {
		t.Fatalf("expected an 8x6 image; got %dx%d", b.Dx(), b.Dy())
	}
}

func TestRenderAnimationCommand(t *testing.T) {
	dir := t.TempDir()
	pattern := filepath.Join(dir, "frame-%02d.png")

	err := testApp().Run([]string{"raystream", "animation", "--out", pattern, "--eye-to", "0,0,1", "--frames", "3", "--from", "1"})
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"frame-01.png", "frame-02.png", "frame-03.png"} {
		if _, err = os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected frame %s to be written; got %v", name, err)
		}
	}
	if _, err = os.Stat(filepath.Join(dir, "frame-00.png")); !os.IsNotExist(err) {
		t.Fatal("expected frame 0 to be skipped")
	}

	// The default scene does not define an animation.
	err = testApp().Run([]string{"raystream", "animation", "--out", pattern})
	if !errors.Is(err, scene.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig; got %v", err)
	}
}
