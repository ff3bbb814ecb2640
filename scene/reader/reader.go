package reader

import (
	"fmt"
	"strings"
	"time"

	"github.com/achilleasa/raystream/asset"
	"github.com/achilleasa/raystream/log"
	"github.com/achilleasa/raystream/scene"
	"github.com/achilleasa/raystream/types"
)

// The contents of a scene file.
type SceneFile struct {
	// Location of the scene file.
	Path string

	Geometry *scene.Geometry
	Camera   scene.Camera

	// The camera eye position. For animated scenes this is the position at
	// the first frame.
	Eye types.Vec3

	// The camera animation; nil if the scene file does not define one.
	Animation *scene.Animation
}

// Create the still scene for the given frame dims.
func (sf *SceneFile) Scene(frameW, frameH uint32) (*scene.Scene, error) {
	return scene.NewScene(sf.Eye, frameW, frameH, sf.Camera)
}

// A ParseError describes a syntax error in a scene file. If the file was
// included by another file, Stack lists the include chain, innermost first.
type ParseError struct {
	File  string
	Line  int
	Msg   string
	Stack []string
}

func (e *ParseError) Error() string {
	var msg string
	if e.File != "" {
		msg = fmt.Sprintf("[%s: %d] error: %s", e.File, e.Line, e.Msg)
	} else {
		msg = fmt.Sprintf("error: %s", e.Msg)
	}
	if len(e.Stack) == 0 {
		return msg
	}
	return msg + "\n" + strings.Join(e.Stack, "\n")
}

// Read a scene file from a local path or an http/https URL.
func ReadFile(location string) (*SceneFile, error) {
	res, err := asset.NewResource(location, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	return Read(res)
}

// Read a scene from a resource. Includes are resolved relative to the
// resource path.
func Read(res *asset.Resource) (*SceneFile, error) {
	logger := log.New("scene reader")
	logger.Noticef("parsing scene from %q", res.Path())
	start := time.Now()

	p := newParser(logger)
	if err := p.parse(res); err != nil {
		return nil, err
	}

	sf, err := p.sceneFile(res.Path())
	if err != nil {
		return nil, err
	}

	logger.Noticef("parsed scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	logger.Debugf("scene contents:\n%s", sf.Geometry.Stats())
	return sf, nil
}
