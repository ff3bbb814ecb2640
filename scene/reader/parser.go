package reader

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/achilleasa/raystream/asset"
	"github.com/achilleasa/raystream/log"
	"github.com/achilleasa/raystream/scene"
	"github.com/achilleasa/raystream/types"
)

// Name of the material assigned to primitives that precede any usemtl.
const defaultMaterialName = "default"

type parser struct {
	logger log.Logger

	geometry *scene.Geometry

	matNameToIndex map[string]int
	curMaterial    int

	vertexList []types.Vec3

	camera scene.Camera
	eye    types.Vec3
	eyeTo  *types.Vec3
	frames *uint32

	// Include chain used to annotate errors.
	errStack []string
}

func newParser(logger log.Logger) *parser {
	return &parser{
		logger:         logger,
		geometry:       &scene.Geometry{},
		matNameToIndex: make(map[string]int),
		curMaterial:    -1,
		camera:         scene.DefaultCamera(),
	}
}

func (p *parser) emitError(file string, line int, msgFormat string, args ...interface{}) error {
	stack := make([]string, len(p.errStack))
	copy(stack, p.errStack)
	return &ParseError{
		File:  file,
		Line:  line,
		Msg:   fmt.Sprintf(msgFormat, args...),
		Stack: stack,
	}
}

func (p *parser) pushFrame(msg string) {
	p.errStack = append([]string{msg}, p.errStack...)
}

func (p *parser) popFrame() {
	p.errStack = p.errStack[1:]
}

// Get the index of the active material, creating the default material if
// no material has been selected.
func (p *parser) materialIndex() uint32 {
	if p.curMaterial < 0 {
		index, exists := p.matNameToIndex[defaultMaterialName]
		if !exists {
			p.geometry.Materials = append(p.geometry.Materials, scene.Material{
				Name:   defaultMaterialName,
				Albedo: types.Vec3{0.7, 0.7, 0.7},
			})
			index = len(p.geometry.Materials) - 1
			p.matNameToIndex[defaultMaterialName] = index
		}
		p.curMaterial = index
	}
	return uint32(p.curMaterial)
}

func (p *parser) parse(res *asset.Resource) error {
	lineNum := 0

	// Positive face indices in included files are relative to the first
	// vertex defined by that file.
	relVertexOffset := len(p.vertexList)

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		var err error
		switch lineTokens[0] {
		case "call", "mtllib":
			if len(lineTokens) != 2 {
				return p.emitError(res.Path(), lineNum, `unsupported syntax for %q; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
			}

			p.pushFrame(fmt.Sprintf("referenced from %s:%d [%s]", res.Path(), lineNum, lineTokens[0]))
			if err = p.include(lineTokens[1], res); err != nil {
				if _, isParseErr := err.(*ParseError); isParseErr {
					return err
				}
				return p.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			p.popFrame()
		case "newmtl", "Kd", "Ke":
			err = p.parseMaterialLine(lineTokens)
		case "usemtl":
			if len(lineTokens) != 2 {
				return p.emitError(res.Path(), lineNum, `unsupported syntax for "usemtl"; expected 1 argument; got %d`, len(lineTokens)-1)
			}
			matIndex, exists := p.matNameToIndex[lineTokens[1]]
			if !exists {
				return p.emitError(res.Path(), lineNum, `undefined material with name %q`, lineTokens[1])
			}
			p.curMaterial = matIndex
		case "v":
			var v types.Vec3
			if v, err = parseVec3(lineTokens); err == nil {
				p.vertexList = append(p.vertexList, v)
			}
		case "f":
			err = p.parseFace(lineTokens, relVertexOffset)
		case "sphere":
			err = p.parseSphere(lineTokens)
		case "camera_eye":
			p.eye, err = parseVec3(lineTokens)
		case "camera_look":
			p.camera.LookAt, err = parseVec3(lineTokens)
		case "camera_up":
			p.camera.Up, err = parseVec3(lineTokens)
		case "camera_fov":
			p.camera.FOV, err = parseFloat32(lineTokens)
		case "anim_eye_to":
			var to types.Vec3
			if to, err = parseVec3(lineTokens); err == nil {
				p.eyeTo = &to
			}
		case "anim_frames":
			var frames uint32
			if frames, err = parseUint32(lineTokens); err == nil {
				p.frames = &frames
			}
		default:
			p.logger.Warningf("[%s: %d] skipping unsupported directive %q", res.Path(), lineNum, lineTokens[0])
		}

		if err != nil {
			return p.emitError(res.Path(), lineNum, "%s", err.Error())
		}
	}

	if err := scanner.Err(); err != nil {
		return p.emitError(res.Path(), lineNum, "%s", err.Error())
	}
	return nil
}

// Parse an included scene file or material library.
func (p *parser) include(location string, relTo *asset.Resource) error {
	incRes, err := asset.NewResource(location, relTo)
	if err != nil {
		return err
	}
	defer incRes.Close()

	return p.parse(incRes)
}

// Material directives may appear inline or in a material library.
func (p *parser) parseMaterialLine(lineTokens []string) error {
	if lineTokens[0] == "newmtl" {
		if len(lineTokens) != 2 {
			return fmt.Errorf(`unsupported syntax for "newmtl"; expected 1 argument; got %d`, len(lineTokens)-1)
		}
		name := lineTokens[1]
		if _, exists := p.matNameToIndex[name]; exists {
			return fmt.Errorf("material %q already defined", name)
		}
		p.geometry.Materials = append(p.geometry.Materials, scene.Material{Name: name})
		p.matNameToIndex[name] = len(p.geometry.Materials) - 1
		return nil
	}

	if len(p.geometry.Materials) == 0 || p.lastDefinedMaterial().Name == defaultMaterialName {
		return fmt.Errorf(`got %q without a "newmtl"`, lineTokens[0])
	}

	v, err := parseVec3(lineTokens)
	if err != nil {
		return err
	}

	mat := p.lastDefinedMaterial()
	switch lineTokens[0] {
	case "Kd":
		mat.Albedo = v
	case "Ke":
		mat.Emission = v
	}
	return nil
}

func (p *parser) lastDefinedMaterial() *scene.Material {
	return &p.geometry.Materials[len(p.geometry.Materials)-1]
}

// Parse a face definition. Faces with more than 3 vertices are split into a
// triangle fan. Texture and normal references (f v/vt/vn) are ignored.
func (p *parser) parseFace(lineTokens []string, relVertexOffset int) error {
	if len(lineTokens) < 4 {
		return fmt.Errorf(`unsupported syntax for "f"; expected at least 3 arguments; got %d`, len(lineTokens)-1)
	}

	vertices := make([]types.Vec3, 0, len(lineTokens)-1)
	for _, token := range lineTokens[1:] {
		vIndex, err := selectVertexIndex(strings.Split(token, "/")[0], len(p.vertexList), relVertexOffset)
		if err != nil {
			return fmt.Errorf("could not select vertex for %q: %w", token, err)
		}
		vertices = append(vertices, p.vertexList[vIndex])
	}

	material := p.materialIndex()
	for i := 1; i+1 < len(vertices); i++ {
		p.geometry.Triangles = append(p.geometry.Triangles, scene.Triangle{
			V1:       vertices[0],
			V2:       vertices[i],
			V3:       vertices[i+1],
			Material: material,
		})
	}
	return nil
}

// Parse a sphere definition: sphere cx cy cz radius.
func (p *parser) parseSphere(lineTokens []string) error {
	if len(lineTokens) != 5 {
		return fmt.Errorf(`unsupported syntax for "sphere"; expected 4 arguments; got %d`, len(lineTokens)-1)
	}

	center, err := parseVec3(lineTokens)
	if err != nil {
		return err
	}
	radius, err := strconv.ParseFloat(lineTokens[4], 32)
	if err != nil {
		return err
	}
	if radius <= 0 {
		return fmt.Errorf("sphere radius must be positive; got %v", radius)
	}

	p.geometry.Spheres = append(p.geometry.Spheres, scene.Sphere{
		Center:   center,
		Radius:   float32(radius),
		Material: p.materialIndex(),
	})
	return nil
}

// Assemble the parsed scene file.
func (p *parser) sceneFile(path string) (*SceneFile, error) {
	if len(p.geometry.Spheres) == 0 && len(p.geometry.Triangles) == 0 {
		p.logger.Warningf("scene %q does not define any geometry", path)
	}
	if err := p.geometry.Validate(); err != nil {
		return nil, p.emitError(path, 0, "%s", err.Error())
	}

	sf := &SceneFile{
		Path:     path,
		Geometry: p.geometry,
		Camera:   p.camera,
		Eye:      p.eye,
	}

	if p.frames != nil {
		to := p.eye
		if p.eyeTo != nil {
			to = *p.eyeTo
		}
		anim, err := scene.NewAnimation(p.eye, to, *p.frames)
		if err != nil {
			return nil, err
		}
		sf.Animation = anim
	} else if p.eyeTo != nil {
		p.logger.Warningf(`scene %q defines "anim_eye_to" without "anim_frames"; ignoring`, path)
	}

	return sf, nil
}

// Translate a face vertex index into an offset in the vertex list. Negative
// indices reference vertices from the end of the list.
func selectVertexIndex(indexToken string, vertexListLen, relOffset int) (int, error) {
	index, err := strconv.ParseInt(indexToken, 10, 32)
	if err != nil {
		return -1, err
	}

	var offset int
	switch {
	case index < 0:
		offset = vertexListLen + int(index)
	case index == 0:
		return -1, fmt.Errorf("vertex indices are 1-based")
	default:
		offset = relOffset + int(index-1)
	}
	if offset < 0 || offset >= vertexListLen {
		return -1, fmt.Errorf("index out of bounds")
	}
	return offset, nil
}

func parseFloat32(lineTokens []string) (float32, error) {
	if len(lineTokens) != 2 {
		return 0, fmt.Errorf(`unsupported syntax for %q; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	val, err := strconv.ParseFloat(lineTokens[1], 32)
	if err != nil {
		return 0, err
	}
	return float32(val), nil
}

func parseUint32(lineTokens []string) (uint32, error) {
	if len(lineTokens) != 2 {
		return 0, fmt.Errorf(`unsupported syntax for %q; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	val, err := strconv.ParseUint(lineTokens[1], 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(val), nil
}

// Parse the first three arguments as a Vec3.
func parseVec3(lineTokens []string) (types.Vec3, error) {
	if len(lineTokens) < 4 {
		return types.Vec3{}, fmt.Errorf(`unsupported syntax for %q; expected 3 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec3{}
	for tokIdx := 1; tokIdx <= 3; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}
