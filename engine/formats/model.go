package formats

import (
	"bytes"
	"encoding/xml"

	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/spaghettifunk/aria/engine/core"
)

// Vertex is the position-only vertex layout the loader assembles. Normals
// and texture coordinates stay with the source document until a renderer
// asks for them.
type Vertex struct {
	Pos glm.Vec3
}

type Mesh struct {
	Name           string
	Vertices       []Vertex
	PrimitiveCount int
}

// Model is the decoded, renderer-agnostic result of parsing a model payload.
type Model struct {
	Name   string
	Meshes []Mesh

	// Source document when the payload was glTF; nil for COLLADA payloads.
	Document *gltf.Document
}

// ParseModel decodes a model payload, selecting the format by sniffing the
// first non-blank byte: '{' means a glTF JSON document, '<' means a COLLADA
// XML document. Any other leading byte is a format error.
func ParseModel(name string, payload []byte) (*Model, error) {
	trimmed := bytes.TrimLeft(payload, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, errors.Wrapf(core.ErrUnknownFormat, "model %s: empty payload", name)
	}

	switch trimmed[0] {
	case '{':
		return parseGLTF(name, trimmed)
	case '<':
		return parseCollada(name, trimmed)
	default:
		return nil, errors.Wrapf(core.ErrUnknownFormat, "model %s: leading byte %q", name, trimmed[0])
	}
}

func parseGLTF(name string, payload []byte) (*Model, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(payload)).Decode(doc); err != nil {
		return nil, errors.Wrapf(err, "model %s: bad glTF document", name)
	}

	model := &Model{
		Name:     name,
		Document: doc,
	}
	for _, m := range doc.Meshes {
		model.Meshes = append(model.Meshes, Mesh{
			Name:           m.Name,
			PrimitiveCount: len(m.Primitives),
		})
	}
	return model, nil
}

func parseCollada(name string, payload []byte) (*Model, error) {
	var doc Collada
	if err := xml.Unmarshal(payload, &doc); err != nil {
		return nil, errors.Wrapf(err, "model %s: bad COLLADA document", name)
	}
	if len(doc.Geometries) == 0 {
		return nil, errors.Errorf("model %s: COLLADA document has no geometry", name)
	}

	model := &Model{Name: name}
	for _, geom := range doc.Geometries {
		mesh, err := importColladaGeometry(geom)
		if err != nil {
			return nil, errors.Wrapf(err, "model %s", name)
		}
		model.Meshes = append(model.Meshes, mesh)
	}
	return model, nil
}

func importColladaGeometry(geom ColladaGeometry) (Mesh, error) {
	source, err := findColladaSource(geom.Mesh.Sources, "positions")
	if err != nil {
		return Mesh{}, err
	}

	// Each index tuple carries one entry per input; only the vertex offset
	// addresses the position source.
	stride := len(geom.Mesh.Triangles.Inputs)
	if stride == 0 {
		stride = 1
	}
	posOffset := 0
	for _, in := range geom.Mesh.Triangles.Inputs {
		if in.Semantic == "VERTEX" {
			posOffset = in.Offset
		}
	}

	var vertices []Vertex
	index := geom.Mesh.Triangles.Index
	for idx := 0; idx+stride <= len(index); idx += stride {
		p := index[idx+posOffset] * 3
		if p+2 >= len(source.Floats.Data) {
			return Mesh{}, errors.Errorf("geometry %s: vertex index out of range", geom.ID)
		}
		vertices = append(vertices, Vertex{
			Pos: glm.Vec3{
				source.Floats.Data[p],
				source.Floats.Data[p+1],
				source.Floats.Data[p+2],
			},
		})
	}

	return Mesh{
		Name:           geom.Name,
		Vertices:       vertices,
		PrimitiveCount: geom.Mesh.Triangles.Count,
	}, nil
}

func findColladaSource(sources []ColladaSource, suffix string) (*ColladaSource, error) {
	for i, s := range sources {
		if len(s.ID) >= len(suffix) && s.ID[len(s.ID)-len(suffix):] == suffix {
			return &sources[i], nil
		}
	}
	if len(sources) > 0 {
		// Exporters disagree on source naming; the first source is the
		// position array in every document seen so far.
		return &sources[0], nil
	}
	return nil, errors.Errorf("no source matching *%s", suffix)
}
