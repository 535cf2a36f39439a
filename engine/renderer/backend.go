package renderer

import (
	"image"

	"github.com/google/uuid"
)

// Texture is a managed, ready-to-bind texture built from decoded images.
// One layer per requested texture type, all at the same quality tier.
type Texture struct {
	ID     uuid.UUID
	Name   string
	Width  int
	Height int
	Layers []image.Image
}

// Cubemap is a managed cubemap built from six face images.
type Cubemap struct {
	ID    uuid.UUID
	Name  string
	Faces []image.Image
}

// ShaderProgram is a managed program built from fully resolved and
// substituted vertex/fragment sources.
type ShaderProgram struct {
	ID             uuid.UUID
	Name           string
	VertexSource   string
	FragmentSource string
	Defines        map[string]string
	BlendMode      string
	Attributes     map[string]string
}

// Backend constructs GPU-side objects from already-decoded inputs. It is a
// pure collaborator: no fetching, no caching, construction only.
type Backend interface {
	BuildTexture(name string, layers []image.Image) (*Texture, error)
	BuildCubemap(name string, faces []image.Image) (*Cubemap, error)
	BuildShaderProgram(name, vertexSource, fragmentSource string, defines map[string]string, blendMode string, attributes map[string]string) (*ShaderProgram, error)
}

// NullBackend builds host-side stand-ins and never touches a device. Useful
// headless and in tests.
type NullBackend struct{}

func (NullBackend) BuildTexture(name string, layers []image.Image) (*Texture, error) {
	t := &Texture{
		ID:     uuid.New(),
		Name:   name,
		Layers: layers,
	}
	if len(layers) > 0 && layers[0] != nil {
		b := layers[0].Bounds()
		t.Width = b.Dx()
		t.Height = b.Dy()
	}
	return t, nil
}

func (NullBackend) BuildCubemap(name string, faces []image.Image) (*Cubemap, error) {
	return &Cubemap{
		ID:    uuid.New(),
		Name:  name,
		Faces: faces,
	}, nil
}

func (NullBackend) BuildShaderProgram(name, vertexSource, fragmentSource string, defines map[string]string, blendMode string, attributes map[string]string) (*ShaderProgram, error) {
	return &ShaderProgram{
		ID:             uuid.New(),
		Name:           name,
		VertexSource:   vertexSource,
		FragmentSource: fragmentSource,
		Defines:        defines,
		BlendMode:      blendMode,
		Attributes:     attributes,
	}, nil
}
