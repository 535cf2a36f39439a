package media

import (
	"fmt"

	toml "github.com/pelletier/go-toml/v2"
)

// Manifest is the resource description table: one array of descriptors per
// category, parsed from a TOML document.
type Manifest struct {
	Textures     []*TextureDescriptor     `toml:"textures"`
	Cubemaps     []*CubemapDescriptor     `toml:"cubemaps"`
	Shaders      []*ShaderDescriptor      `toml:"shaders"`
	Models       []*ModelDescriptor       `toml:"models"`
	SoundEffects []*SoundEffectDescriptor `toml:"soundEffects"`
	Music        []*MusicDescriptor       `toml:"music"`
	Fonts        []*BitmapFontDescriptor  `toml:"fonts"`
}

// TextureDescriptor declares a texture as a sparse (type, quality) grid of
// image files named BasePath + typeSuffix + qualitySuffix + "." + Format.
type TextureDescriptor struct {
	Name            string                 `toml:"name"`
	BasePath        string                 `toml:"basePath"`
	Format          string                 `toml:"format"`
	TypeSuffixes    map[TextureType]string `toml:"typeSuffixes"`
	QualitySuffixes map[Quality]string     `toml:"qualitySuffixes"`
}

// CubemapDescriptor declares a cubemap as a (face, quality) grid of image
// files named BasePath + faceSuffix + qualitySuffix + "." + Format.
type CubemapDescriptor struct {
	Name            string             `toml:"name"`
	BasePath        string             `toml:"basePath"`
	Format          string             `toml:"format"`
	FaceSuffixes    map[string]string  `toml:"faceSuffixes"`
	QualitySuffixes map[Quality]string `toml:"qualitySuffixes"`
}

// ShaderDescriptor declares a shader with one vertex and one fragment source
// file, plus optional named variants mapping to other shader names.
type ShaderDescriptor struct {
	Name           string            `toml:"name"`
	VertexSource   string            `toml:"vertexSource"`
	FragmentSource string            `toml:"fragmentSource"`
	BlendMode      string            `toml:"blendMode"`
	Attributes     map[string]string `toml:"attributes"`
	Variants       map[string]string `toml:"variants"`
}

// ModelFileDescriptor declares one model file alternative and the maximum
// level of detail it contains.
type ModelFileDescriptor struct {
	Suffix string `toml:"suffix"`
	MaxLOD int    `toml:"maxLOD"`
}

type ModelDescriptor struct {
	Name     string                 `toml:"name"`
	BasePath string                 `toml:"basePath"`
	Format   string                 `toml:"format"`
	Files    []*ModelFileDescriptor `toml:"files"`
}

type SoundEffectDescriptor struct {
	Name    string   `toml:"name"`
	Samples []string `toml:"samples"`
}

type MusicDescriptor struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

type BitmapFontDescriptor struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

// ParseManifest decodes a TOML resource description table.
func ParseManifest(data []byte) (*Manifest, error) {
	manifest := &Manifest{}
	if err := toml.Unmarshal(data, manifest); err != nil {
		return nil, fmt.Errorf("failed to parse media manifest: %w", err)
	}
	return manifest, nil
}
