package media

// Category identifies one of the resource kinds the registry manages.
type Category string

const (
	CategoryTexture     Category = "textures"
	CategoryCubemap     Category = "cubemaps"
	CategoryShader      Category = "shaders"
	CategoryModel       Category = "models"
	CategorySoundEffect Category = "soundEffects"
	CategoryMusic       Category = "music"
	CategoryBitmapFont  Category = "fonts"
)

// folderFor maps a category to the logical storage folder its files live in.
var folderFor = map[Category]string{
	CategoryTexture:     "textures",
	CategoryCubemap:     "cubemaps",
	CategoryShader:      "shaders",
	CategoryModel:       "models",
	CategorySoundEffect: "sfx",
	CategoryMusic:       "music",
	CategoryBitmapFont:  "fonts",
}

// State is the lifecycle state of a resource.
type State int

const (
	StateUnrequested State = iota
	StateRequested
	StateLoadingData
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnrequested:
		return "unrequested"
	case StateRequested:
		return "requested"
	case StateLoadingData:
		return "loadingData"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether a resource in this state is done loading, either
// usable or failed.
func (s State) Terminal() bool {
	return s == StateReady || s == StateFailed
}

// TextureType names one layer role of a texture (diffuse, normal, ...).
// The set in play comes from the manifest, these are the conventional ones.
type TextureType string

const (
	TextureTypeDiffuse  TextureType = "diffuse"
	TextureTypeNormal   TextureType = "normal"
	TextureTypeSpecular TextureType = "specular"
	TextureTypeEmissive TextureType = "emissive"
)

// Quality names one quality tier of a texture or cubemap.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)
