package g3d

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/g3d/internal/gpu"
)

// Texture pixel formats accepted by CreateTexture. All are 8-bit
// uncompressed layouts; compressed and floating-point formats are
// rejected with ErrUnsupportedFormat.
const (
	TextureFormatR8Unorm        = gputypes.TextureFormatR8Unorm
	TextureFormatRG8Unorm       = gputypes.TextureFormatRG8Unorm
	TextureFormatRGBA8Unorm     = gputypes.TextureFormatRGBA8Unorm
	TextureFormatRGBA8UnormSrgb = gputypes.TextureFormatRGBA8UnormSrgb
	TextureFormatBGRA8Unorm     = gputypes.TextureFormatBGRA8Unorm
	TextureFormatBGRA8UnormSrgb = gputypes.TextureFormatBGRA8UnormSrgb
)

// Sampler configuration, re-exported from the GPU layer. The zero
// SamplerOptions is linear filtering with repeat addressing.
type (
	FilterMode     = gpu.FilterMode
	WrapMode       = gpu.WrapMode
	SamplerOptions = gpu.SamplerOptions
)

const (
	FilterLinear  = gpu.FilterLinear
	FilterNearest = gpu.FilterNearest

	WrapRepeat      = gpu.WrapRepeat
	WrapClampToEdge = gpu.WrapClampToEdge
)

// Texture is a GPU-resident 2D image. Reference-counted: each material
// that binds it holds a reference, and the GPU memory is released when
// the last material is destroyed and the creator's reference dropped
// via ReleaseTexture.
type Texture struct {
	g *gpu.Texture
}

// Width returns the texture width in pixels.
func (t *Texture) Width() uint32 { return t.g.Width() }

// Height returns the texture height in pixels.
func (t *Texture) Height() uint32 { return t.g.Height() }

// Format returns the pixel format.
func (t *Texture) Format() gputypes.TextureFormat { return t.g.Format() }

// MaterialDescriptor describes a material to create. The zero value
// of the scalar fields means "default": opaque white base color,
// ambient factor 1, shininess 32.
type MaterialDescriptor struct {
	Label string

	// Diffuse is the optional albedo texture.
	Diffuse *Texture

	// NormalMap is the optional tangent-space normal map. Meshes drawn
	// with it must carry tangents.
	NormalMap *Texture

	// BaseColor multiplies the albedo (linear RGBA).
	BaseColor Vec4

	// AmbientFactor scales the light's ambient term.
	AmbientFactor float32

	// SpecularFactor scales the specular highlight.
	SpecularFactor float32

	// Shininess is the specular exponent.
	Shininess float32
}

// Material is an immutable shading recipe: optional textures plus
// scalar parameters. Its capability signature selects the render
// pipeline each draw uses.
type Material struct {
	g *gpu.Material
}

// Textured reports whether the material samples a diffuse texture.
func (m *Material) Textured() bool { return m.g.Signature().IsTextured }

// NormalMapped reports whether the material samples a normal map.
func (m *Material) NormalMapped() bool { return m.g.Signature().HasNormalMap }

// Label returns the debug label given at creation.
func (m *Material) Label() string { return m.g.Label() }
