package g3d

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/g3d/internal/gpu"
)

// Option configures a Renderer during creation.
//
// Example:
//
//	r, err := g3d.New(handle,
//		g3d.WithFramesInFlight(3),
//		g3d.WithClearColor(0, 0, 0, 1))
type Option func(*rendererOptions)

// rendererOptions holds optional configuration for Renderer creation.
type rendererOptions struct {
	framesInFlight int
	clearColor     gputypes.Color
	colorFormat    gputypes.TextureFormat
	depthFormat    gputypes.TextureFormat
}

func defaultRendererOptions() rendererOptions {
	return rendererOptions{
		framesInFlight: gpu.DefaultFramesInFlight,
		clearColor:     gpu.DefaultClearColor,
		colorFormat:    gputypes.TextureFormatBGRA8Unorm,
		depthFormat:    gputypes.TextureFormatDepth32Float,
	}
}

// WithFramesInFlight sets how many frames may be recorded before the
// renderer blocks on the GPU. Clamped to [2, 3].
func WithFramesInFlight(n int) Option {
	return func(o *rendererOptions) {
		o.framesInFlight = n
	}
}

// WithClearColor sets the color every frame starts from.
func WithClearColor(r, g, b, a float64) Option {
	return func(o *rendererOptions) {
		o.clearColor = gputypes.Color{R: r, G: g, B: b, A: a}
	}
}

// WithColorFormat sets the color attachment format pipelines render
// into. It must match the format of the targets drawn with this
// renderer.
func WithColorFormat(f gputypes.TextureFormat) Option {
	return func(o *rendererOptions) {
		o.colorFormat = f
	}
}

// WithDepthFormat sets the depth attachment format pipelines are built
// against. It must match the depth buffers of the targets drawn with
// this renderer; render.DepthFormat is the default.
func WithDepthFormat(f gputypes.TextureFormat) Option {
	return func(o *rendererOptions) {
		o.depthFormat = f
	}
}
