package g3d

import "math"

// Default camera parameters. The projection defaults match the
// reference scene: 45 degree vertical field of view, near plane at
// 0.1, far plane at 100.
const (
	DefaultFovY = float32(math.Pi / 4)
	DefaultNear = float32(0.1)
	DefaultFar  = float32(100.0)

	// maxPitch keeps the look direction away from the poles so the
	// view basis never degenerates against the world up vector.
	maxPitch = float32(math.Pi/2 - 0.01)
)

// Camera describes the mono viewpoint: a position, a yaw/pitch look
// direction and a perspective projection. Movement integration (keys,
// mouse) happens outside the renderer; hosts mutate the exported
// fields between frames and the renderer only reads them.
type Camera struct {
	// Position is the camera location in world space.
	Position Vec3

	// Yaw is the rotation around the world Y axis in radians.
	// Yaw 0 looks down -Z; positive yaw turns toward +X.
	Yaw float32

	// Pitch is the elevation angle in radians, clamped to just short
	// of straight up/down.
	Pitch float32

	// FovY is the vertical field of view in radians.
	FovY float32

	// Near and Far are the clip plane distances.
	Near, Far float32
}

// NewCamera creates a camera at the given position with default
// projection parameters, looking down -Z.
func NewCamera(position Vec3) *Camera {
	return &Camera{
		Position: position,
		FovY:     DefaultFovY,
		Near:     DefaultNear,
		Far:      DefaultFar,
	}
}

// Forward returns the unit look direction derived from yaw and pitch.
func (c *Camera) Forward() Vec3 {
	pitch := clamp32(c.Pitch, -maxPitch, maxPitch)
	sy, cy := sincos32(c.Yaw)
	sp, cp := sincos32(pitch)
	return Vec3{X: sy * cp, Y: sp, Z: -cy * cp}
}

// Right returns the unit right direction.
func (c *Camera) Right() Vec3 {
	return c.Forward().Cross(V3(0, 1, 0)).Normalize()
}

// LookAt orients the camera toward a world-space point by solving yaw
// and pitch from the direction vector.
func (c *Camera) LookAt(target Vec3) {
	dir := target.Sub(c.Position).Normalize()
	c.Yaw = float32(math.Atan2(float64(dir.X), float64(-dir.Z)))
	c.Pitch = float32(math.Asin(float64(clamp32(dir.Y, -1, 1))))
}

// ViewMatrix returns the world-to-camera transform.
func (c *Camera) ViewMatrix() Mat4 {
	return LookAt(c.Position, c.Position.Add(c.Forward()), V3(0, 1, 0))
}

// ProjectionMatrix returns the perspective projection for the given
// aspect ratio (width/height).
func (c *Camera) ProjectionMatrix(aspect float32) Mat4 {
	return Perspective(c.FovY, aspect, c.Near, c.Far)
}

// ViewProjection returns projection * view for the given aspect ratio.
func (c *Camera) ViewProjection(aspect float32) Mat4 {
	return c.ProjectionMatrix(aspect).Mul(c.ViewMatrix())
}

// Eye indices for stereo rendering. The presentation surface expects
// the left eye in layer 0 and the right eye in layer 1.
const (
	EyeLeft  = 0
	EyeRight = 1
)

// DefaultIPD is the default inter-pupillary distance in meters.
const DefaultIPD = float32(0.064)

// StereoCamera describes the stereo viewpoint: a shared head pose plus
// a lateral per-eye offset. Each eye gets its own view matrix; the
// projection is shared (symmetric frustum).
type StereoCamera struct {
	// Head is the shared head pose. Position is the midpoint between
	// the eyes.
	Head Camera

	// IPD is the inter-pupillary distance in meters. Each eye is
	// offset by half of it along the head's right vector.
	IPD float32
}

// NewStereoCamera creates a stereo camera at the given head position
// with default projection parameters and IPD.
func NewStereoCamera(position Vec3) *StereoCamera {
	return &StereoCamera{
		Head: Camera{
			Position: position,
			FovY:     DefaultFovY,
			Near:     DefaultNear,
			Far:      DefaultFar,
		},
		IPD: DefaultIPD,
	}
}

// EyePosition returns the world-space position of the given eye
// (EyeLeft or EyeRight).
func (c *StereoCamera) EyePosition(eye int) Vec3 {
	offset := c.Head.Right().Mul(c.IPD / 2)
	if eye == EyeLeft {
		return c.Head.Position.Sub(offset)
	}
	return c.Head.Position.Add(offset)
}

// EyeViewMatrix returns the world-to-camera transform for the given eye.
func (c *StereoCamera) EyeViewMatrix(eye int) Mat4 {
	pos := c.EyePosition(eye)
	return LookAt(pos, pos.Add(c.Head.Forward()), V3(0, 1, 0))
}

// ProjectionMatrix returns the shared per-eye projection. Stereo eye
// buffers are square per eye in the reference configuration, but any
// aspect works.
func (c *StereoCamera) ProjectionMatrix(aspect float32) Mat4 {
	return Perspective(c.Head.FovY, aspect, c.Head.Near, c.Head.Far)
}

func clamp32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
