package g3d

// DirectionalLight is the single light source the renderer shades
// with: a direction, a color, and a constant ambient term. Exactly one
// directional light is active per frame.
type DirectionalLight struct {
	// Direction is the direction the light travels, not the vector
	// toward the light. It does not need to be normalized; the
	// renderer normalizes it when packing uniforms.
	Direction Vec3

	// Color is the diffuse light color (linear RGB).
	Color Vec3

	// Ambient is the constant ambient contribution (linear RGB).
	Ambient Vec3
}

// NewDirectionalLight returns the default light: white light from
// above-right-front with a low ambient floor.
func NewDirectionalLight() DirectionalLight {
	return DirectionalLight{
		Direction: V3(-1, -1, -1),
		Color:     V3(1, 1, 1),
		Ambient:   V3(0.1, 0.1, 0.1),
	}
}
