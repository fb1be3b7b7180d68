// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package scene holds the object list a frame draws: meshes paired
// with materials and transforms, plus the light. It is a thin
// collaborator on top of the g3d.Renderer frame API; hosts with their
// own scene graph can skip it and call Draw themselves.
package scene

import (
	"github.com/gogpu/g3d"
)

// Object is one drawable: a mesh, the material shading it, and its
// world transform.
type Object struct {
	Mesh      *g3d.Mesh
	Material  *g3d.Material
	Transform g3d.Transform

	// Hidden objects stay in the scene but are skipped when drawing.
	Hidden bool
}

// Scene is an ordered object list and a light. Not safe for
// concurrent mutation while a frame draws it.
type Scene struct {
	Light   g3d.DirectionalLight
	objects []*Object
}

// New creates an empty scene with the default directional light.
func New() *Scene {
	return &Scene{Light: g3d.NewDirectionalLight()}
}

// Add appends an object.
func (s *Scene) Add(o *Object) {
	s.objects = append(s.objects, o)
}

// Remove deletes the first occurrence of the object, preserving
// order.
func (s *Scene) Remove(o *Object) {
	for i, obj := range s.objects {
		if obj == o {
			s.objects = append(s.objects[:i], s.objects[i+1:]...)
			return
		}
	}
}

// Objects returns the live object slice.
func (s *Scene) Objects() []*Object {
	return s.objects
}

// Len returns the object count.
func (s *Scene) Len() int { return len(s.objects) }

// Draw renders the scene into a mono target through the camera.
func Draw(r *g3d.Renderer, target g3d.Target, cam *g3d.Camera, s *Scene) (g3d.FrameStats, error) {
	if err := r.BeginFrame(target, cam, &s.Light); err != nil {
		return g3d.FrameStats{}, err
	}
	if err := drawObjects(r, s); err != nil {
		r.Abort()
		return g3d.FrameStats{}, err
	}
	return r.EndFrame()
}

// DrawStereo renders the scene into a stereo target, once per eye.
func DrawStereo(r *g3d.Renderer, target g3d.Target, cam *g3d.StereoCamera, s *Scene) (g3d.FrameStats, error) {
	if err := r.BeginFrameStereo(target, cam, &s.Light); err != nil {
		return g3d.FrameStats{}, err
	}
	if err := drawObjects(r, s); err != nil {
		r.Abort()
		return g3d.FrameStats{}, err
	}
	return r.EndFrame()
}

func drawObjects(r *g3d.Renderer, s *Scene) error {
	for _, o := range s.objects {
		if o.Hidden {
			continue
		}
		if err := r.Draw(o.Mesh, o.Material, o.Transform.Matrix()); err != nil {
			return err
		}
	}
	return nil
}
