// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package asset prepares CPU-side data for upload: decoded images
// become tightly-packed RGBA8 pixel buffers (with optional
// high-quality resizing), and meshes without tangents get them
// computed from UVs so normal-mapped materials can shade them.
//
// Decoding file formats is the caller's business; any image.Image
// works as input.
package asset
