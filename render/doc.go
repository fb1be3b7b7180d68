// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render defines the host-facing rendering contracts: the
// device handle a host application provides and the render targets a
// frame draws into.
//
// Two kinds of targets exist. Offscreen texture targets (mono and
// stereo) own their color and depth attachments and never present;
// they suit tests, thumbnails and XR runtimes that consume layer
// textures directly. The surface target wraps a host swapchain: the
// host supplies acquire and present callbacks, the target owns only
// the depth buffer.
//
// The device is always received from the host, never created here.
package render
