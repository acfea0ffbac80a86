// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package display defines where composed frames go. A Target receives
// each finished frame; PixmapTarget keeps frames on the CPU for
// headless installs and tests, while display/wgpu pushes them to a GPU
// texture.
package display
