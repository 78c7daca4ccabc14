// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package glrt is the root of a GPU resource lifecycle layer
// for GL-tiered graphics runtimes.
//
// The sub-packages provide vertex/index/instance buffers
// (buffer), texture sources and container parsers (texture,
// texture/ktx, texture/etc1), framebuffers (framebuffer),
// shader programs (shader) and the managed-resource registry
// that rebuilds all of them after a graphics-context loss
// (resource). GPU access goes through the driver package.
//
// This package only holds the logger shared by the
// sub-packages.
package glrt
