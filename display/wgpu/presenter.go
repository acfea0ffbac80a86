// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu is a GPU-backed display target. The presenter owns a
// standalone device and uploads each composed frame into an RGBA8
// texture; the shell that owns the window samples that texture with the
// blit shader compiled here.
package wgpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/pulseframe/pulseframe/display"
	"github.com/pulseframe/pulseframe/surface"
)

// blitWGSL samples the frame texture onto a fullscreen triangle. The
// presenter compiles it through naga at init so a shader regression
// fails device setup, not the first frame.
const blitWGSL = `
struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> VertexOutput {
    var out: VertexOutput;
    let x = f32(i32(index & 1u) * 4 - 1);
    let y = f32(i32(index & 2u) * 2 - 1);
    out.position = vec4<f32>(x, y, 0.0, 1.0);
    out.uv = vec2<f32>((x + 1.0) * 0.5, (1.0 - y) * 0.5);
    return out;
}

@group(0) @binding(0) var frame_tex: texture_2d<f32>;
@group(0) @binding(1) var frame_sampler: sampler;

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    return textureSample(frame_tex, frame_sampler, in.uv);
}
`

// Config describes the presenter's frame texture.
type Config struct {
	Width  int
	Height int

	// Label prefixes GPU object debug labels. Empty means "pulseframe".
	Label string
}

func (c *Config) validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("wgpu: invalid presenter size %dx%d", c.Width, c.Height)
	}
	return nil
}

// ErrNotInitialized is returned by Present before Init succeeds.
var ErrNotInitialized = errors.New("wgpu: presenter not initialized")

// Presenter uploads composed frames to a GPU texture. Construction
// validates parameters only; Init acquires the device, so headless
// environments can still build and inspect a presenter.
type Presenter struct {
	cfg Config

	mu       sync.Mutex
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	texture  hal.Texture
	view     hal.TextureView
	shader   hal.ShaderModule
	adapter  string
	frames   uint64
	ready    bool
	closed   bool
}

// NewPresenter validates cfg and returns an uninitialized presenter.
func NewPresenter(cfg Config) (*Presenter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Label == "" {
		cfg.Label = "pulseframe"
	}
	return &Presenter{cfg: cfg}, nil
}

// Size returns the frame dimensions the presenter expects.
func (p *Presenter) Size() (int, int) { return p.cfg.Width, p.cfg.Height }

// Ready reports whether Init has completed.
func (p *Presenter) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

// AdapterName returns the selected adapter's name, or "" before Init.
func (p *Presenter) AdapterName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.adapter
}

// Init acquires a standalone device, allocates the frame texture and
// compiles the blit shader. It fails cleanly when no GPU is available.
func (p *Presenter) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("wgpu: presenter closed")
	}
	if p.ready {
		return nil
	}

	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return errors.New("wgpu: vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("wgpu: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return errors.New("wgpu: no GPU adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("wgpu: open device: %w", err)
	}
	p.instance = instance
	p.device = openDev.Device
	p.queue = openDev.Queue
	p.adapter = selected.Info.Name

	texture, err := p.device.CreateTexture(&hal.TextureDescriptor{
		Label: p.cfg.Label + "_frame",
		Size: hal.Extent3D{
			Width:              uint32(p.cfg.Width),
			Height:             uint32(p.cfg.Height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        display.FrameFormat,
		Usage:         gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create frame texture: %w", err)
	}
	p.texture = texture

	view, err := p.device.CreateTextureView(texture, &hal.TextureViewDescriptor{
		Label:  p.cfg.Label + "_frame_view",
		Aspect: gputypes.TextureAspectAll,
	})
	if err != nil {
		p.device.DestroyTexture(texture)
		return fmt.Errorf("wgpu: create frame view: %w", err)
	}
	p.view = view

	shader, err := p.compileBlitShader()
	if err != nil {
		p.device.DestroyTextureView(view)
		p.device.DestroyTexture(texture)
		return err
	}
	p.shader = shader

	p.ready = true
	return nil
}

// compileBlitShader runs the WGSL through naga and builds the module
// from the resulting SPIR-V.
func (p *Presenter) compileBlitShader() (hal.ShaderModule, error) {
	spirvBytes, err := naga.Compile(blitWGSL)
	if err != nil {
		return nil, fmt.Errorf("wgpu: compile blit shader: %w", err)
	}

	spirv := make([]uint32, len(spirvBytes)/4)
	for i := range spirv {
		spirv[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}

	module, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  p.cfg.Label + "_blit",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create blit module: %w", err)
	}
	return module, nil
}

// Present uploads frame pixels into the GPU texture.
func (p *Presenter) Present(frame *surface.Surface) error {
	if frame.Width() != p.cfg.Width || frame.Height() != p.cfg.Height {
		return fmt.Errorf("wgpu: frame %dx%d for %dx%d presenter: %w",
			frame.Width(), frame.Height(), p.cfg.Width, p.cfg.Height,
			surface.ErrSizeMismatch)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ready {
		return ErrNotInitialized
	}

	dst := &hal.ImageCopyTexture{
		Texture:  p.texture,
		MipLevel: 0,
		Origin:   hal.Origin3D{},
		Aspect:   gputypes.TextureAspectAll,
	}
	layout := &hal.ImageDataLayout{
		Offset:       0,
		BytesPerRow:  uint32(frame.Stride()),
		RowsPerImage: uint32(p.cfg.Height),
	}
	size := &hal.Extent3D{
		Width:              uint32(p.cfg.Width),
		Height:             uint32(p.cfg.Height),
		DepthOrArrayLayers: 1,
	}
	p.queue.WriteTexture(dst, frame.Pix(), layout, size)
	p.frames++
	return nil
}

// Frames returns how many frames were uploaded.
func (p *Presenter) Frames() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames
}

// TextureView exposes the frame texture for the blit pass of the host
// shell. Nil before Init.
func (p *Presenter) TextureView() hal.TextureView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

// Close releases GPU resources. Idempotent.
func (p *Presenter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.ready = false

	if p.device != nil {
		if p.shader != nil {
			p.device.DestroyShaderModule(p.shader)
		}
		if p.view != nil {
			p.device.DestroyTextureView(p.view)
		}
		if p.texture != nil {
			p.device.DestroyTexture(p.texture)
		}
	}
	return nil
}

var _ display.Target = (*Presenter)(nil)
