// Package compute runs WebGPU compute shaders. The collision code uses it for
// the GPU broad phase; it does not depend on any window or render context.
package compute

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrUnavailable is returned when no GPU adapter could be initialized.
var ErrUnavailable = errors.New("compute: no GPU adapter available")

// System owns the WebGPU device and a cache of compiled pipelines.
type System struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	mu        sync.Mutex
	pipelines map[string]*Pipeline
}

// Pipeline is a compiled compute shader.
type Pipeline struct {
	shader   *wgpu.ShaderModule
	pipeline *wgpu.ComputePipeline
	layout   *wgpu.BindGroupLayout
}

// Buffer is a GPU buffer bound to a compute pass.
type Buffer struct {
	buffer *wgpu.Buffer
	size   uint64
}

// AdapterInfo describes the selected GPU.
type AdapterInfo struct {
	Name       string
	Vendor     string
	Backend    string
	DeviceType string
}

var (
	global   *System
	initOnce sync.Once
	initErr  error
)

// Initialize sets up the shared system once. Later calls return the result
// of the first one.
func Initialize() (AdapterInfo, error) {
	initOnce.Do(func() {
		global, initErr = newSystem()
	})
	if initErr != nil {
		return AdapterInfo{}, initErr
	}
	info := global.adapter.GetInfo()
	return AdapterInfo{
		Name:       info.Name,
		Vendor:     info.VendorName,
		Backend:    info.BackendType.String(),
		DeviceType: info.AdapterType.String(),
	}, nil
}

// Get returns the shared system, or nil before a successful Initialize.
func Get() *System {
	return global
}

func newSystem() (*System, error) {
	instance := wgpu.CreateInstance(nil)
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("compute: request device: %w", err)
	}
	return &System{
		instance:  instance,
		adapter:   adapter,
		device:    device,
		queue:     device.GetQueue(),
		pipelines: make(map[string]*Pipeline),
	}, nil
}

// CreatePipeline compiles a shader with an automatic bind group layout and
// caches it by name.
func (s *System) CreatePipeline(name, wgsl, entryPoint string) (*Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pipelines[name]; ok {
		return p, nil
	}
	module, err := s.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: wgsl},
	})
	if err != nil {
		return nil, fmt.Errorf("compute: shader %s: %w", name, err)
	}
	pipeline, err := s.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: name,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: entryPoint,
		},
	})
	if err != nil {
		module.Release()
		return nil, fmt.Errorf("compute: pipeline %s: %w", name, err)
	}
	p := &Pipeline{shader: module, pipeline: pipeline, layout: pipeline.GetBindGroupLayout(0)}
	s.pipelines[name] = p
	return p, nil
}

func (s *System) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (*Buffer, error) {
	buf, err := s.device.CreateBuffer(&wgpu.BufferDescriptor{Label: label, Size: size, Usage: usage})
	if err != nil {
		return nil, fmt.Errorf("compute: buffer %s: %w", label, err)
	}
	return &Buffer{buffer: buf, size: size}, nil
}

func (s *System) CreateBufferWithData(label string, data []byte, usage wgpu.BufferUsage) (*Buffer, error) {
	buf, err := s.device.CreateBufferInit(&wgpu.BufferInitDescriptor{Label: label, Contents: data, Usage: usage})
	if err != nil {
		return nil, fmt.Errorf("compute: buffer %s: %w", label, err)
	}
	return &Buffer{buffer: buf, size: uint64(len(data))}, nil
}

func (s *System) WriteBuffer(buf *Buffer, offset uint64, data []byte) {
	s.queue.WriteBuffer(buf.buffer, offset, data)
}

// Dispatch binds buffers to @binding 0..n-1 of group 0 and runs the shader.
func (s *System) Dispatch(p *Pipeline, workgroups uint32, buffers ...*Buffer) error {
	entries := make([]wgpu.BindGroupEntry, len(buffers))
	for i, b := range buffers {
		entries[i] = wgpu.BindGroupEntry{Binding: uint32(i), Buffer: b.buffer, Size: b.size}
	}
	group, err := s.device.CreateBindGroup(&wgpu.BindGroupDescriptor{Layout: p.layout, Entries: entries})
	if err != nil {
		return fmt.Errorf("compute: bind group: %w", err)
	}
	defer group.Release()

	encoder, err := s.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("compute: command encoder: %w", err)
	}
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, group, nil)
	pass.DispatchWorkgroups(workgroups, 1, 1)
	pass.End()
	pass.Release()

	commands, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("compute: finish encoder: %w", err)
	}
	defer commands.Release()
	s.queue.Submit(commands)
	return nil
}

// ReadBuffer copies a buffer back to the CPU and blocks until it is mapped.
// The buffer must have been created with BufferUsageCopySrc.
func (s *System) ReadBuffer(buf *Buffer) ([]byte, error) {
	staging, err := s.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "staging_read",
		Size:  buf.size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("compute: staging buffer: %w", err)
	}
	defer staging.Release()

	encoder, err := s.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("compute: command encoder: %w", err)
	}
	encoder.CopyBufferToBuffer(buf.buffer, 0, staging, 0, buf.size)
	commands, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("compute: finish encoder: %w", err)
	}
	s.queue.Submit(commands)
	commands.Release()

	done := make(chan error, 1)
	err = staging.MapAsync(wgpu.MapModeRead, 0, buf.size, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			done <- fmt.Errorf("compute: map buffer: %v", status)
			return
		}
		done <- nil
	})
	if err != nil {
		return nil, err
	}
	s.device.Poll(true, nil)
	if err := <-done; err != nil {
		return nil, err
	}

	mapped := staging.GetMappedRange(0, uint(buf.size))
	out := make([]byte, len(mapped))
	copy(out, mapped)
	staging.Unmap()
	return out, nil
}

// Release frees every GPU resource held by the system.
func (s *System) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.pipelines {
		p.layout.Release()
		p.pipeline.Release()
		p.shader.Release()
	}
	s.pipelines = nil
	s.queue.Release()
	s.device.Release()
	s.adapter.Release()
	s.instance.Release()
}

func (b *Buffer) Release() { b.buffer.Release() }

func (b *Buffer) Size() uint64 { return b.size }

// ToBytes reinterprets a slice for upload.
func ToBytes[T any](data []T) []byte {
	return wgpu.ToBytes(data)
}

func fromBytes[T any](data []byte) []T {
	return wgpu.FromBytes[T](data)
}
