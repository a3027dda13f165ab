package compute

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrPairOverflow is returned when the shader found more pairs than the
// output buffer holds. The result would be incomplete, so none is returned.
var ErrPairOverflow = errors.New("compute: pair buffer overflow")

// Box is an AABB packed as two vec4 so it matches the WGSL struct layout.
type Box struct {
	MinX, MinY, MinZ, _ float32
	MaxX, MaxY, MaxZ, _ float32
}

// CollisionPair holds the indices of two overlapping boxes, A < B.
type CollisionPair struct {
	A, B uint32
}

const overlapShader = `
struct Box {
    min: vec4<f32>,
    max: vec4<f32>,
}

struct Pair {
    a: u32,
    b: u32,
}

@group(0) @binding(0) var<storage, read> boxes: array<Box>;
@group(0) @binding(1) var<storage, read_write> pairs: array<Pair>;
@group(0) @binding(2) var<storage, read_write> pairCount: atomic<u32>;
@group(0) @binding(3) var<uniform> objectCount: u32;

// Each thread tests one box against every box with a higher index.
@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let i = global_id.x;
    if (i >= objectCount) {
        return;
    }
    let a = boxes[i];
    for (var j = i + 1u; j < objectCount; j = j + 1u) {
        let b = boxes[j];
        if (all(a.min.xyz <= b.max.xyz) && all(a.max.xyz >= b.min.xyz)) {
            let idx = atomicAdd(&pairCount, 1u);
            if (idx < arrayLength(&pairs)) {
                pairs[idx] = Pair(i, j);
            }
        }
    }
}
`

// OverlapDetector finds every overlapping pair of AABBs on the GPU.
type OverlapDetector struct {
	system   *System
	pipeline *Pipeline

	boxBuffer   *Buffer
	pairBuffer  *Buffer
	countBuffer *Buffer

	maxObjects uint32
	maxPairs   uint32
}

// NewOverlapDetector allocates buffers for up to maxObjects boxes and
// maxPairs output pairs. Initialize must have succeeded first.
func NewOverlapDetector(maxObjects, maxPairs uint32) (*OverlapDetector, error) {
	sys := Get()
	if sys == nil {
		return nil, ErrUnavailable
	}
	pipeline, err := sys.CreatePipeline("aabb_overlap", overlapShader, "main")
	if err != nil {
		return nil, err
	}

	boxBuffer, err := sys.CreateBuffer("boxes", uint64(maxObjects)*32,
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	pairBuffer, err := sys.CreateBuffer("pairs", uint64(maxPairs)*8,
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	if err != nil {
		boxBuffer.Release()
		return nil, err
	}
	countBuffer, err := sys.CreateBuffer("pairCount", 4,
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc|wgpu.BufferUsageCopyDst)
	if err != nil {
		boxBuffer.Release()
		pairBuffer.Release()
		return nil, err
	}

	return &OverlapDetector{
		system:      sys,
		pipeline:    pipeline,
		boxBuffer:   boxBuffer,
		pairBuffer:  pairBuffer,
		countBuffer: countBuffer,
		maxObjects:  maxObjects,
		maxPairs:    maxPairs,
	}, nil
}

// MaxObjects is the number of boxes one call can take.
func (d *OverlapDetector) MaxObjects() int { return int(d.maxObjects) }

// DetectPairs returns the index pairs of overlapping boxes.
func (d *OverlapDetector) DetectPairs(boxes []Box) ([]CollisionPair, error) {
	if len(boxes) < 2 {
		return nil, nil
	}
	if len(boxes) > int(d.maxObjects) {
		return nil, fmt.Errorf("compute: %d boxes exceed capacity %d", len(boxes), d.maxObjects)
	}

	d.system.WriteBuffer(d.boxBuffer, 0, ToBytes(boxes))
	d.system.WriteBuffer(d.countBuffer, 0, ToBytes([]uint32{0}))

	n := uint32(len(boxes))
	uniform, err := d.system.CreateBufferWithData("objectCount", ToBytes([]uint32{n}),
		wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	defer uniform.Release()

	if err := d.system.Dispatch(d.pipeline, (n+255)/256, d.boxBuffer, d.pairBuffer, d.countBuffer, uniform); err != nil {
		return nil, err
	}

	countData, err := d.system.ReadBuffer(d.countBuffer)
	if err != nil {
		return nil, err
	}
	count := fromBytes[uint32](countData)[0]
	if count == 0 {
		return nil, nil
	}
	if count > d.maxPairs {
		return nil, fmt.Errorf("%w: %d pairs, capacity %d", ErrPairOverflow, count, d.maxPairs)
	}

	pairData, err := d.system.ReadBuffer(d.pairBuffer)
	if err != nil {
		return nil, err
	}
	out := make([]CollisionPair, count)
	copy(out, fromBytes[CollisionPair](pairData)[:count])
	return out, nil
}

// Release frees the detector buffers. The shared System stays alive.
func (d *OverlapDetector) Release() {
	d.boxBuffer.Release()
	d.pairBuffer.Release()
	d.countBuffer.Release()
}
