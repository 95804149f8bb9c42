package resource

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/cmdbuf/native"
)

// Stage indexes the per-stage resource tables.
type Stage uint8

// Shader stages with their own native resource tables.
const (
	StageVertex Stage = iota
	StageFragment
	StageCompute
	NumStages
)

var stageNames = [...]string{"vertex", "fragment", "compute"}

// String returns the stage name.
func (s Stage) String() string {
	if s < NumStages {
		return stageNames[s]
	}
	return "unknown"
}

// ShaderStage returns the gputypes stage flag for s.
func (s Stage) ShaderStage() gputypes.ShaderStage {
	switch s {
	case StageVertex:
		return gputypes.ShaderStageVertex
	case StageFragment:
		return gputypes.ShaderStageFragment
	default:
		return gputypes.ShaderStageCompute
	}
}

// GraphicsStages are the stages of a render pipeline.
var GraphicsStages = []Stage{StageVertex, StageFragment}

// ResourceCounts counts native binding slots of each kind.
type ResourceCounts struct {
	Buffers  uint32
	Textures uint32
	Samplers uint32
}

// Add returns the component-wise sum.
func (c ResourceCounts) Add(o ResourceCounts) ResourceCounts {
	return ResourceCounts{
		Buffers:  c.Buffers + o.Buffers,
		Textures: c.Textures + o.Textures,
		Samplers: c.Samplers + o.Samplers,
	}
}

// StageCounts holds one ResourceCounts per stage.
type StageCounts [NumStages]ResourceCounts

// PushConstantInfo locates a push-constant block in a stage's buffer table.
type PushConstantInfo struct {
	// Slot is the native buffer index receiving the bytes.
	Slot uint32
	// Count is the block size in 32-bit words.
	Count uint32
}

// PipelineLayout maps descriptor sets onto flat native binding tables.
type PipelineLayout struct {
	// SetOffsets holds, for each set, its first native slot per stage.
	SetOffsets []StageCounts
	// Total is the number of slots used by all sets, per stage.
	Total StageCounts
	// PushConstants is the push-constant block of each stage, if any.
	PushConstants [NumStages]*PushConstantInfo
	// SizesSlot is the buffer index of the runtime-sized binding length
	// side channel for each stage, if the stage's shaders use one.
	SizesSlot [NumStages]*uint32
}

// VertexBufferSlot is one vertex buffer a pipeline reads.
type VertexBufferSlot struct {
	// Binding is the abstract vertex binding number.
	Binding uint32
	// Offset is added to the offset supplied at bind time.
	Offset uint64
}

// BakedStates are dynamic states fixed at pipeline creation.
type BakedStates struct {
	Viewport   *native.Viewport
	Scissor    *native.ScissorRect
	BlendColor *gputypes.Color
	DepthBias  *native.DepthBias
}

// GraphicsPipeline is a compiled render pipeline with its interface
// metadata.
type GraphicsPipeline struct {
	Raw        native.RenderPipelineState
	Layout     *PipelineLayout
	Primitive  gputypes.PrimitiveTopology
	Rasterizer *native.RasterizerState
	// DepthStencil is the pipeline's depth/stencil configuration before
	// masking by the attachments of the active subpass.
	DepthStencil native.DepthStencilDescriptor
	// StencilMasksDynamic and StencilReferenceDynamic mark stencil state
	// supplied by dynamic state calls instead of the pipeline.
	StencilMasksDynamic     bool
	StencilReferenceDynamic bool
	Baked                   BakedStates

	// VertexBuffers lists the vertex buffers the pipeline reads. Entry i is
	// bound at vertex-stage buffer slot VertexBufferBase+i.
	VertexBuffers    []VertexBufferSlot
	VertexBufferBase uint32

	ColorFormats       []gputypes.TextureFormat
	DepthStencilFormat gputypes.TextureFormat
	SampleCount        uint32
}

// ComputePipeline is a compiled compute pipeline.
type ComputePipeline struct {
	Raw           native.ComputePipelineState
	Layout        *PipelineLayout
	WorkGroupSize native.Size
}
