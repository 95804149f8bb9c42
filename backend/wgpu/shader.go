package wgpu

import (
	"fmt"

	"github.com/gogpu/naga"
)

// fillWorkgroupSize matches @workgroup_size in fillShaderWGSL.
const fillWorkgroupSize = 64

// fillShaderWGSL writes params.words copies of params.pattern.
const fillShaderWGSL = `
struct Params {
    pattern: u32,
    words: u32,
    pad0: u32,
    pad1: u32,
}

@group(0) @binding(0) var<storage, read_write> dst: array<u32>;
@group(0) @binding(1) var<uniform> params: Params;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    if (id.x >= params.words) {
        return;
    }
    dst[id.x] = params.pattern;
}
`

// compileShader compiles WGSL source to SPIR-V words.
func compileShader(src string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("wgpu: compile shader: %w", err)
	}

	// SPIR-V is little-endian 32-bit words
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return code, nil
}
