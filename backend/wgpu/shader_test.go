package wgpu

import "testing"

func TestCompileFillShader(t *testing.T) {
	code, err := compileShader(fillShaderWGSL)
	if err != nil {
		t.Fatalf("compileShader failed: %v", err)
	}
	if len(code) < 5 {
		t.Fatalf("SPIR-V too short: %d words", len(code))
	}
	const spirvMagic = 0x07230203
	if code[0] != spirvMagic {
		t.Errorf("magic = %#x, want %#x", code[0], spirvMagic)
	}
}

func TestCompileShaderError(t *testing.T) {
	if _, err := compileShader("fn broken( {"); err == nil {
		t.Error("expected error for invalid WGSL")
	}
}
