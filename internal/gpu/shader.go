package gpu

import (
	"fmt"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// The eight pipeline variants share one WGSL skeleton. ShaderSource
// assembles the variant for a key by selecting the camera declaration
// (mono single matrices vs. stereo two-eye arrays indexed by the
// multiview view index), the vertex attribute set, and the fragment
// sampling blocks the material signature enables.

const shaderCommonMono = `struct Camera {
    view_proj: mat4x4<f32>,
    view: mat4x4<f32>,
    proj: mat4x4<f32>,
    position: vec4<f32>,
};
@group(0) @binding(0) var<uniform> camera: Camera;
`

const shaderCommonStereo = `struct Camera {
    view: array<mat4x4<f32>, 2>,
    proj: array<mat4x4<f32>, 2>,
    view_proj: array<mat4x4<f32>, 2>,
    eye_position: array<vec4<f32>, 2>,
};
@group(0) @binding(0) var<uniform> camera: Camera;
`

const shaderCommonTail = `
struct Light {
    direction: vec4<f32>,
    color: vec4<f32>,
    ambient: vec4<f32>,
};
@group(1) @binding(0) var<uniform> light: Light;

struct Model {
    matrix: mat4x4<f32>,
};
@group(2) @binding(0) var<uniform> model: Model;

struct MaterialParams {
    base_color: vec4<f32>,
    factors: vec4<f32>,
};
@group(3) @binding(0) var<uniform> material: MaterialParams;
`

const shaderDiffuseBindings = `@group(3) @binding(1) var t_diffuse: texture_2d<f32>;
@group(3) @binding(2) var s_diffuse: sampler;
`

const shaderNormalBindings = `@group(3) @binding(3) var t_normal: texture_2d<f32>;
@group(3) @binding(4) var s_normal: sampler;
`

// ShaderSource returns the WGSL source for a pipeline key. Exposed
// within the package for compilation and tests; the sources are part
// of the build, never loaded at runtime.
func ShaderSource(key PipelineKey) string {
	sig := key.Signature
	stereo := key.Target == TargetStereo

	var b strings.Builder
	if stereo {
		b.WriteString(shaderCommonStereo)
	} else {
		b.WriteString(shaderCommonMono)
	}
	b.WriteString(shaderCommonTail)
	if sig.HasDiffuseTexture {
		b.WriteString(shaderDiffuseBindings)
	}
	if sig.HasNormalMap {
		b.WriteString(shaderNormalBindings)
	}

	// Vertex stage.
	b.WriteString("\nstruct VsIn {\n    @location(0) position: vec3<f32>,\n")
	if sig.IsTextured {
		b.WriteString("    @location(1) uv: vec2<f32>,\n")
	}
	b.WriteString("    @location(2) normal: vec3<f32>,\n")
	if sig.HasNormalMap {
		b.WriteString("    @location(3) tangent: vec4<f32>,\n")
	}
	b.WriteString("};\n\nstruct VsOut {\n    @builtin(position) clip_position: vec4<f32>,\n    @location(0) world_pos: vec3<f32>,\n    @location(1) world_normal: vec3<f32>,\n    @location(2) view_pos: vec3<f32>,\n")
	if sig.IsTextured {
		b.WriteString("    @location(3) uv: vec2<f32>,\n")
	}
	if sig.HasNormalMap {
		b.WriteString("    @location(4) world_tangent: vec4<f32>,\n")
	}
	b.WriteString("};\n\n@vertex\n")
	if stereo {
		b.WriteString("fn vs_main(in: VsIn, @builtin(view_index) view_index: i32) -> VsOut {\n")
	} else {
		b.WriteString("fn vs_main(in: VsIn) -> VsOut {\n")
	}
	b.WriteString("    let world = model.matrix * vec4<f32>(in.position, 1.0);\n    var out: VsOut;\n")
	if stereo {
		b.WriteString("    out.clip_position = camera.view_proj[view_index] * world;\n")
		b.WriteString("    out.view_pos = camera.eye_position[view_index].xyz;\n")
	} else {
		b.WriteString("    out.clip_position = camera.view_proj * world;\n")
		b.WriteString("    out.view_pos = camera.position.xyz;\n")
	}
	b.WriteString("    out.world_pos = world.xyz;\n")
	b.WriteString("    out.world_normal = normalize((model.matrix * vec4<f32>(in.normal, 0.0)).xyz);\n")
	if sig.IsTextured {
		b.WriteString("    out.uv = in.uv;\n")
	}
	if sig.HasNormalMap {
		b.WriteString("    out.world_tangent = vec4<f32>(normalize((model.matrix * vec4<f32>(in.tangent.xyz, 0.0)).xyz), in.tangent.w);\n")
	}
	b.WriteString("    return out;\n}\n")

	// Fragment stage: one directional light, ambient floor, optional
	// normal mapping via the TBN basis, Blinn-Phong specular.
	b.WriteString("\n@fragment\nfn fs_main(in: VsOut) -> @location(0) vec4<f32> {\n")
	b.WriteString("    var normal = normalize(in.world_normal);\n")
	if sig.HasNormalMap {
		b.WriteString(`    let tangent = normalize(in.world_tangent.xyz);
    let bitangent = cross(normal, tangent) * in.world_tangent.w;
    let tbn = mat3x3<f32>(tangent, bitangent, normal);
    let sampled = textureSample(t_normal, s_normal, in.uv).xyz * 2.0 - 1.0;
    normal = normalize(tbn * sampled);
`)
	}
	b.WriteString("    var base = material.base_color;\n")
	if sig.HasDiffuseTexture {
		b.WriteString("    base = base * textureSample(t_diffuse, s_diffuse, in.uv);\n")
	}
	b.WriteString(`    let light_dir = normalize(-light.direction.xyz);
    let diffuse = max(dot(normal, light_dir), 0.0);
    let ambient = light.ambient.rgb * material.factors.x;
    let view_dir = normalize(in.view_pos - in.world_pos);
    let half_dir = normalize(view_dir + light_dir);
    let specular = pow(max(dot(normal, half_dir), 0.0), material.factors.z) * material.factors.y;
    let color = (ambient + light.color.rgb * diffuse) * base.rgb + light.color.rgb * specular;
    return vec4<f32>(color, base.a);
}
`)
	return b.String()
}

// compileVariant compiles the WGSL variant for a key into a shader
// module. WGSL goes through naga to SPIR-V; a compile failure wraps
// ErrShaderCompilation and is fatal to startup.
func compileVariant(device hal.Device, key PipelineKey) (hal.ShaderModule, error) {
	src := ShaderSource(key)
	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("%w: variant %s/%s: %v", ErrShaderCompilation, key.Signature, key.Target, err)
	}

	// SPIR-V is little-endian 32-bit words.
	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}

	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: fmt.Sprintf("g3d_shader_%s_%s", key.Signature, key.Target),
		Source: hal.ShaderSource{
			SPIRV: spirvCode,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create module for %s/%s: %v", ErrShaderCompilation, key.Signature, key.Target, err)
	}
	return module, nil
}
