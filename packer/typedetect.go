package packer

import (
	"path/filepath"
	"strings"

	"github.com/CognotEngine/amberpipeline/pkgformat"
)

var extensionTypes = map[string]pkgformat.ResourceType{
	".png":  pkgformat.ResourceTypeTexture2D,
	".jpg":  pkgformat.ResourceTypeTexture2D,
	".jpeg": pkgformat.ResourceTypeTexture2D,
	".bmp":  pkgformat.ResourceTypeTexture2D,
	".tga":  pkgformat.ResourceTypeTexture2D,
	".dds":  pkgformat.ResourceTypeTexture2D,
	".ktx2": pkgformat.ResourceTypeTexture2D,

	".obj":  pkgformat.ResourceTypeModel,
	".fbx":  pkgformat.ResourceTypeModel,
	".gltf": pkgformat.ResourceTypeModel,
	".glb":  pkgformat.ResourceTypeModel,
	".mdl":  pkgformat.ResourceTypeModel,

	".mat": pkgformat.ResourceTypeMaterial,
	".mtl": pkgformat.ResourceTypeMaterial,

	".hlsl":   pkgformat.ResourceTypeShader,
	".glsl":   pkgformat.ResourceTypeShader,
	".vert":   pkgformat.ResourceTypeShader,
	".frag":   pkgformat.ResourceTypeShader,
	".comp":   pkgformat.ResourceTypeShader,
	".shader": pkgformat.ResourceTypeShader,

	".wav":  pkgformat.ResourceTypeSound,
	".mp3":  pkgformat.ResourceTypeSound,
	".ogg":  pkgformat.ResourceTypeSound,
	".flac": pkgformat.ResourceTypeSound,

	".anim":      pkgformat.ResourceTypeAnimation,
	".animation": pkgformat.ResourceTypeAnimation,

	".particle": pkgformat.ResourceTypeParticleSystem,
	".psys":     pkgformat.ResourceTypeParticleSystem,

	".lua":    pkgformat.ResourceTypeScript,
	".py":     pkgformat.ResourceTypeScript,
	".js":     pkgformat.ResourceTypeScript,
	".script": pkgformat.ResourceTypeScript,
}

// detectType infers a ResourceType from path's extension, case
// insensitively. It returns (ResourceTypeUnknown, false) for
// unrecognized extensions.
func detectType(path string) (pkgformat.ResourceType, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	t, ok := extensionTypes[ext]
	return t, ok
}

// logicalName derives a resource's logical name: its basename with
// extension stripped.
func logicalName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
