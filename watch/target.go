package watch

// Kind classifies what a watch target points at.
type Kind int

const (
	// ShaderTree is a directory of shader sources, watched recursively.
	ShaderTree Kind = iota

	// ModuleArtifact is the single file holding the reloadable application
	// module. It gets an extra settle check before a change is reported, so
	// a half-written build output never triggers a reload.
	ModuleArtifact
)

// String returns the kind name for logs.
func (k Kind) String() string {
	switch k {
	case ShaderTree:
		return "shader-tree"
	case ModuleArtifact:
		return "module-artifact"
	default:
		return "unknown"
	}
}

// Target is one watched filesystem path.
type Target struct {
	// ID names the target in Poll results and logs (e.g. "shaders", "module").
	ID string

	// Path is the watched directory (ShaderTree) or file (ModuleArtifact).
	Path string

	Kind Kind
}
