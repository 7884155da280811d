package manager

import "github.com/CognotEngine/amberpipeline/pkgformat"

// LoadStatus is the state of a ResourceItem's payload.
type LoadStatus int

const (
	StatusUnloaded LoadStatus = iota
	StatusLoading
	StatusLoaded
	StatusFailed
	StatusUnloading
)

func (s LoadStatus) String() string {
	switch s {
	case StatusUnloaded:
		return "UNLOADED"
	case StatusLoading:
		return "LOADING"
	case StatusLoaded:
		return "LOADED"
	case StatusFailed:
		return "FAILED"
	case StatusUnloading:
		return "UNLOADING"
	default:
		return "UNKNOWN"
	}
}

// resourceItem is the Manager's in-memory record for one mounted
// resource. Payload is nil unless status is StatusLoaded.
type resourceItem struct {
	metadata  pkgformat.ResourceMetadata
	payload   []byte
	status    LoadStatus
	refCount  int
	pkgPath   string
	dependsOn []pkgformat.AssetID
}
