// Package syncserver is a minimal stand-in for the editor-facing
// TCP/JSON sync server. The server's protocol framing, connection
// handling, and the rest of its JSON message set live elsewhere; this
// package exposes only the two operations that side invokes on the
// Manager: reloading a resource by id, and writing a generated header
// file mapping symbolic names to AssetID constants.
package syncserver

import (
	"fmt"
	"os"
	"sort"

	"github.com/CognotEngine/amberpipeline/manager"
	"github.com/CognotEngine/amberpipeline/pkgformat"
)

// Handler wires the two manager-facing operations a sync server needs.
type Handler struct {
	mgr *manager.Manager
}

// NewHandler binds a Handler to mgr.
func NewHandler(mgr *manager.Manager) *Handler {
	return &Handler{mgr: mgr}
}

// ReloadByID reloads a single resource, as the sync server does when
// an editor reports a file change for an already-mounted resource.
func (h *Handler) ReloadByID(id pkgformat.AssetID) error {
	return h.mgr.Reload(id)
}

// WriteHeaderFile emits a generated source header mapping each
// resource name known to the Manager to its AssetID constant, in a
// deterministic (sorted-by-name) order so repeated runs produce a
// byte-stable diff. names should be the full set of mounted-package
// resource names to include; the Manager itself does not track an
// enumerable name list beyond what's mounted, so names is supplied by
// the caller (typically read back from package metadata).
func (h *Handler) WriteHeaderFile(path string, names []string) error {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", pkgformat.ErrIO, err)
	}
	defer f.Close()

	fmt.Fprintln(f, "// Code generated by amberpipeline syncserver. DO NOT EDIT.")
	fmt.Fprintln(f, "package assetids")
	fmt.Fprintln(f)
	fmt.Fprintln(f, "// Asset ids, typed as uint32 (the underlying type of")
	fmt.Fprintln(f, "// pkgformat.AssetID) rather than AssetID itself, so this file")
	fmt.Fprintln(f, "// has no import of its own.")
	fmt.Fprintln(f, "const (")
	for _, name := range sorted {
		id := pkgformat.HashName(name)
		fmt.Fprintf(f, "\t%s uint32 = %d\n", identifierFor(name), id)
	}
	fmt.Fprintln(f, ")")
	return nil
}

// identifierFor turns a logical resource name into an exported Go
// identifier suitable for a generated constant.
func identifierFor(name string) string {
	out := make([]rune, 0, len(name)+1)
	upperNext := true
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9':
			if upperNext && r >= 'a' && r <= 'z' {
				r -= 'a' - 'A'
			}
			out = append(out, r)
			upperNext = false
		default:
			upperNext = true
		}
	}
	if len(out) == 0 {
		return "Asset"
	}
	return string(out)
}
