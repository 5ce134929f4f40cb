// Package pathutil resolves caller-supplied paths against a fixed root
// directory and guarantees the result can never escape it.
//
// The check is lexical only: components are normalized with path.Clean and
// compared as strings against the root. Symbolic links are not resolved
// before the check, and operations that follow links (read, stat) rely on
// the host filesystem to constrain reachability. This is a deliberate
// choice, not an oversight — see spec discussion in the repository root.
package pathutil

import (
	"path"
	"strings"

	"pkt.systems/fos/internal/rpcerr"
)

// Resolve normalizes callerPath relative to root and verifies the result
// lies within root. callerPath is always treated as relative: a leading "/"
// is stripped rather than causing the join to escape root.
//
// root must already be an absolute, cleaned directory path; Resolve does
// not canonicalize it.
func Resolve(root, callerPath string) (string, error) {
	trimmed := strings.TrimSpace(callerPath)
	if trimmed == "" {
		return "", rpcerr.New(rpcerr.InvalidArgument, "path must not be empty")
	}

	rel := strings.TrimLeft(callerPath, "/")
	joined := path.Join(root, rel)
	cleaned := path.Clean(joined)

	if cleaned != root && !strings.HasPrefix(cleaned, root+"/") {
		return "", rpcerr.New(rpcerr.PathEscape, "path escapes root: "+callerPath)
	}
	return cleaned, nil
}

// Relativize converts an absolute path known to lie under root into the
// root-relative, "/"-separated form returned in entry descriptors. It
// returns "" when absPath equals root.
func Relativize(root, absPath string) string {
	if absPath == root {
		return ""
	}
	rel := strings.TrimPrefix(absPath, root+"/")
	return rel
}
