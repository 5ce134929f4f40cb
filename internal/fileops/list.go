package fileops

import (
	"os"

	"pkt.systems/fos/internal/pathutil"
	"pkt.systems/fos/internal/rpcerr"
)

// List implements spec §4.3 list(path) -> []EntryDescriptor.
//
// Per-entry failures (a child disappearing between ReadDir and Stat) are
// skipped silently; the aggregate call never fails because of them.
func (o *Operations) List(callerPath string) (_ []EntryDescriptor, err error) {
	defer func() { o.observe("list", err) }()
	abs, err := pathutil.Resolve(o.Root, callerPath)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, translateStatErr(err)
	}
	if !info.IsDir() {
		return nil, rpcerr.New(rpcerr.NotADirectory, "not a directory: "+callerPath)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		if os.IsPermission(err) {
			return nil, rpcerr.Wrap(rpcerr.AccessDenied, "permission denied", err)
		}
		return nil, rpcerr.Wrap(rpcerr.IOError, "list failed", err)
	}

	result := make([]EntryDescriptor, 0, len(entries))
	for _, entry := range entries {
		childAbs := abs + "/" + entry.Name()
		childInfo, err := os.Lstat(childAbs)
		if err != nil {
			continue
		}
		result = append(result, describe(o.Root, childAbs, childInfo))
	}
	return result, nil
}
