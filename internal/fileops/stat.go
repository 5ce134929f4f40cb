package fileops

import (
	"os"
	"path"

	"pkt.systems/fos/internal/pathutil"
	"pkt.systems/fos/internal/rpcerr"
)

// Stat implements spec §4.3 stat(path) -> EntryDescriptor.
func (o *Operations) Stat(callerPath string) (_ EntryDescriptor, err error) {
	defer func() { o.observe("stat", err) }()
	abs, err := pathutil.Resolve(o.Root, callerPath)
	if err != nil {
		return EntryDescriptor{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return EntryDescriptor{}, translateStatErr(err)
	}
	return describe(o.Root, abs, info), nil
}

func describe(root, abs string, info os.FileInfo) EntryDescriptor {
	rel := pathutil.Relativize(root, abs)
	name := info.Name()
	if rel == "" {
		name = path.Base(root)
	}
	return EntryDescriptor{
		Name: name,
		Path: rel,
		Size: info.Size(),
	}
}

func translateStatErr(err error) error {
	if os.IsNotExist(err) {
		return rpcerr.Wrap(rpcerr.NotFound, "no such file or directory", err)
	}
	if os.IsPermission(err) {
		return rpcerr.Wrap(rpcerr.AccessDenied, "permission denied", err)
	}
	return rpcerr.Wrap(rpcerr.IOError, "stat failed", err)
}
