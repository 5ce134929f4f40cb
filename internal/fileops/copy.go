package fileops

import (
	"os"

	"pkt.systems/fos/internal/pathutil"
	"pkt.systems/fos/internal/rpcerr"
)

// Copy implements spec §4.3 copy(source, target) -> true. Source must be a
// regular file; directories are rejected with IsADirectory. Metadata
// (mode, mtime) preservation is not guaranteed.
func (o *Operations) Copy(callerSource, callerTarget string) (_ bool, err error) {
	defer func() { o.observe("copy", err) }()
	srcAbs, err := pathutil.Resolve(o.Root, callerSource)
	if err != nil {
		return false, err
	}
	dstAbs, err := pathutil.Resolve(o.Root, callerTarget)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(srcAbs)
	if err != nil {
		if os.IsNotExist(err) {
			return false, rpcerr.Wrap(rpcerr.NotFound, "source does not exist", err)
		}
		return false, rpcerr.Wrap(rpcerr.IOError, "stat source failed", err)
	}
	if info.IsDir() {
		return false, rpcerr.New(rpcerr.IsADirectory, "source is a directory: "+callerSource)
	}

	if _, err := os.Lstat(dstAbs); err == nil {
		return false, rpcerr.New(rpcerr.AlreadyExists, "target already exists")
	} else if !os.IsNotExist(err) {
		return false, rpcerr.Wrap(rpcerr.IOError, "stat target failed", err)
	}
	if err := checkParentExists(dstAbs); err != nil {
		return false, err
	}

	if err := copyFileContents(srcAbs, dstAbs); err != nil {
		return false, err
	}
	return true, nil
}
