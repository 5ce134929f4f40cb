package fileops

import (
	"os"

	"pkt.systems/fos/internal/pathutil"
	"pkt.systems/fos/internal/rpcerr"
)

// Delete implements spec §4.3 delete(path, recursive) -> bool. A missing
// path is not an error: it returns false. A non-empty directory with
// recursive=false fails DirectoryNotEmpty.
func (o *Operations) Delete(callerPath string, recursive bool) (_ bool, err error) {
	defer func() { o.observe("delete", err) }()
	abs, err := pathutil.Resolve(o.Root, callerPath)
	if err != nil {
		return false, err
	}

	info, err := os.Lstat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, rpcerr.Wrap(rpcerr.IOError, "stat before delete failed", err)
	}

	if !info.IsDir() {
		if err := os.Remove(abs); err != nil {
			return false, translateDeleteErr(err)
		}
		return true, nil
	}

	if !recursive {
		entries, err := os.ReadDir(abs)
		if err != nil {
			return false, rpcerr.Wrap(rpcerr.IOError, "read directory before delete failed", err)
		}
		if len(entries) > 0 {
			return false, rpcerr.New(rpcerr.DirectoryNotEmpty, "directory not empty: "+callerPath)
		}
		if err := os.Remove(abs); err != nil {
			return false, translateDeleteErr(err)
		}
		return true, nil
	}

	if err := removeDepthFirst(abs); err != nil {
		return false, err
	}
	return true, nil
}

// removeDepthFirst removes descendants before their parent, aborting on the
// first I/O error encountered anywhere in the walk (spec §4.3: "a failure at
// any node aborts the walk and surfaces the first I/O error").
func removeDepthFirst(abs string) error {
	info, err := os.Lstat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return rpcerr.Wrap(rpcerr.IOError, "stat during recursive delete failed", err)
	}
	if info.IsDir() {
		entries, err := os.ReadDir(abs)
		if err != nil {
			return rpcerr.Wrap(rpcerr.IOError, "read directory during recursive delete failed", err)
		}
		for _, entry := range entries {
			if err := removeDepthFirst(abs + "/" + entry.Name()); err != nil {
				return err
			}
		}
	}
	if err := os.Remove(abs); err != nil {
		return translateDeleteErr(err)
	}
	return nil
}

func translateDeleteErr(err error) error {
	if os.IsPermission(err) {
		return rpcerr.Wrap(rpcerr.AccessDenied, "permission denied", err)
	}
	if os.IsNotExist(err) {
		return nil
	}
	return rpcerr.Wrap(rpcerr.IOError, "delete failed", err)
}
