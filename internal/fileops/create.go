package fileops

import (
	"os"
	"path/filepath"

	"pkt.systems/fos/internal/pathutil"
	"pkt.systems/fos/internal/rpcerr"
)

// CreateFile implements spec §4.3 create_file(path) -> true.
func (o *Operations) CreateFile(callerPath string) (_ bool, err error) {
	defer func() { o.observe("create_file", err) }()
	abs, err := pathutil.Resolve(o.Root, callerPath)
	if err != nil {
		return false, err
	}
	if err := checkParentExists(abs); err != nil {
		return false, err
	}
	f, err := os.OpenFile(abs, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return false, translateCreateErr(err)
	}
	if err := f.Close(); err != nil {
		return false, rpcerr.Wrap(rpcerr.IOError, "close after create failed", err)
	}
	return true, nil
}

// CreateDirectory implements spec §4.3 create_directory(path) -> true.
func (o *Operations) CreateDirectory(callerPath string) (_ bool, err error) {
	defer func() { o.observe("create_directory", err) }()
	abs, err := pathutil.Resolve(o.Root, callerPath)
	if err != nil {
		return false, err
	}
	if err := checkParentExists(abs); err != nil {
		return false, err
	}
	if err := os.Mkdir(abs, 0o755); err != nil {
		return false, translateCreateErr(err)
	}
	return true, nil
}

func checkParentExists(abs string) error {
	parent := filepath.Dir(abs)
	info, err := os.Stat(parent)
	if err != nil {
		if os.IsNotExist(err) {
			return rpcerr.Wrap(rpcerr.NotFound, "parent directory does not exist", err)
		}
		return rpcerr.Wrap(rpcerr.IOError, "stat parent failed", err)
	}
	if !info.IsDir() {
		return rpcerr.New(rpcerr.NotADirectory, "parent is not a directory")
	}
	return nil
}

func translateCreateErr(err error) error {
	if os.IsExist(err) {
		return rpcerr.Wrap(rpcerr.AlreadyExists, "already exists", err)
	}
	if os.IsPermission(err) {
		return rpcerr.Wrap(rpcerr.AccessDenied, "permission denied", err)
	}
	if os.IsNotExist(err) {
		return rpcerr.Wrap(rpcerr.NotFound, "parent directory does not exist", err)
	}
	return rpcerr.Wrap(rpcerr.IOError, "create failed", err)
}
