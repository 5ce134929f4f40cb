package fileops

import (
	"errors"
	"io"
	"os"
	"strings"
	"syscall"

	"pkt.systems/fos/internal/pathutil"
	"pkt.systems/fos/internal/rpcerr"
)

// Move implements spec §4.3 move(source, target) -> true. It prefers an
// atomic os.Rename; when the host rejects that (typically EXDEV, a
// cross-filesystem rename), it falls back to copy+delete and logs the
// fallback through o.Logger when one is set.
func (o *Operations) Move(callerSource, callerTarget string) (_ bool, err error) {
	defer func() { o.observe("move", err) }()
	srcAbs, err := pathutil.Resolve(o.Root, callerSource)
	if err != nil {
		return false, err
	}
	dstAbs, err := pathutil.Resolve(o.Root, callerTarget)
	if err != nil {
		return false, err
	}

	if srcAbs == dstAbs {
		return false, rpcerr.New(rpcerr.InvalidArgument, "source and target must differ")
	}
	if strings.HasPrefix(dstAbs, srcAbs+"/") {
		return false, rpcerr.New(rpcerr.InvalidArgument, "target must not be beneath source")
	}

	if _, err := os.Lstat(srcAbs); err != nil {
		if os.IsNotExist(err) {
			return false, rpcerr.Wrap(rpcerr.NotFound, "source does not exist", err)
		}
		return false, rpcerr.Wrap(rpcerr.IOError, "stat source failed", err)
	}
	if _, err := os.Lstat(dstAbs); err == nil {
		return false, rpcerr.New(rpcerr.AlreadyExists, "target already exists")
	} else if !os.IsNotExist(err) {
		return false, rpcerr.Wrap(rpcerr.IOError, "stat target failed", err)
	}
	if err := checkParentExists(dstAbs); err != nil {
		return false, err
	}

	if err := os.Rename(srcAbs, dstAbs); err != nil {
		if errors.Is(err, syscall.EXDEV) {
			if o.Logger != nil {
				o.Logger.Warn("move.rename_fallback", "source", callerSource, "target", callerTarget, "error", err)
			}
			if fallbackErr := copyThenDelete(srcAbs, dstAbs); fallbackErr != nil {
				return false, fallbackErr
			}
			return true, nil
		}
		return false, translateMoveErr(err)
	}
	return true, nil
}

// copyThenDelete is the non-atomic fallback spec §4.3 allows when the host
// rejects an atomic rename across filesystems.
func copyThenDelete(srcAbs, dstAbs string) error {
	info, err := os.Lstat(srcAbs)
	if err != nil {
		return rpcerr.Wrap(rpcerr.IOError, "stat source for fallback move failed", err)
	}
	if info.IsDir() {
		return rpcerr.New(rpcerr.IOError, "cross-filesystem move of a directory is not supported")
	}
	if err := copyFileContents(srcAbs, dstAbs); err != nil {
		return err
	}
	if err := os.Remove(srcAbs); err != nil {
		return rpcerr.Wrap(rpcerr.IOError, "remove source after fallback copy failed", err)
	}
	return nil
}

func copyFileContents(srcAbs, dstAbs string) error {
	src, err := os.Open(srcAbs)
	if err != nil {
		return rpcerr.Wrap(rpcerr.IOError, "open source for copy failed", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(dstAbs, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return rpcerr.Wrap(rpcerr.IOError, "open target for copy failed", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dstAbs)
		return rpcerr.Wrap(rpcerr.IOError, "copy content failed", err)
	}
	if err := dst.Sync(); err != nil {
		dst.Close()
		os.Remove(dstAbs)
		return rpcerr.Wrap(rpcerr.IOError, "flush copy failed", err)
	}
	return dst.Close()
}

func translateMoveErr(err error) error {
	if os.IsPermission(err) {
		return rpcerr.Wrap(rpcerr.AccessDenied, "permission denied", err)
	}
	if os.IsNotExist(err) {
		return rpcerr.Wrap(rpcerr.NotFound, "source or target parent missing", err)
	}
	return rpcerr.Wrap(rpcerr.IOError, "move failed", err)
}
