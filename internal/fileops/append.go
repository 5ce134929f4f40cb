package fileops

import (
	"context"
	"os"

	"pkt.systems/fos/internal/pathutil"
	"pkt.systems/fos/internal/rpcerr"
)

// Append implements spec §4.3 append(path, data) -> true, the only
// operation that engages the lock coordinator. The lease is acquired
// before the file is touched and released on every exit path — success,
// write failure, or a panic unwinding through the deferred release.
func (o *Operations) Append(ctx context.Context, callerPath, data string) (_ bool, err error) {
	defer func() { o.observe("append", err) }()
	abs, err := pathutil.Resolve(o.Root, callerPath)
	if err != nil {
		return false, err
	}

	key := "file:" + pathutil.Relativize(o.Root, abs)
	lease, err := o.Coordinator.Acquire(ctx, key, DefaultLeaseTTL)
	if err != nil {
		return false, err
	}
	defer func() {
		if relErr := lease.Release(context.WithoutCancel(ctx)); relErr != nil && o.Logger != nil {
			o.Logger.Warn("append.lease.release_failed", "key", key, "error", relErr)
		}
	}()

	if err := appendToFile(abs, data); err != nil {
		return false, err
	}
	return true, nil
}

func appendToFile(abs, data string) error {
	f, err := os.OpenFile(abs, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return rpcerr.Wrap(rpcerr.NotFound, "parent directory does not exist", err)
		}
		if os.IsPermission(err) {
			return rpcerr.Wrap(rpcerr.AccessDenied, "permission denied", err)
		}
		return rpcerr.Wrap(rpcerr.IOError, "open for append failed", err)
	}
	defer f.Close()

	if _, err := f.WriteString(data); err != nil {
		return rpcerr.Wrap(rpcerr.IOError, "append write failed", err)
	}
	if err := f.Sync(); err != nil {
		return rpcerr.Wrap(rpcerr.IOError, "append flush failed", err)
	}
	return nil
}
