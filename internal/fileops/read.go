package fileops

import (
	"fmt"
	"os"

	"pkt.systems/fos/internal/pathutil"
	"pkt.systems/fos/internal/rpcerr"
)

// Read implements spec §4.3 read(path, offset, length) -> string.
//
// offset must be >= 0 and length must be in [0, MaxRead]; offset beyond the
// file's size is also InvalidArgument. The effective read length is
// min(length, file_size-offset). Bytes are returned as-is: malformed UTF-8
// at the read window's edges is a deliberate, documented simplification,
// not validated or repaired here.
func (o *Operations) Read(callerPath string, offset, length int64) (_ string, err error) {
	defer func() { o.observe("read", err) }()
	if offset < 0 {
		return "", rpcerr.New(rpcerr.InvalidArgument, "offset must be >= 0")
	}
	if length < 0 || length > MaxRead {
		return "", rpcerr.New(rpcerr.InvalidArgument, fmt.Sprintf("length must be in [0, %d]", MaxRead))
	}

	abs, err := pathutil.Resolve(o.Root, callerPath)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", rpcerr.Wrap(rpcerr.NotFound, "no such file", err)
		}
		if os.IsPermission(err) {
			return "", rpcerr.Wrap(rpcerr.AccessDenied, "permission denied", err)
		}
		return "", rpcerr.Wrap(rpcerr.IOError, "stat failed", err)
	}
	if info.IsDir() {
		return "", rpcerr.New(rpcerr.NotAFile, "path is a directory: "+callerPath)
	}

	if offset > info.Size() {
		return "", rpcerr.New(rpcerr.InvalidArgument, "offset beyond file size")
	}

	effective := length
	if remaining := info.Size() - offset; effective > remaining {
		effective = remaining
	}
	if effective == 0 {
		return "", nil
	}

	f, err := os.Open(abs)
	if err != nil {
		if os.IsPermission(err) {
			return "", rpcerr.Wrap(rpcerr.AccessDenied, "permission denied", err)
		}
		return "", rpcerr.Wrap(rpcerr.IOError, "open failed", err)
	}
	defer f.Close()

	buf := make([]byte, effective)
	n, err := f.ReadAt(buf, offset)
	if err != nil && n < len(buf) {
		return "", rpcerr.Wrap(rpcerr.IOError, "read failed", err)
	}
	return string(buf[:n]), nil
}
