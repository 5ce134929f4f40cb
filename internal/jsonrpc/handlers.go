package jsonrpc

import (
	"context"
	"encoding/json"

	"pkt.systems/fos/internal/fileops"
)

func handleGetFileInfo(_ context.Context, ops *fileops.Operations, fields map[string]json.RawMessage) (interface{}, error) {
	p, err := requireString(fields, "path")
	if err != nil {
		return nil, err
	}
	entry, opErr := ops.Stat(p)
	if opErr != nil {
		return nil, opErr
	}
	return entry, nil
}

func handleListDirectory(_ context.Context, ops *fileops.Operations, fields map[string]json.RawMessage) (interface{}, error) {
	p, err := requireString(fields, "path")
	if err != nil {
		return nil, err
	}
	entries, opErr := ops.List(p)
	if opErr != nil {
		return nil, opErr
	}
	if entries == nil {
		entries = []fileops.EntryDescriptor{}
	}
	return entries, nil
}

func handleCreate(_ context.Context, ops *fileops.Operations, fields map[string]json.RawMessage) (interface{}, error) {
	p, err := requireString(fields, "path")
	if err != nil {
		return nil, err
	}
	typ, err := requireString(fields, "type")
	if err != nil {
		return nil, err
	}
	switch typ {
	case "FILE":
		ok, opErr := ops.CreateFile(p)
		if opErr != nil {
			return nil, opErr
		}
		return ok, nil
	case "DIRECTORY":
		ok, opErr := ops.CreateDirectory(p)
		if opErr != nil {
			return nil, opErr
		}
		return ok, nil
	default:
		return nil, invalidParam("type", `must be "FILE" or "DIRECTORY"`)
	}
}

func handleDelete(_ context.Context, ops *fileops.Operations, fields map[string]json.RawMessage) (interface{}, error) {
	p, err := requireString(fields, "path")
	if err != nil {
		return nil, err
	}
	recursive, err := optionalBool(fields, "recursive", false)
	if err != nil {
		return nil, err
	}
	ok, opErr := ops.Delete(p, recursive)
	if opErr != nil {
		return nil, opErr
	}
	return ok, nil
}

func handleMove(_ context.Context, ops *fileops.Operations, fields map[string]json.RawMessage) (interface{}, error) {
	src, err := requireString(fields, "sourcePath")
	if err != nil {
		return nil, err
	}
	dst, err := requireString(fields, "targetPath")
	if err != nil {
		return nil, err
	}
	ok, opErr := ops.Move(src, dst)
	if opErr != nil {
		return nil, opErr
	}
	return ok, nil
}

func handleCopy(_ context.Context, ops *fileops.Operations, fields map[string]json.RawMessage) (interface{}, error) {
	src, err := requireString(fields, "sourcePath")
	if err != nil {
		return nil, err
	}
	dst, err := requireString(fields, "targetPath")
	if err != nil {
		return nil, err
	}
	ok, opErr := ops.Copy(src, dst)
	if opErr != nil {
		return nil, opErr
	}
	return ok, nil
}

func handleAppend(ctx context.Context, ops *fileops.Operations, fields map[string]json.RawMessage) (interface{}, error) {
	p, err := requireString(fields, "path")
	if err != nil {
		return nil, err
	}
	data, err := requireString(fields, "data")
	if err != nil {
		return nil, err
	}
	ok, opErr := ops.Append(ctx, p, data)
	if opErr != nil {
		return nil, opErr
	}
	return ok, nil
}

func handleRead(_ context.Context, ops *fileops.Operations, fields map[string]json.RawMessage) (interface{}, error) {
	p, err := requireString(fields, "path")
	if err != nil {
		return nil, err
	}
	offset, err := requireInt(fields, "offset")
	if err != nil {
		return nil, err
	}
	length, err := requireInt(fields, "length")
	if err != nil {
		return nil, err
	}
	content, opErr := ops.Read(p, offset, length)
	if opErr != nil {
		return nil, opErr
	}
	return content, nil
}
