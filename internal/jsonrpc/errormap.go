package jsonrpc

import "pkt.systems/fos/internal/rpcerr"

// codeFor maps a core error Kind to its JSON-RPC code per spec §7.
func codeFor(kind rpcerr.Kind) int {
	switch kind {
	case rpcerr.InvalidArgument, rpcerr.PathEscape:
		return CodeInvalidParams
	case rpcerr.NotFound, rpcerr.AlreadyExists, rpcerr.NotADirectory,
		rpcerr.IsADirectory, rpcerr.NotAFile, rpcerr.DirectoryNotEmpty,
		rpcerr.AccessDenied, rpcerr.IOError, rpcerr.LockUnavailable:
		return CodeInternalError
	default:
		return CodeInternalError
	}
}

// messagePrefix mirrors the human-readable prefixes spec §7's table names.
func messagePrefix(code int) string {
	switch code {
	case CodeInvalidParams:
		return "Invalid params"
	case CodeInternalError:
		return "Internal error"
	case CodeParseError:
		return "Parse error"
	case CodeInvalidRequest:
		return "Invalid Request"
	case CodeMethodNotFound:
		return "Method not found"
	default:
		return "Error"
	}
}

// errorObjectFor translates any error returned by a file operation (always
// a *rpcerr.Error in practice) into the JSON-RPC error member.
func errorObjectFor(err error) *ErrorObject {
	kind := rpcerr.KindOf(err)
	code := codeFor(kind)
	return &ErrorObject{
		Code:    code,
		Message: messagePrefix(code),
		Data: &ErrorData{
			Kind:    string(kind),
			Message: err.Error(),
		},
	}
}

func protocolError(code int, detail string) *ErrorObject {
	return &ErrorObject{Code: code, Message: messagePrefix(code) + ": " + detail}
}
