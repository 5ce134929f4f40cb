//go:build !unix

package disk

import "os"

// lockFile is a no-op on non-Unix platforms: there the disk backend
// serializes only the goroutines of one process and does not exclude other
// processes.
func lockFile(f *os.File) error { return nil }

// unlockFile is a stub counterpart to lockFile on non-Unix platforms.
func unlockFile(f *os.File) error { return nil }
