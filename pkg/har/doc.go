// Package har models HTTP Archive (HAR 1.2) captures and reads and writes them.
//
// Load a capture from bytes or disk:
//
//	archive, err := har.LoadFile("capture.har")
//	var ferr *har.FormatError
//	if errors.As(err, &ferr) {
//	    // not a usable archive
//	}
//
// Entry order is significant: the position of an entry in Log.Entries is its
// transaction index and is preserved through load, replay and save.
//
// Files ending in .gz, .sz, .lz4 or .zst are transparently decompressed on
// load and compressed on save.
package har
