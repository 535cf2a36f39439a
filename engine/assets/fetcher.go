package assets

import "image"

// Fetcher is the contract the media layer consumes for file access. A call
// fetches the named file from the named logical folder exactly once; there is
// no retry at this layer. Implementations may block, callers run fetches on
// worker goroutines.
type Fetcher interface {
	FetchText(folder, path string) (string, error)
	FetchBinary(folder, path string) ([]byte, error)
	FetchImage(folder, path string) (image.Image, error)
}
