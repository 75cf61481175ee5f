// Package hcp — etag.go computes the ETag the platform reports for an
// uploaded file, used to verify transfers.
package hcp

import (
	"crypto/md5" // #nosec G501 — S3 ETags are defined in terms of MD5
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// ExpectedETag computes the ETag S3-compatible storage reports for a file
// uploaded with the given part size.
//
// For files at or below the part size the upload is a single part and the
// ETag is the plain MD5 of the content. Above it the upload is multipart
// and the ETag is the MD5 of the concatenated per-part MD5 digests with a
// "-<parts>" suffix. The part size must therefore match the one the
// uploader used, or verification will fail on large files.
//
// The returned string carries no surrounding quotes.
func ExpectedETag(path string, partSize int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	// Single part: plain MD5 of the whole file.
	if info.Size() <= partSize {
		h := md5.New() // #nosec G401
		if _, err := io.Copy(h, f); err != nil {
			return "", err
		}
		return hex.EncodeToString(h.Sum(nil)), nil
	}

	// Multipart: MD5 over the concatenation of each part's MD5 digest,
	// suffixed with the part count.
	var partDigests []byte
	parts := 0
	for {
		h := md5.New() // #nosec G401
		n, err := io.CopyN(h, f, partSize)
		if n > 0 {
			partDigests = append(partDigests, h.Sum(nil)...)
			parts++
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}

	h := md5.New() // #nosec G401
	h.Write(partDigests)
	return fmt.Sprintf("%s-%d", hex.EncodeToString(h.Sum(nil)), parts), nil
}
