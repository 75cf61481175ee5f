// Package hcp — objects.go implements the object operations on the
// attached bucket: listing, search, upload, download, delete, and read.
package hcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/genomic-medicine-sweden/hcpi/internal/model"
)

// readLimit is the largest object Read returns content for. Larger
// objects yield empty content; printing a multi-gigabyte fastq to a
// terminal helps nobody. The threshold is arbitrary but fixed.
const readLimit = 100000

// ListBuckets returns the names of all buckets at the endpoint. It does
// not require an attached bucket.
func (m *Manager) ListBuckets(ctx context.Context) ([]string, error) {
	out, err := m.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, model.WrapCLIError(model.ExitStorageError,
			fmt.Sprintf("failed to list buckets at %s", m.cfg.Endpoint), err)
	}

	names := make([]string, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		names = append(names, aws.ToString(b.Name))
	}
	return names, nil
}

// Objects returns all objects in the attached bucket, fetching the full
// listing on first use and serving the cache afterwards. Use
// ReloadObjects to refresh after external changes.
func (m *Manager) Objects(ctx context.Context) ([]model.ObjectInfo, error) {
	if m.objects != nil {
		return m.objects, nil
	}
	return m.ReloadObjects(ctx)
}

// ReloadObjects fetches the complete object listing of the attached
// bucket into memory, replacing any cached listing.
//
// The listing is paginated server-side; all pages are drained. Buckets
// here hold tens of thousands of runs at most, which fits comfortably.
func (m *Manager) ReloadObjects(ctx context.Context) ([]model.ObjectInfo, error) {
	if err := m.requireBucket(); err != nil {
		return nil, err
	}

	var objects []model.ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(m.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(m.bucket),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, model.WrapCLIError(model.ExitStorageError,
				fmt.Sprintf("failed to list objects in bucket %q", m.bucket), err)
		}
		for _, obj := range page.Contents {
			objects = append(objects, model.ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				ETag:         strings.Trim(aws.ToString(obj.ETag), `"`),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}

	m.objects = objects
	return m.objects, nil
}

// Search returns all objects in the attached bucket whose key contains
// query as a substring. It searches the cached listing.
func (m *Manager) Search(ctx context.Context, query string) ([]model.ObjectInfo, error) {
	objects, err := m.Objects(ctx)
	if err != nil {
		return nil, err
	}

	var hits []model.ObjectInfo
	for _, obj := range objects {
		if strings.Contains(obj.Key, query) {
			hits = append(hits, obj)
		}
	}
	return hits, nil
}

// Stat returns metadata for the object with exactly the given key.
//
// Returns a model.CLIError with ExitStorageError when no such object
// exists; the message distinguishes that case for the user.
func (m *Manager) Stat(ctx context.Context, key string) (*model.ObjectInfo, error) {
	if err := m.requireBucket(); err != nil {
		return nil, err
	}

	head, err := m.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return nil, model.WrapCLIError(model.ExitStorageError,
				fmt.Sprintf("object %q not found in bucket %q", key, m.bucket), err)
		}
		return nil, model.WrapCLIError(model.ExitStorageError,
			fmt.Sprintf("failed to stat object %q", key), err)
	}

	return &model.ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(head.ContentLength),
		ETag:         strings.Trim(aws.ToString(head.ETag), `"`),
		LastModified: aws.ToTime(head.LastModified),
	}, nil
}

// Upload stores a local file under the given key with user metadata
// attached, then verifies the transfer.
//
// The upload is multipart above the configured part size, with parallel
// part transfers. Afterwards the local file's expected ETag is computed
// with the same part size and compared to the remote one; on mismatch the
// remote object is deleted and the upload fails with a checksum error, so
// a torn transfer never survives as an apparently valid object.
func (m *Manager) Upload(ctx context.Context, localPath, key string, metadata map[string]string) error {
	if err := m.requireBucket(); err != nil {
		return err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return model.WrapCLIError(model.ExitStorageError,
			fmt.Sprintf("failed to open %s for upload", localPath), err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return model.WrapCLIError(model.ExitStorageError,
			fmt.Sprintf("failed to stat %s", localPath), err)
	}

	// The progress wrapper exposes only Read, never Seek, so the uploader
	// takes its sequential buffering path and the byte count stays
	// monotonic.
	var body io.Reader = f
	if m.progressOut != nil {
		body = &progressReader{
			r: f,
			p: newProgressState(localPath, info.Size(), m.progressOut),
		}
	}

	uploader := manager.NewUploader(m.client, func(u *manager.Uploader) {
		u.PartSize = m.cfg.PartSize
		u.Concurrency = m.cfg.UploadConcurrency
	})

	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(m.bucket),
		Key:      aws.String(key),
		Body:     body,
		Metadata: metadata,
	})
	m.finishProgress()
	if err != nil {
		return model.WrapCLIError(model.ExitStorageError,
			fmt.Sprintf("failed to upload %s as %q", localPath, key), err)
	}

	return m.verifyUpload(ctx, localPath, key)
}

// verifyUpload compares the local file's expected ETag against the
// remote object's and deletes the remote object on mismatch.
func (m *Manager) verifyUpload(ctx context.Context, localPath, key string) error {
	expected, err := ExpectedETag(localPath, m.cfg.PartSize)
	if err != nil {
		return model.WrapCLIError(model.ExitStorageError,
			fmt.Sprintf("failed to compute local checksum of %s", localPath), err)
	}

	remote, err := m.Stat(ctx, key)
	if err != nil {
		return err
	}

	if remote.ETag != expected {
		// Remove the bad remote copy before reporting. A failed delete is
		// secondary to the checksum failure and is folded into it.
		delErr := m.Delete(ctx, key)
		msg := fmt.Sprintf(
			"checksum mismatch for %q (local %s, remote %s); removed remote object",
			key, expected, remote.ETag)
		if delErr != nil {
			msg = fmt.Sprintf(
				"checksum mismatch for %q (local %s, remote %s); removing remote object also failed",
				key, expected, remote.ETag)
		}
		return model.NewCLIError(model.ExitStorageError, msg)
	}
	return nil
}

// Download fetches the object with the given key into localPath.
//
// If localPath is an existing directory, the object's base name is placed
// inside it. An existing destination file is refused unless force is set.
// Parts are fetched in parallel at the configured part size.
func (m *Manager) Download(ctx context.Context, key, localPath string, force bool) error {
	if err := m.requireBucket(); err != nil {
		return err
	}

	// Resolve the destination and check for an existing file up front,
	// before any bytes move.
	if info, err := os.Stat(localPath); err == nil && info.IsDir() {
		localPath = filepath.Join(localPath, filepath.Base(key))
	}
	if _, err := os.Stat(localPath); err == nil && !force {
		return model.NewCLIError(model.ExitStorageError,
			fmt.Sprintf("local file already exists: %s (use --force to overwrite)", localPath))
	}

	// Stat first: confirms the key exists and provides the size for the
	// progress line.
	remote, err := m.Stat(ctx, key)
	if err != nil {
		return err
	}

	f, err := os.Create(localPath)
	if err != nil {
		return model.WrapCLIError(model.ExitStorageError,
			fmt.Sprintf("failed to create %s", localPath), err)
	}
	defer func() { _ = f.Close() }()

	var dst io.WriterAt = f
	if m.progressOut != nil {
		dst = &progressWriterAt{
			w: f,
			p: newProgressState(key, remote.Size, m.progressOut),
		}
	}

	downloader := manager.NewDownloader(m.client, func(d *manager.Downloader) {
		d.PartSize = m.cfg.PartSize
		d.Concurrency = m.cfg.DownloadConcurrency
	})

	_, err = downloader.Download(ctx, dst, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	m.finishProgress()
	if err != nil {
		return model.WrapCLIError(model.ExitStorageError,
			fmt.Sprintf("failed to download %q to %s", key, localPath), err)
	}
	return nil
}

// Delete removes the object with the given key from the attached bucket.
func (m *Manager) Delete(ctx context.Context, key string) error {
	if err := m.requireBucket(); err != nil {
		return err
	}

	_, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return model.WrapCLIError(model.ExitStorageError,
			fmt.Sprintf("failed to delete object %q", key), err)
	}
	return nil
}

// Read returns the content of the object with the given key, for objects
// smaller than readLimit bytes. Larger objects yield empty content and no
// error.
func (m *Manager) Read(ctx context.Context, key string) (string, error) {
	remote, err := m.Stat(ctx, key)
	if err != nil {
		return "", err
	}
	if remote.Size >= readLimit {
		return "", nil
	}

	out, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", model.WrapCLIError(model.ExitStorageError,
			fmt.Sprintf("failed to read object %q", key), err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", model.WrapCLIError(model.ExitStorageError,
			fmt.Sprintf("failed to read object %q body", key), err)
	}
	return string(data), nil
}

// finishProgress terminates the rewriting progress line with a newline so
// subsequent output starts on a fresh line.
func (m *Manager) finishProgress() {
	if m.progressOut != nil {
		fmt.Fprintln(m.progressOut)
	}
}
