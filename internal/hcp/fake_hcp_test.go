package hcp

import (
	"bytes"
	"crypto/md5" // #nosec G501 — the fake reports S3-style MD5 ETags
	"encoding/hex"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeHCP is a minimal in-process S3-compatible endpoint, just enough
// protocol for the Manager's operations: bucket listing and HEAD, object
// listing (single page), PUT/GET/HEAD/DELETE on objects, and ranged GETs
// for the concurrent downloader. The real SDK client talks to it over
// HTTP with path-style addressing, exactly as it talks to the HCP.
type fakeHCP struct {
	mu      sync.Mutex
	buckets map[string]map[string]*fakeObject

	// etagOverride forces HEAD responses for a key to report a bogus
	// ETag, simulating a corrupted transfer.
	etagOverride map[string]string
}

type fakeObject struct {
	data     []byte
	metadata map[string]string
	modified time.Time
}

func newFakeHCP(bucketNames ...string) *fakeHCP {
	f := &fakeHCP{
		buckets:      make(map[string]map[string]*fakeObject),
		etagOverride: make(map[string]string),
	}
	for _, name := range bucketNames {
		f.buckets[name] = make(map[string]*fakeObject)
	}
	return f
}

// put stores an object directly, bypassing HTTP, for test seeding.
func (f *fakeHCP) put(bucket, key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buckets[bucket][key] = &fakeObject{
		data:     data,
		metadata: map[string]string{},
		modified: time.Now(),
	}
}

// object returns a stored object or nil.
func (f *fakeHCP) object(bucket, key string) *fakeObject {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.buckets[bucket]
	if !ok {
		return nil
	}
	return b[key]
}

func (f *fakeHCP) etag(obj *fakeObject) string {
	sum := md5.Sum(obj.data) // #nosec G401
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

func (f *fakeHCP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(r.URL.Path, "/")

	if path == "" {
		f.serveListBuckets(w)
		return
	}

	bucket, key, hasKey := strings.Cut(path, "/")
	if !hasKey {
		f.serveBucket(w, r, bucket)
		return
	}
	f.serveObject(w, r, bucket, key)
}

type xmlBucketEntry struct {
	Name         string `xml:"Name"`
	CreationDate string `xml:"CreationDate"`
}

type xmlListBuckets struct {
	XMLName xml.Name         `xml:"ListAllMyBucketsResult"`
	Buckets []xmlBucketEntry `xml:"Buckets>Bucket"`
}

func (f *fakeHCP) serveListBuckets(w http.ResponseWriter) {
	f.mu.Lock()
	names := make([]string, 0, len(f.buckets))
	for name := range f.buckets {
		names = append(names, name)
	}
	f.mu.Unlock()
	sort.Strings(names)

	result := xmlListBuckets{}
	for _, name := range names {
		result.Buckets = append(result.Buckets, xmlBucketEntry{
			Name:         name,
			CreationDate: s3Time(time.Now()),
		})
	}
	writeXML(w, result)
}

type xmlObjectEntry struct {
	Key          string `xml:"Key"`
	LastModified string `xml:"LastModified"`
	ETag         string `xml:"ETag"`
	Size         int64  `xml:"Size"`
}

type xmlListObjects struct {
	XMLName     xml.Name         `xml:"ListBucketResult"`
	Name        string           `xml:"Name"`
	KeyCount    int              `xml:"KeyCount"`
	IsTruncated bool             `xml:"IsTruncated"`
	Contents    []xmlObjectEntry `xml:"Contents"`
}

func (f *fakeHCP) serveBucket(w http.ResponseWriter, r *http.Request, bucket string) {
	f.mu.Lock()
	objects, ok := f.buckets[bucket]
	if !ok {
		f.mu.Unlock()
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if r.Method == http.MethodHead {
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
		return
	}

	// Object listing: single page, keys sorted for determinism.
	keys := make([]string, 0, len(objects))
	for key := range objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := xmlListObjects{
		Name:        bucket,
		KeyCount:    len(keys),
		IsTruncated: false,
	}
	for _, key := range keys {
		obj := objects[key]
		etag := f.etag(obj)
		if override, found := f.etagOverride[bucket+"/"+key]; found {
			etag = `"` + override + `"`
		}
		result.Contents = append(result.Contents, xmlObjectEntry{
			Key:          key,
			LastModified: s3Time(obj.modified),
			ETag:         etag,
			Size:         int64(len(obj.data)),
		})
	}
	f.mu.Unlock()
	writeXML(w, result)
}

func (f *fakeHCP) serveObject(w http.ResponseWriter, r *http.Request, bucket, key string) {
	switch r.Method {
	case http.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		metadata := map[string]string{}
		for header, values := range r.Header {
			lower := strings.ToLower(header)
			if strings.HasPrefix(lower, "x-amz-meta-") && len(values) > 0 {
				metadata[strings.TrimPrefix(lower, "x-amz-meta-")] = values[0]
			}
		}

		obj := &fakeObject{data: data, metadata: metadata, modified: time.Now()}
		f.mu.Lock()
		if _, ok := f.buckets[bucket]; !ok {
			f.mu.Unlock()
			w.WriteHeader(http.StatusNotFound)
			return
		}
		f.buckets[bucket][key] = obj
		f.mu.Unlock()

		w.Header().Set("ETag", f.etag(obj))
		w.WriteHeader(http.StatusOK)

	case http.MethodHead:
		obj := f.object(bucket, key)
		if obj == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		etag := f.etag(obj)
		f.mu.Lock()
		if override, ok := f.etagOverride[bucket+"/"+key]; ok {
			etag = `"` + override + `"`
		}
		f.mu.Unlock()

		w.Header().Set("ETag", etag)
		w.Header().Set("Last-Modified", obj.modified.UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Length", strconv.Itoa(len(obj.data)))
		w.WriteHeader(http.StatusOK)

	case http.MethodGet:
		obj := f.object(bucket, key)
		if obj == nil {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<Error><Code>NoSuchKey</Code><Message>key not found</Message></Error>`))
			return
		}
		w.Header().Set("ETag", f.etag(obj))
		// ServeContent handles the downloader's Range requests.
		http.ServeContent(w, r, key, obj.modified, bytes.NewReader(obj.data))

	case http.MethodDelete:
		f.mu.Lock()
		if b, ok := f.buckets[bucket]; ok {
			delete(b, key)
		}
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// s3Time formats a timestamp the way S3 listing documents do.
func s3Time(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

func writeXML(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/xml")
	data, err := xml.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(data)
}

// startFakeHCP starts an HTTP server for the fake endpoint and registers
// its shutdown with the test.
func startFakeHCP(t *testing.T, f *fakeHCP) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)
	return server
}
