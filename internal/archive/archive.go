// Package archive stores raw model responses in GCS for later diagnosis.
// Raw output is never shown to users, so the archive is the only place a
// malformed response can be inspected after the fact.
package archive

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// Writer archives model responses under a bucket. A nil Writer or an empty
// bucket name disables archiving; every method is a safe no-op then.
type Writer struct {
	bucket string
	now    func() time.Time
}

func NewWriter(bucket string) *Writer {
	return &Writer{bucket: bucket, now: time.Now}
}

// Enabled reports whether responses will actually be stored.
func (w *Writer) Enabled() bool {
	return w != nil && w.bucket != ""
}

// ArchiveModelResponse writes raw under
// model-responses/<kind>/<yyyy/mm/dd>/<uuid>.txt and returns the gs:// URI.
// It assumes Application Default Credentials are configured.
func (w *Writer) ArchiveModelResponse(ctx context.Context, kind, raw string) (string, error) {
	if !w.Enabled() {
		return "", nil
	}

	object := w.objectName(kind)

	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	wc := client.Bucket(w.bucket).Object(object).NewWriter(ctx)
	wc.ContentType = "text/plain; charset=utf-8"
	if _, err := wc.Write([]byte(raw)); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("write archive object: %w", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("finalize archive object: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", w.bucket, object), nil
}

func (w *Writer) objectName(kind string) string {
	day := w.now().UTC().Format("2006/01/02")
	return path.Join("model-responses", kind, day, uuid.NewString()+".txt")
}

// ParseURI splits a gs:// URI into bucket and object path.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}
