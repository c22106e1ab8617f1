package archive

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestDisabledWriterIsNoOp(t *testing.T) {
	var nilWriter *Writer
	uri, err := nilWriter.ArchiveModelResponse(context.Background(), "extract", "raw")
	if err != nil || uri != "" {
		t.Errorf("nil writer = (%q, %v), want no-op", uri, err)
	}

	empty := NewWriter("")
	if empty.Enabled() {
		t.Error("writer with empty bucket reports enabled")
	}
	uri, err = empty.ArchiveModelResponse(context.Background(), "extract", "raw")
	if err != nil || uri != "" {
		t.Errorf("empty-bucket writer = (%q, %v), want no-op", uri, err)
	}
}

func TestObjectName(t *testing.T) {
	w := NewWriter("my-bucket")
	w.now = func() time.Time { return time.Date(2025, 6, 15, 23, 59, 0, 0, time.UTC) }

	name := w.objectName("extract")
	if !strings.HasPrefix(name, "model-responses/extract/2025/06/15/") {
		t.Errorf("object name = %q", name)
	}
	if !strings.HasSuffix(name, ".txt") {
		t.Errorf("object name = %q, want .txt suffix", name)
	}

	if other := w.objectName("extract"); other == name {
		t.Error("two objects share a name")
	}
}

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{"gs://bucket/a/b.txt", "bucket", "a/b.txt", false},
		{"gs://bucket", "", "", true},
		{"http://bucket/a", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		bucket, object, err := ParseURI(tt.uri)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseURI(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			continue
		}
		if bucket != tt.wantBucket || object != tt.wantObject {
			t.Errorf("ParseURI(%q) = (%q, %q)", tt.uri, bucket, object)
		}
	}
}
