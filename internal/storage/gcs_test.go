package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

const testBucket = "chat-media"

// fakeBucket answers every request as a successful object insert and counts
// the requests that arrive.
func fakeBucket(t *testing.T) (*GCS, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bucket":"` + testBucket + `","name":"obj"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := storage.NewClient(context.Background(),
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return &GCS{client: client, bucketName: testBucket}, &hits
}

func TestUploadStoresObject(t *testing.T) {
	g, hits := fakeBucket(t)
	file := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{1}, 512)...)

	prepared, err := Prepare(Attachment{Filename: "a.png", Body: bytes.NewReader(file)}, 1<<20)
	require.NoError(t, err)

	url, err := g.Upload(context.Background(), prepared.Body, prepared.ContentType, prepared.Extension, "attachments/r1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, publicHost+testBucket+"/attachments/r1/"))
	assert.Equal(t, int32(1), hits.Load())
}

func TestUploadOversizeLeavesNoObject(t *testing.T) {
	g, hits := fakeBucket(t)
	file := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{1}, 8192)...)

	prepared, err := Prepare(Attachment{Filename: "big.png", Body: bytes.NewReader(file)}, 4000)
	require.NoError(t, err)

	_, err = g.Upload(context.Background(), prepared.Body, prepared.ContentType, prepared.Extension, "attachments/r1")
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Never(t, func() bool { return hits.Load() > 0 }, 300*time.Millisecond, 20*time.Millisecond)
}
