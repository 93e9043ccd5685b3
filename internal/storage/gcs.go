package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

const publicHost = "https://storage.googleapis.com/"

// GCS uploads attachments to a Google Cloud Storage bucket.
type GCS struct {
	client     *storage.Client
	bucketName string
}

// NewGCS creates a client for bucketName. credentialsPath may be empty to use
// the ambient application default credentials.
func NewGCS(ctx context.Context, bucketName, credentialsPath string) (*GCS, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCS{client: client, bucketName: bucketName}, nil
}

func objectName(folder, extension string) string {
	return fmt.Sprintf("%s/%s-%s%s", strings.Trim(folder, "/"), uuid.NewString(), time.Now().UTC().Format("20060102150405"), extension)
}

// Upload writes body under folder and returns its public URL.
func (g *GCS) Upload(ctx context.Context, body io.Reader, contentType, extension, folder string) (string, error) {
	name := objectName(folder, extension)

	// Close commits whatever was written; cancelling the writer's context
	// is the only way to abandon a partial object.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wc := g.client.Bucket(g.bucketName).Object(name).NewWriter(ctx)
	wc.ContentType = contentType
	wc.CacheControl = "public, max-age=86400"

	if _, err := io.Copy(wc, body); err != nil {
		cancel()
		return "", fmt.Errorf("failed to copy attachment to GCS: %w", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}

	return publicHost + g.bucketName + "/" + name, nil
}

// Delete removes an object previously returned by Upload.
func (g *GCS) Delete(ctx context.Context, locator string) error {
	name, err := g.objectFromURL(locator)
	if err != nil {
		return err
	}
	if err := g.client.Bucket(g.bucketName).Object(name).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	return nil
}

func (g *GCS) objectFromURL(locator string) (string, error) {
	if !strings.HasPrefix(locator, publicHost) {
		return "", fmt.Errorf("invalid GCS URL %q", locator)
	}
	parts := strings.SplitN(strings.TrimPrefix(locator, publicHost), "/", 2)
	if len(parts) != 2 || parts[0] != g.bucketName || parts[1] == "" {
		return "", fmt.Errorf("GCS URL %q is not in bucket %s", locator, g.bucketName)
	}
	return parts[1], nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}
