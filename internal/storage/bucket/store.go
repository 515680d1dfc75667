package bucket

import (
	"context"
	"fmt"

	gcs "cloud.google.com/go/storage"
	"github.com/garagelab/autodiag/internal/logger"
)

// Store persists diagnostic photos in a Google Cloud Storage bucket and
// hands back publicly resolvable URLs.
type Store struct {
	logger *logger.Logger
	bucket *gcs.BucketHandle
	name   string
}

// NewStore creates a Store for the named bucket. The bucket is expected to
// exist and allow public reads of individual objects.
func NewStore(ctx context.Context, log *logger.Logger, bucketName string) (*Store, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	log.WithComponent("image-store").Info("image store initialized", "bucket", bucketName)

	return &Store{
		logger: log,
		bucket: client.Bucket(bucketName),
		name:   bucketName,
	}, nil
}

// Save writes one object and returns its public URL.
func (s *Store) Save(ctx context.Context, key, contentType string, data []byte) (string, error) {
	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to write object %s: %w", key, err)
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize object %s: %w", key, err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.name, key), nil
}
