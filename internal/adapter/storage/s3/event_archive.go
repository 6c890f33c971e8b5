package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// objectPutter is the part of *minio.Client the archive writes through.
type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// EventArchive writes each event as a JSON object so indexers can replay history from storage.
type EventArchive struct {
	client objectPutter
	bucket string
	logger *logger.Logger
}

// NewEventArchive connects to MinIO and makes sure the bucket exists.
func NewEventArchive(endpoint, accessKey, secretKey, bucketName string, useSSL bool, log *logger.Logger) (*EventArchive, error) {
	log.Info("Initializing S3 event archive", zap.String("endpoint", endpoint), zap.String("bucket", bucketName), zap.Bool("use_ssl", useSSL))

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for endpoint %s: %w", endpoint, err)
	}

	ctx := context.Background()
	if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
		exists, errBucketExists := client.BucketExists(ctx, bucketName)
		if errBucketExists != nil || !exists {
			log.Error("S3 event archive: failed to make or verify bucket",
				zap.String("bucket", bucketName), zap.NamedError("make_bucket_error", err), zap.NamedError("check_exists_error", errBucketExists))
			return nil, fmt.Errorf("failed to make/verify bucket %s: (make: %v / exists_check: %v)", bucketName, err, errBucketExists)
		}
		log.Info("S3 event archive: bucket already exists", zap.String("bucket", bucketName))
	}

	return newEventArchive(client, bucketName, log), nil
}

func newEventArchive(client objectPutter, bucket string, log *logger.Logger) *EventArchive {
	return &EventArchive{client: client, bucket: bucket, logger: log.Named("EventArchive")}
}

// ObjectKey is events/YYYY/MM/DD/<event id>.json, dated by when the event occurred.
func ObjectKey(e domain.Event) string {
	return fmt.Sprintf("events/%s/%s.json", e.OccurredAt.UTC().Format("2006/01/02"), e.ID)
}

func (a *EventArchive) Append(ctx context.Context, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.ID, err)
	}
	key := ObjectKey(event)

	info, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  "application/json",
		UserMetadata: map[string]string{"event-type": string(event.Type)},
	})
	if err != nil {
		a.logger.Error("PutObject failed", zap.String("bucket", a.bucket), zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to upload object %s to bucket %s: %w", key, a.bucket, err)
	}
	a.logger.Debug("Event archived", zap.String("key", info.Key), zap.String("etag", info.ETag))
	return nil
}
