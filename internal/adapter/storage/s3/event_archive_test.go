package s3

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockObjectPutter struct {
	mock.Mock
	body []byte
}

func (m *MockObjectPutter) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	m.body, _ = io.ReadAll(reader)
	args := m.Called(ctx, bucketName, objectName, objectSize, opts.ContentType)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func boughtEvent(t *testing.T) domain.Event {
	t.Helper()
	l, err := domain.NewListing("alice", "C", "7", domain.AssetKindFungible, 3, 4)
	require.NoError(t, err)
	e := domain.NewBoughtEvent("bob", l, 2)
	e.OccurredAt = time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	return e
}

func TestObjectKey(t *testing.T) {
	e := boughtEvent(t)
	assert.Equal(t, "events/2026/03/09/"+e.ID+".json", ObjectKey(e))
}

func TestEventArchive_Append(t *testing.T) {
	ctx := context.Background()
	e := boughtEvent(t)
	putter := new(MockObjectPutter)
	putter.On("PutObject", ctx, "events", ObjectKey(e), mock.AnythingOfType("int64"), "application/json").
		Return(minio.UploadInfo{Key: ObjectKey(e)}, nil).Once()

	archive := newEventArchive(putter, "events", logger.NewNop())
	require.NoError(t, archive.Append(ctx, e))

	var stored domain.Event
	require.NoError(t, json.Unmarshal(putter.body, &stored))
	assert.Equal(t, e.ID, stored.ID)
	assert.Equal(t, domain.EventBought, stored.Type)
	assert.Equal(t, int64(2), stored.Amount)
	putter.AssertExpectations(t)
}

func TestEventArchive_AppendError(t *testing.T) {
	ctx := context.Background()
	e := boughtEvent(t)
	putter := new(MockObjectPutter)
	putter.On("PutObject", ctx, "events", ObjectKey(e), mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, errors.New("access denied"))

	err := newEventArchive(putter, "events", logger.NewNop()).Append(ctx, e)
	assert.ErrorContains(t, err, "access denied")
}
