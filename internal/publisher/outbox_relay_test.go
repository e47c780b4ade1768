package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/domain/model"
	infrarepo "storefront/internal/infra/repository"
	"storefront/internal/testutil"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type writerMock struct {
	mock.Mock
}

func (m *writerMock) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return m.Called(ctx, msgs).Error(0)
}

func seedEvents(t *testing.T, db *gorm.DB, n int) []model.OutboxEvent {
	t.Helper()

	out := make([]model.OutboxEvent, 0, n)
	for i := 0; i < n; i++ {
		ev := model.OutboxEvent{
			AggregateType: "order",
			AggregateID:   "7",
			EventType:     model.EventOrderUpdated,
			Payload:       `{"order_id":7}`,
		}
		require.NoError(t, db.Create(&ev).Error)
		out = append(out, ev)
	}
	return out
}

func unpublished(t *testing.T, db *gorm.DB) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Model(&model.OutboxEvent{}).Where("published_at IS NULL").Count(&n).Error)
	return n
}

func TestPublishPending_MarksWrittenEvents(t *testing.T) {
	db := testutil.NewDB(t)
	events := seedEvents(t, db, 2)

	w := new(writerMock)
	var sent []kafka.Message
	w.On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			sent = append(sent, args.Get(1).([]kafka.Message)...)
		}).
		Return(nil)

	relay := NewOutboxRelay(infrarepo.NewRepos(db).Outbox(), w, time.Second)
	n := relay.PublishPending(context.Background())

	assert.Equal(t, 2, n)
	assert.Equal(t, int64(0), unpublished(t, db))
	require.Len(t, sent, 2)
	assert.Equal(t, []byte("7"), sent[0].Key)
	assert.Equal(t, []byte(events[0].Payload), sent[0].Value)
	assert.Equal(t, "event_type", sent[0].Headers[0].Key)
	assert.Equal(t, []byte(model.EventOrderUpdated), sent[0].Headers[0].Value)

	// nothing left on the next tick
	assert.Equal(t, 0, relay.PublishPending(context.Background()))
	w.AssertNumberOfCalls(t, "WriteMessages", 2)
}

func TestPublishPending_StopsAtFirstFailure(t *testing.T) {
	db := testutil.NewDB(t)
	seedEvents(t, db, 3)

	w := new(writerMock)
	w.On("WriteMessages", mock.Anything, mock.Anything).Return(nil).Once()
	w.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	relay := NewOutboxRelay(infrarepo.NewRepos(db).Outbox(), w, time.Second)
	n := relay.PublishPending(context.Background())

	assert.Equal(t, 1, n)
	assert.Equal(t, int64(2), unpublished(t, db))
	w.AssertExpectations(t)
}

func TestRun_ReturnsOnCancel(t *testing.T) {
	db := testutil.NewDB(t)
	seedEvents(t, db, 1)

	w := new(writerMock)
	w.On("WriteMessages", mock.Anything, mock.Anything).Return(nil)

	relay := NewOutboxRelay(infrarepo.NewRepos(db).Outbox(), w, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	require.Eventually(t, func() bool {
		var n int64
		db.Model(&model.OutboxEvent{}).Where("published_at IS NULL").Count(&n)
		return n == 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
}
