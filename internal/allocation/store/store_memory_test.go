package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"organlink/internal/allocation/models"
	id "organlink/pkg/domain"
	"organlink/pkg/platform/sentinel"
)

func newRequest(status models.Status) *models.AllocationRequest {
	now := time.Now().UTC()
	return &models.AllocationRequest{
		ID:               id.NewRequestID(),
		OriginHospitalID: id.NewHospitalID(),
		TargetHospitalID: id.NewHospitalID(),
		RecipientID:      id.NewRecipientID(),
		DonorID:          id.NewDonorID(),
		Status:           status,
		RequesterNotes:   "urgent kidney case",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestInMemoryStoreCreateAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	request := newRequest(models.StatusPending)
	require.NoError(t, s.Create(ctx, request))

	found, err := s.FindByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, request.ID, found.ID)
	assert.Equal(t, models.StatusPending, found.Status)
	assert.False(t, found.Viewed)

	_, err = s.FindByID(ctx, id.NewRequestID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	assert.ErrorIs(t, s.Create(ctx, request), sentinel.ErrConflict)
}

func TestInMemoryStoreUpdateStatusIfPending(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	request := newRequest(models.StatusPending)
	require.NoError(t, s.Create(ctx, request))

	respondedAt := time.Now().UTC()
	require.NoError(t, s.UpdateStatusIfPending(ctx, request.ID, models.StatusAccepted, "we can receive the organ", respondedAt))

	found, err := s.FindByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, found.Status)
	assert.Equal(t, "we can receive the organ", found.ResponderNotes)
	assert.Equal(t, respondedAt, found.UpdatedAt)

	// The second resolution attempt loses the conditional write.
	err = s.UpdateStatusIfPending(ctx, request.ID, models.StatusRejected, "too late", time.Now().UTC())
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	found, err = s.FindByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, found.Status, "losing write must not overwrite")

	err = s.UpdateStatusIfPending(ctx, id.NewRequestID(), models.StatusAccepted, "", time.Now().UTC())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryStoreConcurrentResponsesSerialize(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	request := newRequest(models.StatusPending)
	require.NoError(t, s.Create(ctx, request))

	const responders = 20
	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	for i := range responders {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			to := models.StatusAccepted
			if i%2 == 1 {
				to = models.StatusRejected
			}
			switch err := s.UpdateStatusIfPending(ctx, request.ID, to, "", time.Now().UTC()); {
			case err == nil:
				wins.Add(1)
			default:
				conflicts.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load(), "exactly one responder wins")
	assert.Equal(t, int32(responders-1), conflicts.Load())
}

func TestInMemoryStoreMarkCompleted(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	request := newRequest(models.StatusPending)
	require.NoError(t, s.Create(ctx, request))

	// Pending requests cannot complete directly.
	err := s.MarkCompleted(ctx, request.ID, time.Now().UTC())
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	require.NoError(t, s.UpdateStatusIfPending(ctx, request.ID, models.StatusAccepted, "", time.Now().UTC()))
	require.NoError(t, s.MarkCompleted(ctx, request.ID, time.Now().UTC()))

	found, err := s.FindByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, found.Status)
}

func TestInMemoryStoreFindActiveByPair(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	rejected := newRequest(models.StatusRejected)
	require.NoError(t, s.Create(ctx, rejected))

	_, err := s.FindActiveByPair(ctx, rejected.RecipientID, rejected.DonorID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound, "resolved requests are not active")

	active := newRequest(models.StatusPending)
	active.RecipientID = rejected.RecipientID
	active.DonorID = rejected.DonorID
	active.CreatedAt = rejected.CreatedAt.Add(time.Minute)
	require.NoError(t, s.Create(ctx, active))

	found, err := s.FindActiveByPair(ctx, rejected.RecipientID, rejected.DonorID)
	require.NoError(t, err)
	assert.Equal(t, active.ID, found.ID)
}

func TestInMemoryStoreMarkViewed(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	request := newRequest(models.StatusPending)
	require.NoError(t, s.Create(ctx, request))

	require.NoError(t, s.MarkViewed(ctx, request.ID))
	found, err := s.FindByID(ctx, request.ID)
	require.NoError(t, err)
	assert.True(t, found.Viewed)

	assert.ErrorIs(t, s.MarkViewed(ctx, id.NewRequestID()), sentinel.ErrNotFound)
}
