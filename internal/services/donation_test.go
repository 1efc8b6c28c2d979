package services

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/greyfundr/back-end/internal/mq"
	"github.com/greyfundr/back-end/types"
)

// fakeQueue is an in-memory mq.Backend that hands published messages
// straight to the subscriber.
type fakeQueue struct {
	mu       sync.Mutex
	messages []mq.Message
}

func (f *fakeQueue) Publish(_ context.Context, _ string, data []byte, attrs map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := strconv.Itoa(len(f.messages) + 1)
	f.messages = append(f.messages, mq.Message{ID: id, Data: data, Attributes: attrs})
	return id, nil
}

func (f *fakeQueue) Subscribe(ctx context.Context, _ string, handler mq.Handler) error {
	f.mu.Lock()
	pending := f.messages
	f.messages = nil
	f.mu.Unlock()
	for _, msg := range pending {
		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeQueue) Close() error { return nil }

func newActiveCampaign(t *testing.T, repo *fakeCampaignRepo) types.Campaign {
	t.Helper()
	svc := NewCampaignService(repo, nil)
	created, err := svc.Create(context.Background(), validCreateRequest(), "creator-1")
	require.NoError(t, err)
	status := types.CampaignStatusActive
	updated, err := svc.Update(context.Background(), created.ID, UpdateCampaignRequest{Status: &status}, "creator-1")
	require.NoError(t, err)
	return updated
}

func TestDonate_PublishesAndApplies(t *testing.T) {
	repo := newFakeCampaignRepo()
	queue := &fakeQueue{}
	svc := NewDonationService(repo, mq.New(queue))
	campaign := newActiveCampaign(t, repo)
	ctx := context.Background()

	event, err := svc.Donate(ctx, campaign.ID, "donor-1", 2500, "good luck")
	require.NoError(t, err)
	require.Equal(t, campaign.ID, event.CampaignID)
	require.Equal(t, int64(2500), event.Amount)

	// Totals change only once the consumer applies the event.
	untouched, err := repo.Get(ctx, campaign.ID)
	require.NoError(t, err)
	require.Zero(t, untouched.CurrentAmount)

	require.NoError(t, svc.Run(ctx))

	applied, err := repo.Get(ctx, campaign.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2500), applied.CurrentAmount)
	require.Equal(t, int64(1), applied.DonationCount)
}

func TestDonate_Rejections(t *testing.T) {
	repo := newFakeCampaignRepo()
	svc := NewDonationService(repo, mq.New(&fakeQueue{}))
	campaign := newActiveCampaign(t, repo)
	ctx := context.Background()

	_, err := svc.Donate(ctx, campaign.ID, "donor-1", 0, "")
	require.ErrorIs(t, err, ErrBadRequest)

	_, err = svc.Donate(ctx, "missing", "donor-1", 100, "")
	require.ErrorIs(t, err, ErrNotFound)

	draftSvc := NewCampaignService(repo, nil)
	draft, err := draftSvc.Create(ctx, validCreateRequest(), "creator-1")
	require.NoError(t, err)
	_, err = svc.Donate(ctx, draft.ID, "donor-1", 100, "")
	require.ErrorIs(t, err, ErrBadRequest)

	past := time.Now().Add(-time.Hour)
	start := past.Add(-24 * time.Hour)
	expired, err := draftSvc.Update(ctx, campaign.ID, UpdateCampaignRequest{StartDate: &start, EndDate: &past}, "creator-1")
	require.NoError(t, err)
	_, err = svc.Donate(ctx, expired.ID, "donor-1", 100, "")
	require.ErrorIs(t, err, ErrBadRequest)
}

func TestDonationConsumer_DropsBadEvents(t *testing.T) {
	repo := newFakeCampaignRepo()
	queue := &fakeQueue{}
	svc := NewDonationService(repo, mq.New(queue))
	ctx := context.Background()

	_, err := queue.Publish(ctx, DonationChannel, []byte("not json"), nil)
	require.NoError(t, err)

	orphan, err := json.Marshal(types.DonationEvent{CampaignID: "missing", Amount: 100})
	require.NoError(t, err)
	_, err = queue.Publish(ctx, DonationChannel, orphan, nil)
	require.NoError(t, err)

	// Neither poison message should stop the consumer.
	require.NoError(t, svc.Run(ctx))
}
