package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/greyfundr/back-end/internal/mq"
	"github.com/greyfundr/back-end/internal/store"
	"github.com/greyfundr/back-end/types"
)

// DonationChannel is the queue/topic carrying donation events.
const DonationChannel = "campaign-donations"

// DonationService accepts donations by publishing events to the
// message queue and applies them to campaign totals when consumed.
// Decoupling acceptance from accounting keeps the donation endpoint
// fast under bursts.
type DonationService struct {
	campaigns CampaignRepository
	queue     *mq.MQ
}

func NewDonationService(campaigns CampaignRepository, queue *mq.MQ) *DonationService {
	return &DonationService{campaigns: campaigns, queue: queue}
}

// Donate validates the donation and publishes it. The campaign totals
// are updated asynchronously by Run.
func (s *DonationService) Donate(ctx context.Context, campaignID, donorID string, amount int64, message string) (types.DonationEvent, error) {
	if amount <= 0 {
		return types.DonationEvent{}, fmt.Errorf("donation amount must be positive: %w", ErrBadRequest)
	}

	campaign, err := s.campaigns.Get(ctx, campaignID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.DonationEvent{}, ErrNotFound
		}
		return types.DonationEvent{}, fmt.Errorf("fetch campaign: %w", err)
	}
	if campaign.Status != types.CampaignStatusActive {
		return types.DonationEvent{}, fmt.Errorf("campaign is not accepting donations: %w", ErrBadRequest)
	}
	if campaign.IsExpired(time.Now()) {
		return types.DonationEvent{}, fmt.Errorf("campaign has ended: %w", ErrBadRequest)
	}

	event := types.DonationEvent{
		CampaignID: campaignID,
		DonorID:    donorID,
		Amount:     amount,
		Message:    message,
		CreatedAt:  time.Now(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return types.DonationEvent{}, fmt.Errorf("encode donation: %w", err)
	}

	if _, err := s.queue.Publish(ctx, DonationChannel, data, map[string]string{
		"campaign_id": campaignID,
	}); err != nil {
		return types.DonationEvent{}, fmt.Errorf("publish donation: %w", err)
	}
	return event, nil
}

// Run consumes donation events until ctx is cancelled, applying each to
// the campaign's running totals.
func (s *DonationService) Run(ctx context.Context) error {
	return s.queue.Subscribe(ctx, DonationChannel, s.handle)
}

func (s *DonationService) handle(ctx context.Context, msg mq.Message) error {
	var event types.DonationEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		// A malformed event can never succeed; drop it instead of
		// requeueing forever.
		log.Printf("dropping malformed donation event %s: %v", msg.ID, err)
		return nil
	}

	if err := s.campaigns.ApplyDonation(ctx, event.CampaignID, event.Amount); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("dropping donation for missing campaign %s", event.CampaignID)
			return nil
		}
		return err
	}
	return nil
}
