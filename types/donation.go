package types

import "time"

// DonationEvent is the message published when a donation is accepted.
// A consumer applies it to the campaign's running totals.
type DonationEvent struct {
	// CampaignID identifies the campaign receiving the donation.
	CampaignID string `json:"campaign_id"`

	// DonorID identifies the donating user.
	DonorID string `json:"donor_id"`

	// Amount is the donated amount in minor currency units.
	Amount int64 `json:"amount"`

	// Message is an optional note from the donor.
	Message string `json:"message,omitempty"`

	// CreatedAt is when the donation was accepted.
	CreatedAt time.Time `json:"created_at"`
}
