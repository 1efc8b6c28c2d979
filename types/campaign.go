package types

import "time"

// Campaign lifecycle states.
const (
	CampaignStatusDraft     = "draft"
	CampaignStatusActive    = "active"
	CampaignStatusCompleted = "completed"
	CampaignStatusSuspended = "suspended"
	CampaignStatusCancelled = "cancelled"
)

// Campaign categories.
const (
	CategoryEducation   = "education"
	CategoryHealth      = "health"
	CategoryCommunity   = "community"
	CategoryEnvironment = "environment"
	CategoryTechnology  = "technology"
	CategoryArts        = "arts"
	CategoryOther       = "other"
)

// BankDetails holds payout account information for a campaign.
type BankDetails struct {
	AccountName   string `json:"account_name,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	BankName      string `json:"bank_name,omitempty"`
	SwiftCode     string `json:"swift_code,omitempty"`
}

// Campaign represents a fundraising campaign.
// Monetary amounts are expressed in minor currency units (e.g. cents).
type Campaign struct {
	// ID is the unique identifier of the campaign.
	ID string `json:"id" db:"id"`

	// Title is the human-readable name of the campaign.
	Title string `json:"title" db:"title"`

	// Slug is a URL-friendly identifier derived from the title.
	Slug string `json:"slug" db:"slug"`

	// Description contains the full campaign pitch.
	Description string `json:"description" db:"description"`

	// CreatedBy is the ID of the user who owns the campaign.
	CreatedBy string `json:"created_by" db:"created_by"`

	// GoalAmount is the fundraising target.
	GoalAmount int64 `json:"goal_amount" db:"goal_amount"`

	// CurrentAmount is the total raised so far.
	CurrentAmount int64 `json:"current_amount" db:"current_amount"`

	// Status is the lifecycle state of the campaign: draft, active,
	// completed, suspended, or cancelled.
	Status string `json:"status" db:"status"`

	// Category groups campaigns for browsing and filtering.
	Category string `json:"category" db:"category"`

	// StartDate is when the campaign opens for donations.
	StartDate time.Time `json:"start_date" db:"start_date"`

	// EndDate is when the campaign closes. It must be after StartDate.
	EndDate time.Time `json:"end_date" db:"end_date"`

	// Images are object-storage keys or URLs of campaign images.
	Images []string `json:"images" db:"images"`

	// VideoURL is an optional link to a campaign video.
	VideoURL string `json:"video_url,omitempty" db:"video_url"`

	// Tags are free-form labels used for search and filtering.
	Tags []string `json:"tags" db:"tags"`

	// IsPublic controls whether the campaign appears in public listings.
	IsPublic bool `json:"is_public" db:"is_public"`

	// IsFeatured marks campaigns surfaced on the featured listing.
	IsFeatured bool `json:"is_featured" db:"is_featured"`

	// ViewCount is the number of times the campaign detail page was
	// fetched.
	ViewCount int64 `json:"view_count" db:"view_count"`

	// DonationCount is the number of donations received.
	DonationCount int64 `json:"donation_count" db:"donation_count"`

	// BankDetails holds payout information. Only relevant to the owner.
	BankDetails BankDetails `json:"bank_details" db:"bank_details"`

	// CreatedAt is the timestamp at which the campaign was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// FundingPercentage returns the rounded percentage of the goal raised.
func (c Campaign) FundingPercentage() int {
	if c.GoalAmount <= 0 {
		return 0
	}
	return int((c.CurrentAmount*100 + c.GoalAmount/2) / c.GoalAmount)
}

// IsExpired reports whether the campaign end date has passed.
func (c Campaign) IsExpired(now time.Time) bool {
	return now.After(c.EndDate)
}
