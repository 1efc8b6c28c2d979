package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/greyfundr/back-end/internal/storage"
	"github.com/greyfundr/back-end/internal/store"
	"github.com/greyfundr/back-end/types"
)

const featuredLimit = 10

// CampaignRepository defines persistence operations for campaigns.
type CampaignRepository interface {
	List(ctx context.Context, filter store.CampaignFilter, offset, limit int) ([]types.Campaign, int, error)
	Get(ctx context.Context, id string) (types.Campaign, error)
	Create(ctx context.Context, campaign types.Campaign) (types.Campaign, error)
	Update(ctx context.Context, campaign types.Campaign) (types.Campaign, error)
	Delete(ctx context.Context, id string) error
	IncrementViewCount(ctx context.Context, id string) error
	ListByCreator(ctx context.Context, creatorID string) ([]types.Campaign, error)
	ListFeatured(ctx context.Context, limit int) ([]types.Campaign, error)
	ApplyDonation(ctx context.Context, id string, amount int64) error
	AppendImage(ctx context.Context, id, key string) error
}

// CampaignService encapsulates campaign use-cases.
type CampaignService struct {
	repo    CampaignRepository
	storage *storage.Storage
}

func NewCampaignService(repo CampaignRepository, storage *storage.Storage) *CampaignService {
	return &CampaignService{repo: repo, storage: storage}
}

// CreateCampaignRequest carries the fields accepted at creation.
type CreateCampaignRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	GoalAmount  int64             `json:"goal_amount"`
	Category    string            `json:"category"`
	StartDate   time.Time         `json:"start_date"`
	EndDate     time.Time         `json:"end_date"`
	VideoURL    string            `json:"video_url"`
	Tags        []string          `json:"tags"`
	IsPublic    *bool             `json:"is_public"`
	BankDetails types.BankDetails `json:"bank_details"`
}

// UpdateCampaignRequest carries a partial update. Nil means "leave
// unchanged".
type UpdateCampaignRequest struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	GoalAmount  *int64             `json:"goal_amount"`
	Category    *string            `json:"category"`
	Status      *string            `json:"status"`
	StartDate   *time.Time         `json:"start_date"`
	EndDate     *time.Time         `json:"end_date"`
	VideoURL    *string            `json:"video_url"`
	Tags        []string           `json:"tags"`
	IsPublic    *bool              `json:"is_public"`
	BankDetails *types.BankDetails `json:"bank_details"`
}

func validCategory(category string) bool {
	switch category {
	case types.CategoryEducation, types.CategoryHealth, types.CategoryCommunity,
		types.CategoryEnvironment, types.CategoryTechnology, types.CategoryArts,
		types.CategoryOther:
		return true
	}
	return false
}

func validStatus(status string) bool {
	switch status {
	case types.CampaignStatusDraft, types.CampaignStatusActive,
		types.CampaignStatusCompleted, types.CampaignStatusSuspended,
		types.CampaignStatusCancelled:
		return true
	}
	return false
}

// Create validates the request and persists a new draft campaign owned
// by creatorID.
func (s *CampaignService) Create(ctx context.Context, req CreateCampaignRequest, creatorID string) (types.Campaign, error) {
	if len(req.Title) < 10 || len(req.Title) > 200 {
		return types.Campaign{}, fmt.Errorf("title must be 10 to 200 characters: %w", ErrBadRequest)
	}
	if len(req.Description) < 50 || len(req.Description) > 5000 {
		return types.Campaign{}, fmt.Errorf("description must be 50 to 5000 characters: %w", ErrBadRequest)
	}
	if req.GoalAmount < 100 {
		return types.Campaign{}, fmt.Errorf("goal amount must be at least 100: %w", ErrBadRequest)
	}
	if !validCategory(req.Category) {
		return types.Campaign{}, fmt.Errorf("unknown category %q: %w", req.Category, ErrBadRequest)
	}
	if !req.StartDate.Before(req.EndDate) {
		return types.Campaign{}, fmt.Errorf("end date must be after start date: %w", ErrBadRequest)
	}
	if !req.EndDate.After(time.Now()) {
		return types.Campaign{}, fmt.Errorf("end date must be in the future: %w", ErrBadRequest)
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	id := uuid.NewString()
	campaign := types.Campaign{
		ID:          id,
		Title:       req.Title,
		Slug:        campaignSlug(req.Title, id),
		Description: req.Description,
		CreatedBy:   creatorID,
		GoalAmount:  req.GoalAmount,
		Status:      types.CampaignStatusDraft,
		Category:    req.Category,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		VideoURL:    req.VideoURL,
		Tags:        req.Tags,
		IsPublic:    isPublic,
		BankDetails: req.BankDetails,
	}

	created, err := s.repo.Create(ctx, campaign)
	if err != nil {
		return types.Campaign{}, fmt.Errorf("create campaign: %w", err)
	}
	return created, nil
}

// ListRequest narrows a public listing.
type ListRequest struct {
	Status     string
	Category   string
	Search     string
	IsFeatured *bool
}

// List returns public campaigns matching the filters plus a total count
// for pagination.
func (s *CampaignService) List(ctx context.Context, req ListRequest, offset, limit int) ([]types.Campaign, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	isPublic := true
	filter := store.CampaignFilter{
		Status:     req.Status,
		Category:   req.Category,
		Search:     req.Search,
		IsFeatured: req.IsFeatured,
		IsPublic:   &isPublic,
	}
	return s.repo.List(ctx, filter, offset, limit)
}

// Get fetches a campaign and bumps its view counter.
func (s *CampaignService) Get(ctx context.Context, id string) (types.Campaign, error) {
	campaign, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Campaign{}, ErrNotFound
		}
		return types.Campaign{}, fmt.Errorf("fetch campaign: %w", err)
	}
	if err := s.repo.IncrementViewCount(ctx, id); err != nil {
		return types.Campaign{}, fmt.Errorf("increment view count: %w", err)
	}
	campaign.ViewCount++
	return campaign, nil
}

// Update applies a partial update. Only the owner may update their
// campaign.
func (s *CampaignService) Update(ctx context.Context, id string, req UpdateCampaignRequest, userID string) (types.Campaign, error) {
	campaign, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Campaign{}, ErrNotFound
		}
		return types.Campaign{}, fmt.Errorf("fetch campaign: %w", err)
	}
	if campaign.CreatedBy != userID {
		return types.Campaign{}, fmt.Errorf("you can only update your own campaigns: %w", ErrForbidden)
	}

	if req.Title != nil {
		if len(*req.Title) < 10 || len(*req.Title) > 200 {
			return types.Campaign{}, fmt.Errorf("title must be 10 to 200 characters: %w", ErrBadRequest)
		}
		campaign.Title = *req.Title
		campaign.Slug = campaignSlug(*req.Title, campaign.ID)
	}
	if req.Description != nil {
		if len(*req.Description) < 50 || len(*req.Description) > 5000 {
			return types.Campaign{}, fmt.Errorf("description must be 50 to 5000 characters: %w", ErrBadRequest)
		}
		campaign.Description = *req.Description
	}
	if req.GoalAmount != nil {
		if *req.GoalAmount < 100 {
			return types.Campaign{}, fmt.Errorf("goal amount must be at least 100: %w", ErrBadRequest)
		}
		campaign.GoalAmount = *req.GoalAmount
	}
	if req.Category != nil {
		if !validCategory(*req.Category) {
			return types.Campaign{}, fmt.Errorf("unknown category %q: %w", *req.Category, ErrBadRequest)
		}
		campaign.Category = *req.Category
	}
	if req.Status != nil {
		if !validStatus(*req.Status) {
			return types.Campaign{}, fmt.Errorf("unknown status %q: %w", *req.Status, ErrBadRequest)
		}
		campaign.Status = *req.Status
	}
	if req.StartDate != nil {
		campaign.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		campaign.EndDate = *req.EndDate
	}
	if !campaign.StartDate.Before(campaign.EndDate) {
		return types.Campaign{}, fmt.Errorf("end date must be after start date: %w", ErrBadRequest)
	}
	if req.VideoURL != nil {
		campaign.VideoURL = *req.VideoURL
	}
	if req.Tags != nil {
		campaign.Tags = req.Tags
	}
	if req.IsPublic != nil {
		campaign.IsPublic = *req.IsPublic
	}
	if req.BankDetails != nil {
		campaign.BankDetails = *req.BankDetails
	}

	updated, err := s.repo.Update(ctx, campaign)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Campaign{}, ErrNotFound
		}
		return types.Campaign{}, fmt.Errorf("update campaign: %w", err)
	}
	return updated, nil
}

// Delete removes a campaign. Only the owner may delete it.
func (s *CampaignService) Delete(ctx context.Context, id, userID string) error {
	campaign, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("fetch campaign: %w", err)
	}
	if campaign.CreatedBy != userID {
		return fmt.Errorf("you can only delete your own campaigns: %w", ErrForbidden)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete campaign: %w", err)
	}
	return nil
}

func (s *CampaignService) ListByCreator(ctx context.Context, creatorID string) ([]types.Campaign, error) {
	return s.repo.ListByCreator(ctx, creatorID)
}

func (s *CampaignService) ListFeatured(ctx context.Context) ([]types.Campaign, error) {
	return s.repo.ListFeatured(ctx, featuredLimit)
}

// UploadImage stores an image in object storage under a fresh key and
// appends the key to the campaign. Only the owner may upload.
func (s *CampaignService) UploadImage(ctx context.Context, id, userID, filename string, r io.Reader, size int64, contentType string) (string, error) {
	campaign, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("fetch campaign: %w", err)
	}
	if campaign.CreatedBy != userID {
		return "", fmt.Errorf("you can only modify your own campaigns: %w", ErrForbidden)
	}

	key := fmt.Sprintf("campaigns/%s/%s%s", id, uuid.NewString(), path.Ext(filename))
	if err := s.storage.Put(ctx, key, r, size, contentType); err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	if err := s.repo.AppendImage(ctx, id, key); err != nil {
		return "", fmt.Errorf("record image: %w", err)
	}
	return key, nil
}

func campaignSlug(title, id string) string {
	// The first uuid segment keeps slugs unique across equal titles.
	return slug.Make(title) + "-" + id[:8]
}
