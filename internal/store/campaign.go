package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/greyfundr/back-end/types"
	"github.com/lib/pq"
)

const campaignColumns = `id, title, slug, description, created_by, goal_amount, current_amount,
		status, category, start_date, end_date, images, video_url, tags,
		is_public, is_featured, view_count, donation_count, bank_details,
		created_at, updated_at`

// CampaignFilter narrows List results. Zero values mean "no filter".
type CampaignFilter struct {
	Status     string
	Category   string
	CreatedBy  string
	Search     string
	IsFeatured *bool
	// IsPublic defaults to "public only" at the service layer for
	// anonymous listings.
	IsPublic *bool
}

// CampaignRepository handles persistence for campaigns.
type CampaignRepository struct {
	db *sql.DB
}

func NewCampaignRepository(db *sql.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

func (r *CampaignRepository) List(ctx context.Context, filter CampaignFilter, offset, limit int) ([]types.Campaign, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	where, args := buildCampaignWhere(filter)

	countQuery := `SELECT COUNT(1) FROM campaigns` + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := `
		SELECT ` + campaignColumns + `
		FROM campaigns` + where + `
		ORDER BY created_at DESC
		OFFSET $` + strconv.Itoa(len(args)+1) + ` LIMIT $` + strconv.Itoa(len(args)+2)
	args = append(args, offset, limit)

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	campaigns := make([]types.Campaign, 0, limit)
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, campaign)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return campaigns, total, nil
}

func (r *CampaignRepository) Get(ctx context.Context, id string) (types.Campaign, error) {
	const query = `
		SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE id = $1`
	return scanCampaign(r.db.QueryRowContext(ctx, query, id))
}

func (r *CampaignRepository) Create(ctx context.Context, campaign types.Campaign) (types.Campaign, error) {
	now := time.Now()
	campaign.CreatedAt = now
	campaign.UpdatedAt = now

	imagesJSON, tagsJSON, bankJSON, err := marshalCampaignJSON(campaign)
	if err != nil {
		return types.Campaign{}, err
	}

	const query = `
		INSERT INTO campaigns (id, title, slug, description, created_by, goal_amount, current_amount,
			status, category, start_date, end_date, images, video_url, tags,
			is_public, is_featured, view_count, donation_count, bank_details, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`
	_, err = r.db.ExecContext(
		ctx,
		query,
		campaign.ID,
		campaign.Title,
		campaign.Slug,
		campaign.Description,
		campaign.CreatedBy,
		campaign.GoalAmount,
		campaign.CurrentAmount,
		campaign.Status,
		campaign.Category,
		campaign.StartDate,
		campaign.EndDate,
		imagesJSON,
		campaign.VideoURL,
		tagsJSON,
		campaign.IsPublic,
		campaign.IsFeatured,
		campaign.ViewCount,
		campaign.DonationCount,
		bankJSON,
		campaign.CreatedAt,
		campaign.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return types.Campaign{}, ErrConflict
		}
		return types.Campaign{}, err
	}
	return campaign, nil
}

func (r *CampaignRepository) Update(ctx context.Context, campaign types.Campaign) (types.Campaign, error) {
	campaign.UpdatedAt = time.Now()

	imagesJSON, tagsJSON, bankJSON, err := marshalCampaignJSON(campaign)
	if err != nil {
		return types.Campaign{}, err
	}

	const query = `
		UPDATE campaigns
		SET title = $1,
			slug = $2,
			description = $3,
			goal_amount = $4,
			status = $5,
			category = $6,
			start_date = $7,
			end_date = $8,
			images = $9,
			video_url = $10,
			tags = $11,
			is_public = $12,
			is_featured = $13,
			bank_details = $14,
			updated_at = $15
		WHERE id = $16`
	result, err := r.db.ExecContext(
		ctx,
		query,
		campaign.Title,
		campaign.Slug,
		campaign.Description,
		campaign.GoalAmount,
		campaign.Status,
		campaign.Category,
		campaign.StartDate,
		campaign.EndDate,
		imagesJSON,
		campaign.VideoURL,
		tagsJSON,
		campaign.IsPublic,
		campaign.IsFeatured,
		bankJSON,
		campaign.UpdatedAt,
		campaign.ID,
	)
	if err != nil {
		return types.Campaign{}, err
	}
	if err := requireAffected(result); err != nil {
		return types.Campaign{}, err
	}
	return campaign, nil
}

func (r *CampaignRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM campaigns WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *CampaignRepository) IncrementViewCount(ctx context.Context, id string) error {
	const query = `UPDATE campaigns SET view_count = view_count + 1 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *CampaignRepository) ListByCreator(ctx context.Context, creatorID string) ([]types.Campaign, error) {
	const query = `
		SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE created_by = $1
		ORDER BY created_at DESC`
	return r.queryMany(ctx, query, creatorID)
}

func (r *CampaignRepository) ListFeatured(ctx context.Context, limit int) ([]types.Campaign, error) {
	if limit < 1 {
		limit = 10
	}
	const query = `
		SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE is_featured = TRUE AND is_public = TRUE AND status = $1
		ORDER BY created_at DESC
		LIMIT $2`
	return r.queryMany(ctx, query, types.CampaignStatusActive, limit)
}

// ApplyDonation atomically adds amount to the running total and bumps
// the donation count in a single statement.
func (r *CampaignRepository) ApplyDonation(ctx context.Context, id string, amount int64) error {
	const query = `
		UPDATE campaigns
		SET current_amount = current_amount + $1,
			donation_count = donation_count + 1,
			updated_at = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, amount, time.Now(), id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// AppendImage appends an object key to the campaign's images array.
func (r *CampaignRepository) AppendImage(ctx context.Context, id, key string) error {
	campaign, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	campaign.Images = append(campaign.Images, key)
	imagesJSON, err := json.Marshal(campaign.Images)
	if err != nil {
		return err
	}
	const query = `
		UPDATE campaigns
		SET images = $1, updated_at = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, imagesJSON, time.Now(), id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *CampaignRepository) queryMany(ctx context.Context, query string, args ...any) ([]types.Campaign, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []types.Campaign
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, campaign)
	}
	return campaigns, rows.Err()
}

func buildCampaignWhere(filter CampaignFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, "status = $"+strconv.Itoa(len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, "category = $"+strconv.Itoa(len(args)))
	}
	if filter.CreatedBy != "" {
		args = append(args, filter.CreatedBy)
		conditions = append(conditions, "created_by = $"+strconv.Itoa(len(args)))
	}
	if filter.IsFeatured != nil {
		args = append(args, *filter.IsFeatured)
		conditions = append(conditions, "is_featured = $"+strconv.Itoa(len(args)))
	}
	if filter.IsPublic != nil {
		args = append(args, *filter.IsPublic)
		conditions = append(conditions, "is_public = $"+strconv.Itoa(len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := strconv.Itoa(len(args))
		conditions = append(conditions, "(title ILIKE $"+n+" OR description ILIKE $"+n+" OR tags::text ILIKE $"+n+")")
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func marshalCampaignJSON(campaign types.Campaign) (images, tags, bank []byte, err error) {
	if campaign.Images == nil {
		campaign.Images = []string{}
	}
	if campaign.Tags == nil {
		campaign.Tags = []string{}
	}
	images, err = json.Marshal(campaign.Images)
	if err != nil {
		return nil, nil, nil, err
	}
	tags, err = json.Marshal(campaign.Tags)
	if err != nil {
		return nil, nil, nil, err
	}
	bank, err = json.Marshal(campaign.BankDetails)
	if err != nil {
		return nil, nil, nil, err
	}
	return images, tags, bank, nil
}

func scanCampaign(row rowScanner) (types.Campaign, error) {
	var campaign types.Campaign
	var imagesJSON, tagsJSON, bankJSON []byte
	err := row.Scan(
		&campaign.ID,
		&campaign.Title,
		&campaign.Slug,
		&campaign.Description,
		&campaign.CreatedBy,
		&campaign.GoalAmount,
		&campaign.CurrentAmount,
		&campaign.Status,
		&campaign.Category,
		&campaign.StartDate,
		&campaign.EndDate,
		&imagesJSON,
		&campaign.VideoURL,
		&tagsJSON,
		&campaign.IsPublic,
		&campaign.IsFeatured,
		&campaign.ViewCount,
		&campaign.DonationCount,
		&bankJSON,
		&campaign.CreatedAt,
		&campaign.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Campaign{}, ErrNotFound
		}
		return types.Campaign{}, err
	}
	_ = json.Unmarshal(imagesJSON, &campaign.Images)
	_ = json.Unmarshal(tagsJSON, &campaign.Tags)
	_ = json.Unmarshal(bankJSON, &campaign.BankDetails)
	return campaign, nil
}
