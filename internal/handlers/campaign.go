package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/greyfundr/back-end/internal/services"
	"github.com/greyfundr/back-end/types"
)

const maxImageBytes = 16 << 20

// CampaignHandler provides HTTP handlers for campaigns and donations.
type CampaignHandler struct {
	campaignService *services.CampaignService
	donationService *services.DonationService
}

// NewCampaignHandler constructs a handler with the provided services.
func NewCampaignHandler(campaignService *services.CampaignService, donationService *services.DonationService) *CampaignHandler {
	return &CampaignHandler{
		campaignService: campaignService,
		donationService: donationService,
	}
}

// CampaignRouter registers campaign routes on the given router.
func CampaignRouter(
	r chi.Router,
	campaignService *services.CampaignService,
	donationService *services.DonationService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewCampaignHandler(campaignService, donationService)

	r.Get("/", handler.ListCampaigns)
	r.Get("/featured", handler.ListFeatured)
	r.With(authMiddleware).Get("/my-campaigns", handler.ListMine)
	r.With(authMiddleware).Post("/", handler.CreateCampaign)
	r.Route("/{campaignID}", func(r chi.Router) {
		r.Get("/", handler.GetCampaign)
		r.With(authMiddleware).Patch("/", handler.UpdateCampaign)
		r.With(authMiddleware).Delete("/", handler.DeleteCampaign)
		r.With(authMiddleware).Post("/images", handler.UploadImage)
		r.With(authMiddleware).Post("/donate", handler.Donate)
	})
}

// CampaignListResponse is the paginated list response payload.
type CampaignListResponse struct {
	Items []types.Campaign `json:"items"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
	Total int              `json:"total"`
}

func (h *CampaignHandler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := r.URL.Query()
	req := services.ListRequest{
		Status:   strings.TrimSpace(query.Get("status")),
		Category: strings.TrimSpace(query.Get("category")),
		Search:   strings.TrimSpace(query.Get("search")),
	}
	raw := strings.TrimSpace(query.Get("is_featured"))
	if raw == "" {
		raw = strings.TrimSpace(query.Get("isFeatured"))
	}
	if raw != "" {
		featured := raw == "true"
		req.IsFeatured = &featured
	}

	items, total, err := h.campaignService.List(r.Context(), req, offset, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list campaigns")
		return
	}

	writeJSON(w, http.StatusOK, CampaignListResponse{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *CampaignHandler) ListFeatured(w http.ResponseWriter, r *http.Request) {
	items, err := h.campaignService.ListFeatured(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list featured campaigns")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *CampaignHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	items, err := h.campaignService.ListByCreator(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list campaigns")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *CampaignHandler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "campaignID")

	campaign, err := h.campaignService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, "campaign not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch campaign")
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (h *CampaignHandler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req services.CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	created, err := h.campaignService.Create(r.Context(), req, identity.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *CampaignHandler) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req services.UpdateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	updated, err := h.campaignService.Update(r.Context(), chi.URLParam(r, "campaignID"), req, identity.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *CampaignHandler) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.campaignService.Delete(r.Context(), chi.URLParam(r, "campaignID"), identity.UserID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage accepts a multipart image upload for a campaign.
func (h *CampaignHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	if header.Size > maxImageBytes {
		writeError(w, http.StatusBadRequest, "image too large")
		return
	}

	key, err := h.campaignService.UploadImage(
		r.Context(),
		chi.URLParam(r, "campaignID"),
		identity.UserID,
		header.Filename,
		file,
		header.Size,
		header.Header.Get("Content-Type"),
	)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

// DonateRequest carries a donation amount in minor currency units.
type DonateRequest struct {
	Amount  int64  `json:"amount"`
	Message string `json:"message"`
}

// Donate accepts a donation and queues it for accounting.
func (h *CampaignHandler) Donate(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req DonateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	event, err := h.donationService.Donate(r.Context(), chi.URLParam(r, "campaignID"), identity.UserID, req.Amount, req.Message)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, event)
}
