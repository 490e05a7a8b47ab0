package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lovestory/apiserver/internal/services"
	"github.com/lovestory/apiserver/internal/store"
	"github.com/lovestory/apiserver/types"
)

// StoryHandler provides HTTP handlers for travel stories.
type StoryHandler struct {
	storyService *services.StoryService
	mediaService *services.MediaService
}

// NewStoryHandler constructs a handler with the provided services.
func NewStoryHandler(storyService *services.StoryService, mediaService *services.MediaService) *StoryHandler {
	return &StoryHandler{
		storyService: storyService,
		mediaService: mediaService,
	}
}

// StoryRouter registers the story routes on the given router. All story
// routes are protected.
func StoryRouter(
	r chi.Router,
	storyService *services.StoryService,
	mediaService *services.MediaService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewStoryHandler(storyService, mediaService)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/add-travel-story", handler.AddStory)
		r.Get("/get-all-story", handler.ListStories)
		r.Put("/edit-story/{storyID}", handler.EditStory)
		r.Delete("/delete-story/{storyID}", handler.DeleteStory)
		r.Put("/update-is-favourite/{storyID}", handler.UpdateIsFavourite)
		r.Get("/search", handler.SearchStories)
		r.Get("/travel-stories/filter", handler.FilterStories)
	})
}

// AddStory creates a new story owned by the caller.
func (h *StoryHandler) AddStory(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	req, err := parseStoryRequest(r, false)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.storyService.Create(r.Context(), types.Story{
		Title:           req.Title,
		Story:           req.Story,
		VisitedLocation: req.VisitedLocation,
		VisitedDate:     time.UnixMilli(req.VisitedDate).UTC(),
		ImageURL:        req.ImageURL,
		UserID:          ownerID,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to save story")
		return
	}

	writeJSON(w, http.StatusCreated, StoryResponse{Story: created, Message: "added successfully"})
}

// ListStories returns all stories owned by the caller, favourites first.
func (h *StoryHandler) ListStories(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	stories, err := h.storyService.ListByOwner(r.Context(), ownerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list stories")
		return
	}

	writeJSON(w, http.StatusOK, StoriesResponse{Stories: emptyIfNil(stories)})
}

// EditStory replaces the mutable fields of an owned story. A missing
// imageUrl falls back to the placeholder image.
func (h *StoryHandler) EditStory(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	req, err := parseStoryRequest(r, true)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ImageURL == "" {
		req.ImageURL = h.mediaService.PlaceholderURL()
	}

	updated, err := h.storyService.Update(r.Context(), chi.URLParam(r, "storyID"), ownerID, types.Story{
		Title:           req.Title,
		Story:           req.Story,
		VisitedLocation: req.VisitedLocation,
		VisitedDate:     time.UnixMilli(req.VisitedDate).UTC(),
		ImageURL:        req.ImageURL,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "story not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update story")
		return
	}

	writeJSON(w, http.StatusOK, StoryResponse{Story: updated, Message: "update successful"})
}

// DeleteStory removes an owned story and best-effort deletes its image.
func (h *StoryHandler) DeleteStory(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "storyID")
	story, err := h.storyService.Get(r.Context(), id, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "story not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete story")
		return
	}

	if err := h.storyService.Delete(r.Context(), id, ownerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "story not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete story")
		return
	}

	// Image deletion never blocks story deletion.
	if story.ImageURL != "" {
		if err := h.mediaService.Delete(r.Context(), story.ImageURL); err != nil {
			log.Printf("failed to delete image %s: %v", story.ImageURL, err)
		}
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "story deleted successfully"})
}

// UpdateIsFavourite sets the favourite flag on an owned story.
func (h *StoryHandler) UpdateIsFavourite(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req FavouriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	updated, err := h.storyService.SetFavourite(r.Context(), chi.URLParam(r, "storyID"), ownerID, req.IsFavourite)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "story not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update story")
		return
	}

	writeJSON(w, http.StatusOK, StoryResponse{Story: updated, Message: "update successful"})
}

// SearchStories returns the caller's stories matching the query.
func (h *StoryHandler) SearchStories(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeError(w, http.StatusNotFound, "query is required")
		return
	}

	stories, err := h.storyService.Search(r.Context(), ownerID, query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to search stories")
		return
	}

	writeJSON(w, http.StatusOK, StoriesResponse{Stories: emptyIfNil(stories)})
}

// FilterStories returns the caller's stories with visitedDate inside the
// inclusive [startDate, endDate] range.
func (h *StoryHandler) FilterStories(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	start, err := parseEpochMillis(r.URL.Query().Get("startDate"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start date")
		return
	}
	end, err := parseEpochMillis(r.URL.Query().Get("endDate"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end date")
		return
	}

	stories, err := h.storyService.FilterByDate(r.Context(), ownerID, start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to filter stories")
		return
	}

	writeJSON(w, http.StatusOK, StoriesResponse{Stories: emptyIfNil(stories)})
}

// StoryUpsertRequest is the JSON body for adding and editing stories.
// VisitedDate is epoch milliseconds.
type StoryUpsertRequest struct {
	Title           string   `json:"title"`
	Story           string   `json:"story"`
	VisitedLocation []string `json:"visitedLocation"`
	ImageURL        string   `json:"imageUrl"`
	VisitedDate     int64    `json:"visitedDate"`
}

type FavouriteRequest struct {
	IsFavourite bool `json:"isFavourite"`
}

type StoryResponse struct {
	Story   types.Story `json:"story"`
	Message string      `json:"message"`
}

type StoriesResponse struct {
	Stories []types.Story `json:"stories"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func parseStoryRequest(r *http.Request, imageOptional bool) (StoryUpsertRequest, error) {
	var req StoryUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return StoryUpsertRequest{}, errors.New("invalid request")
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Story = strings.TrimSpace(req.Story)
	if req.Title == "" || req.Story == "" || len(req.VisitedLocation) == 0 {
		return StoryUpsertRequest{}, errors.New("all fields are required")
	}
	if !imageOptional && req.ImageURL == "" {
		return StoryUpsertRequest{}, errors.New("all fields are required")
	}
	// Dates are validated rather than silently coerced.
	if req.VisitedDate <= 0 {
		return StoryUpsertRequest{}, errors.New("invalid visited date")
	}
	return req, nil
}

func parseEpochMillis(raw string) (time.Time, error) {
	millis, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || millis < 0 {
		return time.Time{}, errors.New("invalid epoch milliseconds")
	}
	return time.UnixMilli(millis).UTC(), nil
}

func emptyIfNil(stories []types.Story) []types.Story {
	if stories == nil {
		return []types.Story{}
	}
	return stories
}
