package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lovestory/apiserver/internal/services"
)

const (
	maxUploadBytes = 32 << 20
	formFieldImage = "image"
)

// MediaHandler provides image upload, deletion, and serving.
type MediaHandler struct {
	mediaService *services.MediaService
}

// NewMediaHandler constructs a handler with the provided media service.
func NewMediaHandler(mediaService *services.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// MediaRouter registers the media routes on the given router.
func MediaRouter(r chi.Router, mediaService *services.MediaService) {
	handler := NewMediaHandler(mediaService)

	r.Post("/image-upload", handler.UploadImage)
	r.Delete("/delete-image", handler.DeleteImage)
	r.Get("/uploads/{key}", handler.ServeImage)
}

// UploadImage accepts a multipart image and returns its public URL.
func (h *MediaHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "no image uploaded")
		return
	}

	file, header, err := r.FormFile(formFieldImage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "no image uploaded")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusBadRequest, "only images are allowed")
		return
	}

	imageURL, err := h.mediaService.Upload(r.Context(), header.Filename, contentType, file, header.Size)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store image")
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{ImageURL: imageURL})
}

// DeleteImage removes the image behind the imageUrl query parameter.
// Deleting an image that is already absent is not an error.
func (h *MediaHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	imageURL := strings.TrimSpace(r.URL.Query().Get("imageUrl"))
	if imageURL == "" {
		writeError(w, http.StatusBadRequest, "imageUrl parameter is required")
		return
	}

	if err := h.mediaService.Delete(r.Context(), imageURL); err != nil {
		log.Printf("failed to delete image %s: %v", imageURL, err)
		writeError(w, http.StatusInternalServerError, "failed to delete image")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "image deleted successfully"})
}

// ServeImage streams a stored image back to the client.
func (h *MediaHandler) ServeImage(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	reader, contentType, err := h.mediaService.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, services.ErrObjectNotFound) {
			writeError(w, http.StatusNotFound, "image not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load image")
		return
	}
	defer reader.Close()

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	if _, err := io.Copy(w, reader); err != nil {
		log.Printf("failed to stream image %s: %v", key, err)
	}
}

// UploadResponse is the payload returned by a successful upload.
type UploadResponse struct {
	ImageURL string `json:"imageUrl"`
}
