package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tessling/optic-api/internal/api/shared"
	"github.com/tessling/optic-api/internal/domain"
	"github.com/tessling/optic-api/internal/service"
)

// uploadFormField is the multipart form field carrying the image bytes.
const uploadFormField = "image"

// UploadResponse represents the response for an accepted upload
type UploadResponse struct {
	ImageID string `json:"imageId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// DeleteResponse represents the response for a successful deletion
type DeleteResponse struct {
	Message string `json:"message"`
}

// ImageHandler handles image-related HTTP requests
type ImageHandler struct {
	imageService service.ImageService
	maxBodyBytes int64
}

// NewImageHandler creates a new ImageHandler. maxBodyBytes bounds how much
// of a multipart body is accepted; payloads over it are rejected before
// the upload policy ever sees them.
func NewImageHandler(imageService service.ImageService, maxBodyBytes int64) *ImageHandler {
	return &ImageHandler{
		imageService: imageService,
		maxBodyBytes: maxBodyBytes,
	}
}

// UploadImage handles POST /api/images/upload requests
func (h *ImageHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	// Reject oversized bodies before buffering them
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			shared.RespondWithError(w, r, http.StatusRequestEntityTooLarge, "Image exceeds the upload size limit")
			return
		}
		shared.RespondWithError(w, r, http.StatusBadRequest, "No image file provided")
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			slog.Warn("failed to close upload file", "error", closeErr)
		}
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			shared.RespondWithError(w, r, http.StatusRequestEntityTooLarge, "Image exceeds the upload size limit")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Failed to read image data", err)
		return
	}

	ownerID, ok := getOwnerID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	img, err := h.imageService.Upload(r.Context(), ownerID, service.Upload{
		Filename: header.Filename,
		MimeType: mimeType,
		Data:     data,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	// 202 Accepted: recognition happens in the background
	shared.RespondWithJSON(w, r, http.StatusAccepted, UploadResponse{
		ImageID: img.ID.String(),
		Status:  string(img.Status),
		Message: service.MessageAccepted,
	})
}

// GetImageResults handles GET /api/images/{id}/results requests
func (h *ImageHandler) GetImageResults(w http.ResponseWriter, r *http.Request) {
	imageID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	results, err := h.imageService.GetResults(r.Context(), imageID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	// Jobs still in flight answer 202 so pollers can distinguish
	// "not done yet" from a final answer without parsing the body
	status := http.StatusOK
	if results.Status == domain.ImageStatusPending || results.Status == domain.ImageStatusProcessing {
		status = http.StatusAccepted
	}

	shared.RespondWithJSON(w, r, status, results)
}

// ListUserImages handles GET /api/users/{userID}/images requests
func (h *ImageHandler) ListUserImages(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "userID")
	if ownerID == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "User ID is required")
		return
	}

	limit := getQueryLimit(r, "limit")

	summaries, err := h.imageService.ListForOwner(r.Context(), ownerID, limit)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, summaries)
}

// DeleteImage handles DELETE /api/images/{id} requests
func (h *ImageHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	imageID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	ownerID, ok := getOwnerID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	if err := h.imageService.Delete(r.Context(), imageID, ownerID); err != nil {
		if errors.Is(err, service.ErrNotOwned) {
			// Cross-owner deletions are worth noticing in the logs
			shared.RespondWithErrorAndLog(w, r, http.StatusForbidden,
				GetSafeErrorMessage(err), err, shared.WithElevatedLogLevel())
			return
		}
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, DeleteResponse{
		Message: "Image deleted successfully.",
	})
}

// GetStats handles GET /api/stats requests
func (h *ImageHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.imageService.Stats(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, counts)
}
