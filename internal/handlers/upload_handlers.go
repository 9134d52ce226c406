package handlers

import (
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"srushti-backend/internal/models"
	"srushti-backend/pkg/httputil"
)

// maxUploadBytes caps the whole multipart request body.
const maxUploadBytes = 16 << 20 // 16MB

var allowedImageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

// UploadHandlers handles image-attachment preparation for chat requests.
type UploadHandlers struct{}

// NewUploadHandlers creates a new UploadHandlers.
func NewUploadHandlers() *UploadHandlers {
	return &UploadHandlers{}
}

// HandleUploadImages processes POST /upload_images. Each valid file in the
// `images` multipart field is base64-encoded and returned to the client,
// which passes the attachments back verbatim in the chat request.
func (h *UploadHandlers) HandleUploadImages(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		log.Printf("[UploadHandlers] Failed to parse multipart form: %v", err)
		httputil.RespondError(w, http.StatusBadRequest, "No images provided")
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "No images provided")
		return
	}

	processed := make([]models.ImageAttachment, 0, len(files))
	for _, header := range files {
		ext := strings.ToLower(filepath.Ext(header.Filename))
		if !allowedImageExtensions[ext] {
			continue
		}

		file, err := header.Open()
		if err != nil {
			log.Printf("ERROR [UploadHandlers] Failed to open image %s: %v", header.Filename, err)
			httputil.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("Error processing image %s", header.Filename))
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			log.Printf("ERROR [UploadHandlers] Failed to read image %s: %v", header.Filename, err)
			httputil.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("Error processing image %s", header.Filename))
			return
		}

		mimeType := mime.TypeByExtension(ext)
		if mimeType == "" {
			mimeType = "image/jpeg"
		}

		processed = append(processed, models.ImageAttachment{
			Data:     base64.StdEncoding.EncodeToString(data),
			MimeType: mimeType,
			Filename: filepath.Base(header.Filename),
		})
	}

	if len(processed) == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "No valid images processed")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.UploadImagesResponse{Success: true, Images: processed})
}
