package handlers

import (
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	middleware "github.com/markdave123-py/damage-detector/internal/api/middlewares"
	"github.com/markdave123-py/damage-detector/internal/core/assessment"
	"github.com/markdave123-py/damage-detector/internal/core/tempfile"
	"github.com/markdave123-py/damage-detector/internal/models"
	"github.com/markdave123-py/damage-detector/internal/services"
)

type AssessmentHandler struct {
	assessments *services.AssessmentService
	maxUpload   int64
	tempDir     string
}

// NewAssessmentHandler builds the handler. maxUploadMB bounds every multipart request body.
func NewAssessmentHandler(assessments *services.AssessmentService, maxUploadMB int, tempDir string) *AssessmentHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 32
	}
	return &AssessmentHandler{
		assessments: assessments,
		maxUpload:   int64(maxUploadMB) << 20,
		tempDir:     tempDir,
	}
}

type estimateRequest struct {
	CarType      *string              `json:"car_type"`
	Severity     *string              `json:"severity"`
	DamagedParts *models.DamagedParts `json:"damaged_parts"`
}

// parseUpload limits and parses the multipart body. It reports false after writing an error.
func (h *AssessmentHandler) parseUpload(w http.ResponseWriter, r *http.Request, missingMsg string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorMessage(w, http.StatusRequestEntityTooLarge, "Upload too large")
			return false
		}
		writeErrorMessage(w, http.StatusBadRequest, missingMsg)
		return false
	}
	return true
}

// spool copies an uploaded part to a temp file. Callers must Release it.
func (h *AssessmentHandler) spool(fh *multipart.FileHeader) (*tempfile.File, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if ext == "" {
		ext = ".jpg"
	}
	return tempfile.FromReader(h.tempDir, "upload-*"+ext, src)
}

// singleImage spools the "image" form field. It reports nil after writing an error.
func (h *AssessmentHandler) singleImage(w http.ResponseWriter, r *http.Request) *tempfile.File {
	if !h.parseUpload(w, r, "No image provided") {
		return nil
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["image"]
	if len(files) == 0 {
		writeErrorMessage(w, http.StatusBadRequest, "No image provided")
		return nil
	}

	tf, err := h.spool(files[0])
	if err != nil {
		writeError(w, r, err)
		return nil
	}
	return tf
}

func (h *AssessmentHandler) PredictCar(w http.ResponseWriter, r *http.Request) {
	tf := h.singleImage(w, r)
	if tf == nil {
		return
	}
	defer tf.Release()

	out, err := h.assessments.PredictCar(r.Context(), tf.Path())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AssessmentHandler) PredictSeverity(w http.ResponseWriter, r *http.Request) {
	tf := h.singleImage(w, r)
	if tf == nil {
		return
	}
	defer tf.Release()

	out, err := h.assessments.PredictSeverity(r.Context(), tf.Path())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AssessmentHandler) PredictDamage(w http.ResponseWriter, r *http.Request) {
	tf := h.singleImage(w, r)
	if tf == nil {
		return
	}
	defer tf.Release()

	out, err := h.assessments.PredictDamage(r.Context(), tf.Path())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AssessmentHandler) EstimateCost(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.CarType == nil || req.Severity == nil || req.DamagedParts == nil {
		writeErrorMessage(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	estimate, err := h.assessments.EstimateCost(*req.CarType, *req.Severity, *req.DamagedParts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]models.EstimatedCost{"estimated_cost": estimate})
}

// AnalyzeAssessment runs the multi-image pipeline over the "images" form field.
func (h *AssessmentHandler) AnalyzeAssessment(w http.ResponseWriter, r *http.Request) {
	if !h.parseUpload(w, r, "No images uploaded") {
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		writeErrorMessage(w, http.StatusBadRequest, "No images uploaded")
		return
	}
	if files[0].Filename == "" {
		writeErrorMessage(w, http.StatusBadRequest, "No selected files")
		return
	}

	inputs := make([]assessment.Input, 0, len(files))
	for _, fh := range files {
		tf, err := h.spool(fh)
		if err != nil {
			writeError(w, r, err)
			return
		}
		defer tf.Release()
		inputs = append(inputs, assessment.Input{Filename: fh.Filename, Path: tf.Path()})
	}

	if userID, ok := middleware.UserIDFromContext(r.Context()); ok {
		log.Printf("analyze_assessment: %d images from user %s", len(inputs), userID)
	}

	report, err := h.assessments.Analyze(r.Context(), inputs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
