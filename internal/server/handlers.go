package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"wealth-tracker-go/internal/assets"
)

// maxScreenshotBytes bounds the uploaded image size.
const maxScreenshotBytes = 16 << 20

func (s *Server) listAssetsHandler(w http.ResponseWriter, r *http.Request, userID string) {
	result, err := s.service.ListAssets(r.Context(), userID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) createAssetHandler(w http.ResponseWriter, r *http.Request, userID string) {
	var in assets.CreateAssetInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	asset, err := s.service.CreateAsset(r.Context(), userID, in)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

func (s *Server) updateAssetHandler(w http.ResponseWriter, r *http.Request, userID string) {
	var in assets.UpdateAssetInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	asset, err := s.service.UpdateAsset(r.Context(), userID, r.PathValue("id"), in)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

func (s *Server) deleteAssetHandler(w http.ResponseWriter, r *http.Request, userID string) {
	if err := s.service.DeleteAsset(r.Context(), userID, r.PathValue("id")); err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Asset deleted successfully"})
}

func (s *Server) batchDeleteHandler(w http.ResponseWriter, r *http.Request, userID string) {
	var req struct {
		AssetIDs []string `json:"asset_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	deleted, err := s.service.BatchDeleteAssets(r.Context(), userID, req.AssetIDs)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Successfully deleted %d assets", deleted),
	})
}

func (s *Server) refreshAssetHandler(w http.ResponseWriter, r *http.Request, userID string) {
	asset, err := s.service.RefreshAsset(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

func (s *Server) refreshAllHandler(w http.ResponseWriter, r *http.Request, userID string) {
	result, err := s.service.RefreshAllAssets(r.Context(), userID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) overviewHandler(w http.ResponseWriter, r *http.Request, userID string) {
	overview, err := s.service.Overview(r.Context(), userID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) rebalancingHandler(w http.ResponseWriter, r *http.Request, userID string) {
	resp, err := s.service.RebalancingSuggestions(r.Context(), userID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) dailyReportHandler(w http.ResponseWriter, r *http.Request, userID string) {
	report, err := s.service.DailyReport(r.Context(), userID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) importScreenshotHandler(w http.ResponseWriter, r *http.Request, userID string) {
	if err := r.ParseMultipartForm(maxScreenshotBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field missing")
		return
	}
	defer file.Close()

	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
		writeError(w, http.StatusBadRequest, "File must be an image")
		return
	}

	image, err := io.ReadAll(io.LimitReader(file, maxScreenshotBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	imported, err := s.service.ImportScreenshot(r.Context(), userID, image)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, imported)
}

// serviceError maps service-level errors onto the API's status codes.
func (s *Server) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, assets.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, assets.ErrInvalidAssetType):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, assets.ErrNoCandidates):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, assets.ErrPriceUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
