package http

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/service"
	"github.com/gin-gonic/gin"
)

// ListTypes returns every experiment type
func (h *Handler) ListTypes(c *gin.Context) {
	types, err := h.catalog.ListTypes(c.Request.Context())
	if err != nil {
		fail(c, "ListTypes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": types})
}

// CreateType registers a new experiment type
func (h *Handler) CreateType(c *gin.Context) {
	var in service.CreateTypeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "name and data_columns are required")
		return
	}

	et, err := h.catalog.CreateType(c.Request.Context(), in)
	if err != nil {
		fail(c, "CreateType", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "experiment type created", "data": et})
}

// DeleteType removes a type with all of its datasets
func (h *Handler) DeleteType(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteType(c.Request.Context(), id); err != nil {
		fail(c, "DeleteType", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "experiment type deleted"})
}

// ListDatasets returns the datasets of a type with statistics
func (h *Handler) ListDatasets(c *gin.Context) {
	typeID, ok := parseID(c, "id")
	if !ok {
		return
	}
	list, err := h.registry.List(c.Request.Context(), typeID)
	if err != nil {
		fail(c, "ListDatasets", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": list})
}

// DatasetInfo returns one dataset and its stored rows summary
func (h *Handler) DatasetInfo(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	info, err := h.registry.Info(c.Request.Context(), id)
	if err != nil {
		fail(c, "DatasetInfo", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": info})
}

// SetHistorical toggles whether a dataset feeds the envelope
func (h *Handler) SetHistorical(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var body struct {
		IsHistorical *bool `json:"is_historical" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "is_historical is required")
		return
	}

	d, err := h.registry.SetHistorical(c.Request.Context(), id, *body.IsHistorical)
	if err != nil {
		fail(c, "SetHistorical", err)
		return
	}
	msg := "dataset removed from historical data"
	if d.IsHistorical {
		msg = "dataset marked as historical data"
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg, "data": d})
}

// DeleteDataset permanently removes a dataset
func (h *Handler) DeleteDataset(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.registry.Delete(c.Request.Context(), id); err != nil {
		fail(c, "DeleteDataset", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "dataset deleted"})
}

// Preview validates a file against the type without storing it
func (h *Handler) Preview(c *gin.Context) {
	typeID, ok := parseID(c, "id")
	if !ok {
		return
	}
	fh, ok := h.formFile(c)
	if !ok {
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, "failed to read uploaded file")
		return
	}
	defer f.Close()

	p, err := h.registry.Preview(c.Request.Context(), typeID, fh.Filename, f)
	if err != nil {
		fail(c, "Preview", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "preview": p})
}

// Upload stores a new dataset
func (h *Handler) Upload(c *gin.Context) {
	typeID, ok := parseID(c, "id")
	if !ok {
		return
	}
	fh, ok := h.formFile(c)
	if !ok {
		return
	}
	dataName := strings.TrimSpace(c.PostForm("data_name"))
	if dataName == "" {
		badRequest(c, "data_name is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, "failed to read uploaded file")
		return
	}
	defer f.Close()

	d, err := h.registry.Upload(c.Request.Context(), typeID, fh.Filename, f, dataName)
	if err != nil {
		fail(c, "Upload", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "data uploaded",
		"data_id": d.ID,
	})
}

// formFile bounds the body size and extracts the "file" part
func (h *Handler) formFile(c *gin.Context) (*multipart.FileHeader, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "message": "file too large"})
			return nil, false
		}
		badRequest(c, "no file uploaded")
		return nil, false
	}
	if fh.Filename == "" {
		badRequest(c, "no file selected")
		return nil, false
	}
	return fh, true
}
