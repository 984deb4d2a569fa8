package http

import (
	"net/http"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/service"
	"github.com/gin-gonic/gin"
)

// EnvelopeInfo returns the type, its datasets and the saved settings
func (h *Handler) EnvelopeInfo(c *gin.Context) {
	typeID, ok := parseID(c, "id")
	if !ok {
		return
	}
	info, err := h.catalog.EnvelopeInfo(c.Request.Context(), typeID)
	if err != nil {
		fail(c, "EnvelopeInfo", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": info})
}

// GetSettings returns the bare settings record, {} when nothing is saved
func (h *Handler) GetSettings(c *gin.Context) {
	typeID, ok := parseID(c, "id")
	if !ok {
		return
	}
	st, err := h.settings.Get(c.Request.Context(), typeID)
	if err != nil {
		fail(c, "GetSettings", err)
		return
	}
	if st.ID == 0 {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, st)
}

// SaveSettings upserts the column selection
func (h *Handler) SaveSettings(c *gin.Context) {
	typeID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var body struct {
		SelectedColumns []string `json:"selected_columns"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	st, err := h.settings.Save(c.Request.Context(), typeID, body.SelectedColumns)
	if err != nil {
		fail(c, "SaveSettings", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "settings saved", "data": st})
}

// Envelope computes the envelope of the selected columns
func (h *Handler) Envelope(c *gin.Context) {
	typeID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.EnvelopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	env, err := h.envelopes.Envelope(c.Request.Context(), typeID, req)
	if err != nil {
		fail(c, "Envelope", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": env})
}

// TempUpload stages a file for comparison
func (h *Handler) TempUpload(c *gin.Context) {
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

	tmp, err := h.staging.Upload(c.Request.Context(), typeID, fh.Filename, f)
	if err != nil {
		fail(c, "TempUpload", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "comparison data staged", "data": tmp})
}

// Compare returns the envelope and the series of a staged dataset
func (h *Handler) Compare(c *gin.Context) {
	typeID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	res, err := h.envelopes.Compare(c.Request.Context(), typeID, req)
	if err != nil {
		fail(c, "Compare", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": res})
}

// SaveTemp promotes a staged dataset
func (h *Handler) SaveTemp(c *gin.Context) {
	typeID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in service.SaveTempInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "temp_data_id and data_name are required")
		return
	}

	d, err := h.staging.Save(c.Request.Context(), typeID, in)
	if err != nil {
		fail(c, "SaveTemp", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "comparison data saved", "data_id": d.ID})
}

// DeleteTemp discards a staged dataset
func (h *Handler) DeleteTemp(c *gin.Context) {
	typeID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var body struct {
		TempDataID string `json:"temp_data_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "temp_data_id is required")
		return
	}

	if err := h.staging.Delete(c.Request.Context(), typeID, body.TempDataID); err != nil {
		fail(c, "DeleteTemp", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "comparison data discarded"})
}
