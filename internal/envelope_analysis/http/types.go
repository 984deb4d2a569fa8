package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/service"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/logging"
	"github.com/gin-gonic/gin"
)

// Catalog is the experiment type surface used by the handlers
type Catalog interface {
	ListTypes(ctx context.Context) ([]domain.ExperimentType, error)
	CreateType(ctx context.Context, in service.CreateTypeInput) (*domain.ExperimentType, error)
	DeleteType(ctx context.Context, id int64) error
	EnvelopeInfo(ctx context.Context, id int64) (*domain.EnvelopeInfo, error)
}

// Registry is the dataset surface used by the handlers
type Registry interface {
	List(ctx context.Context, typeID int64) (*domain.DatasetList, error)
	Info(ctx context.Context, id int64) (*domain.DatasetInfo, error)
	SetHistorical(ctx context.Context, id int64, historical bool) (*domain.ExperimentDataset, error)
	Delete(ctx context.Context, id int64) error
	Preview(ctx context.Context, typeID int64, filename string, r io.Reader) (*domain.FilePreview, error)
	Upload(ctx context.Context, typeID int64, filename string, r io.Reader, dataName string) (*domain.ExperimentDataset, error)
}

// Settings is the envelope settings surface used by the handlers
type Settings interface {
	Get(ctx context.Context, typeID int64) (*domain.EnvelopeSettings, error)
	Save(ctx context.Context, typeID int64, columns []string) (*domain.EnvelopeSettings, error)
}

// Staging is the temp dataset surface used by the handlers
type Staging interface {
	Upload(ctx context.Context, typeID int64, filename string, r io.Reader) (*domain.TempComparisonDataset, error)
	Save(ctx context.Context, typeID int64, in service.SaveTempInput) (*domain.ExperimentDataset, error)
	Delete(ctx context.Context, typeID int64, tempID string) error
}

// Envelopes computes envelopes and comparisons
type Envelopes interface {
	Envelope(ctx context.Context, typeID int64, req service.EnvelopeRequest) (*domain.EnvelopeData, error)
	Compare(ctx context.Context, typeID int64, req service.CompareRequest) (*domain.ComparisonResult, error)
}

// Handler serves the envelope analysis API
type Handler struct {
	catalog   Catalog
	registry  Registry
	settings  Settings
	staging   Staging
	envelopes Envelopes
	maxUpload int64 // bytes
}

// New creates a new Handler. maxUploadMB bounds multipart request bodies.
func New(catalog Catalog, registry Registry, settings Settings, staging Staging, envelopes Envelopes, maxUploadMB int) *Handler {
	if maxUploadMB <= 0 {
		maxUploadMB = 50
	}
	return &Handler{
		catalog:   catalog,
		registry:  registry,
		settings:  settings,
		staging:   staging,
		envelopes: envelopes,
		maxUpload: int64(maxUploadMB) << 20,
	}
}

func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid " + name})
		return 0, false
	}
	return id, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrTypeNotFound),
		errors.Is(err, domain.ErrDatasetNotFound),
		errors.Is(err, domain.ErrTempNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateName):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidColumns),
		errors.Is(err, domain.ErrUnsupportedFile),
		errors.Is(err, domain.ErrNoHistoricalData):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// fail writes the error envelope. Internal errors are logged and not echoed.
func fail(c *gin.Context, operation string, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logging.NewLogger(c.Request.Context()).LogError(operation, err)
		msg = "internal server error"
	}
	c.JSON(status, gin.H{"success": false, "message": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msg})
}
