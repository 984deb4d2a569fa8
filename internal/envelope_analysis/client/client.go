// Package client is a typed client for the envelope analysis API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
)

// DefaultTimeout bounds every request unless overridden
const DefaultTimeout = 60 * time.Second

// Client talks to the envelope analysis backend. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a client for the API rooted at baseURL (without the /api suffix)
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiResponse is the {success, data?, message?} wrapper
type apiResponse struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	DataID  int64           `json:"data_id"`
	Preview json.RawMessage `json:"preview"`
}

type call struct {
	op          string
	method      string
	path        string
	body        io.Reader
	contentType string
	notFound    error
}

// send performs the request and returns the raw body of a successful answer.
func (c *Client) send(ctx context.Context, cl call) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+"/api"+cl.path, cl.body)
	if err != nil {
		return nil, &TransportError{Op: cl.op, Err: err}
	}
	if cl.contentType != "" {
		req.Header.Set("Content-Type", cl.contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: cl.op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: cl.op, Err: fmt.Errorf("read response: %w", err)}
	}

	var wrapper apiResponse
	decodeErr := json.Unmarshal(raw, &wrapper)
	if resp.StatusCode >= 400 {
		return nil, newAPIError(resp.StatusCode, wrapper.Message, cl.notFound)
	}
	if decodeErr != nil {
		return nil, &TransportError{Op: cl.op, Err: fmt.Errorf("decode response: %w", decodeErr)}
	}
	if wrapper.Success != nil && !*wrapper.Success {
		return nil, newAPIError(resp.StatusCode, wrapper.Message, cl.notFound)
	}
	return raw, nil
}

// do sends a call and decodes the wrapper
func (c *Client) do(ctx context.Context, cl call) (*apiResponse, error) {
	raw, err := c.send(ctx, cl)
	if err != nil {
		return nil, err
	}
	var wrapper apiResponse
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, &TransportError{Op: cl.op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return &wrapper, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, body any, notFound error) (*apiResponse, error) {
	cl := call{op: op, method: method, path: path, notFound: notFound}
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s request: %w", op, err)
		}
		cl.body = bytes.NewReader(buf)
		cl.contentType = "application/json"
	}
	return c.do(ctx, cl)
}

func (c *Client) doMultipart(ctx context.Context, op, path string, f File, fields map[string]string, notFound error) (*apiResponse, error) {
	if err := validateRequest(f); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("write field %s: %w", k, err)
		}
	}
	part, err := w.CreateFormFile("file", f.Name)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f.Content); err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}
	return c.do(ctx, call{
		op:          op,
		method:      http.MethodPost,
		path:        path,
		body:        &buf,
		contentType: w.FormDataContentType(),
		notFound:    notFound,
	})
}

func decodeData[T any](op string, raw json.RawMessage) (*T, error) {
	var out T
	if len(raw) == 0 || string(raw) == "null" {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("response has no data")}
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("decode data: %w", err)}
	}
	return &out, nil
}

// ListTypes returns every experiment type
func (c *Client) ListTypes(ctx context.Context) ([]domain.ExperimentType, error) {
	resp, err := c.doJSON(ctx, "list types", http.MethodGet, "/experiment-types", nil, domain.ErrTypeNotFound)
	if err != nil {
		return nil, err
	}
	out, err := decodeData[[]domain.ExperimentType]("list types", resp.Data)
	if err != nil {
		return nil, err
	}
	return *out, nil
}

// CreateType registers an experiment type
func (c *Client) CreateType(ctx context.Context, req CreateTypeRequest) (*domain.ExperimentType, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	resp, err := c.doJSON(ctx, "create type", http.MethodPost, "/experiment-types", req, domain.ErrTypeNotFound)
	if err != nil {
		return nil, err
	}
	return decodeData[domain.ExperimentType]("create type", resp.Data)
}

// DeleteType removes a type and all of its datasets
func (c *Client) DeleteType(ctx context.Context, id int64) error {
	_, err := c.doJSON(ctx, "delete type", http.MethodDelete, fmt.Sprintf("/experiment-types/%d", id), nil, domain.ErrTypeNotFound)
	return err
}

// ListDatasets returns the datasets of a type, newest first
func (c *Client) ListDatasets(ctx context.Context, typeID int64) (*domain.DatasetList, error) {
	resp, err := c.doJSON(ctx, "list datasets", http.MethodGet, fmt.Sprintf("/experiment-data/%d", typeID), nil, domain.ErrTypeNotFound)
	if err != nil {
		return nil, err
	}
	return decodeData[domain.DatasetList]("list datasets", resp.Data)
}

// DatasetInfo returns one dataset
func (c *Client) DatasetInfo(ctx context.Context, id int64) (*domain.DatasetInfo, error) {
	resp, err := c.doJSON(ctx, "dataset info", http.MethodGet, fmt.Sprintf("/experiment-data/%d/info", id), nil, domain.ErrDatasetNotFound)
	if err != nil {
		return nil, err
	}
	return decodeData[domain.DatasetInfo]("dataset info", resp.Data)
}

// SetHistorical flags a dataset in or out of the envelope corpus
func (c *Client) SetHistorical(ctx context.Context, id int64, historical bool) error {
	_, err := c.doJSON(ctx, "set historical", http.MethodPost, fmt.Sprintf("/experiment-data/%d/historical", id),
		historicalRequest{IsHistorical: historical}, domain.ErrDatasetNotFound)
	return err
}

// DeleteDataset permanently removes a dataset
func (c *Client) DeleteDataset(ctx context.Context, id int64) error {
	_, err := c.doJSON(ctx, "delete dataset", http.MethodDelete, fmt.Sprintf("/experiment-data/%d", id), nil, domain.ErrDatasetNotFound)
	return err
}

// PreviewFile validates a file against a type without storing it
func (c *Client) PreviewFile(ctx context.Context, typeID int64, f File) (*domain.FilePreview, error) {
	resp, err := c.doMultipart(ctx, "preview file", fmt.Sprintf("/preview/%d", typeID), f, nil, domain.ErrTypeNotFound)
	if err != nil {
		return nil, err
	}
	return decodeData[domain.FilePreview]("preview file", resp.Preview)
}

// UploadData stores a new dataset and returns its id
func (c *Client) UploadData(ctx context.Context, typeID int64, f File, dataName string) (int64, error) {
	dataName = strings.TrimSpace(dataName)
	if dataName == "" {
		return 0, fmt.Errorf("%w: data_name is required", domain.ErrValidation)
	}
	resp, err := c.doMultipart(ctx, "upload data", fmt.Sprintf("/upload/%d", typeID), f,
		map[string]string{"data_name": dataName}, domain.ErrTypeNotFound)
	if err != nil {
		return 0, err
	}
	return resp.DataID, nil
}

// EnvelopeInfo returns the type, its datasets and the saved settings
func (c *Client) EnvelopeInfo(ctx context.Context, typeID int64) (*domain.EnvelopeInfo, error) {
	resp, err := c.doJSON(ctx, "envelope info", http.MethodGet, fmt.Sprintf("/envelope/%d/info", typeID), nil, domain.ErrTypeNotFound)
	if err != nil {
		return nil, err
	}
	return decodeData[domain.EnvelopeInfo]("envelope info", resp.Data)
}

// GetSettings returns the saved selection, an empty record when none is saved
func (c *Client) GetSettings(ctx context.Context, typeID int64) (*domain.EnvelopeSettings, error) {
	raw, err := c.send(ctx, call{
		op:       "get settings",
		method:   http.MethodGet,
		path:     fmt.Sprintf("/envelope/%d/settings", typeID),
		notFound: domain.ErrTypeNotFound,
	})
	if err != nil {
		return nil, err
	}
	var st domain.EnvelopeSettings
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, &TransportError{Op: "get settings", Err: fmt.Errorf("decode settings: %w", err)}
	}
	if st.SelectedColumns == nil {
		st.SelectedColumns = []string{}
	}
	return &st, nil
}

// SaveSettings upserts the selection of a type
func (c *Client) SaveSettings(ctx context.Context, typeID int64, columns []string) error {
	req := settingsRequest{SelectedColumns: columns}
	if req.SelectedColumns == nil {
		req.SelectedColumns = []string{}
	}
	if err := validateRequest(req); err != nil {
		return err
	}
	_, err := c.doJSON(ctx, "save settings", http.MethodPost, fmt.Sprintf("/envelope/%d/settings", typeID), req, domain.ErrTypeNotFound)
	return err
}

// GetEnvelopeData fetches the envelope of a non-empty selection
func (c *Client) GetEnvelopeData(ctx context.Context, typeID int64, req EnvelopeRequest) (*domain.EnvelopeData, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	resp, err := c.doJSON(ctx, "get envelope", http.MethodPost, fmt.Sprintf("/envelope/%d/envelope", typeID), req, domain.ErrTypeNotFound)
	if err != nil {
		return nil, err
	}
	return decodeData[domain.EnvelopeData]("get envelope", resp.Data)
}

// UploadTempComparisonData stages a file for comparison
func (c *Client) UploadTempComparisonData(ctx context.Context, typeID int64, f File) (*domain.TempComparisonDataset, error) {
	resp, err := c.doMultipart(ctx, "temp upload", fmt.Sprintf("/envelope/%d/temp-upload", typeID), f, nil, domain.ErrTypeNotFound)
	if err != nil {
		return nil, err
	}
	return decodeData[domain.TempComparisonDataset]("temp upload", resp.Data)
}

// CompareEnvelopeData returns the envelope and the temp dataset's series.
// A stale temp id fails with an error matching domain.ErrTempNotFound.
func (c *Client) CompareEnvelopeData(ctx context.Context, typeID int64, req CompareRequest) (*domain.ComparisonResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	resp, err := c.doJSON(ctx, "compare", http.MethodPost, fmt.Sprintf("/envelope/%d/compare", typeID), req, domain.ErrTempNotFound)
	if err != nil {
		return nil, err
	}
	return decodeData[domain.ComparisonResult]("compare", resp.Data)
}

// SaveTempData promotes a temp dataset and returns the new dataset id
func (c *Client) SaveTempData(ctx context.Context, typeID int64, req SaveTempRequest) (int64, error) {
	req.DataName = strings.TrimSpace(req.DataName)
	if err := validateRequest(req); err != nil {
		return 0, err
	}
	resp, err := c.doJSON(ctx, "save temp", http.MethodPost, fmt.Sprintf("/envelope/%d/save-temp", typeID), req, domain.ErrTempNotFound)
	if err != nil {
		return 0, err
	}
	return resp.DataID, nil
}

// DeleteTempData discards a temp dataset
func (c *Client) DeleteTempData(ctx context.Context, typeID int64, tempID string) error {
	req := deleteTempRequest{TempDataID: tempID}
	if err := validateRequest(req); err != nil {
		return err
	}
	_, err := c.doJSON(ctx, "delete temp", http.MethodPost, fmt.Sprintf("/envelope/%d/delete-temp", typeID), req, domain.ErrTempNotFound)
	return err
}
