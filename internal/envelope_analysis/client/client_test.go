package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/client"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, mux *http.ServeMux) (*client.Client, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return client.New(srv.URL + "/"), &hits
}

func reply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func TestListTypes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/experiment-types", reply(200, `{"success":true,"data":[{"id":1,"name":"pressure","time_column":"t","data_columns":["a"]}]}`))
	c, _ := newServer(t, mux)

	types, err := c.ListTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "pressure", types[0].Name)
	assert.Equal(t, []string{"a"}, types[0].DataColumns)
}

func TestErrorMapping(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/envelope/1/compare", reply(404, `{"success":false,"message":"temp data not found or expired"}`))
	mux.HandleFunc("POST /api/experiment-types", reply(409, `{"success":false,"message":"experiment type name already exists"}`))
	mux.HandleFunc("GET /api/experiment-data/7/info", reply(500, `oops`))
	mux.HandleFunc("DELETE /api/experiment-data/7", reply(200, `{"success":false,"message":""}`))
	mux.HandleFunc("GET /api/envelope/1/info", reply(200, `not json`))
	c, _ := newServer(t, mux)
	ctx := context.Background()

	_, err := c.CompareEnvelopeData(ctx, 1, client.CompareRequest{SelectedColumns: []string{"a"}, TempDataID: "temp_x"})
	assert.ErrorIs(t, err, domain.ErrTempNotFound)
	assert.Equal(t, "temp data not found or expired", client.Message(err))

	_, err = c.CreateType(ctx, client.CreateTypeRequest{Name: "pressure", DataColumns: []string{"a"}})
	assert.ErrorIs(t, err, domain.ErrDuplicateName)

	_, err = c.DatasetInfo(ctx, 7)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 500, apiErr.Status)
	assert.Equal(t, client.GenericFailure, client.Message(err))

	err = c.DeleteDataset(ctx, 7)
	assert.Equal(t, client.GenericFailure, client.Message(err))

	_, err = c.EnvelopeInfo(ctx, 1)
	var tErr *client.TransportError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, client.TransportFailure, client.Message(err))
}

func TestCompare_NotFoundNamesTheMissingResource(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/envelope/9/compare", reply(404, `{"success":false,"message":"experiment type not found"}`))
	mux.HandleFunc("POST /api/envelope/1/compare", reply(404, `{"success":false,"message":"table temp_x: temp data not found or expired"}`))
	mux.HandleFunc("POST /api/envelope/2/compare", reply(404, `404 page not found`))
	c, _ := newServer(t, mux)
	ctx := context.Background()
	req := client.CompareRequest{SelectedColumns: []string{"a"}, TempDataID: "temp_x"}

	_, err := c.CompareEnvelopeData(ctx, 9, req)
	assert.ErrorIs(t, err, domain.ErrTypeNotFound)
	assert.NotErrorIs(t, err, domain.ErrTempNotFound)

	_, err = c.CompareEnvelopeData(ctx, 1, req)
	assert.ErrorIs(t, err, domain.ErrTempNotFound)

	// no server message: the endpoint's usual meaning
	_, err = c.CompareEnvelopeData(ctx, 2, req)
	assert.ErrorIs(t, err, domain.ErrTempNotFound)
	assert.Equal(t, client.GenericFailure, client.Message(err))
}

func TestValidationBeforeNetwork(t *testing.T) {
	c, hits := newServer(t, http.NewServeMux())
	ctx := context.Background()

	_, err := c.GetEnvelopeData(ctx, 1, client.EnvelopeRequest{})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "selected_columns")

	_, err = c.GetEnvelopeData(ctx, 1, client.EnvelopeRequest{SelectedColumns: []string{"a"}, SamplingPoints: client.Int(0)})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = c.CreateType(ctx, client.CreateTypeRequest{Name: "  ", DataColumns: []string{"a"}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = c.SaveTempData(ctx, 1, client.SaveTempRequest{TempDataID: "temp_x", DataName: " "})
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.ErrorIs(t, c.DeleteTempData(ctx, 1, ""), domain.ErrValidation)

	_, err = c.UploadData(ctx, 1, client.File{Name: "run.csv", Content: strings.NewReader("t,a\n")}, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = c.UploadTempComparisonData(ctx, 1, client.File{Name: "", Content: strings.NewReader("")})
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Zero(t, hits.Load())
}

func TestSettings(t *testing.T) {
	var saved map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/envelope/1/settings", reply(200, `{}`))
	mux.HandleFunc("GET /api/envelope/2/settings", reply(200, `{"id":4,"experiment_type_id":2,"selected_columns":["b"]}`))
	mux.HandleFunc("POST /api/envelope/1/settings", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&saved)
		reply(200, `{"success":true,"message":"settings saved"}`)(w, r)
	})
	c, _ := newServer(t, mux)
	ctx := context.Background()

	st, err := c.GetSettings(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, st.ID)
	assert.Equal(t, []string{}, st.SelectedColumns)

	st, err = c.GetSettings(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, st.SelectedColumns)

	require.NoError(t, c.SaveSettings(ctx, 1, nil))
	assert.Equal(t, []any{}, saved["selected_columns"])
}

func TestUploadMultipart(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/upload/1", func(w http.ResponseWriter, r *http.Request) {
		f, fh, err := r.FormFile("file")
		if err != nil || r.FormValue("data_name") != "run 1" || fh.Filename != "run.csv" {
			reply(400, `{"success":false,"message":"bad upload"}`)(w, r)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		if string(b) != "t,a\n0,1\n" {
			reply(400, `{"success":false,"message":"bad content"}`)(w, r)
			return
		}
		reply(200, `{"success":true,"message":"data uploaded","data_id":42}`)(w, r)
	})
	c, _ := newServer(t, mux)

	id, err := c.UploadData(context.Background(), 1, client.File{Name: "run.csv", Content: strings.NewReader("t,a\n0,1\n")}, " run 1 ")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestTimeout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/experiment-types", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	})
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		mux.ServeHTTP(w, r)
	}))
	defer srv.Close()

	c := client.New(srv.URL, client.WithTimeout(50*time.Millisecond))
	_, err := c.ListTypes(context.Background())
	var tErr *client.TransportError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, int32(1), hits.Load())
}
