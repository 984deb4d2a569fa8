package client

import "io"

// CreateTypeRequest registers an experiment type
type CreateTypeRequest struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	TimeColumn  string   `json:"time_column,omitempty"`
	DataColumns []string `json:"data_columns" validate:"required,min=1,dive,required"`
}

// EnvelopeRequest asks for the envelope of a column selection. Nil optionals
// take the server defaults.
type EnvelopeRequest struct {
	SelectedColumns []string `json:"selected_columns" validate:"required,min=1,dive,required"`
	UseSampling     *bool    `json:"use_sampling,omitempty"`
	SamplingPoints  *int     `json:"sampling_points,omitempty" validate:"omitempty,min=1"`
}

// CompareRequest asks for the envelope plus a temp dataset's series
type CompareRequest struct {
	SelectedColumns []string `json:"selected_columns" validate:"required,min=1,dive,required"`
	TempDataID      string   `json:"temp_data_id" validate:"required"`
	UseSampling     *bool    `json:"use_sampling,omitempty"`
	SamplingPoints  *int     `json:"sampling_points,omitempty" validate:"omitempty,min=1"`
}

// SaveTempRequest promotes a temp dataset
type SaveTempRequest struct {
	TempDataID string `json:"temp_data_id" validate:"required"`
	DataName   string `json:"data_name" validate:"required"`
	FileName   string `json:"file_name,omitempty"`
}

type deleteTempRequest struct {
	TempDataID string `json:"temp_data_id" validate:"required"`
}

type settingsRequest struct {
	SelectedColumns []string `json:"selected_columns" validate:"dive,required"`
}

type historicalRequest struct {
	IsHistorical bool `json:"is_historical"`
}

// File is an upload: the name decides the parser, Content is read once.
type File struct {
	Name    string    `validate:"required"`
	Content io.Reader `validate:"required"`
}

// Bool returns a pointer to v, for optional request fields
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v, for optional request fields
func Int(v int) *int { return &v }
