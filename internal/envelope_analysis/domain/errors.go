package domain

import "errors"

var (
	ErrTypeNotFound     = errors.New("experiment type not found")
	ErrDatasetNotFound  = errors.New("experiment data not found")
	ErrTempNotFound     = errors.New("temp data not found or expired")
	ErrDuplicateName    = errors.New("experiment type name already exists")
	ErrInvalidColumns   = errors.New("columns are not part of the experiment type")
	ErrNoHistoricalData = errors.New("no historical data")
	ErrValidation       = errors.New("validation failed")
	ErrUnsupportedFile  = errors.New("unsupported file format")
)
