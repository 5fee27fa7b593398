package domain

import (
	"context"
)

// DatasetWriter persists one run's dataset as a single flat file.
type DatasetWriter interface {
	// Write stores the dataset and its validation report and returns the
	// path of the file written. Nothing is left behind on error.
	Write(ctx context.Context, ds *Dataset, report ValidationReport) (string, error)
}

// DatasetReader loads a previously written dataset.
type DatasetReader interface {
	Read(ctx context.Context, path string) (*Dataset, error)
}
