package ingest

import "errors"

// ErrDuplicateSnapshot indicates a snapshot for the same date was already
// ingested. The failed attempt mutates nothing.
var ErrDuplicateSnapshot = errors.New("duplicate snapshot date")
