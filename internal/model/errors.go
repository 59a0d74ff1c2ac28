package model

import "github.com/rotisserie/eris"

// Sentinel errors classifying pipeline failures. Callers wrap these with
// eris and match with errors.Is.
var (
	// ErrInvalidArgument marks input rejected before any network call:
	// out-of-range percentiles, unknown country codes, unresolvable
	// origins, unsupported travel modes.
	ErrInvalidArgument = eris.New("invalid argument")

	// ErrDataSource marks a non-success HTTP status from an upstream
	// service. These surface immediately and are never retried.
	ErrDataSource = eris.New("data source error")

	// ErrParse marks a structurally malformed upstream payload. Row-level
	// oddities are skipped instead; this covers payloads that cannot be
	// read at all.
	ErrParse = eris.New("parse error")
)
