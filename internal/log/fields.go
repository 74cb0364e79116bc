// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldFlowID = "flow_id"
	FieldJobID  = "job_id"

	// Process / calculation fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldCalcType  = "calc_type"
	FieldAlgorithm = "algorithm"
	FieldAttempt   = "attempt"

	// Path fields
	FieldPath    = "path"
	FieldDir     = "dir"
	FieldSrcPath = "src_path"
	FieldDstPath = "dst_path"
)
