package api

import (
	"time"

	"github.com/samcharles93/r1cs/pkg/r1cs"
)

type ResponseError struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
	Param   string `json:"param,omitempty"`
}

type ErrorResponse struct {
	Error ResponseError `json:"error"`
}

type CircuitSummary struct {
	Name         string    `json:"name"`
	Object       string    `json:"object"`
	Size         int64     `json:"size,omitempty"`
	ModifiedAt   time.Time `json:"modified_at"`
	Curve        string    `json:"curve,omitempty"`
	NVars        uint32    `json:"n_vars"`
	NConstraints uint32    `json:"n_constraints"`
	// Error is set instead of the metadata when the file cannot be read.
	Error string `json:"error,omitempty"`
}

type CircuitList struct {
	Object string           `json:"object"`
	Data   []CircuitSummary `json:"data"`
}

type SectionInfo struct {
	ID     uint32 `json:"id"`
	Name   string `json:"name"`
	Offset int64  `json:"offset"`
	Size   uint64 `json:"size"`
}

type CircuitInfo struct {
	Name       string          `json:"name"`
	Object     string          `json:"object"`
	Size       int64           `json:"size"`
	ModifiedAt time.Time       `json:"modified_at"`
	Version    uint32          `json:"version"`
	Digest     string          `json:"blake3"`
	Header     r1cs.JSONHeader `json:"header"`
	Sections   []SectionInfo   `json:"sections"`
}

type ConstraintPage struct {
	Object      string            `json:"object"`
	Circuit     string            `json:"circuit"`
	Offset      uint32            `json:"offset"`
	Total       uint32            `json:"total"`
	Constraints []r1cs.Constraint `json:"constraints"`
}

type LabelPage struct {
	Object  string   `json:"object"`
	Circuit string   `json:"circuit"`
	Offset  uint32   `json:"offset"`
	Total   uint32   `json:"total"`
	Labels  []uint64 `json:"labels"`
}
