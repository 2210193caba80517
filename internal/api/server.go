// Package api exposes an r1csstore over HTTP. Every route is read-only.
package api

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/r1cs/internal/logger"
	"github.com/samcharles93/r1cs/internal/r1csstore"
	"github.com/samcharles93/r1cs/pkg/r1cs"
)

const (
	DefaultPageLimit   = 100
	MaxConstraintLimit = 1000
	MaxLabelLimit      = 100_000
)

type Server struct {
	store *r1csstore.Store
	log   logger.Logger
}

func NewServer(store *r1csstore.Store, log logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	return &Server{store: store, log: log}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/v1/circuits", s.handleList)
	e.GET("/v1/circuits/:name", s.handleInfo)
	e.GET("/v1/circuits/:name/constraints", s.handleConstraints)
	e.GET("/v1/circuits/:name/map", s.handleMap)
}

func (s *Server) handleList(c *echo.Context) error {
	names, err := s.store.List()
	if err != nil {
		return writeFailure(c, err)
	}
	out := CircuitList{Object: "list", Data: make([]CircuitSummary, 0, len(names))}
	for _, name := range names {
		sum := CircuitSummary{Name: name, Object: "circuit"}
		info, err := s.store.Info(name)
		if err != nil {
			s.log.Warn("skipping unreadable circuit", "name", name, "error", err)
			sum.Error = err.Error()
		} else {
			sum.Size = info.Size
			sum.ModifiedAt = info.ModTime
			sum.Curve = info.Curve
			sum.NVars = info.Header.NVars
			sum.NConstraints = info.Header.NConstraints
		}
		out.Data = append(out.Data, sum)
	}
	return writeJSON(c, http.StatusOK, out)
}

func (s *Server) handleInfo(c *echo.Context) error {
	name := c.Param("name")
	if name == "" {
		return writeNotFound(c, "circuit not found")
	}
	info, err := s.store.Info(name)
	if err != nil {
		return writeFailure(c, err)
	}
	sections := make([]SectionInfo, 0, len(info.Sections))
	for _, e := range info.Sections {
		sections = append(sections, SectionInfo{
			ID:     e.ID,
			Name:   r1cs.SectionName(e.ID),
			Offset: e.Offset,
			Size:   e.Size,
		})
	}
	return writeJSON(c, http.StatusOK, CircuitInfo{
		Name:       info.Name,
		Object:     "circuit",
		Size:       info.Size,
		ModifiedAt: info.ModTime,
		Version:    info.Version,
		Digest:     info.Digest,
		Header:     info.Header.JSON(),
		Sections:   sections,
	})
}

func (s *Server) handleConstraints(c *echo.Context) error {
	name := c.Param("name")
	offset, limit, err := pageParams(c, MaxConstraintLimit)
	if err != nil {
		return writeFailure(c, err)
	}
	cs, h, err := s.store.Constraints(name, offset, limit)
	if err != nil {
		return writeFailure(c, err)
	}
	return writeJSON(c, http.StatusOK, ConstraintPage{
		Object:      "list",
		Circuit:     name,
		Offset:      offset,
		Total:       h.NConstraints,
		Constraints: cs,
	})
}

func (s *Server) handleMap(c *echo.Context) error {
	name := c.Param("name")
	offset, limit, err := pageParams(c, MaxLabelLimit)
	if err != nil {
		return writeFailure(c, err)
	}
	labels, h, err := s.store.Labels(name, offset, limit)
	if err != nil {
		return writeFailure(c, err)
	}
	return writeJSON(c, http.StatusOK, LabelPage{
		Object:  "list",
		Circuit: name,
		Offset:  offset,
		Total:   h.NVars,
		Labels:  labels,
	})
}
