package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/goliatone/go-doctype/pkg/model"
	"github.com/goliatone/go-doctype/pkg/sanitize"
)

type createDocumentRequest struct {
	Doctype string         `json:"doctype"`
	Data    map[string]any `json:"data"`
}

type updateDocumentRequest struct {
	Data map[string]any `json:"data"`
}

func (s *Server) apiCreateDocument(c echo.Context) error {
	var req createDocumentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	if strings.TrimSpace(req.Doctype) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "doctype is required")
	}
	doc := model.Document{DoctypeName: req.Doctype, Data: cleanData(req.Data)}
	if err := s.repo.CreateDocument(c.Request().Context(), &doc); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, doc)
}

func (s *Server) apiListDocuments(c echo.Context) error {
	docs, err := s.repo.ListDocuments(c.Request().Context(), c.Param("doctype"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, docs)
}

func (s *Server) apiGetDocument(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return err
	}
	doc, err := s.repo.GetDocument(c.Request().Context(), c.Param("doctype"), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc)
}

func (s *Server) apiUpdateDocument(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return err
	}
	var req updateDocumentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	doc := model.Document{ID: id, DoctypeName: c.Param("doctype"), Data: cleanData(req.Data)}
	if err := s.repo.UpdateDocument(c.Request().Context(), &doc); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc)
}

func (s *Server) apiDeleteDocument(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return err
	}
	if err := s.repo.DeleteDocument(c.Request().Context(), c.Param("doctype"), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) apiOpenAPI(c echo.Context) error {
	return s.export(c, c.Param("name"), "openapi")
}

func (s *Server) apiExport(c echo.Context) error {
	return s.export(c, c.Param("name"), c.Param("format"))
}

func (s *Server) export(c echo.Context, name, format string) error {
	renderer, err := s.renderers.Get(format)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "unknown export format "+format)
	}
	dt, err := s.repo.GetDoctype(c.Request().Context(), name)
	if err != nil {
		return err
	}
	out, err := renderer.Render(c.Request().Context(), dt)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, renderer.ContentType(), out)
}

// cleanData strips markup from string values. Other JSON values pass
// through for coercion by the store.
func cleanData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for key, value := range data {
		if text, ok := value.(string); ok {
			out[key] = sanitize.Text(text)
			continue
		}
		out[key] = value
	}
	return out
}
