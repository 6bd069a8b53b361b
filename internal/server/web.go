package server

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/goliatone/go-doctype/internal/auth"
	"github.com/goliatone/go-doctype/pkg/model"
	"github.com/goliatone/go-doctype/pkg/render"
	"github.com/goliatone/go-doctype/pkg/render/pages"
)

const newDocumentID = "new"

func (s *Server) render(c echo.Context, status int, page string, view pages.View) error {
	if view.User == "" {
		if user, ok := s.auth.CurrentUser(c); ok {
			view.User = user.Username
		}
	}
	var buf bytes.Buffer
	if err := s.pages.Render(&buf, page, view); err != nil {
		return err
	}
	return c.HTMLBlob(status, buf.Bytes())
}

func seeOther(c echo.Context, path string) error {
	return c.Redirect(http.StatusSeeOther, path)
}

func doctypePath(name string, parts ...string) string {
	path := "/doctype/" + url.PathEscape(name)
	for _, part := range parts {
		path += "/" + part
	}
	return path
}

func (s *Server) home(c echo.Context) error {
	return s.render(c, http.StatusOK, pages.Home, pages.View{Title: "Home"})
}

func (s *Server) loginPage(c echo.Context) error {
	if _, ok := s.auth.CurrentUser(c); ok {
		return seeOther(c, "/doctypes")
	}
	return s.render(c, http.StatusOK, pages.Login, pages.View{Title: "Login"})
}

func (s *Server) login(c echo.Context) error {
	username := c.FormValue("username")
	user, err := s.auth.Login(c.Request().Context(), username, c.FormValue("password"))
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			return err
		}
		return s.render(c, http.StatusUnauthorized, pages.Login, pages.View{
			Title:    "Login",
			Username: username,
			Errors:   []string{"Invalid username or password"},
		})
	}
	if err := s.auth.StartSession(c, user); err != nil {
		return err
	}
	return seeOther(c, "/doctypes")
}

func (s *Server) logout(c echo.Context) error {
	if err := s.auth.EndSession(c); err != nil {
		return err
	}
	return seeOther(c, "/login")
}

func (s *Server) listDoctypes(c echo.Context) error {
	doctypes, err := s.repo.ListDoctypes(c.Request().Context())
	if err != nil {
		return err
	}
	return s.render(c, http.StatusOK, pages.DoctypeList, pages.View{Title: "Doctypes", Doctypes: doctypes})
}

func (s *Server) newDoctype(c echo.Context) error {
	return s.render(c, http.StatusOK, pages.DoctypeNew, pages.View{
		Title:   "New Doctype",
		Action:  "/doctype/new",
		IsNew:   true,
		Doctype: &model.Doctype{Fields: []model.Field{}},
	})
}

func (s *Server) createDoctype(c echo.Context) error {
	values, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	dt := render.DecodeDoctypeForm(values)
	if err := s.repo.CreateDoctype(c.Request().Context(), &dt); err != nil {
		if statusFor(err) != http.StatusBadRequest {
			return err
		}
		return s.render(c, http.StatusBadRequest, pages.DoctypeNew, pages.View{
			Title:   "New Doctype",
			Action:  "/doctype/new",
			IsNew:   true,
			Doctype: &dt,
			Errors:  errorMessages(err),
		})
	}
	s.log.Info("doctype saved", zap.String("doctype", dt.Name), zap.String("request_id", requestID(c)))
	return seeOther(c, doctypePath(dt.Name))
}

func (s *Server) viewDoctype(c echo.Context) error {
	dt, err := s.repo.GetDoctype(c.Request().Context(), c.Param("name"))
	if err != nil {
		return err
	}
	return s.render(c, http.StatusOK, pages.DoctypeView, pages.View{Title: dt.Name, Doctype: &dt})
}

func (s *Server) editDoctype(c echo.Context) error {
	dt, err := s.repo.GetDoctype(c.Request().Context(), c.Param("name"))
	if err != nil {
		return err
	}
	return s.render(c, http.StatusOK, pages.DoctypeEdit, pages.View{
		Title:   "Edit " + dt.Name,
		Action:  doctypePath(dt.Name, "edit"),
		Doctype: &dt,
	})
}

func (s *Server) updateDoctype(c echo.Context) error {
	name := c.Param("name")
	values, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	dt := render.DecodeDoctypeForm(values, render.RequiredByName())
	if err := s.repo.UpdateDoctype(c.Request().Context(), name, &dt); err != nil {
		if statusFor(err) != http.StatusBadRequest {
			return err
		}
		return s.render(c, http.StatusBadRequest, pages.DoctypeEdit, pages.View{
			Title:   "Edit " + name,
			Action:  doctypePath(name, "edit"),
			Doctype: &dt,
			Errors:  errorMessages(err),
		})
	}
	return seeOther(c, doctypePath(dt.Name))
}

func (s *Server) deleteDoctype(c echo.Context) error {
	if err := s.repo.DeleteDoctype(c.Request().Context(), c.Param("name")); err != nil {
		return err
	}
	return seeOther(c, "/doctypes")
}

func (s *Server) listDocuments(c echo.Context) error {
	ctx := c.Request().Context()
	dt, err := s.repo.GetDoctype(ctx, c.Param("name"))
	if err != nil {
		return err
	}
	docs, err := s.repo.ListDocuments(ctx, dt.Name)
	if err != nil {
		return err
	}
	return s.render(c, http.StatusOK, pages.DocumentList, pages.View{
		Title:     dt.Name,
		Doctype:   &dt,
		Documents: docs,
	})
}

func (s *Server) documentForm(c echo.Context) error {
	ctx := c.Request().Context()
	dt, err := s.repo.GetDoctype(ctx, c.Param("name"))
	if err != nil {
		return err
	}

	view := pages.View{Doctype: &dt}
	if c.Param("id") == newDocumentID {
		view.Title = "New " + dt.Name
		view.IsNew = true
		view.Action = doctypePath(dt.Name, "document", newDocumentID)
		view.Document = &model.Document{DoctypeName: dt.Name, Data: map[string]any{}}
		return s.render(c, http.StatusOK, pages.DocumentForm, view)
	}

	id, err := parseID(c.Param("id"))
	if err != nil {
		return err
	}
	doc, err := s.repo.GetDocument(ctx, dt.Name, id)
	if err != nil {
		return err
	}
	view.Title = dt.Name + " " + strconv.FormatInt(id, 10)
	view.Action = doctypePath(dt.Name, "document", strconv.FormatInt(id, 10))
	view.Document = &doc
	return s.render(c, http.StatusOK, pages.DocumentForm, view)
}

func (s *Server) saveDocument(c echo.Context) error {
	ctx := c.Request().Context()
	dt, err := s.repo.GetDoctype(ctx, c.Param("name"))
	if err != nil {
		return err
	}
	values, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}

	doc := model.Document{DoctypeName: dt.Name, Data: render.DecodeDocumentForm(dt, values)}
	isNew := c.Param("id") == newDocumentID
	if isNew {
		err = s.repo.CreateDocument(ctx, &doc)
	} else {
		if doc.ID, err = parseID(c.Param("id")); err != nil {
			return err
		}
		err = s.repo.UpdateDocument(ctx, &doc)
	}
	if err != nil {
		if statusFor(err) != http.StatusBadRequest {
			return err
		}
		return s.render(c, http.StatusBadRequest, pages.DocumentForm, pages.View{
			Title:    dt.Name,
			IsNew:    isNew,
			Action:   c.Request().URL.Path,
			Doctype:  &dt,
			Document: &doc,
			Errors:   errorMessages(err),
		})
	}
	return seeOther(c, doctypePath(dt.Name, "documents"))
}

func (s *Server) deleteDocument(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return err
	}
	name := c.Param("name")
	if err := s.repo.DeleteDocument(c.Request().Context(), name, id); err != nil {
		return err
	}
	return seeOther(c, doctypePath(name, "documents"))
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}
