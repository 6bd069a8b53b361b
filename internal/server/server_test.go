package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/goliatone/go-doctype/internal/auth"
	"github.com/goliatone/go-doctype/internal/server"
	"github.com/goliatone/go-doctype/internal/store"
	"github.com/goliatone/go-doctype/pkg/model"
	"github.com/goliatone/go-doctype/pkg/render/pages"
	"github.com/goliatone/go-doctype/pkg/schema"
)

const sessionKey = "0123456789abcdef0123456789abcdef"

type harness struct {
	t       *testing.T
	handler http.Handler
	cookie  *http.Cookie
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	db, err := store.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	seeds, err := schema.LoadFS(schema.DefaultFS())
	if err != nil {
		t.Fatalf("load seeds: %v", err)
	}
	admin := store.SeedUser{Username: "admin", Password: "admin123", IsAdmin: true, Role: "Admin"}
	if err := db.Seed(ctx, seeds, store.WithUsers(auth.Hasher(bcrypt.MinCost), admin)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	renderer, err := pages.New()
	if err != nil {
		t.Fatalf("pages: %v", err)
	}
	srv := server.New(db, auth.New(db, []byte(sessionKey)), renderer)
	return &harness{t: t, handler: srv.Handler()}
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	h.t.Helper()
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) get(path string) *httptest.ResponseRecorder {
	return h.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (h *harness) postForm(path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return h.do(req)
}

func (h *harness) sendJSON(method, path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		h.t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(method, path, strings.NewReader(string(payload)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return h.do(req)
}

func (h *harness) login() {
	h.t.Helper()
	rec := h.postForm("/login", url.Values{"username": {"admin"}, "password": {"admin123"}})
	if rec.Code != http.StatusSeeOther {
		h.t.Fatalf("login status %d: %s", rec.Code, rec.Body.String())
	}
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == auth.SessionName {
			h.cookie = cookie
		}
	}
	if h.cookie == nil {
		h.t.Fatalf("login did not set a session cookie")
	}
}

var (
	documentLink = regexp.MustCompile(`<td><a href="(/doctype/Task/document/[^"]+)">`)
	deleteAction = regexp.MustCompile(`action="(/doctype/Task/document/[^"]+/delete)"`)
)

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, want, rec.Body.String())
	}
}

func taskForm() url.Values {
	return url.Values{
		"name":              {"Task"},
		"field_name":        {"title", "estimate", "done"},
		"field_type":        {"string", "integer", "boolean"},
		"field_label":       {"Title", "Estimate", "Done"},
		"field_required":    {"title"},
		"field_permissions": {"read write", "", ""},
		"permissions":       {"admin"},
	}
}

func TestAnonymousAccess(t *testing.T) {
	h := newHarness(t)

	rec := h.get("/doctypes")
	expectStatus(t, rec, http.StatusFound)
	if got := rec.Header().Get("Location"); got != "/login" {
		t.Fatalf("redirect = %q", got)
	}

	rec = h.get("/api/documents/Role")
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = h.get("/")
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `href="/login"`) {
		t.Fatalf("home should link to login: %s", rec.Body.String())
	}
	if _, err := uuid.Parse(rec.Header().Get(echo.HeaderXRequestID)); err != nil {
		t.Fatalf("expected uuid request id, got %q", rec.Header().Get(echo.HeaderXRequestID))
	}
}

func TestLoginFailureRendersForm(t *testing.T) {
	h := newHarness(t)
	rec := h.postForm("/login", url.Values{"username": {"admin"}, "password": {"wrong"}})
	expectStatus(t, rec, http.StatusUnauthorized)
	body := rec.Body.String()
	if !strings.Contains(body, "Invalid username or password") || !strings.Contains(body, `value="admin"`) {
		t.Fatalf("unexpected login page: %s", body)
	}
}

func TestStaticRuntime(t *testing.T) {
	h := newHarness(t)
	rec := h.get("/static/js/doctype-repeater.js")
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "add-field") {
		t.Fatalf("runtime script not served")
	}
}

func TestDoctypeLifecycle(t *testing.T) {
	h := newHarness(t)
	h.login()

	rec := h.get("/doctype/new")
	expectStatus(t, rec, http.StatusOK)
	for _, marker := range []string{`id="fields"`, `id="add-field"`, `id="permissions"`, `id="add-permission"`} {
		if !strings.Contains(rec.Body.String(), marker) {
			t.Fatalf("new page missing %s", marker)
		}
	}

	rec = h.postForm("/doctype/new", taskForm())
	expectStatus(t, rec, http.StatusSeeOther)
	if got := rec.Header().Get("Location"); got != "/doctype/Task" {
		t.Fatalf("redirect = %q", got)
	}

	rec = h.get("/doctype/Task")
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "<td>read write</td>") {
		t.Fatalf("view should list field permissions: %s", rec.Body.String())
	}

	rec = h.postForm("/doctype/new", taskForm())
	expectStatus(t, rec, http.StatusBadRequest)
	if !strings.Contains(rec.Body.String(), "duplicate") {
		t.Fatalf("expected duplicate error on page: %s", rec.Body.String())
	}

	rec = h.get("/doctypes")
	expectStatus(t, rec, http.StatusOK)
	for _, name := range []string{"Role", "Task", "User"} {
		if !strings.Contains(rec.Body.String(), name) {
			t.Fatalf("doctype list missing %s", name)
		}
	}

	rename := taskForm()
	rename.Set("name", "Todo")
	rec = h.postForm("/doctype/Task/edit", rename)
	expectStatus(t, rec, http.StatusSeeOther)
	if got := rec.Header().Get("Location"); got != "/doctype/Todo" {
		t.Fatalf("redirect after rename = %q", got)
	}
	expectStatus(t, h.get("/doctype/Task"), http.StatusNotFound)

	rec = h.get("/doctype/Todo/edit")
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `value="title" checked`) {
		t.Fatalf("edit page should pre-check required fields: %s", rec.Body.String())
	}

	rec = h.postForm("/doctype/Todo/delete", url.Values{})
	expectStatus(t, rec, http.StatusSeeOther)
	expectStatus(t, h.get("/doctype/Todo"), http.StatusNotFound)
}

func TestInvalidDoctypeRerendersEditor(t *testing.T) {
	h := newHarness(t)
	h.login()

	form := taskForm()
	form.Set("name", "bad name")
	rec := h.postForm("/doctype/new", form)
	expectStatus(t, rec, http.StatusBadRequest)
	body := rec.Body.String()
	if !strings.Contains(body, "name: must start with a letter") {
		t.Fatalf("expected name error: %s", body)
	}
	if !strings.Contains(body, `value="estimate"`) {
		t.Fatalf("submitted fields should be kept: %s", body)
	}
}

func TestDocumentPages(t *testing.T) {
	h := newHarness(t)
	h.login()
	expectStatus(t, h.postForm("/doctype/new", taskForm()), http.StatusSeeOther)

	expectStatus(t, h.get("/doctype/Task/document/new"), http.StatusOK)

	rec := h.postForm("/doctype/Task/document/new", url.Values{"title": {"Ship <b>it</b>"}, "estimate": {"3"}, "done": {"1"}})
	expectStatus(t, rec, http.StatusSeeOther)
	if got := rec.Header().Get("Location"); got != "/doctype/Task/documents" {
		t.Fatalf("redirect = %q", got)
	}

	rec = h.get("/doctype/Task/documents")
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "<td>Ship it</td>") {
		t.Fatalf("document list missing sanitised title: %s", rec.Body.String())
	}

	rec = h.get("/doctype/Task/document/1")
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `value="1" checked`) {
		t.Fatalf("boolean should render checked: %s", rec.Body.String())
	}

	rec = h.postForm("/doctype/Task/document/1", url.Values{"title": {""}, "estimate": {"3"}})
	expectStatus(t, rec, http.StatusBadRequest)
	if !strings.Contains(rec.Body.String(), "data.title: is required") {
		t.Fatalf("expected required error: %s", rec.Body.String())
	}

	expectStatus(t, h.postForm("/doctype/Task/document/1/delete", url.Values{}), http.StatusSeeOther)
	expectStatus(t, h.get("/doctype/Task/document/1"), http.StatusNotFound)
	expectStatus(t, h.get("/doctype/Task/document/abc"), http.StatusBadRequest)
}

func TestDocumentLinksResolve(t *testing.T) {
	h := newHarness(t)
	h.login()
	expectStatus(t, h.postForm("/doctype/new", taskForm()), http.StatusSeeOther)
	expectStatus(t, h.postForm("/doctype/Task/document/new", url.Values{"title": {"Ship"}}), http.StatusSeeOther)

	rec := h.get("/doctype/Task/documents")
	expectStatus(t, rec, http.StatusOK)
	link := documentLink.FindStringSubmatch(rec.Body.String())
	if link == nil {
		t.Fatalf("document list has no document link: %s", rec.Body.String())
	}
	if link[1] != "/doctype/Task/document/1" {
		t.Fatalf("document link = %q", link[1])
	}

	rec = h.get(link[1])
	expectStatus(t, rec, http.StatusOK)
	action := deleteAction.FindStringSubmatch(rec.Body.String())
	if action == nil {
		t.Fatalf("document form has no delete action: %s", rec.Body.String())
	}

	expectStatus(t, h.postForm(action[1], url.Values{}), http.StatusSeeOther)
	expectStatus(t, h.get(link[1]), http.StatusNotFound)
}

func TestEditKeepsNewBlockRequiredByNameOnly(t *testing.T) {
	h := newHarness(t)
	h.login()
	expectStatus(t, h.postForm("/doctype/new", taskForm()), http.StatusSeeOther)

	// title unchecked on the edit page, a new qty block ticked by the browser.
	form := taskForm()
	form["field_name"] = []string{"title", "qty"}
	form["field_type"] = []string{"string", "integer"}
	form["field_label"] = []string{"Title", "Qty"}
	form["field_permissions"] = []string{"", ""}
	form["field_required"] = []string{"on"}
	expectStatus(t, h.postForm("/doctype/Task/edit", form), http.StatusSeeOther)

	rec := h.get("/doctype/Task/edit")
	expectStatus(t, rec, http.StatusOK)
	if strings.Contains(rec.Body.String(), `value="title" checked`) {
		t.Fatalf("title must not become required by position: %s", rec.Body.String())
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return out
}

func TestDocumentAPI(t *testing.T) {
	h := newHarness(t)
	h.login()
	expectStatus(t, h.postForm("/doctype/new", taskForm()), http.StatusSeeOther)

	rec := h.sendJSON(http.MethodPost, "/api/documents", map[string]any{
		"doctype": "Task",
		"data":    map[string]any{"title": "Ship", "estimate": 3, "done": true, "extra": "dropped"},
	})
	expectStatus(t, rec, http.StatusCreated)
	created := decode[model.Document](t, rec)
	want := model.Document{ID: 1, DoctypeName: "Task", Data: map[string]any{"title": "Ship", "estimate": 3.0, "done": 1.0}}
	if diff := cmp.Diff(want, created); diff != "" {
		t.Fatalf("created mismatch (-want +got):\n%s", diff)
	}

	rec = h.sendJSON(http.MethodPut, "/api/documents/Task/1", map[string]any{"data": map[string]any{"estimate": 5}})
	expectStatus(t, rec, http.StatusOK)
	if got := decode[model.Document](t, rec).Data["estimate"]; got != 5.0 {
		t.Fatalf("estimate after update = %v", got)
	}

	rec = h.get("/api/documents/Task")
	expectStatus(t, rec, http.StatusOK)
	if got := decode[[]model.Document](t, rec); len(got) != 1 || got[0].Data["title"] != "Ship" {
		t.Fatalf("unexpected list: %+v", got)
	}

	rec = h.sendJSON(http.MethodPost, "/api/documents", map[string]any{"doctype": "Task", "data": map[string]any{"estimate": "x"}})
	expectStatus(t, rec, http.StatusBadRequest)
	if msg := decode[map[string]string](t, rec)["error"]; !strings.Contains(msg, "data.title") || !strings.Contains(msg, "data.estimate") {
		t.Fatalf("unexpected validation message %q", msg)
	}

	rec = h.do(httptest.NewRequest(http.MethodDelete, "/api/documents/Task/1", nil))
	expectStatus(t, rec, http.StatusNoContent)

	rec = h.get("/api/documents/Task/1")
	expectStatus(t, rec, http.StatusNotFound)
	if msg := decode[map[string]string](t, rec)["error"]; !strings.Contains(msg, "not found") {
		t.Fatalf("unexpected 404 body %q", msg)
	}

	expectStatus(t, h.get("/api/documents/Missing"), http.StatusNotFound)
	expectStatus(t, h.get("/api/documents/Task/zero"), http.StatusBadRequest)
}

func TestExports(t *testing.T) {
	h := newHarness(t)
	h.login()
	expectStatus(t, h.postForm("/doctype/new", taskForm()), http.StatusSeeOther)

	rec := h.get("/api/doctypes/Task/openapi.json")
	expectStatus(t, rec, http.StatusOK)
	doc := decode[map[string]any](t, rec)
	if doc["openapi"] != "3.0.3" {
		t.Fatalf("unexpected openapi version %v", doc["openapi"])
	}

	rec = h.get("/api/doctypes/Task/export/yaml")
	expectStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "application/yaml" {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "name: Task") {
		t.Fatalf("yaml export missing name: %s", rec.Body.String())
	}

	expectStatus(t, h.get("/api/doctypes/Task/export/xml"), http.StatusNotFound)
	expectStatus(t, h.get("/api/doctypes/Nope/export/json"), http.StatusNotFound)
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.login()

	rec := h.postForm("/logout", url.Values{})
	expectStatus(t, rec, http.StatusSeeOther)
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == auth.SessionName {
			h.cookie = cookie
		}
	}
	expectStatus(t, h.get("/doctypes"), http.StatusFound)
}
