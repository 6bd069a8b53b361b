package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-doctype/pkg/model"
	"github.com/goliatone/go-doctype/pkg/schema"
	"github.com/goliatone/go-doctype/pkg/testsupport"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// ignoreIDs compares doctypes by content.
var ignoreIDs = cmp.Options{
	cmpopts.IgnoreFields(model.Doctype{}, "ID"),
	cmpopts.IgnoreFields(model.Field{}, "ID", "DoctypeID"),
	cmpopts.EquateEmpty(),
}

func TestCreateAndGetDoctype(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	invoice := testsupport.Invoice()
	if err := s.CreateDoctype(ctx, &invoice); err != nil {
		t.Fatalf("create: %v", err)
	}
	if invoice.ID == 0 || invoice.Fields[0].ID == 0 {
		t.Fatalf("expected ids to be assigned: %+v", invoice)
	}

	got, err := s.GetDoctype(ctx, "invoice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(testsupport.Invoice(), got, ignoreIDs); diff != "" {
		t.Fatalf("doctype mismatch (-want +got):\n%s", diff)
	}

	byID, err := s.GetDoctypeByID(ctx, invoice.ID)
	if err != nil || byID.Name != "Invoice" {
		t.Fatalf("get by id: %v %+v", err, byID)
	}

	exists, err := s.tableExists(ctx, "tabInvoice")
	if err != nil || !exists {
		t.Fatalf("expected table tabInvoice, exists=%v err=%v", exists, err)
	}

	dup := model.Doctype{Name: "INVOICE"}
	if err := s.CreateDoctype(ctx, &dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if _, err := s.GetDoctype(ctx, "Missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateDoctypeRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"identifier":  "drop table",
		"primary key": "ID",
	}
	for name, field := range cases {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			bad := model.Doctype{Name: "Bad", Fields: []model.Field{{Name: field, Type: model.FieldTypeString}}}

			err := s.CreateDoctype(context.Background(), &bad)
			var verr *model.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if exists, _ := s.tableExists(context.Background(), "tabBad"); exists {
				t.Fatalf("invalid doctype must not create a table")
			}
		})
	}
}

func TestUpdateDoctypeEvolvesTable(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	task := model.Doctype{
		Name: "Task",
		Fields: []model.Field{
			{Name: "title", Type: model.FieldTypeString, Label: "Title", Required: true},
			{Name: "estimate", Type: model.FieldTypeInteger, Label: "Estimate"},
		},
		Permissions: []string{"admin"},
	}
	if err := s.CreateDoctype(ctx, &task); err != nil {
		t.Fatalf("create: %v", err)
	}
	doc := model.Document{DoctypeName: "Task", Data: map[string]any{"title": "Ship", "estimate": "3"}}
	if err := s.CreateDocument(ctx, &doc); err != nil {
		t.Fatalf("create document: %v", err)
	}

	next := model.Doctype{
		Name: "Todo",
		Fields: []model.Field{
			{Name: "title", Type: model.FieldTypeText, Label: "Title", Required: true, Permissions: []string{"write"}},
			{Name: "done", Type: model.FieldTypeBoolean, Label: "Done"},
		},
		Permissions: []string{"admin", "staff"},
	}
	if err := s.UpdateDoctype(ctx, "Task", &next); err != nil {
		t.Fatalf("update: %v", err)
	}

	if _, err := s.GetDoctype(ctx, "Task"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("old name should be gone, got %v", err)
	}
	got, err := s.GetDoctype(ctx, "Todo")
	if err != nil {
		t.Fatalf("get renamed: %v", err)
	}
	want := next
	if diff := cmp.Diff(want, got, ignoreIDs); diff != "" {
		t.Fatalf("updated doctype mismatch (-want +got):\n%s", diff)
	}

	docs, err := s.ListDocuments(ctx, "Todo")
	if err != nil {
		t.Fatalf("list documents: %v", err)
	}
	wantDocs := []model.Document{{ID: doc.ID, DoctypeName: "Todo", Data: map[string]any{"title": "Ship", "done": nil}}}
	if diff := cmp.Diff(wantDocs, docs); diff != "" {
		t.Fatalf("documents mismatch after update (-want +got):\n%s", diff)
	}
	if exists, _ := s.tableExists(ctx, "tabTask"); exists {
		t.Fatalf("old table should have been renamed")
	}
}

func TestUpdateDoctypeCaseOnlyRename(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	tag := model.Doctype{Name: "tag", Fields: []model.Field{{Name: "name", Type: model.FieldTypeString, Label: "Name"}}}
	if err := s.CreateDoctype(ctx, &tag); err != nil {
		t.Fatalf("create: %v", err)
	}
	renamed := tag
	renamed.Name = "Tag"
	if err := s.UpdateDoctype(ctx, "tag", &renamed); err != nil {
		t.Fatalf("case rename: %v", err)
	}
	got, err := s.GetDoctype(ctx, "TAG")
	if err != nil || got.Name != "Tag" {
		t.Fatalf("expected Tag, got %q (%v)", got.Name, err)
	}
}

func TestUpdateDoctypeDuplicateName(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	for _, name := range []string{"Alpha", "Beta"} {
		dt := model.Doctype{Name: name}
		if err := s.CreateDoctype(ctx, &dt); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	clash := model.Doctype{Name: "Beta"}
	if err := s.UpdateDoctype(ctx, "Alpha", &clash); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if _, err := s.GetDoctype(ctx, "Alpha"); err != nil {
		t.Fatalf("failed update must roll back: %v", err)
	}
}

func TestDeleteDoctype(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	invoice := testsupport.Invoice()
	if err := s.CreateDoctype(ctx, &invoice); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.DeleteDoctype(ctx, "Invoice"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if exists, _ := s.tableExists(ctx, "tabInvoice"); exists {
		t.Fatalf("table should be dropped")
	}
	list, err := s.ListDoctypes(ctx)
	if err != nil || len(list) != 0 {
		t.Fatalf("expected no doctypes, got %v %v", list, err)
	}
	if err := s.DeleteDoctype(ctx, "Invoice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDocumentLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	invoice := testsupport.Invoice()
	if err := s.CreateDoctype(ctx, &invoice); err != nil {
		t.Fatalf("create doctype: %v", err)
	}

	doc := model.Document{DoctypeName: "Invoice", Data: map[string]any{
		"number": "INV-1", "amount": "12.5", "paid": "on", "lines": 2.0, "unknown": "ignored",
	}}
	if err := s.CreateDocument(ctx, &doc); err != nil {
		t.Fatalf("create document: %v", err)
	}
	want := map[string]any{
		"number": "INV-1", "amount": 12.5, "lines": int64(2), "paid": int64(1), "due": nil, "notes": nil,
	}
	if diff := cmp.Diff(want, doc.Data); diff != "" {
		t.Fatalf("stored data mismatch (-want +got):\n%s", diff)
	}

	update := model.Document{ID: doc.ID, DoctypeName: "Invoice", Data: map[string]any{"paid": "", "notes": "net 30"}}
	if err := s.UpdateDocument(ctx, &update); err != nil {
		t.Fatalf("update document: %v", err)
	}
	if update.Data["paid"] != int64(0) || update.Data["notes"] != "net 30" || update.Data["number"] != "INV-1" {
		t.Fatalf("unexpected data after update: %v", update.Data)
	}

	found, err := s.FindDocument(ctx, "Invoice", "number", "INV-1")
	if err != nil || found.ID != doc.ID {
		t.Fatalf("find: %v %+v", err, found)
	}
	if n, err := s.CountDocuments(ctx, "Invoice"); err != nil || n != 1 {
		t.Fatalf("count = %d (%v)", n, err)
	}

	if err := s.DeleteDocument(ctx, "Invoice", doc.ID); err != nil {
		t.Fatalf("delete document: %v", err)
	}
	if _, err := s.GetDocument(ctx, "Invoice", doc.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteDocument(ctx, "Invoice", doc.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestCreateDocumentValidation(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	invoice := testsupport.Invoice()
	if err := s.CreateDoctype(ctx, &invoice); err != nil {
		t.Fatalf("create doctype: %v", err)
	}

	doc := model.Document{DoctypeName: "Invoice", Data: map[string]any{"number": "INV-2", "amount": "lots"}}
	err := s.CreateDocument(ctx, &doc)
	var verr *model.ValidationError
	if !errors.As(err, &verr) || len(verr.Fields["data.amount"]) == 0 {
		t.Fatalf("expected amount validation error, got %v", err)
	}

	if err := s.CreateDocument(ctx, &model.Document{DoctypeName: "Nope"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown doctype, got %v", err)
	}
}

func TestEmptyDoctypeDocuments(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	marker := model.Doctype{Name: "Marker"}
	if err := s.CreateDoctype(ctx, &marker); err != nil {
		t.Fatalf("create: %v", err)
	}
	doc := model.Document{DoctypeName: "Marker"}
	if err := s.CreateDocument(ctx, &doc); err != nil {
		t.Fatalf("create document: %v", err)
	}
	if doc.ID == 0 {
		t.Fatalf("expected an id")
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seeds, err := schema.LoadFS(schema.DefaultFS())
	if err != nil {
		t.Fatalf("load seeds: %v", err)
	}

	hashes := 0
	hash := func(pw string) (string, error) {
		hashes++
		return "hashed:" + pw, nil
	}
	users := []SeedUser{{Username: "admin", Password: "admin123", IsAdmin: true, Role: "Admin"}}

	for i := 0; i < 2; i++ {
		if err := s.Seed(ctx, seeds, WithUsers(hash, users...)); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	if hashes != 1 {
		t.Fatalf("expected one hashed password, got %d", hashes)
	}
	roles, err := s.ListDocuments(ctx, model.RoleDoctype)
	if err != nil {
		t.Fatalf("list roles: %v", err)
	}
	var names []string
	for _, role := range roles {
		names = append(names, role.Data["name"].(string))
	}
	if diff := cmp.Diff([]string{"Admin", "User", "Guest"}, names); diff != "" {
		t.Fatalf("roles mismatch (-want +got):\n%s", diff)
	}

	admin, err := s.FindDocument(ctx, model.UserDoctype, "username", "admin")
	if err != nil {
		t.Fatalf("find admin: %v", err)
	}
	if admin.Data["password"] != "hashed:admin123" || admin.Data["is_admin"] != int64(1) {
		t.Fatalf("unexpected admin record: %v", admin.Data)
	}
}

func TestQuoteIdent(t *testing.T) {
	if got := quoteIdent(`we"ird`); got != `"we""ird"` {
		t.Fatalf("quoteIdent = %s", got)
	}
	if !strings.HasPrefix(createTableSQL(testsupport.Invoice()), `CREATE TABLE "tabInvoice" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "number" TEXT, "amount" REAL`) {
		t.Fatalf("unexpected DDL: %s", createTableSQL(testsupport.Invoice()))
	}
}
