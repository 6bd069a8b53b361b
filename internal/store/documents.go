package store

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/goliatone/go-doctype/pkg/model"
)

// ListDocuments returns every document of doctype ordered by id.
func (s *Store) ListDocuments(ctx context.Context, doctype string) ([]model.Document, error) {
	dt, err := s.GetDoctype(ctx, doctype)
	if err != nil {
		return nil, err
	}
	return s.queryDocuments(ctx, dt, s.selectDocuments(dt).OrderBy(quoteIdent("id")))
}

// GetDocument loads one document.
func (s *Store) GetDocument(ctx context.Context, doctype string, id int64) (model.Document, error) {
	dt, err := s.GetDoctype(ctx, doctype)
	if err != nil {
		return model.Document{}, err
	}
	return s.getDocument(ctx, dt, id)
}

// FindDocument returns the first document whose field equals value.
func (s *Store) FindDocument(ctx context.Context, doctype, field string, value any) (model.Document, error) {
	dt, err := s.GetDoctype(ctx, doctype)
	if err != nil {
		return model.Document{}, err
	}
	if _, ok := dt.Field(field); !ok {
		return model.Document{}, fmt.Errorf("store: %s has no field %q", dt.Name, field)
	}
	query := s.selectDocuments(dt).
		Where(sq.Eq{quoteIdent(field): value}).
		OrderBy(quoteIdent("id")).
		Limit(1)
	docs, err := s.queryDocuments(ctx, dt, query)
	if err != nil {
		return model.Document{}, err
	}
	if len(docs) == 0 {
		return model.Document{}, fmt.Errorf("%w: %s where %s = %v", ErrNotFound, dt.Name, field, value)
	}
	return docs[0], nil
}

// CountDocuments returns the number of rows in the doctype's table.
func (s *Store) CountDocuments(ctx context.Context, doctype string) (int, error) {
	dt, err := s.GetDoctype(ctx, doctype)
	if err != nil {
		return 0, err
	}
	query, args, err := s.sql.Select("COUNT(*)").From(quoteIdent(dt.TableName())).ToSql()
	if err != nil {
		return 0, fmt.Errorf("store: build count: %w", err)
	}
	var n int
	if err := sqlx.GetContext(ctx, s.db, &n, query, args...); err != nil {
		return 0, fmt.Errorf("store: count %s: %w", dt.Name, err)
	}
	return n, nil
}

// CreateDocument stores doc.Data for the declared fields of doc.DoctypeName.
// Undeclared keys are ignored. On success doc holds the stored row.
func (s *Store) CreateDocument(ctx context.Context, doc *model.Document) error {
	dt, err := s.GetDoctype(ctx, doc.DoctypeName)
	if err != nil {
		return err
	}
	data, err := dt.PrepareData(doc.Data)
	if err != nil {
		return err
	}

	var id int64
	if len(data) == 0 {
		res, err := s.db.ExecContext(ctx, "INSERT INTO "+quoteIdent(dt.TableName())+" DEFAULT VALUES")
		if err != nil {
			return fmt.Errorf("store: insert %s: %w", dt.Name, err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("store: insert %s: %w", dt.Name, err)
		}
	} else {
		columns, values := columnValues(dt, data)
		insert := s.sql.Insert(quoteIdent(dt.TableName())).Columns(columns...).Values(values...)
		if id, err = exec(ctx, s.db, insert, "insert "+dt.Name); err != nil {
			return err
		}
	}

	stored, err := s.getDocument(ctx, dt, id)
	if err != nil {
		return err
	}
	*doc = stored
	return nil
}

// UpdateDocument overlays doc.Data on the stored row and writes the result.
// Keys missing from doc.Data keep their stored value.
func (s *Store) UpdateDocument(ctx context.Context, doc *model.Document) error {
	dt, err := s.GetDoctype(ctx, doc.DoctypeName)
	if err != nil {
		return err
	}
	current, err := s.getDocument(ctx, dt, doc.ID)
	if err != nil {
		return err
	}

	merged := make(map[string]any, len(current.Data)+len(doc.Data))
	for k, v := range current.Data {
		merged[k] = v
	}
	for k, v := range doc.Data {
		merged[k] = v
	}
	data, err := dt.PrepareData(merged)
	if err != nil {
		return err
	}

	if len(dt.Fields) > 0 {
		update := s.sql.Update(quoteIdent(dt.TableName())).Where(sq.Eq{quoteIdent("id"): doc.ID})
		for _, field := range dt.Fields {
			update = update.Set(quoteIdent(field.Name), data[field.Name])
		}
		if _, err := exec(ctx, s.db, update, "update "+dt.Name); err != nil {
			return err
		}
	}

	stored, err := s.getDocument(ctx, dt, doc.ID)
	if err != nil {
		return err
	}
	*doc = stored
	return nil
}

// DeleteDocument removes one document.
func (s *Store) DeleteDocument(ctx context.Context, doctype string, id int64) error {
	dt, err := s.GetDoctype(ctx, doctype)
	if err != nil {
		return err
	}
	query, args, err := s.sql.Delete(quoteIdent(dt.TableName())).Where(sq.Eq{quoteIdent("id"): id}).ToSql()
	if err != nil {
		return fmt.Errorf("store: build delete: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("store: delete %s %d: %w", dt.Name, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s %d", ErrNotFound, dt.Name, id)
	}
	return nil
}

func (s *Store) getDocument(ctx context.Context, dt model.Doctype, id int64) (model.Document, error) {
	docs, err := s.queryDocuments(ctx, dt, s.selectDocuments(dt).Where(sq.Eq{quoteIdent("id"): id}))
	if err != nil {
		return model.Document{}, err
	}
	if len(docs) == 0 {
		return model.Document{}, fmt.Errorf("%w: %s %d", ErrNotFound, dt.Name, id)
	}
	return docs[0], nil
}

func (s *Store) selectDocuments(dt model.Doctype) sq.SelectBuilder {
	columns := make([]string, 0, len(dt.Fields)+1)
	columns = append(columns, quoteIdent("id"))
	for _, field := range dt.Fields {
		columns = append(columns, quoteIdent(field.Name))
	}
	return s.sql.Select(columns...).From(quoteIdent(dt.TableName()))
}

func (s *Store) queryDocuments(ctx context.Context, dt model.Doctype, b sq.SelectBuilder) ([]model.Document, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: build select %s: %w", dt.Name, err)
	}
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: select %s: %w", dt.Name, err)
	}
	defer rows.Close()

	docs := []model.Document{}
	for rows.Next() {
		var id int64
		values := make([]any, len(dt.Fields))
		dest := make([]any, 0, len(values)+1)
		dest = append(dest, &id)
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("store: scan %s: %w", dt.Name, err)
		}

		data := make(map[string]any, len(dt.Fields))
		for i, field := range dt.Fields {
			if raw, ok := values[i].([]byte); ok {
				data[field.Name] = string(raw)
				continue
			}
			data[field.Name] = values[i]
		}
		docs = append(docs, model.Document{ID: id, DoctypeName: dt.Name, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: select %s: %w", dt.Name, err)
	}
	return docs, nil
}

func columnValues(dt model.Doctype, data map[string]any) ([]string, []any) {
	columns := make([]string, 0, len(data))
	values := make([]any, 0, len(data))
	for _, field := range dt.Fields {
		value, ok := data[field.Name]
		if !ok {
			continue
		}
		columns = append(columns, quoteIdent(field.Name))
		values = append(values, value)
	}
	return columns, values
}

// tableExists reports whether name is a table in the main schema.
func (s *Store) tableExists(ctx context.Context, name string) (bool, error) {
	query, args, err := s.sql.Select("COUNT(*)").From("sqlite_master").
		Where(sq.Eq{"type": "table"}).
		Where(sq.Expr("name = ? COLLATE NOCASE", strings.TrimSpace(name))).
		ToSql()
	if err != nil {
		return false, err
	}
	var n int
	if err := sqlx.GetContext(ctx, s.db, &n, query, args...); err != nil {
		return false, fmt.Errorf("store: inspect %s: %w", name, err)
	}
	return n > 0, nil
}
