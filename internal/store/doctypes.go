package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/goliatone/go-doctype/pkg/model"
)

// ListDoctypes returns every doctype ordered by name.
func (s *Store) ListDoctypes(ctx context.Context) ([]model.Doctype, error) {
	query, args, err := s.sql.Select("id", "name").From("doctypes").OrderBy("name").ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: build list doctypes: %w", err)
	}
	doctypes := []model.Doctype{}
	if err := sqlx.SelectContext(ctx, s.db, &doctypes, query, args...); err != nil {
		return nil, fmt.Errorf("store: list doctypes: %w", err)
	}
	for i := range doctypes {
		if err := s.loadChildren(ctx, s.db, &doctypes[i]); err != nil {
			return nil, err
		}
	}
	return doctypes, nil
}

// GetDoctype loads a doctype with its fields and permissions. Name lookup is
// case-insensitive.
func (s *Store) GetDoctype(ctx context.Context, name string) (model.Doctype, error) {
	return s.loadDoctype(ctx, s.db, sq.Eq{"name": name})
}

// GetDoctypeByID loads a doctype by primary key.
func (s *Store) GetDoctypeByID(ctx context.Context, id int64) (model.Doctype, error) {
	return s.loadDoctype(ctx, s.db, sq.Eq{"id": id})
}

// CreateDoctype validates dt, writes its meta rows and creates its table in
// one transaction. IDs are filled in on success.
func (s *Store) CreateDoctype(ctx context.Context, dt *model.Doctype) error {
	if err := dt.Validate(); err != nil {
		return err
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		id, err := exec(ctx, tx, s.sql.Insert("doctypes").Columns("name").Values(dt.Name), "insert doctype "+dt.Name)
		if err != nil {
			return err
		}
		dt.ID = id

		if err := s.insertChildren(ctx, tx, dt); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, createTableSQL(*dt)); err != nil {
			return fmt.Errorf("store: create table %s: %w", dt.TableName(), err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("doctype created", zap.String("doctype", dt.Name), zap.Int("fields", len(dt.Fields)))
	return nil
}

// UpdateDoctype replaces the doctype currently stored as name with dt.
// Renames move the table, fields missing from dt drop their column and new
// fields add one. A changed type only updates the meta row: SQLite cannot
// alter a column type in place and its dynamic typing keeps old rows
// readable.
func (s *Store) UpdateDoctype(ctx context.Context, name string, dt *model.Doctype) error {
	if err := dt.Validate(); err != nil {
		return err
	}

	var dropped, added []string
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		current, err := s.loadDoctype(ctx, tx, sq.Eq{"name": name})
		if err != nil {
			return err
		}
		dt.ID = current.ID

		if current.Name != dt.Name {
			if err := s.renameDoctype(ctx, tx, current, dt.Name); err != nil {
				return err
			}
		}

		table := quoteIdent(dt.TableName())
		next := make(map[string]struct{}, len(dt.Fields))
		for _, field := range dt.Fields {
			next[field.Name] = struct{}{}
		}
		existing := make(map[string]struct{}, len(current.Fields))
		for _, field := range current.Fields {
			existing[field.Name] = struct{}{}
			if _, keep := next[field.Name]; keep {
				continue
			}
			if _, err := tx.ExecContext(ctx, "ALTER TABLE "+table+" DROP COLUMN "+quoteIdent(field.Name)); err != nil {
				return fmt.Errorf("store: drop column %s.%s: %w", dt.Name, field.Name, err)
			}
			dropped = append(dropped, field.Name)
		}
		for _, field := range dt.Fields {
			if _, ok := existing[field.Name]; ok {
				continue
			}
			if _, err := tx.ExecContext(ctx, "ALTER TABLE "+table+" ADD COLUMN "+columnSQL(field)); err != nil {
				return fmt.Errorf("store: add column %s.%s: %w", dt.Name, field.Name, err)
			}
			added = append(added, field.Name)
		}

		if err := s.deleteChildren(ctx, tx, dt.ID); err != nil {
			return err
		}
		return s.insertChildren(ctx, tx, dt)
	})
	if err != nil {
		return err
	}

	s.log.Info("doctype updated",
		zap.String("doctype", dt.Name),
		zap.String("previous", name),
		zap.Strings("added", added),
		zap.Strings("dropped", dropped),
	)
	return nil
}

// DeleteDoctype drops the doctype's table and meta rows.
func (s *Store) DeleteDoctype(ctx context.Context, name string) error {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		current, err := s.loadDoctype(ctx, tx, sq.Eq{"name": name})
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(current.TableName())); err != nil {
			return fmt.Errorf("store: drop table %s: %w", current.TableName(), err)
		}
		if err := s.deleteChildren(ctx, tx, current.ID); err != nil {
			return err
		}
		_, err = exec(ctx, tx, s.sql.Delete("doctypes").Where(sq.Eq{"id": current.ID}), "delete doctype "+current.Name)
		return err
	})
	if err != nil {
		return err
	}
	s.log.Info("doctype deleted", zap.String("doctype", name))
	return nil
}

func (s *Store) renameDoctype(ctx context.Context, tx *sqlx.Tx, current model.Doctype, to string) error {
	if _, err := exec(ctx, tx, s.sql.Update("doctypes").Set("name", to).Where(sq.Eq{"id": current.ID}), "rename doctype "+current.Name); err != nil {
		return err
	}

	from := current.TableName()
	target := model.TablePrefix + to
	// Table names are case-insensitive, so a case-only rename goes through
	// a temporary name.
	if strings.EqualFold(from, target) {
		tmp := from + "__rename"
		if _, err := tx.ExecContext(ctx, "ALTER TABLE "+quoteIdent(from)+" RENAME TO "+quoteIdent(tmp)); err != nil {
			return fmt.Errorf("store: rename table %s: %w", from, err)
		}
		from = tmp
	}
	if _, err := tx.ExecContext(ctx, "ALTER TABLE "+quoteIdent(from)+" RENAME TO "+quoteIdent(target)); err != nil {
		return fmt.Errorf("store: rename table %s: %w", from, err)
	}
	return nil
}

func (s *Store) loadDoctype(ctx context.Context, q sqlx.QueryerContext, where sq.Eq) (model.Doctype, error) {
	query, args, err := s.sql.Select("id", "name").From("doctypes").Where(where).ToSql()
	if err != nil {
		return model.Doctype{}, fmt.Errorf("store: build get doctype: %w", err)
	}

	var dt model.Doctype
	if err := sqlx.GetContext(ctx, q, &dt, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Doctype{}, fmt.Errorf("%w: doctype %v", ErrNotFound, whereValue(where))
		}
		return model.Doctype{}, fmt.Errorf("store: get doctype: %w", err)
	}
	if err := s.loadChildren(ctx, q, &dt); err != nil {
		return model.Doctype{}, err
	}
	return dt, nil
}

func (s *Store) loadChildren(ctx context.Context, q sqlx.QueryerContext, dt *model.Doctype) error {
	query, args, err := s.sql.
		Select("id", "doctype_id", "name", "type", "label", "required").
		From("fields").
		Where(sq.Eq{"doctype_id": dt.ID}).
		OrderBy("position", "id").
		ToSql()
	if err != nil {
		return fmt.Errorf("store: build fields: %w", err)
	}
	dt.Fields = []model.Field{}
	if err := sqlx.SelectContext(ctx, q, &dt.Fields, query, args...); err != nil {
		return fmt.Errorf("store: load fields of %s: %w", dt.Name, err)
	}

	query, args, err = s.sql.
		Select("fp.field_id", "fp.permission").
		From("field_permissions fp").
		Join("fields f ON f.id = fp.field_id").
		Where(sq.Eq{"f.doctype_id": dt.ID}).
		OrderBy("fp.rowid").
		ToSql()
	if err != nil {
		return fmt.Errorf("store: build field permissions: %w", err)
	}
	var grants []struct {
		FieldID    int64  `db:"field_id"`
		Permission string `db:"permission"`
	}
	if err := sqlx.SelectContext(ctx, q, &grants, query, args...); err != nil {
		return fmt.Errorf("store: load field permissions of %s: %w", dt.Name, err)
	}
	for _, grant := range grants {
		for i := range dt.Fields {
			if dt.Fields[i].ID == grant.FieldID {
				dt.Fields[i].Permissions = append(dt.Fields[i].Permissions, grant.Permission)
			}
		}
	}

	query, args, err = s.sql.
		Select("permission").
		From("doctype_permissions").
		Where(sq.Eq{"doctype_id": dt.ID}).
		OrderBy("rowid").
		ToSql()
	if err != nil {
		return fmt.Errorf("store: build doctype permissions: %w", err)
	}
	dt.Permissions = nil
	if err := sqlx.SelectContext(ctx, q, &dt.Permissions, query, args...); err != nil {
		return fmt.Errorf("store: load permissions of %s: %w", dt.Name, err)
	}
	return nil
}

func (s *Store) insertChildren(ctx context.Context, tx *sqlx.Tx, dt *model.Doctype) error {
	for i := range dt.Fields {
		field := &dt.Fields[i]
		insert := s.sql.Insert("fields").
			Columns("doctype_id", "position", "name", "type", "label", "required").
			Values(dt.ID, i, field.Name, string(field.Type), field.Label, field.Required)
		id, err := exec(ctx, tx, insert, "insert field "+field.Name)
		if err != nil {
			return err
		}
		field.ID = id
		field.DoctypeID = dt.ID

		for _, perm := range field.Permissions {
			grant := s.sql.Insert("field_permissions").Options("OR IGNORE").
				Columns("field_id", "permission").Values(id, perm)
			if _, err := exec(ctx, tx, grant, "insert field permission"); err != nil {
				return err
			}
		}
	}

	for _, perm := range dt.Permissions {
		grant := s.sql.Insert("doctype_permissions").Options("OR IGNORE").
			Columns("doctype_id", "permission").Values(dt.ID, perm)
		if _, err := exec(ctx, tx, grant, "insert doctype permission"); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) deleteChildren(ctx context.Context, tx *sqlx.Tx, doctypeID int64) error {
	steps := []sq.Sqlizer{
		s.sql.Delete("field_permissions").Where("field_id IN (SELECT id FROM fields WHERE doctype_id = ?)", doctypeID),
		s.sql.Delete("fields").Where(sq.Eq{"doctype_id": doctypeID}),
		s.sql.Delete("doctype_permissions").Where(sq.Eq{"doctype_id": doctypeID}),
	}
	for _, step := range steps {
		if _, err := exec(ctx, tx, step, "delete doctype meta"); err != nil {
			return err
		}
	}
	return nil
}

func createTableSQL(dt model.Doctype) string {
	columns := make([]string, 0, len(dt.Fields)+1)
	columns = append(columns, quoteIdent("id")+" INTEGER PRIMARY KEY AUTOINCREMENT")
	for _, field := range dt.Fields {
		columns = append(columns, columnSQL(field))
	}
	return "CREATE TABLE " + quoteIdent(dt.TableName()) + " (" + strings.Join(columns, ", ") + ")"
}

func columnSQL(field model.Field) string {
	return quoteIdent(field.Name) + " " + field.Type.SQLType()
}

func whereValue(where sq.Eq) any {
	for _, v := range where {
		return v
	}
	return nil
}
