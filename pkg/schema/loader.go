package schema

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-doctype/pkg/model"
)

// SeedDocument is a document created at startup unless a document with the
// same Key value already exists.
type SeedDocument struct {
	Doctype string         `json:"doctype" yaml:"doctype"`
	Key     string         `json:"key" yaml:"key"`
	Data    map[string]any `json:"data" yaml:"data"`
}

// KeyValue returns the value used to detect an existing copy.
func (d SeedDocument) KeyValue() any {
	return d.Data[d.Key]
}

// Store holds doctypes and seed documents in load order.
type Store struct {
	doctypes  []model.Doctype
	index     map[string]int
	documents []SeedDocument
}

type seedFile struct {
	Doctypes  []model.Doctype `json:"doctypes" yaml:"doctypes"`
	Documents []SeedDocument  `json:"documents" yaml:"documents"`
}

// LoadFS walks fsys and parses every JSON/YAML file. A nil fsys yields an
// empty store. Doctypes are validated; duplicate names and seed documents
// pointing at unknown doctypes or fields are errors.
func LoadFS(fsys fs.FS) (*Store, error) {
	store := &Store{index: make(map[string]int)}
	if fsys == nil {
		return store, nil
	}

	var pending []SeedDocument
	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isSchemaFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("schema: read %s: %w", path, err)
		}
		file, err := parseFile(data, path)
		if err != nil {
			return err
		}

		for _, doctype := range file.Doctypes {
			if err := store.add(doctype, path); err != nil {
				return err
			}
		}
		pending = append(pending, file.Documents...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, doc := range pending {
		if err := store.addDocument(doc); err != nil {
			return nil, fmt.Errorf("schema: document %d: %w", i, err)
		}
	}
	return store, nil
}

// Doctypes returns the loaded doctypes in load order.
func (s *Store) Doctypes() []model.Doctype {
	if s == nil {
		return nil
	}
	return append([]model.Doctype(nil), s.doctypes...)
}

// Doctype looks up a loaded doctype by name.
func (s *Store) Doctype(name string) (model.Doctype, bool) {
	if s == nil {
		return model.Doctype{}, false
	}
	idx, ok := s.index[name]
	if !ok {
		return model.Doctype{}, false
	}
	return s.doctypes[idx], true
}

// Documents returns the seed documents in load order.
func (s *Store) Documents() []SeedDocument {
	if s == nil {
		return nil
	}
	return append([]SeedDocument(nil), s.documents...)
}

// Empty reports whether nothing was loaded.
func (s *Store) Empty() bool {
	return s == nil || (len(s.doctypes) == 0 && len(s.documents) == 0)
}

func (s *Store) add(doctype model.Doctype, source string) error {
	doctype.Name = strings.TrimSpace(doctype.Name)
	if _, exists := s.index[doctype.Name]; exists {
		return fmt.Errorf("schema: duplicate doctype %q (file %s)", doctype.Name, source)
	}
	for i := range doctype.Fields {
		if doctype.Fields[i].Type == "" {
			doctype.Fields[i].Type = model.FieldTypeString
		}
		if doctype.Fields[i].Label == "" {
			doctype.Fields[i].Label = doctype.Fields[i].Name
		}
	}
	if err := doctype.Validate(); err != nil {
		return fmt.Errorf("schema: doctype %q (file %s): %w", doctype.Name, source, err)
	}
	s.index[doctype.Name] = len(s.doctypes)
	s.doctypes = append(s.doctypes, doctype)
	return nil
}

func (s *Store) addDocument(doc SeedDocument) error {
	doctype, ok := s.Doctype(doc.Doctype)
	if !ok {
		return fmt.Errorf("unknown doctype %q", doc.Doctype)
	}
	if _, ok := doctype.Field(doc.Key); !ok {
		return fmt.Errorf("key %q is not a field of %s", doc.Key, doc.Doctype)
	}
	for name := range doc.Data {
		if _, ok := doctype.Field(name); !ok {
			return fmt.Errorf("%s has no field %q", doc.Doctype, name)
		}
	}
	s.documents = append(s.documents, doc)
	return nil
}

func parseFile(data []byte, source string) (seedFile, error) {
	var file seedFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return seedFile{}, fmt.Errorf("schema: file %s is empty", source)
	}

	if strings.EqualFold(filepath.Ext(source), ".json") {
		if err := json.Unmarshal(data, &file); err != nil {
			return seedFile{}, fmt.Errorf("schema: parse %s: %w", source, err)
		}
		return file, nil
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return seedFile{}, fmt.Errorf("schema: parse %s: %w", source, err)
	}
	return file, nil
}

func isSchemaFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
