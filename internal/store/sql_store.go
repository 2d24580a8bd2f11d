package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matthewbaird/formlayout/internal/types"
)

const (
	tableFields    = "doctype_fields"
	tableOverrides = "property_setters"
	tableCommits   = "layout_commits"

	// timeLayout is fixed-width so stored stamps sort as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// SQLStore implements Store on a SQL database through ent's dialect
// driver. Base fields, overrides and commits live in three tables.
type SQLStore struct {
	drv *entsql.Driver
	log *zap.Logger
	now func() time.Time
}

// NewSQLStore wraps an ent driver. The logger may be nil.
func NewSQLStore(drv *entsql.Driver, log *zap.Logger) *SQLStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &SQLStore{drv: drv, log: log, now: time.Now}
}

func (s *SQLStore) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.drv.Dialect())
}

// schema is applied in order by Migrate.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS ` + tableFields + ` (
		doctype   TEXT    NOT NULL,
		idx       INTEGER NOT NULL,
		fieldname TEXT    NOT NULL,
		data      TEXT    NOT NULL,
		PRIMARY KEY (doctype, fieldname)
	)`,
	`CREATE TABLE IF NOT EXISTS ` + tableOverrides + ` (
		doctype       TEXT NOT NULL,
		field_name    TEXT NOT NULL,
		property      TEXT NOT NULL,
		value         TEXT NOT NULL,
		property_type TEXT NOT NULL,
		updated_at    TEXT NOT NULL,
		PRIMARY KEY (doctype, field_name, property)
	)`,
	`CREATE TABLE IF NOT EXISTS ` + tableCommits + ` (
		id           TEXT    NOT NULL PRIMARY KEY,
		doctype      TEXT    NOT NULL,
		change_count INTEGER NOT NULL,
		changes      TEXT    NOT NULL,
		committed_at TEXT    NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ` + tableCommits + `_doctype ON ` + tableCommits + ` (doctype, committed_at)`,
}

// Migrate creates the store's tables if they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, ddl := range schema {
		if err := s.drv.Exec(ctx, ddl, []any{}, nil); err != nil {
			return fmt.Errorf("creating tables: %w", err)
		}
	}
	return nil
}

// ImportBase replaces the base fields of a doctype in one transaction.
// Existing overrides are kept; overrides for fields that no longer exist
// are ignored on load.
func (s *SQLStore) ImportBase(ctx context.Context, doctype string, list types.FieldList) error {
	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	b := s.builder()

	query, args := b.Delete(tableFields).Where(entsql.EQ("doctype", doctype)).Query()
	if err := tx.Exec(ctx, query, args, nil); err != nil {
		return rollback(tx, fmt.Errorf("clearing base fields: %w", err))
	}
	if len(list) > 0 {
		ins := b.Insert(tableFields).Columns("doctype", "idx", "fieldname", "data")
		for i, f := range list {
			data, err := json.Marshal(f)
			if err != nil {
				return rollback(tx, fmt.Errorf("encoding field %s: %w", f.Name, err))
			}
			ins.Values(doctype, i, f.Name, string(data))
		}
		query, args = ins.Query()
		if err := tx.Exec(ctx, query, args, nil); err != nil {
			return rollback(tx, fmt.Errorf("inserting base fields: %w", err))
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing import: %w", err)
	}
	s.log.Info("store: imported base fields", zap.String("doctype", doctype), zap.Int("fields", len(list)))
	return nil
}

// Load returns the base fields of a doctype with its overrides applied.
func (s *SQLStore) Load(ctx context.Context, doctype string) (types.FieldList, int, error) {
	base, err := s.baseFields(ctx, doctype)
	if err != nil {
		return nil, 0, err
	}
	if len(base) == 0 {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, doctype)
	}
	rows, err := s.overrides(ctx, doctype)
	if err != nil {
		return nil, 0, err
	}
	list := Overlay(base, rows)
	return list, len(list), nil
}

func (s *SQLStore) baseFields(ctx context.Context, doctype string) (types.FieldList, error) {
	query, args := s.builder().
		Select("data").
		From(entsql.Table(tableFields)).
		Where(entsql.EQ("doctype", doctype)).
		OrderBy("idx").
		Query()

	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("querying base fields: %w", err)
	}
	defer rows.Close()

	var list types.FieldList
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning base field: %w", err)
		}
		var f types.Field
		if err := json.Unmarshal([]byte(data), &f); err != nil {
			return nil, fmt.Errorf("decoding base field: %w", err)
		}
		list = append(list, f)
	}
	return list, rows.Err()
}

func (s *SQLStore) overrides(ctx context.Context, doctype string) ([]Override, error) {
	query, args := s.builder().
		Select("field_name", "property", "value", "property_type").
		From(entsql.Table(tableOverrides)).
		Where(entsql.EQ("doctype", doctype)).
		OrderBy("field_name", "property").
		Query()

	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("querying overrides: %w", err)
	}
	defer rows.Close()

	var out []Override
	for rows.Next() {
		var o Override
		var raw string
		if err := rows.Scan(&o.Field, &o.Property, &raw, &o.PropertyType); err != nil {
			return nil, fmt.Errorf("scanning override: %w", err)
		}
		v, err := decodeValue(raw, o.PropertyType)
		if err != nil {
			return nil, err
		}
		o.Value = v
		out = append(out, o)
	}
	return out, rows.Err()
}

// Persist upserts one override per changed property and records the
// commit, all in one transaction.
func (s *SQLStore) Persist(ctx context.Context, doctype string, cs types.ChangeSet) error {
	exists, err := s.hasDoctype(ctx, doctype)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, doctype)
	}

	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	b := s.builder()
	stamp := s.now().UTC().Format(timeLayout)

	rows := overrides(cs)
	if len(rows) > 0 {
		ins := b.Insert(tableOverrides).
			Columns("doctype", "field_name", "property", "value", "property_type", "updated_at")
		for _, o := range rows {
			raw, err := encodeValue(o.Value)
			if err != nil {
				return rollback(tx, err)
			}
			ins.Values(doctype, o.Field, o.Property, raw, o.PropertyType, stamp)
		}
		ins.OnConflict(
			entsql.ConflictColumns("doctype", "field_name", "property"),
			entsql.ResolveWithNewValues(),
		)
		query, args := ins.Query()
		if err := tx.Exec(ctx, query, args, nil); err != nil {
			return rollback(tx, fmt.Errorf("upserting overrides: %w", err))
		}
	}

	payload, err := json.Marshal(cs)
	if err != nil {
		return rollback(tx, fmt.Errorf("encoding change set: %w", err))
	}
	id := uuid.New().String()
	query, args := b.Insert(tableCommits).
		Columns("id", "doctype", "change_count", "changes", "committed_at").
		Values(id, doctype, cs.Len(), string(payload), stamp).
		Query()
	if err := tx.Exec(ctx, query, args, nil); err != nil {
		return rollback(tx, fmt.Errorf("recording commit: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing change set: %w", err)
	}
	s.log.Info("store: persisted change set",
		zap.String("doctype", doctype),
		zap.String("commit", id),
		zap.Int("changes", cs.Len()),
	)
	return nil
}

func (s *SQLStore) hasDoctype(ctx context.Context, doctype string) (bool, error) {
	query, args := s.builder().
		Select("fieldname").
		From(entsql.Table(tableFields)).
		Where(entsql.EQ("doctype", doctype)).
		Limit(1).
		Query()

	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return false, fmt.Errorf("querying doctype: %w", err)
	}
	defer rows.Close()
	found := rows.Next()
	return found, rows.Err()
}

// History returns the most recent commits first.
func (s *SQLStore) History(ctx context.Context, doctype string, limit int) ([]types.Commit, error) {
	sel := s.builder().
		Select("id", "doctype", "change_count", "changes", "committed_at").
		From(entsql.Table(tableCommits)).
		Where(entsql.EQ("doctype", doctype)).
		OrderBy(entsql.Desc("committed_at"))
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()

	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	out := []types.Commit{}
	for rows.Next() {
		var c types.Commit
		var changes, at string
		if err := rows.Scan(&c.ID, &c.Doctype, &c.ChangeCount, &changes, &at); err != nil {
			return nil, fmt.Errorf("scanning commit: %w", err)
		}
		if err := json.Unmarshal([]byte(changes), &c.Changes); err != nil {
			return nil, fmt.Errorf("decoding commit %s: %w", c.ID, err)
		}
		t, err := time.Parse(timeLayout, at)
		if err != nil {
			return nil, fmt.Errorf("parsing commit time %s: %w", c.ID, err)
		}
		c.CommittedAt = t
		out = append(out, c)
	}
	return out, rows.Err()
}

// Doctypes lists the doctypes with base fields.
func (s *SQLStore) Doctypes(ctx context.Context) ([]string, error) {
	query, args := s.builder().
		Select("doctype").
		Distinct().
		From(entsql.Table(tableFields)).
		OrderBy("doctype").
		Query()

	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("querying doctypes: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning doctype: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func rollback(tx dialect.Tx, err error) error {
	if rerr := tx.Rollback(); rerr != nil {
		return fmt.Errorf("%w (rollback: %v)", err, rerr)
	}
	return err
}
