// Package catalog is a small SQLite item store that plays the host's role:
// it selects pending drafts and publishes them idempotently.
package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"draftpub/internal/publisher"
	"draftpub/internal/storage"
	logx "draftpub/pkg/logx"
)

//go:embed schema.sql
var schema string

const (
	StatusDraft     = "draft"
	StatusPublished = "published"

	// Fixed width so that text order matches time order.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

var ErrItemNotFound = errors.New("catalog: item not found")

// Item is one row of the items table.
type Item struct {
	ID          int64
	Title       string
	URL         string
	Type        string
	Status      string
	CreatedAt   time.Time
	PublishedAt time.Time
	Categories  []int64
}

// Draft is the input for AddDraft. Zero CreatedAt means now.
type Draft struct {
	Title      string
	URL        string
	Type       string
	Categories []int64
	CreatedAt  time.Time
}

type Catalog struct {
	db     *sql.DB
	ownsDB bool
	now    func() time.Time
	log    logx.Logger
}

// Open opens (and migrates) the catalog database at path.
func Open(path string, busyTimeout time.Duration, log logx.Logger) (*Catalog, error) {
	db, err := storage.OpenSQLiteDB(path, busyTimeout)
	if err != nil {
		return nil, err
	}
	c, err := New(db, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	c.ownsDB = true
	return c, nil
}

// New wraps an existing database and applies the schema.
func New(db *sql.DB, log logx.Logger) (*Catalog, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("catalog migrate: %w", err)
	}
	return &Catalog{db: db, now: time.Now, log: log.With(logx.String("comp", "catalog"))}, nil
}

func (c *Catalog) Close() error {
	if c == nil || c.db == nil || !c.ownsDB {
		return nil
	}
	return c.db.Close()
}

// SelectPending returns draft ids matching q, oldest first.
func (c *Catalog) SelectPending(ctx context.Context, q publisher.Query) ([]int64, error) {
	if q.Limit <= 0 {
		return nil, nil
	}
	query := sq.Select("i.id").
		From("items i").
		Where(sq.Eq{"i.status": StatusDraft})
	if len(q.Types) > 0 {
		query = query.Where(sq.Eq{"i.type": q.Types})
	}
	if len(q.Categories) > 0 {
		sub, args, err := sq.Select("1").
			From("item_categories ic").
			Where("ic.item_id = i.id").
			Where(sq.Eq{"ic.category_id": q.Categories}).
			ToSql()
		if err != nil {
			return nil, err
		}
		query = query.Where("EXISTS ("+sub+")", args...)
	}
	query = query.OrderBy("i.created_at ASC", "i.id ASC").Limit(uint64(q.Limit))

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := c.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Publish moves a draft to published. Publishing an item that is already
// published changes nothing and reports AlreadyPublished.
func (c *Catalog) Publish(ctx context.Context, id int64) (publisher.ItemSnapshot, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return publisher.ItemSnapshot{}, err
	}
	defer func() { _ = tx.Rollback() }()

	it, err := getItem(ctx, tx, id)
	if err != nil {
		return publisher.ItemSnapshot{}, err
	}
	snap := publisher.ItemSnapshot{ID: it.ID, Title: it.Title, URL: it.URL, Type: it.Type}
	if it.Status == StatusPublished {
		snap.PublishedAt = it.PublishedAt
		snap.AlreadyPublished = true
		return snap, nil
	}
	if it.Status != StatusDraft {
		return publisher.ItemSnapshot{}, fmt.Errorf("item %d has status %q", id, it.Status)
	}

	at := c.now().UTC()
	stmt, args, err := sq.Update("items").
		Set("status", StatusPublished).
		Set("published_at", at.Format(timeLayout)).
		Where(sq.Eq{"id": id, "status": StatusDraft}).
		ToSql()
	if err != nil {
		return publisher.ItemSnapshot{}, err
	}
	res, err := tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		return publisher.ItemSnapshot{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		snap.AlreadyPublished = true
	}
	if err := tx.Commit(); err != nil {
		return publisher.ItemSnapshot{}, err
	}
	snap.PublishedAt = at
	c.log.Debug("item published", logx.Int64("item_id", id), logx.String("type", it.Type))
	return snap, nil
}

// AddDraft inserts a new draft and returns its id.
func (c *Catalog) AddDraft(ctx context.Context, d Draft) (int64, error) {
	d.Title = strings.TrimSpace(d.Title)
	d.Type = strings.TrimSpace(d.Type)
	if d.Title == "" {
		return 0, errors.New("catalog: title is required")
	}
	if d.Type == "" {
		d.Type = "post"
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = c.now()
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, args, err := sq.Insert("items").
		Columns("title", "url", "type", "status", "created_at").
		Values(d.Title, d.URL, d.Type, StatusDraft, d.CreatedAt.UTC().Format(timeLayout)).
		ToSql()
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(d.Categories) > 0 {
		ins := sq.Insert("item_categories").Columns("item_id", "category_id").Options("OR IGNORE")
		for _, cat := range d.Categories {
			ins = ins.Values(id, cat)
		}
		stmt, args, err := ins.ToSql()
		if err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// Get returns one item with its categories.
func (c *Catalog) Get(ctx context.Context, id int64) (Item, error) {
	it, err := getItem(ctx, c.db, id)
	if err != nil {
		return Item{}, err
	}
	stmt, args, err := sq.Select("category_id").
		From("item_categories").
		Where(sq.Eq{"item_id": id}).
		OrderBy("category_id").
		ToSql()
	if err != nil {
		return Item{}, err
	}
	rows, err := c.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return Item{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var cat int64
		if err := rows.Scan(&cat); err != nil {
			return Item{}, err
		}
		it.Categories = append(it.Categories, cat)
	}
	return it, rows.Err()
}

// CountByStatus returns the number of items per status.
func (c *Catalog) CountByStatus(ctx context.Context) (map[string]int, error) {
	stmt, args, err := sq.Select("status", "COUNT(*)").From("items").GroupBy("status").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := c.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getItem(ctx context.Context, q queryer, id int64) (Item, error) {
	stmt, args, err := sq.Select("id", "title", "url", "type", "status", "created_at", "published_at").
		From("items").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return Item{}, err
	}
	var (
		it        Item
		created   string
		published sql.NullString
	)
	err = q.QueryRowContext(ctx, stmt, args...).
		Scan(&it.ID, &it.Title, &it.URL, &it.Type, &it.Status, &created, &published)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, fmt.Errorf("%w: %d", ErrItemNotFound, id)
	}
	if err != nil {
		return Item{}, err
	}
	it.CreatedAt, _ = time.Parse(timeLayout, created)
	if published.Valid {
		it.PublishedAt, _ = time.Parse(timeLayout, published.String)
	}
	return it, nil
}
