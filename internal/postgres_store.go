package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lychee-technology/studiokit"
	"go.uber.org/zap"
)

type storePool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Close()
}

// PostgresTables names the tables used by PostgresStore.
type PostgresTables struct {
	Sites    string `json:"sites"`
	Blocks   string `json:"blocks"`
	Partials string `json:"partials"`
	Pages    string `json:"pages"`
}

func DefaultPostgresTables() PostgresTables {
	return PostgresTables{Sites: collSites, Blocks: collBlocks, Partials: collPartials, Pages: collPages}
}

func (t PostgresTables) validate() error {
	if t.Sites == "" || t.Blocks == "" || t.Partials == "" || t.Pages == "" {
		return fmt.Errorf("postgres table names cannot be empty")
	}
	return nil
}

// PostgresStore is the Store backed by PostgreSQL or Aurora DSQL. Each record is a
// JSON document in a text column next to its key columns; writes that touch a
// record and its site index run in one transaction.
type PostgresStore struct {
	pool    storePool
	tables  PostgresTables
	newID   studiokit.IDGenerator
	nowFunc func() time.Time
}

var _ studiokit.Store = (*PostgresStore)(nil)

func NewPostgresStore(pool storePool, tables PostgresTables) (*PostgresStore, error) {
	if err := tables.validate(); err != nil {
		return nil, err
	}
	return &PostgresStore{
		pool:    pool,
		tables:  tables,
		newID:   studiokit.NewID,
		nowFunc: time.Now,
	}, nil
}

func (s *PostgresStore) withClock(now func() time.Time) {
	if now == nil {
		return
	}
	s.nowFunc = now
}

func (s *PostgresStore) withIDGenerator(gen studiokit.IDGenerator) {
	if gen == nil {
		return
	}
	s.newID = gen
}

func (s *PostgresStore) nowMillis() int64 {
	return s.nowFunc().UnixMilli()
}

// Migrate creates the tables when they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			doc TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`, sanitizeIdentifier(s.tables.Sites)),
	}
	for _, table := range []string{s.tables.Blocks, s.tables.Partials, s.tables.Pages} {
		statements = append(statements, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			site_id TEXT NOT NULL,
			name TEXT NOT NULL,
			doc TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`, sanitizeIdentifier(table)))
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return studiokit.NewStorageError("create table", err)
		}
	}
	zap.S().Infow("postgres tables ready", "sites", s.tables.Sites, "blocks", s.tables.Blocks,
		"partials", s.tables.Partials, "pages", s.tables.Pages)
	return nil
}

func (s *PostgresStore) GetSite(ctx context.Context, siteID string) (*studiokit.Site, error) {
	query := fmt.Sprintf("SELECT doc FROM %s WHERE id = $1", sanitizeIdentifier(s.tables.Sites))
	var doc string
	if err := s.pool.QueryRow(ctx, query, siteID).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, studiokit.NewNotFoundError("site", siteID)
		}
		return nil, studiokit.NewStorageError("select site", err)
	}
	var site studiokit.Site
	if err := json.Unmarshal([]byte(doc), &site); err != nil {
		return nil, studiokit.NewStorageError("decode site", err)
	}
	site.ID = siteID
	return &site, nil
}

func (s *PostgresStore) ListBlocks(ctx context.Context, siteID string) ([]*studiokit.Block, error) {
	return listDocs[studiokit.Block](ctx, s.pool, s.tables.Blocks, siteID)
}

func (s *PostgresStore) ListPartials(ctx context.Context, siteID string) ([]*studiokit.Partial, error) {
	return listDocs[studiokit.Partial](ctx, s.pool, s.tables.Partials, siteID)
}

func (s *PostgresStore) ListPages(ctx context.Context, siteID string) ([]*studiokit.Page, error) {
	return listDocs[studiokit.Page](ctx, s.pool, s.tables.Pages, siteID)
}

func listDocs[T any](ctx context.Context, pool storePool, table, siteID string) ([]*T, error) {
	query := fmt.Sprintf("SELECT doc FROM %s WHERE site_id = $1 ORDER BY created_at, id", sanitizeIdentifier(table))
	rows, err := pool.Query(ctx, query, siteID)
	if err != nil {
		return nil, studiokit.NewStorageError("select "+table, err)
	}
	defer rows.Close()

	out := make([]*T, 0)
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, studiokit.NewStorageError("scan "+table, err)
		}
		record := new(T)
		if err := json.Unmarshal([]byte(doc), record); err != nil {
			return nil, studiokit.NewStorageError("decode "+table, err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, studiokit.NewStorageError("iterate "+table, err)
	}
	return out, nil
}

func (s *PostgresStore) SaveSite(ctx context.Context, site *studiokit.Site) (*studiokit.Site, error) {
	saved := cloneSite(site)
	if saved.ID == "" {
		saved.ID = s.newID()
	}
	doc, err := json.Marshal(saved)
	if err != nil {
		return nil, studiokit.NewInternalError("encode site", err)
	}
	query := fmt.Sprintf(
		`INSERT INTO %s (id, name, doc, created_at) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, doc = EXCLUDED.doc`,
		sanitizeIdentifier(s.tables.Sites),
	)
	if _, err := s.pool.Exec(ctx, query, saved.ID, saved.Name, string(doc), s.nowMillis()); err != nil {
		return nil, studiokit.NewStorageError("upsert site", err)
	}
	return saved, nil
}

func (s *PostgresStore) SaveBlock(ctx context.Context, block *studiokit.Block) (*studiokit.Block, error) {
	saved := cloneBlock(block)
	insert := saved.ID == ""
	if insert {
		saved.ID = s.newID()
	}
	err := s.saveIndexed(ctx, s.tables.Blocks, insert, saved.ID, saved.SiteID, saved.Name, saved, func(site *studiokit.Site) {
		site.Blocks = upsertRef(site.Blocks, studiokit.Ref{ID: saved.ID, Name: saved.Name})
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *PostgresStore) SavePartial(ctx context.Context, partial *studiokit.Partial) (*studiokit.Partial, error) {
	saved := *partial
	insert := saved.ID == ""
	if insert {
		saved.ID = s.newID()
	}
	err := s.saveIndexed(ctx, s.tables.Partials, insert, saved.ID, saved.SiteID, saved.Name, &saved, func(site *studiokit.Site) {
		site.Partials = upsertRef(site.Partials, studiokit.Ref{ID: saved.ID, Name: saved.Name})
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (s *PostgresStore) CreatePage(ctx context.Context, page *studiokit.Page) (*studiokit.Page, error) {
	saved := clonePage(page)
	saved.ID = s.newID()
	err := s.saveIndexed(ctx, s.tables.Pages, true, saved.ID, saved.SiteID, saved.Name, saved, func(site *studiokit.Site) {
		site.Pages = append(site.Pages, studiokit.Ref{ID: saved.ID, Name: saved.Name})
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *PostgresStore) Close(ctx context.Context) error {
	s.pool.Close()
	return nil
}

// saveIndexed writes one record and updates the site index in a single transaction.
func (s *PostgresStore) saveIndexed(ctx context.Context, table string, insert bool, id, siteID, name string, record any, index func(*studiokit.Site)) error {
	doc, err := json.Marshal(record)
	if err != nil {
		return studiokit.NewInternalError("encode "+table, err)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return studiokit.NewTransactionError("begin transaction", err)
	}
	defer tx.Rollback(ctx) // no-op if committed

	if insert {
		query := fmt.Sprintf("INSERT INTO %s (id, site_id, name, doc, created_at) VALUES ($1, $2, $3, $4, $5)",
			sanitizeIdentifier(table))
		if _, err := tx.Exec(ctx, query, id, siteID, name, string(doc), s.nowMillis()); err != nil {
			return studiokit.NewStorageError("insert into "+table, err)
		}
	} else {
		query := fmt.Sprintf("UPDATE %s SET name = $2, doc = $3 WHERE id = $1 AND site_id = $4",
			sanitizeIdentifier(table))
		tag, err := tx.Exec(ctx, query, id, name, string(doc), siteID)
		if err != nil {
			return studiokit.NewStorageError("update "+table, err)
		}
		if tag.RowsAffected() == 0 {
			return studiokit.NewNotFoundError(table, id)
		}
	}

	if err := s.updateSiteIndex(ctx, tx, siteID, index); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return studiokit.NewTransactionError("commit transaction", err)
	}
	return nil
}

func (s *PostgresStore) updateSiteIndex(ctx context.Context, tx pgx.Tx, siteID string, mutate func(*studiokit.Site)) error {
	table := sanitizeIdentifier(s.tables.Sites)
	var doc string
	err := tx.QueryRow(ctx, fmt.Sprintf("SELECT doc FROM %s WHERE id = $1 FOR UPDATE", table), siteID).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return studiokit.NewNotFoundError("site", siteID)
		}
		return studiokit.NewStorageError("lock site", err)
	}
	var site studiokit.Site
	if err := json.Unmarshal([]byte(doc), &site); err != nil {
		return studiokit.NewStorageError("decode site", err)
	}
	site.ID = siteID
	mutate(&site)
	updated, err := json.Marshal(&site)
	if err != nil {
		return studiokit.NewInternalError("encode site", err)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("UPDATE %s SET doc = $2 WHERE id = $1", table), siteID, string(updated)); err != nil {
		return studiokit.NewStorageError("update site index", err)
	}
	return nil
}
