package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/geobit/geobit/pkg/models"
)

type PgStore struct {
	db *sqlx.DB
}

func NewPgStore(db *sql.DB) *PgStore {
	return &PgStore{db: sqlx.NewDb(db, "postgres")}
}

func RunMigrations(db *sql.DB) error {
	initSQL := `
CREATE TABLE IF NOT EXISTS articles(
  id TEXT PRIMARY KEY,
  title TEXT,
  url TEXT,
  published_at TIMESTAMP,
  source TEXT,
  summary TEXT,
  category TEXT,
  interest_score INTEGER DEFAULT 0,
  source_id TEXT,
  model TEXT,
  first_seen_at TIMESTAMP NOT NULL DEFAULT now(),
  last_seen_at TIMESTAMP NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_at);
CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category);
CREATE INDEX IF NOT EXISTS idx_articles_source_id ON articles(source_id);

CREATE TABLE IF NOT EXISTS content_sources(
  id UUID PRIMARY KEY,
  name TEXT NOT NULL,
  site TEXT,
  keywords TEXT,
  enabled BOOLEAN NOT NULL DEFAULT TRUE,
  added_at TIMESTAMP NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS content_collections(
  id UUID PRIMARY KEY,
  source_ids JSONB NOT NULL DEFAULT '[]',
  status TEXT NOT NULL,
  content_count INTEGER NOT NULL DEFAULT 0,
  errors JSONB NOT NULL DEFAULT '[]',
  started_at TIMESTAMP NOT NULL,
  completed_at TIMESTAMP
);
`
	_, err := db.Exec(initSQL)
	return err
}

// ArticleID derives a stable document id from an article's normalized
// URL, so the same story found by different searches lands on the same
// row. Articles without a usable URL get a random id instead.
func ArticleID(url string) string {
	if url == "" {
		return uuid.New().String()
	}
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:16])
}

// UpsertArticles writes articles keyed by URL hash. Conflicts merge: the
// incoming fields win but first_seen_at is preserved, keeping cross-search
// provenance instead of overwriting it.
func (p *PgStore) UpsertArticles(ctx context.Context, articles []models.Article) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	stmt := `
INSERT INTO articles (id, title, url, published_at, source, summary, category, interest_score, source_id, model, first_seen_at, last_seen_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now(),now())
ON CONFLICT (id) DO UPDATE SET
 title=EXCLUDED.title,
 published_at=EXCLUDED.published_at,
 source=EXCLUDED.source,
 summary=EXCLUDED.summary,
 category=EXCLUDED.category,
 interest_score=GREATEST(articles.interest_score, EXCLUDED.interest_score),
 source_id=COALESCE(NULLIF(EXCLUDED.source_id,''), articles.source_id),
 model=COALESCE(NULLIF(EXCLUDED.model,''), articles.model),
 last_seen_at=now();
`

	for i := range articles {
		a := &articles[i]
		if a.ID == "" {
			a.ID = ArticleID(a.URL)
		}
		if a.PublishedAt.IsZero() {
			a.PublishedAt = time.Now().UTC()
		}

		_, err := tx.ExecContext(ctx, stmt,
			a.ID,
			a.Title,
			a.URL,
			a.PublishedAt,
			a.Source,
			a.Summary,
			a.Category,
			a.InterestScore,
			a.SourceID,
			a.Model,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("upsert article id=%s: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

func (p *PgStore) RecentArticles(ctx context.Context, limit, offset int) ([]models.Article, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows := []models.Article{}
	query := `
SELECT id,title,url,published_at,source,summary,category,interest_score,source_id,model
FROM articles
ORDER BY published_at DESC
LIMIT $1 OFFSET $2
`
	err := p.db.SelectContext(ctx, &rows, query, limit, offset)
	return rows, err
}

func (p *PgStore) CountArticles(ctx context.Context) (int, error) {
	var n int
	err := p.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM articles`)
	return n, err
}

// --- content sources ---

func (p *PgStore) CreateSource(ctx context.Context, s *models.ContentSource) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.AddedAt.IsZero() {
		s.AddedAt = time.Now().UTC()
	}
	_, err := p.db.ExecContext(ctx, `
INSERT INTO content_sources (id, name, site, keywords, enabled, added_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, s.ID, s.Name, s.Site, s.Keywords, s.Enabled, s.AddedAt)
	return err
}

func (p *PgStore) ListSources(ctx context.Context) ([]models.ContentSource, error) {
	rows := []models.ContentSource{}
	err := p.db.SelectContext(ctx, &rows, `
SELECT id, name, site, keywords, enabled, added_at
FROM content_sources
ORDER BY added_at DESC
`)
	return rows, err
}

func (p *PgStore) GetSources(ctx context.Context, ids []string) ([]models.ContentSource, error) {
	if len(ids) == 0 {
		return []models.ContentSource{}, nil
	}
	query, args, err := sqlx.In(`
SELECT id, name, site, keywords, enabled, added_at
FROM content_sources
WHERE id IN (?)
`, ids)
	if err != nil {
		return nil, err
	}
	rows := []models.ContentSource{}
	err = p.db.SelectContext(ctx, &rows, p.db.Rebind(query), args...)
	return rows, err
}

func (p *PgStore) DeleteSource(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM content_sources WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// --- content collections ---

func (p *PgStore) CreateCollection(ctx context.Context, c *models.ContentCollection) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.StartedAt.IsZero() {
		c.StartedAt = time.Now().UTC()
	}
	_, err := p.db.ExecContext(ctx, `
INSERT INTO content_collections (id, source_ids, status, content_count, errors, started_at, completed_at)
VALUES ($1,$2::jsonb,$3,$4,$5::jsonb,$6,$7)
`, c.ID, c.SourceIDs, c.Status, c.ContentCount, c.Errors, c.StartedAt, c.CompletedAt)
	return err
}

func (p *PgStore) UpdateCollection(ctx context.Context, c *models.ContentCollection) error {
	_, err := p.db.ExecContext(ctx, `
UPDATE content_collections
SET status=$2, content_count=$3, errors=$4::jsonb, completed_at=$5
WHERE id=$1
`, c.ID, c.Status, c.ContentCount, c.Errors, c.CompletedAt)
	return err
}

func (p *PgStore) GetCollection(ctx context.Context, id string) (*models.ContentCollection, error) {
	var c models.ContentCollection
	err := p.db.GetContext(ctx, &c, `
SELECT id, source_ids, status, content_count, errors, started_at, completed_at
FROM content_collections
WHERE id = $1
`, id)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
