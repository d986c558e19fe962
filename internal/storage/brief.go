package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/kovalyov-valentin/intelligence-brief/internal/model"
	"github.com/samber/lo"
)

const schema = `
CREATE TABLE IF NOT EXISTS briefs (
	id              TEXT PRIMARY KEY,
	brief_date      TIMESTAMPTZ NOT NULL,
	catch_up        TEXT NOT NULL,
	take            TEXT NOT NULL,
	body            TEXT NOT NULL,
	stories         JSONB NOT NULL DEFAULT '[]',
	items_scanned   INTEGER NOT NULL DEFAULT 0,
	sources_checked INTEGER NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS briefs_brief_date_idx ON briefs (brief_date DESC);
`

// BriefPostgresStorage archives generated briefs.
type BriefPostgresStorage struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewBriefPostgresStorage uses db as is. Call Init once to create the table.
func NewBriefPostgresStorage(db *sqlx.DB) *BriefPostgresStorage {
	return &BriefPostgresStorage{db: db, now: time.Now}
}

// Init creates the archive table if it does not exist yet.
func (s *BriefPostgresStorage) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create briefs table: %w", err)
	}
	return nil
}

// Store keeps a brief. A brief with a known id is left untouched.
func (s *BriefPostgresStorage) Store(ctx context.Context, brief model.ArchivedBrief) error {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	row, err := toDB(brief)
	if err != nil {
		return err
	}

	if _, err := conn.ExecContext(
		ctx,
		`INSERT INTO briefs (id, brief_date, catch_up, take, body, stories, items_scanned, sources_checked, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		row.ID,
		row.Date,
		row.CatchUp,
		row.Take,
		row.Body,
		string(row.Stories),
		row.ItemsScanned,
		row.SourcesChecked,
		row.CreatedAt,
	); err != nil {
		return fmt.Errorf("store brief %s: %w", brief.ID, err)
	}

	return nil
}

// Recent returns the briefs of the last days, newest first.
func (s *BriefPostgresStorage) Recent(ctx context.Context, days int) ([]model.ArchivedBrief, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var rows []dbBrief
	if err := conn.SelectContext(
		ctx,
		&rows,
		`SELECT * FROM briefs WHERE brief_date >= $1 ORDER BY brief_date DESC`,
		s.now().UTC().AddDate(0, 0, -days),
	); err != nil {
		return nil, fmt.Errorf("select recent briefs: %w", err)
	}

	return fromDBAll(rows)
}

// Search returns briefs whose text contains query, case-insensitively.
func (s *BriefPostgresStorage) Search(ctx context.Context, query string, limit int) ([]model.ArchivedBrief, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var rows []dbBrief
	if err := conn.SelectContext(
		ctx,
		&rows,
		`SELECT * FROM briefs WHERE body ILIKE $1 ESCAPE '\' ORDER BY brief_date DESC LIMIT $2`,
		"%"+escapeLike(query)+"%",
		limit,
	); err != nil {
		return nil, fmt.Errorf("search briefs: %w", err)
	}

	return fromDBAll(rows)
}

// Cleanup removes briefs older than the retention window and reports how
// many were deleted.
func (s *BriefPostgresStorage) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	res, err := conn.ExecContext(
		ctx,
		`DELETE FROM briefs WHERE brief_date < $1`,
		s.now().UTC().AddDate(0, 0, -retentionDays),
	)
	if err != nil {
		return 0, fmt.Errorf("cleanup briefs: %w", err)
	}

	return res.RowsAffected()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

type dbBrief struct {
	ID             string    `db:"id"`
	Date           time.Time `db:"brief_date"`
	CatchUp        string    `db:"catch_up"`
	Take           string    `db:"take"`
	Body           string    `db:"body"`
	Stories        []byte    `db:"stories"`
	ItemsScanned   int       `db:"items_scanned"`
	SourcesChecked int       `db:"sources_checked"`
	CreatedAt      time.Time `db:"created_at"`
}

func toDB(b model.ArchivedBrief) (dbBrief, error) {
	stories := b.Stories
	if stories == nil {
		stories = []model.ArchivedStory{}
	}

	raw, err := json.Marshal(stories)
	if err != nil {
		return dbBrief{}, fmt.Errorf("encode stories: %w", err)
	}

	return dbBrief{
		ID:             b.ID,
		Date:           b.Date.UTC(),
		CatchUp:        b.CatchUp,
		Take:           b.Take,
		Body:           b.Text,
		Stories:        raw,
		ItemsScanned:   b.ItemsScanned,
		SourcesChecked: b.SourcesChecked,
		CreatedAt:      b.CreatedAt.UTC(),
	}, nil
}

func fromDB(row dbBrief) (model.ArchivedBrief, error) {
	var stories []model.ArchivedStory
	if len(row.Stories) > 0 {
		if err := json.Unmarshal(row.Stories, &stories); err != nil {
			return model.ArchivedBrief{}, fmt.Errorf("decode stories of brief %s: %w", row.ID, err)
		}
	}

	return model.ArchivedBrief{
		ID:             row.ID,
		Date:           row.Date,
		CatchUp:        row.CatchUp,
		Take:           row.Take,
		Text:           row.Body,
		Stories:        stories,
		ItemsScanned:   row.ItemsScanned,
		SourcesChecked: row.SourcesChecked,
		CreatedAt:      row.CreatedAt,
	}, nil
}

func fromDBAll(rows []dbBrief) ([]model.ArchivedBrief, error) {
	var errs []error

	briefs := lo.FilterMap(rows, func(row dbBrief, _ int) (model.ArchivedBrief, bool) {
		b, err := fromDB(row)
		if err != nil {
			errs = append(errs, err)
			return model.ArchivedBrief{}, false
		}
		return b, true
	})

	if len(errs) > 0 {
		return briefs, errs[0]
	}

	return briefs, nil
}
