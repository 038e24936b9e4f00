package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Supported database/sql driver names
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// SQLStore implements Store on database/sql. Queries use $N placeholders in order of
// first appearance, which both SQLite and PostgreSQL accept.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// Open connects to the database and applies the schema
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	switch driver {
	case DriverSQLite:
		dsn = sqliteDSN(dsn)
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if driver == DriverSQLite {
		// one connection serializes writers
		db.SetMaxOpenConns(1)
	} else {
		db.SetConnMaxIdleTime(5 * time.Minute)
		db.SetConnMaxLifetime(30 * time.Minute)
		db.SetMaxIdleConns(10)
		db.SetMaxOpenConns(20)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &SQLStore{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// sqliteDSN appends the connection options to path, which may already carry a query
func sqliteDSN(path string) string {
	const opts = "_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
	if strings.Contains(path, "?") {
		return path + "&" + opts
	}
	return path + "?" + opts
}

// NewSQLiteStore opens a SQLite database file
func NewSQLiteStore(path string) (*SQLStore, error) {
	return Open(context.Background(), DriverSQLite, path)
}

func (s *SQLStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS debates (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		author TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT 'other',
		rebuttal_title TEXT,
		rebuttal_content TEXT,
		rebuttal_author TEXT,
		rebuttal_at TIMESTAMP,
		author_votes INTEGER NOT NULL DEFAULT 0,
		rebuttal_votes INTEGER NOT NULL DEFAULT 0,
		winner TEXT,
		is_closed BOOLEAN NOT NULL DEFAULT FALSE,
		closed_at TIMESTAMP,
		likes INTEGER NOT NULL DEFAULT 0,
		dislikes INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_debates_created_at ON debates(created_at);
	CREATE INDEX IF NOT EXISTS idx_debates_open_rebuttals ON debates(is_closed, rebuttal_at);

	CREATE TABLE IF NOT EXISTS debate_voters (
		debate_id TEXT NOT NULL REFERENCES debates(id) ON DELETE CASCADE,
		voter TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (debate_id, voter)
	);

	CREATE TABLE IF NOT EXISTS comments (
		id TEXT PRIMARY KEY,
		debate_id TEXT NOT NULL REFERENCES debates(id) ON DELETE CASCADE,
		parent_id TEXT REFERENCES comments(id) ON DELETE CASCADE,
		author TEXT NOT NULL,
		text TEXT NOT NULL,
		ip_address TEXT,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_comments_debate_id ON comments(debate_id);
	CREATE INDEX IF NOT EXISTS idx_comments_parent_id ON comments(parent_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Debates

const debateColumns = `id, title, content, author, category, rebuttal_title, rebuttal_content,
	rebuttal_author, rebuttal_at, author_votes, rebuttal_votes, winner, is_closed, closed_at,
	likes, dislikes, created_at`

func (s *SQLStore) SaveDebate(ctx context.Context, d *Debate) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO debates (`+debateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			author = excluded.author,
			category = excluded.category,
			rebuttal_title = excluded.rebuttal_title,
			rebuttal_content = excluded.rebuttal_content,
			rebuttal_author = excluded.rebuttal_author,
			rebuttal_at = excluded.rebuttal_at,
			author_votes = excluded.author_votes,
			rebuttal_votes = excluded.rebuttal_votes,
			winner = excluded.winner,
			is_closed = excluded.is_closed,
			closed_at = excluded.closed_at,
			likes = excluded.likes,
			dislikes = excluded.dislikes
	`, d.ID, d.Title, d.Content, d.Author, string(d.Category),
		nullString(d.RebuttalTitle), nullString(d.RebuttalContent), nullString(d.RebuttalAuthor),
		nullTime(d.RebuttalAt), d.AuthorVotes, d.RebuttalVotes, nullString(string(d.Winner)),
		d.IsClosed, nullTime(d.ClosedAt), d.Likes, d.Dislikes, d.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert debate: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM debate_voters WHERE debate_id = $1`, d.ID); err != nil {
		return fmt.Errorf("clear voters: %w", err)
	}
	for i, voter := range d.Voters {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO debate_voters (debate_id, voter, position) VALUES ($1, $2, $3)
		`, d.ID, voter, i)
		if err != nil {
			return fmt.Errorf("insert voter: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLStore) FindDebate(ctx context.Context, id string) (*Debate, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+debateColumns+` FROM debates WHERE id = $1`, id)

	d, err := scanDebate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	voters, err := s.loadVoters(ctx, `WHERE debate_id = $1`, id)
	if err != nil {
		return nil, err
	}
	d.Voters = voters[d.ID]
	if d.Voters == nil {
		d.Voters = []string{}
	}
	return d, nil
}

func (s *SQLStore) FindAllDebates(ctx context.Context) ([]*Debate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+debateColumns+` FROM debates ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}

	var debates []*Debate
	for rows.Next() {
		d, err := scanDebate(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		debates = append(debates, d)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	// rows must be closed first: SQLite runs on a single connection
	voters, err := s.loadVoters(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, d := range debates {
		d.Voters = voters[d.ID]
		if d.Voters == nil {
			d.Voters = []string{}
		}
	}

	return debates, nil
}

func (s *SQLStore) loadVoters(ctx context.Context, where string, args ...any) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT debate_id, voter FROM debate_voters `+where+` ORDER BY debate_id, position
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	voters := make(map[string][]string)
	for rows.Next() {
		var debateID, voter string
		if err := rows.Scan(&debateID, &voter); err != nil {
			return nil, err
		}
		voters[debateID] = append(voters[debateID], voter)
	}
	return voters, rows.Err()
}

func (s *SQLStore) DeleteDebate(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		`DELETE FROM comments WHERE debate_id = $1`,
		`DELETE FROM debate_voters WHERE debate_id = $1`,
		`DELETE FROM debates WHERE id = $1`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete debate: %w", err)
		}
	}

	return tx.Commit()
}

// Comments

const commentColumns = `id, debate_id, parent_id, author, text, ip_address, created_at`

func (s *SQLStore) SaveComment(ctx context.Context, c *Comment) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (`+commentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.DebateID, nullString(c.ParentID), c.Author, c.Text,
		nullString(c.IPAddress), c.CreatedAt.UTC())

	return err
}

func (s *SQLStore) FindTopLevelComments(ctx context.Context, debateID string) ([]*Comment, error) {
	return s.queryComments(ctx, `WHERE debate_id = $1 AND parent_id IS NULL`, debateID)
}

func (s *SQLStore) FindCommentsByParent(ctx context.Context, parentID string) ([]*Comment, error) {
	return s.queryComments(ctx, `WHERE parent_id = $1`, parentID)
}

func (s *SQLStore) FindCommentsByDebate(ctx context.Context, debateID string) ([]*Comment, error) {
	return s.queryComments(ctx, `WHERE debate_id = $1`, debateID)
}

func (s *SQLStore) FindCommentInDebate(ctx context.Context, id, debateID string) (*Comment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+commentColumns+` FROM comments WHERE id = $1 AND debate_id = $2
	`, id, debateID)

	c, err := scanComment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (s *SQLStore) queryComments(ctx context.Context, where string, args ...any) ([]*Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+commentColumns+` FROM comments `+where+` ORDER BY created_at ASC, id ASC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []*Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (s *SQLStore) DeleteComments(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete comment %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// Helpers

type scanner interface {
	Scan(dest ...any) error
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func scanDebate(row scanner) (*Debate, error) {
	var d Debate
	var category string
	var rebuttalTitle, rebuttalContent, rebuttalAuthor, winner sql.NullString
	var rebuttalAt, closedAt sql.NullTime

	err := row.Scan(&d.ID, &d.Title, &d.Content, &d.Author, &category,
		&rebuttalTitle, &rebuttalContent, &rebuttalAuthor, &rebuttalAt,
		&d.AuthorVotes, &d.RebuttalVotes, &winner, &d.IsClosed, &closedAt,
		&d.Likes, &d.Dislikes, &d.CreatedAt)
	if err != nil {
		return nil, err
	}

	d.Category = Category(category)
	d.RebuttalTitle = rebuttalTitle.String
	d.RebuttalContent = rebuttalContent.String
	d.RebuttalAuthor = rebuttalAuthor.String
	d.RebuttalAt = timePtr(rebuttalAt)
	d.Winner = Winner(winner.String)
	d.ClosedAt = timePtr(closedAt)
	d.CreatedAt = d.CreatedAt.UTC()

	return &d, nil
}

func scanComment(row scanner) (*Comment, error) {
	var c Comment
	var parentID, ipAddress sql.NullString

	err := row.Scan(&c.ID, &c.DebateID, &parentID, &c.Author, &c.Text, &ipAddress, &c.CreatedAt)
	if err != nil {
		return nil, err
	}

	c.ParentID = parentID.String
	c.IPAddress = ipAddress.String
	c.CreatedAt = c.CreatedAt.UTC()

	return &c, nil
}

// Ensure SQLStore implements Store
var _ Store = (*SQLStore)(nil)
