// sql.go — Template slot and member profiles in PostgreSQL or MySQL.
package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/xob0t/CardStencil/internal/logging"
	"github.com/xob0t/CardStencil/pkg/member"
	"github.com/xob0t/CardStencil/pkg/template"
)

// Dialect selects the SQL driver and placeholder style.
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

func (d Dialect) driver() string {
	if d == MySQL {
		return "mysql"
	}
	return "pgx"
}

// placeholder returns the i-th (1-based) bind parameter.
func (d Dialect) placeholder(i int) string {
	if d == MySQL {
		return "?"
	}
	return fmt.Sprintf("$%d", i)
}

// bind rewrites "?" markers in q to the dialect's placeholders.
func (d Dialect) bind(q string) string {
	if d == MySQL {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString(d.placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLStore implements TemplateStore and MemberSource.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

var (
	_ TemplateStore = (*SQLStore)(nil)
	_ MemberSource  = (*SQLStore)(nil)
)

// OpenSQL opens and pings a database. For MySQL the DSN must enable
// parseTime.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	switch dialect {
	case Postgres, MySQL:
	default:
		return nil, fmt.Errorf("unsupported SQL dialect %q", dialect)
	}

	db, err := sql.Open(dialect.driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logging.Logger().Info("database connection established", "dialect", string(dialect))
	return NewSQLStore(db, dialect), nil
}

// NewSQLStore wraps an open database.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Migrate creates the tables if they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	jsonType := "JSONB"
	if s.dialect == MySQL {
		jsonType = "JSON"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS card_templates (
			id         VARCHAR(64) PRIMARY KEY,
			name       VARCHAR(255) NOT NULL,
			template   ` + jsonType + ` NOT NULL,
			is_active  BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS members (
			id                VARCHAR(64) PRIMARY KEY,
			membership_id     VARCHAR(64) NOT NULL UNIQUE,
			full_name         VARCHAR(255) NOT NULL,
			email             VARCHAR(255) NOT NULL DEFAULT '',
			whatsapp_number   VARCHAR(64) NOT NULL DEFAULT '',
			designation       VARCHAR(255) NOT NULL DEFAULT '',
			district          VARCHAR(255) NOT NULL DEFAULT '',
			complete_address  TEXT,
			area_of_interest  VARCHAR(255) NOT NULL DEFAULT '',
			education_level   VARCHAR(255) NOT NULL DEFAULT '',
			degree_institute  VARCHAR(255) NOT NULL DEFAULT '',
			profile_photo_url TEXT
		)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) Load(ctx context.Context) (*template.Template, error) {
	q := s.dialect.bind(`SELECT template FROM card_templates WHERE is_active = ? ORDER BY updated_at DESC LIMIT 1`)
	var data []byte
	err := s.db.QueryRowContext(ctx, q, true).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load active template: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load active template: %w", err)
	}
	return template.Parse(data)
}

// Save replaces the active template, inserting the row on first save.
func (s *SQLStore) Save(ctx context.Context, t *template.Template) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode template: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		s.dialect.bind(`UPDATE card_templates SET template = ?, updated_at = ? WHERE is_active = ?`),
		string(data), now, true)
	if err != nil {
		return fmt.Errorf("update active template: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("update active template: %w", err)
	} else if n == 0 {
		_, err = tx.ExecContext(ctx,
			s.dialect.bind(`INSERT INTO card_templates (id, name, template, is_active, updated_at) VALUES (?, ?, ?, ?, ?)`),
			newID(), "Membership card", string(data), true, now)
		if err != nil {
			return fmt.Errorf("insert active template: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit template: %w", err)
	}
	return nil
}

// Member looks up a profile by membership number, then by row id.
func (s *SQLStore) Member(ctx context.Context, id string) (member.Member, error) {
	q := s.dialect.bind(`SELECT id, membership_id, full_name, email, whatsapp_number,
		designation, district, COALESCE(complete_address, ''), area_of_interest,
		education_level, degree_institute, COALESCE(profile_photo_url, '')
		FROM members WHERE membership_id = ? OR id = ? LIMIT 1`)

	var m member.Member
	err := s.db.QueryRowContext(ctx, q, id, id).Scan(
		&m.ID, &m.MembershipID, &m.FullName, &m.Email, &m.WhatsAppNumber,
		&m.Designation, &m.District, &m.CompleteAddress, &m.AreaOfInterest,
		&m.EducationLevel, &m.DegreeInstitute, &m.ProfilePhotoURL,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return member.Member{}, fmt.Errorf("member %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return member.Member{}, fmt.Errorf("member %q: %w", id, err)
	}
	return m, nil
}

// SaveMember inserts or replaces a profile. The registration system owns
// member data; this exists for seeding and tests.
func (s *SQLStore) SaveMember(ctx context.Context, m member.Member) error {
	if m.ID == "" {
		m.ID = newID()
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.bind(`DELETE FROM members WHERE id = ? OR membership_id = ?`), m.ID, m.MembershipID); err != nil {
		return fmt.Errorf("save member: %w", err)
	}
	_, err := s.db.ExecContext(ctx, s.dialect.bind(`INSERT INTO members (id, membership_id, full_name, email,
		whatsapp_number, designation, district, complete_address, area_of_interest,
		education_level, degree_institute, profile_photo_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		m.ID, m.MembershipID, m.FullName, m.Email, m.WhatsAppNumber, m.Designation,
		m.District, m.CompleteAddress, m.AreaOfInterest, m.EducationLevel,
		m.DegreeInstitute, m.ProfilePhotoURL)
	if err != nil {
		return fmt.Errorf("save member: %w", err)
	}
	return nil
}

func newID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
