package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/Dmann24/quantina-core/internal/models"
	"github.com/Dmann24/quantina-core/internal/store/migrations"
)

// PostgresManager backs the stores with Postgres via the pgx stdlib
// driver. Migrations run on construction.
type PostgresManager struct {
	db          *sql.DB
	preferences *postgresPreferences
	messages    *postgresLog
}

// NewPostgresManager opens the database, runs migrations and wires the
// repositories.
func NewPostgresManager(dsn, defaultLanguage string) (*PostgresManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	m := &PostgresManager{
		db:          db,
		preferences: &postgresPreferences{db: db, defaultLanguage: defaultLanguage},
		messages:    &postgresLog{db: db},
	}

	if err := m.runMigrations(context.Background()); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return m, nil
}

func (m *PostgresManager) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, m.db, ".")
}

func (m *PostgresManager) Preferences() PreferenceStore { return m.preferences }
func (m *PostgresManager) Messages() MessageLog         { return m.messages }

func (m *PostgresManager) Close() error { return m.db.Close() }

type postgresPreferences struct {
	db              *sql.DB
	defaultLanguage string
}

func (s *postgresPreferences) Get(ctx context.Context, userID string) (string, error) {
	// Provision unknown users with the default so lookups never return
	// an absence.
	query := `
		INSERT INTO users (user_id, language) VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, query, userID, s.defaultLanguage); err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}

	var language string
	err := s.db.QueryRowContext(ctx,
		`SELECT language FROM users WHERE user_id = $1`, userID).Scan(&language)
	if err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}
	return language, nil
}

func (s *postgresPreferences) Set(ctx context.Context, userID, language string) error {
	query := `
		INSERT INTO users (user_id, language) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET language = EXCLUDED.language`
	if _, err := s.db.ExecContext(ctx, query, userID, language); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

type postgresLog struct {
	db *sql.DB
}

func (l *postgresLog) Append(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (sender_id, receiver_id, mode, original, translated,
			sender_language, receiver_language, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := l.db.QueryRowContext(ctx, query,
		msg.SenderID, msg.ReceiverID, string(msg.Mode), msg.Original, msg.Translated,
		msg.SenderLanguage, msg.ReceiverLanguage, msg.CreatedAt).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (l *postgresLog) Recent(ctx context.Context, limit int) ([]models.Message, error) {
	query := `
		SELECT id, sender_id, receiver_id, mode, original, translated,
			sender_language, receiver_language, created_at
		FROM messages
		ORDER BY id DESC
		LIMIT $1`

	rows, err := l.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var m models.Message
		var mode string
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &mode, &m.Original,
			&m.Translated, &m.SenderLanguage, &m.ReceiverLanguage, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		m.Mode = models.Mode(mode)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	// The query reads newest-first; callers expect newest-last.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
