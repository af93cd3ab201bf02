// Package sqlite persists guess-the-word games in a SQLite database.
//
// A game is stored across three tables: games (state and the open round),
// game_players (seats in join order) and rounds (archived rounds in order).
// Guess maps are stored as JSON text.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"guess-the-word/internal/service/game"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

var ErrNotFound = errors.New("sqlite: game not found")

// Fixed width so that timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements service.GameRepository.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at path and applies the schema.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create data dir: %w", err)
		}
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}

	// Pragmas are per connection; one connection also serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migration: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS games (
			id            TEXT PRIMARY KEY,
			state         TEXT NOT NULL,
			current_round TEXT,
			created_at    TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at    TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_games_state ON games(state);

		CREATE TABLE IF NOT EXISTS game_players (
			game_id   TEXT    NOT NULL REFERENCES games(id) ON DELETE CASCADE,
			seat      INTEGER NOT NULL,
			player_id TEXT    NOT NULL,
			name      TEXT    NOT NULL,
			joined_at TEXT    NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (game_id, seat)
		);

		CREATE TABLE IF NOT EXISTS rounds (
			game_id      TEXT    NOT NULL REFERENCES games(id) ON DELETE CASCADE,
			round_number INTEGER NOT NULL,
			guesses      TEXT    NOT NULL,
			created_at   TEXT    NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (game_id, round_number)
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveGame writes the full snapshot in one transaction. Existing seats and
// archived rounds keep their original timestamps.
func (s *Store) SaveGame(ctx context.Context, snap game.Snapshot) error {
	var currentRound sql.NullString
	if snap.CurrentRound != nil {
		raw, err := json.Marshal(snap.CurrentRound)
		if err != nil {
			return fmt.Errorf("sqlite: encode current round: %w", err)
		}
		currentRound = sql.NullString{String: string(raw), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(timeLayout)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO games (id, state, current_round, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			current_round = excluded.current_round,
			updated_at = excluded.updated_at`,
		snap.ID, string(snap.State), currentRound, now, now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upsert game %s: %w", snap.ID, err)
	}

	for seat, p := range snap.Players {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO game_players (game_id, seat, player_id, name, joined_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(game_id, seat) DO UPDATE SET
				player_id = excluded.player_id,
				name = excluded.name`,
			snap.ID, seat, p.ID, p.Name, now,
		)
		if err != nil {
			return fmt.Errorf("sqlite: upsert player %s: %w", p.ID, err)
		}
	}

	if _, err = tx.ExecContext(ctx,
		`DELETE FROM game_players WHERE game_id = ? AND seat >= ?`, snap.ID, len(snap.Players),
	); err != nil {
		return fmt.Errorf("sqlite: trim players: %w", err)
	}

	for n, r := range snap.Rounds {
		raw, err := json.Marshal(r.Guesses)
		if err != nil {
			return fmt.Errorf("sqlite: encode round %d: %w", n, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO rounds (game_id, round_number, guesses, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(game_id, round_number) DO UPDATE SET guesses = excluded.guesses`,
			snap.ID, n, string(raw), now,
		)
		if err != nil {
			return fmt.Errorf("sqlite: upsert round %d: %w", n, err)
		}
	}

	if _, err = tx.ExecContext(ctx,
		`DELETE FROM rounds WHERE game_id = ? AND round_number >= ?`, snap.ID, len(snap.Rounds),
	); err != nil {
		return fmt.Errorf("sqlite: trim rounds: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}

	return nil
}

// LoadGame returns ErrNotFound when the id is unknown.
func (s *Store) LoadGame(ctx context.Context, id string) (game.Snapshot, error) {
	snaps, err := s.loadGames(ctx, `SELECT id, state, current_round FROM games WHERE id = ?`, id)
	if err != nil {
		return game.Snapshot{}, err
	}

	if len(snaps) == 0 {
		return game.Snapshot{}, ErrNotFound
	}

	return snaps[0], nil
}

// LoadGames returns games ordered by creation time. With no states every
// game is returned.
func (s *Store) LoadGames(ctx context.Context, states ...game.State) ([]game.Snapshot, error) {
	query := `SELECT id, state, current_round FROM games`
	args := make([]any, 0, len(states))

	if len(states) > 0 {
		placeholders := make([]string, 0, len(states))
		for _, st := range states {
			placeholders = append(placeholders, "?")
			args = append(args, string(st))
		}
		query += ` WHERE state IN (` + strings.Join(placeholders, ", ") + `)`
	}

	query += ` ORDER BY created_at, id`

	return s.loadGames(ctx, query, args...)
}

func (s *Store) loadGames(ctx context.Context, query string, args ...any) ([]game.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query games: %w", err)
	}

	var snaps []game.Snapshot
	for rows.Next() {
		var (
			snap         game.Snapshot
			state        string
			currentRound sql.NullString
		)

		if err := rows.Scan(&snap.ID, &state, &currentRound); err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scan game: %w", err)
		}

		snap.State = game.State(state)

		if currentRound.Valid {
			var round game.Round
			if err := json.Unmarshal([]byte(currentRound.String), &round); err != nil {
				rows.Close()
				return nil, fmt.Errorf("sqlite: decode current round of %s: %w", snap.ID, err)
			}
			snap.CurrentRound = &round
		}

		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite: iterate games: %w", err)
	}
	rows.Close()

	for i := range snaps {
		if err := s.loadChildren(ctx, &snaps[i]); err != nil {
			return nil, err
		}
	}

	return snaps, nil
}

func (s *Store) loadChildren(ctx context.Context, snap *game.Snapshot) error {
	players, err := s.loadPlayers(ctx, snap.ID)
	if err != nil {
		return err
	}

	rounds, err := s.loadRounds(ctx, snap.ID)
	if err != nil {
		return err
	}

	snap.Players = players
	snap.Rounds = rounds

	return nil
}

func (s *Store) loadPlayers(ctx context.Context, gameID string) ([]game.Player, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT player_id, name FROM game_players WHERE game_id = ? ORDER BY seat`, gameID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query players of %s: %w", gameID, err)
	}
	defer rows.Close()

	players := make([]game.Player, 0, game.MAX_PLAYERS)
	for rows.Next() {
		var p game.Player
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scan player: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate players: %w", err)
	}

	return players, nil
}

func (s *Store) loadRounds(ctx context.Context, gameID string) ([]game.Round, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT guesses FROM rounds WHERE game_id = ? ORDER BY round_number`, gameID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query rounds of %s: %w", gameID, err)
	}
	defer rows.Close()

	rounds := make([]game.Round, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("sqlite: scan round: %w", err)
		}

		round := game.Round{}
		if err := json.Unmarshal([]byte(raw), &round.Guesses); err != nil {
			return nil, fmt.Errorf("sqlite: decode round of %s: %w", gameID, err)
		}
		rounds = append(rounds, round)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate rounds: %w", err)
	}

	return rounds, nil
}

// DeleteGame removes a game and, through cascades, its players and rounds.
func (s *Store) DeleteGame(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete game %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete game %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}
