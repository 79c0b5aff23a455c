package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"tourplan/internal/model"
	"tourplan/internal/tour"
)

//go:embed schema.sql
var schema string

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// Migrate creates the tables when missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	return err
}

// Import upserts a dataset in one transaction.
func (p *Postgres) Import(ctx context.Context, ds Dataset) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, g := range ds.Groups {
		if g.ID == "" {
			g.ID = uuid.New().String()
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO groups (id, name, home, genres) VALUES ($1,$2,$3,$4)
            ON CONFLICT (id) DO UPDATE SET name=$2, home=$3, genres=$4`, g.ID, g.Name, g.Home, textArray(g.Genres)); err != nil {
			return fmt.Errorf("group %s: %w", g.ID, err)
		}
		for _, m := range g.Members {
			if _, err := tx.ExecContext(ctx, `INSERT INTO group_members (member_id, group_id) VALUES ($1,$2)
                ON CONFLICT (member_id) DO UPDATE SET group_id=$2`, m, g.ID); err != nil {
				return fmt.Errorf("member %s: %w", m, err)
			}
		}
		for _, v := range g.Favorites {
			if _, err := tx.ExecContext(ctx, `INSERT INTO favorite_venues (group_id, venue_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`, g.ID, v); err != nil {
				return fmt.Errorf("favorite %s: %w", v, err)
			}
		}
	}
	for _, v := range ds.Venues {
		if v.ID == "" {
			v.ID = uuid.New().String()
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO venues (id, name, location, capacity, genres, event_count) VALUES ($1,$2,$3,$4,$5,$6)
            ON CONFLICT (id) DO UPDATE SET name=$2, location=$3, capacity=$4, genres=$5, event_count=$6`,
			v.ID, v.Name, v.Location, v.Capacity, textArray(v.Genres), v.EventCount); err != nil {
			return fmt.Errorf("venue %s: %w", v.ID, err)
		}
	}
	for _, e := range ds.Events {
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		var until any
		if e.RecurUntil != nil {
			until = model.Day(*e.RecurUntil)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO events (id, venue_id, title, event_date, genres, status, accepting_applications, recurrence, recur_until)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
            ON CONFLICT (id) DO UPDATE SET venue_id=$2, title=$3, event_date=$4, genres=$5, status=$6, accepting_applications=$7, recurrence=$8, recur_until=$9`,
			e.ID, e.VenueID, e.Title, model.Day(e.Date), textArray(e.Genres), string(e.Status), e.AcceptingApplications, string(e.Recurrence), until); err != nil {
			return fmt.Errorf("event %s: %w", e.ID, err)
		}
	}
	for _, b := range ds.Blocks {
		if b.ID == "" {
			b.ID = uuid.New().String()
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO calendar_blocks (id, group_id, member_id, block_date, kind)
            VALUES ($1, COALESCE(NULLIF($2,''), (SELECT group_id FROM group_members WHERE member_id=$3), ''), $3, $4, $5)
            ON CONFLICT (id) DO NOTHING`, b.ID, b.GroupID, b.MemberID, model.Day(b.Date), string(b.Kind)); err != nil {
			return fmt.Errorf("block %s: %w", b.ID, err)
		}
	}
	for _, a := range ds.Applications {
		status := a.Status
		if status == "" {
			status = "applied"
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO applications (group_id, event_id, status) VALUES ($1,$2,$3)
            ON CONFLICT (group_id, event_id) DO UPDATE SET status=$3`, a.GroupID, a.EventID, status); err != nil {
			return fmt.Errorf("application %s/%s: %w", a.GroupID, a.EventID, err)
		}
	}
	return tx.Commit()
}

const venueColumns = `id, name, location, capacity, COALESCE(array_to_json(genres)::text, '[]'), event_count`

func (p *Postgres) ListVenues(ctx context.Context, f tour.VenueFilter) ([]model.Venue, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+venueColumns+` FROM venues
        WHERE (capacity <= 0 OR $1 <= 0 OR capacity >= $1)
          AND (capacity <= 0 OR $2 <= 0 OR capacity <= $2)
          AND NOT (id = ANY($3))
        ORDER BY id`, f.MinCapacity, f.MaxCapacity, textArray(f.ExcludeIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Venue{}
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (p *Postgres) GetVenue(ctx context.Context, id string) (model.Venue, error) {
	v, err := scanVenue(p.db.QueryRowContext(ctx, `SELECT `+venueColumns+` FROM venues WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return v, ErrNotFound
	}
	return v, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVenue(s scanner) (model.Venue, error) {
	var v model.Venue
	var genres string
	if err := s.Scan(&v.ID, &v.Name, &v.Location, &v.Capacity, &genres, &v.EventCount); err != nil {
		return v, err
	}
	var err error
	v.Genres, err = decodeStrings(genres)
	return v, err
}

func (p *Postgres) ListEvents(ctx context.Context, from, to time.Time) ([]model.Event, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, venue_id, title, event_date, COALESCE(array_to_json(genres)::text, '[]'),
            status, accepting_applications, recurrence, recur_until
        FROM events
        WHERE event_date <= $2
          AND (recurrence <> '' OR event_date >= $1)
          AND (recur_until IS NULL OR recur_until >= $1)
        ORDER BY event_date, id`, model.Day(from), model.Day(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Event{}
	for rows.Next() {
		var e model.Event
		var genres, status, recurrence string
		var until sql.NullTime
		if err := rows.Scan(&e.ID, &e.VenueID, &e.Title, &e.Date, &genres, &status, &e.AcceptingApplications, &recurrence, &until); err != nil {
			return nil, err
		}
		e.Date = model.Day(e.Date)
		e.Status = model.EventStatus(status)
		e.Recurrence = model.Recurrence(recurrence)
		if until.Valid {
			d := model.Day(until.Time)
			e.RecurUntil = &d
		}
		if e.Genres, err = decodeStrings(genres); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *Postgres) GetGroup(ctx context.Context, id string) (Group, error) {
	var g Group
	var genres string
	row := p.db.QueryRowContext(ctx, `SELECT id, name, home, COALESCE(array_to_json(genres)::text, '[]') FROM groups WHERE id=$1`, id)
	if err := row.Scan(&g.ID, &g.Name, &g.Home, &genres); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return g, ErrNotFound
		}
		return g, err
	}
	var err error
	if g.Genres, err = decodeStrings(genres); err != nil {
		return g, err
	}
	if g.Members, err = p.strings(ctx, `SELECT member_id FROM group_members WHERE group_id=$1 ORDER BY member_id`, id); err != nil {
		return g, err
	}
	g.Favorites, err = p.FavoriteVenueIDs(ctx, id)
	return g, err
}

func (p *Postgres) FavoriteVenueIDs(ctx context.Context, groupID string) ([]string, error) {
	return p.strings(ctx, `SELECT venue_id FROM favorite_venues WHERE group_id=$1 ORDER BY venue_id`, groupID)
}

func (p *Postgres) AppliedEventIDs(ctx context.Context, groupID string) ([]string, error) {
	return p.strings(ctx, `SELECT event_id FROM applications WHERE group_id=$1 AND status <> 'withdrawn' ORDER BY event_id`, groupID)
}

func (p *Postgres) IsGroupAvailable(ctx context.Context, groupID string, date time.Time) (model.Availability, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, kind FROM calendar_blocks WHERE group_id=$1 AND block_date=$2 ORDER BY id`, groupID, model.Day(date))
	if err != nil {
		return model.Availability{}, err
	}
	defer rows.Close()
	var blocks []Block
	for rows.Next() {
		var b Block
		var kind string
		if err := rows.Scan(&b.ID, &kind); err != nil {
			return model.Availability{}, err
		}
		b.Kind = BlockKind(kind)
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return model.Availability{}, err
	}
	return availabilityFrom(blocks), nil
}

func (p *Postgres) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// textArray passes a string slice as a text[] parameter; pgx encodes a
// non-nil []string natively.
func textArray(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

// decodeStrings reads an array rendered with array_to_json.
func decodeStrings(js string) ([]string, error) {
	if js == "" || js == "null" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(js), &out); err != nil {
		return nil, fmt.Errorf("decode text array: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
