// Package pgstore is the relational half of the persistence façade:
// programs and their waypoint bodies, which are naturally tabular.
// Grounded on the original Rust source's database.rs schema (programs,
// program_instructions) but opened through database/sql with lib/pq
// rather than rusqlite, and targeting Postgres instead of SQLite.
package pgstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/fanuc-rmi/rmigateway/internal/store"
)

// Store is the Postgres-backed implementation of store.ProgramStore.
type Store struct {
	db *sql.DB
}

// New opens dsn and verifies reachability with a Ping, then ensures the
// schema exists.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("postgres connection failed: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS programs (
			id                 TEXT PRIMARY KEY,
			name               TEXT NOT NULL UNIQUE,
			description        TEXT NOT NULL DEFAULT '',
			default_w          DOUBLE PRECISION NOT NULL DEFAULT 0,
			default_p          DOUBLE PRECISION NOT NULL DEFAULT 0,
			default_r          DOUBLE PRECISION NOT NULL DEFAULT 0,
			default_speed      DOUBLE PRECISION NOT NULL DEFAULT 0,
			default_speed_type TEXT NOT NULL DEFAULT 'mmSec',
			default_term_type  TEXT NOT NULL DEFAULT 'CNT',
			default_uframe     SMALLINT,
			default_utool      SMALLINT,
			start_x, start_y, start_z DOUBLE PRECISION,
			end_x, end_y, end_z       DOUBLE PRECISION,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS program_waypoints (
			program_id  TEXT NOT NULL REFERENCES programs(id) ON DELETE CASCADE,
			line_number INTEGER NOT NULL,
			x, y, z     DOUBLE PRECISION NOT NULL,
			w, p, r     DOUBLE PRECISION,
			ext1, ext2, ext3 DOUBLE PRECISION,
			speed       DOUBLE PRECISION,
			term_type   TEXT,
			uframe      SMALLINT,
			utool       SMALLINT,
			PRIMARY KEY (program_id, line_number)
		);
	`)
	return err
}

func (s *Store) ListPrograms(ctx context.Context) ([]store.Program, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description, default_w, default_p, default_r,
		default_speed, default_speed_type, default_term_type, default_uframe, default_utool,
		start_x, start_y, start_z, end_x, end_y, end_z, created_at, updated_at FROM programs ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	defer rows.Close()

	var out []store.Program
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	for i := range out {
		waypoints, err := s.loadWaypoints(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Waypoints = waypoints
	}
	return out, rows.Err()
}

func (s *Store) GetProgram(ctx context.Context, id string) (store.Program, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, description, default_w, default_p, default_r,
		default_speed, default_speed_type, default_term_type, default_uframe, default_utool,
		start_x, start_y, start_z, end_x, end_y, end_z, created_at, updated_at FROM programs WHERE id = $1`, id)
	p, err := scanProgram(row)
	if err != nil {
		return store.Program{}, fmt.Errorf("get program %s: %w", id, err)
	}
	waypoints, err := s.loadWaypoints(ctx, id)
	if err != nil {
		return store.Program{}, err
	}
	p.Waypoints = waypoints
	return p, nil
}

func (s *Store) CreateProgram(ctx context.Context, p store.Program) (store.Program, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.Program{}, err
	}
	defer tx.Rollback()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	if err := insertProgram(ctx, tx, p); err != nil {
		return store.Program{}, fmt.Errorf("create program: %w", err)
	}
	if err := replaceWaypoints(ctx, tx, p.ID, p.Waypoints); err != nil {
		return store.Program{}, err
	}
	if err := tx.Commit(); err != nil {
		return store.Program{}, err
	}
	return p, nil
}

func (s *Store) UpdateProgram(ctx context.Context, p store.Program) (store.Program, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.Program{}, err
	}
	defer tx.Rollback()

	p.UpdatedAt = time.Now()
	_, err = tx.ExecContext(ctx, `UPDATE programs SET name=$2, description=$3, default_w=$4, default_p=$5,
		default_r=$6, default_speed=$7, default_speed_type=$8, default_term_type=$9, default_uframe=$10,
		default_utool=$11, start_x=$12, start_y=$13, start_z=$14, end_x=$15, end_y=$16, end_z=$17, updated_at=$18
		WHERE id=$1`,
		p.ID, p.Name, p.Description, p.DefaultW, p.DefaultP, p.DefaultR, p.DefaultSpeed, p.DefaultSpeedType,
		p.DefaultTermType, p.DefaultUFrame, p.DefaultUTool, startCoord(p.StartPosition, 0), startCoord(p.StartPosition, 1),
		startCoord(p.StartPosition, 2), startCoord(p.EndPosition, 0), startCoord(p.EndPosition, 1), startCoord(p.EndPosition, 2),
		p.UpdatedAt)
	if err != nil {
		return store.Program{}, fmt.Errorf("update program: %w", err)
	}
	if err := replaceWaypoints(ctx, tx, p.ID, p.Waypoints); err != nil {
		return store.Program{}, err
	}
	if err := tx.Commit(); err != nil {
		return store.Program{}, err
	}
	return p, nil
}

func (s *Store) DeleteProgram(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM programs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete program %s: %w", id, err)
	}
	return nil
}

func insertProgram(ctx context.Context, tx *sql.Tx, p store.Program) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO programs (id, name, description, default_w, default_p, default_r,
		default_speed, default_speed_type, default_term_type, default_uframe, default_utool,
		start_x, start_y, start_z, end_x, end_y, end_z, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		p.ID, p.Name, p.Description, p.DefaultW, p.DefaultP, p.DefaultR, p.DefaultSpeed, p.DefaultSpeedType,
		p.DefaultTermType, p.DefaultUFrame, p.DefaultUTool, startCoord(p.StartPosition, 0), startCoord(p.StartPosition, 1),
		startCoord(p.StartPosition, 2), startCoord(p.EndPosition, 0), startCoord(p.EndPosition, 1), startCoord(p.EndPosition, 2),
		p.CreatedAt, p.UpdatedAt)
	return err
}

func replaceWaypoints(ctx context.Context, tx *sql.Tx, programID string, waypoints []store.ProgramWaypoint) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM program_waypoints WHERE program_id = $1`, programID); err != nil {
		return fmt.Errorf("clear waypoints: %w", err)
	}
	for _, wp := range waypoints {
		_, err := tx.ExecContext(ctx, `INSERT INTO program_waypoints
			(program_id, line_number, x, y, z, w, p, r, ext1, ext2, ext3, speed, term_type, uframe, utool)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
			programID, wp.LineNumber, wp.X, wp.Y, wp.Z, wp.W, wp.P, wp.R, wp.Ext1, wp.Ext2, wp.Ext3, wp.Speed,
			wp.TermType, wp.UFrame, wp.UTool)
		if err != nil {
			return fmt.Errorf("insert waypoint line %d: %w", wp.LineNumber, err)
		}
	}
	return nil
}

func (s *Store) loadWaypoints(ctx context.Context, programID string) ([]store.ProgramWaypoint, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT line_number, x, y, z, w, p, r, ext1, ext2, ext3, speed,
		term_type, uframe, utool FROM program_waypoints WHERE program_id = $1 ORDER BY line_number`, programID)
	if err != nil {
		return nil, fmt.Errorf("load waypoints: %w", err)
	}
	defer rows.Close()

	var out []store.ProgramWaypoint
	for rows.Next() {
		var wp store.ProgramWaypoint
		if err := rows.Scan(&wp.LineNumber, &wp.X, &wp.Y, &wp.Z, &wp.W, &wp.P, &wp.R, &wp.Ext1, &wp.Ext2, &wp.Ext3,
			&wp.Speed, &wp.TermType, &wp.UFrame, &wp.UTool); err != nil {
			return nil, fmt.Errorf("scan waypoint: %w", err)
		}
		out = append(out, wp)
	}
	return out, rows.Err()
}

// rowScanner abstracts *sql.Row and *sql.Rows so scanProgram serves both
// GetProgram (single row) and ListPrograms (row set).
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgram(r rowScanner) (store.Program, error) {
	var p store.Program
	var startX, startY, startZ, endX, endY, endZ sql.NullFloat64
	var defaultUFrame, defaultUTool sql.NullInt16
	if err := r.Scan(&p.ID, &p.Name, &p.Description, &p.DefaultW, &p.DefaultP, &p.DefaultR, &p.DefaultSpeed,
		&p.DefaultSpeedType, &p.DefaultTermType, &defaultUFrame, &defaultUTool,
		&startX, &startY, &startZ, &endX, &endY, &endZ, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return store.Program{}, err
	}
	if defaultUFrame.Valid {
		v := int8(defaultUFrame.Int16)
		p.DefaultUFrame = &v
	}
	if defaultUTool.Valid {
		v := int8(defaultUTool.Int16)
		p.DefaultUTool = &v
	}
	if startX.Valid && startY.Valid && startZ.Valid {
		p.StartPosition = &store.ProgramPosition{X: startX.Float64, Y: startY.Float64, Z: startZ.Float64}
	}
	if endX.Valid && endY.Valid && endZ.Valid {
		p.EndPosition = &store.ProgramPosition{X: endX.Float64, Y: endY.Float64, Z: endZ.Float64}
	}
	return p, nil
}

func startCoord(pos *store.ProgramPosition, axis int) any {
	if pos == nil {
		return nil
	}
	switch axis {
	case 0:
		return pos.X
	case 1:
		return pos.Y
	default:
		return pos.Z
	}
}
