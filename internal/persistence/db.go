// Package persistence provides SQLite-based storage for swarm runs.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/belief-swarm/internal/agents"
	"github.com/talgya/belief-swarm/internal/engine"
	"github.com/talgya/belief-swarm/internal/evolution"
)

// Metadata keys.
const (
	MetaRunID      = "run_id"
	MetaLastTick   = "last_tick"
	MetaMode       = "mode"
	MetaSeed       = "seed"
	MetaCheckpoint = "checkpoint"
	MetaEventsSeq  = "events_seq"
)

// DB wraps a SQLite connection for run persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		seed INTEGER NOT NULL,
		started_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS agents (
		id INTEGER PRIMARY KEY,
		type INTEGER NOT NULL,
		pos_x REAL NOT NULL,
		pos_y REAL NOT NULL,
		vel_x REAL NOT NULL,
		vel_y REAL NOT NULL,
		proximity_radius REAL NOT NULL,
		color_r REAL NOT NULL,
		color_g REAL NOT NULL,
		color_b REAL NOT NULL,
		fixed_json TEXT,
		genome_json TEXT,
		fitness REAL NOT NULL,
		belief_strength REAL NOT NULL,
		learning_rate REAL NOT NULL,
		age INTEGER NOT NULL,
		generation INTEGER NOT NULL,
		game_json TEXT,
		culture_json TEXT
	);

	CREATE TABLE IF NOT EXISTS stats_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		stats_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS frames (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		frame_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_stats_run_tick ON stats_history(run_id, tick);
	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_frames_run_tick ON frames(run_id, tick);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Run describes one simulation run.
type Run struct {
	ID        string `db:"id" json:"id"`
	Mode      string `db:"mode" json:"mode"`
	Seed      int64  `db:"seed" json:"seed"`
	StartedAt string `db:"started_at" json:"started_at"`
}

// StartRun registers a new run and makes it the current one.
func (db *DB) StartRun(mode evolution.Kind, seed int64) (string, error) {
	id := uuid.NewString()
	_, err := db.conn.Exec(
		"INSERT INTO runs (id, mode, seed, started_at) VALUES (?, ?, ?, ?)",
		id, string(mode), seed, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	if err := db.SaveMeta(MetaRunID, id); err != nil {
		return "", err
	}
	if err := db.SaveMeta(MetaMode, string(mode)); err != nil {
		return "", err
	}
	if err := db.SaveMeta(MetaSeed, strconv.FormatInt(seed, 10)); err != nil {
		return "", err
	}
	return id, nil
}

// GetRun looks up a run by ID.
func (db *DB) GetRun(id string) (Run, error) {
	var r Run
	err := db.conn.Get(&r, "SELECT id, mode, seed, started_at FROM runs WHERE id = ?", id)
	return r, err
}

type agentRow struct {
	ID              uint64         `db:"id"`
	Type            uint8          `db:"type"`
	PosX            float64        `db:"pos_x"`
	PosY            float64        `db:"pos_y"`
	VelX            float64        `db:"vel_x"`
	VelY            float64        `db:"vel_y"`
	ProximityRadius float64        `db:"proximity_radius"`
	ColorR          float64        `db:"color_r"`
	ColorG          float64        `db:"color_g"`
	ColorB          float64        `db:"color_b"`
	FixedJSON       sql.NullString `db:"fixed_json"`
	GenomeJSON      sql.NullString `db:"genome_json"`
	Fitness         float64        `db:"fitness"`
	BeliefStrength  float64        `db:"belief_strength"`
	LearningRate    float64        `db:"learning_rate"`
	Age             uint64         `db:"age"`
	Generation      int            `db:"generation"`
	GameJSON        sql.NullString `db:"game_json"`
	CultureJSON     sql.NullString `db:"culture_json"`
}

// nullJSON encodes v, storing NULL for nil pointers.
func nullJSON[T any](v *T) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// fromJSON decodes an optional column.
func fromJSON[T any](s sql.NullString) (*T, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	v := new(T)
	if err := json.Unmarshal([]byte(s.String), v); err != nil {
		return nil, err
	}
	return v, nil
}

// SaveAgents writes all agents to the database (full replace).
func (db *DB) SaveAgents(agentList []*agents.Agent) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM agents"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO agents
		(id, type, pos_x, pos_y, vel_x, vel_y, proximity_radius,
		 color_r, color_g, color_b, fixed_json, genome_json,
		 fitness, belief_strength, learning_rate, age, generation,
		 game_json, culture_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range agentList {
		fixed, err := nullJSON(a.FixedColor)
		if err != nil {
			return fmt.Errorf("encode agent %d: %w", a.ID, err)
		}
		genome, err := nullJSON(a.Genome)
		if err != nil {
			return fmt.Errorf("encode agent %d: %w", a.ID, err)
		}
		game, err := nullJSON(a.Game)
		if err != nil {
			return fmt.Errorf("encode agent %d: %w", a.ID, err)
		}
		culture, err := nullJSON(a.Culture)
		if err != nil {
			return fmt.Errorf("encode agent %d: %w", a.ID, err)
		}

		_, err = stmt.Exec(
			a.ID, a.Type, a.Position.X, a.Position.Y, a.Velocity.X, a.Velocity.Y,
			a.ProximityRadius, a.Color.R, a.Color.G, a.Color.B, fixed, genome,
			a.Fitness, a.BeliefStrength, a.LearningRate, a.Age, a.Generation,
			game, culture,
		)
		if err != nil {
			return fmt.Errorf("insert agent %d: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

// LoadAgents reads all agents, in ID order.
func (db *DB) LoadAgents() ([]*agents.Agent, error) {
	var rows []agentRow
	if err := db.conn.Select(&rows, "SELECT * FROM agents ORDER BY id"); err != nil {
		return nil, fmt.Errorf("select agents: %w", err)
	}

	out := make([]*agents.Agent, 0, len(rows))
	for _, r := range rows {
		a := &agents.Agent{
			ID:               agents.AgentID(r.ID),
			Type:             agents.Type(r.Type),
			ProximityRadius:  r.ProximityRadius,
			Color:            agents.Color{R: r.ColorR, G: r.ColorG, B: r.ColorB},
			Fitness:          r.Fitness,
			BeliefStrength:   r.BeliefStrength,
			LearningRate:     r.LearningRate,
			Age:              r.Age,
			Generation:       r.Generation,
			InteractionTimer: make(map[agents.AgentID]int),
		}
		a.Position.X, a.Position.Y = r.PosX, r.PosY
		a.Velocity.X, a.Velocity.Y = r.VelX, r.VelY

		var err error
		if a.FixedColor, err = fromJSON[agents.Color](r.FixedJSON); err != nil {
			return nil, fmt.Errorf("decode agent %d fixed colour: %w", r.ID, err)
		}
		if a.Genome, err = fromJSON[agents.Genome](r.GenomeJSON); err != nil {
			return nil, fmt.Errorf("decode agent %d genome: %w", r.ID, err)
		}
		if a.Game, err = fromJSON[agents.GameState](r.GameJSON); err != nil {
			return nil, fmt.Errorf("decode agent %d game: %w", r.ID, err)
		}
		if a.Culture, err = fromJSON[agents.CultureState](r.CultureJSON); err != nil {
			return nil, fmt.Errorf("decode agent %d culture: %w", r.ID, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// SaveStats appends one stats sample for a run.
func (db *DB) SaveStats(runID string, tick uint64, st evolution.Stats) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	_, err = db.conn.Exec(
		"INSERT INTO stats_history (run_id, tick, stats_json) VALUES (?, ?, ?)",
		runID, tick, string(data),
	)
	return err
}

// StatsPoint is one stored stats sample.
type StatsPoint struct {
	Tick  uint64          `json:"tick"`
	Stats evolution.Stats `json:"stats"`
}

// RecentStats returns up to limit samples for a run, oldest first.
func (db *DB) RecentStats(runID string, limit int) ([]StatsPoint, error) {
	var rows []struct {
		Tick uint64 `db:"tick"`
		JSON string `db:"stats_json"`
	}
	err := db.conn.Select(&rows,
		"SELECT tick, stats_json FROM stats_history WHERE run_id = ? ORDER BY id DESC LIMIT ?",
		runID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select stats: %w", err)
	}

	out := make([]StatsPoint, len(rows))
	for i, r := range rows {
		p := StatsPoint{Tick: r.Tick}
		if err := json.Unmarshal([]byte(r.JSON), &p.Stats); err != nil {
			return nil, fmt.Errorf("decode stats at tick %d: %w", r.Tick, err)
		}
		out[len(rows)-1-i] = p
	}
	return out, nil
}

// SaveEvents appends events to the database.
func (db *DB) SaveEvents(runID string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (run_id, seq, tick, description, category) VALUES (?, ?, ?, ?, ?)",
			runID, e.Seq, e.Tick, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT seq, tick, description, category FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}

// SaveFrames appends recorded frames for a run.
func (db *DB) SaveFrames(runID string, frames []engine.Frame) error {
	if len(frames) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex("INSERT INTO frames (run_id, tick, frame_json) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range frames {
		data, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("encode frame %d: %w", f.Tick, err)
		}
		if _, err := stmt.Exec(runID, f.Tick, string(data)); err != nil {
			return fmt.Errorf("insert frame %d: %w", f.Tick, err)
		}
	}

	return tx.Commit()
}

// LoadFrames returns recorded frames for a run with tick in [from, to].
func (db *DB) LoadFrames(runID string, from, to uint64) ([]engine.Frame, error) {
	var rows []string
	err := db.conn.Select(&rows,
		"SELECT frame_json FROM frames WHERE run_id = ? AND tick BETWEEN ? AND ? ORDER BY tick",
		runID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("select frames: %w", err)
	}
	out := make([]engine.Frame, len(rows))
	for i, r := range rows {
		if err := json.Unmarshal([]byte(r), &out[i]); err != nil {
			return nil, fmt.Errorf("decode frame: %w", err)
		}
	}
	return out, nil
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// HasWorldState reports whether a saved run can be resumed.
func (db *DB) HasWorldState() bool {
	_, err := db.GetMeta(MetaLastTick)
	return err == nil
}

// SaveWorldState performs a full save of the swarm: agents, a stats sample,
// events not yet stored, recorded frames and the resume metadata. The
// simulation is locked for the whole save, so every part belongs to the same tick.
func (db *DB) SaveWorldState(sim *engine.Simulation, runID string) error {
	return sim.Snapshot(db.EventSeq(), func(st engine.SaveState) error {
		slog.Info("saving world state", "agents", len(st.Agents), "tick", st.Tick)

		if err := db.SaveAgents(st.Agents); err != nil {
			return fmt.Errorf("save agents: %w", err)
		}
		if err := db.SaveStats(runID, st.Tick, st.Stats); err != nil {
			return fmt.Errorf("save stats: %w", err)
		}
		if err := db.SaveEvents(runID, st.Events); err != nil {
			return fmt.Errorf("save events: %w", err)
		}
		if err := db.SaveFrames(runID, st.Frames); err != nil {
			return fmt.Errorf("save frames: %w", err)
		}

		cp, err := json.Marshal(st.Checkpoint)
		if err != nil {
			return fmt.Errorf("encode checkpoint: %w", err)
		}
		meta := map[string]string{
			MetaLastTick:   strconv.FormatUint(st.Tick, 10),
			MetaEventsSeq:  strconv.FormatUint(st.EventSeq, 10),
			MetaCheckpoint: string(cp),
			MetaMode:       string(st.Mode),
			MetaRunID:      runID,
		}
		for k, v := range meta {
			if err := db.SaveMeta(k, v); err != nil {
				return fmt.Errorf("save meta %s: %w", k, err)
			}
		}

		slog.Info("world state saved")
		return nil
	})
}

// EventSeq returns the sequence number of the last stored event, or 0.
func (db *DB) EventSeq() uint64 {
	v, err := db.GetMeta(MetaEventsSeq)
	if err != nil {
		return 0
	}
	seq, _ := strconv.ParseUint(v, 10, 64)
	return seq
}

// WorldState is everything needed to resume a saved run.
type WorldState struct {
	RunID      string
	Mode       evolution.Kind
	Seed       int64
	Tick       uint64
	Checkpoint evolution.Checkpoint
	Agents     []*agents.Agent
}

// LoadWorldState reads the saved run.
func (db *DB) LoadWorldState() (*WorldState, error) {
	ws := &WorldState{}

	tickStr, err := db.GetMeta(MetaLastTick)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no saved world state")
	}
	if err != nil {
		return nil, fmt.Errorf("read last tick: %w", err)
	}
	if ws.Tick, err = strconv.ParseUint(tickStr, 10, 64); err != nil {
		return nil, fmt.Errorf("parse last tick: %w", err)
	}

	if ws.RunID, err = db.GetMeta(MetaRunID); err != nil {
		return nil, fmt.Errorf("read run id: %w", err)
	}
	if mode, err := db.GetMeta(MetaMode); err == nil {
		ws.Mode = evolution.Kind(mode)
	}
	if seed, err := db.GetMeta(MetaSeed); err == nil {
		ws.Seed, _ = strconv.ParseInt(seed, 10, 64)
	}
	if cp, err := db.GetMeta(MetaCheckpoint); err == nil {
		if err := json.Unmarshal([]byte(cp), &ws.Checkpoint); err != nil {
			return nil, fmt.Errorf("decode checkpoint: %w", err)
		}
	}

	if ws.Agents, err = db.LoadAgents(); err != nil {
		return nil, err
	}
	return ws, nil
}
