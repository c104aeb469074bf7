// Package persistence provides SQLite-based realm storage.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/hegemon/internal/actions"
	"github.com/talgya/hegemon/internal/economy"
	"github.com/talgya/hegemon/internal/engine"
)

// Meta keys.
const (
	metaLastDay = "last_day"
	metaEra     = "era"
	metaEconomy = "economy"
)

// maxLoadedEvents is how many of the newest events LoadState restores.
const maxLoadedEvents = 1000

// DB wraps a SQLite connection for realm persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
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
	CREATE TABLE IF NOT EXISTS strata (
		stratum TEXT PRIMARY KEY,
		organization REAL NOT NULL,
		growth_rate REAL NOT NULL,
		approval REAL NOT NULL,
		suppressions_json TEXT NOT NULL,
		demands_json TEXT NOT NULL,
		promises_json TEXT NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cooldowns (
		stratum TEXT NOT NULL,
		action TEXT NOT NULL,
		last_day INTEGER NOT NULL,
		PRIMARY KEY (stratum, action)
	);

	CREATE TABLE IF NOT EXISTS vassals (
		nation TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		independence_pressure REAL NOT NULL,
		independence_cap REAL NOT NULL,
		autonomy REAL NOT NULL,
		tribute_rate REAL NOT NULL,
		mandate TEXT NOT NULL,
		labor TEXT NOT NULL,
		trade TEXT NOT NULL,
		established_day INTEGER NOT NULL,
		last_tribute_day INTEGER NOT NULL,
		measures_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS officials (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		prestige REAL NOT NULL,
		administrative REAL NOT NULL,
		military REAL NOT NULL,
		loyalty REAL NOT NULL,
		source_stratum TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY,
		day INTEGER NOT NULL,
		category TEXT NOT NULL,
		description TEXT NOT NULL,
		meta_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_day ON events(day);
	CREATE INDEX IF NOT EXISTS idx_events_category ON events(category);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type stratumRow struct {
	Stratum      string  `db:"stratum"`
	Organization float64 `db:"organization"`
	GrowthRate   float64 `db:"growth_rate"`
	Approval     float64 `db:"approval"`
	Suppressions string  `db:"suppressions_json"`
	Demands      string  `db:"demands_json"`
	Promises     string  `db:"promises_json"`
	Report       string  `db:"report_json"`
}

type cooldownRow struct {
	Stratum string `db:"stratum"`
	Action  string `db:"action"`
	LastDay int    `db:"last_day"`
}

type vassalRow struct {
	Nation               string  `db:"nation"`
	Type                 string  `db:"type"`
	IndependencePressure float64 `db:"independence_pressure"`
	IndependenceCap      float64 `db:"independence_cap"`
	Autonomy             float64 `db:"autonomy"`
	TributeRate          float64 `db:"tribute_rate"`
	Mandate              string  `db:"mandate"`
	Labor                string  `db:"labor"`
	Trade                string  `db:"trade"`
	EstablishedDay       int     `db:"established_day"`
	LastTributeDay       int     `db:"last_tribute_day"`
	Measures             string  `db:"measures_json"`
}

type eventRow struct {
	Seq         int64  `db:"seq"`
	Day         int    `db:"day"`
	Category    string `db:"category"`
	Description string `db:"description"`
	Meta        string `db:"meta_json"`
}

// SaveState writes the engine state (full replace of strata, cooldowns,
// vassals and officials; events are appended) in one transaction.
func (db *DB) SaveState(st engine.State) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"strata", "cooldowns", "vassals", "officials"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, s := range st.Strata {
		supJSON, _ := json.Marshal(s.Suppressions)
		demJSON, _ := json.Marshal(s.Demands)
		proJSON, _ := json.Marshal(s.Promises)
		repJSON, _ := json.Marshal(s.Report)
		_, err := tx.Exec(`INSERT INTO strata
			(stratum, organization, growth_rate, approval,
			 suppressions_json, demands_json, promises_json, report_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			string(s.Stratum), s.Organization, s.GrowthRate, s.Approval,
			string(supJSON), string(demJSON), string(proJSON), string(repJSON),
		)
		if err != nil {
			return fmt.Errorf("insert stratum %s: %w", s.Stratum, err)
		}
	}

	for _, c := range st.Cooldowns {
		_, err := tx.Exec("INSERT INTO cooldowns (stratum, action, last_day) VALUES (?, ?, ?)",
			string(c.Stratum), c.Action, c.LastDay)
		if err != nil {
			return fmt.Errorf("insert cooldown %s/%s: %w", c.Stratum, c.Action, err)
		}
	}

	stmt, err := tx.Preparex(`INSERT INTO vassals
		(nation, type, independence_pressure, independence_cap, autonomy, tribute_rate,
		 mandate, labor, trade, established_day, last_tribute_day, measures_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, v := range st.Vassals {
		measuresJSON, err := json.Marshal(v.Measures)
		if err != nil {
			return fmt.Errorf("encode measures of %s: %w", v.Nation, err)
		}
		_, err = stmt.Exec(
			string(v.Nation), v.Type.String(), v.IndependencePressure, v.IndependenceCap,
			v.Autonomy, v.TributeRate, v.Mandate.String(), v.Labor.String(), v.Trade.String(),
			v.EstablishedDay, v.LastTributeDay, string(measuresJSON),
		)
		if err != nil {
			return fmt.Errorf("insert vassal %s: %w", v.Nation, err)
		}
	}

	for _, o := range st.Officials {
		_, err := tx.Exec(`INSERT INTO officials
			(id, name, prestige, administrative, military, loyalty, source_stratum)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			string(o.ID), o.Name, o.Prestige, o.Administrative, o.Military, o.Loyalty, string(o.SourceStratum),
		)
		if err != nil {
			return fmt.Errorf("insert official %s: %w", o.ID, err)
		}
	}

	for _, e := range st.Events {
		metaJSON := ""
		if e.Meta != nil {
			b, _ := json.Marshal(e.Meta)
			metaJSON = string(b)
		}
		_, err := tx.Exec(
			"INSERT OR IGNORE INTO events (seq, day, category, description, meta_json) VALUES (?, ?, ?, ?, ?)",
			e.Seq, e.Day, e.Category, e.Description, metaJSON,
		)
		if err != nil {
			return fmt.Errorf("insert event %d: %w", e.Seq, err)
		}
	}

	for k, v := range map[string]string{metaLastDay: strconv.Itoa(st.Day), metaEra: strconv.Itoa(st.Era)} {
		if _, err := tx.Exec("INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	return tx.Commit()
}

// LoadState reads the engine state back. Legacy control-measure encodings
// are migrated here.
func (db *DB) LoadState() (engine.State, error) {
	var st engine.State

	dayStr, err := db.GetMeta(metaLastDay)
	if err != nil {
		return st, fmt.Errorf("load last day: %w", err)
	}
	if st.Day, err = strconv.Atoi(dayStr); err != nil {
		return st, fmt.Errorf("parse last day %q: %w", dayStr, err)
	}
	if eraStr, err := db.GetMeta(metaEra); err == nil {
		st.Era, _ = strconv.Atoi(eraStr)
	}

	var strata []stratumRow
	if err := db.conn.Select(&strata, "SELECT * FROM strata ORDER BY stratum"); err != nil {
		return st, fmt.Errorf("load strata: %w", err)
	}
	for _, r := range strata {
		var s engine.StratumState
		s.Stratum = economy.StratumID(r.Stratum)
		s.Organization = r.Organization
		s.GrowthRate = r.GrowthRate
		s.Approval = r.Approval
		if err := decodeAll(r.Stratum,
			field{r.Suppressions, &s.Suppressions},
			field{r.Demands, &s.Demands},
			field{r.Promises, &s.Promises},
			field{r.Report, &s.Report},
		); err != nil {
			return st, err
		}
		st.Strata = append(st.Strata, s)
	}

	var cooldowns []cooldownRow
	if err := db.conn.Select(&cooldowns, "SELECT stratum, action, last_day FROM cooldowns ORDER BY stratum, action"); err != nil {
		return st, fmt.Errorf("load cooldowns: %w", err)
	}
	for _, c := range cooldowns {
		st.Cooldowns = append(st.Cooldowns, actions.CooldownEntry{
			Key:     actions.Key{Stratum: economy.StratumID(c.Stratum), Action: c.Action},
			LastDay: c.LastDay,
		})
	}

	var vassals []vassalRow
	if err := db.conn.Select(&vassals, "SELECT * FROM vassals ORDER BY nation"); err != nil {
		return st, fmt.Errorf("load vassals: %w", err)
	}
	for _, r := range vassals {
		v, err := r.state()
		if err != nil {
			return st, fmt.Errorf("load vassal %s: %w", r.Nation, err)
		}
		st.Vassals = append(st.Vassals, v)
	}

	// sqlx maps untagged fields by lowercased name.
	if err := db.conn.Select(&st.Officials, `SELECT id, name, prestige, administrative,
		military, loyalty, source_stratum AS sourcestratum FROM officials ORDER BY id`); err != nil {
		return st, fmt.Errorf("load officials: %w", err)
	}

	events, err := db.RecentEvents(maxLoadedEvents)
	if err != nil {
		return st, fmt.Errorf("load events: %w", err)
	}
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	st.Events = events

	slog.Info("realm state loaded", "day", st.Day, "strata", len(st.Strata), "vassals", len(st.Vassals), "events", len(st.Events))
	return st, nil
}

type field struct {
	data string
	dst  any
}

func decodeAll(owner string, fields ...field) error {
	for _, f := range fields {
		if f.data == "" {
			continue
		}
		if err := json.Unmarshal([]byte(f.data), f.dst); err != nil {
			return fmt.Errorf("decode %s: %w", owner, err)
		}
	}
	return nil
}

// SaveEconomy stores the reference economy model's state.
func (db *DB) SaveEconomy(ms economy.ModelState) error {
	b, err := json.Marshal(ms)
	if err != nil {
		return fmt.Errorf("encode economy: %w", err)
	}
	return db.SaveMeta(metaEconomy, string(b))
}

// LoadEconomy reads the economy model's state. ok is false if none was saved.
func (db *DB) LoadEconomy() (ms economy.ModelState, ok bool, err error) {
	raw, err := db.GetMeta(metaEconomy)
	if errors.Is(err, sql.ErrNoRows) {
		return ms, false, nil
	}
	if err != nil {
		return ms, false, err
	}
	if err := json.Unmarshal([]byte(raw), &ms); err != nil {
		return ms, false, fmt.Errorf("decode economy: %w", err)
	}
	return ms, true, nil
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

// HasWorldState reports whether a realm has been saved.
func (db *DB) HasWorldState() bool {
	_, err := db.GetMeta(metaLastDay)
	return err == nil
}

// modelState is implemented by economies whose state can be saved.
type modelState interface {
	State() economy.ModelState
}

// SaveWorldState performs a full save of the simulation, and of the economy
// when it can report its state.
func (db *DB) SaveWorldState(sim *engine.Simulation, econ economy.Economy) error {
	st := sim.Export()
	slog.Info("saving realm state", "day", st.Day, "strata", len(st.Strata), "vassals", len(st.Vassals))

	if err := db.SaveState(st); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	if m, ok := econ.(modelState); ok {
		if err := db.SaveEconomy(m.State()); err != nil {
			return fmt.Errorf("save economy: %w", err)
		}
	}

	slog.Info("realm state saved")
	return nil
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var rows []eventRow
	err := db.conn.Select(&rows,
		"SELECT seq, day, category, description, meta_json FROM events ORDER BY seq DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	events := make([]engine.Event, 0, len(rows))
	for _, r := range rows {
		e := engine.Event{Seq: r.Seq, Day: r.Day, Category: r.Category, Description: r.Description}
		if r.Meta != "" {
			if err := json.Unmarshal([]byte(r.Meta), &e.Meta); err != nil {
				return nil, fmt.Errorf("decode event %d: %w", r.Seq, err)
			}
		}
		events = append(events, e)
	}
	return events, nil
}
