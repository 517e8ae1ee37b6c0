package alarms

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Krajiyah/ble-light/pkg/models"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// SQLiteStore keeps alarms in a SQLite file. Schedules and actions are stored as JSON.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and makes sure the schema exists
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize schema")
	}
	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS alarms (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			enabled INTEGER NOT NULL,
			schedule TEXT NOT NULL,
			action TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_alarms_enabled ON alarms(enabled);
	`)
	return err
}

func (s *SQLiteStore) Upsert(alarm models.Alarm) (models.Alarm, error) {
	schedule, err := models.MarshalSchedule(alarm.Schedule)
	if err != nil {
		return alarm, err
	}
	action, err := json.Marshal(alarm.Action)
	if err != nil {
		return alarm, errors.Wrap(err, "encode action")
	}
	now := time.Now().UTC().Unix()
	if alarm.ID == 0 {
		res, err := s.db.Exec(`
			INSERT INTO alarms (enabled, schedule, action, updated_at)
			VALUES (?, ?, ?, ?)
		`, alarm.Enabled, string(schedule), string(action), now)
		if err != nil {
			return alarm, errors.Wrap(err, "insert alarm")
		}
		if alarm.ID, err = res.LastInsertId(); err != nil {
			return alarm, errors.Wrap(err, "insert alarm")
		}
	} else {
		_, err := s.db.Exec(`
			INSERT INTO alarms (id, enabled, schedule, action, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				enabled = excluded.enabled,
				schedule = excluded.schedule,
				action = excluded.action,
				updated_at = excluded.updated_at
		`, alarm.ID, alarm.Enabled, string(schedule), string(action), now)
		if err != nil {
			return alarm, errors.Wrap(err, "update alarm")
		}
	}
	log.Debug().Int64("alarm_id", alarm.ID).Bool("enabled", alarm.Enabled).Msg("Alarm stored")
	return alarm, nil
}

func (s *SQLiteStore) Get(id int64) (models.Alarm, error) {
	row := s.db.QueryRow(`SELECT id, enabled, schedule, action FROM alarms WHERE id = ?`, id)
	alarm, err := scanAlarm(row)
	if err == sql.ErrNoRows {
		return alarm, errors.Wrapf(ErrNotFound, "id %d", id)
	}
	return alarm, err
}

func (s *SQLiteStore) Delete(id int64) error {
	res, err := s.db.Exec(`DELETE FROM alarms WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "delete alarm")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(ErrNotFound, "id %d", id)
	}
	return nil
}

func (s *SQLiteStore) List() ([]models.Alarm, error) {
	return s.query(`SELECT id, enabled, schedule, action FROM alarms ORDER BY id`)
}

func (s *SQLiteStore) ListEnabled() ([]models.Alarm, error) {
	return s.query(`SELECT id, enabled, schedule, action FROM alarms WHERE enabled = 1 ORDER BY id`)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) query(q string) ([]models.Alarm, error) {
	rows, err := s.db.Query(q)
	if err != nil {
		return nil, errors.Wrap(err, "list alarms")
	}
	defer rows.Close()
	ret := []models.Alarm{}
	for rows.Next() {
		alarm, err := scanAlarm(rows)
		if err != nil {
			return nil, err
		}
		ret = append(ret, alarm)
	}
	return ret, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAlarm(row scanner) (models.Alarm, error) {
	var (
		alarm            models.Alarm
		schedule, action string
	)
	if err := row.Scan(&alarm.ID, &alarm.Enabled, &schedule, &action); err != nil {
		return alarm, err
	}
	sched, err := models.UnmarshalSchedule([]byte(schedule))
	if err != nil {
		return alarm, errors.Wrapf(err, "alarm %d", alarm.ID)
	}
	alarm.Schedule = sched
	if err := json.Unmarshal([]byte(action), &alarm.Action); err != nil {
		return alarm, errors.Wrapf(err, "alarm %d action", alarm.ID)
	}
	return alarm, nil
}
