package devices

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "github.com/lib/pq" // for the postgres database

	"github.com/classware-tech/switchboard/core/csql"
)

// SQLStore is a postgres-backed device record store.
type SQLStore struct {
	db *csql.DB
}

// MustNewSQLStore creates the sql relations for device records (if they do
// not exist) and returns the store.
func MustNewSQLStore(db *csql.DB) *SQLStore {
	if db == nil {
		panic("DB is missing")
	}

	// poor man's database migrations
	_, err := db.Exec(`CREATE table IF NOT EXISTS ` + db.Schema + `.device
(device_id uuid DEFAULT uuid_generate_v4(),
mac varchar NOT NULL UNIQUE,
name varchar NOT NULL DEFAULT '',
ip varchar NOT NULL DEFAULT '',
secret varchar NOT NULL DEFAULT '',
platform varchar NOT NULL DEFAULT 'esp32',
status varchar NOT NULL DEFAULT 'offline',
last_seen_at timestamp NOT NULL DEFAULT now(),
switches json NOT NULL DEFAULT '[]'::json,
motion_sensor json,
pending_commands json NOT NULL DEFAULT '[]'::json,
created_at timestamp NOT NULL DEFAULT now(),
PRIMARY KEY(device_id)
);
CREATE index IF NOT EXISTS device_status_last_seen_index ON ` + db.Schema + `.device(status, last_seen_at);`)

	if err != nil {
		panic(err)
	}

	return &SQLStore{db: db}
}

const deviceColumns = `device_id,mac,name,ip,secret,platform,status,last_seen_at,switches,motion_sensor,pending_commands`

func (s *SQLStore) scan(row interface {
	Scan(dest ...interface{}) error
}) (*DeviceRecord, error) {
	var (
		d               DeviceRecord
		status          string
		switches        json.RawMessage
		motionSensor    []byte
		pendingCommands json.RawMessage
	)
	err := row.Scan(&d.ID, &d.MAC, &d.Name, &d.IP, &d.Secret, &d.Platform,
		&status, &d.LastSeenAt, &switches, &motionSensor, &pendingCommands)
	if err != nil {
		return nil, err
	}
	d.Status = Status(status)
	if err := json.Unmarshal(switches, &d.Switches); err != nil {
		return nil, err
	}
	if len(motionSensor) > 0 {
		if err := json.Unmarshal(motionSensor, &d.MotionSensor); err != nil {
			return nil, err
		}
	}
	if err := json.Unmarshal(pendingCommands, &d.PendingCommands); err != nil {
		return nil, err
	}
	return &d, nil
}

// FindByMAC returns the record with the given hardware address.
func (s *SQLStore) FindByMAC(ctx context.Context, mac string) (*DeviceRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM `+s.db.Schema+`.device WHERE mac=$1;`, mac)
	d, err := s.scan(row)
	if err == csql.ErrNoRows {
		return nil, ErrNotFound
	}
	return d, err
}

// FindByID returns the record with the given id.
func (s *SQLStore) FindByID(ctx context.Context, id uuid.UUID) (*DeviceRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM `+s.db.Schema+`.device WHERE device_id=$1;`, id)
	d, err := s.scan(row)
	if err == csql.ErrNoRows {
		return nil, ErrNotFound
	}
	return d, err
}

// List returns all device records.
func (s *SQLStore) List(ctx context.Context) ([]*DeviceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM `+s.db.Schema+`.device ORDER BY name,mac;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []*DeviceRecord
	for rows.Next() {
		d, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, d)
	}
	return records, rows.Err()
}

// Save upserts the record, keyed by MAC. A zero ID is assigned on insert.
func (s *SQLStore) Save(ctx context.Context, record *DeviceRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	switches, err := json.Marshal(record.Switches)
	if err != nil {
		return err
	}
	var motionSensor interface{}
	if record.MotionSensor != nil {
		data, err := json.Marshal(record.MotionSensor)
		if err != nil {
			return err
		}
		motionSensor = string(data)
	}
	pendingCommands, err := json.Marshal(record.PendingCommands)
	if err != nil {
		return err
	}

	// RETURNING hands back the stored id when the MAC already exists
	return s.db.QueryRowContext(ctx,
		`INSERT INTO `+s.db.Schema+`.device
(device_id,mac,name,ip,secret,platform,status,last_seen_at,switches,motion_sensor,pending_commands)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (mac) DO UPDATE SET
name=$3,ip=$4,secret=$5,platform=$6,status=$7,last_seen_at=$8,switches=$9,motion_sensor=$10,pending_commands=$11
RETURNING device_id;`,
		record.ID, record.MAC, record.Name, record.IP, record.Secret, record.Platform,
		string(record.Status), record.LastSeenAt.UTC(), string(switches), motionSensor, string(pendingCommands)).
		Scan(&record.ID)
}

// FindStale returns all records that are online but have not been seen since
// the given threshold.
func (s *SQLStore) FindStale(ctx context.Context, threshold time.Time) ([]*DeviceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM `+s.db.Schema+`.device WHERE status=$1 AND last_seen_at<$2;`,
		string(StatusOnline), threshold.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []*DeviceRecord
	for rows.Next() {
		d, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, d)
	}
	return records, rows.Err()
}
