package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/lead-crm/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS cities (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	country    TEXT NOT NULL,
	iso2       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS uniq_cities_name_iso2 ON cities (LOWER(name), iso2);

CREATE TABLE IF NOT EXISTS lead_types (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS uniq_lead_types_name ON lead_types (LOWER(name));

CREATE TABLE IF NOT EXISTS tags (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS uniq_tags_name ON tags (LOWER(name));

CREATE TABLE IF NOT EXISTS leads (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	email        TEXT NOT NULL DEFAULT '',
	phone        TEXT NOT NULL DEFAULT '',
	company      TEXT NOT NULL DEFAULT '',
	lead_type_id TEXT REFERENCES lead_types(id) ON DELETE SET NULL,
	city_id      TEXT REFERENCES cities(id) ON DELETE SET NULL,
	telegram     TEXT NOT NULL DEFAULT '',
	instagram    TEXT NOT NULL DEFAULT '',
	website      TEXT NOT NULL DEFAULT '',
	source       TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'new',
	temperature  TEXT NOT NULL DEFAULT 'cold',
	notes        TEXT NOT NULL DEFAULT '',
	value        REAL,
	last_contact DATETIME,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_temperature ON leads(temperature);
CREATE INDEX IF NOT EXISTS idx_leads_city_id ON leads(city_id);

CREATE TABLE IF NOT EXISTS lead_tags (
	lead_id TEXT NOT NULL REFERENCES leads(id) ON DELETE CASCADE,
	tag_id  TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	PRIMARY KEY (lead_id, tag_id)
);

CREATE TABLE IF NOT EXISTS research_jobs (
	id             TEXT PRIMARY KEY,
	city_id        TEXT NOT NULL REFERENCES cities(id) ON DELETE CASCADE,
	status         TEXT NOT NULL DEFAULT 'not_started',
	interaction_id TEXT NOT NULL DEFAULT '',
	raw_result     TEXT,
	result         TEXT,
	error          TEXT NOT NULL DEFAULT '',
	leads_created  INTEGER NOT NULL DEFAULT 0,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at   DATETIME
);

CREATE INDEX IF NOT EXISTS idx_research_jobs_status ON research_jobs(status);
CREATE UNIQUE INDEX IF NOT EXISTS uniq_active_research_per_city
	ON research_jobs(city_id) WHERE status IN ('pending', 'running');
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s %s", kind, id)
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: %s %s", kind, id)
	}
	return nil
}

// modernc.org/sqlite surfaces constraint violations as plain error strings.
func isSQLiteUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// --- Jobs ---

func (s *SQLiteStore) CreateJob(ctx context.Context, cityID string, status model.JobStatus) (*model.ResearchJob, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO research_jobs (id, city_id, status, created_at) VALUES (?, ?, ?, ?)`,
		id, cityID, string(status), now,
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return nil, eris.Wrapf(ErrActiveJobExists, "sqlite: create job for city %s", cityID)
		}
		return nil, eris.Wrap(err, "sqlite: insert job")
	}

	return &model.ResearchJob{
		ID:        id,
		CityID:    cityID,
		Status:    status,
		CreatedAt: now,
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteJob(row rowScanner) (*model.ResearchJob, error) {
	var j model.ResearchJob
	var raw, result sql.NullString
	err := row.Scan(&j.ID, &j.CityID, &j.Status, &j.InteractionID, &raw, &result,
		&j.Error, &j.LeadsCreated, &j.CreatedAt, &j.CompletedAt)
	if err != nil {
		return nil, err
	}
	if raw.Valid {
		j.RawResult = raw.String
	}
	if result.Valid {
		j.Result = []byte(result.String)
	}
	return &j, nil
}

func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*model.ResearchJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM research_jobs WHERE id = ?`, jobID)
	j, err := scanSQLiteJob(row)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "sqlite: job %s", jobID)
		}
		return nil, eris.Wrapf(err, "sqlite: get job %s", jobID)
	}
	return j, nil
}

func (s *SQLiteStore) UpdateJob(ctx context.Context, job *model.ResearchJob) error {
	var raw, result any
	if job.RawResult != "" {
		raw = job.RawResult
	}
	if len(job.Result) > 0 {
		result = string(job.Result)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE research_jobs
		 SET status = ?, interaction_id = ?, raw_result = ?, result = ?,
		     error = ?, leads_created = ?, completed_at = ?
		 WHERE id = ?`,
		string(job.Status), job.InteractionID, raw, result,
		job.Error, job.LeadsCreated, job.CompletedAt, job.ID,
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return eris.Wrapf(ErrActiveJobExists, "sqlite: update job %s", job.ID)
		}
		return eris.Wrapf(err, "sqlite: update job %s", job.ID)
	}
	return checkRowsAffected(res, "job", job.ID)
}

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.ResearchJob, error) {
	query := `SELECT ` + jobColumns + ` FROM research_jobs WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.CityID != "" {
		query += ` AND city_id = ?`
		args = append(args, filter.CityID)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close()

	var jobs []model.ResearchJob
	for rows.Next() {
		j, err := scanSQLiteJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan job")
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: list jobs iterate")
}

func (s *SQLiteStore) DeleteJob(ctx context.Context, jobID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM research_jobs WHERE id = ?`, jobID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete job %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) HasActiveJob(ctx context.Context, cityID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM research_jobs WHERE city_id = ? AND status IN ('pending', 'running'))`,
		cityID,
	).Scan(&exists)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: has active job for city %s", cityID)
	}
	return exists, nil
}

// --- Cities ---

func (s *SQLiteStore) CreateCity(ctx context.Context, name, country, iso2 string) (*model.City, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cities (id, name, country, iso2) VALUES (?, ?, ?, ?)`,
		id, name, country, iso2,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert city %s", name)
	}
	return &model.City{ID: id, Name: name, Country: country, ISO2: iso2}, nil
}

func (s *SQLiteStore) GetCity(ctx context.Context, cityID string) (*model.City, error) {
	var c model.City
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, country, iso2 FROM cities WHERE id = ?`, cityID,
	).Scan(&c.ID, &c.Name, &c.Country, &c.ISO2)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "sqlite: city %s", cityID)
		}
		return nil, eris.Wrapf(err, "sqlite: get city %s", cityID)
	}
	return &c, nil
}

func (s *SQLiteStore) GetOrCreateCity(ctx context.Context, name, country, iso2 string) (*model.City, error) {
	var c model.City
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, country, iso2 FROM cities WHERE LOWER(name) = LOWER(?) AND iso2 = ?`,
		name, iso2,
	).Scan(&c.ID, &c.Name, &c.Country, &c.ISO2)
	if err == nil {
		return &c, nil
	}
	if !eris.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(err, "sqlite: lookup city %s", name)
	}
	return s.CreateCity(ctx, name, country, iso2)
}

func (s *SQLiteStore) ListCities(ctx context.Context) ([]model.City, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, country, iso2 FROM cities ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list cities")
	}
	defer rows.Close()

	var cities []model.City
	for rows.Next() {
		var c model.City
		if err := rows.Scan(&c.ID, &c.Name, &c.Country, &c.ISO2); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan city")
		}
		cities = append(cities, c)
	}
	return cities, eris.Wrap(rows.Err(), "sqlite: list cities iterate")
}

// --- Leads ---

func scanSQLiteLead(row rowScanner) (*model.Lead, error) {
	var l model.Lead
	var leadTypeID, cityID sql.NullString
	err := row.Scan(&l.ID, &l.Name, &l.Email, &l.Phone, &l.Company, &leadTypeID, &cityID,
		&l.Telegram, &l.Instagram, &l.Website, &l.Source, &l.Status, &l.Temperature,
		&l.Notes, &l.Value, &l.LastContact, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if leadTypeID.Valid {
		l.LeadTypeID = leadTypeID.String
	}
	if cityID.Valid {
		l.CityID = cityID.String
	}
	return &l, nil
}

func (s *SQLiteStore) CreateLead(ctx context.Context, lead *model.Lead) error {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	lead.CreatedAt = now
	lead.UpdatedAt = now
	if lead.Status == "" {
		lead.Status = model.LeadStatusNew
	}
	if lead.Temperature == "" {
		lead.Temperature = model.TemperatureCold
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (`+leadColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lead.ID, lead.Name, lead.Email, lead.Phone, lead.Company,
		nullable(lead.LeadTypeID), nullable(lead.CityID),
		lead.Telegram, lead.Instagram, lead.Website, lead.Source,
		string(lead.Status), string(lead.Temperature), lead.Notes,
		lead.Value, lead.LastContact, lead.CreatedAt, lead.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: insert lead")
}

func (s *SQLiteStore) UpdateLead(ctx context.Context, lead *model.Lead) error {
	lead.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads
		 SET name = ?, email = ?, phone = ?, company = ?, lead_type_id = ?,
		     city_id = ?, telegram = ?, instagram = ?, website = ?, source = ?,
		     status = ?, temperature = ?, notes = ?, value = ?,
		     last_contact = ?, updated_at = ?
		 WHERE id = ?`,
		lead.Name, lead.Email, lead.Phone, lead.Company, nullable(lead.LeadTypeID),
		nullable(lead.CityID), lead.Telegram, lead.Instagram, lead.Website, lead.Source,
		string(lead.Status), string(lead.Temperature), lead.Notes, lead.Value,
		lead.LastContact, lead.UpdatedAt, lead.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update lead %s", lead.ID)
	}
	return checkRowsAffected(res, "lead", lead.ID)
}

func (s *SQLiteStore) GetLead(ctx context.Context, leadID string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = ?`, leadID)
	l, err := scanSQLiteLead(row)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "sqlite: lead %s", leadID)
		}
		return nil, eris.Wrapf(err, "sqlite: get lead %s", leadID)
	}
	tags, err := s.ListLeadTags(ctx, leadID)
	if err != nil {
		return nil, err
	}
	for _, t := range tags {
		l.Tags = append(l.Tags, t.Name)
	}
	return l, nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Temperature != "" {
		query += ` AND temperature = ?`
		args = append(args, string(filter.Temperature))
	}
	if filter.CityID != "" {
		query += ` AND city_id = ?`
		args = append(args, filter.CityID)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanSQLiteLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) FindLeadByContact(ctx context.Context, field ContactField, value string) (*model.Lead, error) {
	if !field.valid() {
		return nil, eris.Errorf("sqlite: invalid contact field %q", field)
	}

	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM leads WHERE LOWER(%s) = LOWER(?) ORDER BY created_at LIMIT 1`, leadColumns, field),
		value,
	)
	l, err := scanSQLiteLead(row)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: find lead by %s", field)
	}
	return l, nil
}

func (s *SQLiteStore) FindLeadByNameCity(ctx context.Context, name, cityID string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE LOWER(name) = LOWER(?) AND city_id = ? ORDER BY created_at LIMIT 1`,
		name, cityID,
	)
	l, err := scanSQLiteLead(row)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: find lead by name and city")
	}
	return l, nil
}

// --- Lead types and tags ---

func (s *SQLiteStore) GetOrCreateLeadType(ctx context.Context, name string) (*model.LeadType, error) {
	var lt model.LeadType
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name FROM lead_types WHERE LOWER(name) = LOWER(?)`, name,
	).Scan(&lt.ID, &lt.Name)
	if err == nil {
		return &lt, nil
	}
	if !eris.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(err, "sqlite: lookup lead type %s", name)
	}

	id := uuid.New().String()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO lead_types (id, name) VALUES (?, ?)`, id, name,
	); err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert lead type %s", name)
	}
	return &model.LeadType{ID: id, Name: name}, nil
}

func (s *SQLiteStore) ListLeadTypes(ctx context.Context) ([]model.LeadType, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM lead_types ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list lead types")
	}
	defer rows.Close()

	var types []model.LeadType
	for rows.Next() {
		var lt model.LeadType
		if err := rows.Scan(&lt.ID, &lt.Name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead type")
		}
		types = append(types, lt)
	}
	return types, eris.Wrap(rows.Err(), "sqlite: list lead types iterate")
}

func (s *SQLiteStore) GetOrCreateTag(ctx context.Context, name string) (*model.Tag, error) {
	var t model.Tag
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name FROM tags WHERE LOWER(name) = LOWER(?)`, name,
	).Scan(&t.ID, &t.Name)
	if err == nil {
		return &t, nil
	}
	if !eris.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(err, "sqlite: lookup tag %s", name)
	}

	id := uuid.New().String()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO tags (id, name) VALUES (?, ?)`, id, name,
	); err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert tag %s", name)
	}
	return &model.Tag{ID: id, Name: name}, nil
}

func (s *SQLiteStore) AddLeadTag(ctx context.Context, leadID, tagID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO lead_tags (lead_id, tag_id) VALUES (?, ?)`,
		leadID, tagID,
	)
	return eris.Wrapf(err, "sqlite: add tag %s to lead %s", tagID, leadID)
}

func (s *SQLiteStore) ListLeadTags(ctx context.Context, leadID string) ([]model.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.name FROM tags t
		 JOIN lead_tags lt ON lt.tag_id = t.id
		 WHERE lt.lead_id = ?
		 ORDER BY t.name`,
		leadID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list tags for lead %s", leadID)
	}
	defer rows.Close()

	var tags []model.Tag
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan tag")
		}
		tags = append(tags, t)
	}
	return tags, eris.Wrap(rows.Err(), "sqlite: list lead tags iterate")
}
