package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-crm/internal/db"
	"github.com/sells-group/lead-crm/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS cities (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	country    TEXT NOT NULL,
	iso2       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
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
	value        DOUBLE PRECISION,
	last_contact TIMESTAMPTZ,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_temperature ON leads(temperature);
CREATE INDEX IF NOT EXISTS idx_leads_city_id ON leads(city_id);
CREATE INDEX IF NOT EXISTS idx_leads_email_lower ON leads(LOWER(email));
CREATE INDEX IF NOT EXISTS idx_leads_phone_lower ON leads(LOWER(phone));
CREATE INDEX IF NOT EXISTS idx_leads_instagram_lower ON leads(LOWER(instagram));
CREATE INDEX IF NOT EXISTS idx_leads_telegram_lower ON leads(LOWER(telegram));
CREATE INDEX IF NOT EXISTS idx_leads_website_lower ON leads(LOWER(website));
CREATE INDEX IF NOT EXISTS idx_leads_name_lower ON leads(LOWER(name));

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
	result         JSONB,
	error          TEXT NOT NULL DEFAULT '',
	leads_created  INTEGER NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at   TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_research_jobs_status ON research_jobs(status);
CREATE UNIQUE INDEX IF NOT EXISTS uniq_active_research_per_city
	ON research_jobs(city_id) WHERE status IN ('pending', 'running');
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// isActiveJobConflict reports whether err is a violation of the partial
// unique index guarding one active job per city.
func isActiveJobConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "uniq_active_research_per_city"
	}
	return false
}

// --- Jobs ---

const jobColumns = `id, city_id, status, interaction_id, raw_result, result, error, leads_created, created_at, completed_at`

func (s *PostgresStore) CreateJob(ctx context.Context, cityID string, status model.JobStatus) (*model.ResearchJob, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO research_jobs (id, city_id, status, created_at) VALUES ($1, $2, $3, $4)`,
		id, cityID, string(status), now,
	)
	if err != nil {
		if isActiveJobConflict(err) {
			return nil, eris.Wrapf(ErrActiveJobExists, "postgres: create job for city %s", cityID)
		}
		return nil, eris.Wrap(err, "postgres: insert job")
	}

	return &model.ResearchJob{
		ID:        id,
		CityID:    cityID,
		Status:    status,
		CreatedAt: now,
	}, nil
}

func scanJob(row pgx.Row) (*model.ResearchJob, error) {
	var j model.ResearchJob
	var raw *string
	var result []byte
	err := row.Scan(&j.ID, &j.CityID, &j.Status, &j.InteractionID, &raw, &result,
		&j.Error, &j.LeadsCreated, &j.CreatedAt, &j.CompletedAt)
	if err != nil {
		return nil, err
	}
	if raw != nil {
		j.RawResult = *raw
	}
	if result != nil {
		j.Result = result
	}
	return &j, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*model.ResearchJob, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM research_jobs WHERE id = $1`, jobID)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: job %s", jobID)
		}
		return nil, eris.Wrapf(err, "postgres: get job %s", jobID)
	}
	return j, nil
}

func (s *PostgresStore) UpdateJob(ctx context.Context, job *model.ResearchJob) error {
	var raw *string
	if job.RawResult != "" {
		raw = &job.RawResult
	}
	var result []byte
	if len(job.Result) > 0 {
		result = job.Result
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE research_jobs
		 SET status = $1, interaction_id = $2, raw_result = $3, result = $4,
		     error = $5, leads_created = $6, completed_at = $7
		 WHERE id = $8`,
		string(job.Status), job.InteractionID, raw, result,
		job.Error, job.LeadsCreated, job.CompletedAt, job.ID,
	)
	if err != nil {
		if isActiveJobConflict(err) {
			return eris.Wrapf(ErrActiveJobExists, "postgres: update job %s", job.ID)
		}
		return eris.Wrapf(err, "postgres: update job %s", job.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: job %s", job.ID)
	}
	return nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.ResearchJob, error) {
	query := `SELECT ` + jobColumns + ` FROM research_jobs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.CityID != "" {
		query += fmt.Sprintf(` AND city_id = $%d`, argIdx)
		args = append(args, filter.CityID)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	defer rows.Close()

	var jobs []model.ResearchJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan job")
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: list jobs iterate")
}

func (s *PostgresStore) DeleteJob(ctx context.Context, jobID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM research_jobs WHERE id = $1`, jobID)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete job %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: job %s", jobID)
	}
	return nil
}

func (s *PostgresStore) HasActiveJob(ctx context.Context, cityID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM research_jobs WHERE city_id = $1 AND status IN ('pending', 'running'))`,
		cityID,
	).Scan(&exists)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: has active job for city %s", cityID)
	}
	return exists, nil
}

// --- Cities ---

func (s *PostgresStore) CreateCity(ctx context.Context, name, country, iso2 string) (*model.City, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cities (id, name, country, iso2) VALUES ($1, $2, $3, $4)`,
		id, name, country, iso2,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert city %s", name)
	}
	return &model.City{ID: id, Name: name, Country: country, ISO2: iso2}, nil
}

func (s *PostgresStore) GetCity(ctx context.Context, cityID string) (*model.City, error) {
	var c model.City
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, country, iso2 FROM cities WHERE id = $1`, cityID,
	).Scan(&c.ID, &c.Name, &c.Country, &c.ISO2)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: city %s", cityID)
		}
		return nil, eris.Wrapf(err, "postgres: get city %s", cityID)
	}
	return &c, nil
}

func (s *PostgresStore) GetOrCreateCity(ctx context.Context, name, country, iso2 string) (*model.City, error) {
	var c model.City
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, country, iso2 FROM cities WHERE LOWER(name) = LOWER($1) AND iso2 = $2`,
		name, iso2,
	).Scan(&c.ID, &c.Name, &c.Country, &c.ISO2)
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(err, "postgres: lookup city %s", name)
	}
	return s.CreateCity(ctx, name, country, iso2)
}

func (s *PostgresStore) ListCities(ctx context.Context) ([]model.City, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, country, iso2 FROM cities ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list cities")
	}
	defer rows.Close()

	var cities []model.City
	for rows.Next() {
		var c model.City
		if err := rows.Scan(&c.ID, &c.Name, &c.Country, &c.ISO2); err != nil {
			return nil, eris.Wrap(err, "postgres: scan city")
		}
		cities = append(cities, c)
	}
	return cities, eris.Wrap(rows.Err(), "postgres: list cities iterate")
}

// --- Leads ---

const leadColumns = `id, name, email, phone, company, lead_type_id, city_id, telegram, instagram, website, source, status, temperature, notes, value, last_contact, created_at, updated_at`

func scanLead(row pgx.Row) (*model.Lead, error) {
	var l model.Lead
	var leadTypeID, cityID *string
	err := row.Scan(&l.ID, &l.Name, &l.Email, &l.Phone, &l.Company, &leadTypeID, &cityID,
		&l.Telegram, &l.Instagram, &l.Website, &l.Source, &l.Status, &l.Temperature,
		&l.Notes, &l.Value, &l.LastContact, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if leadTypeID != nil {
		l.LeadTypeID = *leadTypeID
	}
	if cityID != nil {
		l.CityID = *cityID
	}
	return &l, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *PostgresStore) CreateLead(ctx context.Context, lead *model.Lead) error {
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

	_, err := s.pool.Exec(ctx,
		`INSERT INTO leads (`+leadColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		lead.ID, lead.Name, lead.Email, lead.Phone, lead.Company,
		nullable(lead.LeadTypeID), nullable(lead.CityID),
		lead.Telegram, lead.Instagram, lead.Website, lead.Source,
		string(lead.Status), string(lead.Temperature), lead.Notes,
		lead.Value, lead.LastContact, lead.CreatedAt, lead.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: insert lead")
}

func (s *PostgresStore) UpdateLead(ctx context.Context, lead *model.Lead) error {
	lead.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads
		 SET name = $1, email = $2, phone = $3, company = $4, lead_type_id = $5,
		     city_id = $6, telegram = $7, instagram = $8, website = $9, source = $10,
		     status = $11, temperature = $12, notes = $13, value = $14,
		     last_contact = $15, updated_at = $16
		 WHERE id = $17`,
		lead.Name, lead.Email, lead.Phone, lead.Company, nullable(lead.LeadTypeID),
		nullable(lead.CityID), lead.Telegram, lead.Instagram, lead.Website, lead.Source,
		string(lead.Status), string(lead.Temperature), lead.Notes, lead.Value,
		lead.LastContact, lead.UpdatedAt, lead.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update lead %s", lead.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: lead %s", lead.ID)
	}
	return nil
}

func (s *PostgresStore) GetLead(ctx context.Context, leadID string) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1`, leadID)
	l, err := scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: lead %s", leadID)
		}
		return nil, eris.Wrapf(err, "postgres: get lead %s", leadID)
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

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Temperature != "" {
		query += fmt.Sprintf(` AND temperature = $%d`, argIdx)
		args = append(args, string(filter.Temperature))
		argIdx++
	}
	if filter.CityID != "" {
		query += fmt.Sprintf(` AND city_id = $%d`, argIdx)
		args = append(args, filter.CityID)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) FindLeadByContact(ctx context.Context, field ContactField, value string) (*model.Lead, error) {
	if !field.valid() {
		return nil, eris.Errorf("postgres: invalid contact field %q", field)
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE LOWER(`+string(field)+`) = LOWER($1) ORDER BY created_at LIMIT 1`,
		value,
	)
	l, err := scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: find lead by %s", field)
	}
	return l, nil
}

func (s *PostgresStore) FindLeadByNameCity(ctx context.Context, name, cityID string) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE LOWER(name) = LOWER($1) AND city_id = $2 ORDER BY created_at LIMIT 1`,
		name, cityID,
	)
	l, err := scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: find lead by name and city")
	}
	return l, nil
}

// --- Lead types and tags ---

func (s *PostgresStore) GetOrCreateLeadType(ctx context.Context, name string) (*model.LeadType, error) {
	var lt model.LeadType
	err := s.pool.QueryRow(ctx,
		`SELECT id, name FROM lead_types WHERE LOWER(name) = LOWER($1)`, name,
	).Scan(&lt.ID, &lt.Name)
	if err == nil {
		return &lt, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(err, "postgres: lookup lead type %s", name)
	}

	id := uuid.New().String()
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO lead_types (id, name) VALUES ($1, $2)`, id, name,
	); err != nil {
		return nil, eris.Wrapf(err, "postgres: insert lead type %s", name)
	}
	return &model.LeadType{ID: id, Name: name}, nil
}

func (s *PostgresStore) ListLeadTypes(ctx context.Context) ([]model.LeadType, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM lead_types ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list lead types")
	}
	defer rows.Close()

	var types []model.LeadType
	for rows.Next() {
		var lt model.LeadType
		if err := rows.Scan(&lt.ID, &lt.Name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead type")
		}
		types = append(types, lt)
	}
	return types, eris.Wrap(rows.Err(), "postgres: list lead types iterate")
}

func (s *PostgresStore) GetOrCreateTag(ctx context.Context, name string) (*model.Tag, error) {
	var t model.Tag
	err := s.pool.QueryRow(ctx,
		`SELECT id, name FROM tags WHERE LOWER(name) = LOWER($1)`, name,
	).Scan(&t.ID, &t.Name)
	if err == nil {
		return &t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(err, "postgres: lookup tag %s", name)
	}

	id := uuid.New().String()
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO tags (id, name) VALUES ($1, $2)`, id, name,
	); err != nil {
		return nil, eris.Wrapf(err, "postgres: insert tag %s", name)
	}
	return &model.Tag{ID: id, Name: name}, nil
}

func (s *PostgresStore) AddLeadTag(ctx context.Context, leadID, tagID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO lead_tags (lead_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		leadID, tagID,
	)
	return eris.Wrapf(err, "postgres: add tag %s to lead %s", tagID, leadID)
}

func (s *PostgresStore) ListLeadTags(ctx context.Context, leadID string) ([]model.Tag, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT t.id, t.name FROM tags t
		 JOIN lead_tags lt ON lt.tag_id = t.id
		 WHERE lt.lead_id = $1
		 ORDER BY t.name`,
		leadID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list tags for lead %s", leadID)
	}
	defer rows.Close()

	var tags []model.Tag
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan tag")
		}
		tags = append(tags, t)
	}
	return tags, eris.Wrap(rows.Err(), "postgres: list lead tags iterate")
}
