package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"evacuation-dashboard/internal/domain"
	"evacuation-dashboard/internal/ports"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Dialect selects the placeholder style and DDL flavor of the SQL store.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// rebind rewrites '?' placeholders as $1..$n for Postgres.
func (d Dialect) rebind(q string) string {
	if d != DialectPostgres {
		return q
	}
	var sb strings.Builder
	sb.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Initialize the plan tables. Children are keyed by (plan_id, position) so
// list order survives a round trip.
func InitSchema(db *sql.DB, dialect Dialect) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	bigint := "INTEGER"
	if dialect == DialectPostgres {
		bigint = "BIGINT"
	}

	createPlansQuery := `
	CREATE TABLE IF NOT EXISTS evacuation_plans (
		id TEXT PRIMARY KEY,
		position ` + bigint + ` NOT NULL,
		name TEXT NOT NULL,
		area TEXT NOT NULL,
		capacity INTEGER NOT NULL,
		status TEXT NOT NULL,
		last_updated TEXT NOT NULL
	);
	`

	createSheltersQuery := `
	CREATE TABLE IF NOT EXISTS plan_shelters (
		plan_id TEXT NOT NULL REFERENCES evacuation_plans(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		location TEXT NOT NULL,
		capacity INTEGER NOT NULL,
		current_occupancy INTEGER NOT NULL,
		facilities TEXT NOT NULL,
		contact TEXT NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (plan_id, position)
	);
	`

	createRoutesQuery := `
	CREATE TABLE IF NOT EXISTS plan_routes (
		plan_id TEXT NOT NULL REFERENCES evacuation_plans(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		from_location TEXT NOT NULL,
		to_location TEXT NOT NULL,
		distance TEXT NOT NULL,
		estimated_time TEXT NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (plan_id, position)
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_evacuation_plans_position
	ON evacuation_plans(position, id);
	`

	statements := []string{
		createPlansQuery,
		createSheltersQuery,
		createRoutesQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// Populate the store with plans from a JSON file. Plans whose id already
// exists are skipped, so seeding on every start is safe. Returns the number
// of plans inserted.
func SeedFromJSON(ctx context.Context, repo ports.PlanRepository, jsonPath string) (int, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("seed plans: read %q: %w", jsonPath, err)
	}

	var data []domain.EvacuationPlan
	if err := json.Unmarshal(bytes, &data); err != nil {
		return 0, fmt.Errorf("seed plans: parse json: %w", err)
	}

	for i := range data {
		p := &data[i]
		if strings.TrimSpace(p.ID) == "" {
			return 0, fmt.Errorf("seed plans: plan at index %d: id cannot be empty", i+1)
		}
		if p.Shelters == nil {
			p.Shelters = []domain.Shelter{}
		}
		if p.Routes == nil {
			p.Routes = []domain.Route{}
		}
		if p.LastUpdated.IsZero() {
			p.LastUpdated = time.Now().UTC()
		}
		if err := p.Validate(); err != nil {
			return 0, fmt.Errorf("seed plans: plan %q: %w", p.ID, err)
		}
	}

	inserted := 0
	for _, p := range data {
		err := repo.CreatePlan(ctx, p)
		if errors.Is(err, domain.ErrPlanConflict) {
			continue
		}
		if err != nil {
			return inserted, fmt.Errorf("seed plans: %w", err)
		}
		inserted++
	}

	return inserted, nil
}
