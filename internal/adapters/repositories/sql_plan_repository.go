package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"evacuation-dashboard/internal/domain"
	"evacuation-dashboard/internal/platform/obs"
	"fmt"
	"time"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQL-backed implementation of the PlanRepository port (SQLite or Postgres).
// A plan row and its shelter and route rows are always written in one
// transaction.
type SQLPlanRepository struct {
	DB      *sql.DB
	Dialect Dialect
	now     func() time.Time
}

func NewSQLPlanRepository(db *sql.DB, dialect Dialect) *SQLPlanRepository {
	return &SQLPlanRepository{DB: db, Dialect: dialect, now: time.Now}
}

func (s *SQLPlanRepository) q(query string) string {
	return s.Dialect.rebind(query)
}

// Return all plans in insertion order.
func (s *SQLPlanRepository) ListPlans(ctx context.Context) (_ []domain.EvacuationPlan, err error) {
	defer obs.Time(ctx, "plans.repo.List")(&err)

	if s.DB == nil {
		return nil, errors.New("sql plan repository: DB is nil")
	}

	query := `
	SELECT id, name, area, capacity, status, last_updated
	FROM evacuation_plans
	ORDER BY position, id;
	`
	rows, err := s.DB.QueryContext(ctx, s.q(query))
	if err != nil {
		return nil, fmt.Errorf("list plans: query evacuation_plans table: %w", err)
	}
	defer rows.Close()

	plans := make([]domain.EvacuationPlan, 0, 16)
	index := make(map[string]int)
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("list plans: %w", err)
		}
		index[p.ID] = len(plans)
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list plans: row iteration: %w", err)
	}

	shelters, err := s.loadShelters(ctx, s.DB, "")
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	routes, err := s.loadRoutes(ctx, s.DB, "")
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	for id, i := range index {
		if v, ok := shelters[id]; ok {
			plans[i].Shelters = v
		}
		if v, ok := routes[id]; ok {
			plans[i].Routes = v
		}
	}

	return plans, nil
}

func (s *SQLPlanRepository) GetPlan(ctx context.Context, id string) (_ domain.EvacuationPlan, err error) {
	defer obs.Time(ctx, "plans.repo.Get")(&err)

	if s.DB == nil {
		return domain.EvacuationPlan{}, errors.New("sql plan repository: DB is nil")
	}
	p, err := s.get(ctx, s.DB, id)
	if err != nil {
		return domain.EvacuationPlan{}, fmt.Errorf("get plan %q: %w", id, err)
	}
	return p, nil
}

func (s *SQLPlanRepository) CreatePlan(ctx context.Context, plan domain.EvacuationPlan) (err error) {
	defer obs.Time(ctx, "plans.repo.Create")(&err)

	if s.DB == nil {
		return errors.New("sql plan repository: DB is nil")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create plan: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM evacuation_plans WHERE id = ?;`), plan.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("create plan %q: check id: %w", plan.ID, err)
	}
	if exists > 0 {
		return fmt.Errorf("create plan %q: %w", plan.ID, domain.ErrPlanConflict)
	}

	// Concurrent creates may compute the same position; reads order by
	// (position, id) so ties still come back in a stable order.
	query := `
	INSERT INTO evacuation_plans (id, position, name, area, capacity, status, last_updated)
	VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM evacuation_plans), ?, ?, ?, ?, ?);
	`
	_, err = tx.ExecContext(ctx, s.q(query),
		plan.ID, plan.Name, plan.Area, plan.Capacity, string(plan.Status), formatTime(plan.LastUpdated))
	if err != nil {
		return fmt.Errorf("create plan %q: insert plan: %w", plan.ID, err)
	}

	if err := s.writeShelters(ctx, tx, plan.ID, plan.Shelters); err != nil {
		return fmt.Errorf("create plan %q: %w", plan.ID, err)
	}
	if err := s.writeRoutes(ctx, tx, plan.ID, plan.Routes); err != nil {
		return fmt.Errorf("create plan %q: %w", plan.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create plan %q: commit tx: %w", plan.ID, err)
	}
	return nil
}

// Apply a partial update; shelters and routes are replaced wholesale when
// present in the patch.
func (s *SQLPlanRepository) UpdatePlan(ctx context.Context, id string, patch domain.PlanPatch) (_ domain.EvacuationPlan, err error) {
	defer obs.Time(ctx, "plans.repo.Update")(&err)

	if s.DB == nil {
		return domain.EvacuationPlan{}, errors.New("sql plan repository: DB is nil")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.EvacuationPlan{}, fmt.Errorf("update plan %q: begin tx: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := s.get(ctx, tx, id)
	if err != nil {
		return domain.EvacuationPlan{}, fmt.Errorf("update plan %q: %w", id, err)
	}

	updated := patch.Apply(current, s.now())
	if err := updated.Validate(); err != nil {
		return domain.EvacuationPlan{}, fmt.Errorf("update plan %q: %w", id, err)
	}

	query := `
	UPDATE evacuation_plans
	SET name = ?, area = ?, capacity = ?, status = ?, last_updated = ?
	WHERE id = ?;
	`
	_, err = tx.ExecContext(ctx, s.q(query),
		updated.Name, updated.Area, updated.Capacity, string(updated.Status), formatTime(updated.LastUpdated), id)
	if err != nil {
		return domain.EvacuationPlan{}, fmt.Errorf("update plan %q: update plan: %w", id, err)
	}

	if patch.Shelters != nil {
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM plan_shelters WHERE plan_id = ?;`), id); err != nil {
			return domain.EvacuationPlan{}, fmt.Errorf("update plan %q: clear shelters: %w", id, err)
		}
		if err := s.writeShelters(ctx, tx, id, updated.Shelters); err != nil {
			return domain.EvacuationPlan{}, fmt.Errorf("update plan %q: %w", id, err)
		}
	}
	if patch.Routes != nil {
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM plan_routes WHERE plan_id = ?;`), id); err != nil {
			return domain.EvacuationPlan{}, fmt.Errorf("update plan %q: clear routes: %w", id, err)
		}
		if err := s.writeRoutes(ctx, tx, id, updated.Routes); err != nil {
			return domain.EvacuationPlan{}, fmt.Errorf("update plan %q: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.EvacuationPlan{}, fmt.Errorf("update plan %q: commit tx: %w", id, err)
	}
	return updated, nil
}

func (s *SQLPlanRepository) DeletePlan(ctx context.Context, id string) (err error) {
	defer obs.Time(ctx, "plans.repo.Delete")(&err)

	if s.DB == nil {
		return errors.New("sql plan repository: DB is nil")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete plan %q: begin tx: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	// SQLite only honors ON DELETE CASCADE with foreign_keys enabled, so
	// children are removed explicitly.
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM plan_shelters WHERE plan_id = ?;`), id); err != nil {
		return fmt.Errorf("delete plan %q: delete shelters: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM plan_routes WHERE plan_id = ?;`), id); err != nil {
		return fmt.Errorf("delete plan %q: delete routes: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, s.q(`DELETE FROM evacuation_plans WHERE id = ?;`), id)
	if err != nil {
		return fmt.Errorf("delete plan %q: delete plan: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete plan %q: rows affected: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete plan %q: %w", id, domain.ErrPlanNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete plan %q: commit tx: %w", id, err)
	}
	return nil
}

func (s *SQLPlanRepository) get(ctx context.Context, db querier, id string) (domain.EvacuationPlan, error) {
	query := `
	SELECT id, name, area, capacity, status, last_updated
	FROM evacuation_plans
	WHERE id = ?;
	`
	rows, err := db.QueryContext(ctx, s.q(query), id)
	if err != nil {
		return domain.EvacuationPlan{}, fmt.Errorf("query evacuation_plans table: %w", err)
	}
	var p domain.EvacuationPlan
	found := false
	for rows.Next() {
		if p, err = scanPlan(rows); err != nil {
			rows.Close()
			return domain.EvacuationPlan{}, err
		}
		found = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.EvacuationPlan{}, fmt.Errorf("row iteration: %w", err)
	}
	if !found {
		return domain.EvacuationPlan{}, domain.ErrPlanNotFound
	}

	shelters, err := s.loadShelters(ctx, db, id)
	if err != nil {
		return domain.EvacuationPlan{}, err
	}
	routes, err := s.loadRoutes(ctx, db, id)
	if err != nil {
		return domain.EvacuationPlan{}, err
	}
	if v, ok := shelters[id]; ok {
		p.Shelters = v
	}
	if v, ok := routes[id]; ok {
		p.Routes = v
	}
	return p, nil
}

func scanPlan(rows *sql.Rows) (domain.EvacuationPlan, error) {
	var p domain.EvacuationPlan
	var status, updated string
	if err := rows.Scan(&p.ID, &p.Name, &p.Area, &p.Capacity, &status, &updated); err != nil {
		return domain.EvacuationPlan{}, fmt.Errorf("scan plan row: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, updated)
	if err != nil {
		return domain.EvacuationPlan{}, fmt.Errorf("plan %q: parse last_updated %q: %w", p.ID, updated, err)
	}
	p.Status = domain.PlanStatus(status)
	p.LastUpdated = t
	p.Shelters = []domain.Shelter{}
	p.Routes = []domain.Route{}
	return p, nil
}

// loadShelters returns shelters grouped by plan id; an empty planID loads all.
func (s *SQLPlanRepository) loadShelters(ctx context.Context, db querier, planID string) (map[string][]domain.Shelter, error) {
	query := `
	SELECT plan_id, id, name, location, capacity, current_occupancy, facilities, contact, status
	FROM plan_shelters
	`
	var args []any
	if planID != "" {
		query += `WHERE plan_id = ? `
		args = append(args, planID)
	}
	query += `ORDER BY plan_id, position;`

	rows, err := db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query plan_shelters table: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.Shelter)
	for rows.Next() {
		var planID, facilities, status string
		var sh domain.Shelter
		if err := rows.Scan(&planID, &sh.ID, &sh.Name, &sh.Location, &sh.Capacity,
			&sh.CurrentOccupancy, &facilities, &sh.Contact, &status); err != nil {
			return nil, fmt.Errorf("scan shelter row: %w", err)
		}
		if err := json.Unmarshal([]byte(facilities), &sh.Facilities); err != nil {
			return nil, fmt.Errorf("shelter %q: decode facilities: %w", sh.ID, err)
		}
		if sh.Facilities == nil {
			sh.Facilities = []string{}
		}
		sh.Status = domain.ShelterStatus(status)
		out[planID] = append(out[planID], sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("shelter row iteration: %w", err)
	}
	return out, nil
}

func (s *SQLPlanRepository) loadRoutes(ctx context.Context, db querier, planID string) (map[string][]domain.Route, error) {
	query := `
	SELECT plan_id, id, name, from_location, to_location, distance, estimated_time, status
	FROM plan_routes
	`
	var args []any
	if planID != "" {
		query += `WHERE plan_id = ? `
		args = append(args, planID)
	}
	query += `ORDER BY plan_id, position;`

	rows, err := db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query plan_routes table: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.Route)
	for rows.Next() {
		var planID, status string
		var r domain.Route
		if err := rows.Scan(&planID, &r.ID, &r.Name, &r.From, &r.To, &r.Distance, &r.EstimatedTime, &status); err != nil {
			return nil, fmt.Errorf("scan route row: %w", err)
		}
		r.Status = domain.RouteStatus(status)
		out[planID] = append(out[planID], r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("route row iteration: %w", err)
	}
	return out, nil
}

func (s *SQLPlanRepository) writeShelters(ctx context.Context, tx *sql.Tx, planID string, shelters []domain.Shelter) error {
	if len(shelters) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, s.q(`
	INSERT INTO plan_shelters (plan_id, position, id, name, location, capacity, current_occupancy, facilities, contact, status)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`))
	if err != nil {
		return fmt.Errorf("prepare shelter insert: %w", err)
	}
	defer stmt.Close()

	for i, sh := range shelters {
		facilities := sh.Facilities
		if facilities == nil {
			facilities = []string{}
		}
		enc, err := json.Marshal(facilities)
		if err != nil {
			return fmt.Errorf("shelter %q: encode facilities: %w", sh.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, planID, i, sh.ID, sh.Name, sh.Location, sh.Capacity,
			sh.CurrentOccupancy, string(enc), sh.Contact, string(sh.Status)); err != nil {
			return fmt.Errorf("insert shelter %q: %w", sh.ID, err)
		}
	}
	return nil
}

func (s *SQLPlanRepository) writeRoutes(ctx context.Context, tx *sql.Tx, planID string, routes []domain.Route) error {
	if len(routes) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, s.q(`
	INSERT INTO plan_routes (plan_id, position, id, name, from_location, to_location, distance, estimated_time, status)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
	`))
	if err != nil {
		return fmt.Errorf("prepare route insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range routes {
		if _, err := stmt.ExecContext(ctx, planID, i, r.ID, r.Name, r.From, r.To,
			r.Distance, r.EstimatedTime, string(r.Status)); err != nil {
			return fmt.Errorf("insert route %q: %w", r.ID, err)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}
