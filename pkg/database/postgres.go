package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"gearshed-backend/pkg/models"
)

var dialect = goqu.Dialect("postgres")

// PostgresStore is the single concrete Store implementation. The same
// struct serves both connection-scoped and transaction-scoped access:
// ext is either the *sqlx.DB or a *sqlx.Tx.
type PostgresStore struct {
	db  *sqlx.DB
	ext sqlx.ExtContext
}

var _ Store = (*PostgresStore)(nil)

// Open connects to Postgres and configures the connection pool. The
// returned store is owned by the caller and must be closed on shutdown.
func Open(dsn string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &PostgresStore{db: db, ext: db}, nil
}

// Ping verifies the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// WithTx runs fn against a transaction-scoped store. A nested call joins
// the transaction already in progress.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(Store) error) error {
	if _, ok := s.ext.(*sqlx.Tx); ok {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(&PostgresStore{db: s.db, ext: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rolling back transaction: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func translateGetErr(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("getting %s: %w", what, err)
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.New().String()
}

// ---- users ----

func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = newID(user.ID)
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now

	_, err := s.ext.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Email, user.Password, user.Name, user.CreatedAt, user.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := sqlx.GetContext(ctx, s.ext, &u, `
		SELECT id, email, password_hash, COALESCE(name, '') AS name, created_at, updated_at
		FROM users WHERE email = $1`, email)
	if err != nil {
		return nil, translateGetErr(err, "user")
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := sqlx.GetContext(ctx, s.ext, &u, `
		SELECT id, email, password_hash, COALESCE(name, '') AS name, created_at, updated_at
		FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, translateGetErr(err, "user")
	}
	return &u, nil
}

// ---- organizations & memberships ----

func (s *PostgresStore) CreateOrganization(ctx context.Context, org *models.Organization) error {
	org.ID = newID(org.ID)
	now := time.Now().UTC()
	org.CreatedAt, org.UpdatedAt = now, now

	_, err := s.ext.ExecContext(ctx, `
		INSERT INTO organizations (id, name, owner_id, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		org.ID, org.Name, org.OwnerID, org.Description, org.CreatedAt, org.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating organization: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	var org models.Organization
	err := sqlx.GetContext(ctx, s.ext, &org, `
		SELECT id, name, owner_id, COALESCE(description, '') AS description, created_at, updated_at
		FROM organizations WHERE id = $1`, id)
	if err != nil {
		return nil, translateGetErr(err, "organization")
	}
	return &org, nil
}

func (s *PostgresStore) ListUserOrganizations(ctx context.Context, userID string) ([]models.Organization, error) {
	var orgs []models.Organization
	err := sqlx.SelectContext(ctx, s.ext, &orgs, `
		SELECT o.id, o.name, o.owner_id, COALESCE(o.description, '') AS description, o.created_at, o.updated_at
		FROM organizations o
		JOIN organization_memberships m ON m.organization_id = o.id
		WHERE m.user_id = $1
		ORDER BY o.created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing organizations: %w", err)
	}
	return orgs, nil
}

func (s *PostgresStore) AddMember(ctx context.Context, m *models.OrganizationMembership) error {
	m.ID = newID(m.ID)
	m.CreatedAt = time.Now().UTC()

	_, err := s.ext.ExecContext(ctx, `
		INSERT INTO organization_memberships (id, organization_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.OrganizationID, m.UserID, m.Role, m.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("adding member: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMembership(ctx context.Context, orgID, userID string) (*models.OrganizationMembership, error) {
	var m models.OrganizationMembership
	err := sqlx.GetContext(ctx, s.ext, &m, `
		SELECT id, organization_id, user_id, role, created_at
		FROM organization_memberships
		WHERE organization_id = $1 AND user_id = $2`, orgID, userID)
	if err != nil {
		return nil, translateGetErr(err, "membership")
	}
	return &m, nil
}

func (s *PostgresStore) ListMembers(ctx context.Context, orgID string) ([]models.OrganizationMembership, error) {
	var members []models.OrganizationMembership
	err := sqlx.SelectContext(ctx, s.ext, &members, `
		SELECT id, organization_id, user_id, role, created_at
		FROM organization_memberships
		WHERE organization_id = $1
		ORDER BY created_at`, orgID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	return members, nil
}

func (s *PostgresStore) UpdateMemberRole(ctx context.Context, orgID, userID string, role models.OrgMemberRole) error {
	res, err := s.ext.ExecContext(ctx, `
		UPDATE organization_memberships SET role = $1
		WHERE organization_id = $2 AND user_id = $3`, role, orgID, userID)
	if err != nil {
		return fmt.Errorf("updating member role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- categories ----

func (s *PostgresStore) CreateCategory(ctx context.Context, c *models.Category) error {
	c.ID = newID(c.ID)
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	_, err := s.ext.ExecContext(ctx, `
		INSERT INTO categories (id, organization_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.OrganizationID, c.Name, c.Description, c.CreatedAt, c.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("creating category: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCategory(ctx context.Context, orgID, id string) (*models.Category, error) {
	var c models.Category
	err := sqlx.GetContext(ctx, s.ext, &c, `
		SELECT id, organization_id, name, COALESCE(description, '') AS description, created_at, updated_at
		FROM categories WHERE organization_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return nil, translateGetErr(err, "category")
	}
	return &c, nil
}

func (s *PostgresStore) ListCategories(ctx context.Context, orgID string) ([]models.Category, error) {
	var cats []models.Category
	err := sqlx.SelectContext(ctx, s.ext, &cats, `
		SELECT id, organization_id, name, COALESCE(description, '') AS description, created_at, updated_at
		FROM categories WHERE organization_id = $1 ORDER BY name`, orgID)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return cats, nil
}

func (s *PostgresStore) UpdateCategory(ctx context.Context, c *models.Category) error {
	c.UpdatedAt = time.Now().UTC()
	res, err := s.ext.ExecContext(ctx, `
		UPDATE categories SET name = $1, description = $2, updated_at = $3
		WHERE organization_id = $4 AND id = $5`,
		c.Name, c.Description, c.UpdatedAt, c.OrganizationID, c.ID)
	if err != nil {
		return fmt.Errorf("updating category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteCategory(ctx context.Context, orgID, id string) error {
	res, err := s.ext.ExecContext(ctx, `
		DELETE FROM categories WHERE organization_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- items ----

const itemColumns = `id, organization_id, identifier, name, category_id, status,
	COALESCE(unit, '') AS unit, value, COALESCE(notes, '') AS notes,
	created_at, updated_at, deleted_at`

func (s *PostgresStore) CreateItem(ctx context.Context, item *models.Item) error {
	item.ID = newID(item.ID)
	now := time.Now().UTC()
	item.CreatedAt, item.UpdatedAt = now, now

	_, err := s.ext.ExecContext(ctx, `
		INSERT INTO items (id, organization_id, identifier, name, category_id, status, unit, value, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		item.ID, item.OrganizationID, item.Identifier, item.Name, item.CategoryID,
		item.Status, item.Unit, item.Value, item.Notes, item.CreatedAt, item.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("creating item: %w", err)
	}
	return nil
}

func (s *PostgresStore) getItem(ctx context.Context, orgID, id string, forUpdate bool) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE organization_id = $1 AND id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var item models.Item
	if err := sqlx.GetContext(ctx, s.ext, &item, query, orgID, id); err != nil {
		return nil, translateGetErr(err, "item")
	}
	return &item, nil
}

func (s *PostgresStore) GetItem(ctx context.Context, orgID, id string) (*models.Item, error) {
	return s.getItem(ctx, orgID, id, false)
}

func (s *PostgresStore) GetItemForUpdate(ctx context.Context, orgID, id string) (*models.Item, error) {
	return s.getItem(ctx, orgID, id, true)
}

func (s *PostgresStore) GetItemByIdentifier(ctx context.Context, orgID, identifier string) (*models.Item, error) {
	var item models.Item
	err := sqlx.GetContext(ctx, s.ext, &item, `
		SELECT `+itemColumns+` FROM items WHERE organization_id = $1 AND identifier = $2`,
		orgID, identifier)
	if err != nil {
		return nil, translateGetErr(err, "item")
	}
	return &item, nil
}

func (s *PostgresStore) ListItems(ctx context.Context, orgID string, f ItemFilter) ([]models.Item, error) {
	q := dialect.From("items").
		Select(
			"id", "organization_id", "identifier", "name", "category_id", "status",
			goqu.L("COALESCE(unit, '')").As("unit"), "value",
			goqu.L("COALESCE(notes, '')").As("notes"),
			"created_at", "updated_at", "deleted_at",
		).
		Where(goqu.Ex{"organization_id": orgID}).
		Order(goqu.I("identifier").Asc())

	if !f.IncludeDeleted {
		q = q.Where(goqu.I("deleted_at").IsNull())
	}
	if f.Status != "" {
		q = q.Where(goqu.Ex{"status": string(f.Status)})
	}
	if f.CategoryID != "" {
		q = q.Where(goqu.Ex{"category_id": f.CategoryID})
	}

	query, args, err := q.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building item query: %w", err)
	}

	var items []models.Item
	if err := sqlx.SelectContext(ctx, s.ext, &items, query, args...); err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateItem(ctx context.Context, item *models.Item) error {
	item.UpdatedAt = time.Now().UTC()
	res, err := s.ext.ExecContext(ctx, `
		UPDATE items
		SET name = $1, category_id = $2, status = $3, unit = $4, value = $5, notes = $6,
		    updated_at = $7, deleted_at = $8
		WHERE organization_id = $9 AND id = $10`,
		item.Name, item.CategoryID, item.Status, item.Unit, item.Value, item.Notes,
		item.UpdatedAt, item.DeletedAt, item.OrganizationID, item.ID)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SoftDeleteItem(ctx context.Context, orgID, id string, at time.Time) error {
	res, err := s.ext.ExecContext(ctx, `
		UPDATE items SET deleted_at = $1, updated_at = $1
		WHERE organization_id = $2 AND id = $3 AND deleted_at IS NULL`, at, orgID, id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AddComponent(ctx context.Context, c *models.ItemComponent) error {
	c.ID = newID(c.ID)
	c.CreatedAt = time.Now().UTC()

	_, err := s.ext.ExecContext(ctx, `
		INSERT INTO item_components (id, parent_item_id, component_item_id, quantity, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.ParentItemID, c.ComponentItemID, c.Quantity, c.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("adding component: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveComponent(ctx context.Context, parentItemID, componentItemID string) error {
	res, err := s.ext.ExecContext(ctx, `
		DELETE FROM item_components WHERE parent_item_id = $1 AND component_item_id = $2`,
		parentItemID, componentItemID)
	if err != nil {
		return fmt.Errorf("removing component: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListComponents(ctx context.Context, parentItemID string) ([]models.ItemComponent, error) {
	var comps []models.ItemComponent
	err := sqlx.SelectContext(ctx, s.ext, &comps, `
		SELECT id, parent_item_id, component_item_id, quantity, created_at
		FROM item_components WHERE parent_item_id = $1 ORDER BY created_at`, parentItemID)
	if err != nil {
		return nil, fmt.Errorf("listing components: %w", err)
	}
	return comps, nil
}

func (s *PostgresStore) DeleteComponents(ctx context.Context, parentItemID string) error {
	_, err := s.ext.ExecContext(ctx, `
		DELETE FROM item_components WHERE parent_item_id = $1`, parentItemID)
	if err != nil {
		return fmt.Errorf("deleting components: %w", err)
	}
	return nil
}

// ---- transformations ----

func (s *PostgresStore) CreateTransformation(ctx context.Context, t *models.Transformation) error {
	t.ID = newID(t.ID)
	t.CreatedAt = time.Now().UTC()

	_, err := s.ext.ExecContext(ctx, `
		INSERT INTO transformations (id, organization_id, type, actor_id, reason, notes, source_item_ids, result_item_ids, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.OrganizationID, t.Type, t.ActorID, t.Reason, t.Notes,
		pq.Array(t.SourceItemIDs), pq.Array(t.ResultItemIDs), []byte(t.Details), t.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating transformation: %w", err)
	}
	return nil
}

func scanTransformation(row sqlx.ColScanner) (*models.Transformation, error) {
	var t models.Transformation
	var details []byte
	err := row.Scan(&t.ID, &t.OrganizationID, &t.Type, &t.ActorID, &t.Reason, &t.Notes,
		pq.Array(&t.SourceItemIDs), pq.Array(&t.ResultItemIDs), &details, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Details = details
	return &t, nil
}

const transformationColumns = `id, organization_id, type, actor_id,
	COALESCE(reason, '') AS reason, COALESCE(notes, '') AS notes,
	source_item_ids, result_item_ids, details, created_at`

func (s *PostgresStore) GetTransformation(ctx context.Context, orgID, id string) (*models.Transformation, error) {
	row := s.ext.QueryRowxContext(ctx, `
		SELECT `+transformationColumns+`
		FROM transformations WHERE organization_id = $1 AND id = $2`, orgID, id)
	t, err := scanTransformation(row)
	if err != nil {
		return nil, translateGetErr(err, "transformation")
	}
	return t, nil
}

func (s *PostgresStore) ListTransformations(ctx context.Context, orgID string, f TransformationFilter) ([]models.Transformation, error) {
	q := dialect.From("transformations").
		Select(
			"id", "organization_id", "type", "actor_id",
			goqu.L("COALESCE(reason, '')").As("reason"),
			goqu.L("COALESCE(notes, '')").As("notes"),
			"source_item_ids", "result_item_ids", "details", "created_at",
		).
		Where(goqu.Ex{"organization_id": orgID}).
		Order(goqu.I("created_at").Desc())

	if f.Type != "" {
		q = q.Where(goqu.Ex{"type": string(f.Type)})
	}
	if f.ActorID != "" {
		q = q.Where(goqu.Ex{"actor_id": f.ActorID})
	}
	if f.ItemID != "" {
		q = q.Where(goqu.L("(? = ANY(source_item_ids) OR ? = ANY(result_item_ids))", f.ItemID, f.ItemID))
	}

	query, args, err := q.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building transformation query: %w", err)
	}

	rows, err := s.ext.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transformations: %w", err)
	}
	defer rows.Close()

	var out []models.Transformation
	for rows.Next() {
		t, err := scanTransformation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transformation: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// ---- reservations ----

const reservationColumns = `id, organization_id, requester_id, status,
	COALESCE(notes, '') AS notes, start_date, due_date,
	delivered_by, delivered_at, returned_by, returned_at, created_at, updated_at`

func (s *PostgresStore) CreateReservation(ctx context.Context, r *models.Reservation, items []models.ReservationItem) error {
	r.ID = newID(r.ID)
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now

	_, err := s.ext.ExecContext(ctx, `
		INSERT INTO reservations (id, organization_id, requester_id, status, notes, start_date, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.OrganizationID, r.RequesterID, r.Status, r.Notes, r.StartDate, r.DueDate,
		r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating reservation: %w", err)
	}

	for i := range items {
		items[i].ReservationID = r.ID
	}
	if err := s.AddReservationItems(ctx, items); err != nil {
		return err
	}
	r.Items = items
	return nil
}

func (s *PostgresStore) getReservation(ctx context.Context, orgID, id string, forUpdate bool) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE organization_id = $1 AND id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var r models.Reservation
	if err := sqlx.GetContext(ctx, s.ext, &r, query, orgID, id); err != nil {
		return nil, translateGetErr(err, "reservation")
	}

	err := sqlx.SelectContext(ctx, s.ext, &r.Items, `
		SELECT id, reservation_id, item_id, source, inspection_outcome,
		       COALESCE(inspection_notes, '') AS inspection_notes, created_at
		FROM reservation_items WHERE reservation_id = $1 ORDER BY created_at`, r.ID)
	if err != nil {
		return nil, fmt.Errorf("listing reservation items: %w", err)
	}

	err = sqlx.SelectContext(ctx, s.ext, &r.Extensions, `
		SELECT id, reservation_id, extended_by, days, COALESCE(motivation, '') AS motivation,
		       previous_due_date, new_due_date, created_at
		FROM reservation_extensions WHERE reservation_id = $1 ORDER BY created_at`, r.ID)
	if err != nil {
		return nil, fmt.Errorf("listing reservation extensions: %w", err)
	}

	return &r, nil
}

func (s *PostgresStore) GetReservation(ctx context.Context, orgID, id string) (*models.Reservation, error) {
	return s.getReservation(ctx, orgID, id, false)
}

func (s *PostgresStore) GetReservationForUpdate(ctx context.Context, orgID, id string) (*models.Reservation, error) {
	return s.getReservation(ctx, orgID, id, true)
}

func (s *PostgresStore) ListReservations(ctx context.Context, orgID string, f ReservationFilter) ([]models.Reservation, error) {
	q := dialect.From("reservations").
		Select(
			"id", "organization_id", "requester_id", "status",
			goqu.L("COALESCE(notes, '')").As("notes"),
			"start_date", "due_date", "delivered_by", "delivered_at",
			"returned_by", "returned_at", "created_at", "updated_at",
		).
		Where(goqu.Ex{"organization_id": orgID}).
		Order(goqu.I("created_at").Desc())

	if f.Status != "" {
		q = q.Where(goqu.Ex{"status": string(f.Status)})
	}
	if f.RequesterID != "" {
		q = q.Where(goqu.Ex{"requester_id": f.RequesterID})
	}

	query, args, err := q.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building reservation query: %w", err)
	}

	var out []models.Reservation
	if err := sqlx.SelectContext(ctx, s.ext, &out, query, args...); err != nil {
		return nil, fmt.Errorf("listing reservations: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateReservation(ctx context.Context, r *models.Reservation) error {
	r.UpdatedAt = time.Now().UTC()
	res, err := s.ext.ExecContext(ctx, `
		UPDATE reservations
		SET status = $1, notes = $2, start_date = $3, due_date = $4,
		    delivered_by = $5, delivered_at = $6, returned_by = $7, returned_at = $8,
		    updated_at = $9
		WHERE organization_id = $10 AND id = $11`,
		r.Status, r.Notes, r.StartDate, r.DueDate,
		r.DeliveredBy, r.DeliveredAt, r.ReturnedBy, r.ReturnedAt,
		r.UpdatedAt, r.OrganizationID, r.ID)
	if err != nil {
		return fmt.Errorf("updating reservation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AddReservationItems(ctx context.Context, items []models.ReservationItem) error {
	now := time.Now().UTC()
	for i := range items {
		items[i].ID = newID(items[i].ID)
		items[i].CreatedAt = now

		_, err := s.ext.ExecContext(ctx, `
			INSERT INTO reservation_items (id, reservation_id, item_id, source, inspection_notes, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			items[i].ID, items[i].ReservationID, items[i].ItemID, items[i].Source,
			items[i].InspectionNotes, items[i].CreatedAt)
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		if err != nil {
			return fmt.Errorf("adding reservation item: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) SetItemInspection(ctx context.Context, reservationID, itemID string, outcome models.InspectionOutcome, notes string) error {
	res, err := s.ext.ExecContext(ctx, `
		UPDATE reservation_items SET inspection_outcome = $1, inspection_notes = $2
		WHERE reservation_id = $3 AND item_id = $4`,
		outcome, notes, reservationID, itemID)
	if err != nil {
		return fmt.Errorf("setting inspection: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AddExtension(ctx context.Context, e *models.ReservationExtension) error {
	e.ID = newID(e.ID)
	e.CreatedAt = time.Now().UTC()

	_, err := s.ext.ExecContext(ctx, `
		INSERT INTO reservation_extensions (id, reservation_id, extended_by, days, motivation, previous_due_date, new_due_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.ReservationID, e.ExtendedBy, e.Days, e.Motivation,
		e.PreviousDueDate, e.NewDueDate, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("adding extension: %w", err)
	}
	return nil
}
