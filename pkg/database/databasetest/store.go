// Package databasetest provides an in-memory database.Store for tests.
// WithTx snapshots the whole state and restores it when fn fails, so
// tests can assert that failed use cases leave nothing behind.
package databasetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"gearshed-backend/pkg/database"
	"gearshed-backend/pkg/models"
)

// Store is an in-memory database.Store. It is not safe for concurrent
// use; tests drive it from a single goroutine.
type Store struct {
	txMu sync.Mutex

	users            map[string]models.User
	orgs             map[string]models.Organization
	memberships      map[string]models.OrganizationMembership
	categories       map[string]models.Category
	items            map[string]models.Item
	components       map[string]models.ItemComponent
	transformations  map[string]models.Transformation
	reservations     map[string]models.Reservation
	reservationItems map[string]models.ReservationItem
	extensions       map[string]models.ReservationExtension
}

var _ database.Store = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		users:            map[string]models.User{},
		orgs:             map[string]models.Organization{},
		memberships:      map[string]models.OrganizationMembership{},
		categories:       map[string]models.Category{},
		items:            map[string]models.Item{},
		components:       map[string]models.ItemComponent{},
		transformations:  map[string]models.Transformation{},
		reservations:     map[string]models.Reservation{},
		reservationItems: map[string]models.ReservationItem{},
		extensions:       map[string]models.ReservationExtension{},
	}
}

func (s *Store) newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.New().String()
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// WithTx runs fn and restores the pre-call state if fn returns an error.
func (s *Store) WithTx(_ context.Context, fn func(database.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	users := copyMap(s.users)
	orgs := copyMap(s.orgs)
	memberships := copyMap(s.memberships)
	categories := copyMap(s.categories)
	items := copyMap(s.items)
	components := copyMap(s.components)
	transformations := copyMap(s.transformations)
	reservations := copyMap(s.reservations)
	reservationItems := copyMap(s.reservationItems)
	extensions := copyMap(s.extensions)

	if err := fn(s); err != nil {
		s.users = users
		s.orgs = orgs
		s.memberships = memberships
		s.categories = categories
		s.items = items
		s.components = components
		s.transformations = transformations
		s.reservations = reservations
		s.reservationItems = reservationItems
		s.extensions = extensions
		return err
	}
	return nil
}

// Ping implements database.Store.
func (s *Store) Ping(context.Context) error { return nil }

// Close implements database.Store.
func (s *Store) Close() error { return nil }

// ---- users ----

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	for _, u := range s.users {
		if u.Email == user.Email {
			return database.ErrDuplicate
		}
	}
	user.ID = s.newID(user.ID)
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	s.users[user.ID] = *user
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *Store) GetUserByID(_ context.Context, id string) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &u, nil
}

// ---- organizations & memberships ----

func (s *Store) CreateOrganization(_ context.Context, org *models.Organization) error {
	org.ID = s.newID(org.ID)
	now := time.Now().UTC()
	org.CreatedAt, org.UpdatedAt = now, now
	s.orgs[org.ID] = *org
	return nil
}

func (s *Store) GetOrganization(_ context.Context, id string) (*models.Organization, error) {
	org, ok := s.orgs[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &org, nil
}

func (s *Store) ListUserOrganizations(_ context.Context, userID string) ([]models.Organization, error) {
	var out []models.Organization
	for _, m := range s.memberships {
		if m.UserID == userID {
			if org, ok := s.orgs[m.OrganizationID]; ok {
				out = append(out, org)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) AddMember(_ context.Context, m *models.OrganizationMembership) error {
	for _, existing := range s.memberships {
		if existing.OrganizationID == m.OrganizationID && existing.UserID == m.UserID {
			return database.ErrDuplicate
		}
	}
	m.ID = s.newID(m.ID)
	m.CreatedAt = time.Now().UTC()
	s.memberships[m.ID] = *m
	return nil
}

func (s *Store) GetMembership(_ context.Context, orgID, userID string) (*models.OrganizationMembership, error) {
	for _, m := range s.memberships {
		if m.OrganizationID == orgID && m.UserID == userID {
			m := m
			return &m, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *Store) ListMembers(_ context.Context, orgID string) ([]models.OrganizationMembership, error) {
	var out []models.OrganizationMembership
	for _, m := range s.memberships {
		if m.OrganizationID == orgID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateMemberRole(_ context.Context, orgID, userID string, role models.OrgMemberRole) error {
	for id, m := range s.memberships {
		if m.OrganizationID == orgID && m.UserID == userID {
			m.Role = role
			s.memberships[id] = m
			return nil
		}
	}
	return database.ErrNotFound
}

// ---- categories ----

func (s *Store) CreateCategory(_ context.Context, c *models.Category) error {
	for _, existing := range s.categories {
		if existing.OrganizationID == c.OrganizationID && existing.Name == c.Name {
			return database.ErrDuplicate
		}
	}
	c.ID = s.newID(c.ID)
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	s.categories[c.ID] = *c
	return nil
}

func (s *Store) GetCategory(_ context.Context, orgID, id string) (*models.Category, error) {
	c, ok := s.categories[id]
	if !ok || c.OrganizationID != orgID {
		return nil, database.ErrNotFound
	}
	return &c, nil
}

func (s *Store) ListCategories(_ context.Context, orgID string) ([]models.Category, error) {
	var out []models.Category
	for _, c := range s.categories {
		if c.OrganizationID == orgID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateCategory(_ context.Context, c *models.Category) error {
	existing, ok := s.categories[c.ID]
	if !ok || existing.OrganizationID != c.OrganizationID {
		return database.ErrNotFound
	}
	c.UpdatedAt = time.Now().UTC()
	s.categories[c.ID] = *c
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, orgID, id string) error {
	c, ok := s.categories[id]
	if !ok || c.OrganizationID != orgID {
		return database.ErrNotFound
	}
	delete(s.categories, id)
	return nil
}

// ---- items ----

func (s *Store) CreateItem(_ context.Context, item *models.Item) error {
	for _, existing := range s.items {
		if existing.OrganizationID == item.OrganizationID && existing.Identifier == item.Identifier {
			return database.ErrDuplicate
		}
	}
	item.ID = s.newID(item.ID)
	now := time.Now().UTC()
	item.CreatedAt, item.UpdatedAt = now, now
	s.items[item.ID] = *item
	return nil
}

func (s *Store) GetItem(_ context.Context, orgID, id string) (*models.Item, error) {
	item, ok := s.items[id]
	if !ok || item.OrganizationID != orgID {
		return nil, database.ErrNotFound
	}
	return &item, nil
}

func (s *Store) GetItemForUpdate(ctx context.Context, orgID, id string) (*models.Item, error) {
	return s.GetItem(ctx, orgID, id)
}

func (s *Store) GetItemByIdentifier(_ context.Context, orgID, identifier string) (*models.Item, error) {
	for _, item := range s.items {
		if item.OrganizationID == orgID && item.Identifier == identifier {
			item := item
			return &item, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *Store) ListItems(_ context.Context, orgID string, f database.ItemFilter) ([]models.Item, error) {
	var out []models.Item
	for _, item := range s.items {
		if item.OrganizationID != orgID {
			continue
		}
		if !f.IncludeDeleted && item.DeletedAt != nil {
			continue
		}
		if f.Status != "" && item.Status != f.Status {
			continue
		}
		if f.CategoryID != "" && (item.CategoryID == nil || *item.CategoryID != f.CategoryID) {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out, nil
}

func (s *Store) UpdateItem(_ context.Context, item *models.Item) error {
	existing, ok := s.items[item.ID]
	if !ok || existing.OrganizationID != item.OrganizationID {
		return database.ErrNotFound
	}
	item.UpdatedAt = time.Now().UTC()
	s.items[item.ID] = *item
	return nil
}

func (s *Store) SoftDeleteItem(_ context.Context, orgID, id string, at time.Time) error {
	item, ok := s.items[id]
	if !ok || item.OrganizationID != orgID || item.DeletedAt != nil {
		return database.ErrNotFound
	}
	item.DeletedAt = &at
	item.UpdatedAt = at
	s.items[id] = item
	return nil
}

func (s *Store) AddComponent(_ context.Context, c *models.ItemComponent) error {
	for _, existing := range s.components {
		if existing.ParentItemID == c.ParentItemID && existing.ComponentItemID == c.ComponentItemID {
			return database.ErrDuplicate
		}
	}
	c.ID = s.newID(c.ID)
	c.CreatedAt = time.Now().UTC()
	s.components[c.ID] = *c
	return nil
}

func (s *Store) RemoveComponent(_ context.Context, parentItemID, componentItemID string) error {
	for id, c := range s.components {
		if c.ParentItemID == parentItemID && c.ComponentItemID == componentItemID {
			delete(s.components, id)
			return nil
		}
	}
	return database.ErrNotFound
}

func (s *Store) ListComponents(_ context.Context, parentItemID string) ([]models.ItemComponent, error) {
	var out []models.ItemComponent
	for _, c := range s.components {
		if c.ParentItemID == parentItemID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteComponents(_ context.Context, parentItemID string) error {
	for id, c := range s.components {
		if c.ParentItemID == parentItemID {
			delete(s.components, id)
		}
	}
	return nil
}

// ---- transformations ----

func (s *Store) CreateTransformation(_ context.Context, t *models.Transformation) error {
	t.ID = s.newID(t.ID)
	t.CreatedAt = time.Now().UTC()
	s.transformations[t.ID] = *t
	return nil
}

func (s *Store) GetTransformation(_ context.Context, orgID, id string) (*models.Transformation, error) {
	t, ok := s.transformations[id]
	if !ok || t.OrganizationID != orgID {
		return nil, database.ErrNotFound
	}
	return &t, nil
}

func (s *Store) ListTransformations(_ context.Context, orgID string, f database.TransformationFilter) ([]models.Transformation, error) {
	contains := func(ids []string, id string) bool {
		for _, v := range ids {
			if v == id {
				return true
			}
		}
		return false
	}

	var out []models.Transformation
	for _, t := range s.transformations {
		if t.OrganizationID != orgID {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if f.ActorID != "" && t.ActorID != f.ActorID {
			continue
		}
		if f.ItemID != "" && !contains(t.SourceItemIDs, f.ItemID) && !contains(t.ResultItemIDs, f.ItemID) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- reservations ----

func (s *Store) CreateReservation(ctx context.Context, r *models.Reservation, items []models.ReservationItem) error {
	r.ID = s.newID(r.ID)
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	s.reservations[r.ID] = *r

	for i := range items {
		items[i].ReservationID = r.ID
	}
	if err := s.AddReservationItems(ctx, items); err != nil {
		return err
	}
	r.Items = items
	return nil
}

func (s *Store) GetReservation(_ context.Context, orgID, id string) (*models.Reservation, error) {
	r, ok := s.reservations[id]
	if !ok || r.OrganizationID != orgID {
		return nil, database.ErrNotFound
	}

	r.Items = nil
	for _, ri := range s.reservationItems {
		if ri.ReservationID == r.ID {
			out := ri
			r.Items = append(r.Items, out)
		}
	}
	sort.Slice(r.Items, func(i, j int) bool { return r.Items[i].ID < r.Items[j].ID })

	r.Extensions = nil
	for _, e := range s.extensions {
		if e.ReservationID == r.ID {
			r.Extensions = append(r.Extensions, e)
		}
	}
	sort.Slice(r.Extensions, func(i, j int) bool {
		return r.Extensions[i].NewDueDate.Before(r.Extensions[j].NewDueDate)
	})

	return &r, nil
}

func (s *Store) GetReservationForUpdate(ctx context.Context, orgID, id string) (*models.Reservation, error) {
	return s.GetReservation(ctx, orgID, id)
}

func (s *Store) ListReservations(_ context.Context, orgID string, f database.ReservationFilter) ([]models.Reservation, error) {
	var out []models.Reservation
	for _, r := range s.reservations {
		if r.OrganizationID != orgID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.RequesterID != "" && r.RequesterID != f.RequesterID {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateReservation(_ context.Context, r *models.Reservation) error {
	existing, ok := s.reservations[r.ID]
	if !ok || existing.OrganizationID != r.OrganizationID {
		return database.ErrNotFound
	}
	r.UpdatedAt = time.Now().UTC()
	stored := *r
	stored.Items = nil
	stored.Extensions = nil
	s.reservations[r.ID] = stored
	return nil
}

func (s *Store) AddReservationItems(_ context.Context, items []models.ReservationItem) error {
	for i := range items {
		for _, existing := range s.reservationItems {
			if existing.ReservationID == items[i].ReservationID && existing.ItemID == items[i].ItemID {
				return database.ErrDuplicate
			}
		}
		items[i].ID = s.newID(items[i].ID)
		items[i].CreatedAt = time.Now().UTC()
		s.reservationItems[items[i].ID] = items[i]
	}
	return nil
}

func (s *Store) SetItemInspection(_ context.Context, reservationID, itemID string, outcome models.InspectionOutcome, notes string) error {
	for id, ri := range s.reservationItems {
		if ri.ReservationID == reservationID && ri.ItemID == itemID {
			ri.InspectionOutcome = &outcome
			ri.InspectionNotes = notes
			s.reservationItems[id] = ri
			return nil
		}
	}
	return database.ErrNotFound
}

func (s *Store) AddExtension(_ context.Context, e *models.ReservationExtension) error {
	e.ID = s.newID(e.ID)
	e.CreatedAt = time.Now().UTC()
	s.extensions[e.ID] = *e
	return nil
}
