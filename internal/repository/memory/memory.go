// Package memory provides an in-memory implementation of the repository
// contracts. It backs STORAGE_BACKEND=memory for local runs and is the store
// used by service and handler tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"awsugmdu-backend/internal/domain"
	"awsugmdu-backend/internal/repository"
	appErrors "awsugmdu-backend/pkg/errors"
)

// Store holds every table behind one mutex so store transactions are atomic.
type Store struct {
	mu sync.Mutex

	Sprints *Table[domain.Sprint, *domain.Sprint]
	Groups  *Table[domain.CertificationGroup, *domain.CertificationGroup]
	Items   *Table[domain.StoreItem, *domain.StoreItem]
	Orders  *Table[domain.Order, *domain.Order]
	Users   *Users

	// For testing error scenarios, keyed by "<table>.<Method>".
	shouldFailOn map[string]error
}

var _ repository.Transactions = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	s := &Store{shouldFailOn: make(map[string]error)}
	s.Sprints = newTable[domain.Sprint](s, "sprints", "Sprint")
	s.Groups = newTable[domain.CertificationGroup](s, "groups", "Certification group")
	s.Items = newTable[domain.StoreItem](s, "items", "Store item")
	s.Orders = newTable[domain.Order](s, "orders", "Order")
	s.Users = &Users{store: s, rows: make(map[string]domain.User)}
	return s
}

// SetError makes the named operation fail with err, e.g. "sprints.Save" or
// "store.CommitRedemption".
func (s *Store) SetError(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shouldFailOn[method] = err
}

// ClearErrors removes all configured errors.
func (s *Store) ClearErrors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shouldFailOn = make(map[string]error)
}

func (s *Store) checkError(method string) error {
	if err, exists := s.shouldFailOn[method]; exists {
		return err
	}
	return nil
}

// Table stores one aggregate type as encoded documents, so callers always get
// private copies.
type Table[T any, PT repository.AggregatePtr[T]] struct {
	store  *Store
	name   string
	entity string
	rows   map[string][]byte
}

var (
	_ repository.SprintStore = (*Table[domain.Sprint, *domain.Sprint])(nil)
	_ repository.ItemStore   = (*Table[domain.StoreItem, *domain.StoreItem])(nil)
)

func newTable[T any, PT repository.AggregatePtr[T]](s *Store, name, entity string) *Table[T, PT] {
	return &Table[T, PT]{store: s, name: name, entity: entity, rows: make(map[string][]byte)}
}

func (t *Table[T, PT]) Get(ctx context.Context, id string) (*T, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if err := t.store.checkError(t.name + ".Get"); err != nil {
		return nil, err
	}
	return t.getLocked(id)
}

func (t *Table[T, PT]) List(ctx context.Context, filters ...repository.Filter) ([]*T, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if err := t.store.checkError(t.name + ".List"); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	items := make([]*T, 0, len(ids))
	for _, id := range ids {
		raw := t.rows[id]
		ok, err := matches(raw, filters)
		if err != nil {
			return nil, appErrors.NewInternal("failed to filter "+t.name, err)
		}
		if !ok {
			continue
		}
		item, err := decode[T](raw)
		if err != nil {
			return nil, appErrors.NewInternal("failed to decode "+t.name, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (t *Table[T, PT]) Create(ctx context.Context, item *T) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if err := t.store.checkError(t.name + ".Create"); err != nil {
		return err
	}
	return t.createLocked(item)
}

func (t *Table[T, PT]) Save(ctx context.Context, item *T) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if err := t.store.checkError(t.name + ".Save"); err != nil {
		return err
	}
	if err := t.checkVersionLocked(item); err != nil {
		return err
	}
	return t.putLocked(item)
}

func (t *Table[T, PT]) Delete(ctx context.Context, id string) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if err := t.store.checkError(t.name + ".Delete"); err != nil {
		return err
	}
	if _, ok := t.rows[id]; !ok {
		return t.notFound()
	}
	delete(t.rows, id)
	return nil
}

func (t *Table[T, PT]) notFound() error {
	return appErrors.NewNotFound(t.entity + " not found")
}

func (t *Table[T, PT]) getLocked(id string) (*T, error) {
	raw, ok := t.rows[id]
	if !ok {
		return nil, t.notFound()
	}
	item, err := decode[T](raw)
	if err != nil {
		return nil, appErrors.NewInternal("failed to decode "+t.name, err)
	}
	return item, nil
}

func (t *Table[T, PT]) createLocked(item *T) error {
	agg := PT(item)
	if _, exists := t.rows[agg.AggregateID()]; exists {
		return appErrors.NewConflict(fmt.Sprintf("%s %s already exists", t.entity, agg.AggregateID()), nil)
	}
	agg.SetAggregateVersion(1)
	raw, err := json.Marshal(item)
	if err != nil {
		agg.SetAggregateVersion(0)
		return appErrors.NewInternal("failed to encode "+t.name, err)
	}
	t.rows[agg.AggregateID()] = raw
	return nil
}

// checkVersionLocked fails with CONFLICT unless the stored document has the
// same version as item.
func (t *Table[T, PT]) checkVersionLocked(item *T) error {
	agg := PT(item)
	current, err := t.getLocked(agg.AggregateID())
	if err != nil {
		if appErrors.IsNotFound(err) {
			return appErrors.NewConflict(t.entity+" was deleted concurrently", err)
		}
		return err
	}
	if PT(current).AggregateVersion() != agg.AggregateVersion() {
		return appErrors.NewConflict(t.entity+" was modified concurrently", nil)
	}
	return nil
}

// putLocked writes item with its version advanced by one.
func (t *Table[T, PT]) putLocked(item *T) error {
	agg := PT(item)
	expected := agg.AggregateVersion()
	agg.SetAggregateVersion(expected + 1)
	raw, err := json.Marshal(item)
	if err != nil {
		agg.SetAggregateVersion(expected)
		return appErrors.NewInternal("failed to encode "+t.name, err)
	}
	t.rows[agg.AggregateID()] = raw
	return nil
}

func decode[T any](raw []byte) (*T, error) {
	item := new(T)
	if err := json.Unmarshal(raw, item); err != nil {
		return nil, err
	}
	return item, nil
}

func matches(raw []byte, filters []repository.Filter) (bool, error) {
	if len(filters) == 0 {
		return true, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return false, err
	}
	for _, f := range filters {
		v, ok := doc[f.Attribute]
		if !ok || fmt.Sprint(v) != f.Value {
			return false, nil
		}
	}
	return true, nil
}

// Users is the in-memory user table.
type Users struct {
	store *Store
	rows  map[string]domain.User
}

var _ repository.UserStore = (*Users)(nil)

// Put seeds a user record as-is.
func (u *Users) Put(user domain.User) {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	u.rows[user.ID] = user
}

func (u *Users) Get(ctx context.Context, id string) (*domain.User, error) {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	if err := u.store.checkError("users.Get"); err != nil {
		return nil, err
	}
	user, ok := u.rows[id]
	if !ok {
		return nil, appErrors.NewNotFound("User not found")
	}
	return &user, nil
}

func (u *Users) Upsert(ctx context.Context, id, email, name string, now time.Time) (*domain.User, error) {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	if err := u.store.checkError("users.Upsert"); err != nil {
		return nil, err
	}
	user, ok := u.rows[id]
	if !ok {
		user = domain.User{ID: id}
	}
	user.Email = email
	user.Name = name
	user.Touch(now)
	user.Version++
	u.rows[id] = user
	return &user, nil
}

func (u *Users) AdjustPoints(ctx context.Context, id string, delta int, now time.Time) (*domain.User, error) {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	if err := u.store.checkError("users.AdjustPoints"); err != nil {
		return nil, err
	}
	if err := u.adjustLocked(id, delta, now); err != nil {
		return nil, err
	}
	user := u.rows[id]
	return &user, nil
}

func (u *Users) adjustLocked(id string, delta int, now time.Time) error {
	user, ok := u.rows[id]
	if !ok {
		if delta < 0 {
			return appErrors.NewNotFound("User not found")
		}
		user = domain.User{ID: id}
		user.CreatedAt = now
	}
	if user.Points+delta < 0 {
		return repository.ErrInsufficientPoints
	}
	user.Points += delta
	user.UpdatedAt = now
	user.Version++
	u.rows[id] = user
	return nil
}

// CommitRedemption debits the user, creates the order and saves the item,
// or changes nothing.
func (s *Store) CommitRedemption(ctx context.Context, r repository.Redemption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkError("store.CommitRedemption"); err != nil {
		return err
	}
	user, ok := s.Users.rows[r.UserID]
	if !ok || user.Points < r.Cost {
		return repository.ErrInsufficientPoints
	}
	if _, exists := s.Orders.rows[r.Order.ID]; exists {
		return appErrors.NewConflict("order already exists", nil)
	}
	if err := s.Items.checkVersionLocked(r.Item); err != nil {
		return err
	}

	if err := s.Items.putLocked(r.Item); err != nil {
		return err
	}
	if err := s.Orders.createLocked(r.Order); err != nil {
		return err
	}
	return s.Users.adjustLocked(r.UserID, -r.Cost, r.Now)
}

// CommitCodeAssignment saves the order and the item it took a code from.
func (s *Store) CommitCodeAssignment(ctx context.Context, a repository.CodeAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkError("store.CommitCodeAssignment"); err != nil {
		return err
	}
	if err := s.Orders.checkVersionLocked(a.Order); err != nil {
		return err
	}
	if err := s.Items.checkVersionLocked(a.Item); err != nil {
		return err
	}

	if err := s.Orders.putLocked(a.Order); err != nil {
		return err
	}
	return s.Items.putLocked(a.Item)
}

// CommitCancellation saves the cancelled order, refunds the user and, when
// present, saves the item.
func (s *Store) CommitCancellation(ctx context.Context, c repository.Cancellation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkError("store.CommitCancellation"); err != nil {
		return err
	}
	if err := s.Orders.checkVersionLocked(c.Order); err != nil {
		return err
	}
	if c.Item != nil {
		if err := s.Items.checkVersionLocked(c.Item); err != nil {
			return err
		}
	}
	if err := s.Orders.putLocked(c.Order); err != nil {
		return err
	}
	if c.Item != nil {
		if err := s.Items.putLocked(c.Item); err != nil {
			return err
		}
	}
	if c.Refund > 0 {
		return s.Users.adjustLocked(c.Order.UserID, c.Refund, c.Now)
	}
	return nil
}

// CommitSubmissionReview saves the sprint and credits the submitter.
func (s *Store) CommitSubmissionReview(ctx context.Context, r repository.SubmissionReview) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkError("store.CommitSubmissionReview"); err != nil {
		return err
	}
	if err := s.Sprints.checkVersionLocked(r.Sprint); err != nil {
		return err
	}
	if err := s.Sprints.putLocked(r.Sprint); err != nil {
		return err
	}
	if r.Credit > 0 {
		return s.Users.adjustLocked(r.UserID, r.Credit, r.Now)
	}
	return nil
}
