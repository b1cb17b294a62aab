// Package servicetest provides in-memory implementations of the service
// repositories and adapters for tests.
package servicetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"ecofinds/internal/models"
	"ecofinds/internal/store"
)

// Store is an in-memory stand-in for *store.Store with the same semantics
// for the operations services rely on. Its maps are exported so tests can
// arrange and inspect state directly.
type Store struct {
	mu sync.Mutex

	nextID        int64
	Users         map[int64]*models.User
	Categories    []models.Category
	Listings      map[int64]*models.Listing
	Cart          map[int64]*models.CartItem
	Orders        map[int64]*models.Order
	Notifications []models.Notification
	processed     map[string]bool
}

func NewStore() *Store {
	return &Store{
		Users:    map[int64]*models.User{},
		Listings: map[int64]*models.Listing{},
		Cart:     map[int64]*models.CartItem{},
		Orders:   map[int64]*models.Order{},
		Categories: []models.Category{
			{ID: 1, Name: "Electronics", Slug: "electronics"},
			{ID: 2, Name: "Miscellaneous", Slug: "misc"},
		},
		processed: map[string]bool{},
	}
}

func (m *Store) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *Store) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if strings.EqualFold(u.Email, user.Email) {
			return store.ErrDuplicate
		}
	}
	user.ID = m.id()
	user.CreatedAt = time.Now()
	cp := *user
	m.Users[user.ID] = &cp
	return nil
}

func (m *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Store) UpdateProfile(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Users[user.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *user
	m.Users[user.ID] = &cp
	return nil
}

func (m *Store) GetProfile(ctx context.Context, id int64) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p := &models.Profile{User: *u}
	for _, l := range m.Listings {
		if l.SellerID != id {
			continue
		}
		if l.IsSold {
			p.SoldListings++
		} else if l.IsActive {
			p.ActiveListings++
		}
	}
	for _, o := range m.Orders {
		if o.BuyerID == id {
			p.Purchases++
		}
	}
	return p, nil
}

func (m *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	return m.Categories, nil
}

func (m *Store) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	for _, c := range m.Categories {
		if c.Slug == slug {
			cp := c
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Store) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	for _, c := range m.Categories {
		if c.ID == id {
			cp := c
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Store) view(l *models.Listing) models.ListingView {
	v := models.ListingView{Listing: *l}
	if u, ok := m.Users[l.SellerID]; ok {
		v.Seller = models.SellerSnapshot{ID: u.ID, Name: u.Name}
	}
	for _, c := range m.Categories {
		if c.ID == l.CategoryID {
			v.Category = models.CategoryRef{ID: c.ID, Name: c.Name, Slug: c.Slug}
		}
	}
	return v
}

// SearchListings applies the catalog filters to available listings, ordered
// by id.
func (m *Store) SearchListings(ctx context.Context, f models.ListingFilter) ([]models.ListingView, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.ListingView
	for _, l := range m.Listings {
		if !l.Available() {
			continue
		}
		v := m.view(l)
		if matchesFilter(&v, f) {
			all = append(all, v)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	total := len(all)
	start := (f.Page - 1) * f.Limit
	if start >= total {
		return []models.ListingView{}, total, nil
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func matchesFilter(v *models.ListingView, f models.ListingFilter) bool {
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		brand := ""
		if v.Brand != nil {
			brand = *v.Brand
		}
		if !strings.Contains(strings.ToLower(v.Title), search) &&
			!strings.Contains(strings.ToLower(v.Description), search) &&
			!strings.Contains(strings.ToLower(brand), search) {
			return false
		}
	}
	if f.CategorySlug != "" && v.Category.Slug != f.CategorySlug {
		return false
	}
	if f.Condition != "" && v.Condition != f.Condition {
		return false
	}
	if f.MinPrice != nil && v.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && v.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	return true
}

func (m *Store) CreateListing(ctx context.Context, l *models.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = m.id()
	l.CreatedAt = time.Now()
	cp := *l
	m.Listings[l.ID] = &cp
	return nil
}

func (m *Store) GetListing(ctx context.Context, id int64) (*models.ListingView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.Listings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	v := m.view(l)
	return &v, nil
}

func (m *Store) ListListingsBySeller(ctx context.Context, sellerID int64) ([]models.ListingView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.ListingView{}
	for _, l := range m.Listings {
		if l.SellerID == sellerID {
			out = append(out, m.view(l))
		}
	}
	return out, nil
}

func (m *Store) UpdateListing(ctx context.Context, l *models.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.Listings[l.ID]
	if !ok {
		return store.ErrNotFound
	}
	cp := *l
	cp.IsSold = cur.IsSold
	m.Listings[l.ID] = &cp
	return nil
}

func (m *Store) DeleteListing(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.Listings[id]
	if !ok {
		return false, store.ErrNotFound
	}
	for _, o := range m.Orders {
		for _, it := range o.Items {
			if it.ListingID == id {
				l.IsActive = false
				m.dropFromCarts(id)
				return true, nil
			}
		}
	}
	delete(m.Listings, id)
	m.dropFromCarts(id)
	return false, nil
}

func (m *Store) dropFromCarts(listingID int64) {
	for id, ci := range m.Cart {
		if ci.ListingID == listingID {
			delete(m.Cart, id)
		}
	}
}

func (m *Store) AddToCart(ctx context.Context, userID, listingID int64, quantity int) (*models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ci := range m.Cart {
		if ci.UserID == userID && ci.ListingID == listingID {
			if ci.Quantity+quantity > models.MaxCartQuantity {
				return nil, store.ErrLimitExceeded
			}
			ci.Quantity += quantity
			cp := *ci
			return &cp, nil
		}
	}
	ci := &models.CartItem{ID: m.id(), UserID: userID, ListingID: listingID, Quantity: quantity, CreatedAt: time.Now()}
	m.Cart[ci.ID] = ci
	cp := *ci
	return &cp, nil
}

func (m *Store) GetCartItem(ctx context.Context, id int64) (*models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ci, ok := m.Cart[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *ci
	return &cp, nil
}

func (m *Store) SetCartItemQuantity(ctx context.Context, id int64, quantity int) (*models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ci, ok := m.Cart[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	ci.Quantity = quantity
	cp := *ci
	return &cp, nil
}

func (m *Store) DeleteCartItem(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Cart[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.Cart, id)
	return nil
}

func (m *Store) lines(userID int64, keep func(*models.CartItem) bool) []models.CartLine {
	out := []models.CartLine{}
	for _, ci := range m.Cart {
		if ci.UserID != userID || !keep(ci) {
			continue
		}
		out = append(out, models.CartLine{CartItem: *ci, Listing: m.view(m.Listings[ci.ListingID])})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Store) ListCartLines(ctx context.Context, userID int64) ([]models.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lines(userID, func(*models.CartItem) bool { return true }), nil
}

func (m *Store) GetCartLines(ctx context.Context, userID int64, ids []int64) ([]models.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	return m.lines(userID, func(ci *models.CartItem) bool { return want[ci.ID] }), nil
}

func (m *Store) PlaceOrders(ctx context.Context, buyerID int64, orders []*models.Order, cartItemIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range orders {
		for _, existing := range m.Orders {
			if existing.BuyerID == buyerID && existing.CheckoutKey == o.CheckoutKey && existing.SellerID == o.SellerID {
				return store.ErrDuplicate
			}
		}
		for _, it := range o.Items {
			l, ok := m.Listings[it.ListingID]
			if !ok || !l.Available() {
				return store.ErrConflict
			}
		}
	}
	for _, o := range orders {
		o.ID = m.id()
		o.CreatedAt = time.Now()
		for i := range o.Items {
			o.Items[i].ID = m.id()
			o.Items[i].OrderID = o.ID
			m.Listings[o.Items[i].ListingID].IsSold = true
		}
		cp := *o
		cp.Items = append([]models.OrderItem(nil), o.Items...)
		m.Orders[o.ID] = &cp
	}
	for _, id := range cartItemIDs {
		if ci, ok := m.Cart[id]; ok && ci.UserID == buyerID {
			delete(m.Cart, id)
		}
	}
	return nil
}

func (m *Store) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.Orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *Store) filterOrders(keep func(*models.Order) bool) []models.Order {
	out := []models.Order{}
	for _, o := range m.Orders {
		if keep(o) {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Store) ListOrdersByCheckoutKey(ctx context.Context, buyerID int64, key string) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filterOrders(func(o *models.Order) bool { return o.BuyerID == buyerID && o.CheckoutKey == key }), nil
}

func (m *Store) ListOrdersByBuyer(ctx context.Context, buyerID int64) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filterOrders(func(o *models.Order) bool { return o.BuyerID == buyerID }), nil
}

func (m *Store) ListOrdersBySeller(ctx context.Context, sellerID int64) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filterOrders(func(o *models.Order) bool { return o.SellerID == sellerID }), nil
}

func (m *Store) TransitionOrder(ctx context.Context, orderID int64, from, to string, relist bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.Orders[orderID]
	if !ok || o.Status != from {
		return store.ErrConflict
	}
	o.Status = to
	if relist {
		for _, it := range o.Items {
			m.Listings[it.ListingID].IsSold = false
		}
	}
	return nil
}

func (m *Store) SaveEventNotifications(ctx context.Context, eventID, eventType string, notifications []models.Notification) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed[eventID] {
		return false, nil
	}
	m.processed[eventID] = true
	for _, n := range notifications {
		n.ID = m.id()
		m.Notifications = append(m.Notifications, n)
	}
	return true, nil
}

func (m *Store) ListNotifications(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Notification{}
	for _, n := range m.Notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *Store) MarkNotificationRead(ctx context.Context, id, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Notifications {
		if m.Notifications[i].ID == id && m.Notifications[i].UserID == userID {
			m.Notifications[i].IsRead = true
			return nil
		}
	}
	return store.ErrNotFound
}

// Locker mimics the all-or-nothing Redis claim script.
type Locker struct {
	mu   sync.Mutex
	Held map[int64]string
	// BeforeClaim, when set, runs once ahead of the next claim. Tests use it
	// to interleave a competing checkout.
	BeforeClaim func()
}

func NewLocker() *Locker {
	return &Locker{Held: map[int64]string{}}
}

func (l *Locker) ClaimListings(ctx context.Context, ids []int64, owner string, ttl time.Duration) (bool, error) {
	if hook := l.BeforeClaim; hook != nil {
		l.BeforeClaim = nil
		hook()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range ids {
		if holder, ok := l.Held[id]; ok && holder != owner {
			return false, nil
		}
	}
	for _, id := range ids {
		l.Held[id] = owner
	}
	return true, nil
}

func (l *Locker) ReleaseListings(ctx context.Context, ids []int64, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range ids {
		if l.Held[id] == owner {
			delete(l.Held, id)
		}
	}
	return nil
}

type Revoker struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func NewRevoker() *Revoker {
	return &Revoker{revoked: map[string]bool{}}
}

func (r *Revoker) RevokeToken(ctx context.Context, id string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[id] = true
	return nil
}

func (r *Revoker) IsTokenRevoked(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revoked[id], nil
}

// Publisher records published events and fails with Err when set.
type Publisher struct {
	mu      sync.Mutex
	Placed  []*models.OrderPlacedEvent
	Changed []*models.OrderStatusChangedEvent
	Err     error
}

func (p *Publisher) PublishOrderPlaced(ctx context.Context, e *models.OrderPlacedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Placed = append(p.Placed, e)
	return p.Err
}

func (p *Publisher) PublishOrderStatusChanged(ctx context.Context, e *models.OrderStatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Changed = append(p.Changed, e)
	return p.Err
}
