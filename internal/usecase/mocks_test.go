//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"webpay-checkout/internal/domain"
	"webpay-checkout/internal/domain/model"
	"webpay-checkout/internal/domain/ports/adapter"
	"webpay-checkout/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// -----------------------------
// memStore: one in-memory database shared by all mock repositories
// -----------------------------

type memStore struct {
	mu sync.Mutex

	users     map[int64]*model.User
	plans     map[int64]*model.Plan
	products  map[int64]*model.Product
	carts     map[int64]*model.Cart // by user id
	orders    map[string]*model.Order
	subs      []*model.Subscription
	incidents map[string]*model.Incident

	nextCartID int64
	writes     int
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[int64]*model.User{},
		plans:     map[int64]*model.Plan{},
		products:  map[int64]*model.Product{},
		carts:     map[int64]*model.Cart{},
		orders:    map[string]*model.Order{},
		incidents: map[string]*model.Incident{},
	}
}

type memSnapshot struct {
	products   map[int64]model.Product
	carts      map[int64]model.Cart
	orders     map[string]model.Order
	subs       []model.Subscription
	nextCartID int64
	writes     int
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		products:   map[int64]model.Product{},
		carts:      map[int64]model.Cart{},
		orders:     map[string]model.Order{},
		nextCartID: s.nextCartID,
		writes:     s.writes,
	}
	for id, p := range s.products {
		snap.products[id] = *p
	}
	for uid, c := range s.carts {
		cp := *c
		cp.Lines = append([]model.CartLine(nil), c.Lines...)
		snap.carts[uid] = cp
	}
	for bo, o := range s.orders {
		cp := *o
		cp.Lines = append([]model.OrderLine(nil), o.Lines...)
		snap.orders[bo] = cp
	}
	for _, sub := range s.subs {
		snap.subs = append(snap.subs, *sub)
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = map[int64]*model.Product{}
	for id, p := range snap.products {
		p := p
		s.products[id] = &p
	}
	s.carts = map[int64]*model.Cart{}
	for uid, c := range snap.carts {
		c := c
		s.carts[uid] = &c
	}
	s.orders = map[string]*model.Order{}
	for bo, o := range snap.orders {
		o := o
		s.orders[bo] = &o
	}
	s.subs = nil
	for _, sub := range snap.subs {
		sub := sub
		s.subs = append(s.subs, &sub)
	}
	s.nextCartID = snap.nextCartID
	s.writes = snap.writes
}

// seed helpers

func (s *memStore) addUser(id int64) {
	s.users[id] = &model.User{ID: id, Username: "user", CreatedAt: time.Now()}
}

func (s *memStore) addPlan(id, price int64, days int) {
	s.plans[id] = &model.Plan{ID: id, Name: "plan", Price: price, DurationDays: days}
}

func (s *memStore) addProduct(id, price int64, stock int) {
	s.products[id] = &model.Product{ID: id, Name: "product", Price: price, Stock: stock}
}

func (s *memStore) setCart(userID int64, lines ...model.CartLine) {
	s.nextCartID++
	s.carts[userID] = &model.Cart{ID: s.nextCartID, UserID: userID, Lines: lines}
}

func (s *memStore) stock(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Stock
}

func (s *memStore) cartLines(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.carts[userID]; ok {
		return len(c.Lines)
	}
	return 0
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *memStore) activeSubs(userID int64) []*model.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Subscription
	for _, sub := range s.subs {
		if sub.UserID == userID && sub.Active {
			out = append(out, sub)
		}
	}
	return out
}

func (s *memStore) incidentList() []*model.Incident {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Incident
	for _, inc := range s.incidents {
		cp := *inc
		out = append(out, &cp)
	}
	return out
}

// -----------------------------
// Transaction manager
// -----------------------------

// MockTxManager serializes transactions and restores the snapshot taken at
// BEGIN when fn fails, which is what the commit path relies on.
type MockTxManager struct {
	store *memStore
	txMu  sync.Mutex

	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

type memTx struct{}

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()
	snap := m.store.snapshot()
	if err := fn(ctx, memTx{}); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

// -----------------------------
// Repositories
// -----------------------------

type memUserRepo struct{ s *memStore }

func (r *memUserRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *u
	r.s.users[u.ID] = &cp
	return nil
}

type MockPlanRepo struct {
	s *memStore

	FindByIDFunc func(ctx context.Context, tx repository.Tx, id int64) (*model.Plan, error)
}

func (r *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Plan, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.plans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *p
	r.s.plans[p.ID] = &cp
	return nil
}

type memCartRepo struct{ s *memStore }

func (r *memCartRepo) GetOrCreate(ctx context.Context, tx repository.Tx, userID int64) (*model.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.carts[userID]
	if !ok {
		r.s.nextCartID++
		c = &model.Cart{ID: r.s.nextCartID, UserID: userID}
		r.s.carts[userID] = c
	}
	cp := *c
	cp.Lines = append([]model.CartLine(nil), c.Lines...)
	return &cp, nil
}

func (r *memCartRepo) SetLine(ctx context.Context, tx repository.Tx, cartID, productID int64, quantity int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.carts {
		if c.ID != cartID {
			continue
		}
		r.s.writes++
		for i := range c.Lines {
			if c.Lines[i].ProductID == productID {
				c.Lines[i].Quantity = quantity
				return nil
			}
		}
		c.Lines = append(c.Lines, model.CartLine{ProductID: productID, Quantity: quantity})
		return nil
	}
	return domain.ErrNotFound
}

func (r *memCartRepo) Clear(ctx context.Context, tx repository.Tx, cartID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.carts {
		if c.ID == cartID {
			c.Lines = nil
			r.s.writes++
			return nil
		}
	}
	return domain.ErrNotFound
}

type memInventoryRepo struct{ s *memStore }

func (r *memInventoryRepo) GetProduct(ctx context.Context, tx repository.Tx, productID int64) (*model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memInventoryRepo) LockAndDecrement(ctx context.Context, tx repository.Tx, productID int64, qty int) (*model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if p.Stock < qty {
		return nil, &domain.StockError{ProductID: productID, Requested: qty, Available: p.Stock}
	}
	p.Stock -= qty
	r.s.writes++
	cp := *p
	return &cp, nil
}

func (r *memInventoryRepo) Save(ctx context.Context, tx repository.Tx, p *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *p
	r.s.products[p.ID] = &cp
	return nil
}

type memOrderRepo struct{ s *memStore }

func (r *memOrderRepo) Create(ctx context.Context, tx repository.Tx, o *model.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orders[o.BuyOrder]; ok {
		return domain.ErrDuplicateReference
	}
	cp := *o
	cp.Lines = append([]model.OrderLine(nil), o.Lines...)
	r.s.orders[o.BuyOrder] = &cp
	r.s.writes++
	return nil
}

func (r *memOrderRepo) AddLine(ctx context.Context, tx repository.Tx, l *model.OrderLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orders {
		if o.ID == l.OrderID {
			o.Lines = append(o.Lines, *l)
			r.s.writes++
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *memOrderRepo) ExistsByBuyOrder(ctx context.Context, tx repository.Tx, buyOrder string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.orders[buyOrder]
	return ok, nil
}

func (r *memOrderRepo) FindByBuyOrder(ctx context.Context, tx repository.Tx, buyOrder string) (*model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[buyOrder]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	cp.Lines = append([]model.OrderLine(nil), o.Lines...)
	return &cp, nil
}

func (r *memOrderRepo) TokenByBuyOrder(ctx context.Context, tx repository.Tx, buyOrder string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[buyOrder]
	if !ok {
		return "", domain.ErrNotFound
	}
	return o.Token, nil
}

type memSubRepo struct{ s *memStore }

func (r *memSubRepo) LockUser(ctx context.Context, tx repository.Tx, userID int64) error { return nil }

func (r *memSubRepo) Create(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.subs {
		if existing.BuyOrder == sub.BuyOrder {
			return domain.ErrDuplicateReference
		}
	}
	cp := *sub
	r.s.subs = append(r.s.subs, &cp)
	r.s.writes++
	return nil
}

func (r *memSubRepo) DeactivateActive(ctx context.Context, tx repository.Tx, userID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, sub := range r.s.subs {
		if sub.UserID == userID && sub.Active {
			sub.Active = false
			n++
		}
	}
	r.s.writes++
	return n, nil
}

func (r *memSubRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID int64) (*model.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sub := range r.s.subs {
		if sub.UserID == userID && sub.Active {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memSubRepo) ExistsByBuyOrder(ctx context.Context, tx repository.Tx, buyOrder string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sub := range r.s.subs {
		if sub.BuyOrder == buyOrder {
			return true, nil
		}
	}
	return false, nil
}

func (r *memSubRepo) TokenByBuyOrder(ctx context.Context, tx repository.Tx, buyOrder string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sub := range r.s.subs {
		if sub.BuyOrder == buyOrder {
			return sub.Token, nil
		}
	}
	return "", domain.ErrNotFound
}

type MockIncidentRepo struct {
	s *memStore

	UpdateFunc func(ctx context.Context, tx repository.Tx, inc *model.Incident) error
}

func (r *MockIncidentRepo) Create(ctx context.Context, tx repository.Tx, inc *model.Incident) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *inc
	r.s.incidents[inc.ID] = &cp
	return nil
}

func (r *MockIncidentRepo) ListByStatus(ctx context.Context, tx repository.Tx, status model.IncidentStatus, limit int) ([]*model.Incident, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Incident
	for _, inc := range r.s.incidents {
		if inc.Status == status {
			cp := *inc
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockIncidentRepo) Update(ctx context.Context, tx repository.Tx, inc *model.Incident) error {
	if r.UpdateFunc != nil {
		return r.UpdateFunc(ctx, tx, inc)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *inc
	r.s.incidents[inc.ID] = &cp
	return nil
}

// -----------------------------
// Adapters
// -----------------------------

type MockPaymentGateway struct {
	mu           sync.Mutex
	createCalls  []adapter.CreateRequest
	confirmCalls []string

	CreateTransactionFunc  func(ctx context.Context, req adapter.CreateRequest) (*model.Checkout, error)
	ConfirmTransactionFunc func(ctx context.Context, token string) (*model.Confirmation, error)
	TransactionStatusFunc  func(ctx context.Context, token string) (*model.Confirmation, error)
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) Name() string { return "mock" }

func (m *MockPaymentGateway) CreateTransaction(ctx context.Context, req adapter.CreateRequest) (*model.Checkout, error) {
	m.mu.Lock()
	m.createCalls = append(m.createCalls, req)
	m.mu.Unlock()
	if m.CreateTransactionFunc != nil {
		return m.CreateTransactionFunc(ctx, req)
	}
	return &model.Checkout{RedirectURL: "https://gateway.test/init", Token: "tok-" + req.BuyOrder}, nil
}

func (m *MockPaymentGateway) ConfirmTransaction(ctx context.Context, token string) (*model.Confirmation, error) {
	m.mu.Lock()
	m.confirmCalls = append(m.confirmCalls, token)
	m.mu.Unlock()
	if m.ConfirmTransactionFunc != nil {
		return m.ConfirmTransactionFunc(ctx, token)
	}
	return nil, &domain.GatewayError{Op: "confirm", Message: "no confirm behaviour configured"}
}

func (m *MockPaymentGateway) TransactionStatus(ctx context.Context, token string) (*model.Confirmation, error) {
	if m.TransactionStatusFunc != nil {
		return m.TransactionStatusFunc(ctx, token)
	}
	return nil, &domain.GatewayError{Op: "status", Message: "no status behaviour configured"}
}

func (m *MockPaymentGateway) confirmCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.confirmCalls)
}

// approve returns a confirm hook that approves every token with the given values.
func approve(buyOrder string, amount int64) func(ctx context.Context, token string) (*model.Confirmation, error) {
	return func(ctx context.Context, token string) (*model.Confirmation, error) {
		return &model.Confirmation{
			Approved:     true,
			Amount:       amount,
			BuyOrder:     buyOrder,
			ResponseCode: 0,
			Status:       "AUTHORIZED",
		}, nil
	}
}

type memGuard struct {
	mu       sync.Mutex
	claimed  map[string]bool
	outcomes map[string]model.Report

	ClaimFunc func(ctx context.Context, token string) (bool, error)
}

var _ adapter.CallbackGuard = (*memGuard)(nil)

func newMemGuard() *memGuard {
	return &memGuard{claimed: map[string]bool{}, outcomes: map[string]model.Report{}}
}

func (g *memGuard) Claim(ctx context.Context, token string) (bool, error) {
	if g.ClaimFunc != nil {
		return g.ClaimFunc(ctx, token)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.claimed[token] {
		return false, nil
	}
	g.claimed[token] = true
	return true, nil
}

func (g *memGuard) Outcome(ctx context.Context, token string) (*model.Report, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.outcomes[token]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (g *memGuard) Remember(ctx context.Context, token string, r model.Report) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.outcomes[token] = r
	return nil
}

type memEvents struct {
	mu     sync.Mutex
	events []adapter.CheckoutEvent
}

func (e *memEvents) Publish(ctx context.Context, ev adapter.CheckoutEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return nil
}

func (e *memEvents) list() []adapter.CheckoutEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]adapter.CheckoutEvent(nil), e.events...)
}

type MockNotifier struct {
	mu   sync.Mutex
	sent []string

	NotifyFunc func(ctx context.Context, inc *model.Incident) error
}

func (n *MockNotifier) Notify(ctx context.Context, inc *model.Incident) error {
	if n.NotifyFunc != nil {
		return n.NotifyFunc(ctx, inc)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, inc.ID)
	return nil
}
