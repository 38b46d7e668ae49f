package payment

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/HoshinoLab/CreatorBase/app/models"
)

// fakeRepo is an in-memory Repository for reconciler and service tests.
// Transaction semantics are simplified to direct execution; the tests cover
// ordering and idempotency, not rollback.
type fakeRepo struct {
	users         map[uint]*models.User
	salons        map[uint]*models.Salon
	products      map[uint]*models.Product
	notes         map[uint]*models.Note
	sessions      []*models.SubscriptionSession
	subscriptions []*models.UserSubscription
	history       map[string]*models.SubscriptionChargeHistory
	pointTxs      []*models.PointTransaction
	memberships   map[[2]uint]*models.SalonMembership
	orders        []*models.PaymentOrder
	notePurchases map[[2]uint]*models.NotePurchase

	nextID uint
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:         map[uint]*models.User{},
		salons:        map[uint]*models.Salon{},
		products:      map[uint]*models.Product{},
		notes:         map[uint]*models.Note{},
		history:       map[string]*models.SubscriptionChargeHistory{},
		memberships:   map[[2]uint]*models.SalonMembership{},
		notePurchases: map[[2]uint]*models.NotePurchase{},
		nextID:        1,
	}
}

func (f *fakeRepo) id() uint {
	id := f.nextID
	f.nextID++
	return id
}

func (f *fakeRepo) Transaction(fn func(Repository) error) error { return fn(f) }

func (f *fakeRepo) GetSessionByExternalID(externalID string) (*models.SubscriptionSession, error) {
	for _, s := range f.sessions {
		if s.ExternalID == externalID {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetSessionByRecurrentPaymentID(rpID string) (*models.SubscriptionSession, error) {
	for i := len(f.sessions) - 1; i >= 0; i-- {
		if f.sessions[i].RecurrentPaymentID == rpID {
			return f.sessions[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) CreateSession(s *models.SubscriptionSession) error {
	s.ID = f.id()
	f.sessions = append(f.sessions, s)
	return nil
}

func (f *fakeRepo) UpdateSession(s *models.SubscriptionSession) error { return nil }

func (f *fakeRepo) MarkSessionStatusByRecurrentPaymentID(rpID, status string) error {
	for _, s := range f.sessions {
		if s.RecurrentPaymentID == rpID {
			s.Status = status
		}
	}
	return nil
}

func (f *fakeRepo) GetSubscriptionByRecurrentPaymentID(rpID string) (*models.UserSubscription, error) {
	for _, s := range f.subscriptions {
		if s.RecurrentPaymentID == rpID {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetSubscriptionByID(id uint) (*models.UserSubscription, error) {
	for _, s := range f.subscriptions {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) ListSubscriptionsByUser(userID uint) ([]models.UserSubscription, error) {
	var out []models.UserSubscription
	for _, s := range f.subscriptions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeRepo) SaveSubscription(sub *models.UserSubscription) error {
	if sub.ID == 0 {
		sub.ID = f.id()
		f.subscriptions = append(f.subscriptions, sub)
	}
	return nil
}

func (f *fakeRepo) CreateChargeHistoryIfAbsent(h *models.SubscriptionChargeHistory) (bool, error) {
	if _, ok := f.history[h.EventID]; ok {
		return false, nil
	}
	h.ID = f.id()
	f.history[h.EventID] = h
	return true, nil
}

func (f *fakeRepo) ListChargeHistory(subID uint, limit int) ([]models.SubscriptionChargeHistory, error) {
	var out []models.SubscriptionChargeHistory
	for _, h := range f.history {
		if h.UserSubscriptionID == subID {
			out = append(out, *h)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreditPoints(userID uint, amount int64, txType, description string, relatedItemID *uint) error {
	u, ok := f.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.PointBalance += amount
	f.pointTxs = append(f.pointTxs, &models.PointTransaction{
		UserID: userID, Type: txType, Amount: amount, Description: description, RelatedItemID: relatedItemID,
	})
	return nil
}

func (f *fakeRepo) DebitPoints(userID uint, amount int64, txType, description string, relatedItemID *uint) error {
	u, ok := f.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if u.PointBalance < amount {
		return ErrInsufficientPoints
	}
	u.PointBalance -= amount
	f.pointTxs = append(f.pointTxs, &models.PointTransaction{
		UserID: userID, Type: txType, Amount: -amount, Description: description, RelatedItemID: relatedItemID,
	})
	return nil
}

func (f *fakeRepo) GetPointBalance(userID uint) (int64, error) {
	u, ok := f.users[userID]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	return u.PointBalance, nil
}

func (f *fakeRepo) ListPointTransactions(userID uint, limit, offset int) ([]models.PointTransaction, int64, error) {
	var out []models.PointTransaction
	for _, tx := range f.pointTxs {
		if tx.UserID == userID {
			out = append(out, *tx)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeRepo) GetSalonByID(id uint) (*models.Salon, error) {
	if s, ok := f.salons[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetMembership(salonID, userID uint) (*models.SalonMembership, error) {
	if m, ok := f.memberships[[2]uint{salonID, userID}]; ok {
		return m, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) UpsertMembership(m *models.SalonMembership) error {
	key := [2]uint{m.SalonID, m.UserID}
	if existing, ok := f.memberships[key]; ok {
		existing.Status = m.Status
		existing.RecurrentPaymentID = m.RecurrentPaymentID
		existing.LastEventType = m.LastEventType
		if m.LastChargedAt != nil {
			existing.LastChargedAt = m.LastChargedAt
		}
		if m.NextChargeAt != nil {
			existing.NextChargeAt = m.NextChargeAt
		}
		if m.CanceledAt != nil {
			existing.CanceledAt = m.CanceledAt
		}
		if existing.JoinedAt == nil {
			existing.JoinedAt = m.JoinedAt
		}
		return nil
	}
	m.ID = f.id()
	f.memberships[key] = m
	return nil
}

func (f *fakeRepo) RecountSalonMembers(salonID uint) error {
	count := 0
	for _, m := range f.memberships {
		if m.SalonID == salonID && m.Status == models.MembershipStatusActive {
			count++
		}
	}
	if s, ok := f.salons[salonID]; ok {
		s.MemberCount = count
	}
	return nil
}

func (f *fakeRepo) GetUserByID(id uint) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetUserByEmail(email string) (*models.User, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetProductByID(id uint) (*models.Product, error) {
	if p, ok := f.products[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetNoteByID(id uint) (*models.Note, error) {
	if n, ok := f.notes[id]; ok {
		return n, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetOrderByExternalID(externalID string) (*models.PaymentOrder, error) {
	for _, o := range f.orders {
		if o.ExternalID == externalID {
			return o, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetOrderByExternalIDForUpdate(externalID string) (*models.PaymentOrder, error) {
	return f.GetOrderByExternalID(externalID)
}

func (f *fakeRepo) GetOrderByGatewayID(paymentOrderID string) (*models.PaymentOrder, error) {
	for i := len(f.orders) - 1; i >= 0; i-- {
		if f.orders[i].PaymentOrderID == paymentOrderID {
			return f.orders[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) CreateOrder(o *models.PaymentOrder) error {
	o.ID = f.id()
	f.orders = append(f.orders, o)
	return nil
}

func (f *fakeRepo) UpdateOrder(o *models.PaymentOrder) error { return nil }

func (f *fakeRepo) ApplyProductSale(productID uint, quantity int) error {
	p, ok := f.products[productID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if p.StockQuantity != nil {
		remaining := *p.StockQuantity - quantity
		if remaining < 0 {
			remaining = 0
		}
		p.StockQuantity = &remaining
	}
	p.TotalSales += quantity
	return nil
}

func (f *fakeRepo) CreateNotePurchaseIfAbsent(p *models.NotePurchase) (bool, error) {
	key := [2]uint{p.NoteID, p.UserID}
	if _, ok := f.notePurchases[key]; ok {
		return false, nil
	}
	p.ID = f.id()
	f.notePurchases[key] = p
	return true, nil
}

// fakeGateway returns canned gateway entities.
type fakeGateway struct {
	recurrent map[string]*RecurrentPaymentDetail
	orders    map[string]*PaymentOrderDetail
	pref      *CheckoutPreference
	prefErr   error

	cancelCalls    []string
	checkoutInputs []CheckoutPreferenceInput
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		recurrent: map[string]*RecurrentPaymentDetail{},
		orders:    map[string]*PaymentOrderDetail{},
		pref:      &CheckoutPreference{ID: "pref_1", CheckoutURL: "https://pay.example/p/pref_1"},
	}
}

func (g *fakeGateway) CreateCheckoutPreference(_ context.Context, in CheckoutPreferenceInput) (*CheckoutPreference, error) {
	g.checkoutInputs = append(g.checkoutInputs, in)
	if g.prefErr != nil {
		return nil, g.prefErr
	}
	return g.pref, nil
}

func (g *fakeGateway) GetPaymentOrder(_ context.Context, id string) (*PaymentOrderDetail, error) {
	if d, ok := g.orders[id]; ok {
		return d, nil
	}
	return nil, &GatewayError{StatusCode: 404, Body: "not found"}
}

func (g *fakeGateway) GetRecurrentPayment(_ context.Context, id string) (*RecurrentPaymentDetail, error) {
	if d, ok := g.recurrent[id]; ok {
		return d, nil
	}
	return nil, &GatewayError{StatusCode: 404, Body: "not found"}
}

func (g *fakeGateway) CancelRecurrentPayment(_ context.Context, id string) error {
	g.cancelCalls = append(g.cancelCalls, id)
	return nil
}

var errFakeGatewayDown = errors.New("gateway down")
