package payment

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/HoshinoLab/CreatorBase/app/models"
)

// Repository is the persistence boundary of the payment core. A Repository
// obtained through Transaction shares one database transaction, which is how
// the reconcilers keep ledger, balance and membership writes atomic.
type Repository interface {
	// sessions
	GetSessionByExternalID(externalID string) (*models.SubscriptionSession, error)
	GetSessionByRecurrentPaymentID(recurrentPaymentID string) (*models.SubscriptionSession, error)
	CreateSession(session *models.SubscriptionSession) error
	UpdateSession(session *models.SubscriptionSession) error
	MarkSessionStatusByRecurrentPaymentID(recurrentPaymentID, status string) error

	// subscriptions
	GetSubscriptionByRecurrentPaymentID(recurrentPaymentID string) (*models.UserSubscription, error)
	GetSubscriptionByID(id uint) (*models.UserSubscription, error)
	ListSubscriptionsByUser(userID uint) ([]models.UserSubscription, error)
	SaveSubscription(sub *models.UserSubscription) error

	// idempotency ledger
	CreateChargeHistoryIfAbsent(h *models.SubscriptionChargeHistory) (bool, error)
	ListChargeHistory(userSubscriptionID uint, limit int) ([]models.SubscriptionChargeHistory, error)

	// points
	CreditPoints(userID uint, amount int64, txType, description string, relatedItemID *uint) error
	DebitPoints(userID uint, amount int64, txType, description string, relatedItemID *uint) error
	GetPointBalance(userID uint) (int64, error)
	ListPointTransactions(userID uint, limit, offset int) ([]models.PointTransaction, int64, error)

	// salons and memberships
	GetSalonByID(id uint) (*models.Salon, error)
	GetMembership(salonID, userID uint) (*models.SalonMembership, error)
	UpsertMembership(m *models.SalonMembership) error
	RecountSalonMembers(salonID uint) error

	// users
	GetUserByID(id uint) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)

	// catalog items
	GetProductByID(id uint) (*models.Product, error)
	GetNoteByID(id uint) (*models.Note, error)

	// one-time orders
	GetOrderByExternalID(externalID string) (*models.PaymentOrder, error)
	GetOrderByExternalIDForUpdate(externalID string) (*models.PaymentOrder, error)
	GetOrderByGatewayID(paymentOrderID string) (*models.PaymentOrder, error)
	CreateOrder(order *models.PaymentOrder) error
	UpdateOrder(order *models.PaymentOrder) error
	ApplyProductSale(productID uint, quantity int) error
	CreateNotePurchaseIfAbsent(p *models.NotePurchase) (bool, error)

	// Transaction runs fn inside a single database transaction. The repository
	// passed to fn must be used for every write that has to commit atomically.
	Transaction(fn func(Repository) error) error
}

// ErrRecordNotFound is re-exported so callers do not import gorm directly.
var ErrRecordNotFound = gorm.ErrRecordNotFound

// GormRepository implements Repository on top of gorm.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a repository bound to the given database handle.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Transaction(fn func(Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&GormRepository{db: tx})
	})
}

// --- sessions ---

func (r *GormRepository) GetSessionByExternalID(externalID string) (*models.SubscriptionSession, error) {
	var s models.SubscriptionSession
	if err := r.db.Where("external_id = ?", externalID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormRepository) GetSessionByRecurrentPaymentID(recurrentPaymentID string) (*models.SubscriptionSession, error) {
	var s models.SubscriptionSession
	err := r.db.Where("recurrent_payment_id = ?", recurrentPaymentID).
		Order("id DESC").
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormRepository) CreateSession(session *models.SubscriptionSession) error {
	return r.db.Create(session).Error
}

func (r *GormRepository) UpdateSession(session *models.SubscriptionSession) error {
	return r.db.Save(session).Error
}

func (r *GormRepository) MarkSessionStatusByRecurrentPaymentID(recurrentPaymentID, status string) error {
	return r.db.Model(&models.SubscriptionSession{}).
		Where("recurrent_payment_id = ?", recurrentPaymentID).
		Update("status", status).Error
}

// --- subscriptions ---

func (r *GormRepository) GetSubscriptionByRecurrentPaymentID(recurrentPaymentID string) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	if err := r.db.Where("recurrent_payment_id = ?", recurrentPaymentID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *GormRepository) GetSubscriptionByID(id uint) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	if err := r.db.First(&sub, id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *GormRepository) ListSubscriptionsByUser(userID uint) ([]models.UserSubscription, error) {
	var subs []models.UserSubscription
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&subs).Error
	return subs, err
}

func (r *GormRepository) SaveSubscription(sub *models.UserSubscription) error {
	return r.db.Save(sub).Error
}

// --- idempotency ledger ---

// CreateChargeHistoryIfAbsent inserts the event row unless one with the same
// EventID exists. Returns true when this call claimed the event. The unique
// index makes the check-and-insert atomic even across concurrent deliveries.
func (r *GormRepository) CreateChargeHistoryIfAbsent(h *models.SubscriptionChargeHistory) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(h)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormRepository) ListChargeHistory(userSubscriptionID uint, limit int) ([]models.SubscriptionChargeHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.SubscriptionChargeHistory
	err := r.db.Where("user_subscription_id = ?", userSubscriptionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// --- points ---

// CreditPoints appends a ledger row and increments the denormalized balance in
// one statement each, inside the caller's transaction. The balance update is
// a relative SQL expression, never read-modify-write.
func (r *GormRepository) CreditPoints(userID uint, amount int64, txType, description string, relatedItemID *uint) error {
	if amount <= 0 {
		return errors.New("payment: credit amount must be positive")
	}
	tx := &models.PointTransaction{
		UserID:        userID,
		Type:          txType,
		Amount:        amount,
		Description:   description,
		RelatedItemID: relatedItemID,
	}
	if err := r.db.Create(tx).Error; err != nil {
		return err
	}
	return r.db.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("point_balance", gorm.Expr("point_balance + ?", amount)).Error
}

// DebitPoints spends points only if the balance covers the amount. The guard
// lives in the UPDATE's WHERE clause, so two concurrent spends cannot both
// succeed on an insufficient balance.
func (r *GormRepository) DebitPoints(userID uint, amount int64, txType, description string, relatedItemID *uint) error {
	if amount <= 0 {
		return errors.New("payment: debit amount must be positive")
	}
	result := r.db.Model(&models.User{}).
		Where("id = ? AND point_balance >= ?", userID, amount).
		UpdateColumn("point_balance", gorm.Expr("point_balance - ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientPoints
	}
	tx := &models.PointTransaction{
		UserID:        userID,
		Type:          txType,
		Amount:        -amount,
		Description:   description,
		RelatedItemID: relatedItemID,
	}
	return r.db.Create(tx).Error
}

func (r *GormRepository) GetPointBalance(userID uint) (int64, error) {
	var balance int64
	err := r.db.Model(&models.User{}).
		Where("id = ?", userID).
		Pluck("point_balance", &balance).Error
	return balance, err
}

func (r *GormRepository) ListPointTransactions(userID uint, limit, offset int) ([]models.PointTransaction, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := r.db.Model(&models.PointTransaction{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.PointTransaction
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	return rows, total, err
}

// --- salons and memberships ---

func (r *GormRepository) GetSalonByID(id uint) (*models.Salon, error) {
	var salon models.Salon
	if err := r.db.First(&salon, id).Error; err != nil {
		return nil, err
	}
	return &salon, nil
}

func (r *GormRepository) GetMembership(salonID, userID uint) (*models.SalonMembership, error) {
	var m models.SalonMembership
	err := r.db.Where("salon_id = ? AND user_id = ?", salonID, userID).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UpsertMembership inserts or updates the (salon, user) row. joined_at only
// takes the incoming value when the stored one is still NULL, so it is written
// exactly once no matter how many ACTIVE events replay. The charge and cancel
// timestamps are assigned only when the incoming event carries them: a cancel
// never erases last_charged_at, and a re-activation never erases canceled_at.
func (r *GormRepository) UpsertMembership(m *models.SalonMembership) error {
	set := clause.AssignmentColumns([]string{
		"status",
		"recurrent_payment_id",
		"last_event_type",
		"updated_at",
	})
	assigns := map[string]interface{}{
		"joined_at": gorm.Expr("COALESCE(salon_memberships.joined_at, VALUES(joined_at))"),
	}
	if m.LastChargedAt != nil {
		assigns["last_charged_at"] = *m.LastChargedAt
	}
	if m.NextChargeAt != nil {
		assigns["next_charge_at"] = *m.NextChargeAt
	}
	if m.CanceledAt != nil {
		assigns["canceled_at"] = *m.CanceledAt
	}
	set = append(set, clause.Assignments(assigns)...)
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "salon_id"}, {Name: "user_id"}},
		DoUpdates: set,
	}).Create(m).Error
}

func (r *GormRepository) RecountSalonMembers(salonID uint) error {
	return r.db.Model(&models.Salon{}).
		Where("id = ?", salonID).
		UpdateColumn("member_count", gorm.Expr(
			"(SELECT COUNT(*) FROM salon_memberships WHERE salon_id = ? AND status = ?)",
			salonID, models.MembershipStatusActive,
		)).Error
}

// --- users ---

func (r *GormRepository) GetUserByID(id uint) (*models.User, error) {
	var u models.User
	if err := r.db.First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormRepository) GetUserByEmail(email string) (*models.User, error) {
	var u models.User
	err := r.db.Where("email = ?", strings.TrimSpace(email)).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// --- catalog items ---

func (r *GormRepository) GetProductByID(id uint) (*models.Product, error) {
	var p models.Product
	if err := r.db.First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepository) GetNoteByID(id uint) (*models.Note, error) {
	var n models.Note
	if err := r.db.First(&n, id).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

// --- one-time orders ---

func (r *GormRepository) GetOrderByExternalID(externalID string) (*models.PaymentOrder, error) {
	var o models.PaymentOrder
	if err := r.db.Where("external_id = ?", externalID).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOrderByExternalIDForUpdate reads the order with a row lock. Used inside
// reconciliation transactions so concurrent deliveries serialize on the
// status transition.
func (r *GormRepository) GetOrderByExternalIDForUpdate(externalID string) (*models.PaymentOrder, error) {
	var o models.PaymentOrder
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("external_id = ?", externalID).
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepository) GetOrderByGatewayID(paymentOrderID string) (*models.PaymentOrder, error) {
	var o models.PaymentOrder
	err := r.db.Where("payment_order_id = ?", paymentOrderID).
		Order("id DESC").
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepository) CreateOrder(order *models.PaymentOrder) error {
	return r.db.Create(order).Error
}

func (r *GormRepository) UpdateOrder(order *models.PaymentOrder) error {
	order.UpdatedAt = time.Now()
	return r.db.Save(order).Error
}

// ApplyProductSale decrements stock (floored at zero) and bumps the sales
// counter in one statement. NULL stock means unlimited and stays NULL, since
// GREATEST(NULL - n, 0) evaluates to NULL in MySQL.
func (r *GormRepository) ApplyProductSale(productID uint, quantity int) error {
	return r.db.Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumns(map[string]interface{}{
			"stock_quantity": gorm.Expr("GREATEST(stock_quantity - ?, 0)", quantity),
			"total_sales":    gorm.Expr("total_sales + ?", quantity),
		}).Error
}

// CreateNotePurchaseIfAbsent grants note access once per (note, user) pair.
// Returns true when this call created the row.
func (r *GormRepository) CreateNotePurchaseIfAbsent(p *models.NotePurchase) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "note_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(p)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
