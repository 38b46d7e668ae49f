package points

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/HoshinoLab/CreatorBase/app/models"
	"github.com/HoshinoLab/CreatorBase/internal/pkg/cache"
	"github.com/HoshinoLab/CreatorBase/internal/pkg/payment"
)

// MinPurchaseAmount is the smallest direct point purchase accepted.
const MinPurchaseAmount = 100

// balanceTTL bounds how stale a cached balance may get. Subscription credits
// land through the webhook reconciler and do not invalidate this cache; the
// short TTL is the consistency window.
const balanceTTL = 30 * time.Second

var (
	// ErrMinimumPurchase is returned for purchases below MinPurchaseAmount.
	ErrMinimumPurchase = fmt.Errorf("points: purchase amount must be at least %d", MinPurchaseAmount)
	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("points: amount must be positive")
)

// Cache is the slice of the cache layer the points service needs.
type Cache interface {
	Get(key string) (string, error)
	Set(key string, value interface{}, expiration time.Duration) error
	Delete(key string) error
}

type redisCache struct{}

func (redisCache) Get(key string) (string, error) { return cache.Get(key) }
func (redisCache) Set(key string, value interface{}, expiration time.Duration) error {
	return cache.Set(key, value, expiration)
}
func (redisCache) Delete(key string) error { return cache.Delete(key) }

// Service exposes the user-facing point operations. All balance mutations go
// through the payment repository so ledger and balance stay consistent.
type Service struct {
	repo  payment.Repository
	cache Cache
}

// NewService wires a points service backed by Redis for balance reads.
func NewService(repo payment.Repository) *Service {
	return &Service{repo: repo, cache: redisCache{}}
}

// NewServiceWithCache allows injecting the cache, used by tests.
func NewServiceWithCache(repo payment.Repository, c Cache) *Service {
	return &Service{repo: repo, cache: c}
}

func balanceKey(userID uint) string {
	return fmt.Sprintf("points:balance:%d", userID)
}

// Balance returns the user's point balance, served from cache for up to
// balanceTTL after a database read.
func (s *Service) Balance(userID uint) (int64, error) {
	key := balanceKey(userID)
	if raw, err := s.cache.Get(key); err == nil {
		if balance, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return balance, nil
		}
	}

	balance, err := s.repo.GetPointBalance(userID)
	if err != nil {
		return 0, err
	}
	if err := s.cache.Set(key, balance, balanceTTL); err != nil {
		log.Warnf("points: balance cache write for user %d failed: %v", userID, err)
	}
	return balance, nil
}

// Transactions returns a page of the user's point ledger, newest first.
func (s *Service) Transactions(userID uint, page, perPage int) ([]models.PointTransaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return s.repo.ListPointTransactions(userID, perPage, (page-1)*perPage)
}

// Purchase credits directly bought points. The ledger row and the balance
// update commit together.
func (s *Service) Purchase(userID uint, amount int64, description string) error {
	if amount < MinPurchaseAmount {
		return ErrMinimumPurchase
	}
	err := s.repo.Transaction(func(tx payment.Repository) error {
		return tx.CreditPoints(userID, amount, models.PointTxPurchase, description, nil)
	})
	if err != nil {
		return err
	}
	s.invalidate(userID)
	return nil
}

// Grant credits points out-of-band (support refunds, promotions). Recorded
// with its own ledger type so it stays distinguishable from paid credits.
func (s *Service) Grant(userID uint, amount int64, description string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	err := s.repo.Transaction(func(tx payment.Repository) error {
		return tx.CreditPoints(userID, amount, models.PointTxAdminGrant, description, nil)
	})
	if err != nil {
		return err
	}
	s.invalidate(userID)
	return nil
}

// Spend debits points for an item. Fails with payment.ErrInsufficientPoints
// when the balance does not cover the amount; the guard is atomic, so
// concurrent spends cannot overdraw.
func (s *Service) Spend(userID uint, amount int64, description string, relatedItemID *uint) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	err := s.repo.Transaction(func(tx payment.Repository) error {
		return tx.DebitPoints(userID, amount, models.PointTxSpend, description, relatedItemID)
	})
	if err != nil {
		return err
	}
	s.invalidate(userID)
	return nil
}

// PurchaseNote spends points on a note. The debit uses the note's dedicated
// points price (the JPY price settles through the one-time-order path); the
// debit and the access grant commit in one transaction, and buying an
// already-owned note charges nothing.
func (s *Service) PurchaseNote(userID, noteID uint) error {
	note, err := s.repo.GetNoteByID(noteID)
	if err != nil {
		return err
	}

	err = s.repo.Transaction(func(tx payment.Repository) error {
		created, err := tx.CreateNotePurchaseIfAbsent(&models.NotePurchase{
			NoteID:      noteID,
			UserID:      userID,
			PointsSpent: note.PricePoints,
		})
		if err != nil {
			return err
		}
		if !created {
			return nil
		}
		if note.PricePoints == 0 {
			return nil
		}
		desc := fmt.Sprintf("Note purchase: %s", note.Title)
		return tx.DebitPoints(userID, note.PricePoints, models.PointTxSpend, desc, &noteID)
	})
	if err != nil {
		return err
	}
	s.invalidate(userID)
	return nil
}

func (s *Service) invalidate(userID uint) {
	if err := s.cache.Delete(balanceKey(userID)); err != nil {
		log.Warnf("points: balance cache invalidation for user %d failed: %v", userID, err)
	}
}
