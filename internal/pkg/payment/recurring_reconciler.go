package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/HoshinoLab/CreatorBase/app/models"
	"github.com/HoshinoLab/CreatorBase/internal/pkg/plans"
)

// RecurringResult reports what a recurring webhook event did.
type RecurringResult struct {
	Handled       bool   `json:"handled"`
	Duplicate     bool   `json:"duplicate"`
	PointsGranted int64  `json:"points_granted"`
	Status        string `json:"status"`
}

// RecurringReconciler applies RECURRENT_PAYMENT webhook events. It never
// trusts the notification payload for money decisions: the canonical entity
// is re-fetched from the gateway first, and all writes share one transaction
// keyed on the event id, so a redelivered event is a no-op.
type RecurringReconciler struct {
	repo    Repository
	gateway Gateway
	catalog *plans.Catalog
}

// NewRecurringReconciler wires a reconciler.
func NewRecurringReconciler(repo Repository, gateway Gateway, catalog *plans.Catalog) *RecurringReconciler {
	return &RecurringReconciler{repo: repo, gateway: gateway, catalog: catalog}
}

// Process handles one RECURRENT_PAYMENT notification.
//
// Returns ErrUnresolvableReference when neither a local session nor the
// gateway entity yields a plan and user; in that case nothing is recorded, so
// a later redelivery can still land once the missing data exists.
func (r *RecurringReconciler) Process(ctx context.Context, n WebhookNotification, rawPayload string) (*RecurringResult, error) {
	detail, err := r.gateway.GetRecurrentPayment(ctx, n.EntityID)
	if err != nil {
		return nil, err
	}

	session, err := r.resolveSession(n.EntityID, detail)
	if err != nil {
		return nil, err
	}

	plan, err := r.resolvePlan(session, detail)
	if err != nil {
		return nil, err
	}

	userID, err := r.resolveUser(session, detail)
	if err != nil {
		return nil, err
	}

	kind := ClassifyEvent(n.EventType)
	now := time.Now().UTC()
	res := &RecurringResult{Handled: true}

	err = r.repo.Transaction(func(tx Repository) error {
		// cold start: no checkout session ever committed locally
		if session == nil {
			session = r.syntheticSession(userID, plan, n.EntityID, detail)
			if err := tx.CreateSession(session); err != nil {
				return err
			}
		}

		sub, err := r.getOrCreateSubscription(tx, session, plan, userID, n.EntityID)
		if err != nil {
			return err
		}

		salonID := session.ResolvedSalonID()
		if salonID == 0 && sub.SalonID != nil {
			salonID = *sub.SalonID
		}
		salonJPY := session.Metadata.IsSalonJPYBilling() || sub.Metadata.IsSalonJPYBilling()

		var pointsToGrant int64
		if kind == TransitionSuccess && !salonJPY {
			pointsToGrant = plan.PointsPerCycle
		}

		// claim the event before any state change; losing the claim means a
		// concurrent or earlier delivery already applied this event
		history := &models.SubscriptionChargeHistory{
			EventID:            n.ID,
			UserSubscriptionID: sub.ID,
			EventType:          n.EventType,
			Status:             detail.Status,
			AmountUSD:          float64(detail.Amount),
			PointsGranted:      pointsToGrant,
			RawPayload:         rawPayload,
		}
		if salonID != 0 {
			history.SalonID = &salonID
		}
		claimed, err := tx.CreateChargeHistoryIfAbsent(history)
		if err != nil {
			return err
		}
		if !claimed {
			res.Duplicate = true
			res.Status = sub.Status
			return nil
		}

		if err := r.syncSession(tx, session, n.EntityID, kind); err != nil {
			return err
		}

		sub.LastEventType = n.EventType
		sub.LastEventAt = &now
		if next := detail.NextChargeAt(); next != nil {
			sub.NextChargeAt = next
		}

		switch kind {
		case TransitionSuccess:
			sub.Status = models.SubscriptionStatusActive
			sub.LastChargeAt = &now
			if pointsToGrant > 0 {
				desc := fmt.Sprintf("Subscription credit: %s", plan.Label)
				if err := tx.CreditPoints(userID, pointsToGrant, models.PointTxSubscriptionCredit, desc, &sub.ID); err != nil {
					return err
				}
				res.PointsGranted = pointsToGrant
			}
		case TransitionCancel:
			sub.Status = models.SubscriptionStatusCanceled
			sub.CanceledAt = &now
		case TransitionUnpaid:
			sub.Status = models.SubscriptionStatusUnpaid
		case TransitionOther:
			// recorded for audit, no state transition
		}

		if salonID != 0 && kind != TransitionOther {
			if err := r.syncMembership(tx, salonID, userID, sub, n.EventType, kind, detail, now); err != nil {
				return err
			}
		}

		res.Status = sub.Status
		return tx.SaveSubscription(sub)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// resolveSession finds the local checkout session for the gateway entity.
// Order matters: the gateway's external_id is the strongest link, the stored
// recurrent_payment_id covers re-deliveries, and nil means cold start.
func (r *RecurringReconciler) resolveSession(entityID string, detail *RecurrentPaymentDetail) (*models.SubscriptionSession, error) {
	if detail.ExternalID != "" {
		s, err := r.repo.GetSessionByExternalID(detail.ExternalID)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	s, err := r.repo.GetSessionByRecurrentPaymentID(entityID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return nil, nil
}

func (r *RecurringReconciler) resolvePlan(session *models.SubscriptionSession, detail *RecurrentPaymentDetail) (plans.Plan, error) {
	if session != nil {
		if plan, ok := r.catalog.ByKey(session.PlanKey); ok {
			return plan, nil
		}
	}
	if ref := detail.PlanReference(); ref != "" {
		if plan, ok := r.catalog.ByExternalID(ref); ok {
			return plan, nil
		}
	}
	if planKey, _, ok := ParseExternalID(detail.ExternalID); ok {
		if plan, ok := r.catalog.ByKey(planKey); ok {
			return plan, nil
		}
	}
	log.Errorf("recurring: no plan for entity external_id=%q plan_ref=%q", detail.ExternalID, detail.PlanReference())
	return plans.Plan{}, ErrUnresolvableReference
}

func (r *RecurringReconciler) resolveUser(session *models.SubscriptionSession, detail *RecurrentPaymentDetail) (uint, error) {
	if session != nil && session.UserID != 0 {
		return session.UserID, nil
	}
	if _, userID, ok := ParseExternalID(detail.ExternalID); ok {
		if _, err := r.repo.GetUserByID(userID); err == nil {
			return userID, nil
		}
	}
	if email := detail.PayerEmail(); email != "" {
		u, err := r.repo.GetUserByEmail(email)
		if err == nil {
			return u.ID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, err
		}
	}
	log.Errorf("recurring: no user for entity external_id=%q payer=%q", detail.ExternalID, detail.PayerEmail())
	return 0, ErrUnresolvableReference
}

func (r *RecurringReconciler) syntheticSession(userID uint, plan plans.Plan, entityID string, detail *RecurrentPaymentDetail) *models.SubscriptionSession {
	externalID := detail.ExternalID
	if externalID == "" {
		externalID = newExternalID(plan.Key, userID)
	}
	return &models.SubscriptionSession{
		UserID:             userID,
		PlanKey:            plan.Key,
		ExternalPlanID:     plan.ExternalPlanID,
		PointsPerCycle:     plan.PointsPerCycle,
		USDAmount:          plan.USDAmount,
		ExternalID:         externalID,
		RecurrentPaymentID: entityID,
		Status:             models.SubscriptionStatusPending,
		Metadata:           models.Metadata{},
	}
}

func (r *RecurringReconciler) getOrCreateSubscription(tx Repository, session *models.SubscriptionSession, plan plans.Plan, userID uint, entityID string) (*models.UserSubscription, error) {
	sub, err := tx.GetSubscriptionByRecurrentPaymentID(entityID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sub = &models.UserSubscription{
		UserID:               userID,
		PlanKey:              plan.Key,
		ExternalPlanID:       plan.ExternalPlanID,
		PointsPerCycle:       plan.PointsPerCycle,
		USDAmount:            plan.USDAmount,
		CheckoutPreferenceID: session.CheckoutPreferenceID,
		ExternalID:           session.ExternalID,
		RecurrentPaymentID:   entityID,
		Status:               models.SubscriptionStatusPending,
		SellerID:             session.SellerID,
		SellerUsername:       session.SellerUsername,
		SalonID:              session.SalonID,
		Metadata:             session.Metadata,
	}
	if sub.Metadata == nil {
		sub.Metadata = models.Metadata{}
	}
	// saved immediately so the charge-history row can reference its id
	if err := tx.SaveSubscription(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *RecurringReconciler) syncSession(tx Repository, session *models.SubscriptionSession, entityID string, kind TransitionKind) error {
	changed := false
	if session.RecurrentPaymentID != entityID {
		session.RecurrentPaymentID = entityID
		changed = true
	}
	var status string
	switch kind {
	case TransitionSuccess:
		status = models.SubscriptionStatusActive
	case TransitionCancel:
		status = models.SubscriptionStatusCanceled
	case TransitionUnpaid:
		status = models.SubscriptionStatusUnpaid
	default:
		status = session.Status
	}
	if session.Status != status {
		session.Status = status
		changed = true
	}
	if !changed {
		return nil
	}
	return tx.UpdateSession(session)
}

func (r *RecurringReconciler) syncMembership(tx Repository, salonID, userID uint, sub *models.UserSubscription, eventType string, kind TransitionKind, detail *RecurrentPaymentDetail, now time.Time) error {
	m := &models.SalonMembership{
		SalonID:            salonID,
		UserID:             userID,
		RecurrentPaymentID: sub.RecurrentPaymentID,
		LastEventType:      eventType,
	}
	switch kind {
	case TransitionSuccess:
		m.Status = models.MembershipStatusActive
		m.JoinedAt = &now
		m.LastChargedAt = &now
		m.NextChargeAt = detail.NextChargeAt()
	case TransitionCancel:
		m.Status = models.MembershipStatusCanceled
		m.CanceledAt = &now
	case TransitionUnpaid:
		m.Status = models.MembershipStatusUnpaid
	}
	if err := tx.UpsertMembership(m); err != nil {
		return err
	}
	return tx.RecountSalonMembers(salonID)
}
