package referral

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"seedmart/internal/models"
	"seedmart/internal/repositories/interfaces"
	"seedmart/internal/utils"
	"seedmart/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// memberUpdateRetries bounds the optimistic-concurrency retry loop on
	// member aggregates. Contention per member is low (one human
	// referrer), so a short loop is enough.
	memberUpdateRetries = 3

	// rankCascadeMaxDepth bounds the upline re-evaluation walk. The
	// referrer graph is a forest, so the walk terminates anyway; the
	// bound keeps that trivially provable.
	rankCascadeMaxDepth = 7

	referralCodeLength   = 8
	referralCodeAttempts = 5
)

// SettingsProvider supplies the validated program configuration. The
// snapshot is immutable; a new one is loaded per admin update.
type SettingsProvider interface {
	Get(ctx context.Context) (*models.ReferralSetting, error)
}

// Notifier emits fire-and-forget signals to the notification pipeline.
// Implementations must not block on delivery; a failed notification never
// rolls back the financial state change that triggered it.
type Notifier interface {
	MemberApproved(member *models.ReferralMember)
	RankUpgraded(member *models.ReferralMember, oldRank, newRank models.SeederRank)
	PayoutProcessed(member *models.ReferralMember, batchID string, amount int64)
}

// OrderDelivered is the inbound event from the order system. Delivery is
// at-least-once; processing is idempotent per OrderID.
type OrderDelivered struct {
	OrderID     string
	CustomerID  primitive.ObjectID
	OrderAmount int64
	DeliveredAt time.Time
}

// RegisterMemberInput describes a new CTV signup.
type RegisterMemberInput struct {
	Email        string
	FullName     string
	Phone        string
	ReferralCode string // upline's code, optional
}

// Engine is the stateful referral core. It consumes order-lifecycle events
// and admin actions, applies the commission, rank and fraud rules, and
// writes every mutation to the audit trail. All collaborators are injected;
// the engine holds no global state.
type Engine struct {
	members   interfaces.MemberRepository
	customers interfaces.CustomerRepository
	events    interfaces.EventRepository
	audits    interfaces.AuditLogRepository
	payouts   interfaces.PayoutRepository
	settings  SettingsProvider
	notifier  Notifier
	logger    *logger.Logger
}

func NewEngine(
	members interfaces.MemberRepository,
	customers interfaces.CustomerRepository,
	events interfaces.EventRepository,
	audits interfaces.AuditLogRepository,
	payouts interfaces.PayoutRepository,
	settings SettingsProvider,
	notifier Notifier,
	log *logger.Logger,
) *Engine {
	return &Engine{
		members:   members,
		customers: customers,
		events:    events,
		audits:    audits,
		payouts:   payouts,
		settings:  settings,
		notifier:  notifier,
		logger:    log,
	}
}

// RegisterMember creates a new CTV. The member starts pending_approval when
// the program requires admin approval, otherwise active. The referral code
// is generated server-side; a collision on the unique index is retried with
// a fresh code.
func (e *Engine) RegisterMember(ctx context.Context, input RegisterMemberInput) (*models.ReferralMember, error) {
	setting, err := e.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	status := models.MemberStatusActive
	if setting.RequireAdminApproval {
		status = models.MemberStatusPendingApproval
	}

	var referrerID *primitive.ObjectID
	if input.ReferralCode != "" {
		upline, err := e.members.GetByReferralCode(ctx, strings.ToUpper(input.ReferralCode))
		if err != nil {
			if errors.Is(err, interfaces.ErrNotFound) {
				return nil, ErrInvalidCode
			}
			return nil, err
		}
		if upline.Status != models.MemberStatusActive {
			return nil, ErrInvalidCode
		}
		referrerID = &upline.ID
	}

	now := time.Now()
	member := &models.ReferralMember{
		UserEmail:  utils.NormalizeEmail(input.Email),
		FullName:   input.FullName,
		Phone:      utils.NormalizePhone(input.Phone),
		ReferrerID: referrerID,
		Status:     status,
		SeederRank: models.RankHatGiong,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		member.ReferralCode = utils.GenerateReferralCode(referralCodeLength)
		err = e.members.Create(ctx, member)
		if err == nil {
			break
		}
		if !errors.Is(err, interfaces.ErrDuplicateKey) {
			return nil, err
		}
		// The email index can also trip here; probing the code index
		// tells the two apart.
		if _, codeErr := e.members.GetByReferralCode(ctx, member.ReferralCode); codeErr != nil {
			return nil, fmt.Errorf("member with email %s already exists: %w", member.UserEmail, err)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to allocate a unique referral code: %w", err)
	}

	e.audit(ctx, models.SystemActor, models.AuditActionCreate, "referral_member", member.ID.Hex(), nil, map[string]interface{}{
		"user_email":    member.UserEmail,
		"referral_code": member.ReferralCode,
		"status":        member.Status,
	}, "member registered")

	return member, nil
}

// ApproveMember activates a pending member and notifies them.
func (e *Engine) ApproveMember(ctx context.Context, memberID primitive.ObjectID, adminEmail string) (*models.ReferralMember, error) {
	member, err := e.updateMemberWithRetry(ctx, memberID, func(m *models.ReferralMember) error {
		if m.Status != models.MemberStatusPendingApproval {
			return fmt.Errorf("%w: member is %s, not pending approval", ErrInvalidTransition, m.Status)
		}
		now := time.Now()
		m.Status = models.MemberStatusActive
		m.ApprovedBy = adminEmail
		m.ApprovedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.audit(ctx, adminEmail, models.AuditActionStatusChange, "referral_member", member.ID.Hex(),
		map[string]interface{}{"status": models.MemberStatusPendingApproval},
		map[string]interface{}{"status": models.MemberStatusActive},
		"member approved")
	e.notifier.MemberApproved(member)

	return member, nil
}

// AttachReferrer binds a customer to the member owning the referral code.
// The binding stays soft (referral_locked=false) until the customer's first
// qualifying order completes.
func (e *Engine) AttachReferrer(ctx context.Context, customerID primitive.ObjectID, referralCode string) (*models.Customer, error) {
	customer, err := e.customers.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	if customer.ReferralLocked {
		return nil, ErrAlreadyLocked
	}

	member, err := e.members.GetByReferralCode(ctx, strings.ToUpper(referralCode))
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}
	if member.Status != models.MemberStatusActive {
		return nil, ErrInvalidCode
	}

	setting, err := e.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if setting.BlockSelfReferral && utils.NormalizeEmail(customer.Email) == member.UserEmail {
		return nil, ErrSelfReferral
	}

	now := time.Now()
	oldReferrer := referrerHex(customer.ReferrerID)
	customer.ReferrerID = &member.ID
	customer.ReferralCodeUsed = member.ReferralCode
	customer.ReferredDate = &now
	customer.UpdatedAt = now
	if err := e.customers.Update(ctx, customer); err != nil {
		return nil, err
	}

	if _, err := e.updateMemberWithRetry(ctx, member.ID, func(m *models.ReferralMember) error {
		m.TotalReferredCustomers++
		return nil
	}); err != nil {
		e.logger.WithError(err).WithField("member_id", member.ID.Hex()).Warn("failed to bump referred customer count")
	}

	e.audit(ctx, models.SystemActor, models.AuditActionUpdate, "customer", customer.ID.Hex(),
		map[string]interface{}{"referrer_id": oldReferrer},
		map[string]interface{}{"referrer_id": member.ID.Hex(), "referral_code_used": member.ReferralCode},
		"referrer attached")

	return customer, nil
}

// ProcessOrderDelivered posts commission for one delivered order. The
// operation is idempotent per order id: replays return the previously
// created event untouched. A customer without a referrer is a successful
// zero-effect no-op returning a nil event.
func (e *Engine) ProcessOrderDelivered(ctx context.Context, order OrderDelivered) (*models.ReferralEvent, error) {
	// Fast idempotency path. The unique index on the event store is the
	// real guard; this read just avoids pointless work on replays.
	if existing, err := e.events.GetActiveByOrderID(ctx, order.OrderID); err == nil {
		return existing, nil
	} else if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, err
	}

	customer, err := e.customers.GetByID(ctx, order.CustomerID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	if !customer.HasReferrer() {
		return nil, nil
	}

	member, err := e.members.GetByID(ctx, *customer.ReferrerID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	setting, err := e.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	deliveredAt := order.DeliveredAt
	if deliveredAt.IsZero() {
		deliveredAt = time.Now()
	}
	period := utils.PeriodMonth(deliveredAt)

	// The first qualifying order locks the customer to their referrer
	// permanently, commission or not. On the commission path the lock is
	// deferred until the event insert has settled the idempotency race,
	// so a replayed delivery cannot double-count the order.
	if !member.IsEligibleForCommission() {
		e.lockCustomerAndCountOrder(ctx, customer)
		e.logger.WithFields(map[string]interface{}{
			"member_id": member.ID.Hex(),
			"order_id":  order.OrderID,
			"status":    member.Status,
		}).Info("referrer not eligible, skipping commission")
		return nil, nil
	}
	if setting.EnableReferrerOrderCheck && utils.NormalizeEmail(customer.Email) == member.UserEmail {
		// A referrer buying through their own code earns nothing.
		e.lockCustomerAndCountOrder(ctx, customer)
		return nil, nil
	}

	monthlyRevenue := member.MonthRevenue(period)
	tier := LookupTier(setting.CommissionTiers, monthlyRevenue)
	rankBonus := setting.RankBonusFor(member.SeederRank)
	rate := TotalRate(tier.Rate, rankBonus, member.CustomCommissionRate, member.CustomRateEnabled)
	amount := CommissionAmount(order.OrderAmount, rate)

	now := time.Now()
	event := &models.ReferralEvent{
		ReferrerID:       member.ID,
		CustomerID:       customer.ID,
		OrderID:          order.OrderID,
		OrderAmount:      order.OrderAmount,
		CommissionRate:   rate,
		CommissionAmount: amount,
		TierLabel:        tier.Label,
		Status:           models.EventStatusCalculated,
		PeriodMonth:      period,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := e.events.Create(ctx, event); err != nil {
		if errors.Is(err, interfaces.ErrDuplicateKey) {
			// A concurrent duplicate delivery won the insert race. The
			// winner already locked and counted the order.
			return e.events.GetActiveByOrderID(ctx, order.OrderID)
		}
		return nil, err
	}

	e.lockCustomerAndCountOrder(ctx, customer)

	member, err = e.updateMemberWithRetry(ctx, member.ID, func(m *models.ReferralMember) error {
		applyRevenueDelta(m, period, order.OrderAmount)
		m.UnpaidCommission += amount
		m.TotalReferralRevenue += order.OrderAmount
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.commissionLog(ctx, &models.CommissionLog{
		ReferrerID:       member.ID,
		EventID:          event.ID,
		OrderID:          order.OrderID,
		OrderAmount:      order.OrderAmount,
		MonthlyRevenue:   monthlyRevenue,
		TierLabel:        tier.Label,
		TierRate:         tier.Rate,
		RankBonus:        rankBonus,
		CustomRateUsed:   member.CustomRateEnabled && member.CustomCommissionRate != nil,
		AppliedRate:      rate,
		CommissionAmount: amount,
		Description:      fmt.Sprintf("commission for order %s", order.OrderID),
	})
	e.audit(ctx, models.SystemActor, models.AuditActionCreate, "referral_event", event.ID.Hex(), nil, map[string]interface{}{
		"order_id":          order.OrderID,
		"commission_amount": amount,
		"rate":              rate,
	}, "commission calculated")

	e.cascadeRankUpgrades(ctx, member, setting)

	if result, err := e.runFraudCheck(ctx, member, customer, setting, period); err != nil {
		// Fraud scoring is advisory and must never fail the posting.
		e.logger.WithError(err).WithField("member_id", member.ID.Hex()).Warn("fraud check failed")
	} else if result.Score >= setting.FraudThresholdScore {
		event.FraudSuspect = true
		event.UpdatedAt = time.Now()
		if err := e.events.Update(ctx, event); err != nil {
			e.logger.WithError(err).WithField("event_id", event.ID.Hex()).Warn("failed to flag event as fraud suspect")
		}
	}

	return event, nil
}

// ProcessOrderReversed negates the commission of a refunded or cancelled
// order by flipping its event to reversed. Unpaid commission is clawed back
// floored at zero; commission already paid out is tracked as a deficit on
// total_paid_commission instead of driving unpaid below zero.
func (e *Engine) ProcessOrderReversed(ctx context.Context, orderID, reason string) (*models.ReferralEvent, error) {
	event, err := e.events.GetActiveByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if event.Status == models.EventStatusFraudulent {
		return nil, fmt.Errorf("%w: event is fraudulent and excluded from payout", ErrInvalidTransition)
	}

	wasPaid := event.Status == models.EventStatusPaid
	oldStatus := event.Status
	now := time.Now()
	event.Status = models.EventStatusReversed
	event.ReversedAt = &now
	event.ReversalReason = reason
	event.UpdatedAt = now
	if err := e.events.Update(ctx, event); err != nil {
		return nil, err
	}

	member, err := e.updateMemberWithRetry(ctx, event.ReferrerID, func(m *models.ReferralMember) error {
		if wasPaid {
			m.TotalPaidCommission -= event.CommissionAmount
		} else {
			m.UnpaidCommission -= event.CommissionAmount
			if m.UnpaidCommission < 0 {
				// Paid-out deficit bookkeeping keeps unpaid at zero.
				m.TotalPaidCommission += m.UnpaidCommission
				m.UnpaidCommission = 0
			}
		}
		m.TotalReferralRevenue -= event.OrderAmount
		if m.TotalReferralRevenue < 0 {
			m.TotalReferralRevenue = 0
		}
		if m.CurrentPeriod == event.PeriodMonth {
			m.CurrentMonthRevenue -= event.OrderAmount
			if m.CurrentMonthRevenue < 0 {
				m.CurrentMonthRevenue = 0
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if customer, cerr := e.customers.GetByID(ctx, event.CustomerID); cerr == nil && customer.TotalOrders > 0 {
		customer.TotalOrders--
		customer.UpdatedAt = time.Now()
		if uerr := e.customers.Update(ctx, customer); uerr != nil {
			e.logger.WithError(uerr).WithField("customer_id", customer.ID.Hex()).Warn("failed to decrement customer order count")
		}
	}

	e.commissionLog(ctx, &models.CommissionLog{
		ReferrerID:       member.ID,
		EventID:          event.ID,
		OrderID:          orderID,
		OrderAmount:      event.OrderAmount,
		AppliedRate:      event.CommissionRate,
		CommissionAmount: -event.CommissionAmount,
		Reversal:         true,
		Description:      fmt.Sprintf("reversal of order %s: %s", orderID, reason),
	})
	e.audit(ctx, models.SystemActor, models.AuditActionReverse, "referral_event", event.ID.Hex(),
		map[string]interface{}{"status": oldStatus},
		map[string]interface{}{"status": models.EventStatusReversed, "reason": reason},
		fmt.Sprintf("commission reversed: %s", reason))

	return event, nil
}

// ApproveEvent moves a calculated event to approved, making it payable.
func (e *Engine) ApproveEvent(ctx context.Context, eventID primitive.ObjectID, adminEmail string) (*models.ReferralEvent, error) {
	event, err := e.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if event.Status != models.EventStatusCalculated {
		return nil, fmt.Errorf("%w: cannot approve event in status %s", ErrInvalidTransition, event.Status)
	}

	now := time.Now()
	event.Status = models.EventStatusApproved
	event.ApprovedBy = adminEmail
	event.ApprovedAt = &now
	event.UpdatedAt = now
	if err := e.events.Update(ctx, event); err != nil {
		return nil, err
	}

	e.audit(ctx, adminEmail, models.AuditActionApprove, "referral_event", event.ID.Hex(),
		map[string]interface{}{"status": models.EventStatusCalculated},
		map[string]interface{}{"status": models.EventStatusApproved},
		"commission approved")

	return event, nil
}

// MarkEventFraudulent permanently excludes a calculated event from revenue
// and payout after a fraud investigation. The transition is terminal: a
// fraudulent event can never be approved, paid or reversed, and its order
// stays claimed so the commission cannot be re-posted. Reason is mandatory.
func (e *Engine) MarkEventFraudulent(ctx context.Context, eventID primitive.ObjectID, reason, adminEmail string) (*models.ReferralEvent, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: fraud reason is required", ErrInvalidTransition)
	}

	event, err := e.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if event.Status != models.EventStatusCalculated {
		return nil, fmt.Errorf("%w: cannot mark event fraudulent in status %s", ErrInvalidTransition, event.Status)
	}

	oldStatus := event.Status
	now := time.Now()
	event.Status = models.EventStatusFraudulent
	event.FraudSuspect = true
	event.UpdatedAt = now
	if err := e.events.Update(ctx, event); err != nil {
		return nil, err
	}

	member, err := e.updateMemberWithRetry(ctx, event.ReferrerID, func(m *models.ReferralMember) error {
		m.UnpaidCommission -= event.CommissionAmount
		if m.UnpaidCommission < 0 {
			m.UnpaidCommission = 0
		}
		m.TotalReferralRevenue -= event.OrderAmount
		if m.TotalReferralRevenue < 0 {
			m.TotalReferralRevenue = 0
		}
		if m.CurrentPeriod == event.PeriodMonth {
			m.CurrentMonthRevenue -= event.OrderAmount
			if m.CurrentMonthRevenue < 0 {
				m.CurrentMonthRevenue = 0
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.commissionLog(ctx, &models.CommissionLog{
		ReferrerID:       member.ID,
		EventID:          event.ID,
		OrderID:          event.OrderID,
		OrderAmount:      event.OrderAmount,
		AppliedRate:      event.CommissionRate,
		CommissionAmount: -event.CommissionAmount,
		Reversal:         true,
		Description:      fmt.Sprintf("fraud exclusion of order %s: %s", event.OrderID, reason),
	})
	e.audit(ctx, adminEmail, models.AuditActionFraudFlag, "referral_event", event.ID.Hex(),
		map[string]interface{}{"status": oldStatus},
		map[string]interface{}{"status": models.EventStatusFraudulent, "reason": reason},
		fmt.Sprintf("commission excluded for fraud: %s", reason))

	return event, nil
}

// MarkPaid pays out a batch of approved events belonging to one member.
// The batch total must reach the configured minimum payout amount.
func (e *Engine) MarkPaid(ctx context.Context, batchID string, eventIDs []primitive.ObjectID, adminEmail string) (*models.PayoutBatch, error) {
	if len(eventIDs) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrEventNotFound)
	}
	events, err := e.events.GetByIDs(ctx, eventIDs)
	if err != nil {
		return nil, err
	}
	if len(events) != len(eventIDs) {
		return nil, ErrEventNotFound
	}

	referrerID := events[0].ReferrerID
	var total int64
	for _, ev := range events {
		if ev.Status != models.EventStatusApproved {
			return nil, fmt.Errorf("%w: event %s is %s, not approved", ErrInvalidTransition, ev.ID.Hex(), ev.Status)
		}
		if ev.ReferrerID != referrerID {
			return nil, fmt.Errorf("%w: batch spans multiple members", ErrInvalidTransition)
		}
		total += ev.CommissionAmount
	}

	setting, err := e.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if total < setting.MinPayoutAmount {
		return nil, fmt.Errorf("%w: batch total %d < minimum %d", ErrBelowPayoutThreshold, total, setting.MinPayoutAmount)
	}

	now := time.Now()
	batch := &models.PayoutBatch{
		BatchID:     batchID,
		ReferrerID:  referrerID,
		EventIDs:    eventIDs,
		TotalAmount: total,
		ProcessedBy: adminEmail,
		CreatedAt:   now,
	}
	if err := e.payouts.Create(ctx, batch); err != nil {
		return nil, err
	}

	for _, ev := range events {
		ev.Status = models.EventStatusPaid
		ev.PaidBatchID = batchID
		ev.PaidAt = &now
		ev.UpdatedAt = now
		if err := e.events.Update(ctx, ev); err != nil {
			return nil, fmt.Errorf("failed to mark event %s paid: %w", ev.ID.Hex(), err)
		}
	}

	member, err := e.updateMemberWithRetry(ctx, referrerID, func(m *models.ReferralMember) error {
		m.UnpaidCommission -= total
		if m.UnpaidCommission < 0 {
			m.UnpaidCommission = 0
		}
		m.TotalPaidCommission += total
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.audit(ctx, adminEmail, models.AuditActionPayout, "payout_batch", batchID, nil, map[string]interface{}{
		"referrer_id":  referrerID.Hex(),
		"total_amount": total,
		"event_count":  len(events),
	}, "payout processed")
	e.notifier.PayoutProcessed(member, batchID, total)

	return batch, nil
}

// ReassignCustomer is the audited admin escape hatch for referral
// disputes. It works even on locked customers and leaves the customer
// locked afterwards. Reason is mandatory.
func (e *Engine) ReassignCustomer(ctx context.Context, customerID, newReferrerID primitive.ObjectID, reason, adminEmail string) (*models.Customer, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: reassignment reason is required", ErrInvalidTransition)
	}

	customer, err := e.customers.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	newReferrer, err := e.members.GetByID(ctx, newReferrerID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	oldReferrer := referrerHex(customer.ReferrerID)
	now := time.Now()
	customer.ReferrerID = &newReferrer.ID
	customer.ReferralCodeUsed = newReferrer.ReferralCode
	customer.ReferralLocked = true
	customer.UpdatedAt = now
	if err := e.customers.Update(ctx, customer); err != nil {
		return nil, err
	}

	e.audit(ctx, adminEmail, models.AuditActionReassign, "customer", customer.ID.Hex(),
		map[string]interface{}{"referrer_id": oldReferrer},
		map[string]interface{}{"referrer_id": newReferrer.ID.Hex()},
		fmt.Sprintf("customer reassigned: %s", reason))

	return customer, nil
}

// SetCustomRate installs an admin commission-rate override for a member.
func (e *Engine) SetCustomRate(ctx context.Context, memberID primitive.ObjectID, rate float64, adminEmail, note string) (*models.ReferralMember, error) {
	if rate < 0 || rate > 100 {
		return nil, fmt.Errorf("%w: custom rate %.2f out of range", ErrInvalidTransition, rate)
	}

	var oldRate *float64
	member, err := e.updateMemberWithRetry(ctx, memberID, func(m *models.ReferralMember) error {
		oldRate = m.CustomCommissionRate
		m.CustomCommissionRate = &rate
		m.CustomRateEnabled = true
		m.CustomRateNote = note
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.audit(ctx, adminEmail, models.AuditActionCustomRate, "referral_member", member.ID.Hex(),
		map[string]interface{}{"custom_commission_rate": oldRate},
		map[string]interface{}{"custom_commission_rate": rate, "note": note},
		"custom commission rate set")

	return member, nil
}

// DisableCustomRate removes a member's rate override, restoring tier+bonus
// pricing.
func (e *Engine) DisableCustomRate(ctx context.Context, memberID primitive.ObjectID, adminEmail string) (*models.ReferralMember, error) {
	var oldRate *float64
	member, err := e.updateMemberWithRetry(ctx, memberID, func(m *models.ReferralMember) error {
		oldRate = m.CustomCommissionRate
		m.CustomCommissionRate = nil
		m.CustomRateEnabled = false
		m.CustomRateNote = ""
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.audit(ctx, adminEmail, models.AuditActionCustomRate, "referral_member", member.ID.Hex(),
		map[string]interface{}{"custom_commission_rate": oldRate},
		map[string]interface{}{"custom_commission_rate": nil},
		"custom commission rate disabled")

	return member, nil
}

// RunFraudCheck recomputes a member's fraud score on demand.
func (e *Engine) RunFraudCheck(ctx context.Context, memberID primitive.ObjectID) (FraudResult, error) {
	member, err := e.members.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return FraudResult{}, ErrMemberNotFound
		}
		return FraudResult{}, err
	}
	setting, err := e.settings.Get(ctx)
	if err != nil {
		return FraudResult{}, err
	}
	return e.runFraudCheck(ctx, member, nil, setting, utils.PeriodMonth(time.Now()))
}

// --- internals ---

func (e *Engine) lockCustomerAndCountOrder(ctx context.Context, customer *models.Customer) {
	customer.TotalOrders++
	if !customer.ReferralLocked {
		customer.ReferralLocked = true
	}
	customer.UpdatedAt = time.Now()
	if err := e.customers.Update(ctx, customer); err != nil {
		e.logger.WithError(err).WithField("customer_id", customer.ID.Hex()).Warn("failed to lock customer")
	}
}

// updateMemberWithRetry applies a read-modify-write mutation under the
// member's version guard, retrying on write conflicts.
func (e *Engine) updateMemberWithRetry(ctx context.Context, memberID primitive.ObjectID, mutate func(*models.ReferralMember) error) (*models.ReferralMember, error) {
	var lastErr error
	for attempt := 0; attempt < memberUpdateRetries; attempt++ {
		member, err := e.members.GetByID(ctx, memberID)
		if err != nil {
			if errors.Is(err, interfaces.ErrNotFound) {
				return nil, ErrMemberNotFound
			}
			return nil, err
		}
		if err := mutate(member); err != nil {
			return nil, err
		}
		member.UpdatedAt = time.Now()
		err = e.members.Update(ctx, member)
		if err == nil {
			return member, nil
		}
		if !errors.Is(err, interfaces.ErrVersionConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrConcurrencyConflict, lastErr)
}

// applyRevenueDelta adds order revenue to the member's running monthly
// aggregate, resetting it when the period has rolled over.
func applyRevenueDelta(m *models.ReferralMember, period string, delta int64) {
	if m.CurrentPeriod != period {
		m.CurrentPeriod = period
		m.CurrentMonthRevenue = 0
	}
	m.CurrentMonthRevenue += delta
	if m.CurrentMonthRevenue < 0 {
		m.CurrentMonthRevenue = 0
	}
}

// cascadeRankUpgrades re-evaluates the member's rank and, on each
// successful upgrade, walks one hop up the referral forest. The walk is
// depth-bounded and cycle-free because referrer assignment is single-parent
// and write-once after lock.
func (e *Engine) cascadeRankUpgrades(ctx context.Context, member *models.ReferralMember, setting *models.ReferralSetting) {
	current := member
	for depth := 0; depth < rankCascadeMaxDepth && current != nil; depth++ {
		stats, err := e.collectF1Stats(ctx, current.ID)
		if err != nil {
			e.logger.WithError(err).WithField("member_id", current.ID.Hex()).Warn("failed to collect F1 stats")
			return
		}
		eval := EvaluateRank(current.SeederRank, stats, setting)
		if !eval.CanUpgrade {
			return
		}

		oldRank := current.SeederRank
		upgraded, err := e.updateMemberWithRetry(ctx, current.ID, func(m *models.ReferralMember) error {
			// Another writer may have upgraded past us meanwhile; the
			// rank only ever moves forward.
			if !eval.NewRank.AtLeast(m.SeederRank) || eval.NewRank == m.SeederRank {
				return nil
			}
			m.SeederRank = eval.NewRank
			m.SeederRankBonus = eval.NewBonus
			return nil
		})
		if err != nil {
			e.logger.WithError(err).WithField("member_id", current.ID.Hex()).Warn("failed to apply rank upgrade")
			return
		}
		if upgraded.SeederRank == oldRank {
			return
		}

		e.audit(ctx, models.SystemActor, models.AuditActionRankUpgrade, "referral_member", upgraded.ID.Hex(),
			map[string]interface{}{"seeder_rank": oldRank},
			map[string]interface{}{"seeder_rank": upgraded.SeederRank},
			fmt.Sprintf("rank upgraded to %s", upgraded.SeederRank.Label()))
		e.notifier.RankUpgraded(upgraded, oldRank, upgraded.SeederRank)

		if upgraded.ReferrerID == nil {
			return
		}
		upline, err := e.members.GetByID(ctx, *upgraded.ReferrerID)
		if err != nil {
			if !errors.Is(err, interfaces.ErrNotFound) {
				e.logger.WithError(err).WithField("member_id", upgraded.ReferrerID.Hex()).Warn("failed to load upline for rank cascade")
			}
			return
		}
		current = upline
	}
}

func (e *Engine) collectF1Stats(ctx context.Context, memberID primitive.ObjectID) (F1Stats, error) {
	byRank, err := e.members.GetF1RankDistribution(ctx, memberID)
	if err != nil {
		return F1Stats{}, err
	}
	withPurchases, err := e.customers.CountWithPurchasesByReferrer(ctx, memberID)
	if err != nil {
		return F1Stats{}, err
	}
	return F1Stats{ByRank: byRank, WithPurchases: withPurchases}, nil
}

// runFraudCheck assembles the member's fraud signals, scores them, and
// persists the score and flags. Crossing the threshold sets the advisory
// fraud_suspect flag without touching status or blocking commission.
func (e *Engine) runFraudCheck(ctx context.Context, member *models.ReferralMember, customer *models.Customer, setting *models.ReferralSetting, period string) (FraudResult, error) {
	sharedContacts, err := e.customers.MaxSharedContactCluster(ctx, member.ID)
	if err != nil {
		return FraudResult{}, err
	}
	reversed, err := e.events.CountByReferrerAndPeriod(ctx, member.ID, period, true)
	if err != nil {
		return FraudResult{}, err
	}
	delivered, err := e.events.CountByReferrerAndPeriod(ctx, member.ID, period, false)
	if err != nil {
		return FraudResult{}, err
	}
	prevRevenue, err := e.events.SumRevenueByReferrerAndPeriod(ctx, member.ID, utils.PreviousPeriodMonth(period))
	if err != nil {
		return FraudResult{}, err
	}

	signals := FraudSignals{
		MaxSharedContactF1s:  sharedContacts,
		ReversedOrders:       reversed,
		DeliveredOrders:      delivered,
		CurrentMonthRevenue:  member.MonthRevenue(period),
		PreviousMonthRevenue: prevRevenue,
	}
	if customer != nil && !setting.BlockSelfReferral {
		signals.SelfReferral = utils.NormalizeEmail(customer.Email) == member.UserEmail
	}

	result := ScoreFraud(signals)
	suspect := result.Score >= setting.FraudThresholdScore

	updated, err := e.updateMemberWithRetry(ctx, member.ID, func(m *models.ReferralMember) error {
		m.FraudScore = result.Score
		m.FraudFlags = result.Flags
		m.FraudSuspect = suspect
		return nil
	})
	if err != nil {
		return result, err
	}
	*member = *updated

	if suspect {
		e.audit(ctx, models.SystemActor, models.AuditActionFraudFlag, "referral_member", member.ID.Hex(), nil, map[string]interface{}{
			"fraud_score": result.Score,
			"fraud_flags": result.Flags,
		}, "member flagged for fraud review")
	}
	return result, nil
}

// audit writes an audit entry, logging rather than failing on error: the
// trail is best-effort relative to the financial mutation it describes.
func (e *Engine) audit(ctx context.Context, actor string, action models.AuditAction, targetType, targetID string, oldValues, newValues map[string]interface{}, description string) {
	entry := &models.AuditLog{
		Actor:       actor,
		Action:      action,
		TargetType:  targetType,
		TargetID:    targetID,
		OldValues:   oldValues,
		NewValues:   newValues,
		Description: description,
	}
	if err := e.audits.Create(ctx, entry); err != nil {
		e.logger.WithError(err).WithFields(map[string]interface{}{
			"target_type": targetType,
			"target_id":   targetID,
			"action":      action,
		}).Error("failed to write audit log")
	}
}

func (e *Engine) commissionLog(ctx context.Context, entry *models.CommissionLog) {
	if err := e.audits.CreateCommissionLog(ctx, entry); err != nil {
		e.logger.WithError(err).WithField("order_id", entry.OrderID).Error("failed to write commission log")
	}
}

func referrerHex(id *primitive.ObjectID) interface{} {
	if id == nil {
		return nil
	}
	return id.Hex()
}
