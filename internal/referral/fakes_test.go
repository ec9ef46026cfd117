package referral

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"seedmart/internal/models"
	"seedmart/internal/repositories/interfaces"
	"seedmart/internal/utils"
)

// In-memory repository fakes mirroring the storage semantics the engine
// depends on: version-guarded member updates, the unique active-order
// index on events, and the aggregate queries.

type fakeMemberRepo struct {
	mu      sync.Mutex
	members map[primitive.ObjectID]*models.ReferralMember
}

func newFakeMemberRepo() *fakeMemberRepo {
	return &fakeMemberRepo{members: make(map[primitive.ObjectID]*models.ReferralMember)}
}

func copyMember(m *models.ReferralMember) *models.ReferralMember {
	dup := *m
	dup.FraudFlags = append([]string(nil), m.FraudFlags...)
	return &dup
}

func (r *fakeMemberRepo) Create(_ context.Context, member *models.ReferralMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.members {
		if existing.UserEmail == member.UserEmail || existing.ReferralCode == member.ReferralCode {
			return interfaces.ErrDuplicateKey
		}
	}
	if member.ID.IsZero() {
		member.ID = primitive.NewObjectID()
	}
	r.members[member.ID] = copyMember(member)
	return nil
}

func (r *fakeMemberRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.ReferralMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.members[id]; ok {
		return copyMember(m), nil
	}
	return nil, interfaces.ErrNotFound
}

func (r *fakeMemberRepo) GetByEmail(_ context.Context, email string) (*models.ReferralMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.UserEmail == email {
			return copyMember(m), nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *fakeMemberRepo) GetByReferralCode(_ context.Context, code string) (*models.ReferralMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.ReferralCode == code {
			return copyMember(m), nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *fakeMemberRepo) Update(_ context.Context, member *models.ReferralMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.members[member.ID]
	if !ok {
		return interfaces.ErrNotFound
	}
	if stored.Version != member.Version {
		return interfaces.ErrVersionConflict
	}
	member.Version++
	r.members[member.ID] = copyMember(member)
	return nil
}

func (r *fakeMemberRepo) GetF1RankDistribution(_ context.Context, referrerID primitive.ObjectID) (map[models.SeederRank]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dist := make(map[models.SeederRank]int)
	for _, m := range r.members {
		if m.ReferrerID != nil && *m.ReferrerID == referrerID {
			dist[m.SeederRank]++
		}
	}
	return dist, nil
}

func (r *fakeMemberRepo) CountByReferrer(_ context.Context, referrerID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, m := range r.members {
		if m.ReferrerID != nil && *m.ReferrerID == referrerID {
			count++
		}
	}
	return count, nil
}

func (r *fakeMemberRepo) List(_ context.Context, status models.MemberStatus, _ *utils.PaginationParams) ([]*models.ReferralMember, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ReferralMember
	for _, m := range r.members {
		if status == "" || m.Status == status {
			out = append(out, copyMember(m))
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeMemberRepo) ListFraudSuspects(_ context.Context, _ *utils.PaginationParams) ([]*models.ReferralMember, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ReferralMember
	for _, m := range r.members {
		if m.FraudSuspect {
			out = append(out, copyMember(m))
		}
	}
	return out, int64(len(out)), nil
}

type fakeCustomerRepo struct {
	mu        sync.Mutex
	customers map[primitive.ObjectID]*models.Customer
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{customers: make(map[primitive.ObjectID]*models.Customer)}
}

func copyCustomer(c *models.Customer) *models.Customer {
	dup := *c
	return &dup
}

func (r *fakeCustomerRepo) Create(_ context.Context, customer *models.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if customer.ID.IsZero() {
		customer.ID = primitive.NewObjectID()
	}
	customer.NormalizedPhone = utils.NormalizePhone(customer.Phone)
	customer.NormalizedAddress = utils.NormalizeAddress(customer.Address)
	r.customers[customer.ID] = copyCustomer(customer)
	return nil
}

func (r *fakeCustomerRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.customers[id]; ok {
		return copyCustomer(c), nil
	}
	return nil, interfaces.ErrNotFound
}

func (r *fakeCustomerRepo) GetByEmail(_ context.Context, email string) (*models.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.customers {
		if c.Email == email {
			return copyCustomer(c), nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *fakeCustomerRepo) Update(_ context.Context, customer *models.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.customers[customer.ID]; !ok {
		return interfaces.ErrNotFound
	}
	customer.NormalizedPhone = utils.NormalizePhone(customer.Phone)
	customer.NormalizedAddress = utils.NormalizeAddress(customer.Address)
	r.customers[customer.ID] = copyCustomer(customer)
	return nil
}

func (r *fakeCustomerRepo) CountWithPurchasesByReferrer(_ context.Context, referrerID primitive.ObjectID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, c := range r.customers {
		if c.ReferrerID != nil && *c.ReferrerID == referrerID && c.TotalOrders > 0 {
			count++
		}
	}
	return count, nil
}

func (r *fakeCustomerRepo) MaxSharedContactCluster(_ context.Context, referrerID primitive.ObjectID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	phones := make(map[string]int)
	addresses := make(map[string]int)
	for _, c := range r.customers {
		if c.ReferrerID == nil || *c.ReferrerID != referrerID {
			continue
		}
		if c.NormalizedPhone != "" {
			phones[c.NormalizedPhone]++
		}
		if c.NormalizedAddress != "" {
			addresses[c.NormalizedAddress]++
		}
	}
	max := 0
	for _, n := range phones {
		if n > max {
			max = n
		}
	}
	for _, n := range addresses {
		if n > max {
			max = n
		}
	}
	return max, nil
}

func (r *fakeCustomerRepo) ListByReferrer(_ context.Context, referrerID primitive.ObjectID, _ *utils.PaginationParams) ([]*models.Customer, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Customer
	for _, c := range r.customers {
		if c.ReferrerID != nil && *c.ReferrerID == referrerID {
			out = append(out, copyCustomer(c))
		}
	}
	return out, int64(len(out)), nil
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events map[primitive.ObjectID]*models.ReferralEvent
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[primitive.ObjectID]*models.ReferralEvent)}
}

func copyEvent(e *models.ReferralEvent) *models.ReferralEvent {
	dup := *e
	return &dup
}

func (r *fakeEventRepo) Create(_ context.Context, event *models.ReferralEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.events {
		if existing.OrderID == event.OrderID && existing.Status != models.EventStatusReversed {
			return interfaces.ErrDuplicateKey
		}
	}
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	r.events[event.ID] = copyEvent(event)
	return nil
}

func (r *fakeEventRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.ReferralEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.events[id]; ok {
		return copyEvent(e), nil
	}
	return nil, interfaces.ErrNotFound
}

func (r *fakeEventRepo) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]*models.ReferralEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ReferralEvent
	for _, id := range ids {
		if e, ok := r.events[id]; ok {
			out = append(out, copyEvent(e))
		}
	}
	return out, nil
}

func (r *fakeEventRepo) GetActiveByOrderID(_ context.Context, orderID string) (*models.ReferralEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.OrderID == orderID && e.Status != models.EventStatusReversed {
			return copyEvent(e), nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *fakeEventRepo) Update(_ context.Context, event *models.ReferralEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[event.ID]; !ok {
		return interfaces.ErrNotFound
	}
	r.events[event.ID] = copyEvent(event)
	return nil
}

func (r *fakeEventRepo) SumRevenueByReferrerAndPeriod(_ context.Context, referrerID primitive.ObjectID, period string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, e := range r.events {
		if e.ReferrerID == referrerID && e.PeriodMonth == period && e.CountsTowardRevenue() {
			total += e.OrderAmount
		}
	}
	return total, nil
}

func (r *fakeEventRepo) CountByReferrerAndPeriod(_ context.Context, referrerID primitive.ObjectID, period string, reversed bool) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, e := range r.events {
		if e.ReferrerID != referrerID || e.PeriodMonth != period {
			continue
		}
		isReversed := e.Status == models.EventStatusReversed
		if isReversed == reversed {
			count++
		}
	}
	return count, nil
}

func (r *fakeEventRepo) ListByReferrer(_ context.Context, referrerID primitive.ObjectID, _ *utils.PaginationParams) ([]*models.ReferralEvent, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ReferralEvent
	for _, e := range r.events {
		if e.ReferrerID == referrerID {
			out = append(out, copyEvent(e))
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeEventRepo) ListByStatus(_ context.Context, status models.ReferralEventStatus, _ *utils.PaginationParams) ([]*models.ReferralEvent, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ReferralEvent
	for _, e := range r.events {
		if e.Status == status {
			out = append(out, copyEvent(e))
		}
	}
	return out, int64(len(out)), nil
}

type fakeAuditRepo struct {
	mu             sync.Mutex
	entries        []*models.AuditLog
	commissionLogs []*models.CommissionLog
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (r *fakeAuditRepo) Create(_ context.Context, entry *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeAuditRepo) CreateCommissionLog(_ context.Context, entry *models.CommissionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commissionLogs = append(r.commissionLogs, entry)
	return nil
}

func (r *fakeAuditRepo) GetByTarget(_ context.Context, targetType, targetID string, _ *utils.PaginationParams) ([]*models.AuditLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AuditLog
	for _, e := range r.entries {
		if e.TargetType == targetType && e.TargetID == targetID {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeAuditRepo) GetByActor(_ context.Context, actor string, _ *utils.PaginationParams) ([]*models.AuditLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AuditLog
	for _, e := range r.entries {
		if e.Actor == actor {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeAuditRepo) GetRecent(_ context.Context, _ int, _ *utils.PaginationParams) ([]*models.AuditLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries, int64(len(r.entries)), nil
}

func (r *fakeAuditRepo) GetCommissionLogsByReferrer(_ context.Context, referrerID primitive.ObjectID, _ *utils.PaginationParams) ([]*models.CommissionLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.CommissionLog
	for _, e := range r.commissionLogs {
		if e.ReferrerID == referrerID {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeAuditRepo) actionsFor(targetID string) []models.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	var actions []models.AuditAction
	for _, e := range r.entries {
		if e.TargetID == targetID {
			actions = append(actions, e.Action)
		}
	}
	return actions
}

type fakePayoutRepo struct {
	mu      sync.Mutex
	batches map[string]*models.PayoutBatch
}

func newFakePayoutRepo() *fakePayoutRepo {
	return &fakePayoutRepo{batches: make(map[string]*models.PayoutBatch)}
}

func (r *fakePayoutRepo) Create(_ context.Context, batch *models.PayoutBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.batches[batch.BatchID]; ok {
		return interfaces.ErrDuplicateKey
	}
	if batch.ID.IsZero() {
		batch.ID = primitive.NewObjectID()
	}
	r.batches[batch.BatchID] = batch
	return nil
}

func (r *fakePayoutRepo) GetByBatchID(_ context.Context, batchID string) (*models.PayoutBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.batches[batchID]; ok {
		return b, nil
	}
	return nil, interfaces.ErrNotFound
}

func (r *fakePayoutRepo) ListByReferrer(_ context.Context, referrerID primitive.ObjectID, _ *utils.PaginationParams) ([]*models.PayoutBatch, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PayoutBatch
	for _, b := range r.batches {
		if b.ReferrerID == referrerID {
			out = append(out, b)
		}
	}
	return out, int64(len(out)), nil
}

type fakeSettings struct {
	setting *models.ReferralSetting
}

func (s *fakeSettings) Get(_ context.Context) (*models.ReferralSetting, error) {
	return s.setting, nil
}

type rankChange struct {
	memberID primitive.ObjectID
	oldRank  models.SeederRank
	newRank  models.SeederRank
}

type fakeNotifier struct {
	mu           sync.Mutex
	approved     []primitive.ObjectID
	rankUpgrades []rankChange
	payouts      []string
}

func (n *fakeNotifier) MemberApproved(member *models.ReferralMember) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.approved = append(n.approved, member.ID)
}

func (n *fakeNotifier) RankUpgraded(member *models.ReferralMember, oldRank, newRank models.SeederRank) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rankUpgrades = append(n.rankUpgrades, rankChange{memberID: member.ID, oldRank: oldRank, newRank: newRank})
}

func (n *fakeNotifier) PayoutProcessed(_ *models.ReferralMember, batchID string, _ int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payouts = append(n.payouts, batchID)
}
