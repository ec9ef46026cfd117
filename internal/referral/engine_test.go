package referral

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"seedmart/internal/models"
	"seedmart/internal/repositories/interfaces"
	"seedmart/internal/utils"
	"seedmart/pkg/logger"
)

type engineFixture struct {
	engine    *Engine
	members   *fakeMemberRepo
	customers *fakeCustomerRepo
	events    *fakeEventRepo
	audits    *fakeAuditRepo
	payouts   *fakePayoutRepo
	settings  *fakeSettings
	notifier  *fakeNotifier
}

func testSetting() *models.ReferralSetting {
	tier2 := int64(10_000_000)
	tier3 := int64(50_000_000)
	rankHGK := models.RankHatGiongKhoe
	rankMK := models.RankMamKhoe
	rankCN := models.RankCayNon
	rankCTT := models.RankCayTruongThanh

	return &models.ReferralSetting{
		CommissionTiers: []models.CommissionTier{
			{MinRevenue: 0, MaxRevenue: &tier2, Rate: 1.0, Label: "Khởi Đầu"},
			{MinRevenue: tier2, MaxRevenue: &tier3, Rate: 2.0, Label: "Phát Triển"},
			{MinRevenue: tier3, MaxRevenue: nil, Rate: 3.0, Label: "Bứt Phá"},
		},
		SeederRankConfig: []models.RankRequirement{
			{Rank: models.RankHatGiongKhoe, F1Required: 3, Bonus: 0.1},
			{Rank: models.RankMamKhoe, F1Required: 7, F1RankRequired: &rankHGK, Bonus: 0.2},
			{Rank: models.RankCayNon, F1Required: 5, F1RankRequired: &rankMK, Bonus: 0.3},
			{Rank: models.RankCayTruongThanh, F1Required: 7, F1RankRequired: &rankMK, Bonus: 0.5},
			{Rank: models.RankCaySaiQua, F1Required: 7, F1RankRequired: &rankCN, Bonus: 0.7},
			{Rank: models.RankCoThu, F1Required: 7, F1RankRequired: &rankCTT, Bonus: 1.0},
		},
		FraudThresholdScore:      50,
		MinPayoutAmount:          100_000,
		EnableReferrerOrderCheck: true,
		BlockSelfReferral:        true,
	}
}

func newFixture(t *testing.T) *engineFixture {
	t.Helper()
	log, err := logger.NewLogger(&logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)

	f := &engineFixture{
		members:   newFakeMemberRepo(),
		customers: newFakeCustomerRepo(),
		events:    newFakeEventRepo(),
		audits:    newFakeAuditRepo(),
		payouts:   newFakePayoutRepo(),
		settings:  &fakeSettings{setting: testSetting()},
		notifier:  &fakeNotifier{},
	}
	f.engine = NewEngine(f.members, f.customers, f.events, f.audits, f.payouts, f.settings, f.notifier, log)
	return f
}

func (f *engineFixture) seedMember(t *testing.T, email, code string, status models.MemberStatus) *models.ReferralMember {
	t.Helper()
	member := &models.ReferralMember{
		UserEmail:    email,
		FullName:     "CTV " + code,
		ReferralCode: code,
		Status:       status,
		SeederRank:   models.RankHatGiong,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	require.NoError(t, f.members.Create(context.Background(), member))
	return member
}

func (f *engineFixture) seedCustomer(t *testing.T, email string, referrerID *primitive.ObjectID, locked bool) *models.Customer {
	t.Helper()
	customer := &models.Customer{
		Email:          email,
		FullName:       "Customer " + email,
		ReferrerID:     referrerID,
		ReferralLocked: locked,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	require.NoError(t, f.customers.Create(context.Background(), customer))
	return customer
}

func (f *engineFixture) deliver(t *testing.T, orderID string, customerID primitive.ObjectID, amount int64) *models.ReferralEvent {
	t.Helper()
	event, err := f.engine.ProcessOrderDelivered(context.Background(), OrderDelivered{
		OrderID:     orderID,
		CustomerID:  customerID,
		OrderAmount: amount,
		DeliveredAt: time.Now(),
	})
	require.NoError(t, err)
	return event
}

func (f *engineFixture) reloadMember(t *testing.T, id primitive.ObjectID) *models.ReferralMember {
	t.Helper()
	member, err := f.members.GetByID(context.Background(), id)
	require.NoError(t, err)
	return member
}

func (f *engineFixture) reloadCustomer(t *testing.T, id primitive.ObjectID) *models.Customer {
	t.Helper()
	customer, err := f.customers.GetByID(context.Background(), id)
	require.NoError(t, err)
	return customer
}

func TestRegisterMemberActiveByDefault(t *testing.T) {
	f := newFixture(t)

	member, err := f.engine.RegisterMember(context.Background(), RegisterMemberInput{
		Email:    "Linh@Example.com",
		FullName: "Linh Nguyen",
		Phone:    "0912345678",
	})
	require.NoError(t, err)

	assert.Equal(t, models.MemberStatusActive, member.Status)
	assert.Equal(t, models.RankHatGiong, member.SeederRank)
	assert.Equal(t, "linh@example.com", member.UserEmail)
	assert.Len(t, member.ReferralCode, 8)
	assert.Nil(t, member.ReferrerID)
}

func TestRegisterMemberPendingWhenApprovalRequired(t *testing.T) {
	f := newFixture(t)
	f.settings.setting.RequireAdminApproval = true

	member, err := f.engine.RegisterMember(context.Background(), RegisterMemberInput{Email: "a@b.com"})
	require.NoError(t, err)
	assert.Equal(t, models.MemberStatusPendingApproval, member.Status)
}

func TestRegisterMemberWithUplineCode(t *testing.T) {
	f := newFixture(t)
	upline := f.seedMember(t, "upline@x.com", "UPLINE01", models.MemberStatusActive)

	member, err := f.engine.RegisterMember(context.Background(), RegisterMemberInput{
		Email:        "downline@x.com",
		ReferralCode: "upline01", // codes are case-insensitive on input
	})
	require.NoError(t, err)
	require.NotNil(t, member.ReferrerID)
	assert.Equal(t, upline.ID, *member.ReferrerID)
}

func TestRegisterMemberRejectsBadUplineCode(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.RegisterMember(context.Background(), RegisterMemberInput{
		Email:        "x@y.com",
		ReferralCode: "NOSUCH99",
	})
	assert.ErrorIs(t, err, ErrInvalidCode)

	// A suspended member's code is no longer a valid entry point.
	f.seedMember(t, "sus@x.com", "SUSPCODE", models.MemberStatusSuspended)
	_, err = f.engine.RegisterMember(context.Background(), RegisterMemberInput{
		Email:        "x@y.com",
		ReferralCode: "SUSPCODE",
	})
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestRegisterMemberDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.seedMember(t, "dup@x.com", "DUPCODE1", models.MemberStatusActive)

	_, err := f.engine.RegisterMember(context.Background(), RegisterMemberInput{Email: "dup@x.com"})
	assert.Error(t, err)
}

func TestApproveMember(t *testing.T) {
	f := newFixture(t)
	member := f.seedMember(t, "p@x.com", "PENDING1", models.MemberStatusPendingApproval)

	approved, err := f.engine.ApproveMember(context.Background(), member.ID, "admin@seedmart.vn")
	require.NoError(t, err)

	assert.Equal(t, models.MemberStatusActive, approved.Status)
	assert.Equal(t, "admin@seedmart.vn", approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)
	assert.Contains(t, f.notifier.approved, member.ID)

	// Approving twice is an invalid transition.
	_, err = f.engine.ApproveMember(context.Background(), member.ID, "admin@seedmart.vn")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAttachReferrer(t *testing.T) {
	f := newFixture(t)
	member := f.seedMember(t, "ctv@x.com", "CTVCODE1", models.MemberStatusActive)
	customer := f.seedCustomer(t, "buyer@x.com", nil, false)

	attached, err := f.engine.AttachReferrer(context.Background(), customer.ID, "ctvcode1")
	require.NoError(t, err)

	require.NotNil(t, attached.ReferrerID)
	assert.Equal(t, member.ID, *attached.ReferrerID)
	assert.Equal(t, "CTVCODE1", attached.ReferralCodeUsed)
	assert.NotNil(t, attached.ReferredDate)
	assert.False(t, attached.ReferralLocked, "binding stays soft until the first order")

	assert.Equal(t, 1, f.reloadMember(t, member.ID).TotalReferredCustomers)
}

func TestAttachReferrerAlreadyLocked(t *testing.T) {
	f := newFixture(t)
	member := f.seedMember(t, "ctv@x.com", "CTVCODE1", models.MemberStatusActive)
	other := f.seedMember(t, "other@x.com", "OTHRCODE", models.MemberStatusActive)
	customer := f.seedCustomer(t, "buyer@x.com", &member.ID, true)

	_, err := f.engine.AttachReferrer(context.Background(), customer.ID, other.ReferralCode)
	assert.ErrorIs(t, err, ErrAlreadyLocked)
}

func TestAttachReferrerInvalidCode(t *testing.T) {
	f := newFixture(t)
	customer := f.seedCustomer(t, "buyer@x.com", nil, false)

	_, err := f.engine.AttachReferrer(context.Background(), customer.ID, "NOSUCH99")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestAttachReferrerSelfReferral(t *testing.T) {
	f := newFixture(t)
	f.seedMember(t, "same@x.com", "SELFCODE", models.MemberStatusActive)
	customer := f.seedCustomer(t, "Same@X.com", nil, false)

	_, err := f.engine.AttachReferrer(context.Background(), customer.ID, "SELFCODE")
	assert.ErrorIs(t, err, ErrSelfReferral)
}

func TestAttachReferrerUnknownCustomer(t *testing.T) {
	f := newFixture(t)
	f.seedMember(t, "ctv@x.com", "CTVCODE1", models.MemberStatusActive)

	_, err := f.engine.AttachReferrer(context.Background(), primitive.NewObjectID(), "CTVCODE1")
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestProcessOrderDeliveredPostsCommission(t *testing.T) {
	f := newFixture(t)
	member := f.seedMember(t, "ctv@x.com", "CTVCODE1", models.MemberStatusActive)
	customer := f.seedCustomer(t, "buyer@x.com", &member.ID, false)

	event := f.deliver(t, "ORD-1001", customer.ID, 1_000_000)
	require.NotNil(t, event)

	assert.Equal(t, models.EventStatusCalculated, event.Status)
	assert.Equal(t, member.ID, event.ReferrerID)
	assert.Equal(t, int64(1_000_000), event.OrderAmount)
	assert.Equal(t, 1.0, event.CommissionRate, "zero trailing revenue lands on the base tier")
	assert.Equal(t, int64(10_000), event.CommissionAmount)
	assert.Equal(t, "Khởi Đầu", event.TierLabel)

	updated := f.reloadMember(t, member.ID)
	assert.Equal(t, int64(10_000), updated.UnpaidCommission)
	assert.Equal(t, int64(1_000_000), updated.CurrentMonthRevenue)
	assert.Equal(t, int64(1_000_000), updated.TotalReferralRevenue)

	locked := f.reloadCustomer(t, customer.ID)
	assert.True(t, locked.ReferralLocked)
	assert.Equal(t, 1, locked.TotalOrders)

	require.Len(t, f.audits.commissionLogs, 1)
	assert.Equal(t, int64(10_000), f.audits.commissionLogs[0].CommissionAmount)
	assert.False(t, f.audits.commissionLogs[0].Reversal)
}

func TestProcessOrderDeliveredIsIdempotent(t *testing.T) {
	f := newFixture(t)
	member := f.seedMember(t, "ctv@x.com", "CTVCODE1", models.MemberStatusActive)
	customer := f.seedCustomer(t, "buyer@x.com", &member.ID, false)

	first := f.deliver(t, "ORD-1001", customer.ID, 1_000_000)
	second := f.deliver(t, "ORD-1001", customer.ID, 1_000_000)

	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)

	// The replay must not touch any aggregate.
	updated := f.reloadMember(t, member.ID)
	assert.Equal(t, int64(10_000), updated.UnpaidCommission)
	assert.Equal(t, int64(1_000_000), updated.TotalReferralRevenue)
	assert.Equal(t, 1, f.reloadCustomer(t, customer.ID).TotalOrders)
}

func TestProcessOrderDeliveredNoReferrer(t *testing.T) {
	f := newFixture(t)
	customer := f.seedCustomer(t, "organic@x.com", nil, false)

	event := f.deliver(t, "ORD-2001", customer.ID, 1_000_000)
	assert.Nil(t, event)
	assert.Equal(t, 0, f.reloadCustomer(t, customer.ID).TotalOrders, "organic orders are not tracked")
}

func TestProcessOrderDeliveredIneligibleReferrerStillLocks(t *testing.T) {
	f := newFixture(t)
	member := f.seedMember(t, "sus@x.com", "SUSPCODE", models.MemberStatusSuspended)
	customer := f.seedCustomer(t, "buyer@x.com", &member.ID, false)

	event := f.deliver(t, "ORD-3001", customer.ID, 1_000_000)
	assert.Nil(t, event)

	// The lock fires on the first qualifying order regardless of whether
	// commission accrues.
	locked := f.reloadCustomer(t, customer.ID)
	assert.True(t, locked.ReferralLocked)
	assert.Equal(t, 1, locked.TotalOrders)
	assert.Equal(t, int64(0), f.reloadMember(t, member.ID).UnpaidCommission)
}

func TestProcessOrderDeliveredSelfPurchaseEarnsNothing(t *testing.T) {
	f := newFixture(t)
	member := f.seedMember(t, "same@x.com", "SELFCODE", models.MemberStatusActive)
	customer := f.seedCustomer(t, "Same@X.com", &member.ID, false)

	event := f.deliver(t, "ORD-4001", customer.ID, 1_000_000)
	assert.Nil(t, event)
	assert.Equal(t, int64(0), f.reloadMember(t, member.ID).UnpaidCommission)
}

func TestProcessOrderDeliveredUnknownCustomer(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.ProcessOrderDelivered(context.Background(), OrderDelivered{
		OrderID:     "ORD-5001",
		CustomerID:  primitive.NewObjectID(),
		OrderAmount: 1_000_000,
		DeliveredAt: time.Now(),
	})
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestProcessOrderDeliveredTierUsesPreOrderRevenue(t *testing.T) {
	f := newFixture(t)
	member := f.seedMember(t, "ctv@x.com", "CTVCODE1", models.MemberStatusActive)
	customer := f.seedCustomer(t, "buyer@x.com", &member.ID, false)

	// 9.5M trailing revenue this month: the 1M order itself must not push
	// the member into the second tier for its own commission.
	period := utils.PeriodMonth(time.Now())
	_, err := f.engine.updateMemberWithRetry(context.Background(), member.ID, func(m *models.ReferralMember) error {
		m.CurrentPeriod = period
		m.CurrentMonthRevenue = 9_500_000
		return nil
	})
	require.NoError(t, err)

	event := f.deliver(t, "ORD-6001", customer.ID, 1_000_000)
	require.NotNil(t, event)
	assert.Equal(t, 1.0, event.CommissionRate)
	assert.Equal(t, int64(10_000), event.CommissionAmount)

	// The next order sees the updated aggregate and lands on tier two.
	event = f.deliver(t, "ORD-6002", customer.ID, 1_000_000)
	require.NotNil(t, event)
	assert.Equal(t, 2.0, event.CommissionRate)
	assert.Equal(t, int64(20_000), event.CommissionAmount)
}

func TestProcessOrderDeliveredCustomRate(t *testing.T) {
	f := newFixture(t)
	member := f.seedMember(t, "ctv@x.com", "CTVCODE1", models.MemberStatusActive)
	customer := f.seedCustomer(t, "buyer@x.com", &member.ID, false)

	_, err := f.engine.SetCustomRate(context.Background(), member.ID, 5.0, "admin@seedmart.vn", "pilot program")
	require.NoError(t, err)

	event := f.deliver(t, "ORD-7001", customer.ID, 1_000_000)
	require.NotNil(t, event)
	assert.Equal(t, 5.0, event.CommissionRate)
	assert.Equal(t, int64(50_000), event.CommissionAmount)

	// Disabling the override restores tier pricing.
	_, err = f.engine.DisableCustomRate(context.Background(), member.ID, "admin@seedmart.vn")
	require.NoError(t, err)

	event = f.deliver(t, "ORD-7002", customer.ID, 1_000_000)
	require.NotNil(t, event)
	assert.Equal(t, 1.0, event.CommissionRate)
}

func TestRankUpgradeOnThirdPurchasingCustomer(t *testing.T) {
	f := newFixture(t)
	member := f.seedMember(t, "ctv@x.com", "CTVCODE1", models.MemberStatusActive)
	c1 := f.seedCustomer(t, "b1@x.com", &member.ID, false)
	c2 := f.seedCustomer(t, "b2@x.com", &member.ID, false)
	c3 := f.seedCustomer(t, "b3@x.com", &member.ID, false)

	f.deliver(t, "ORD-8001", c1.ID, 500_000)
	f.deliver(t, "ORD-8002", c2.ID, 500_000)
	assert.Equal(t, models.RankHatGiong, f.reloadMember(t, member.ID).SeederRank)

	f.deliver(t, "ORD-8003", c3.ID, 500_000)

	upgraded := f.reloadMember(t, member.ID)
	assert.Equal(t, models.RankHatGiongKhoe, upgraded.SeederRank)
	assert.Equal(t, 0.1, upgraded.SeederRankBonus)
	require.Len(t, f.notifier.rankUpgrades, 1)
	assert.Equal(t, models.RankHatGiong, f.notifier.rankUpgrades[0].oldRank)
	assert.Equal(t, models.RankHatGiongKhoe, f.notifier.rankUpgrades[0].newRank)
}

func TestRankUpgradeCascadesToUpline(t *testing.T) {
	f := newFixture(t)
	upline := f.seedMember(t, "upline@x.com", "UPLINE01", models.MemberStatusActive)

	// Six F1 members already at Hạt Giống Khỏe.
	for i := 0; i < 6; i++ {
		m := f.seedMember(t, string(rune('a'+i))+"@x.com", "F1CODE0"+string(rune('1'+i)), models.MemberStatusActive)
		_, err := f.engine.updateMemberWithRetry(context.Background(), m.ID, func(mm *models.ReferralMember) error {
			mm.ReferrerID = &upline.ID
			mm.SeederRank = models.RankHatGiongKhoe
			return nil
		})
		require.NoError(t, err)
	}

	// The seventh is one purchasing customer short of the first rank.
	member := f.seedMember(t, "last@x.com", "F1CODE07", models.MemberStatusActive)
	_, err := f.engine.updateMemberWithRetry(context.Background(), member.ID, func(mm *models.ReferralMember) error {
		mm.ReferrerID = &upline.ID
		return nil
	})
	require.NoError(t, err)

	c1 := f.seedCustomer(t, "b1@x.com", &member.ID, false)
	c2 := f.seedCustomer(t, "b2@x.com", &member.ID, false)
	c3 := f.seedCustomer(t, "b3@x.com", &member.ID, false)
	f.deliver(t, "ORD-9001", c1.ID, 500_000)
	f.deliver(t, "ORD-9002", c2.ID, 500_000)
	f.deliver(t, "ORD-9003", c3.ID, 500_000)

	// The member's upgrade gives the upline seven qualifying F1s, and the
	// evaluation jumps straight to the highest rank those satisfy.
	assert.Equal(t, models.RankHatGiongKhoe, f.reloadMember(t, member.ID).SeederRank)
	assert.Equal(t, models.RankMamKhoe, f.reloadMember(t, upline.ID).SeederRank)
	assert.Len(t, f.notifier.rankUpgrades, 2)
}

func TestProcessOrderReversed(t *testing.T) {
	f := newFixture(t)
	member := f.seedMember(t, "ctv@x.com", "CTVCODE1", models.MemberStatusActive)
	customer := f.seedCustomer(t, "buyer@x.com", &member.ID, false)

	posted := f.deliver(t, "ORD-1001", customer.ID, 1_000_000)
	require.NotNil(t, posted)

	reversed, err := f.engine.ProcessOrderReversed(context.Background(), "ORD-1001", "customer refund")
	require.NoError(t, err)

	assert.Equal(t, posted.ID, reversed.ID, "reversal flips the same event")
	assert.Equal(t, models.EventStatusReversed, reversed.Status)
	assert.Equal(t, "customer refund", reversed.ReversalReason)
	require.NotNil(t, reversed.ReversedAt)

	updated := f.reloadMember(t, member.ID)
	assert.Equal(t, int64(0), updated.UnpaidCommission)
	assert.Equal(t, int64(0), updated.CurrentMonthRevenue)
	assert.Equal(t, int64(0), updated.TotalReferralRevenue)
	assert.Equal(t, 0, f.reloadCustomer(t, customer.ID).TotalOrders)
	assert.True(t, f.reloadCustomer(t, customer.ID).ReferralLocked, "reversal never unlocks the referral")

	require.Len(t, f.audits.commissionLogs, 2)
	assert.True(t, f.audits.commissionLogs[1].Reversal)
	assert.Equal(t, int64(-10_000), f.audits.commissionLogs[1].CommissionAmount)
}

func TestOrderCanRepostAfterReversal(t *testing.T) {
	f := newFixture(t)
	member := f.seedMember(t, "ctv@x.com", "CTVCODE1", models.MemberStatusActive)
	customer := f.seedCustomer(t, "buyer@x.com", &member.ID, false)

	first := f.deliver(t, "ORD-1001", customer.ID, 1_000_000)
	_, err := f.engine.ProcessOrderReversed(context.Background(), "ORD-1001", "wrong address")
	require.NoError(t, err)

	// A redelivery of the same order posts a fresh event: the reversed one
	// fell out of the active-order constraint.
	second := f.deliver(t, "ORD-1001", customer.ID, 1_000_000)
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, models.EventStatusCalculated, second.Status)
	assert.Equal(t, int64(10_000), f.reloadMember(t, member.ID).UnpaidCommission)
}

func TestReversalOfPaidEventTracksDeficit(t *testing.T) {
	f := newFixture(t)
	member := f.seedMember(t, "ctv@x.com", "CTVCODE1", models.MemberStatusActive)
	customer := f.seedCustomer(t, "buyer@x.com", &member.ID, false)

	event := f.deliver(t, "ORD-1001", customer.ID, 50_000_000)
	require.NotNil(t, event)

	_, err := f.engine.ApproveEvent(context.Background(), event.ID, "admin@seedmart.vn")
	require.NoError(t, err)
	_, err = f.engine.MarkPaid(context.Background(), "BATCH-001", []primitive.ObjectID{event.ID}, "admin@seedmart.vn")
	require.NoError(t, err)

	paid := f.reloadMember(t, member.ID)
	require.Equal(t, int64(0), paid.UnpaidCommission)
	require.Equal(t, event.CommissionAmount, paid.TotalPaidCommission)

	_, err = f.engine.ProcessOrderReversed(context.Background(), "ORD-1001", "chargeback")
	require.NoError(t, err)

	// Unpaid stays at zero; the clawback lands on the paid total.
	after := f.reloadMember(t, member.ID)
	assert.Equal(t, int64(0), after.UnpaidCommission)
	assert.Equal(t, int64(0), after.TotalPaidCommission)
}

func TestProcessOrderReversedUnknownOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.ProcessOrderReversed(context.Background(), "ORD-NOPE", "refund")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestMarkEventFraudulent(t *testing.T) {
	f := newFixture(t)
	member := f.seedMember(t, "ctv@x.com", "CTVCODE1", models.MemberStatusActive)
	customer := f.seedCustomer(t, "buyer@x.com", &member.ID, false)

	event := f.deliver(t, "ORD-1001", customer.ID, 1_000_000)
	require.NotNil(t, event)

	excluded, err := f.engine.MarkEventFraudulent(context.Background(), event.ID, "shared-address order ring", "admin@seedmart.vn")
	require.NoError(t, err)

	assert.Equal(t, models.EventStatusFraudulent, excluded.Status)
	assert.True(t, excluded.FraudSuspect)

	// The commission and the order revenue come back out of the
	// aggregates, floored at zero.
	updated := f.reloadMember(t, member.ID)
	assert.Equal(t, int64(0), updated.UnpaidCommission)
	assert.Equal(t, int64(0), updated.CurrentMonthRevenue)
	assert.Equal(t, int64(0), updated.TotalReferralRevenue)

	require.Len(t, f.audits.commissionLogs, 2)
	assert.True(t, f.audits.commissionLogs[1].Reversal)
	assert.Equal(t, int64(-10_000), f.audits.commissionLogs[1].CommissionAmount)
	assert.Contains(t, f.audits.actionsFor(event.ID.Hex()), models.AuditActionFraudFlag)

	// The order stays claimed: a redelivery resolves to the excluded
	// event instead of posting fresh commission.
	replay := f.deliver(t, "ORD-1001", customer.ID, 1_000_000)
	require.NotNil(t, replay)
	assert.Equal(t, event.ID, replay.ID)
	assert.Equal(t, int64(0), f.reloadMember(t, member.ID).UnpaidCommission)
}

func TestMarkEventFraudulentRequiresReason(t *testing.T) {
	f := newFixture(t)
	member := f.seedMember(t, "ctv@x.com", "CTVCODE1", models.MemberStatusActive)
	customer := f.seedCustomer(t, "buyer@x.com", &member.ID, false)
	event := f.deliver(t, "ORD-1001", customer.ID, 1_000_000)

	_, err := f.engine.MarkEventFraudulent(context.Background(), event.ID, "   ", "admin@seedmart.vn")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMarkEventFraudulentOnlyFromCalculated(t *testing.T) {
	f := newFixture(t)
	member := f.seedMember(t, "ctv@x.com", "CTVCODE1", models.MemberStatusActive)
	customer := f.seedCustomer(t, "buyer@x.com", &member.ID, false)
	event := f.deliver(t, "ORD-1001", customer.ID, 1_000_000)

	_, err := f.engine.ApproveEvent(context.Background(), event.ID, "admin@seedmart.vn")
	require.NoError(t, err)

	_, err = f.engine.MarkEventFraudulent(context.Background(), event.ID, "too late", "admin@seedmart.vn")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.engine.MarkEventFraudulent(context.Background(), primitive.NewObjectID(), "no such event", "admin@seedmart.vn")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestFraudulentEventCannotBeApprovedOrReversed(t *testing.T) {
	f := newFixture(t)
	member := f.seedMember(t, "ctv@x.com", "CTVCODE1", models.MemberStatusActive)
	customer := f.seedCustomer(t, "buyer@x.com", &member.ID, false)

	event := f.deliver(t, "ORD-1001", customer.ID, 1_000_000)
	require.NotNil(t, event)

	_, err := f.engine.MarkEventFraudulent(context.Background(), event.ID, "collusive returns", "admin@seedmart.vn")
	require.NoError(t, err)

	_, err = f.engine.ApproveEvent(context.Background(), event.ID, "admin@seedmart.vn")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.engine.ProcessOrderReversed(context.Background(), "ORD-1001", "refund")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApproveEvent(t *testing.T) {
	f := newFixture(t)
	member := f.seedMember(t, "ctv@x.com", "CTVCODE1", models.MemberStatusActive)
	customer := f.seedCustomer(t, "buyer@x.com", &member.ID, false)
	event := f.deliver(t, "ORD-1001", customer.ID, 1_000_000)

	approved, err := f.engine.ApproveEvent(context.Background(), event.ID, "admin@seedmart.vn")
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusApproved, approved.Status)
	assert.Equal(t, "admin@seedmart.vn", approved.ApprovedBy)

	// Only calculated events can be approved.
	_, err = f.engine.ApproveEvent(context.Background(), event.ID, "admin@seedmart.vn")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.engine.ApproveEvent(context.Background(), primitive.NewObjectID(), "admin@seedmart.vn")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestMarkPaid(t *testing.T) {
	f := newFixture(t)
	member := f.seedMember(t, "ctv@x.com", "CTVCODE1", models.MemberStatusActive)
	customer := f.seedCustomer(t, "buyer@x.com", &member.ID, false)

	e1 := f.deliver(t, "ORD-1001", customer.ID, 10_000_000)
	e2 := f.deliver(t, "ORD-1002", customer.ID, 10_000_000)
	for _, ev := range []*models.ReferralEvent{e1, e2} {
		_, err := f.engine.ApproveEvent(context.Background(), ev.ID, "admin@seedmart.vn")
		require.NoError(t, err)
	}

	batch, err := f.engine.MarkPaid(context.Background(), "BATCH-001", []primitive.ObjectID{e1.ID, e2.ID}, "admin@seedmart.vn")
	require.NoError(t, err)

	assert.Equal(t, member.ID, batch.ReferrerID)
	assert.Equal(t, e1.CommissionAmount+e2.CommissionAmount, batch.TotalAmount)
	assert.Equal(t, "admin@seedmart.vn", batch.ProcessedBy)

	for _, id := range []primitive.ObjectID{e1.ID, e2.ID} {
		ev, err := f.events.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.EventStatusPaid, ev.Status)
		assert.Equal(t, "BATCH-001", ev.PaidBatchID)
	}

	updated := f.reloadMember(t, member.ID)
	assert.Equal(t, int64(0), updated.UnpaidCommission)
	assert.Equal(t, batch.TotalAmount, updated.TotalPaidCommission)
	assert.Contains(t, f.notifier.payouts, "BATCH-001")
}

func TestMarkPaidBelowThreshold(t *testing.T) {
	f := newFixture(t)
	member := f.seedMember(t, "ctv@x.com", "CTVCODE1", models.MemberStatusActive)
	customer := f.seedCustomer(t, "buyer@x.com", &member.ID, false)

	// 1M at 1% is 10,000 VND, under the 100,000 minimum.
	event := f.deliver(t, "ORD-1001", customer.ID, 1_000_000)
	_, err := f.engine.ApproveEvent(context.Background(), event.ID, "admin@seedmart.vn")
	require.NoError(t, err)

	_, err = f.engine.MarkPaid(context.Background(), "BATCH-001", []primitive.ObjectID{event.ID}, "admin@seedmart.vn")
	assert.ErrorIs(t, err, ErrBelowPayoutThreshold)
}

func TestMarkPaidRejectsUnapprovedEvents(t *testing.T) {
	f := newFixture(t)
	member := f.seedMember(t, "ctv@x.com", "CTVCODE1", models.MemberStatusActive)
	customer := f.seedCustomer(t, "buyer@x.com", &member.ID, false)

	event := f.deliver(t, "ORD-1001", customer.ID, 50_000_000)
	_, err := f.engine.MarkPaid(context.Background(), "BATCH-001", []primitive.ObjectID{event.ID}, "admin@seedmart.vn")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMarkPaidRejectsMixedMembers(t *testing.T) {
	f := newFixture(t)
	m1 := f.seedMember(t, "a@x.com", "CODEAAA1", models.MemberStatusActive)
	m2 := f.seedMember(t, "b@x.com", "CODEBBB1", models.MemberStatusActive)
	c1 := f.seedCustomer(t, "b1@x.com", &m1.ID, false)
	c2 := f.seedCustomer(t, "b2@x.com", &m2.ID, false)

	e1 := f.deliver(t, "ORD-1001", c1.ID, 50_000_000)
	e2 := f.deliver(t, "ORD-1002", c2.ID, 50_000_000)
	for _, ev := range []*models.ReferralEvent{e1, e2} {
		_, err := f.engine.ApproveEvent(context.Background(), ev.ID, "admin@seedmart.vn")
		require.NoError(t, err)
	}

	_, err := f.engine.MarkPaid(context.Background(), "BATCH-001", []primitive.ObjectID{e1.ID, e2.ID}, "admin@seedmart.vn")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMarkPaidMissingEvent(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.MarkPaid(context.Background(), "BATCH-001", []primitive.ObjectID{primitive.NewObjectID()}, "admin@seedmart.vn")
	assert.ErrorIs(t, err, ErrEventNotFound)

	_, err = f.engine.MarkPaid(context.Background(), "BATCH-001", nil, "admin@seedmart.vn")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestReassignCustomer(t *testing.T) {
	f := newFixture(t)
	oldRef := f.seedMember(t, "old@x.com", "OLDCODE1", models.MemberStatusActive)
	newRef := f.seedMember(t, "new@x.com", "NEWCODE1", models.MemberStatusActive)
	customer := f.seedCustomer(t, "buyer@x.com", &oldRef.ID, true)

	reassigned, err := f.engine.ReassignCustomer(context.Background(), customer.ID, newRef.ID, "dispute resolved in favor of new referrer", "admin@seedmart.vn")
	require.NoError(t, err)

	require.NotNil(t, reassigned.ReferrerID)
	assert.Equal(t, newRef.ID, *reassigned.ReferrerID)
	assert.Equal(t, "NEWCODE1", reassigned.ReferralCodeUsed)
	assert.True(t, reassigned.ReferralLocked, "reassignment re-locks the customer")
	assert.Contains(t, f.audits.actionsFor(customer.ID.Hex()), models.AuditActionReassign)
}

func TestReassignCustomerRequiresReason(t *testing.T) {
	f := newFixture(t)
	newRef := f.seedMember(t, "new@x.com", "NEWCODE1", models.MemberStatusActive)
	customer := f.seedCustomer(t, "buyer@x.com", nil, false)

	_, err := f.engine.ReassignCustomer(context.Background(), customer.ID, newRef.ID, "   ", "admin@seedmart.vn")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSetCustomRateOutOfRange(t *testing.T) {
	f := newFixture(t)
	member := f.seedMember(t, "ctv@x.com", "CTVCODE1", models.MemberStatusActive)

	_, err := f.engine.SetCustomRate(context.Background(), member.ID, 101, "admin@seedmart.vn", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.engine.SetCustomRate(context.Background(), member.ID, -1, "admin@seedmart.vn", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRunFraudCheckFlagsSuspect(t *testing.T) {
	f := newFixture(t)
	member := f.seedMember(t, "ctv@x.com", "CTVCODE1", models.MemberStatusActive)

	// Three F1 customers sharing one phone number (30 points) plus a 40%
	// return rate over ten orders (25 points) crosses the threshold of 50.
	for i := 0; i < 3; i++ {
		c := f.seedCustomer(t, string(rune('p'+i))+"@x.com", &member.ID, true)
		c.Phone = "0909000111"
		require.NoError(t, f.customers.Update(context.Background(), c))
	}
	buyer := f.seedCustomer(t, "buyer@x.com", &member.ID, true)
	period := utils.PeriodMonth(time.Now())
	for i := 0; i < 10; i++ {
		status := models.EventStatusCalculated
		if i < 4 {
			status = models.EventStatusReversed
		}
		require.NoError(t, f.events.Create(context.Background(), &models.ReferralEvent{
			ReferrerID:  member.ID,
			CustomerID:  buyer.ID,
			OrderID:     "ORD-F" + string(rune('0'+i)),
			OrderAmount: 100_000,
			Status:      status,
			PeriodMonth: period,
		}))
	}

	result, err := f.engine.RunFraudCheck(context.Background(), member.ID)
	require.NoError(t, err)

	assert.Equal(t, 55, result.Score)
	assert.ElementsMatch(t, []string{FlagDuplicateContacts, FlagHighReturnRate}, result.Flags)

	updated := f.reloadMember(t, member.ID)
	assert.True(t, updated.FraudSuspect)
	assert.Equal(t, 55, updated.FraudScore)
	// Advisory only: the member keeps earning.
	assert.Equal(t, models.MemberStatusActive, updated.Status)
	assert.True(t, updated.IsEligibleForCommission())
}

func TestRunFraudCheckCleanMember(t *testing.T) {
	f := newFixture(t)
	member := f.seedMember(t, "ctv@x.com", "CTVCODE1", models.MemberStatusActive)

	result, err := f.engine.RunFraudCheck(context.Background(), member.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Score)
	assert.False(t, f.reloadMember(t, member.ID).FraudSuspect)
}

func TestDeliveredEventFlaggedWhenScoreCrossesThreshold(t *testing.T) {
	f := newFixture(t)
	f.settings.setting.FraudThresholdScore = 30
	member := f.seedMember(t, "ctv@x.com", "CTVCODE1", models.MemberStatusActive)

	// Three locked F1s on one shared address puts the member at the
	// lowered threshold before the order even posts.
	for i := 0; i < 3; i++ {
		c := f.seedCustomer(t, string(rune('p'+i))+"@x.com", &member.ID, true)
		c.Address = "12 Hang Bai, Hoan Kiem, Ha Noi"
		require.NoError(t, f.customers.Update(context.Background(), c))
	}
	buyer := f.seedCustomer(t, "buyer@x.com", &member.ID, false)

	event := f.deliver(t, "ORD-1001", buyer.ID, 1_000_000)
	require.NotNil(t, event)

	flagged, err := f.events.GetByID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.True(t, flagged.FraudSuspect)
	assert.True(t, f.reloadMember(t, member.ID).FraudSuspect)
	// The commission itself still posted.
	assert.Equal(t, int64(10_000), f.reloadMember(t, member.ID).UnpaidCommission)
}

// racingEventRepo misses the idempotency pre-read a configured number of
// times, forcing the engine down the insert path against an order that
// already has an active event.
type racingEventRepo struct {
	*fakeEventRepo
	misses int
}

func (r *racingEventRepo) GetActiveByOrderID(ctx context.Context, orderID string) (*models.ReferralEvent, error) {
	if r.misses > 0 {
		r.misses--
		return nil, interfaces.ErrNotFound
	}
	return r.fakeEventRepo.GetActiveByOrderID(ctx, orderID)
}

func TestConcurrentDeliveryLosesInsertRace(t *testing.T) {
	f := newFixture(t)
	log, err := logger.NewLogger(&logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)

	racing := &racingEventRepo{fakeEventRepo: f.events}
	engine := NewEngine(f.members, f.customers, racing, f.audits, f.payouts, f.settings, f.notifier, log)

	member := f.seedMember(t, "ctv@x.com", "CTVCODE1", models.MemberStatusActive)
	customer := f.seedCustomer(t, "buyer@x.com", &member.ID, false)

	posted, err := engine.ProcessOrderDelivered(context.Background(), OrderDelivered{
		OrderID:     "ORD-1001",
		CustomerID:  customer.ID,
		OrderAmount: 1_000_000,
		DeliveredAt: time.Now(),
	})
	require.NoError(t, err)
	require.NotNil(t, posted)

	// The replay does not see the existing event on the pre-read, hits
	// the unique constraint on insert, and resolves to the winner.
	racing.misses = 1
	dup, err := engine.ProcessOrderDelivered(context.Background(), OrderDelivered{
		OrderID:     "ORD-1001",
		CustomerID:  customer.ID,
		OrderAmount: 1_000_000,
		DeliveredAt: time.Now(),
	})
	require.NoError(t, err)
	require.NotNil(t, dup)
	assert.Equal(t, posted.ID, dup.ID)

	// One event, one commission, one counted order. The loser of the
	// insert race must not touch the customer again.
	assert.Equal(t, int64(10_000), f.reloadMember(t, member.ID).UnpaidCommission)
	assert.Equal(t, int64(1_000_000), f.reloadMember(t, member.ID).TotalReferralRevenue)
	assert.Equal(t, 1, f.reloadCustomer(t, customer.ID).TotalOrders)
}
