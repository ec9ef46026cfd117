package services

import (
	"context"
	"fmt"

	"seedmart/internal/models"
	"seedmart/internal/utils"
	"seedmart/pkg/logger"
	"seedmart/pkg/notify"
)

// NotificationService implements referral.Notifier. Every emission runs on
// its own goroutine with a bounded timeout: a slow or failing channel can
// only ever cost a log line, never a rollback of the financial state
// change that triggered it.
type NotificationService struct {
	providers []notify.Provider
	logger    *logger.Logger
}

func NewNotificationService(providers []notify.Provider, log *logger.Logger) *NotificationService {
	return &NotificationService{
		providers: providers,
		logger:    log,
	}
}

func (s *NotificationService) MemberApproved(member *models.ReferralMember) {
	s.dispatch(&notify.Message{
		Type:      notify.TypeMemberApproved,
		Recipient: member.UserEmail,
		Phone:     member.Phone,
		Subject:   "Chào mừng cộng tác viên Seedmart",
		Body:      fmt.Sprintf("Tài khoản CTV của bạn đã được duyệt. Mã giới thiệu: %s", member.ReferralCode),
		Metadata: map[string]string{
			"member_id":     member.ID.Hex(),
			"referral_code": member.ReferralCode,
		},
	})
}

func (s *NotificationService) RankUpgraded(member *models.ReferralMember, oldRank, newRank models.SeederRank) {
	s.dispatch(&notify.Message{
		Type:      notify.TypeRankUpgraded,
		Recipient: member.UserEmail,
		Phone:     member.Phone,
		Subject:   "Chúc mừng thăng hạng",
		Body:      fmt.Sprintf("Bạn vừa thăng hạng từ %s lên %s!", oldRank.Label(), newRank.Label()),
		Metadata: map[string]string{
			"member_id": member.ID.Hex(),
			"old_rank":  string(oldRank),
			"new_rank":  string(newRank),
		},
	})
}

func (s *NotificationService) PayoutProcessed(member *models.ReferralMember, batchID string, amount int64) {
	s.dispatch(&notify.Message{
		Type:      notify.TypePayoutProcessed,
		Recipient: member.UserEmail,
		Phone:     member.Phone,
		Subject:   "Hoa hồng đã được thanh toán",
		Body:      fmt.Sprintf("Đợt thanh toán %s: %s đã được chuyển cho bạn.", batchID, utils.FormatVND(amount)),
		Metadata: map[string]string{
			"member_id": member.ID.Hex(),
			"batch_id":  batchID,
		},
	})
}

func (s *NotificationService) dispatch(message *notify.Message) {
	for _, provider := range s.providers {
		go func(p notify.Provider) {
			ctx, cancel := context.WithTimeout(context.Background(), utils.NotificationTimeout)
			defer cancel()

			if err := p.Publish(ctx, message); err != nil {
				s.logger.WithError(err).WithFields(map[string]interface{}{
					"provider":  p.Name(),
					"type":      message.Type,
					"recipient": message.Recipient,
				}).Warn("notification delivery failed")
			}
		}(provider)
	}
}
