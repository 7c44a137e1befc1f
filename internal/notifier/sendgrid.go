package notifier

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/XronosSchedulingLtd/scheduler-sub003/config"
)

// sendgridSink SendGrid 邮件投递后端
type sendgridSink struct {
	key    string
	from   *sgmail.Email
	logger *zap.Logger
}

func newSendgridSink(cfg *config.MailConfig, logger *zap.Logger) *sendgridSink {
	return &sendgridSink{
		key:    cfg.SendGridKey,
		from:   sgmail.NewEmail(cfg.FromName, cfg.FromAddr),
		logger: logger,
	}
}

func (s *sendgridSink) Deliver(ctx context.Context, batch *Batch) error {
	if batch.Recipient.Email == nil || *batch.Recipient.Email == "" {
		// 收件人无邮箱：记日志跳过，不算投递失败
		s.logger.Warn("收件人缺少邮箱，跳过投递", zap.String("recipient", batch.Recipient.Name))
		return nil
	}

	to := sgmail.NewEmail(batch.Recipient.Name, *batch.Recipient.Email)
	message := sgmail.NewSingleEmail(s.from, Subject(batch), to, Body(batch), "")

	client := sendgrid.NewSendClient(s.key)
	resp, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("SendGrid 投递失败: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("SendGrid 投递失败: HTTP %d: %s", resp.StatusCode, resp.Body)
	}

	s.logger.Info("冲突通知已投递",
		zap.String("recipient", batch.Recipient.Name),
		zap.Int("entries", len(batch.Entries)),
	)
	return nil
}
