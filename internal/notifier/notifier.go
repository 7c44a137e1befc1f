package notifier

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/XronosSchedulingLtd/scheduler-sub003/config"
	"github.com/XronosSchedulingLtd/scheduler-sub003/internal/dto"
	"github.com/XronosSchedulingLtd/scheduler-sub003/internal/model"
)

// Batch 一名教职员的一批冲突通知
// EmailEnabled=false 时只写站内通知行，不走邮件投递
type Batch struct {
	Recipient    *model.Resource
	Type         string // model.NotifyClashDetected | model.NotifyClashSummary
	EmailEnabled bool
	Entries      []dto.ClashEntry
}

// Sink 通知投递接口
// 投递的传输与模板细节由实现决定；对账驱动器只负责组批
type Sink interface {
	Deliver(ctx context.Context, batch *Batch) error
}

// NewSink 按配置选择投递后端
func NewSink(cfg *config.MailConfig, logger *zap.Logger) (Sink, error) {
	switch cfg.Backend {
	case "console":
		return &consoleSink{logger: logger}, nil
	case "sendgrid":
		return newSendgridSink(cfg, logger), nil
	default:
		return nil, fmt.Errorf("未知的通知后端: %q", cfg.Backend)
	}
}

// ── 批次文本渲染（各后端共用） ──

// Subject 生成批次主题
func Subject(batch *Batch) string {
	if batch.Type == model.NotifyClashSummary {
		return fmt.Sprintf("日程冲突汇总（%d 条）", len(batch.Entries))
	}
	return fmt.Sprintf("检测到日程冲突（%d 条）", len(batch.Entries))
}

// Body 生成批次正文纯文本
func Body(batch *Batch) string {
	var b strings.Builder
	for _, e := range batch.Entries {
		fmt.Fprintf(&b, "%s（%s - %s）\n%s\n\n",
			e.EventBody,
			e.StartsAt.Format("2006-01-02 15:04"),
			e.EndsAt.Format("15:04"),
			e.NoteBody,
		)
	}
	return b.String()
}

// ── Console 后端（开发环境：打印到日志即视为投递成功） ──

type consoleSink struct {
	logger *zap.Logger
}

func (s *consoleSink) Deliver(_ context.Context, batch *Batch) error {
	s.logger.Info("投递冲突通知",
		zap.String("recipient", batch.Recipient.Name),
		zap.String("type", batch.Type),
		zap.Int("entries", len(batch.Entries)),
		zap.String("subject", Subject(batch)),
	)
	s.logger.Debug("通知正文", zap.String("body", Body(batch)))
	return nil
}
