package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/XronosSchedulingLtd/scheduler-sub003/internal/dto"
	"github.com/XronosSchedulingLtd/scheduler-sub003/internal/model"
	"github.com/XronosSchedulingLtd/scheduler-sub003/internal/notifier"
	"github.com/XronosSchedulingLtd/scheduler-sub003/internal/repository"
	pkgerrors "github.com/XronosSchedulingLtd/scheduler-sub003/pkg/errors"
)

// ── 冲突检测模块业务错误 ──

var (
	ErrScanInvalidRange = errors.New("扫描开始日期晚于结束日期")
)

// ClashService 冲突对账业务接口
type ClashService interface {
	// Scan 全量扫描：逐日检测冲突并对账笔记、has_clashes 与通知状态
	Scan(ctx context.Context, opts *dto.ScanOptions) (*dto.ScanResult, error)
	// Summarise 汇总模式：不重扫，按现存冲突笔记向订阅者投递汇总
	Summarise(ctx context.Context, opts *dto.ScanOptions, weeklyOnly bool) (*dto.SummaryResult, error)
}

type clashService struct {
	repo         *repository.Repository
	overlap      OverlapService
	matcher      *RuleMatcher
	sink         notifier.Sink
	checkedKinds map[model.ResourceKind]bool
	logger       *zap.Logger
}

// NewClashService 创建 ClashService 实例
// checkedKinds 指定参与冲突检测的资源类型（来自配置）
func NewClashService(
	repo *repository.Repository,
	overlap OverlapService,
	matcher *RuleMatcher,
	sink notifier.Sink,
	checkedKinds []string,
	logger *zap.Logger,
) ClashService {
	kinds := make(map[model.ResourceKind]bool, len(checkedKinds))
	for _, k := range checkedKinds {
		kinds[model.ResourceKind(k)] = true
	}
	return &clashService{
		repo:         repo,
		overlap:      overlap,
		matcher:      matcher,
		sink:         sink,
		checkedKinds: kinds,
		logger:       logger,
	}
}

// ════════════════════════════════════════════════════════════
// Scan — 逐日冲突对账
// ════════════════════════════════════════════════════════════
//
// 每个处理日：
//   1. 新建当日成员展开缓存（跨天复用是正确性缺陷）
//   2. 修复停办事件残留的笔记与 has_clashes 漂移
//   3. 取当日参与冲突检测的事件，逐事件对账
//   4. 单事件失败只记日志并跳过，不中断整日/整次运行
// 收尾：把累积的通知批次投递给开启即时通知的直接任课教职员。
// 整个流程幂等：数据未变时第二次运行不产生任何写入与通知。

func (s *clashService) Scan(ctx context.Context, opts *dto.ScanOptions) (*dto.ScanResult, error) {
	startDay := truncateDay(opts.StartDate)
	endDay := truncateDay(opts.EndDate)
	if endDay.Before(startDay) {
		return nil, ErrScanInvalidRange
	}

	// 0. 前置校验：必须存在启用冲突检测的类别，否则属于致命配置错误
	categories, err := s.repo.EventCategory.ListClashCheck(ctx)
	if err != nil {
		s.logger.Error("查询冲突检测类别失败", zap.Error(err))
		return nil, err
	}
	if len(categories) == 0 {
		return nil, pkgerrors.ErrNoClashCheckCategories
	}

	// 本次运行的关联 ID，贯穿整个扫描周期的日志
	runID := uuid.NewString()
	s.logger.Info("开始冲突扫描",
		zap.String("run_id", runID),
		zap.Time("start", startDay),
		zap.Time("end", endDay),
	)

	result := &dto.ScanResult{}
	pending := make(map[string]*notifier.Batch)

	for day := startDay; !day.After(endDay); day = day.AddDate(0, 0, 1) {
		if err := s.processDay(ctx, day, pending, result); err != nil {
			return nil, err
		}
		result.DaysProcessed++
	}

	// 收尾：投递累积的通知批次
	delivered, err := s.flush(ctx, pending)
	if err != nil {
		return nil, err
	}
	result.BatchesDelivered = delivered

	s.logger.Info("冲突扫描完成",
		zap.String("run_id", runID),
		zap.Int("days", result.DaysProcessed),
		zap.Int("events", result.EventsScanned),
		zap.Int("with_clashes", result.EventsWithClashes),
		zap.Int("notes_created", result.NotesCreated),
		zap.Int("notes_updated", result.NotesUpdated),
		zap.Int("notes_deleted", result.NotesDeleted),
		zap.Int("failed", result.EventsFailed),
	)
	return result, nil
}

// processDay 处理单个日期
func (s *clashService) processDay(ctx context.Context, day time.Time, pending map[string]*notifier.Batch, result *dto.ScanResult) error {
	dayStart := day
	dayEnd := day.AddDate(0, 0, 1)

	// 1. 当日新建成员展开缓存
	cache := NewMembershipCache(s.repo.Group, s.repo.Resource, day, s.logger)

	// 2. 漂移修复：停办事件不应再挂有冲突笔记
	suspended, err := s.repo.Event.ListSuspendedWithNotes(ctx, dayStart, dayEnd)
	if err != nil {
		s.logger.Error("查询停办事件失败", zap.Error(err))
		return err
	}
	for i := range suspended {
		ev := &suspended[i]
		if err := s.repairSuspended(ctx, ev, result); err != nil {
			s.logger.Error("修复停办事件状态失败，跳过",
				zap.String("event_id", ev.EventID), zap.Error(err))
			result.EventsFailed++
		}
	}

	// 3. 当日事件逐个对账
	events, err := s.repo.Event.EventsOn(ctx, dayStart, dayEnd)
	if err != nil {
		s.logger.Error("查询当日事件失败", zap.Time("day", day), zap.Error(err))
		return err
	}
	for i := range events {
		ev := &events[i]
		result.EventsScanned++
		if err := s.reconcileEvent(ctx, ev, cache, pending, result); err != nil {
			// 单事件失败不得中断整日处理
			s.logger.Error("事件冲突对账失败，跳过",
				zap.String("event_id", ev.EventID),
				zap.String("body", ev.Body),
				zap.Error(err))
			result.EventsFailed++
		}
	}

	return nil
}

// repairSuspended 删除停办事件残留的笔记并清除 has_clashes
func (s *clashService) repairSuspended(ctx context.Context, event *model.Event, result *dto.ScanResult) error {
	notes, err := s.repo.ClashNote.ListByEvent(ctx, event.EventID)
	if err != nil {
		return err
	}
	if err := s.repo.ClashNote.DeleteByEvent(ctx, event.EventID); err != nil {
		return err
	}
	result.NotesDeleted += len(notes)
	if event.HasClashes {
		if err := s.repo.Event.UpdateHasClashes(ctx, event.EventID, false); err != nil {
			return err
		}
	}
	result.EventsRepaired++
	s.logger.Info("已修复停办事件的冲突标注漂移", zap.String("event_id", event.EventID))
	return nil
}

// reconcileEvent 对单个事件完成冲突检测与笔记对账
func (s *clashService) reconcileEvent(ctx context.Context, event *model.Event, cache *MembershipCache, pending map[string]*notifier.Batch, result *dto.ScanResult) error {
	// 1. 收集重叠事件（按事件去重；同一承诺可经直接与群组两条路径命中）
	others := make(map[string]*model.Event)

	for i := range event.Commitments {
		c := &event.Commitments[i]
		if c.Rejected {
			continue
		}
		if len(c.CoveredBy) > 0 {
			// 已被覆盖的承诺不独立参与冲突报告；覆盖关系只认一层
			if c.IsCover() {
				s.logger.Warn("检测到多级覆盖链，仅按一层处理",
					zap.String("event_id", event.EventID),
					zap.String("commitment_id", c.CommitmentID))
			}
			continue
		}

		atoms, err := cache.AtomicResources(ctx, c.ElementType(), c.ElementID())
		if err != nil {
			return err
		}
		for resourceID, kind := range atoms {
			if !s.checkedKinds[kind] {
				continue
			}
			found, err := s.overlap.CommitmentsDuring(
				ctx, resourceID, event.StartsAt, event.EndsAt, true, true, cache)
			if err != nil {
				return err
			}
			for j := range found {
				o := &found[j]
				if o.EventID == event.EventID {
					// 事件不与自身冲突
					continue
				}
				if o.Rejected || len(o.CoveredBy) > 0 {
					continue
				}
				if o.Event == nil {
					continue
				}
				others[o.EventID] = o.Event
			}
		}
	}

	// 2. 允许重叠规则抑制
	var clashing []*model.Event
	for _, ev := range others {
		if s.matcher.Suppressed(event.Body, ev.Body) {
			continue
		}
		clashing = append(clashing, ev)
	}

	// 3. 笔记对账
	notes, err := s.repo.ClashNote.ListByEvent(ctx, event.EventID)
	if err != nil {
		return err
	}

	if len(clashing) == 0 {
		// 无真实冲突：清理笔记与标记
		if len(notes) > 0 {
			if err := s.repo.ClashNote.DeleteByEvent(ctx, event.EventID); err != nil {
				return err
			}
			result.NotesDeleted += len(notes)
		}
		if event.HasClashes {
			if err := s.repo.Event.UpdateHasClashes(ctx, event.EventID, false); err != nil {
				return err
			}
			event.HasClashes = false
		}
		return nil
	}

	body := renderClashNote(clashing)
	changed := false

	switch len(notes) {
	case 0:
		note := &model.ClashNote{EventID: event.EventID, Body: body}
		if err := s.repo.ClashNote.Create(ctx, note); err != nil {
			return err
		}
		result.NotesCreated++
		changed = true
	case 1:
		// 内容未变不写库也不通知，保证幂等
		if notes[0].Body != body {
			notes[0].Body = body
			if err := s.repo.ClashNote.Update(ctx, &notes[0]); err != nil {
				return err
			}
			result.NotesUpdated++
			changed = true
		}
	default:
		// 不一致状态（多条笔记）：全删后重建恰好一条
		s.logger.Warn("事件存在多条冲突笔记，自动修复",
			zap.String("event_id", event.EventID), zap.Int("count", len(notes)))
		if err := s.repo.ClashNote.DeleteByEvent(ctx, event.EventID); err != nil {
			return err
		}
		result.NotesDeleted += len(notes)
		note := &model.ClashNote{EventID: event.EventID, Body: body}
		if err := s.repo.ClashNote.Create(ctx, note); err != nil {
			return err
		}
		result.NotesCreated++
		changed = true
	}

	if !event.HasClashes {
		if err := s.repo.Event.UpdateHasClashes(ctx, event.EventID, true); err != nil {
			return err
		}
		event.HasClashes = true
	}
	result.EventsWithClashes++

	// 4. 笔记新建或内容变化时，为直接任课的教职员累积通知
	if changed {
		if err := s.accumulate(ctx, event, body, model.NotifyClashDetected, pending); err != nil {
			return err
		}
	}
	return nil
}

// accumulate 为事件的直接教职员承诺累积通知条目
// 仅限直接承诺（经群组继承到的教职员不通知），且收件人须开启对应偏好
func (s *clashService) accumulate(ctx context.Context, event *model.Event, noteBody, notifyType string, pending map[string]*notifier.Batch) error {
	for i := range event.Commitments {
		c := &event.Commitments[i]
		if c.Rejected || c.ResourceID == nil || c.Resource == nil {
			continue
		}
		if c.Resource.Kind != model.KindStaff {
			continue
		}

		pref, err := s.repo.NotificationPreference.GetByResource(ctx, *c.ResourceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// 无偏好记录视为未订阅
				continue
			}
			return err
		}
		if notifyType == model.NotifyClashDetected && !pref.ClashImmediate {
			continue
		}
		if notifyType == model.NotifyClashSummary && !pref.ClashSummary {
			continue
		}

		batch, ok := pending[*c.ResourceID]
		if !ok {
			batch = &notifier.Batch{
				Recipient:    c.Resource,
				Type:         notifyType,
				EmailEnabled: pref.EmailEnabled,
			}
			pending[*c.ResourceID] = batch
		}
		batch.Entries = append(batch.Entries, dto.ClashEntry{
			EventID:   event.EventID,
			EventBody: event.Body,
			StartsAt:  event.StartsAt,
			EndsAt:    event.EndsAt,
			NoteBody:  noteBody,
		})
	}
	return nil
}

// flush 投递累积的通知批次并落库通知行
// 单个批次投递失败只记日志，不影响其余批次
func (s *clashService) flush(ctx context.Context, pending map[string]*notifier.Batch) (int, error) {
	ids := make([]string, 0, len(pending))
	for id := range pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	delivered := 0
	for _, id := range ids {
		batch := pending[id]
		sort.Slice(batch.Entries, func(i, j int) bool {
			if !batch.Entries[i].StartsAt.Equal(batch.Entries[j].StartsAt) {
				return batch.Entries[i].StartsAt.Before(batch.Entries[j].StartsAt)
			}
			return batch.Entries[i].EventBody < batch.Entries[j].EventBody
		})

		// 关闭邮件通知的收件人只落库站内通知，不走投递后端
		if batch.EmailEnabled {
			if err := s.sink.Deliver(ctx, batch); err != nil {
				s.logger.Error("通知批次投递失败",
					zap.String("resource_id", id), zap.Error(err))
				continue
			}
		} else {
			s.logger.Debug("收件人已关闭邮件通知，仅写入站内通知",
				zap.String("resource_id", id))
		}

		rows := make([]model.Notification, 0, len(batch.Entries))
		for _, e := range batch.Entries {
			eventID := e.EventID
			rows = append(rows, model.Notification{
				ResourceID: id,
				Type:       batch.Type,
				Title:      fmt.Sprintf("日程冲突: %s", e.EventBody),
				Content:    e.NoteBody,
				RelatedID:  &eventID,
			})
		}
		if err := s.repo.Notification.BatchCreate(ctx, rows); err != nil {
			s.logger.Error("通知落库失败", zap.String("resource_id", id), zap.Error(err))
			continue
		}
		delivered++
	}
	return delivered, nil
}

// ════════════════════════════════════════════════════════════
// Summarise — 按现存笔记投递冲突汇总
// ════════════════════════════════════════════════════════════

func (s *clashService) Summarise(ctx context.Context, opts *dto.ScanOptions, weeklyOnly bool) (*dto.SummaryResult, error) {
	startDay := truncateDay(opts.StartDate)
	endDay := truncateDay(opts.EndDate)
	if endDay.Before(startDay) {
		return nil, ErrScanInvalidRange
	}
	if weeklyOnly && startDay.Weekday() != time.Monday {
		s.logger.Info("周汇总模式：起始日非周一，本次不投递")
		return &dto.SummaryResult{}, nil
	}

	notes, err := s.repo.ClashNote.ListBetween(ctx, startDay, endDay.AddDate(0, 0, 1))
	if err != nil {
		s.logger.Error("查询冲突笔记失败", zap.Error(err))
		return nil, err
	}

	result := &dto.SummaryResult{}
	pending := make(map[string]*notifier.Batch)

	for i := range notes {
		note := &notes[i]
		if note.Event == nil || note.Event.NonExistent {
			continue
		}
		result.EventsWithClashes++

		// 汇总需要事件的直接承诺（ListBetween 未预载）
		commitments, err := s.repo.Commitment.ListByEvent(ctx, note.EventID)
		if err != nil {
			s.logger.Error("查询事件承诺失败，跳过",
				zap.String("event_id", note.EventID), zap.Error(err))
			continue
		}
		event := *note.Event
		event.Commitments = commitments
		if err := s.accumulate(ctx, &event, note.Body, model.NotifyClashSummary, pending); err != nil {
			s.logger.Error("累积汇总通知失败，跳过",
				zap.String("event_id", note.EventID), zap.Error(err))
			continue
		}
	}

	delivered, err := s.flush(ctx, pending)
	if err != nil {
		return nil, err
	}
	result.BatchesDelivered = delivered

	s.logger.Info("冲突汇总投递完成",
		zap.Int("events", result.EventsWithClashes),
		zap.Int("batches", result.BatchesDelivered))
	return result, nil
}

// ── 内部辅助方法 ──

// renderClashNote 渲染冲突笔记正文
// 行按字典序排序，保证内容确定性（幂等比较依赖于此）
func renderClashNote(clashing []*model.Event) string {
	lines := make([]string, 0, len(clashing))
	for _, ev := range clashing {
		lines = append(lines, fmt.Sprintf("- %s（%s - %s）",
			ev.Body,
			ev.StartsAt.Format("2006-01-02 15:04"),
			ev.EndsAt.Format("15:04")))
	}
	sort.Strings(lines)
	return "与以下事件冲突：\n" + strings.Join(lines, "\n")
}

// truncateDay 归一化到当日零点
func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
