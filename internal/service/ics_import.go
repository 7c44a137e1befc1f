package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/XronosSchedulingLtd/scheduler-sub003/config"
	"github.com/XronosSchedulingLtd/scheduler-sub003/internal/dto"
	"github.com/XronosSchedulingLtd/scheduler-sub003/internal/model"
	"github.com/XronosSchedulingLtd/scheduler-sub003/internal/repository"
)

// ── ICS 日历源导入 ──────────────────────────────────────────
//
// 职责：把外部校务系统发布的 iCalendar (RFC 5545) 源导入为事件与承诺，
// 供冲突扫描统一处理。
//
// 设计决策：
//   - 每个 VEVENT 按 (source='ics', UID) 去重，重复导入跳过而非更新
//   - 事件挂接到源配置指定的资源上（直接承诺）
//   - 无 DTEND 的事件按 1 小时兜底；零长度区间跳过
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize  = 5 * 1024 * 1024 // 5MB
	icsFetchTimeout = 30 * time.Second
)

// ── 导入模块业务错误 ──

var (
	ErrImportResourceNotFound = errors.New("日历源指定的资源不存在")
	ErrImportCategoryNotFound = errors.New("日历源指定的事件类别不存在")
)

// ImportService 日历源导入接口
type ImportService interface {
	// ImportFeed 拉取并导入单个 ICS 日历源
	ImportFeed(ctx context.Context, feed config.FeedConfig) (*dto.ImportResult, error)
}

type importService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewImportService 创建 ImportService 实例
func NewImportService(repo *repository.Repository, logger *zap.Logger) ImportService {
	return &importService{repo: repo, logger: logger}
}

// FetchICSContent 从 URL 获取 ICS 内容
func FetchICSContent(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	// webcal:// → https://
	u := rawURL
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("构造 ICS 请求失败: %w", err)
	}
	client := &http.Client{Timeout: icsFetchTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("获取 ICS 失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("获取 ICS 失败: HTTP %d", resp.StatusCode)
	}
	// 限制响应体大小，防止恶意 URL 返回超大内容导致 OOM
	return struct {
		io.Reader
		io.Closer
	}{
		Reader: io.LimitReader(resp.Body, icsMaxFileSize),
		Closer: resp.Body,
	}, nil
}

func (s *importService) ImportFeed(ctx context.Context, feed config.FeedConfig) (*dto.ImportResult, error) {
	// 1. 解析源配置指定的资源与类别
	kind := model.ResourceKind(feed.ResourceKind)
	if feed.ResourceKind == "" {
		kind = model.KindStaff
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("日历源 %q 的 resource_kind 非法: %q", feed.Name, feed.ResourceKind)
	}

	resource, err := s.repo.Resource.GetByNameAndKind(ctx, feed.ResourceName, kind)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImportResourceNotFound
		}
		s.logger.Error("查询资源失败", zap.String("name", feed.ResourceName), zap.Error(err))
		return nil, err
	}

	category, err := s.repo.EventCategory.GetByName(ctx, feed.CategoryName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImportCategoryNotFound
		}
		s.logger.Error("查询事件类别失败", zap.String("name", feed.CategoryName), zap.Error(err))
		return nil, err
	}

	// 2. 拉取并解析
	body, err := FetchICSContent(ctx, feed.URL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	cal, err := ics.ParseCalendar(body)
	if err != nil {
		return nil, fmt.Errorf("ICS 格式解析失败: %w", err)
	}

	// 3. 逐事件导入
	result := &dto.ImportResult{FeedName: feed.Name}
	for _, vevent := range cal.Events() {
		imported, err := s.importVEvent(ctx, vevent, resource, category)
		if err != nil {
			// 单事件失败跳过，继续导入其余事件
			s.logger.Error("导入 VEVENT 失败，跳过",
				zap.String("feed", feed.Name), zap.Error(err))
			continue
		}
		if imported {
			result.EventsCreated++
			result.CommitmentsCreated++
		} else {
			result.EventsSkipped++
		}
	}

	s.logger.Info("日历源导入完成",
		zap.String("feed", feed.Name),
		zap.Int("created", result.EventsCreated),
		zap.Int("skipped", result.EventsSkipped))
	return result, nil
}

// importVEvent 导入单个 VEVENT；返回是否新建
func (s *importService) importVEvent(ctx context.Context, vevent *ics.VEvent, resource *model.Resource, category *model.EventCategory) (bool, error) {
	uidProp := vevent.GetProperty(ics.ComponentPropertyUniqueId)
	if uidProp == nil || strings.TrimSpace(uidProp.Value) == "" {
		return false, errors.New("VEVENT 缺少 UID")
	}
	uid := strings.TrimSpace(uidProp.Value)

	summary := vevent.GetProperty(ics.ComponentPropertySummary)
	if summary == nil || strings.TrimSpace(summary.Value) == "" {
		return false, errors.New("VEVENT 缺少 SUMMARY")
	}

	startsAt, err := vevent.GetStartAt()
	if err != nil {
		return false, fmt.Errorf("解析 DTSTART 失败: %w", err)
	}
	endsAt, err := vevent.GetEndAt()
	if err != nil {
		// 无 DTEND 按 1 小时兜底
		endsAt = startsAt.Add(time.Hour)
	}
	interval := model.TimeInterval{StartsAt: startsAt, EndsAt: endsAt}
	if !interval.Valid() {
		return false, fmt.Errorf("非法区间: %s >= %s", startsAt, endsAt)
	}

	// (source, uid) 去重
	if _, err := s.repo.Event.GetBySourceUID(ctx, model.SourceICS, uid); err == nil {
		return false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	event := &model.Event{
		Body:         strings.TrimSpace(summary.Value),
		CategoryID:   category.CategoryID,
		Source:       model.SourceICS,
		SourceUID:    &uid,
		TimeInterval: interval,
	}
	if err := s.repo.Event.Create(ctx, event); err != nil {
		return false, err
	}

	commitment := &model.Commitment{
		EventID:    event.EventID,
		ResourceID: &resource.ResourceID,
	}
	if err := s.repo.Commitment.Create(ctx, commitment); err != nil {
		return false, err
	}

	return true, nil
}
