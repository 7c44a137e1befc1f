package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/XronosSchedulingLtd/scheduler-sub003/config"
	"github.com/XronosSchedulingLtd/scheduler-sub003/internal/model"
)

const testICSPayload = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:evt-1@example.org\r\n" +
	"DTSTART:20260907T090000Z\r\n" +
	"DTEND:20260907T100000Z\r\n" +
	"SUMMARY:校队训练\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:evt-2@example.org\r\n" +
	"DTSTART:20260908T140000Z\r\n" +
	"SUMMARY:器材保养\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func newICSTestServer(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		w.Write([]byte(payload))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestImportService_ImportFeed(t *testing.T) {
	store := newMockStore()
	seedStaff(store, "staff-coach", "体育组")
	seedCategory(store, "cat-sport", "体育活动", true, false)
	srv := newICSTestServer(t, testICSPayload)
	svc := NewImportService(store.toRepository(), zap.NewNop())

	feed := config.FeedConfig{
		Name:         "sports",
		URL:          srv.URL,
		ResourceName: "体育组",
		ResourceKind: "staff",
		CategoryName: "体育活动",
	}
	result, err := svc.ImportFeed(context.Background(), feed)
	if err != nil {
		t.Fatalf("ImportFeed 失败: %v", err)
	}
	if result.EventsCreated != 2 || result.CommitmentsCreated != 2 {
		t.Errorf("期望新建 2 个事件 2 条承诺，实际 events=%d commitments=%d",
			result.EventsCreated, result.CommitmentsCreated)
	}

	ev, err := store.toRepository().Event.GetBySourceUID(context.Background(), model.SourceICS, "evt-1@example.org")
	if err != nil {
		t.Fatalf("按 source_uid 查找导入事件失败: %v", err)
	}
	if ev.Body != "校队训练" {
		t.Errorf("期望事件描述取自 SUMMARY，实际=%q", ev.Body)
	}
	if !ev.EndsAt.Equal(ev.StartsAt.Add(time.Hour)) {
		t.Errorf("期望区间 1 小时，实际 %s - %s", ev.StartsAt, ev.EndsAt)
	}

	// 无 DTEND 的事件按 1 小时兜底
	ev2, err := store.toRepository().Event.GetBySourceUID(context.Background(), model.SourceICS, "evt-2@example.org")
	if err != nil {
		t.Fatalf("按 source_uid 查找导入事件失败: %v", err)
	}
	if !ev2.EndsAt.Equal(ev2.StartsAt.Add(time.Hour)) {
		t.Errorf("无 DTEND 应兜底 1 小时，实际 %s - %s", ev2.StartsAt, ev2.EndsAt)
	}

	// 重复导入按 (source, uid) 去重
	again, err := svc.ImportFeed(context.Background(), feed)
	if err != nil {
		t.Fatalf("重复 ImportFeed 失败: %v", err)
	}
	if again.EventsCreated != 0 || again.EventsSkipped != 2 {
		t.Errorf("重复导入应全部跳过，实际 created=%d skipped=%d",
			again.EventsCreated, again.EventsSkipped)
	}
}

func TestImportService_ImportFeed_ResourceNotFound(t *testing.T) {
	store := newMockStore()
	seedCategory(store, "cat-sport", "体育活动", true, false)
	srv := newICSTestServer(t, testICSPayload)
	svc := NewImportService(store.toRepository(), zap.NewNop())

	feed := config.FeedConfig{
		Name:         "sports",
		URL:          srv.URL,
		ResourceName: "不存在的资源",
		ResourceKind: "staff",
		CategoryName: "体育活动",
	}
	_, err := svc.ImportFeed(context.Background(), feed)
	if !errors.Is(err, ErrImportResourceNotFound) {
		t.Errorf("期望 ErrImportResourceNotFound，实际=%v", err)
	}
}

func TestImportService_ImportFeed_CategoryNotFound(t *testing.T) {
	store := newMockStore()
	seedStaff(store, "staff-coach", "体育组")
	srv := newICSTestServer(t, testICSPayload)
	svc := NewImportService(store.toRepository(), zap.NewNop())

	feed := config.FeedConfig{
		Name:         "sports",
		URL:          srv.URL,
		ResourceName: "体育组",
		ResourceKind: "staff",
		CategoryName: "不存在的类别",
	}
	_, err := svc.ImportFeed(context.Background(), feed)
	if !errors.Is(err, ErrImportCategoryNotFound) {
		t.Errorf("期望 ErrImportCategoryNotFound，实际=%v", err)
	}
}

func TestImportService_ImportFeed_SkipsBrokenVEvent(t *testing.T) {
	// 缺 UID 的 VEVENT 跳过，不影响其余事件导入
	payload := "BEGIN:VCALENDAR\r\n" +
		"VERSION:2.0\r\n" +
		"PRODID:-//test//EN\r\n" +
		"BEGIN:VEVENT\r\n" +
		"DTSTART:20260907T090000Z\r\n" +
		"SUMMARY:缺 UID 的事件\r\n" +
		"END:VEVENT\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:evt-ok@example.org\r\n" +
		"DTSTART:20260907T110000Z\r\n" +
		"DTEND:20260907T120000Z\r\n" +
		"SUMMARY:正常事件\r\n" +
		"END:VEVENT\r\n" +
		"END:VCALENDAR\r\n"
	store := newMockStore()
	seedStaff(store, "staff-coach", "体育组")
	seedCategory(store, "cat-sport", "体育活动", true, false)
	srv := newICSTestServer(t, payload)
	svc := NewImportService(store.toRepository(), zap.NewNop())

	feed := config.FeedConfig{
		Name:         "sports",
		URL:          srv.URL,
		ResourceName: "体育组",
		ResourceKind: "staff",
		CategoryName: "体育活动",
	}
	result, err := svc.ImportFeed(context.Background(), feed)
	if err != nil {
		t.Fatalf("ImportFeed 失败: %v", err)
	}
	if result.EventsCreated != 1 {
		t.Errorf("期望仅正常事件被导入，实际 created=%d", result.EventsCreated)
	}
}
