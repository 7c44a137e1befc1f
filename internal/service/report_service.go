package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/XronosSchedulingLtd/scheduler-sub003/internal/model"
	"github.com/XronosSchedulingLtd/scheduler-sub003/internal/repository"
)

// ── 报表模块业务错误 ──

var (
	ErrReportNoClashes    = errors.New("该日期范围内没有冲突记录")
	ErrReportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ReportService 冲突报表导出接口
//
// 设计说明：
//   - 以现存冲突笔记为数据源，不触发重扫
//   - 按事件起始日期分 Sheet，每行一条带冲突的事件
//   - 导出以 bytes.Buffer 返回，由 CLI 层落盘
type ReportService interface {
	// ExportClashes 导出日期范围内的冲突报表为 Excel
	ExportClashes(ctx context.Context, start, end time.Time) (*bytes.Buffer, string, error)
}

type reportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewReportService 创建 ReportService 实例
func NewReportService(repo *repository.Repository, logger *zap.Logger) ReportService {
	return &reportService{repo: repo, logger: logger}
}

func (s *reportService) ExportClashes(ctx context.Context, start, end time.Time) (*bytes.Buffer, string, error) {
	startDay := truncateDay(start)
	endExclusive := truncateDay(end).AddDate(0, 0, 1)

	// 1. 查询窗口内的冲突笔记
	notes, err := s.repo.ClashNote.ListBetween(ctx, startDay, endExclusive)
	if err != nil {
		s.logger.Error("查询冲突笔记失败", zap.Error(err))
		return nil, "", err
	}

	// 2. 过滤停办事件并按事件起始日期分组
	byDay := make(map[string][]model.ClashNote)
	for _, note := range notes {
		if note.Event == nil || note.Event.NonExistent {
			continue
		}
		day := note.Event.StartsAt.Format("2006-01-02")
		byDay[day] = append(byDay[day], note)
	}
	if len(byDay) == 0 {
		return nil, "", ErrReportNoClashes
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	// 3. 生成 Excel：每天一个 Sheet
	f := excelize.NewFile()
	defer f.Close()

	for _, day := range days {
		if _, err := f.NewSheet(day); err != nil {
			s.logger.Error("创建 Sheet 失败", zap.String("day", day), zap.Error(err))
			return nil, "", ErrReportGenerateFail
		}

		// 表头
		f.SetCellValue(day, "A1", "事件")
		f.SetCellValue(day, "B1", "类别")
		f.SetCellValue(day, "C1", "开始")
		f.SetCellValue(day, "D1", "结束")
		f.SetCellValue(day, "E1", "冲突详情")

		dayNotes := byDay[day]
		sort.Slice(dayNotes, func(i, j int) bool {
			a, b := dayNotes[i].Event, dayNotes[j].Event
			if !a.StartsAt.Equal(b.StartsAt) {
				return a.StartsAt.Before(b.StartsAt)
			}
			return a.Body < b.Body
		})

		for i, note := range dayNotes {
			row := i + 2
			ev := note.Event
			categoryName := ""
			if ev.Category != nil {
				categoryName = ev.Category.Name
			}
			f.SetCellValue(day, fmt.Sprintf("A%d", row), ev.Body)
			f.SetCellValue(day, fmt.Sprintf("B%d", row), categoryName)
			f.SetCellValue(day, fmt.Sprintf("C%d", row), ev.StartsAt.Format("15:04"))
			f.SetCellValue(day, fmt.Sprintf("D%d", row), ev.EndsAt.Format("15:04"))
			f.SetCellValue(day, fmt.Sprintf("E%d", row), note.Body)
		}

		// 列宽：事件与详情列放宽
		f.SetColWidth(day, "A", "A", 40)
		f.SetColWidth(day, "E", "E", 60)
	}

	// 删除默认 Sheet1 并激活首个日期页
	f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex(days[0]); err == nil {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.Error("写出 Excel 失败", zap.Error(err))
		return nil, "", ErrReportGenerateFail
	}

	filename := fmt.Sprintf("clash_report_%s_%s.xlsx",
		startDay.Format("20060102"), truncateDay(end).Format("20060102"))
	return buf, filename, nil
}
