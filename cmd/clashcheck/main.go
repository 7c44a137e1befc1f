package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/XronosSchedulingLtd/scheduler-sub003/config"
	"github.com/XronosSchedulingLtd/scheduler-sub003/internal/dto"
	"github.com/XronosSchedulingLtd/scheduler-sub003/internal/notifier"
	"github.com/XronosSchedulingLtd/scheduler-sub003/internal/repository"
	"github.com/XronosSchedulingLtd/scheduler-sub003/internal/service"
	"github.com/XronosSchedulingLtd/scheduler-sub003/pkg/database"
	pkgerrors "github.com/XronosSchedulingLtd/scheduler-sub003/pkg/errors"
	applogger "github.com/XronosSchedulingLtd/scheduler-sub003/pkg/logger"
	"github.com/XronosSchedulingLtd/scheduler-sub003/pkg/redis"
)

const dateLayout = "2006-01-02"

func main() {
	// 0. 命令行参数
	var (
		configPath = flag.String("config", "", "配置文件路径（默认 ./config/config.yaml）")
		startFlag  = flag.String("start", "", "扫描起始日期 YYYY-MM-DD（默认今天）")
		endFlag    = flag.String("end", "", "扫描结束日期 YYYY-MM-DD（含当日）")
		weeksAhead = flag.Int("weeks-ahead", 0, "未指定结束日期时向后扫描的周数（默认取配置）")
		summary    = flag.Bool("summary", false, "汇总模式：不重扫，按现存冲突笔记投递汇总")
		weekly     = flag.Bool("weekly", false, "汇总模式下仅周一投递（周汇总）")
		quiet      = flag.Bool("quiet", false, "只输出警告及以上日志")
		verbose    = flag.Bool("verbose", false, "输出调试日志")
		exportPath = flag.String("export", "", "扫描后将冲突报表导出到指定 xlsx 路径")
		importICS  = flag.Bool("import-ics", false, "扫描前先导入配置的 ICS 日历源")
		daemon     = flag.Bool("daemon", false, "常驻模式：按配置的 cron 表达式周期运行")
	)
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志（命令行开关覆盖配置级别）
	if *quiet {
		cfg.Log.Level = "warn"
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// 3. 解析扫描日期范围
	opts, err := resolveRange(cfg, *startFlag, *endFlag, *weeksAhead)
	if err != nil {
		fmt.Fprintf(os.Stderr, "日期参数错误: %v\n", err)
		os.Exit(1)
	}

	logger.Info("clashcheck 启动",
		zap.Time("start", opts.StartDate),
		zap.Time("end", opts.EndDate),
		zap.Bool("summary", *summary),
		zap.Bool("daemon", *daemon),
	)

	// 4. 连接数据库并执行迁移
	db, err := database.NewDB(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	defer sqlDB.Close()
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 5. 连接 Redis（可选：连接失败时降级运行，仅失去运行锁保护）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，运行锁不可用", zap.Error(err))
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// 6. 通知投递后端
	sink, err := notifier.NewSink(&cfg.Mail, logger)
	if err != nil {
		logger.Fatal("初始化通知后端失败", zap.Error(err))
	}

	// 7. 依赖注入: Repository → Service
	repo := repository.NewRepository(db)
	svc, err := service.NewService(cfg, repo, sink, logger)
	if err != nil {
		logger.Fatal("初始化服务失败", zap.Error(err))
	}

	run := func() error {
		// 每次触发重新解析日期范围：daemon 模式下默认起点是"当天"，
		// 沿用启动时的快照会让常驻进程永远扫描启动日的窗口
		opts, err := resolveRange(cfg, *startFlag, *endFlag, *weeksAhead)
		if err != nil {
			return err
		}
		return runOnce(cfg, svc, rdb, logger, opts, runFlags{
			summary:    *summary,
			weekly:     *weekly,
			exportPath: *exportPath,
			importICS:  *importICS,
		})
	}

	// 8. 单次 或 常驻
	if !*daemon {
		if err := run(); err != nil {
			logger.Error("运行失败", zap.Error(err))
			fmt.Fprintf(os.Stderr, "运行失败: %v\n", err)
			os.Exit(1)
		}
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.Scan.Cron, func() {
		if err := run(); err != nil {
			logger.Error("定时扫描失败", zap.Error(err))
		}
	}); err != nil {
		logger.Fatal("cron 表达式非法", zap.String("cron", cfg.Scan.Cron), zap.Error(err))
	}
	c.Start()
	logger.Info("daemon 模式已启动", zap.String("cron", cfg.Scan.Cron))

	// 9. 监听系统信号，优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("收到关闭信号，停止定时任务", zap.String("signal", sig.String()))

	stopCtx := c.Stop()
	<-stopCtx.Done()
	logger.Info("clashcheck 已退出")
}

type runFlags struct {
	summary    bool
	weekly     bool
	exportPath string
	importICS  bool
}

// runOnce 执行一次完整的导入/扫描/导出流程
func runOnce(cfg *config.Config, svc *service.Service, rdb *redis.Client, logger *zap.Logger, opts *dto.ScanOptions, flags runFlags) error {
	ctx := context.Background()

	// 运行锁：保证同一时刻只有一个扫描写入方
	if rdb != nil {
		ttl := time.Duration(cfg.Scan.LockTTLMinutes) * time.Minute
		ok, err := rdb.AcquireScanLock(ctx, ttl)
		if err != nil {
			return fmt.Errorf("获取运行锁失败: %w", err)
		}
		if !ok {
			return pkgerrors.ErrScanLockHeld
		}
		defer func() {
			if err := rdb.ReleaseScanLock(ctx); err != nil {
				logger.Warn("释放运行锁失败", zap.Error(err))
			}
		}()
	}

	// 先导入日历源（单源失败只记日志）
	if flags.importICS {
		for _, feed := range cfg.Feeds {
			result, err := svc.Import.ImportFeed(ctx, feed)
			if err != nil {
				logger.Error("日历源导入失败", zap.String("feed", feed.Name), zap.Error(err))
				continue
			}
			logger.Info("日历源导入结果",
				zap.String("feed", result.FeedName),
				zap.Int("created", result.EventsCreated),
				zap.Int("skipped", result.EventsSkipped))
		}
	}

	// 扫描或汇总
	if flags.summary {
		result, err := svc.Clash.Summarise(ctx, opts, flags.weekly)
		if err != nil {
			return err
		}
		logger.Info("汇总完成",
			zap.Int("events", result.EventsWithClashes),
			zap.Int("batches", result.BatchesDelivered))
	} else {
		result, err := svc.Clash.Scan(ctx, opts)
		if err != nil {
			return err
		}
		logger.Info("扫描完成",
			zap.Int("days", result.DaysProcessed),
			zap.Int("events", result.EventsScanned),
			zap.Int("with_clashes", result.EventsWithClashes),
			zap.Int("failed", result.EventsFailed))
	}

	// 导出报表
	if flags.exportPath != "" {
		buf, filename, err := svc.Report.ExportClashes(ctx, opts.StartDate, opts.EndDate)
		if err != nil {
			if errors.Is(err, service.ErrReportNoClashes) {
				logger.Info("范围内无冲突，跳过报表导出")
				return nil
			}
			return err
		}
		if err := os.WriteFile(flags.exportPath, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("写出报表文件失败: %w", err)
		}
		logger.Info("冲突报表已导出",
			zap.String("path", flags.exportPath),
			zap.String("filename", filename))
	}

	return nil
}

// resolveRange 解析扫描日期范围
// 优先级：--end > --weeks-ahead > 配置 scan.default_weeks_ahead
func resolveRange(cfg *config.Config, startFlag, endFlag string, weeksAhead int) (*dto.ScanOptions, error) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if startFlag != "" {
		parsed, err := time.ParseInLocation(dateLayout, startFlag, now.Location())
		if err != nil {
			return nil, fmt.Errorf("--start 格式应为 YYYY-MM-DD: %w", err)
		}
		start = parsed
	}

	var end time.Time
	switch {
	case endFlag != "":
		parsed, err := time.ParseInLocation(dateLayout, endFlag, now.Location())
		if err != nil {
			return nil, fmt.Errorf("--end 格式应为 YYYY-MM-DD: %w", err)
		}
		end = parsed
	case weeksAhead > 0:
		end = start.AddDate(0, 0, weeksAhead*7-1)
	default:
		weeks := cfg.Scan.DefaultWeeksAhead
		if weeks <= 0 {
			weeks = 4
		}
		end = start.AddDate(0, 0, weeks*7-1)
	}

	if end.Before(start) {
		return nil, fmt.Errorf("结束日期 %s 早于起始日期 %s", end.Format(dateLayout), start.Format(dateLayout))
	}
	return &dto.ScanOptions{StartDate: start, EndDate: end}, nil
}
