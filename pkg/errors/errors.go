package errors

import "errors"

// ErrScanLockHeld 运行锁已被其他扫描进程持有
var ErrScanLockHeld = errors.New("另一个冲突扫描正在运行，请稍后重试")

// ErrNoClashCheckCategories 配置错误：没有任何事件类别启用冲突检测
var ErrNoClashCheckCategories = errors.New("没有启用冲突检测的事件类别，无法执行扫描")
