package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"GameSync/internal/cursor"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// sleepFunc 可替换的休眠（测试中置空）
type sleepFunc func(ctx context.Context, d time.Duration) error

// runJob 同步任务统一入口：分配 run_id、捕获 panic、记录耗时与结果，不向调用方抛出错误
func runJob(ctx context.Context, logger *logrus.Logger, job string, fn func(ctx context.Context, log *logrus.Entry) error) {
	log := logger.WithFields(logrus.Fields{"job": job, "run_id": uuid.NewString()})
	start := time.Now()
	log.Info("同步任务开始")

	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("panic: %v\n%s", p, debug.Stack())
			}
		}()
		return fn(ctx, log)
	}()

	elapsed := time.Since(start).Round(time.Millisecond).String()
	if err != nil {
		log.WithError(err).WithField("elapsed", elapsed).Error("同步任务失败")
		return
	}
	log.WithField("elapsed", elapsed).Info("同步任务完成")
}

// safeRun 单个工作单元：捕获 panic 转为错误
func safeRun(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}

func chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	var out [][]T
	for size < len(items) {
		out = append(out, items[:size:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}

func orSleep(s sleepFunc) sleepFunc {
	if s != nil {
		return s
	}
	return cursor.Sleep
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
