// Package scheduler 按 Cron 表达式触发同步任务
package scheduler

import (
	"context"
	"fmt"

	"GameSync/internal/config"
	"GameSync/internal/service"

	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"
)

// Runner 按任务名执行同步任务
type Runner interface {
	Run(ctx context.Context, name string) bool
}

// Scheduler 定时任务调度器（带秒的6段Cron）
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	logger *logrus.Logger
	ctx    context.Context
}

// Entry 一条定时任务
type Entry struct {
	Spec string
	Job  string
}

// Entries 由配置生成的定时任务表，表达式为空的任务不注册
func Entries(cfg config.ScheduleConfig) []Entry {
	all := []Entry{
		{cfg.Daily, service.JobDaily},
		{cfg.Prices, service.JobPrices},
		{cfg.Concurrent, service.JobConcurrent},
		{cfg.MostPlayed, service.JobMostPlayed},
		{cfg.Weekly, service.JobWeekly},
		{cfg.Monthly, service.JobMonthly},
		{cfg.Yearly, service.JobYearly},
	}
	out := make([]Entry, 0, len(all))
	for _, e := range all {
		if e.Spec != "" {
			out = append(out, e)
		}
	}
	return out
}

func New(ctx context.Context, runner Runner, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		runner: runner,
		logger: logger,
		ctx:    ctx,
	}
}

// Register 注册定时任务；任一表达式非法则返回错误
func (s *Scheduler) Register(entries []Entry) error {
	for _, e := range entries {
		e := e
		if err := s.cron.AddFunc(e.Spec, func() { s.fire(e) }); err != nil {
			return fmt.Errorf("注册定时任务失败(%s: %q): %w", e.Job, e.Spec, err)
		}
		s.logger.WithFields(logrus.Fields{"job": e.Job, "spec": e.Spec}).Info("定时任务已注册")
	}
	return nil
}

func (s *Scheduler) fire(e Entry) {
	if s.ctx.Err() != nil {
		return
	}
	if !s.runner.Run(s.ctx, e.Job) {
		s.logger.WithField("job", e.Job).Warn("上一次执行尚未结束，跳过本次触发")
	}
}

func (s *Scheduler) Start() { s.cron.Start() }

func (s *Scheduler) Stop() { s.cron.Stop() }
