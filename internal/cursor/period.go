package cursor

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Period 自然周期
type Period int

const (
	Week Period = iota
	Month
	Year
)

func (p Period) String() string {
	switch p {
	case Week:
		return "week"
	case Month:
		return "month"
	case Year:
		return "year"
	default:
		return "unknown"
	}
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Periods 从 from 到 now 需要采集的各期起点（UTC 零点）。
// 周：from 当天或之后的第一个周二起，每周一期，起点早于今天；
// 月：from 所在月1号起，起点早于今天；年：from 所在年1月1日起，年份小于今年。
func Periods(p Period, from, now time.Time) []time.Time {
	today := dateOf(now)
	start := dateOf(from)
	var out []time.Time
	switch p {
	case Week:
		for start.Weekday() != time.Tuesday {
			start = start.AddDate(0, 0, 1)
		}
		for d := start; d.Before(today); d = d.AddDate(0, 0, 7) {
			out = append(out, d)
		}
	case Month:
		for d := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC); d.Before(today); d = d.AddDate(0, 1, 0) {
			out = append(out, d)
		}
	case Year:
		for y := start.Year(); y < today.Year(); y++ {
			out = append(out, time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC))
		}
	}
	return out
}

// Previous 定时任务要采集的上一期起点：上一个周二（严格早于今天）、上个月1号、去年1月1日
func Previous(p Period, now time.Time) time.Time {
	today := dateOf(now)
	switch p {
	case Week:
		d := today.AddDate(0, 0, -1)
		for d.Weekday() != time.Tuesday {
			d = d.AddDate(0, 0, -1)
		}
		return d
	case Month:
		return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	default:
		return time.Date(today.Year()-1, 1, 1, 0, 0, 0, 0, time.UTC)
	}
}

// PeriodWalker 逐期采集；每期先查重，已采集的期不发请求。各期严格串行。
type PeriodWalker struct {
	Name     string
	Exists   func(ctx context.Context, start time.Time) (bool, error)
	Collect  func(ctx context.Context, start time.Time) error
	Interval time.Duration
	Logger   *logrus.Logger
	Sleep    func(ctx context.Context, d time.Duration) error
}

// PeriodResult 逐期采集统计
type PeriodResult struct {
	Collected int
	Skipped   int
	Failed    int
	Err       error
}

func (w *PeriodWalker) Walk(ctx context.Context, starts []time.Time) PeriodResult {
	var res PeriodResult
	log := w.Logger.WithField("walker", w.Name)
	for i, start := range starts {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}
		plog := log.WithField("period", start.Format(time.DateOnly))

		exists, err := w.Exists(ctx, start)
		if err != nil {
			plog.WithError(err).Warn("查重失败，跳过该期")
			res.Failed++
			continue
		}
		if exists {
			res.Skipped++
			continue
		}

		if err := w.Collect(ctx, start); err != nil {
			plog.WithError(err).Warn("采集失败，继续下一期")
			res.Failed++
		} else {
			res.Collected++
		}

		if i < len(starts)-1 {
			sleep := w.Sleep
			if sleep == nil {
				sleep = Sleep
			}
			if err := sleep(ctx, w.Interval); err != nil {
				res.Err = err
				return res
			}
		}
	}
	log.WithFields(logrus.Fields{
		"collected": res.Collected,
		"skipped":   res.Skipped,
		"failed":    res.Failed,
	}).Info("逐期采集完成")
	return res
}
