// Package cursor 游标式增量翻页：按 id / 时间戳游标逐页拉取，或按自然周期逐期采集
package cursor

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Walker 通用游标翻页器。
// 每页处理完后把游标推进到最后一条的字段值，直到返回空页或游标不再前进。
type Walker[C comparable, T any] struct {
	Name  string
	Fetch func(ctx context.Context, cursor C) ([]T, error)
	Next  func(last T) C
	// Handle 处理一页数据，错误由调用方自行记录，不影响翻页
	Handle func(ctx context.Context, page []T)

	Interval    time.Duration // 翻页间隔（限速）
	Backoff     time.Duration // 可重试错误后的退避
	MaxRetries  int           // 连续可重试错误上限，<=0 表示不限
	IsTransient func(error) bool

	Logger *logrus.Logger
	Sleep  func(ctx context.Context, d time.Duration) error
}

// Result 一次翻页的结果
type Result[C comparable] struct {
	Cursor C // 最后一次成功推进后的游标
	Pages  int
	Items  int
	Err    error // 非空表示中途放弃
}

func (w *Walker[C, T]) Walk(ctx context.Context, seed C) Result[C] {
	res := Result[C]{Cursor: seed}
	log := w.Logger.WithField("walker", w.Name)
	retries := 0

	for {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}

		page, err := w.Fetch(ctx, res.Cursor)
		if err != nil {
			if w.transient(err) && (w.MaxRetries <= 0 || retries < w.MaxRetries) {
				retries++
				log.WithError(err).WithFields(logrus.Fields{
					"cursor":  res.Cursor,
					"retries": retries,
				}).Warn("拉取失败，退避后重试当前游标")
				if err := w.sleep(ctx, w.Backoff); err != nil {
					res.Err = err
					return res
				}
				continue
			}
			log.WithError(err).WithField("cursor", res.Cursor).Error("拉取失败，终止本次翻页")
			res.Err = err
			return res
		}
		retries = 0

		if len(page) == 0 {
			log.WithFields(logrus.Fields{"cursor": res.Cursor, "pages": res.Pages, "items": res.Items}).Info("翻页完成")
			return res
		}

		w.Handle(ctx, page)
		res.Pages++
		res.Items += len(page)

		next := w.Next(page[len(page)-1])
		if next == res.Cursor {
			// 时间戳游标下整页都落在边界值上
			log.WithField("cursor", res.Cursor).Info("游标未前进，结束翻页")
			return res
		}
		res.Cursor = next

		if err := w.sleep(ctx, w.Interval); err != nil {
			res.Err = err
			return res
		}
	}
}

func (w *Walker[C, T]) transient(err error) bool {
	if w.IsTransient == nil {
		return false
	}
	return w.IsTransient(err)
}

func (w *Walker[C, T]) sleep(ctx context.Context, d time.Duration) error {
	if w.Sleep != nil {
		return w.Sleep(ctx, d)
	}
	return Sleep(ctx, d)
}

// Sleep 可被 ctx 打断的休眠
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
