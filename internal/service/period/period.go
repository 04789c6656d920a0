// Package period 把统计周期换算为左闭右开的时间窗口
package period

import (
	"strings"
	"time"

	"github.com/dumeirei/edu-backoffice/internal/common/errors"
)

// 统计周期
const (
	Day     = "day"
	Week    = "week"
	Month   = "month"
	Quarter = "quarter"
	Year    = "year"
	Custom  = "custom"
)

// Window 时间窗口 [Start, End)
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// IsEmpty 窗口内不含任何时刻
func (w Window) IsEmpty() bool {
	return !w.Start.Before(w.End)
}

// Contains 判断 t 是否落在窗口内
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Resolve 按周期计算窗口，时间统一换算为 UTC
//
// custom 周期的 start、end 为日期，包含 end 当天；start 晚于 end 时返回空窗口。
func Resolve(period string, now time.Time, start, end *time.Time) (Window, error) {
	now = now.UTC()
	switch strings.ToLower(strings.TrimSpace(period)) {
	case Day:
		s := truncateDay(now)
		return Window{Start: s, End: s.AddDate(0, 0, 1)}, nil
	case Week:
		// 自然周从周一开始
		offset := (int(now.Weekday()) + 6) % 7
		s := truncateDay(now).AddDate(0, 0, -offset)
		return Window{Start: s, End: s.AddDate(0, 0, 7)}, nil
	case Month, "":
		s := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Window{Start: s, End: s.AddDate(0, 1, 0)}, nil
	case Quarter:
		first := time.Month((int(now.Month())-1)/3*3 + 1)
		s := time.Date(now.Year(), first, 1, 0, 0, 0, 0, time.UTC)
		return Window{Start: s, End: s.AddDate(0, 3, 0)}, nil
	case Year:
		s := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		return Window{Start: s, End: s.AddDate(1, 0, 0)}, nil
	case Custom:
		if start == nil || end == nil {
			return Window{}, errors.ErrInvalidParams.WithMessage("自定义周期需要开始和结束日期")
		}
		s := truncateDay(*start)
		e := truncateDay(*end).AddDate(0, 0, 1)
		if s.After(truncateDay(*end)) {
			return Window{Start: s, End: s}, nil
		}
		return Window{Start: s, End: e}, nil
	default:
		return Window{}, errors.ErrInvalidPeriod.WithMessage("无效的统计周期: " + period)
	}
}

// MonthOf 指定年月的窗口
func MonthOf(year, month int) (Window, error) {
	if month < 1 || month > 12 || year < 1 {
		return Window{}, errors.ErrInvalidPeriod.WithMessage("无效的年月")
	}
	s := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return Window{Start: s, End: s.AddDate(0, 1, 0)}, nil
}

// ParseDate 解析 YYYY-MM-DD 日期
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return nil, errors.ErrInvalidParams.WithMessage("日期格式应为 YYYY-MM-DD: " + s)
	}
	return &t, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
