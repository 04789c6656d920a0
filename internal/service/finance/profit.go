// Package finance 提供课程利润、提成、运营成本分摊和综合报表
package finance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dumeirei/edu-backoffice/internal/models"
	"github.com/dumeirei/edu-backoffice/internal/repository"
	"github.com/dumeirei/edu-backoffice/internal/service/setting"
)

// RefundInfo 课程退费概况
type RefundInfo struct {
	Sessions          int             `json:"refund_sessions"`
	Amount            decimal.Decimal `json:"refund_amount"`
	Fee               decimal.Decimal `json:"refund_fee"`
	Count             int             `json:"refund_count"`
	RemainingSessions int             `json:"remaining_sessions"`
}

// CourseProfit 单个课程的利润
type CourseProfit struct {
	CourseID    int64     `json:"course_id"`
	CustomerID  int64     `json:"customer_id"`
	EmployeeID  *int64    `json:"employee_id,omitempty"`
	Kind        string    `json:"kind"`
	Category    string    `json:"category"`
	TrialStatus string    `json:"trial_status,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	OriginalRevenue decimal.Decimal `json:"original_revenue"`
	ActualRevenue   decimal.Decimal `json:"actual_revenue"`
	// OriginalCost 退费调整前的成本
	OriginalCost decimal.Decimal `json:"original_cost"`
	// Cost 退费调整后的成本，不含手续费
	Cost      decimal.Decimal `json:"cost"`
	Fee       decimal.Decimal `json:"fee"`
	Profit    decimal.Decimal `json:"profit"`
	HasRefund bool            `json:"has_refund"`
	Refund    *RefundInfo     `json:"refund_info,omitempty"`
	// Excluded 误操作试听课，不计入任何汇总
	Excluded bool `json:"excluded,omitempty"`
}

// ProfitOf 计算单个课程利润
//
// refunds 为该课程已完成退费的汇总，仅对正课生效。正课手续费只使用课程快照费率，
// 快照为空按 0 处理；试听课使用实时试听成本和手续费率。
func ProfitOf(c *models.Course, refunds repository.RefundTotals, rates setting.Rates, includeRefunds bool) CourseProfit {
	p := CourseProfit{
		CourseID:    c.ID,
		CustomerID:  c.CustomerID,
		EmployeeID:  c.AssignedEmployeeID,
		Kind:        c.Kind,
		Category:    c.Category(),
		TrialStatus: c.TrialStatus,
		CreatedAt:   c.CreatedAt,
	}
	if c.IsTrial() {
		trialProfit(&p, c, rates, includeRefunds)
	} else {
		formalProfit(&p, c, refunds, rates, includeRefunds)
	}
	return p
}

// TrialCostOf 试听课成本：自定义成本优先，否则取实时配置
func TrialCostOf(c *models.Course, rates setting.Rates) decimal.Decimal {
	if c.CustomTrialCost.Valid {
		return c.CustomTrialCost.Decimal
	}
	return rates.TrialCost
}

// UnitCostOf 正课单节成本：自定义 > 快照 > 实时配置
func UnitCostOf(c *models.Course, rates setting.Rates) decimal.Decimal {
	switch {
	case c.CustomCourseCost.Valid:
		return c.CustomCourseCost.Decimal
	case c.SnapshotCourseCost.Valid:
		return c.SnapshotCourseCost.Decimal
	default:
		return rates.CourseCost
	}
}

func trialProfit(p *CourseProfit, c *models.Course, rates setting.Rates, includeRefunds bool) {
	if c.IsExcluded() {
		p.Excluded = true
		return
	}

	cost := TrialCostOf(c, rates)
	p.OriginalCost = cost
	p.Cost = cost

	switch c.TrialStatus {
	case models.TrialStatusNotRegistered:
		// 未报名：无收入，成本沉没
	case models.TrialStatusRefunded:
		// 全额退款：收入归零，成本沉没，手续费按原收入计
		p.OriginalRevenue = c.TrialPrice
		p.ActualRevenue = c.TrialPrice
		p.Fee = trialFee(c, c.TrialPrice, rates)
		if includeRefunds {
			p.ActualRevenue = decimal.Zero
			p.HasRefund = true
			p.Refund = &RefundInfo{Amount: c.TrialPrice, Count: 1}
		}
	default:
		p.OriginalRevenue = c.TrialPrice
		p.ActualRevenue = c.TrialPrice
		p.Fee = trialFee(c, c.TrialPrice, rates)
	}

	p.Profit = p.ActualRevenue.Sub(p.Cost).Sub(p.Fee)
}

func trialFee(c *models.Course, revenue decimal.Decimal, rates setting.Rates) decimal.Decimal {
	if c.Source != models.ChannelTaobao {
		return decimal.Zero
	}
	return revenue.Mul(rates.TaobaoFeeRate)
}

func formalProfit(p *CourseProfit, c *models.Course, refunds repository.RefundTotals, rates setting.Rates, includeRefunds bool) {
	sessions := decimal.NewFromInt(int64(c.Sessions))
	p.OriginalRevenue = c.UnitPrice.Mul(sessions)

	delivered := decimal.NewFromInt(int64(c.Sessions + c.GiftSessions))
	variableCost := UnitCostOf(c, rates).Mul(delivered)
	p.OriginalCost = variableCost.Add(c.OtherCost)

	if c.PaymentChannel == models.ChannelTaobao && c.SnapshotFeeRate.Valid {
		p.Fee = p.OriginalRevenue.Mul(c.SnapshotFeeRate.Decimal)
	}

	p.ActualRevenue = p.OriginalRevenue
	p.Cost = p.OriginalCost

	if includeRefunds && refunds.Count > 0 {
		remaining := c.Sessions - refunds.Sessions
		p.HasRefund = true
		p.Refund = &RefundInfo{
			Sessions:          refunds.Sessions,
			Amount:            refunds.Amount,
			Fee:               refunds.Fee,
			Count:             refunds.Count,
			RemainingSessions: remaining,
		}
		p.ActualRevenue = p.OriginalRevenue.Sub(refunds.Amount)
		// 全部退完时成本保持原值
		if c.Sessions > 0 && remaining > 0 {
			p.Cost = variableCost.Mul(decimal.NewFromInt(int64(remaining))).Div(sessions).Add(c.OtherCost)
		}
	}

	p.Profit = p.ActualRevenue.Sub(p.Cost).Sub(p.Fee)
}

// ProfitTotals 利润汇总
type ProfitTotals struct {
	CourseCount     int             `json:"course_count"`
	OriginalRevenue decimal.Decimal `json:"original_revenue"`
	ActualRevenue   decimal.Decimal `json:"actual_revenue"`
	Cost            decimal.Decimal `json:"cost"`
	Fee             decimal.Decimal `json:"fee"`
	Profit          decimal.Decimal `json:"profit"`
	RefundAmount    decimal.Decimal `json:"refund_amount"`
}

// Add 累加一个课程，误操作课程忽略
func (t *ProfitTotals) Add(p CourseProfit) {
	if p.Excluded {
		return
	}
	t.CourseCount++
	t.OriginalRevenue = t.OriginalRevenue.Add(p.OriginalRevenue)
	t.ActualRevenue = t.ActualRevenue.Add(p.ActualRevenue)
	t.Cost = t.Cost.Add(p.Cost)
	t.Fee = t.Fee.Add(p.Fee)
	t.Profit = t.Profit.Add(p.Profit)
	if p.Refund != nil {
		t.RefundAmount = t.RefundAmount.Add(p.Refund.Amount)
	}
}
