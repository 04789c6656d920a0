package finance

import (
	"github.com/shopspring/decimal"
)

// ShareholderRatio 股东及其分成比例
type ShareholderRatio struct {
	Name  string
	Ratio decimal.Decimal
}

// SplitInput 股东分配的输入项
type SplitInput struct {
	NewCourseProfit decimal.Decimal
	RenewalProfit   decimal.Decimal
	TrialProfit     decimal.Decimal
	// TaobaoTotal 刷单佣金与平台费合计
	TaobaoTotal decimal.Decimal
	// EmployeeTotal 员工底薪与提成合计
	EmployeeTotal decimal.Decimal
	// OperationalCost 仅随结果展示，不计入共担成本
	OperationalCost decimal.Decimal
}

// ShareholderShare 单个股东的分配结果
type ShareholderShare struct {
	Name         string          `json:"name"`
	Ratio        decimal.Decimal `json:"ratio"`
	RevenueShare decimal.Decimal `json:"revenue_share"`
	SharedCost   decimal.Decimal `json:"shared_cost"`
	NetAmount    decimal.Decimal `json:"net_amount"`
}

// ShareholderSplit 股东分配
type ShareholderSplit struct {
	A               ShareholderShare `json:"shareholder_a"`
	B               ShareholderShare `json:"shareholder_b"`
	TrialLoss       decimal.Decimal  `json:"trial_loss"`
	TaobaoTotal     decimal.Decimal  `json:"taobao_total"`
	EmployeeTotal   decimal.Decimal  `json:"employee_total"`
	SharedCostTotal decimal.Decimal  `json:"shared_cost_total"`
	// OperationalCost 运营成本，由公司承担，不进入股东净额
	OperationalCost decimal.Decimal `json:"operational_cost"`
}

// Share 按股东名取分配结果
func (s ShareholderSplit) Share(name string) (ShareholderShare, bool) {
	switch name {
	case s.A.Name:
		return s.A, true
	case s.B.Name:
		return s.B, true
	default:
		return ShareholderShare{}, false
	}
}

var half = decimal.NewFromFloat(0.5)

// SplitShareholders 新课与续课毛利按比例分配，试听亏损、刷单费用与员工成本两位股东各担一半
//
// 试听亏损为试听课利润取负，试听盈利时抵减共担成本。运营成本不参与分摊，
// 两位股东净额之和等于净利润加运营成本。
func SplitShareholders(a, b ShareholderRatio, in SplitInput) ShareholderSplit {
	split := ShareholderSplit{
		TrialLoss:       in.TrialProfit.Neg(),
		TaobaoTotal:     in.TaobaoTotal,
		EmployeeTotal:   in.EmployeeTotal,
		OperationalCost: in.OperationalCost,
	}
	split.SharedCostTotal = split.TrialLoss.Add(in.TaobaoTotal).Add(in.EmployeeTotal)
	perShareholder := split.SharedCostTotal.Mul(half)

	courseProfit := in.NewCourseProfit.Add(in.RenewalProfit)
	split.A = shareOf(a, courseProfit, perShareholder)
	split.B = shareOf(b, courseProfit, perShareholder)
	return split
}

func shareOf(r ShareholderRatio, courseProfit, sharedCost decimal.Decimal) ShareholderShare {
	revenue := courseProfit.Mul(r.Ratio)
	return ShareholderShare{
		Name:         r.Name,
		Ratio:        r.Ratio,
		RevenueShare: revenue,
		SharedCost:   sharedCost,
		NetAmount:    revenue.Sub(sharedCost),
	}
}
