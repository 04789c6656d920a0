package finance

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dumeirei/edu-backoffice/internal/models"
)

// CostTypeBreakdown 单个成本类型的汇总
type CostTypeBreakdown struct {
	Amount decimal.Decimal           `json:"amount"`
	Count  int                       `json:"count"`
	Items  []*models.OperationalCost `json:"items"`
}

// Allocation 运营成本分摊结果
type Allocation struct {
	TotalOperationalCost decimal.Decimal               `json:"total_operational_cost"`
	CostPerCourse        decimal.Decimal               `json:"cost_per_course"`
	CourseCount          int64                         `json:"course_count"`
	AllocationMethod     string                        `json:"allocation_method"`
	ByType               map[string]*CostTypeBreakdown `json:"by_type"`
}

// Allocate 汇总启用且参与分摊的运营成本，并按课程数平均到每门课
//
// 分摊结果仅供展示，不计入单个课程成本。
func Allocate(costs []*models.OperationalCost, courseCount int64) Allocation {
	a := Allocation{
		CourseCount:      courseCount,
		AllocationMethod: models.AllocationProportional,
		ByType:           make(map[string]*CostTypeBreakdown),
	}

	equal := 0
	for _, cost := range costs {
		if cost.Status != models.OperationalCostActive || !cost.AllocatedToCourses {
			continue
		}
		a.TotalOperationalCost = a.TotalOperationalCost.Add(cost.Amount)
		b, ok := a.ByType[cost.CostType]
		if !ok {
			b = &CostTypeBreakdown{}
			a.ByType[cost.CostType] = b
		}
		b.Amount = b.Amount.Add(cost.Amount)
		b.Count++
		b.Items = append(b.Items, cost)
		if cost.AllocationMethod == models.AllocationEqual {
			equal++
		}
	}

	// 全部为平均分摊时标记为 equal，两种方式当前计算结果相同
	if counted := countItems(a.ByType); counted > 0 && equal == counted {
		a.AllocationMethod = models.AllocationEqual
	}
	if courseCount > 0 {
		a.CostPerCourse = a.TotalOperationalCost.Div(decimal.NewFromInt(courseCount))
	}
	return a
}

// CostTypes 按字母序返回成本类型
func (a Allocation) CostTypes() []string {
	types := make([]string, 0, len(a.ByType))
	for k := range a.ByType {
		types = append(types, k)
	}
	sort.Strings(types)
	return types
}

func countItems(byType map[string]*CostTypeBreakdown) int {
	n := 0
	for _, b := range byType {
		n += b.Count
	}
	return n
}
