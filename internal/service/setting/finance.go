package setting

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dumeirei/edu-backoffice/internal/common/errors"
	"github.com/dumeirei/edu-backoffice/internal/common/utils"
	"github.com/dumeirei/edu-backoffice/internal/models"
)

// 默认股东名
const (
	DefaultShareholderA = "股东A"
	DefaultShareholderB = "股东B"
)

var half = decimal.NewFromFloat(0.5)

// TrialCost 试听课默认成本
func (r *Registry) TrialCost(ctx context.Context) (decimal.Decimal, error) {
	return r.GetDecimal(ctx, models.ConfigKeyTrialCost, decimal.Zero)
}

// CourseCost 正课默认单节成本
func (r *Registry) CourseCost(ctx context.Context) (decimal.Decimal, error) {
	return r.GetDecimal(ctx, models.ConfigKeyCourseCost, decimal.Zero)
}

// TaobaoFeeRate 淘宝手续费率（小数），配置以百分数保存
func (r *Registry) TaobaoFeeRate(ctx context.Context) (decimal.Decimal, error) {
	pct, err := r.GetDecimal(ctx, models.ConfigKeyTaobaoFeeRate, decimal.Zero)
	if err != nil {
		return decimal.Zero, err
	}
	return utils.Percent(pct), nil
}

// Shareholders 股东名称
func (r *Registry) Shareholders(ctx context.Context) (string, string, error) {
	a, err := r.GetString(ctx, models.ConfigKeyShareholderAName, DefaultShareholderA)
	if err != nil {
		return "", "", err
	}
	b, err := r.GetString(ctx, models.ConfigKeyShareholderBName, DefaultShareholderB)
	if err != nil {
		return "", "", err
	}
	return a, b, nil
}

// ShareholderRatios 股东分成比例，大于 1 的值按百分数处理，两者之和不为 1 时 B = 1 - A
func (r *Registry) ShareholderRatios(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	a, err := r.GetDecimal(ctx, models.ConfigKeyShareholderARatio, half)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	b, err := r.GetDecimal(ctx, models.ConfigKeyShareholderBRatio, half)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if a.GreaterThan(decimal.NewFromInt(1)) {
		a = utils.Percent(a)
	}
	if b.GreaterThan(decimal.NewFromInt(1)) {
		b = utils.Percent(b)
	}
	one := decimal.NewFromInt(1)
	if a.IsNegative() || a.GreaterThan(one) {
		return decimal.Zero, decimal.Zero, errors.ErrConfigInvalid.WithMessage("股东分成比例无效")
	}
	if !a.Add(b).Equal(one) {
		b = one.Sub(a)
	}
	return a, b, nil
}

// Rates 计算所需的实时参数
type Rates struct {
	TrialCost     decimal.Decimal
	CourseCost    decimal.Decimal
	TaobaoFeeRate decimal.Decimal
}

// CurrentRates 读取一次实时参数，供整份报表复用
func (r *Registry) CurrentRates(ctx context.Context) (Rates, error) {
	trial, err := r.TrialCost(ctx)
	if err != nil {
		return Rates{}, err
	}
	course, err := r.CourseCost(ctx)
	if err != nil {
		return Rates{}, err
	}
	fee, err := r.TaobaoFeeRate(ctx)
	if err != nil {
		return Rates{}, err
	}
	return Rates{TrialCost: trial, CourseCost: course, TaobaoFeeRate: fee}, nil
}

// SnapshotRates 新建正课时写入快照的参数，正课成本和手续费率必须已配置
func (r *Registry) SnapshotRates(ctx context.Context) (Rates, error) {
	trial, err := r.TrialCost(ctx)
	if err != nil {
		return Rates{}, err
	}
	course, err := r.RequireDecimal(ctx, models.ConfigKeyCourseCost)
	if err != nil {
		return Rates{}, err
	}
	pct, err := r.RequireDecimal(ctx, models.ConfigKeyTaobaoFeeRate)
	if err != nil {
		return Rates{}, err
	}
	return Rates{TrialCost: trial, CourseCost: course, TaobaoFeeRate: utils.Percent(pct)}, nil
}
