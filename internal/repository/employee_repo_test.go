package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/edu-backoffice/internal/models"
)

func TestEmployeeRepository_CommissionConfig(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEmployeeRepository(db)
	ctx := context.Background()

	active := &models.Employee{Name: "张三", IsActive: true}
	inactive := &models.Employee{Name: "李四", IsActive: false}
	require.NoError(t, repo.Create(ctx, active))
	require.NoError(t, repo.Create(ctx, inactive))

	t.Run("创建并覆盖配置", func(t *testing.T) {
		require.NoError(t, repo.UpsertCommissionConfig(ctx, &models.CommissionConfig{
			EmployeeID: active.ID, Basis: models.CommissionBasisProfit, NewCourseRate: dec("10"), BaseSalary: dec("3000"),
		}))
		require.NoError(t, repo.UpsertCommissionConfig(ctx, &models.CommissionConfig{
			EmployeeID: active.ID, Basis: models.CommissionBasisSales, NewCourseRate: dec("12"), BaseSalary: dec("3500"),
		}))

		cfg, err := repo.GetCommissionConfig(ctx, active.ID)
		require.NoError(t, err)
		assert.Equal(t, models.CommissionBasisSales, cfg.Basis)
		assertDecimal(t, "12", cfg.NewCourseRate)
		assertDecimal(t, "3500", cfg.BaseSalary)
	})

	t.Run("只返回在职员工的配置", func(t *testing.T) {
		require.NoError(t, repo.UpsertCommissionConfig(ctx, &models.CommissionConfig{
			EmployeeID: inactive.ID, Basis: models.CommissionBasisProfit, BaseSalary: dec("2000"),
		}))
		configs, err := repo.ActiveCommissionConfigs(ctx)
		require.NoError(t, err)
		require.Len(t, configs, 1)
		assert.Equal(t, active.ID, configs[0].EmployeeID)

		byEmp, err := repo.CommissionConfigsByEmployees(ctx, []int64{active.ID, inactive.ID})
		require.NoError(t, err)
		assert.Len(t, byEmp, 2)
	})

	t.Run("员工列表", func(t *testing.T) {
		all, err := repo.List(ctx, false)
		require.NoError(t, err)
		assert.Len(t, all, 2)
		onlyActive, err := repo.List(ctx, true)
		require.NoError(t, err)
		assert.Len(t, onlyActive, 1)
	})

	t.Run("删除员工同时删除配置", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, inactive.ID))
		_, err := repo.GetCommissionConfig(ctx, inactive.ID)
		assert.Error(t, err)
	})
}
