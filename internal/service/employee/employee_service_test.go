package employee

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/edu-backoffice/internal/common/errors"
	"github.com/dumeirei/edu-backoffice/internal/models"
	"github.com/dumeirei/edu-backoffice/internal/repository"
	"github.com/dumeirei/edu-backoffice/internal/testutil"
)

var dec = testutil.Dec

func setup(t *testing.T) (*EmployeeService, *repository.CourseRepository, *repository.CustomerRepository) {
	db := testutil.NewDB(t)
	courses := repository.NewCourseRepository(db)
	svc := NewEmployeeService(db, repository.NewEmployeeRepository(db), courses)
	return svc, courses, repository.NewCustomerRepository(db)
}

func strPtr(s string) *string { return &s }

func TestEmployeeService_CreateAndUpdate(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	e, err := svc.Create(ctx, &CreateEmployeeRequest{Name: " 张三 ", MonthlySalary: dec("5000")})
	require.NoError(t, err)
	assert.Equal(t, "张三", e.Name)
	assert.True(t, e.IsActive)

	_, err = svc.Create(ctx, &CreateEmployeeRequest{Name: "张三"})
	assert.True(t, errors.Is(err, errors.ErrEmployeeExists))

	_, err = svc.Create(ctx, &CreateEmployeeRequest{Name: "李四", Email: strPtr("not-an-email")})
	assert.True(t, errors.Is(err, errors.ErrInvalidParams))

	_, err = svc.Create(ctx, &CreateEmployeeRequest{Name: "王五", MonthlySalary: dec("-1")})
	assert.True(t, errors.Is(err, errors.ErrInvalidParams))

	inactive := false
	other, err := svc.Create(ctx, &CreateEmployeeRequest{Name: "李四", IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, other.IsActive)

	_, err = svc.Update(ctx, other.ID, &UpdateEmployeeRequest{Name: strPtr("张三")})
	assert.True(t, errors.Is(err, errors.ErrEmployeeExists))

	salary := dec("6000")
	updated, err := svc.Update(ctx, e.ID, &UpdateEmployeeRequest{MonthlySalary: &salary, Phone: strPtr("13800138000")})
	require.NoError(t, err)
	testutil.AssertDecimal(t, "6000", updated.MonthlySalary)
	require.NotNil(t, updated.Phone)

	_, err = svc.Update(ctx, 999, &UpdateEmployeeRequest{})
	assert.True(t, errors.Is(err, errors.ErrEmployeeNotFound))

	all, err := svc.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	active, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, e.ID, active[0].ID)
}

func TestEmployeeService_CommissionConfig(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	e, err := svc.Create(ctx, &CreateEmployeeRequest{Name: "张三"})
	require.NoError(t, err)

	cfg, err := svc.GetCommissionConfig(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CommissionBasisProfit, cfg.Basis)
	assert.True(t, cfg.NewCourseRate.IsZero())
	assert.True(t, cfg.BaseSalary.IsZero())

	cfg, err = svc.SetCommissionConfig(ctx, e.ID, &CommissionConfigRequest{
		NewCourseRate: dec("10"),
		RenewalRate:   dec("20"),
		BaseSalary:    dec("3000"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.CommissionBasisProfit, cfg.Basis)
	testutil.AssertDecimal(t, "10", cfg.NewCourseRate)

	// 覆盖已有配置
	cfg, err = svc.SetCommissionConfig(ctx, e.ID, &CommissionConfigRequest{
		Basis:         models.CommissionBasisSales,
		NewCourseRate: dec("5"),
		BaseSalary:    dec("2000"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.CommissionBasisSales, cfg.Basis)
	testutil.AssertDecimal(t, "5", cfg.NewCourseRate)
	testutil.AssertDecimal(t, "0", cfg.RenewalRate)

	_, err = svc.SetCommissionConfig(ctx, e.ID, &CommissionConfigRequest{TrialRate: dec("101")})
	assert.True(t, errors.Is(err, errors.ErrInvalidParams))
	_, err = svc.SetCommissionConfig(ctx, e.ID, &CommissionConfigRequest{Basis: "bonus"})
	assert.True(t, errors.Is(err, errors.ErrInvalidParams))
	_, err = svc.SetCommissionConfig(ctx, 999, &CommissionConfigRequest{})
	assert.True(t, errors.Is(err, errors.ErrEmployeeNotFound))
	_, err = svc.GetCommissionConfig(ctx, 999)
	assert.True(t, errors.Is(err, errors.ErrEmployeeNotFound))
}

func TestEmployeeService_MonthlyCost(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	cost, err := svc.MonthlyCost(ctx)
	require.NoError(t, err)
	assert.True(t, cost.IsZero())

	a, err := svc.Create(ctx, &CreateEmployeeRequest{Name: "张三"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, &CreateEmployeeRequest{Name: "李四"})
	require.NoError(t, err)
	_, err = svc.SetCommissionConfig(ctx, a.ID, &CommissionConfigRequest{BaseSalary: dec("3000")})
	require.NoError(t, err)
	_, err = svc.SetCommissionConfig(ctx, b.ID, &CommissionConfigRequest{BaseSalary: dec("2500.5")})
	require.NoError(t, err)

	cost, err = svc.MonthlyCost(ctx)
	require.NoError(t, err)
	testutil.AssertDecimal(t, "5500.5", cost)

	inactive := false
	_, err = svc.Update(ctx, b.ID, &UpdateEmployeeRequest{IsActive: &inactive})
	require.NoError(t, err)
	cost, err = svc.MonthlyCost(ctx)
	require.NoError(t, err)
	testutil.AssertDecimal(t, "3000", cost)
}

func TestEmployeeService_DeleteUnassignsCourses(t *testing.T) {
	svc, courses, customers := setup(t)
	ctx := context.Background()

	e, err := svc.Create(ctx, &CreateEmployeeRequest{Name: "张三"})
	require.NoError(t, err)
	_, err = svc.SetCommissionConfig(ctx, e.ID, &CommissionConfigRequest{BaseSalary: dec("3000")})
	require.NoError(t, err)

	c := &models.Customer{Name: "客户", Phone: "+8613800138000"}
	require.NoError(t, customers.Create(ctx, c))
	course := &models.Course{
		Kind:               models.CourseKindFormal,
		CustomerID:         c.ID,
		AssignedEmployeeID: &e.ID,
		Sessions:           10,
		UnitPrice:          dec("100"),
	}
	require.NoError(t, courses.Create(ctx, course))

	require.NoError(t, svc.Delete(ctx, e.ID))

	got, err := courses.GetByID(ctx, course.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AssignedEmployeeID)

	_, err = svc.Get(ctx, e.ID)
	assert.True(t, errors.Is(err, errors.ErrEmployeeNotFound))
	cost, err := svc.MonthlyCost(ctx)
	require.NoError(t, err)
	assert.True(t, cost.IsZero())

	assert.True(t, errors.Is(svc.Delete(ctx, e.ID), errors.ErrEmployeeNotFound))
}
