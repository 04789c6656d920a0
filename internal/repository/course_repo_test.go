package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/edu-backoffice/internal/models"
)

func createTestCustomer(t *testing.T, repo *CustomerRepository, phone string) *models.Customer {
	customer := &models.Customer{Name: "客户" + phone, Phone: phone}
	require.NoError(t, repo.Create(context.Background(), customer))
	return customer
}

func TestCourseRepository_TrialUniquePerCustomer(t *testing.T) {
	db := setupTestDB(t)
	customers := NewCustomerRepository(db)
	repo := NewCourseRepository(db)
	ctx := context.Background()

	customer := createTestCustomer(t, customers, "+8613800000001")

	first := &models.Course{
		Kind:            models.CourseKindTrial,
		CustomerID:      customer.ID,
		TrialCustomerID: &customer.ID,
		TrialStatus:     models.TrialStatusRegistered,
		TrialPrice:      dec("99"),
	}
	require.NoError(t, repo.Create(ctx, first))

	second := &models.Course{
		Kind:            models.CourseKindTrial,
		CustomerID:      customer.ID,
		TrialCustomerID: &customer.ID,
		TrialStatus:     models.TrialStatusRegistered,
	}
	assert.Error(t, repo.Create(ctx, second), "唯一索引拒绝第二节试听课")

	// 正课不写 TrialCustomerID，不受限制
	for i := 0; i < 2; i++ {
		formal := &models.Course{Kind: models.CourseKindFormal, CustomerID: customer.ID, Sessions: 10, UnitPrice: dec("100")}
		require.NoError(t, repo.Create(ctx, formal))
	}

	trial, err := repo.GetTrialByCustomer(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, trial.ID)
	assertDecimal(t, "99", trial.TrialPrice)
}

func TestCourseRepository_FindAllFilter(t *testing.T) {
	db := setupTestDB(t)
	customers := NewCustomerRepository(db)
	repo := NewCourseRepository(db)
	ctx := context.Background()

	c1 := createTestCustomer(t, customers, "+8613800000001")
	c2 := createTestCustomer(t, customers, "+8613800000002")
	emp := int64(7)

	jan := utc(2024, time.January, 15)
	feb := utc(2024, time.February, 1)

	rows := []*models.Course{
		{Kind: models.CourseKindTrial, CustomerID: c1.ID, TrialCustomerID: &c1.ID, TrialStatus: models.TrialStatusCompleted, AssignedEmployeeID: &emp, CreatedAt: jan},
		{Kind: models.CourseKindTrial, CustomerID: c2.ID, TrialCustomerID: &c2.ID, TrialStatus: models.TrialStatusMisOperation, CreatedAt: jan},
		{Kind: models.CourseKindFormal, CustomerID: c1.ID, Sessions: 10, AssignedEmployeeID: &emp, CreatedAt: jan},
		{Kind: models.CourseKindFormal, CustomerID: c1.ID, Sessions: 10, IsRenewal: true, CreatedAt: feb},
	}
	for _, row := range rows {
		require.NoError(t, repo.Create(ctx, row))
	}

	start := utc(2024, time.January, 1)
	end := utc(2024, time.February, 1)

	t.Run("窗口半开区间", func(t *testing.T) {
		list, err := repo.FindAll(ctx, &CourseFilter{Start: &start, End: &end})
		require.NoError(t, err)
		assert.Len(t, list, 3)
	})

	t.Run("排除误操作", func(t *testing.T) {
		list, err := repo.FindAll(ctx, &CourseFilter{Start: &start, End: &end, ExcludeMisOperation: true})
		require.NoError(t, err)
		assert.Len(t, list, 2)

		count, err := repo.CountInWindow(ctx, start, end)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("按员工筛选", func(t *testing.T) {
		list, err := repo.FindAll(ctx, &CourseFilter{EmployeeID: &emp})
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("按续课筛选并分页", func(t *testing.T) {
		renewal := true
		list, total, err := repo.List(ctx, &CourseFilter{Kind: models.CourseKindFormal, IsRenewal: &renewal}, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, list, 1)
		assert.True(t, list[0].IsRenewal)
	})
}

func TestCourseRepository_ClearWeakReferences(t *testing.T) {
	db := setupTestDB(t)
	customers := NewCustomerRepository(db)
	repo := NewCourseRepository(db)
	ctx := context.Background()

	c1 := createTestCustomer(t, customers, "+8613800000001")

	trial := &models.Course{Kind: models.CourseKindTrial, CustomerID: c1.ID, TrialCustomerID: &c1.ID, TrialStatus: models.TrialStatusConverted}
	require.NoError(t, repo.Create(ctx, trial))
	formal := &models.Course{Kind: models.CourseKindFormal, CustomerID: c1.ID, Sessions: 10, ConvertedFromTrialID: &trial.ID}
	require.NoError(t, repo.Create(ctx, formal))
	renewal := &models.Course{Kind: models.CourseKindFormal, CustomerID: c1.ID, Sessions: 5, IsRenewal: true, RenewalFromCourseID: &formal.ID}
	require.NoError(t, repo.Create(ctx, renewal))
	require.NoError(t, repo.UpdateFields(ctx, trial.ID, map[string]interface{}{"converted_to_course_id": formal.ID}))

	require.NoError(t, repo.ClearWeakReferences(ctx, []int64{formal.ID}))

	got, err := repo.GetByID(ctx, trial.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ConvertedToCourseID)

	got, err = repo.GetByID(ctx, renewal.ID)
	require.NoError(t, err)
	assert.Nil(t, got.RenewalFromCourseID)

	ids, err := repo.IDsByCustomer(ctx, c1.ID)
	require.NoError(t, err)
	assert.Len(t, ids, 3)
}
