package course

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dumeirei/edu-backoffice/internal/common/cache"
	"github.com/dumeirei/edu-backoffice/internal/common/errors"
	"github.com/dumeirei/edu-backoffice/internal/models"
	"github.com/dumeirei/edu-backoffice/internal/repository"
	"github.com/dumeirei/edu-backoffice/internal/service/setting"
	"github.com/dumeirei/edu-backoffice/internal/testutil"
)

var dec = testutil.Dec

type fixture struct {
	db        *gorm.DB
	svc       *CourseService
	courses   *repository.CourseRepository
	customers *repository.CustomerRepository
	refunds   *repository.RefundRepository
	employees *repository.EmployeeRepository
	registry  *setting.Registry
	phone     int
}

func setup(t *testing.T, locker cache.Locker) *fixture {
	db := testutil.NewDB(t)
	f := &fixture{
		db:        db,
		courses:   repository.NewCourseRepository(db),
		customers: repository.NewCustomerRepository(db),
		refunds:   repository.NewRefundRepository(db),
		employees: repository.NewEmployeeRepository(db),
	}
	f.registry = setting.NewRegistry(db, repository.NewSystemConfigRepository(db), map[string]string{
		models.ConfigKeyCourseCost:    "20",
		models.ConfigKeyTaobaoFeeRate: "0.6",
	})
	f.svc = NewCourseService(db, f.courses, f.customers, f.refunds, f.employees, f.registry, locker)
	return f
}

func (f *fixture) customer(t *testing.T) *models.Customer {
	f.phone++
	c := &models.Customer{Name: "客户", Phone: fmt.Sprintf("+86138%08d", f.phone)}
	require.NoError(t, f.customers.Create(context.Background(), c))
	return c
}

func (f *fixture) employee(t *testing.T, name string) *models.Employee {
	e := &models.Employee{Name: name, IsActive: true}
	require.NoError(t, f.employees.Create(context.Background(), e))
	return e
}

func payload(sessions int, price string) *FormalPayload {
	return &FormalPayload{Sessions: sessions, UnitPrice: dec(price), PaymentChannel: models.ChannelTaobao}
}

func TestCourseService_CreateTrial(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	c := f.customer(t)

	trial, err := f.svc.CreateTrial(ctx, &CreateTrialRequest{CustomerID: c.ID, TrialPrice: dec("99")})
	require.NoError(t, err)
	assert.Equal(t, models.TrialStatusRegistered, trial.TrialStatus)
	assert.Equal(t, models.CourseKindTrial, trial.Kind)

	_, err = f.svc.CreateTrial(ctx, &CreateTrialRequest{CustomerID: c.ID})
	assert.True(t, errors.Is(err, errors.ErrTrialAlreadyExists))

	t.Run("初始状态", func(t *testing.T) {
		other := f.customer(t)
		_, err := f.svc.CreateTrial(ctx, &CreateTrialRequest{CustomerID: other.ID, TrialStatus: models.TrialStatusConverted})
		assert.True(t, errors.Is(err, errors.ErrInvalidParams))

		created, err := f.svc.CreateTrial(ctx, &CreateTrialRequest{CustomerID: other.ID, TrialStatus: models.TrialStatusNotRegistered})
		require.NoError(t, err)
		assert.Equal(t, models.TrialStatusNotRegistered, created.TrialStatus)
	})

	t.Run("客户或员工不存在", func(t *testing.T) {
		_, err := f.svc.CreateTrial(ctx, &CreateTrialRequest{CustomerID: 999})
		assert.True(t, errors.Is(err, errors.ErrCustomerNotFound))

		other := f.customer(t)
		missing := int64(999)
		_, err = f.svc.CreateTrial(ctx, &CreateTrialRequest{CustomerID: other.ID, AssignedEmployeeID: &missing})
		assert.True(t, errors.Is(err, errors.ErrEmployeeNotFound))
	})

	t.Run("负价格", func(t *testing.T) {
		other := f.customer(t)
		_, err := f.svc.CreateTrial(ctx, &CreateTrialRequest{CustomerID: other.ID, TrialPrice: dec("-1")})
		assert.True(t, errors.Is(err, errors.ErrInvalidParams))
	})
}

func TestCourseService_CreateTrialConcurrent(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := setup(t, cache.NewRedisLocker(client, 5*time.Second))
	ctx := context.Background()
	c := f.customer(t)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateTrial(ctx, &CreateTrialRequest{CustomerID: c.ID, TrialPrice: dec("99")})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, errors.ErrTrialAlreadyExists):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, 4, conflicts)
}

func TestCourseService_CreateFormalSnapshots(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	c := f.customer(t)

	course, err := f.svc.CreateFormal(ctx, &CreateFormalRequest{
		CustomerID: c.ID,
		FormalPayload: FormalPayload{
			Sessions:       10,
			UnitPrice:      dec("100"),
			PaymentChannel: models.ChannelTaobao,
			Meta:           map[string]interface{}{"tutor": "王老师"},
		},
	})
	require.NoError(t, err)
	require.True(t, course.SnapshotCourseCost.Valid)
	testutil.AssertDecimal(t, "20", course.SnapshotCourseCost.Decimal)
	testutil.AssertDecimal(t, "0.006", course.SnapshotFeeRate.Decimal)
	assert.JSONEq(t, `{"tutor":"王老师"}`, string(course.Meta))
	assert.False(t, course.IsRenewal)

	// 修改配置不影响已有快照
	require.NoError(t, f.registry.Set(ctx, models.ConfigKeyCourseCost, "35"))
	got, err := f.svc.Get(ctx, course.ID)
	require.NoError(t, err)
	testutil.AssertDecimal(t, "20", got.SnapshotCourseCost.Decimal)

	_, err = f.svc.CreateFormal(ctx, &CreateFormalRequest{CustomerID: c.ID, FormalPayload: FormalPayload{Sessions: 0}})
	assert.True(t, errors.Is(err, errors.ErrInvalidParams))
}

func TestCourseService_CreateFormalRequiresRates(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	c := f.customer(t)

	registry := setting.NewRegistry(f.db, repository.NewSystemConfigRepository(f.db), map[string]string{
		models.ConfigKeyCourseCost: "20",
	})
	svc := NewCourseService(f.db, f.courses, f.customers, f.refunds, f.employees, registry, nil)

	req := &CreateFormalRequest{
		CustomerID:    c.ID,
		FormalPayload: FormalPayload{Sessions: 5, UnitPrice: dec("100"), PaymentChannel: models.ChannelWechat},
	}
	_, err := svc.CreateFormal(ctx, req)
	assert.True(t, errors.Is(err, errors.ErrConfigMissing))
	assert.Equal(t, errors.KindConfig, errors.KindOf(err))

	list, err := f.courses.FindAll(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, registry.Set(ctx, models.ConfigKeyTaobaoFeeRate, "0"))
	course, err := svc.CreateFormal(ctx, req)
	require.NoError(t, err)
	require.True(t, course.SnapshotFeeRate.Valid)
	testutil.AssertDecimal(t, "0", course.SnapshotFeeRate.Decimal)
}

func TestCourseService_ConvertTrial(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	c := f.customer(t)
	emp := f.employee(t, "张三")

	trial, err := f.svc.CreateTrial(ctx, &CreateTrialRequest{CustomerID: c.ID, TrialPrice: dec("99"), AssignedEmployeeID: &emp.ID})
	require.NoError(t, err)

	in := &FormalPayload{Sessions: 20, UnitPrice: dec("100"), PaymentChannel: models.ChannelWechat}
	result, err := f.svc.ConvertTrial(ctx, trial.ID, in)
	require.NoError(t, err)
	assert.Nil(t, in.AssignedEmployeeID, "调用方的请求不被修改")

	assert.Equal(t, models.TrialStatusConverted, result.Trial.TrialStatus)
	require.NotNil(t, result.Trial.ConvertedToCourseID)
	assert.Equal(t, result.Formal.ID, *result.Trial.ConvertedToCourseID)
	require.NotNil(t, result.Formal.ConvertedFromTrialID)
	assert.Equal(t, trial.ID, *result.Formal.ConvertedFromTrialID)
	assert.Equal(t, c.ID, result.Formal.CustomerID)
	require.NotNil(t, result.Formal.AssignedEmployeeID)
	assert.Equal(t, emp.ID, *result.Formal.AssignedEmployeeID, "默认沿用试听课负责人")

	stored, err := f.svc.Get(ctx, trial.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TrialStatusConverted, stored.TrialStatus)

	_, err = f.svc.ConvertTrial(ctx, trial.ID, in)
	assert.True(t, errors.Is(err, errors.ErrAlreadyConverted))
	assert.Equal(t, errors.KindConflict, errors.KindOf(err))

	_, err = f.svc.ConvertTrial(ctx, result.Formal.ID, in)
	assert.True(t, errors.Is(err, errors.ErrNotTrial))
}

func TestCourseService_ConvertTrialFromTerminalStatus(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	c := f.customer(t)

	trial, err := f.svc.CreateTrial(ctx, &CreateTrialRequest{CustomerID: c.ID})
	require.NoError(t, err)
	_, err = f.svc.UpdateTrialStatus(ctx, trial.ID, models.TrialStatusNoAction)
	require.NoError(t, err)

	_, err = f.svc.ConvertTrial(ctx, trial.ID, payload(10, "100"))
	assert.True(t, errors.Is(err, errors.ErrInvalidTransition))

	// 失败的转化不留下正课
	list, err := f.svc.List(ctx, &ListRequest{Kind: models.CourseKindFormal})
	require.NoError(t, err)
	assert.Zero(t, list.Total)
}

func TestCourseService_UpdateTrialStatus(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	c := f.customer(t)
	trial, err := f.svc.CreateTrial(ctx, &CreateTrialRequest{CustomerID: c.ID})
	require.NoError(t, err)

	_, err = f.svc.UpdateTrialStatus(ctx, trial.ID, models.TrialStatusConverted)
	assert.True(t, errors.Is(err, errors.ErrInvalidTransition))

	_, err = f.svc.UpdateTrialStatus(ctx, trial.ID, "bogus")
	assert.True(t, errors.Is(err, errors.ErrInvalidParams))

	updated, err := f.svc.UpdateTrialStatus(ctx, trial.ID, models.TrialStatusScheduled)
	require.NoError(t, err)
	assert.Equal(t, models.TrialStatusScheduled, updated.TrialStatus)

	// 相同状态不报错
	_, err = f.svc.UpdateTrialStatus(ctx, trial.ID, models.TrialStatusScheduled)
	require.NoError(t, err)

	_, err = f.svc.UpdateTrialStatus(ctx, trial.ID, models.TrialStatusRegistered)
	assert.True(t, errors.Is(err, errors.ErrInvalidTransition))
}

func TestCourseService_CreateRenewal(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	c := f.customer(t)

	root, err := f.svc.CreateFormal(ctx, &CreateFormalRequest{CustomerID: c.ID, FormalPayload: *payload(10, "100")})
	require.NoError(t, err)

	first, err := f.svc.CreateRenewal(ctx, root.ID, payload(5, "90"))
	require.NoError(t, err)
	assert.True(t, first.IsRenewal)
	assert.Equal(t, root.ID, *first.RenewalFromCourseID)
	assert.Equal(t, c.ID, first.CustomerID)

	second, err := f.svc.CreateRenewal(ctx, first.ID, payload(5, "90"))
	require.NoError(t, err)
	assert.Equal(t, root.ID, *second.RenewalFromCourseID, "续课的续课指向链首")

	trial, err := f.svc.CreateTrial(ctx, &CreateTrialRequest{CustomerID: c.ID})
	require.NoError(t, err)
	_, err = f.svc.CreateRenewal(ctx, trial.ID, payload(5, "90"))
	assert.True(t, errors.Is(err, errors.ErrRenewalFromTrial))

	_, err = f.svc.CreateRenewal(ctx, 999, payload(5, "90"))
	assert.True(t, errors.Is(err, errors.ErrCourseNotFound))
}

func TestCourseService_CreateRenewalBrokenChain(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	c := f.customer(t)

	missing := int64(999)
	orphan := &models.Course{Kind: models.CourseKindFormal, CustomerID: c.ID, Sessions: 5, IsRenewal: true, RenewalFromCourseID: &missing}
	require.NoError(t, f.courses.Create(ctx, orphan))

	renewal, err := f.svc.CreateRenewal(ctx, orphan.ID, payload(5, "90"))
	require.NoError(t, err)
	assert.Equal(t, orphan.ID, *renewal.RenewalFromCourseID)
}

func TestCourseService_UpdateFormal(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	c := f.customer(t)

	legacy := &models.Course{Kind: models.CourseKindFormal, CustomerID: c.ID, Sessions: 10, UnitPrice: dec("100")}
	require.NoError(t, f.courses.Create(ctx, legacy))
	require.NoError(t, f.refunds.Create(ctx, &models.CourseRefund{
		CourseID:       legacy.ID,
		RefundSessions: 4,
		RefundAmount:   dec("400"),
		RefundChannel:  models.ChannelWechat,
		RefundDate:     testutil.Date(2024, time.January, 5),
		Status:         models.RefundStatusCompleted,
	}))

	three := 3
	_, err := f.svc.UpdateFormal(ctx, legacy.ID, &UpdateFormalRequest{Sessions: &three})
	assert.True(t, errors.Is(err, errors.ErrSessionsBelowRefund))

	eight := 8
	custom := dec("15")
	updated, err := f.svc.UpdateFormal(ctx, legacy.ID, &UpdateFormalRequest{Sessions: &eight, CustomCourseCost: &custom})
	require.NoError(t, err)
	assert.Equal(t, 8, updated.Sessions)
	testutil.AssertDecimal(t, "15", updated.CustomCourseCost.Decimal)
	require.True(t, updated.SnapshotCourseCost.Valid, "缺失的快照按当前配置补齐")
	testutil.AssertDecimal(t, "20", updated.SnapshotCourseCost.Decimal)
	testutil.AssertDecimal(t, "0.006", updated.SnapshotFeeRate.Decimal)

	remaining, err := f.svc.RemainingSessions(ctx, legacy.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, remaining)

	cleared, err := f.svc.UpdateFormal(ctx, legacy.ID, &UpdateFormalRequest{ClearCustomCourseCost: true})
	require.NoError(t, err)
	assert.False(t, cleared.CustomCourseCost.Valid)
}

func TestCourseService_UpdateTrial(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	c := f.customer(t)
	trial, err := f.svc.CreateTrial(ctx, &CreateTrialRequest{CustomerID: c.ID, TrialPrice: dec("99")})
	require.NoError(t, err)

	cost := dec("12")
	updated, err := f.svc.UpdateTrial(ctx, trial.ID, &UpdateTrialRequest{CustomTrialCost: &cost})
	require.NoError(t, err)
	require.True(t, updated.CustomTrialCost.Valid)
	testutil.AssertDecimal(t, "12", updated.CustomTrialCost.Decimal)

	updated, err = f.svc.UpdateTrial(ctx, trial.ID, &UpdateTrialRequest{ClearCustomTrialCost: true})
	require.NoError(t, err)
	assert.False(t, updated.CustomTrialCost.Valid)

	formal, err := f.svc.CreateFormal(ctx, &CreateFormalRequest{CustomerID: c.ID, FormalPayload: *payload(1, "1")})
	require.NoError(t, err)
	_, err = f.svc.UpdateTrial(ctx, formal.ID, &UpdateTrialRequest{})
	assert.True(t, errors.Is(err, errors.ErrNotTrial))
}

func TestCourseService_DeleteFormalKeepsTrialConverted(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	c := f.customer(t)

	trial, err := f.svc.CreateTrial(ctx, &CreateTrialRequest{CustomerID: c.ID})
	require.NoError(t, err)
	result, err := f.svc.ConvertTrial(ctx, trial.ID, payload(10, "100"))
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, result.Formal.ID))

	stored, err := f.svc.Get(ctx, trial.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TrialStatusConverted, stored.TrialStatus)
	assert.Nil(t, stored.ConvertedToCourseID)

	_, err = f.svc.Get(ctx, result.Formal.ID)
	assert.True(t, errors.Is(err, errors.ErrCourseNotFound))
	assert.True(t, errors.Is(f.svc.Delete(ctx, result.Formal.ID), errors.ErrCourseNotFound))
}

func TestCourseService_List(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	c := f.customer(t)

	_, err := f.svc.CreateTrial(ctx, &CreateTrialRequest{CustomerID: c.ID})
	require.NoError(t, err)
	formal, err := f.svc.CreateFormal(ctx, &CreateFormalRequest{CustomerID: c.ID, FormalPayload: *payload(10, "100")})
	require.NoError(t, err)
	_, err = f.svc.CreateRenewal(ctx, formal.ID, payload(5, "100"))
	require.NoError(t, err)

	all, err := f.svc.List(ctx, &ListRequest{CustomerID: &c.ID, IncludeCustomer: true})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)
	for _, item := range all.List {
		require.NotNil(t, item.Customer)
		assert.Equal(t, c.ID, item.Customer.ID)
		if item.IsFormal() {
			require.NotNil(t, item.RemainingSessions)
		} else {
			assert.Nil(t, item.RemainingSessions)
		}
	}

	renewal := true
	renewals, err := f.svc.List(ctx, &ListRequest{IsRenewal: &renewal})
	require.NoError(t, err)
	assert.Equal(t, int64(1), renewals.Total)

	_, err = f.svc.List(ctx, &ListRequest{Kind: "vip"})
	assert.True(t, errors.Is(err, errors.ErrInvalidParams))
}
