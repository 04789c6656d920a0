//go:build integration

package refund

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/edu-backoffice/internal/common/errors"
	"github.com/dumeirei/edu-backoffice/internal/models"
	"github.com/dumeirei/edu-backoffice/internal/repository"
	"github.com/dumeirei/edu-backoffice/internal/testutil"
)

// 并发退费在行锁下不能超过剩余课时
func TestRefundService_ConcurrentApplyPostgres(t *testing.T) {
	db := testutil.NewPostgresDB(t)
	ctx := context.Background()

	courses := repository.NewCourseRepository(db)
	refunds := repository.NewRefundRepository(db)
	svc := NewRefundService(db, courses, refunds)

	customer := &models.Customer{Name: "客户", Phone: "+8613800138000"}
	require.NoError(t, repository.NewCustomerRepository(db).Create(ctx, customer))
	course := &models.Course{
		Kind:           models.CourseKindFormal,
		CustomerID:     customer.ID,
		Sessions:       10,
		UnitPrice:      dec("100"),
		PaymentChannel: models.ChannelWechat,
	}
	require.NoError(t, courses.Create(ctx, course))

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		applied  int
		rejected int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Apply(ctx, course.ID, &ApplyRequest{Sessions: 3})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				applied++
			case errors.Is(err, errors.ErrRefundExceedsRemaining):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, applied)
	assert.Equal(t, workers-3, rejected)

	totals, err := refunds.CompletedTotals(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, totals.Sessions)
	testutil.AssertDecimal(t, "900", totals.Amount)
}
