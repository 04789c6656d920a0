package course

import (
	"context"

	"github.com/dumeirei/edu-backoffice/internal/common/errors"
	"github.com/dumeirei/edu-backoffice/internal/common/utils"
	"github.com/dumeirei/edu-backoffice/internal/models"
	"github.com/dumeirei/edu-backoffice/internal/repository"
)

// ListRequest 课程列表请求
type ListRequest struct {
	Kind            string `form:"kind"`
	TrialStatus     string `form:"status"`
	CustomerID      *int64 `form:"customer_id"`
	EmployeeID      *int64 `form:"employee_id"`
	IsRenewal       *bool  `form:"is_renewal"`
	IncludeCustomer bool   `form:"include_customer"`
	Page            int    `form:"page"`
	PageSize        int    `form:"page_size"`
}

// CourseItem 课程列表项
type CourseItem struct {
	*models.Course
	Customer *models.Customer `json:"customer,omitempty"`
	// RemainingSessions 正课剩余课时
	RemainingSessions *int `json:"remaining_sessions,omitempty"`
}

// ListResult 课程列表
type ListResult struct {
	List     []*CourseItem `json:"list"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// List 获取课程列表，可附带客户信息
func (s *CourseService) List(ctx context.Context, req *ListRequest) (*ListResult, error) {
	if req.Kind != "" && req.Kind != models.CourseKindTrial && req.Kind != models.CourseKindFormal {
		return nil, errors.ErrInvalidParams.WithMessage("无效的课程类型: " + req.Kind)
	}
	if req.TrialStatus != "" && !IsValidStatus(req.TrialStatus) {
		return nil, errors.ErrInvalidParams.WithMessage("未知的试听课状态: " + req.TrialStatus)
	}

	p := utils.Pagination{Page: req.Page, PageSize: req.PageSize}
	p.Normalize()

	courses, total, err := s.courseRepo.List(ctx, &repository.CourseFilter{
		Kind:        req.Kind,
		TrialStatus: req.TrialStatus,
		CustomerID:  req.CustomerID,
		EmployeeID:  req.EmployeeID,
		IsRenewal:   req.IsRenewal,
	}, p.GetOffset(), p.GetLimit())
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	var formalIDs, customerIDs []int64
	for _, c := range courses {
		if c.IsFormal() {
			formalIDs = append(formalIDs, c.ID)
		}
		customerIDs = append(customerIDs, c.CustomerID)
	}

	totals, err := s.refundRepo.CompletedTotalsByCourses(ctx, formalIDs)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	var customers map[int64]*models.Customer
	if req.IncludeCustomer {
		customers, err = s.customerRepo.GetByIDs(ctx, utils.Unique(customerIDs))
		if err != nil {
			return nil, errors.ErrDatabaseError.WithError(err)
		}
	}

	items := make([]*CourseItem, 0, len(courses))
	for _, c := range courses {
		item := &CourseItem{Course: c}
		if c.IsFormal() {
			remaining := c.Sessions - totals[c.ID].Sessions
			item.RemainingSessions = &remaining
		}
		if customers != nil {
			item.Customer = customers[c.CustomerID]
		}
		items = append(items, item)
	}
	return &ListResult{List: items, Total: total, Page: p.Page, PageSize: p.PageSize}, nil
}
