// Package errors 定义业务错误码和错误处理
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind 错误类别
type Kind string

// 错误类别
const (
	KindUnknown            Kind = "unknown"
	KindNotFound           Kind = "not_found"
	KindValidation         Kind = "validation"
	KindConflict           Kind = "conflict"
	KindBusinessRule       Kind = "business_rule"
	KindTransactionFailure Kind = "transaction_failure"
	KindConfig             Kind = "config"
)

// AppError 应用错误
type AppError struct {
	Code    int    `json:"code"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，使 errors.Is(err, ErrXxx) 对 WithMessage/WithError 派生的错误同样成立
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New 创建新的应用错误
func New(code int, kind Kind, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(code int, kind Kind, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// WithMessage 修改错误消息
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{
		Code:    e.Code,
		Kind:    e.Kind,
		Message: message,
		Err:     e.Err,
	}
}

// WithError 添加原始错误
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Kind:    e.Kind,
		Message: e.Message,
		Err:     err,
	}
}

// 通用错误码 (1000-1999)
var (
	ErrUnknown           = New(1000, KindUnknown, "未知错误")
	ErrInvalidParams     = New(1001, KindValidation, "参数错误")
	ErrNotFound          = New(1002, KindNotFound, "资源不存在")
	ErrAlreadyExists     = New(1003, KindConflict, "资源已存在")
	ErrDatabaseError     = New(1004, KindTransactionFailure, "数据库错误")
	ErrCacheError        = New(1005, KindTransactionFailure, "缓存错误")
	ErrInternalError     = New(1006, KindUnknown, "内部错误")
	ErrTransactionFailed = New(1007, KindTransactionFailure, "事务已回滚，可重试")
	ErrLockNotObtained   = New(1008, KindTransactionFailure, "资源繁忙，请稍后重试")
)

// 客户 / 课程错误码 (2000-2999)
var (
	ErrCustomerNotFound    = New(2000, KindNotFound, "客户不存在")
	ErrDuplicatePhone      = New(2001, KindConflict, "手机号已存在")
	ErrPhoneInvalid        = New(2002, KindValidation, "无效的手机号")
	ErrCourseNotFound      = New(2003, KindNotFound, "课程不存在")
	ErrTrialAlreadyExists  = New(2004, KindConflict, "该客户已有试听课")
	ErrAlreadyConverted    = New(2005, KindConflict, "试听课已转化")
	ErrInvalidTransition   = New(2006, KindBusinessRule, "无效的状态流转")
	ErrNotTrial            = New(2007, KindBusinessRule, "该课程不是试听课")
	ErrRenewalFromTrial    = New(2008, KindBusinessRule, "不能从试听课续课")
	ErrCustomerMismatch    = New(2009, KindBusinessRule, "课程不属于同一客户")
	ErrEmployeeNotFound    = New(2010, KindNotFound, "员工不存在")
	ErrEmployeeExists      = New(2011, KindConflict, "员工姓名已存在")
	ErrShillOrderNotFound  = New(2012, KindNotFound, "刷单记录不存在")
	ErrAlreadySettled      = New(2013, KindConflict, "刷单已结算")
	ErrSessionsBelowRefund = New(2014, KindBusinessRule, "课时数不能少于已退课时")
)

// 退费错误码 (3000-3999)
var (
	ErrRefundNotFound         = New(3000, KindNotFound, "退费记录不存在")
	ErrRefundNotFormal        = New(3001, KindBusinessRule, "只有正课可以退费")
	ErrRefundNotPositive      = New(3002, KindValidation, "退费课时必须大于0")
	ErrRefundExceedsRemaining = New(3003, KindBusinessRule, "退费课时超过剩余课时")
	ErrRefundAlreadyCancelled = New(3004, KindConflict, "退费已取消")
	ErrRefundAmountInvalid    = New(3005, KindValidation, "退费金额无效")
)

// 财务错误码 (4000-4999)
var (
	ErrOperationalCostNotFound = New(4000, KindNotFound, "运营成本不存在")
	ErrInvalidPeriod           = New(4001, KindValidation, "无效的统计周期")
)

// 分红错误码 (5000-5999)
var (
	ErrDividendNotFound      = New(5000, KindNotFound, "分红记录不存在")
	ErrInvalidShareholder    = New(5001, KindValidation, "无效的股东")
	ErrInvalidDividendAmount = New(5002, KindValidation, "无效的分红金额")
	ErrInvalidDividendDate   = New(5003, KindValidation, "无效的分红日期")
	ErrDividendPeriodExists  = New(5004, KindConflict, "该股东此周期分红记录已存在")
)

// 配置错误码 (6000-6999)
var (
	ErrConfigMissing = New(6000, KindConfig, "缺少必要配置")
	ErrConfigInvalid = New(6001, KindConfig, "配置值无效")
)

// IsAppError 判断是否为应用错误
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetAppError 获取应用错误
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return ErrUnknown.WithError(err)
}

// KindOf 返回错误类别；非应用错误视为存储层失败
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindTransactionFailure
}

// Is 透传标准库 errors.Is
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As 透传标准库 errors.As
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}
