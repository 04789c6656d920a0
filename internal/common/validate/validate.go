// Package validate 封装请求参数校验
package validate

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/dumeirei/edu-backoffice/internal/common/errors"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// Get 返回共享的校验器
func Get() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{}, decimal.NullDecimal{})
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		instance = v
	})
	return instance
}

// decimalValue 让 gt/gte/lte 等数值标签作用于十进制字段
func decimalValue(field reflect.Value) interface{} {
	switch v := field.Interface().(type) {
	case decimal.Decimal:
		f, _ := v.Float64()
		return f
	case decimal.NullDecimal:
		if !v.Valid {
			return nil
		}
		f, _ := v.Decimal.Float64()
		return f
	}
	return nil
}

// Struct 校验结构体，失败时返回 ErrInvalidParams
func Struct(s interface{}) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) && len(verrs) > 0 {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, describe(fe))
		}
		return errors.ErrInvalidParams.WithMessage(strings.Join(msgs, "; ")).WithError(err)
	}
	return errors.ErrInvalidParams.WithError(err)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s 不能为空", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s 必须是 [%s] 之一", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s 必须大于 %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s 不能小于 %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s 不能大于 %s", fe.Field(), fe.Param())
	case "min", "max":
		return fmt.Sprintf("%s 超出范围", fe.Field())
	case "email":
		return fmt.Sprintf("%s 格式不正确", fe.Field())
	default:
		return fmt.Sprintf("%s 校验失败 (%s)", fe.Field(), fe.Tag())
	}
}
