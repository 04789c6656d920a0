package database

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"github.com/dumeirei/edu-backoffice/internal/common/errors"
	"github.com/dumeirei/edu-backoffice/internal/common/logger"
	"github.com/dumeirei/edu-backoffice/internal/common/metrics"
)

// Transaction 在 db 上执行事务，回滚时记录一次日志
//
// fn 返回的 AppError 原样传出；存储层的原始错误包装为 ErrTransactionFailed。
// 已在事务中的 db 会使用保存点，内层错误同样原样传给外层。
func Transaction(ctx context.Context, db *gorm.DB, module string, fn func(tx *gorm.DB) error) error {
	err := db.WithContext(ctx).Transaction(fn)
	if err == nil {
		return nil
	}

	kind := errors.KindOf(err)
	logger.Warn("transaction rolled back",
		logger.Module(module),
		logger.ErrKind(string(kind)),
		logger.Err(err),
	)
	metrics.RecordRollbackGlobal(module, string(kind))

	if errors.IsAppError(err) {
		return err
	}
	return errors.ErrTransactionFailed.WithError(err)
}

// ReadSnapshot 在只读事务中执行报表查询，PostgreSQL 使用可重复读保证同一时点快照
//
// 只读的可重复读事务不会产生序列化冲突，无需重试。
func ReadSnapshot(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var opts []*sql.TxOptions
	if db.Dialector != nil && db.Dialector.Name() == "postgres" {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	}
	err := db.WithContext(ctx).Transaction(fn, opts...)
	if err == nil || errors.IsAppError(err) {
		return err
	}
	return errors.ErrDatabaseError.WithError(err)
}
