package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/edu-backoffice/internal/models"
)

// CustomerRepository 客户仓储
type CustomerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository 创建客户仓储
func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *CustomerRepository) WithTx(tx *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: tx}
}

// Create 创建客户
func (r *CustomerRepository) Create(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

// GetByID 根据 ID 获取客户
func (r *CustomerRepository) GetByID(ctx context.Context, id int64) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetByPhone 根据手机号获取客户
func (r *CustomerRepository) GetByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// ExistsByPhone 检查手机号是否已存在，excludeID 非零时排除该客户
func (r *CustomerRepository) ExistsByPhone(ctx context.Context, phone string, excludeID int64) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.Customer{}).Where("phone = ?", phone)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

// Update 更新客户
func (r *CustomerRepository) Update(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Save(customer).Error
}

// Delete 删除客户
func (r *CustomerRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.Customer{}, id).Error
}

// GetByIDs 批量获取客户
func (r *CustomerRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Customer, error) {
	result := make(map[int64]*models.Customer, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var customers []*models.Customer
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&customers).Error; err != nil {
		return nil, err
	}
	for _, c := range customers {
		result[c.ID] = c
	}
	return result, nil
}

// CustomerFilter 客户查询过滤条件
type CustomerFilter struct {
	Keyword string
	Source  string
}

// List 获取客户列表
func (r *CustomerRepository) List(ctx context.Context, filter *CustomerFilter, offset, limit int) ([]*models.Customer, int64, error) {
	var customers []*models.Customer
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Customer{})
	if filter != nil {
		if filter.Keyword != "" {
			keyword := "%" + filter.Keyword + "%"
			query = query.Where("name LIKE ? OR phone LIKE ?", keyword, keyword)
		}
		if filter.Source != "" {
			query = query.Where("source = ?", filter.Source)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("id DESC").Offset(offset).Limit(limit).Find(&customers).Error; err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}
