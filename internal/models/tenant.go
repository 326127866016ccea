package models

import (
	"time"

	"gorm.io/gorm"
)

// Tenant 租户，所有业务数据按租户 ID 隔离
type Tenant struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updatedAt" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Name   string `json:"name" gorm:"size:200;uniqueIndex"`
	Active bool   `json:"active" gorm:"default:true"`
}

func (Tenant) TableName() string {
	return "tenants"
}

// GetTenant 按 ID 获取租户
func GetTenant(db *gorm.DB, tenantID uint) (*Tenant, error) {
	var tenant Tenant
	if err := db.First(&tenant, tenantID).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}
