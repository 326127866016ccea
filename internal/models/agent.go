package models

import (
	"time"

	"gorm.io/gorm"
)

// Agent 租户在外部通话提供商侧配置的坐席
// ProviderAgentID 是提供商分配的标识，回调事件据此归属到租户；
// 全局唯一，否则归属不确定，恶意租户还能抢注他人坐席截取数据
type Agent struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updatedAt" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	TenantID        uint   `json:"tenantId" gorm:"index"`
	ProviderAgentID string `json:"providerAgentId" gorm:"size:200;uniqueIndex"`
	Name            string `json:"name" gorm:"size:200"`
	Active          bool   `json:"active" gorm:"default:true"`
}

func (Agent) TableName() string {
	return "agents"
}

// FindAgentByProviderID 按提供商坐席标识查找 Agent
// 回调事件不携带租户身份，租户归属由坐席注册关系决定
func FindAgentByProviderID(db *gorm.DB, providerAgentID string) (*Agent, error) {
	var agent Agent
	err := db.Where("provider_agent_id = ? AND active = ?", providerAgentID, true).
		First(&agent).Error
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

// ListAgents 列出租户下的全部坐席
func ListAgents(db *gorm.DB, tenantID uint) ([]Agent, error) {
	var agents []Agent
	err := db.Where("tenant_id = ?", tenantID).Order("id ASC").Find(&agents).Error
	return agents, err
}
