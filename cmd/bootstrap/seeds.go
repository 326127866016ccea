package bootstrap

import (
	"gorm.io/gorm"

	"github.com/sddhantjaiii/calling-agent-backend/internal/models"
)

type SeedService struct {
	db *gorm.DB
}

func (s *SeedService) SeedAll() error {
	if err := s.seedTenants(); err != nil {
		return err
	}

	if err := s.seedAgents(); err != nil {
		return err
	}

	return nil
}

func (s *SeedService) seedTenants() error {
	defaultTenants := []models.Tenant{
		{Name: "Acme Sales", Active: true},
		{Name: "Demo Workspace", Active: true},
	}

	for _, tenant := range defaultTenants {
		var count int64
		err := s.db.Model(&models.Tenant{}).Where("name = ?", tenant.Name).Count(&count).Error
		if err != nil {
			return err
		}
		if count == 0 {
			if err := s.db.Create(&tenant).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *SeedService) seedAgents() error {
	var count int64
	if err := s.db.Model(&models.Agent{}).Count(&count).Error; err != nil {
		return err
	}
	if count != 0 {
		return nil // Data already exists, skip
	}

	var tenants []models.Tenant
	if err := s.db.Order("id ASC").Find(&tenants).Error; err != nil {
		return err
	}
	if len(tenants) == 0 {
		return nil
	}

	defaultAgents := []models.Agent{
		{
			TenantID:        tenants[0].ID,
			ProviderAgentID: "agent_demo_sales",
			Name:            "Sales Qualifier",
			Active:          true,
		},
		{
			TenantID:        tenants[0].ID,
			ProviderAgentID: "agent_demo_support",
			Name:            "Support Triage",
			Active:          true,
		},
	}
	if len(tenants) > 1 {
		defaultAgents = append(defaultAgents, models.Agent{
			TenantID:        tenants[1].ID,
			ProviderAgentID: "agent_demo_workspace",
			Name:            "Workspace Assistant",
			Active:          true,
		})
	}

	for i := range defaultAgents {
		if err := s.db.Create(&defaultAgents[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
