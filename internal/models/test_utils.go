package models

import (
	"io"
	"log"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glog "gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory sqlite database with a silent gorm logger
// and migrates the full analytics schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	silentLogger := glog.New(
		log.New(io.Discard, "", log.LstdFlags),
		glog.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  glog.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: silentLogger,
	})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	err = db.AutoMigrate(
		&Tenant{},
		&Agent{},
		&CallRecord{},
		&CallAnalysis{},
		&CallAggregate{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	return db
}

// seedTenantWithAgent creates a tenant and one active agent for it.
func seedTenantWithAgent(t *testing.T, db *gorm.DB, name, providerAgentID string) (*Tenant, *Agent) {
	t.Helper()

	tenant := &Tenant{Name: name, Active: true}
	if err := db.Create(tenant).Error; err != nil {
		t.Fatalf("Failed to create tenant: %v", err)
	}

	agent := &Agent{
		TenantID:        tenant.ID,
		ProviderAgentID: providerAgentID,
		Name:            name + " agent",
		Active:          true,
	}
	if err := db.Create(agent).Error; err != nil {
		t.Fatalf("Failed to create agent: %v", err)
	}

	return tenant, agent
}
