package models

import (
	"errors"
	"regexp"
	"strconv"

	"gorm.io/gorm"
)

// 租户隔离错误
// 拒绝访问与资源不存在必须不可区分：两种情况返回同一个错误、
// 同一条文案，不向调用方泄露其他租户资源的存在性
var (
	ErrAccessDenied      = errors.New("resource not found or access denied")
	ErrInvalidResourceID = errors.New("invalid resource id")
)

// resourceIDPattern 合法资源 ID 的形态：十进制数字主键
var resourceIDPattern = regexp.MustCompile(`^[1-9][0-9]{0,18}$`)

// ParseResourceID 校验并解析外部传入的资源 ID
// 形态不合法的 ID 在触达存储之前被拒绝，不产生任何查询
func ParseResourceID(raw string) (uint, error) {
	if !resourceIDPattern.MatchString(raw) {
		return 0, ErrInvalidResourceID
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, ErrInvalidResourceID
	}
	return uint(n), nil
}

// AuthorizeAgent 校验坐席归属后返回坐席
// 主键与租户 ID 在同一条查询中匹配，不做先取后比
func AuthorizeAgent(db *gorm.DB, tenantID, agentID uint) (*Agent, error) {
	var agent Agent
	err := db.Where("id = ? AND tenant_id = ?", agentID, tenantID).First(&agent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccessDenied
		}
		return nil, err
	}
	return &agent, nil
}

// AuthorizeCall 校验通话归属后返回通话记录
// 同时校验通话行与其引用坐席的租户归属（归属关系不从通话行单独推断）
func AuthorizeCall(db *gorm.DB, tenantID, callID uint) (*CallRecord, error) {
	var rec CallRecord
	err := db.
		Joins("JOIN agents ON agents.id = call_records.agent_id AND agents.tenant_id = ?", tenantID).
		Where("call_records.id = ? AND call_records.tenant_id = ?", callID, tenantID).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccessDenied
		}
		return nil, err
	}
	return &rec, nil
}

// AuthorizeCalls 批量校验，逐个 ID 检查
// 批量操作不作为整体授权，任何一个 ID 越权即拒绝整批
func AuthorizeCalls(db *gorm.DB, tenantID uint, callIDs []uint) ([]CallRecord, error) {
	records := make([]CallRecord, 0, len(callIDs))
	for _, id := range callIDs {
		rec, err := AuthorizeCall(db, tenantID, id)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}
