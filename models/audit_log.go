package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionLoginSucceeded  AuditAction = "login_succeeded"
	AuditActionLoginFailed     AuditAction = "login_failed"
	AuditActionSignup          AuditAction = "signup"
	AuditActionRefreshRotated  AuditAction = "refresh_rotated"
	AuditActionRefreshRejected AuditAction = "refresh_rejected"
	AuditActionStaffCreated    AuditAction = "staff_created"
	AuditActionStoreCreated    AuditAction = "store_created"
)

// AuditLog represents an audit trail entry
type AuditLog struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	UserID    *uuid.UUID      `json:"user_id,omitempty" db:"user_id"`
	CompanyID *uuid.UUID      `json:"company_id,omitempty" db:"company_id"`
	Action    AuditAction     `json:"action" db:"action"`
	Email     string          `json:"email,omitempty" db:"email"`
	Details   json.RawMessage `json:"details,omitempty" db:"details"`
	IPAddress string          `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent string          `json:"user_agent,omitempty" db:"user_agent"`
	RequestID string          `json:"request_id,omitempty" db:"request_id"`
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLog creates a new AuditLog instance
func NewAuditLog(action AuditAction) *AuditLog {
	return &AuditLog{
		ID:        uuid.New(),
		Action:    action,
		Timestamp: time.Now().UTC(),
	}
}

// WithUser sets the acting user
func (a *AuditLog) WithUser(userID uuid.UUID) *AuditLog {
	a.UserID = &userID
	return a
}

// WithCompany sets the tenant company
func (a *AuditLog) WithCompany(companyID uuid.UUID) *AuditLog {
	a.CompanyID = &companyID
	return a
}

// WithEmail records the email the action was attempted with
func (a *AuditLog) WithEmail(email string) *AuditLog {
	a.Email = email
	return a
}

// WithDetails sets the details
func (a *AuditLog) WithDetails(details interface{}) *AuditLog {
	if data, err := json.Marshal(details); err == nil {
		a.Details = data
	}
	return a
}

// WithRequest sets request metadata
func (a *AuditLog) WithRequest(meta RequestMeta) *AuditLog {
	a.RequestID = meta.RequestID
	a.IPAddress = meta.IPAddress
	a.UserAgent = meta.UserAgent
	return a
}

// RequestMeta carries the request attributes recorded with audit events
type RequestMeta struct {
	RequestID string
	IPAddress string
	UserAgent string
}
