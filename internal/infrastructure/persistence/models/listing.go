package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/n3/backend/internal/domain/integration"
	"github.com/n3/backend/internal/domain/listing"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// StrategyDecisionModel stores the latest strategy decision per SKU
type StrategyDecisionModel struct {
	BaseModel
	SKU                 string                   `gorm:"type:varchar(64);not null;uniqueIndex:idx_strategy_decisions_sku"`
	Status              listing.DecisionStatus   `gorm:"type:varchar(20);not null"`
	RecommendedPlatform integration.PlatformCode `gorm:"type:varchar(20)"`
	RecommendedAccount  string                   `gorm:"type:varchar(100)"`
	Score               decimal.Decimal          `gorm:"type:decimal(10,6);not null;default:0"`
	ListingPrice        decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	Currency            string                   `gorm:"type:varchar(3)"`
	Candidates          datatypes.JSONSlice[listing.StrategyCandidate]
	Error               string    `gorm:"type:text"`
	DecidedAt           time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StrategyDecisionModel) TableName() string {
	return "strategy_decisions"
}

// ToDomain converts the persistence model to a domain decision
func (m *StrategyDecisionModel) ToDomain() *listing.StrategyDecision {
	return &listing.StrategyDecision{
		BaseEntity:          m.BaseModel.ToDomain(),
		SKU:                 m.SKU,
		Status:              m.Status,
		RecommendedPlatform: m.RecommendedPlatform,
		RecommendedAccount:  m.RecommendedAccount,
		Score:               m.Score,
		ListingPrice:        m.ListingPrice,
		Currency:            m.Currency,
		Candidates:          []listing.StrategyCandidate(m.Candidates),
		Error:               m.Error,
		DecidedAt:           m.DecidedAt,
	}
}

// FromDomain populates the model
func (m *StrategyDecisionModel) FromDomain(d *listing.StrategyDecision) {
	m.FromDomainBaseEntity(d.BaseEntity)
	m.SKU = d.SKU
	m.Status = d.Status
	m.RecommendedPlatform = d.RecommendedPlatform
	m.RecommendedAccount = d.RecommendedAccount
	m.Score = d.Score
	m.ListingPrice = d.ListingPrice
	m.Currency = d.Currency
	m.Candidates = datatypes.JSONSlice[listing.StrategyCandidate](d.Candidates)
	m.Error = d.Error
	m.DecidedAt = d.DecidedAt
}

// ExecutionQueueItemModel tracks dispatch attempts for one placement
type ExecutionQueueItemModel struct {
	ID          uuid.UUID                `gorm:"type:uuid;primaryKey"`
	SKU         string                   `gorm:"type:varchar(64);not null;uniqueIndex:idx_execution_queue_key,priority:1"`
	Platform    integration.PlatformCode `gorm:"type:varchar(20);not null;uniqueIndex:idx_execution_queue_key,priority:2"`
	AccountID   string                   `gorm:"type:varchar(100);not null;uniqueIndex:idx_execution_queue_key,priority:3"`
	Status      listing.QueueStatus      `gorm:"type:varchar(20);not null;index:idx_execution_queue_status,priority:1"`
	RetryCount  int                      `gorm:"not null;default:0"`
	MaxRetries  int                      `gorm:"not null;default:0"`
	LastError   string                   `gorm:"type:text"`
	NextRetryAt *time.Time               `gorm:"index:idx_execution_queue_status,priority:2"`
	ClaimedAt   *time.Time
	ListingID   string `gorm:"type:varchar(100)"`
	Payload     datatypes.JSON
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ExecutionQueueItemModel) TableName() string {
	return "execution_queue"
}

// ToDomain converts the persistence model to a domain queue item.
// An unreadable payload is dropped; the dispatcher rebuilds it from the decision.
func (m *ExecutionQueueItemModel) ToDomain() *listing.ExecutionQueueItem {
	item := &listing.ExecutionQueueItem{
		ID:          m.ID,
		SKU:         m.SKU,
		Platform:    m.Platform,
		AccountID:   m.AccountID,
		Status:      m.Status,
		RetryCount:  m.RetryCount,
		MaxRetries:  m.MaxRetries,
		LastError:   m.LastError,
		NextRetryAt: m.NextRetryAt,
		ClaimedAt:   m.ClaimedAt,
		ListingID:   m.ListingID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if len(m.Payload) > 0 && string(m.Payload) != "null" {
		var payload integration.ListingPayload
		if err := json.Unmarshal(m.Payload, &payload); err == nil {
			item.Payload = &payload
		}
	}
	return item
}

// FromDomain populates the model
func (m *ExecutionQueueItemModel) FromDomain(i *listing.ExecutionQueueItem) error {
	m.ID = i.ID
	m.SKU = i.SKU
	m.Platform = i.Platform
	m.AccountID = i.AccountID
	m.Status = i.Status
	m.RetryCount = i.RetryCount
	m.MaxRetries = i.MaxRetries
	m.LastError = i.LastError
	m.NextRetryAt = i.NextRetryAt
	m.ClaimedAt = i.ClaimedAt
	m.ListingID = i.ListingID
	m.CreatedAt = i.CreatedAt
	m.UpdatedAt = i.UpdatedAt
	m.Payload = nil
	if i.Payload != nil {
		raw, err := json.Marshal(i.Payload)
		if err != nil {
			return err
		}
		m.Payload = datatypes.JSON(raw)
	}
	return nil
}

// ExecutionLogModel is an immutable record of one dispatch attempt
type ExecutionLogModel struct {
	ID         uuid.UUID                `gorm:"type:uuid;primaryKey"`
	QueueID    uuid.UUID                `gorm:"type:uuid;not null;index"`
	SKU        string                   `gorm:"type:varchar(64);not null;index"`
	Platform   integration.PlatformCode `gorm:"type:varchar(20);not null"`
	AccountID  string                   `gorm:"type:varchar(100);not null"`
	Attempt    int                      `gorm:"not null"`
	Outcome    listing.ExecutionOutcome `gorm:"type:varchar(20);not null;index:idx_execution_logs_outcome_created,priority:1"`
	ListingID  string                   `gorm:"type:varchar(100)"`
	Error      string                   `gorm:"type:text"`
	DurationMs int64                    `gorm:"not null;default:0"`
	CreatedAt  time.Time                `gorm:"not null;index:idx_execution_logs_outcome_created,priority:2"`
}

// TableName returns the table name for GORM
func (ExecutionLogModel) TableName() string {
	return "execution_logs"
}

// ToDomain converts the persistence model to a domain log entry
func (m *ExecutionLogModel) ToDomain() listing.ExecutionLog {
	return listing.ExecutionLog{
		ID:         m.ID,
		QueueID:    m.QueueID,
		SKU:        m.SKU,
		Platform:   m.Platform,
		AccountID:  m.AccountID,
		Attempt:    m.Attempt,
		Outcome:    m.Outcome,
		ListingID:  m.ListingID,
		Error:      m.Error,
		DurationMs: m.DurationMs,
		CreatedAt:  m.CreatedAt,
	}
}

// FromDomain populates the model
func (m *ExecutionLogModel) FromDomain(e *listing.ExecutionLog) {
	m.ID = e.ID
	m.QueueID = e.QueueID
	m.SKU = e.SKU
	m.Platform = e.Platform
	m.AccountID = e.AccountID
	m.Attempt = e.Attempt
	m.Outcome = e.Outcome
	m.ListingID = e.ListingID
	m.Error = e.Error
	m.DurationMs = e.DurationMs
	m.CreatedAt = e.CreatedAt
}
