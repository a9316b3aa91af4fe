// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
//   - base.go: BaseModel and the schema list used by AutoMigrate in tests
//   - catalog.go: products
//   - integration.go: marketplace settings
//   - logistics.go: duty rates, shipping services, band rates, rate tables
//   - listing.go: strategy decisions, execution queue, execution log
//
// Column types stay portable between PostgreSQL and SQLite. JSON columns use
// gorm.io/datatypes so they become JSONB on PostgreSQL and JSON on SQLite.
package models
