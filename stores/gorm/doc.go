// Package gorm provides the production StorageAdapter implementation backed
// by a relational database through GORM.
//
// Usage:
//
//	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
//	if err != nil { ... }
//	if err := authgorm.AutoMigrate(db); err != nil { ... }
//	adapter := authgorm.New(db)
//
// The composite create runs inside a single database transaction; everything
// else is single-row.
package gorm
