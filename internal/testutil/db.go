// Package testutil provides a real gorm database for package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"storefront/internal/domain/model"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated sqlite file in t.TempDir. A single connection is
// shared so transactions serialize like row locks would.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.Product{},
		&model.PaymentMethod{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.Payment{},
		&model.AuditLog{},
		&model.OutboxEvent{},
	))
	return db
}

// SeedProduct inserts an active product.
func SeedProduct(t *testing.T, db *gorm.DB, name string, price string, stock int64) model.Product {
	t.Helper()

	p := model.Product{
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		Status:        model.ProductStatusActive,
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

// Deactivate flips a product to inactive.
func Deactivate(t *testing.T, db *gorm.DB, productID int64) {
	t.Helper()
	require.NoError(t, db.Model(&model.Product{}).
		Where("id = ?", productID).
		Update("status", model.ProductStatusInactive).Error)
}

// SetPrice changes a catalog price.
func SetPrice(t *testing.T, db *gorm.DB, productID int64, price string) {
	t.Helper()
	require.NoError(t, db.Model(&model.Product{}).
		Where("id = ?", productID).
		Update("price", decimal.RequireFromString(price)).Error)
}

func SeedPaymentMethod(t *testing.T, db *gorm.DB) model.PaymentMethod {
	t.Helper()

	pm := model.PaymentMethod{
		Name:          "Bank transfer",
		BankName:      "Example Bank",
		AccountNumber: "000-1234567",
		OwnerName:     "Storefront Inc.",
	}
	require.NoError(t, db.Create(&pm).Error)
	return pm
}

// Stock reads the current stock of a product.
func Stock(t *testing.T, db *gorm.DB, productID int64) int64 {
	t.Helper()

	var p model.Product
	require.NoError(t, db.First(&p, productID).Error)
	return p.StockQuantity
}

// Count returns the row count of the model's table.
func Count(t *testing.T, db *gorm.DB, m interface{}) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Model(m).Count(&n).Error)
	return n
}
