package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/fuji-pos/config"
	"github.com/yeremiapane/fuji-pos/models"
	"github.com/yeremiapane/fuji-pos/orderflow"
	"github.com/yeremiapane/fuji-pos/permissions"
)

// evening keeps lunch pricing out of the way unless a test asks for it.
var evening = time.Date(2026, 3, 10, 19, 0, 0, 0, time.Local)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

type fixture struct {
	db       *gorm.DB
	settings config.Settings
	orders   *OrderService
	payments *PaymentService
	server   models.User
	actor    Actor
	category models.MenuCategory
	roll     models.MenuItem // 10.00, 8 min
	tuna     models.MenuItem // 15.00, 10 min
	sake     models.MenuItem // glass 9 / bottle 42
	table1   models.RestaurantTable
	table2   models.RestaurantTable
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	settings := config.DefaultSettings()
	f := &fixture{db: db, settings: settings}

	f.server = models.User{Name: "Sam", Email: "sam@fuji.local", Password: "x", Role: string(permissions.RoleServer), IsActive: true}
	require.NoError(t, db.Create(&f.server).Error)
	f.actor = Actor{UserID: f.server.ID, Role: permissions.RoleServer}

	f.category = models.MenuCategory{Name: "Rolls", IsActive: true}
	require.NoError(t, db.Create(&f.category).Error)
	cost := 3.0
	f.roll = models.MenuItem{CategoryID: f.category.ID, Name: "California Roll", BasePrice: 10, Cost: &cost, PreparationTime: 8, IsAvailable: true}
	f.tuna = models.MenuItem{CategoryID: f.category.ID, Name: "Spicy Tuna", BasePrice: 15, PreparationTime: 10, IsAvailable: true}
	glass, bottle := 9.0, 42.0
	f.sake = models.MenuItem{CategoryID: f.category.ID, Name: "Junmai", BasePrice: 9, GlassPrice: &glass, BottlePrice: &bottle, PreparationTime: 1, IsAvailable: true}
	require.NoError(t, db.Create(&f.roll).Error)
	require.NoError(t, db.Create(&f.tuna).Error)
	require.NoError(t, db.Create(&f.sake).Error)

	f.table1 = models.RestaurantTable{TableNumber: 1, Section: "main", Seats: 4, IsActive: true}
	f.table2 = models.RestaurantTable{TableNumber: 2, Section: "main", Seats: 4, IsActive: true}
	require.NoError(t, db.Create(&f.table1).Error)
	require.NoError(t, db.Create(&f.table2).Error)

	f.orders = NewOrderService(db, settings)
	f.orders.Now = func() time.Time { return evening }
	f.payments = NewPaymentService(db, f.orders, nil, settings)
	f.payments.now = func() time.Time { return evening }
	return f
}

func (f *fixture) dineIn(t *testing.T, tableID uint, items ...ItemInput) *models.Order {
	t.Helper()
	order, err := f.orders.CreateOrder(context.Background(), f.actor, CreateOrderInput{
		OrderType: models.OrderTypeDineIn,
		TableID:   &tableID,
		PartySize: 2,
		Items:     items,
	})
	require.NoError(t, err)
	return order
}

func (f *fixture) table(t *testing.T, id uint) models.RestaurantTable {
	t.Helper()
	var table models.RestaurantTable
	require.NoError(t, f.db.First(&table, id).Error)
	return table
}

func item(id uint, qty int) ItemInput {
	return ItemInput{MenuItemID: id, Quantity: qty}
}

// advance applies each status in turn.
func (f *fixture) advance(t *testing.T, orderID uint, to ...string) {
	t.Helper()
	for _, st := range to {
		status, ok := orderflow.ParseStatus(st)
		require.True(t, ok, st)
		_, err := f.orders.UpdateStatus(context.Background(), f.actor, orderID, status, "")
		require.NoError(t, err)
	}
}
