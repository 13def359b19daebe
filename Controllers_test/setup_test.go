package Controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/fuji-pos/cache"
	"github.com/yeremiapane/fuji-pos/config"
	"github.com/yeremiapane/fuji-pos/models"
	"github.com/yeremiapane/fuji-pos/permissions"
	"github.com/yeremiapane/fuji-pos/router"
	"github.com/yeremiapane/fuji-pos/utils"
)

const testPassword = "password123"

type testApp struct {
	t        *testing.T
	db       *gorm.DB
	router   *gin.Engine
	users    map[permissions.Role]models.User
	tokens   map[permissions.Role]string
	category models.MenuCategory
	roll     models.MenuItem
	tuna     models.MenuItem
	table1   models.RestaurantTable
	table2   models.RestaurantTable
}

func setupTestDB(t *testing.T) *gorm.DB {
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

// newTestApp wires the real router over an in-memory database with one user per role.
func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.ConfigureJWT("controllers-test-secret", time.Hour)

	db := setupTestDB(t)
	cfg := &config.Config{
		Environment:    "test",
		RestaurantName: "Fuji Test Kitchen",
		AllowedOrigins: []string{"http://localhost:3000"},
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
		Settings:       config.DefaultSettings(),
	}
	app := &testApp{
		t:      t,
		db:     db,
		router: router.SetupRouter(router.NewDependencies(db, cfg, cache.NewMemoryStore(), nil, nil)),
		users:  make(map[permissions.Role]models.User),
		tokens: make(map[permissions.Role]string),
	}

	hashed, err := utils.HashPassword(testPassword)
	require.NoError(t, err)
	for _, role := range permissions.Roles {
		user := models.User{
			Name:     string(role) + " user",
			Email:    string(role) + "@fuji.local",
			Password: hashed,
			Role:     string(role),
			IsActive: true,
		}
		require.NoError(t, db.Create(&user).Error)
		token, err := utils.GenerateToken(user.ID, user.Role)
		require.NoError(t, err)
		app.users[role] = user
		app.tokens[role] = token
	}

	app.category = models.MenuCategory{Name: "Rolls", IsActive: true}
	require.NoError(t, db.Create(&app.category).Error)
	cost := 3.0
	app.roll = models.MenuItem{CategoryID: app.category.ID, Name: "California Roll", BasePrice: 10, Cost: &cost, PreparationTime: 8, IsAvailable: true}
	app.tuna = models.MenuItem{CategoryID: app.category.ID, Name: "Spicy Tuna", BasePrice: 15, PreparationTime: 10, IsAvailable: true}
	require.NoError(t, db.Create(&app.roll).Error)
	require.NoError(t, db.Create(&app.tuna).Error)

	app.table1 = models.RestaurantTable{TableNumber: 1, Section: "main", Seats: 4, IsActive: true}
	app.table2 = models.RestaurantTable{TableNumber: 2, Section: "patio", Seats: 2, IsActive: true}
	require.NoError(t, db.Create(&app.table1).Error)
	require.NoError(t, db.Create(&app.table2).Error)
	return app
}

// do sends body as JSON, authenticated as role unless role is empty.
func (a *testApp) do(method, path string, role permissions.Role, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+a.tokens[role])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Status  bool                   `json:"status"`
	Message string                 `json:"message"`
	Data    json.RawMessage        `json:"data"`
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// data decodes the envelope's data field into dst.
func data(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	env := decode(t, w)
	require.NoError(t, json.Unmarshal(env.Data, dst), string(env.Data))
}

func (a *testApp) createOrder(role permissions.Role, payload map[string]interface{}) models.Order {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/orders", role, payload)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var order models.Order
	data(a.t, w, &order)
	return order
}

func (a *testApp) dineIn(tableID uint, items ...map[string]interface{}) models.Order {
	a.t.Helper()
	return a.createOrder(permissions.RoleServer, map[string]interface{}{
		"order_type": "dine_in",
		"table_id":   tableID,
		"party_size": 2,
		"items":      items,
	})
}

func line(id uint, qty int) map[string]interface{} {
	return map[string]interface{}{"menu_item_id": id, "quantity": qty}
}
