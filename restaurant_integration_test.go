package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/fuji-pos/cache"
	"github.com/yeremiapane/fuji-pos/config"
	"github.com/yeremiapane/fuji-pos/database"
	"github.com/yeremiapane/fuji-pos/models"
	"github.com/yeremiapane/fuji-pos/router"
	"github.com/yeremiapane/fuji-pos/utils"
)

func TestMain(m *testing.M) {
	utils.InitLogger("error", "text")
	gin.SetMode(gin.TestMode)
	utils.ConfigureJWT("integration-secret", time.Hour)
	os.Exit(m.Run())
}

type apiResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

// TestEndToEndIntegration walks one dine-in order through the floor:
// 0. seed staff, menu and tables, log in as server, kitchen and cashier
// 1. server seats table 1 and orders two California Rolls
// 2. server sends the order to the kitchen => confirmed
// 3. kitchen cooks the line and moves the order to ready
// 4. cashier takes cash => order completed, table released
func TestEndToEndIntegration(t *testing.T) {
	db := setupTestDB(t)
	cfg := &config.Config{Environment: "test", RateLimitRPS: 100, RateLimitBurst: 100, Settings: config.DefaultSettings()}
	r := router.SetupRouter(router.NewDependencies(db, cfg, cache.NewMemoryStore(), nil, nil))

	server := loginTest(t, r, "server@fuji.local")
	kitchen := loginTest(t, r, "kitchen@fuji.local")
	cashier := loginTest(t, r, "cashier@fuji.local")

	rollID := findMenuItem(t, r, server, "California Roll")
	tableID := findTable(t, r, server, 1)

	order := createOrderTest(t, r, server, tableID, rollID)
	if order.TotalAmount != 21.60 {
		t.Fatalf("createOrderTest: want total 21.60 (20 + 8%% tax), got %.2f", order.TotalAmount)
	}

	sendOrderTest(t, r, server, order.ID)
	cookOrderTest(t, r, kitchen, order)
	payOrderTest(t, r, cashier, order.ID)

	var done models.Order
	if err := db.First(&done, order.ID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if done.Status != "completed" {
		t.Fatalf("want order completed after payment, got %s", done.Status)
	}
	var table models.RestaurantTable
	if err := db.First(&table, tableID).Error; err != nil {
		t.Fatalf("reload table: %v", err)
	}
	if table.IsOccupied {
		t.Fatalf("table %d should be released once the order completes", table.TableNumber)
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open in-memory sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	if err := database.Seed(db); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}
	return db
}

func call(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) (int, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode %s %s: %v", method, path, err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp apiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("%s %s: invalid response %q", method, path, w.Body.String())
	}
	return w.Code, resp
}

func expect(t *testing.T, step string, code, want int, resp apiResponse, dst interface{}) {
	t.Helper()
	if code != want {
		t.Fatalf("%s: expected %d, got %d (%s: %s)", step, want, code, resp.Error, resp.Message)
	}
	if dst != nil {
		if err := json.Unmarshal(resp.Data, dst); err != nil {
			t.Fatalf("%s: decode data: %v", step, err)
		}
	}
}

func loginTest(t *testing.T, r *gin.Engine, email string) string {
	code, resp := call(t, r, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": database.DemoPassword,
	})
	var login struct {
		Token string `json:"token"`
	}
	expect(t, "login "+email, code, http.StatusOK, resp, &login)
	if login.Token == "" {
		t.Fatalf("login %s: token empty", email)
	}
	return login.Token
}

func findMenuItem(t *testing.T, r *gin.Engine, token, name string) uint {
	code, resp := call(t, r, http.MethodGet, "/api/menu/items?available=true", token, nil)
	var items []models.MenuItem
	expect(t, "list menu", code, http.StatusOK, resp, &items)
	for _, item := range items {
		if item.Name == name {
			return item.ID
		}
	}
	t.Fatalf("menu item %q not seeded", name)
	return 0
}

func findTable(t *testing.T, r *gin.Engine, token string, number int) uint {
	code, resp := call(t, r, http.MethodGet, "/api/tables?status=available", token, nil)
	var tables []models.RestaurantTable
	expect(t, "list tables", code, http.StatusOK, resp, &tables)
	for _, table := range tables {
		if table.TableNumber == number {
			return table.ID
		}
	}
	t.Fatalf("table %d is not available", number)
	return 0
}

func createOrderTest(t *testing.T, r *gin.Engine, token string, tableID, menuItemID uint) models.Order {
	code, resp := call(t, r, http.MethodPost, "/api/orders", token, map[string]interface{}{
		"order_type": "dine_in",
		"table_id":   tableID,
		"party_size": 2,
		"items": []map[string]interface{}{
			{"menu_item_id": menuItemID, "quantity": 2, "special_instructions": "no sesame"},
		},
	})
	var order models.Order
	expect(t, "create order", code, http.StatusCreated, resp, &order)
	if order.Status != "pending" {
		t.Fatalf("create order: expected status pending, got %s", order.Status)
	}
	return order
}

func sendOrderTest(t *testing.T, r *gin.Engine, token string, orderID uint) {
	code, resp := call(t, r, http.MethodPost, "/api/orders/"+strconv.FormatUint(uint64(orderID), 10)+"/send", token, nil)
	var order models.Order
	expect(t, "send order", code, http.StatusOK, resp, &order)
	if order.Status != "confirmed" {
		t.Fatalf("send order: expected confirmed, got %s", order.Status)
	}
}

func cookOrderTest(t *testing.T, r *gin.Engine, token string, order models.Order) {
	if len(order.OrderItems) != 1 {
		t.Fatalf("cook order: expected one line, got %d", len(order.OrderItems))
	}
	itemPath := "/api/order-items/" + strconv.FormatUint(uint64(order.OrderItems[0].ID), 10) + "/status"
	orderPath := "/api/orders/" + strconv.FormatUint(uint64(order.ID), 10) + "/status"

	code, resp := call(t, r, http.MethodPatch, orderPath, token, map[string]string{"status": "preparing"})
	expect(t, "order preparing", code, http.StatusOK, resp, nil)

	for _, status := range []string{"preparing", "ready"} {
		code, resp = call(t, r, http.MethodPatch, itemPath, token, map[string]string{"status": status})
		var item models.OrderItem
		expect(t, "item "+status, code, http.StatusOK, resp, &item)
		if string(item.Status) != status {
			t.Fatalf("item %s: got %s", status, item.Status)
		}
	}

	code, resp = call(t, r, http.MethodPatch, orderPath, token, map[string]string{"status": "ready"})
	var ready models.Order
	expect(t, "order ready", code, http.StatusOK, resp, &ready)
	if ready.Status != "ready" {
		t.Fatalf("order ready: got %s", ready.Status)
	}
}

func payOrderTest(t *testing.T, r *gin.Engine, token string, orderID uint) {
	code, resp := call(t, r, http.MethodPost, "/api/payments/cash", token, map[string]interface{}{
		"order_id":      orderID,
		"cash_received": 25,
	})
	var paid struct {
		Payment     models.Payment `json:"payment"`
		ChangeGiven float64        `json:"change_given"`
	}
	expect(t, "cash payment", code, http.StatusCreated, resp, &paid)
	if paid.Payment.Status != models.PaymentStatusCompleted {
		t.Fatalf("cash payment: expected completed, got %s", paid.Payment.Status)
	}
	if paid.ChangeGiven != 3.40 {
		t.Fatalf("cash payment: expected change 3.40, got %.2f", paid.ChangeGiven)
	}
}
