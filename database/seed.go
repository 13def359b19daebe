package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yeremiapane/fuji-pos/models"
	"github.com/yeremiapane/fuji-pos/permissions"
	"github.com/yeremiapane/fuji-pos/utils"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "password123"

func price(v float64) *float64 { return &v }

// Seed loads demo staff, menu and tables. Rows that already exist are left alone,
// so running it twice is harmless.
func Seed(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := seedUsers(tx); err != nil {
			return err
		}
		if err := seedMenu(tx); err != nil {
			return err
		}
		if err := seedTables(tx); err != nil {
			return err
		}
		utils.InfoLogger.Println("Seed data loaded.")
		return nil
	})
}

func seedUsers(tx *gorm.DB) error {
	hash, err := utils.HashPassword(DemoPassword)
	if err != nil {
		return err
	}
	staff := []struct {
		name string
		role permissions.Role
	}{
		{"Admin", permissions.RoleAdmin},
		{"Maya Manager", permissions.RoleManager},
		{"Sam Server", permissions.RoleServer},
		{"Casey Cashier", permissions.RoleCashier},
		{"Kai Kitchen", permissions.RoleKitchen},
		{"Vic Viewer", permissions.RoleViewer},
	}
	for _, s := range staff {
		user := models.User{
			Name:     s.name,
			Email:    fmt.Sprintf("%s@fuji.local", s.role),
			Password: hash,
			Role:     string(s.role),
			IsActive: true,
		}
		if err := tx.Where(models.User{Email: user.Email}).FirstOrCreate(&user).Error; err != nil {
			return fmt.Errorf("seed user %s: %w", user.Email, err)
		}
	}
	return nil
}

type seedItem struct {
	item      models.MenuItem
	modifiers []string
}

func seedMenu(tx *gorm.DB) error {
	modifiers := []models.Modifier{
		{Name: "Extra Spicy Mayo", Price: 0.50, ModifierGroup: "sauce"},
		{Name: "Eel Sauce", Price: 0.50, ModifierGroup: "sauce"},
		{Name: "Brown Rice", Price: 1.00, ModifierGroup: "rice"},
		{Name: "Soy Paper Wrap", Price: 1.50, ModifierGroup: "wrap"},
	}
	byName := map[string]uint{}
	for i := range modifiers {
		m := modifiers[i]
		m.IsActive = true
		if err := tx.Where(models.Modifier{Name: m.Name}).FirstOrCreate(&m).Error; err != nil {
			return fmt.Errorf("seed modifier %s: %w", m.Name, err)
		}
		byName[m.Name] = m.ID
	}

	menu := []struct {
		category models.MenuCategory
		items    []seedItem
	}{
		{
			category: models.MenuCategory{Name: "Sushi Rolls", CategoryType: "food", DisplayOrder: 1},
			items: []seedItem{
				{models.MenuItem{Name: "California Roll", BasePrice: 10, Cost: price(3.2), PreparationTime: 8}, []string{"Brown Rice", "Soy Paper Wrap"}},
				{models.MenuItem{Name: "Spicy Tuna Roll", BasePrice: 15, LunchPrice: price(13), Cost: price(5.1), PreparationTime: 10, IsRaw: true}, []string{"Extra Spicy Mayo", "Brown Rice"}},
				{models.MenuItem{Name: "Dragon Roll", BasePrice: 18, DinnerPrice: price(19.5), Cost: price(6.4), PreparationTime: 14}, []string{"Eel Sauce"}},
				{models.MenuItem{Name: "Avocado Roll", BasePrice: 8, Cost: price(2.1), PreparationTime: 6, IsVegetarian: true, IsGlutenFree: true}, nil},
			},
		},
		{
			category: models.MenuCategory{Name: "Hot Kitchen", CategoryType: "food", DisplayOrder: 2},
			items: []seedItem{
				{models.MenuItem{Name: "Chicken Teriyaki", BasePrice: 16, LunchPrice: price(13), Cost: price(4.8), PreparationTime: 18}, nil},
				{models.MenuItem{Name: "Vegetable Tempura", BasePrice: 11, Cost: price(3), PreparationTime: 12, IsVegetarian: true}, nil},
				{models.MenuItem{Name: "Miso Soup", BasePrice: 4, Cost: price(0.8), PreparationTime: 5, IsVegetarian: true, IsGlutenFree: true}, nil},
			},
		},
		{
			category: models.MenuCategory{Name: "Sake", CategoryType: "beverage", DisplayOrder: 3},
			items: []seedItem{
				{models.MenuItem{Name: "House Junmai", BasePrice: 9, GlassPrice: price(9), BottlePrice: price(42), Cost: price(12), PreparationTime: 1, IsVegetarian: true, IsGlutenFree: true}, nil},
				{models.MenuItem{Name: "Dassai 45", BasePrice: 14, GlassPrice: price(14), BottlePrice: price(68), Cost: price(24), PreparationTime: 1, IsVegetarian: true, IsGlutenFree: true}, nil},
			},
		},
	}

	for _, group := range menu {
		category := group.category
		category.IsActive = true
		if err := tx.Where(models.MenuCategory{Name: category.Name}).FirstOrCreate(&category).Error; err != nil {
			return fmt.Errorf("seed category %s: %w", category.Name, err)
		}
		for _, si := range group.items {
			item := si.item
			item.CategoryID = category.ID
			item.IsAvailable = true
			if err := tx.Where(models.MenuItem{Name: item.Name, CategoryID: category.ID}).FirstOrCreate(&item).Error; err != nil {
				return fmt.Errorf("seed item %s: %w", item.Name, err)
			}
			for _, name := range si.modifiers {
				link := models.ItemModifier{MenuItemID: item.ID, ModifierID: byName[name]}
				if err := tx.FirstOrCreate(&link, link).Error; err != nil {
					return fmt.Errorf("seed modifier link %s/%s: %w", item.Name, name, err)
				}
			}
		}
	}
	return nil
}

func seedTables(tx *gorm.DB) error {
	sections := []struct {
		name  string
		from  int
		to    int
		seats int
	}{
		{"main", 1, 8, 4},
		{"sushi bar", 9, 14, 2},
		{"patio", 15, 18, 6},
	}
	for _, s := range sections {
		for n := s.from; n <= s.to; n++ {
			table := models.RestaurantTable{TableNumber: n, Section: s.name, Seats: s.seats, IsActive: true}
			if err := tx.Where(models.RestaurantTable{TableNumber: n}).FirstOrCreate(&table).Error; err != nil {
				return fmt.Errorf("seed table %d: %w", n, err)
			}
		}
	}
	return nil
}
