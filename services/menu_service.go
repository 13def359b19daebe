package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeremiapane/fuji-pos/apperrors"
	"github.com/yeremiapane/fuji-pos/cache"
	"github.com/yeremiapane/fuji-pos/config"
	"github.com/yeremiapane/fuji-pos/kds"
	"github.com/yeremiapane/fuji-pos/models"
	"github.com/yeremiapane/fuji-pos/pricing"
)

const menuCachePrefix = "menu:"

const (
	BulkPriceUpdate        = "price_update"
	BulkAvailabilityUpdate = "availability_update"
)

var priceColumns = []string{"base_price", "glass_price", "bottle_price", "lunch_price", "dinner_price"}

type MenuFilter struct {
	CategoryID uint
	Available  *bool
	Dietary    string
	Search     string
}

func (f MenuFilter) cacheKey() string {
	avail := "any"
	if f.Available != nil {
		avail = fmt.Sprint(*f.Available)
	}
	return fmt.Sprintf("%sitems:%d:%s:%s:%s", menuCachePrefix, f.CategoryID, avail, f.Dietary, strings.ToLower(f.Search))
}

type CategoryInput struct {
	Name         string  `json:"name" binding:"required"`
	CategoryType string  `json:"category_type"`
	DisplayOrder int     `json:"display_order"`
	Icon         *string `json:"icon"`
	Color        *string `json:"color"`
	IsActive     *bool   `json:"is_active"`
}

type MenuItemInput struct {
	CategoryID      uint     `json:"category_id" binding:"required"`
	SKU             *string  `json:"sku"`
	Name            string   `json:"name" binding:"required"`
	Description     string   `json:"description"`
	BasePrice       float64  `json:"base_price" binding:"min=0"`
	GlassPrice      *float64 `json:"glass_price" binding:"omitempty,min=0"`
	BottlePrice     *float64 `json:"bottle_price" binding:"omitempty,min=0"`
	LunchPrice      *float64 `json:"lunch_price" binding:"omitempty,min=0"`
	DinnerPrice     *float64 `json:"dinner_price" binding:"omitempty,min=0"`
	Cost            *float64 `json:"cost" binding:"omitempty,min=0"`
	PreparationTime int      `json:"preparation_time" binding:"min=0"`
	Calories        *int     `json:"calories"`
	SpicyLevel      *int     `json:"spicy_level" binding:"omitempty,min=0,max=5"`
	IsRaw           bool     `json:"is_raw"`
	IsVegetarian    bool     `json:"is_vegetarian"`
	IsGlutenFree    bool     `json:"is_gluten_free"`
	Allergens       []string `json:"allergens"`
	DisplayOrder    int      `json:"display_order"`
	IsAvailable     *bool    `json:"is_available"`
	IsFeatured      bool     `json:"is_featured"`
}

type ModifierInput struct {
	Name          string  `json:"name" binding:"required"`
	Price         float64 `json:"price" binding:"min=0"`
	ModifierGroup string  `json:"modifier_group"`
	IsActive      *bool   `json:"is_active"`
}

type LinkModifierInput struct {
	ModifierID uint `json:"modifier_id" binding:"required"`
	IsRequired bool `json:"is_required"`
	IsDefault  bool `json:"is_default"`
}

// BulkUpdateInput scales prices (new = old*multiplier + adjustment) or flips availability.
type BulkUpdateInput struct {
	Action      string   `json:"action" binding:"required,oneof=price_update availability_update"`
	CategoryID  *uint    `json:"category_id"`
	ItemIDs     []uint   `json:"item_ids"`
	Multiplier  *float64 `json:"multiplier"`
	Adjustment  float64  `json:"adjustment"`
	IsAvailable *bool    `json:"is_available"`
}

type PriceQuote struct {
	MenuItemID   uint     `json:"menu_item_id"`
	Name         string   `json:"name"`
	ServingType  string   `json:"serving_type,omitempty"`
	TimePeriod   string   `json:"time_period,omitempty"`
	Price        float64  `json:"price"`
	ProfitMargin *float64 `json:"profit_margin"`
}

// ModifierGroup is the modifiers sharing one modifier_group.
type ModifierGroup struct {
	Group     string            `json:"group"`
	Modifiers []models.Modifier `json:"modifiers"`
}

// MenuService serves the menu through a cache-aside layer that every write invalidates.
type MenuService struct {
	DB       *gorm.DB
	Cache    cache.Store
	Settings config.Settings
	Now      func() time.Time
}

func NewMenuService(db *gorm.DB, store cache.Store, settings config.Settings) *MenuService {
	if store == nil {
		store = cache.NewMemoryStore()
	}
	return &MenuService{DB: db, Cache: store, Settings: settings, Now: time.Now}
}

func (s *MenuService) ListItems(ctx context.Context, f MenuFilter) ([]models.MenuItem, error) {
	q := s.DB.WithContext(ctx).Model(&models.MenuItem{})
	switch strings.ToLower(f.Dietary) {
	case "":
	case "vegetarian":
		q = q.Where("is_vegetarian = ?", true)
	case "gluten_free":
		q = q.Where("is_gluten_free = ?", true)
	case "raw":
		q = q.Where("is_raw = ?", true)
	case "cooked":
		q = q.Where("is_raw = ?", false)
	default:
		return nil, apperrors.Validation("unknown dietary filter %q", f.Dietary)
	}

	key := f.cacheKey()
	var items []models.MenuItem
	if cache.GetJSON(ctx, s.Cache, key, &items) {
		return items, nil
	}

	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.Available != nil {
		q = q.Where("is_available = ?", *f.Available)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(term)+"%")
	}
	err := q.Preload("Category").
		Preload("ItemModifiers.Modifier").
		Order("display_order ASC, name ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list menu items: %w", err)
	}
	cache.SetJSON(ctx, s.Cache, key, items, s.Settings.MenuCacheTTL)
	return items, nil
}

func (s *MenuService) GetItem(ctx context.Context, id uint) (*models.MenuItem, error) {
	var item models.MenuItem
	err := s.DB.WithContext(ctx).
		Preload("Category").
		Preload("ItemModifiers.Modifier").
		First(&item, id).Error
	if err != nil {
		return nil, lookupErr(err, "menu item", id)
	}
	return &item, nil
}

func (s *MenuService) CreateItem(ctx context.Context, in MenuItemInput) (*models.MenuItem, error) {
	if err := s.ensureCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}
	item := models.MenuItem{IsAvailable: true}
	applyMenuItemInput(&item, in)
	// zero values are skipped on insert, so false would fall back to the column default
	if err := s.DB.WithContext(ctx).Select("*").Omit("ID", "Category", "ItemModifiers").Create(&item).Error; err != nil {
		return nil, fmt.Errorf("failed to create menu item: %w", err)
	}
	s.changed(ctx, "item_created", item.ID)
	return s.GetItem(ctx, item.ID)
}

func (s *MenuService) UpdateItem(ctx context.Context, id uint, in MenuItemInput) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := s.DB.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, lookupErr(err, "menu item", id)
	}
	if in.CategoryID != item.CategoryID {
		if err := s.ensureCategory(ctx, in.CategoryID); err != nil {
			return nil, err
		}
	}
	applyMenuItemInput(&item, in)
	if err := s.DB.WithContext(ctx).Save(&item).Error; err != nil {
		return nil, fmt.Errorf("failed to update menu item: %w", err)
	}
	s.changed(ctx, "item_updated", item.ID)
	return s.GetItem(ctx, item.ID)
}

func (s *MenuService) DeleteItem(ctx context.Context, id uint) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("menu_item_id = ?", id).Delete(&models.ItemModifier{}).Error; err != nil {
			return fmt.Errorf("failed to unlink modifiers: %w", err)
		}
		res := tx.Delete(&models.MenuItem{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete menu item: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("menu item %d not found", id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.changed(ctx, "item_deleted", id)
	return nil
}

func (s *MenuService) SetAvailability(ctx context.Context, id uint, available bool) (*models.MenuItem, error) {
	res := s.DB.WithContext(ctx).Model(&models.MenuItem{}).Where("id = ?", id).Update("is_available", available)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update availability: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.NotFound("menu item %d not found", id)
	}
	s.changed(ctx, "availability_changed", id)
	return s.GetItem(ctx, id)
}

// BulkUpdate applies one change to every matching item and reports how many rows changed.
func (s *MenuService) BulkUpdate(ctx context.Context, in BulkUpdateInput) (int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.MenuItem{})
	if in.CategoryID != nil {
		q = q.Where("category_id = ?", *in.CategoryID)
	}
	if len(in.ItemIDs) > 0 {
		q = q.Where("id IN ?", in.ItemIDs)
	}

	var res *gorm.DB
	switch in.Action {
	case BulkPriceUpdate:
		multiplier := 1.0
		if in.Multiplier != nil {
			multiplier = *in.Multiplier
		}
		if multiplier <= 0 {
			return 0, apperrors.Validation("multiplier must be positive")
		}
		if multiplier == 1 && in.Adjustment == 0 {
			return 0, apperrors.Validation("price update needs a multiplier or an adjustment")
		}

		conds := make([]string, len(priceColumns))
		args := make([]interface{}, 0, 2*len(priceColumns))
		updates := make(map[string]interface{}, len(priceColumns))
		for i, col := range priceColumns {
			conds[i] = col + " * ? + ? < 0"
			args = append(args, multiplier, in.Adjustment)
			updates[col] = gorm.Expr("ROUND("+col+" * ? + ?, 2)", multiplier, in.Adjustment)
		}
		var negative int64
		if err := q.Session(&gorm.Session{}).Where(strings.Join(conds, " OR "), args...).Count(&negative).Error; err != nil {
			return 0, fmt.Errorf("failed to check bulk price update: %w", err)
		}
		if negative > 0 {
			return 0, apperrors.Validation("price update would make %d item prices negative", negative)
		}
		res = q.Updates(updates)
	case BulkAvailabilityUpdate:
		if in.IsAvailable == nil {
			return 0, apperrors.Validation("is_available is required for availability updates")
		}
		res = q.Update("is_available", *in.IsAvailable)
	default:
		return 0, apperrors.Validation("unknown bulk action %q", in.Action)
	}
	if res.Error != nil {
		return 0, fmt.Errorf("failed to bulk update menu: %w", res.Error)
	}
	s.changed(ctx, in.Action, 0)
	return res.RowsAffected, nil
}

func (s *MenuService) ListCategories(ctx context.Context) ([]models.MenuCategory, error) {
	key := menuCachePrefix + "categories"
	var categories []models.MenuCategory
	if cache.GetJSON(ctx, s.Cache, key, &categories) {
		return categories, nil
	}
	if err := s.DB.WithContext(ctx).Order("display_order ASC, name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	cache.SetJSON(ctx, s.Cache, key, categories, s.Settings.MenuCacheTTL)
	return categories, nil
}

func (s *MenuService) CreateCategory(ctx context.Context, in CategoryInput) (*models.MenuCategory, error) {
	category := models.MenuCategory{IsActive: true}
	applyCategoryInput(&category, in)
	if err := s.DB.WithContext(ctx).Select("*").Omit("ID").Create(&category).Error; err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	s.changed(ctx, "category_created", category.ID)
	return &category, nil
}

func (s *MenuService) UpdateCategory(ctx context.Context, id uint, in CategoryInput) (*models.MenuCategory, error) {
	var category models.MenuCategory
	if err := s.DB.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, lookupErr(err, "category", id)
	}
	applyCategoryInput(&category, in)
	if err := s.DB.WithContext(ctx).Save(&category).Error; err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	s.changed(ctx, "category_updated", id)
	return &category, nil
}

// DeleteCategory refuses to remove a category that still has items.
func (s *MenuService) DeleteCategory(ctx context.Context, id uint) error {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.MenuItem{}).Where("category_id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count category items: %w", err)
	}
	if count > 0 {
		return apperrors.Conflict("category %d still has %d menu items", id, count)
	}
	res := s.DB.WithContext(ctx).Delete(&models.MenuCategory{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete category: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("category %d not found", id)
	}
	s.changed(ctx, "category_deleted", id)
	return nil
}

// ListModifiers returns active modifiers grouped by modifier_group.
func (s *MenuService) ListModifiers(ctx context.Context) ([]ModifierGroup, error) {
	key := menuCachePrefix + "modifiers"
	var groups []ModifierGroup
	if cache.GetJSON(ctx, s.Cache, key, &groups) {
		return groups, nil
	}
	var modifiers []models.Modifier
	if err := s.DB.WithContext(ctx).Where("is_active = ?", true).Order("name ASC").Find(&modifiers).Error; err != nil {
		return nil, fmt.Errorf("failed to list modifiers: %w", err)
	}
	byGroup := make(map[string][]models.Modifier)
	for _, m := range modifiers {
		byGroup[m.ModifierGroup] = append(byGroup[m.ModifierGroup], m)
	}
	groups = make([]ModifierGroup, 0, len(byGroup))
	for g, mods := range byGroup {
		groups = append(groups, ModifierGroup{Group: g, Modifiers: mods})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Group < groups[j].Group })
	cache.SetJSON(ctx, s.Cache, key, groups, s.Settings.MenuCacheTTL)
	return groups, nil
}

func (s *MenuService) CreateModifier(ctx context.Context, in ModifierInput) (*models.Modifier, error) {
	modifier := models.Modifier{
		Name:          strings.TrimSpace(in.Name),
		Price:         pricing.Round2(in.Price),
		ModifierGroup: strings.TrimSpace(in.ModifierGroup),
		IsActive:      true,
	}
	if modifier.ModifierGroup == "" {
		modifier.ModifierGroup = "other"
	}
	if in.IsActive != nil {
		modifier.IsActive = *in.IsActive
	}
	if err := s.DB.WithContext(ctx).Select("*").Omit("ID").Create(&modifier).Error; err != nil {
		return nil, fmt.Errorf("failed to create modifier: %w", err)
	}
	s.changed(ctx, "modifier_created", modifier.ID)
	return &modifier, nil
}

// LinkModifier offers a modifier on an item, updating the flags of an existing link.
func (s *MenuService) LinkModifier(ctx context.Context, itemID uint, in LinkModifierInput) (*models.MenuItem, error) {
	db := s.DB.WithContext(ctx)
	var item models.MenuItem
	if err := db.Select("id").First(&item, itemID).Error; err != nil {
		return nil, lookupErr(err, "menu item", itemID)
	}
	var modifier models.Modifier
	if err := db.First(&modifier, in.ModifierID).Error; err != nil {
		return nil, lookupErr(err, "modifier", in.ModifierID)
	}
	link := models.ItemModifier{
		MenuItemID: itemID,
		ModifierID: in.ModifierID,
		IsRequired: in.IsRequired,
		IsDefault:  in.IsDefault,
	}
	err := db.Omit("Modifier").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "menu_item_id"}, {Name: "modifier_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_required", "is_default"}),
	}).Create(&link).Error
	if err != nil {
		return nil, fmt.Errorf("failed to link modifier: %w", err)
	}
	s.changed(ctx, "modifier_linked", itemID)
	return s.GetItem(ctx, itemID)
}

// Quote resolves the price an item would be sold at right now.
func (s *MenuService) Quote(ctx context.Context, id uint, servingType, timePeriod string) (*PriceQuote, error) {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	price, err := pricing.ResolvePrice(item.Prices(), newPriceContext(s.Settings, s.now(), servingType, timePeriod))
	if err != nil {
		return nil, err
	}
	quote := &PriceQuote{
		MenuItemID:  item.ID,
		Name:        item.Name,
		ServingType: servingType,
		TimePeriod:  timePeriod,
		Price:       pricing.Round2(price),
	}
	if margin, ok := pricing.ProfitMargin(price, item.Cost); ok {
		m := pricing.Round2(margin)
		quote.ProfitMargin = &m
	}
	return quote, nil
}

func (s *MenuService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *MenuService) ensureCategory(ctx context.Context, id uint) error {
	var category models.MenuCategory
	if err := s.DB.WithContext(ctx).Select("id").First(&category, id).Error; err != nil {
		return lookupErr(err, "category", id)
	}
	return nil
}

// changed drops cached menu reads and tells displays to refetch.
func (s *MenuService) changed(ctx context.Context, action string, id uint) {
	cache.Invalidate(ctx, s.Cache, menuCachePrefix)
	kds.BroadcastMenuUpdate(map[string]interface{}{"action": action, "id": id})
}

func applyMenuItemInput(item *models.MenuItem, in MenuItemInput) {
	item.CategoryID = in.CategoryID
	item.SKU = in.SKU
	item.Name = strings.TrimSpace(in.Name)
	item.Description = in.Description
	item.BasePrice = pricing.Round2(in.BasePrice)
	item.GlassPrice = roundPtr(in.GlassPrice)
	item.BottlePrice = roundPtr(in.BottlePrice)
	item.LunchPrice = roundPtr(in.LunchPrice)
	item.DinnerPrice = roundPtr(in.DinnerPrice)
	item.Cost = roundPtr(in.Cost)
	item.PreparationTime = in.PreparationTime
	if item.PreparationTime == 0 {
		item.PreparationTime = 15
	}
	item.Calories = in.Calories
	item.SpicyLevel = in.SpicyLevel
	item.IsRaw = in.IsRaw
	item.IsVegetarian = in.IsVegetarian
	item.IsGlutenFree = in.IsGlutenFree
	item.Allergens = in.Allergens
	item.DisplayOrder = in.DisplayOrder
	item.IsFeatured = in.IsFeatured
	if in.IsAvailable != nil {
		item.IsAvailable = *in.IsAvailable
	}
}

func applyCategoryInput(c *models.MenuCategory, in CategoryInput) {
	c.Name = strings.TrimSpace(in.Name)
	c.CategoryType = in.CategoryType
	c.DisplayOrder = in.DisplayOrder
	c.Icon = in.Icon
	c.Color = in.Color
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
}

func roundPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := pricing.Round2(*v)
	return &r
}
