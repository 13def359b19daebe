package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/fuji-pos/apperrors"
	"github.com/yeremiapane/fuji-pos/services"
	"github.com/yeremiapane/fuji-pos/utils"
)

type MenuController struct {
	Menu *services.MenuService
}

func NewMenuController(menu *services.MenuService) *MenuController {
	return &MenuController{Menu: menu}
}

// GetAllMenus lists items, filtered by ?category, ?available, ?dietary and ?search.
func (mc *MenuController) GetAllMenus(c *gin.Context) {
	categoryID, err := queryUint(c, "category")
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	filter := services.MenuFilter{
		CategoryID: categoryID,
		Dietary:    c.Query("dietary"),
		Search:     c.Query("search"),
	}
	if raw := c.Query("available"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			utils.RespondAppError(c, apperrors.Validation("available must be true or false"))
			return
		}
		filter.Available = &v
	}

	items, err := mc.Menu.ListItems(c.Request.Context(), filter)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of menu items", items)
}

func (mc *MenuController) GetMenuByID(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	item, err := mc.Menu.GetItem(c.Request.Context(), id)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu item", item)
}

// GetPrice quotes an item for ?serving_type and ?time_period at the current time.
func (mc *MenuController) GetPrice(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	servingType := c.Query("serving_type")
	if servingType != "" && servingType != "glass" && servingType != "bottle" {
		utils.RespondAppError(c, apperrors.Validation("serving_type must be glass or bottle"))
		return
	}
	period := c.Query("time_period")
	if period != "" && period != "lunch" && period != "dinner" {
		utils.RespondAppError(c, apperrors.Validation("time_period must be lunch or dinner"))
		return
	}
	quote, err := mc.Menu.Quote(c.Request.Context(), id, servingType, period)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Price quote", quote)
}

func (mc *MenuController) CreateMenu(c *gin.Context) {
	var req services.MenuItemInput
	if !bindJSON(c, &req) {
		return
	}
	item, err := mc.Menu.CreateItem(c.Request.Context(), req)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.InfoLogger.Printf("Menu item created: %s (id=%d)", item.Name, item.ID)
	utils.RespondJSON(c, http.StatusCreated, "Menu item created", item)
}

func (mc *MenuController) UpdateMenu(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.MenuItemInput
	if !bindJSON(c, &req) {
		return
	}
	item, err := mc.Menu.UpdateItem(c.Request.Context(), id, req)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu item updated", item)
}

func (mc *MenuController) DeleteMenu(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := mc.Menu.DeleteItem(c.Request.Context(), id); err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu item deleted", nil)
}

func (mc *MenuController) SetAvailability(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		IsAvailable *bool `json:"is_available" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	item, err := mc.Menu.SetAvailability(c.Request.Context(), id, *req.IsAvailable)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Availability updated", item)
}

func (mc *MenuController) BulkUpdate(c *gin.Context) {
	var req services.BulkUpdateInput
	if !bindJSON(c, &req) {
		return
	}
	updated, err := mc.Menu.BulkUpdate(c.Request.Context(), req)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.InfoLogger.Printf("Bulk %s updated %d menu items", req.Action, updated)
	utils.RespondJSON(c, http.StatusOK, "Bulk update applied", gin.H{"action": req.Action, "updated": updated})
}

func (mc *MenuController) GetModifiers(c *gin.Context) {
	groups, err := mc.Menu.ListModifiers(c.Request.Context())
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Modifiers", groups)
}

func (mc *MenuController) CreateModifier(c *gin.Context) {
	var req services.ModifierInput
	if !bindJSON(c, &req) {
		return
	}
	modifier, err := mc.Menu.CreateModifier(c.Request.Context(), req)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Modifier created", modifier)
}

func (mc *MenuController) LinkModifier(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.LinkModifierInput
	if !bindJSON(c, &req) {
		return
	}
	item, err := mc.Menu.LinkModifier(c.Request.Context(), id, req)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Modifier linked", item)
}
