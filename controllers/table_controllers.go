package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/fuji-pos/apperrors"
	"github.com/yeremiapane/fuji-pos/kds"
	"github.com/yeremiapane/fuji-pos/models"
	"github.com/yeremiapane/fuji-pos/utils"
)

type TableController struct {
	DB *gorm.DB
}

func NewTableController(db *gorm.DB) *TableController {
	return &TableController{DB: db}
}

type tableRequest struct {
	TableNumber int    `json:"table_number" binding:"required,min=1"`
	Section     string `json:"section"`
	Seats       int    `json:"seats" binding:"omitempty,min=1"`
	IsActive    *bool  `json:"is_active"`
}

func (tc *TableController) GetAllTables(c *gin.Context) {
	q := tc.DB.Order("table_number ASC")
	switch c.Query("status") {
	case "available":
		q = q.Where("is_active = ? AND is_occupied = ?", true, false)
	case "occupied":
		q = q.Where("is_occupied = ?", true)
	}
	if section := c.Query("section"); section != "" {
		q = q.Where("section = ?", section)
	}
	var tables []models.RestaurantTable
	if err := q.Find(&tables).Error; err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

func (tc *TableController) CreateTable(c *gin.Context) {
	var req tableRequest
	if !bindJSON(c, &req) {
		return
	}
	var count int64
	if err := tc.DB.Model(&models.RestaurantTable{}).Where("table_number = ?", req.TableNumber).Count(&count).Error; err != nil {
		utils.RespondAppError(c, err)
		return
	}
	if count > 0 {
		utils.RespondAppError(c, apperrors.Conflict("table number %d already exists", req.TableNumber))
		return
	}

	table := models.RestaurantTable{TableNumber: req.TableNumber, Section: req.Section, Seats: req.Seats, IsActive: true}
	if table.Seats == 0 {
		table.Seats = 4
	}
	if req.IsActive != nil {
		table.IsActive = *req.IsActive
	}
	if err := tc.DB.Select("*").Omit("ID").Create(&table).Error; err != nil {
		utils.RespondAppError(c, err)
		return
	}

	kds.BroadcastTableUpdate(table)
	utils.InfoLogger.Printf("New table created: %d (section=%s)", table.TableNumber, table.Section)
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", table)
}

// UpdateTable edits table details. An occupied table cannot be deactivated.
func (tc *TableController) UpdateTable(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req tableRequest
	if !bindJSON(c, &req) {
		return
	}

	var table models.RestaurantTable
	if err := tc.DB.First(&table, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondAppError(c, apperrors.NotFound("table %d not found", id))
			return
		}
		utils.RespondAppError(c, err)
		return
	}
	if req.IsActive != nil && !*req.IsActive && table.IsOccupied {
		utils.RespondAppError(c, apperrors.Conflict("table %d is occupied and cannot be deactivated", table.TableNumber))
		return
	}
	if req.TableNumber != table.TableNumber {
		var count int64
		err := tc.DB.Model(&models.RestaurantTable{}).Where("table_number = ? AND id <> ?", req.TableNumber, id).Count(&count).Error
		if err != nil {
			utils.RespondAppError(c, err)
			return
		}
		if count > 0 {
			utils.RespondAppError(c, apperrors.Conflict("table number %d already exists", req.TableNumber))
			return
		}
	}

	updates := map[string]interface{}{"table_number": req.TableNumber, "section": req.Section}
	if req.Seats > 0 {
		updates["seats"] = req.Seats
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	// occupancy is owned by the order service; only update while it is unchanged
	res := tc.DB.Model(&models.RestaurantTable{}).
		Where("id = ? AND is_occupied = ?", id, table.IsOccupied).
		Updates(updates)
	if res.Error != nil {
		utils.RespondAppError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondAppError(c, apperrors.Conflict("table %d changed concurrently", id))
		return
	}
	if err := tc.DB.First(&table, id).Error; err != nil {
		utils.RespondAppError(c, err)
		return
	}

	kds.BroadcastTableUpdate(table)
	utils.RespondJSON(c, http.StatusOK, "Table updated", table)
}
