package controller

import (
	"strconv"

	"simulado_backend/internal/service"
	"simulado_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type VariantController struct {
	GeneratorService *service.GeneratorService
}

func NewVariantController(generatorService *service.GeneratorService) *VariantController {
	return &VariantController{GeneratorService: generatorService}
}

// @Summary Generate a batch of exam variants from a bank
// @Tags variants
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.GenerateBatchRequest true "generation parameters"
// @Success 201 {object} util.Response
// @Router /api/teacher/variants/generate [post]
func (c *VariantController) GenerateBatch(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.GenerateBatchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	variants, err := c.GeneratorService.GenerateBatch(ctx.Request.Context(), req)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Created(ctx, service.SummarizeVariants(variants))
}

// @Summary List a bank's variants
// @Tags variants
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "bank id"
// @Param page query int false "page" default(1)
// @Param limit query int false "page size" default(20)
// @Success 200 {object} util.Response
// @Router /api/teacher/banks/{id}/variants [get]
func (c *VariantController) ListVariants(ctx *gin.Context) {
	bankID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid bank id")
		return
	}

	page := 1
	limit := 20
	if p := ctx.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}
	if l := ctx.Query("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}

	variants, total, err := c.GeneratorService.ListVariants(uint(bankID), page, limit)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"items": variants, "total": total})
}

// @Summary Variant detail with its question slots
// @Tags variants
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "variant id"
// @Success 200 {object} util.Response
// @Router /api/teacher/variants/{id} [get]
func (c *VariantController) GetVariant(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid variant id")
		return
	}
	variant, slots, err := c.GeneratorService.GetVariant(uint(id))
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"variant": variant, "slots": slots})
}

// @Summary Update a draft variant's settings
// @Tags variants
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "variant id"
// @Param body body service.UpdateDraftRequest true "settings"
// @Success 200 {object} util.Response
// @Router /api/teacher/variants/{id} [put]
func (c *VariantController) UpdateDraft(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid variant id")
		return
	}

	var req service.UpdateDraftRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	variant, err := c.GeneratorService.UpdateDraft(uint(id), req)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, variant)
}

// @Summary Delete a draft variant
// @Tags variants
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "variant id"
// @Success 200 {object} util.Response
// @Router /api/teacher/variants/{id} [delete]
func (c *VariantController) DeleteDraft(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid variant id")
		return
	}
	if err := c.GeneratorService.DeleteDraft(uint(id)); err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": true})
}

// @Summary Publish a draft variant
// @Tags variants
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "variant id"
// @Success 200 {object} util.Response
// @Router /api/teacher/variants/{id}/publish [post]
func (c *VariantController) PublishVariant(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid variant id")
		return
	}
	variant, err := c.GeneratorService.PublishVariant(ctx.Request.Context(), uint(id))
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, variant)
}

// @Summary Close a published variant
// @Tags variants
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "variant id"
// @Success 200 {object} util.Response
// @Router /api/teacher/variants/{id}/close [post]
func (c *VariantController) CloseVariant(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid variant id")
		return
	}
	variant, err := c.GeneratorService.CloseVariant(uint(id))
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, variant)
}
