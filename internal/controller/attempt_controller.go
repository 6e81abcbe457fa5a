package controller

import (
	"strconv"

	"simulado_backend/internal/service"
	"simulado_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	AttemptService *service.AttemptService
}

func NewAttemptController(attemptService *service.AttemptService) *AttemptController {
	return &AttemptController{AttemptService: attemptService}
}

// @Summary Start an attempt on a published variant
// @Tags attempts
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "variant id"
// @Success 201 {object} util.Response
// @Router /api/student/variants/{id}/attempts [post]
func (c *AttemptController) StartAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	variantID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid variant id")
		return
	}

	attempt, err := c.AttemptService.StartAttempt(user.UserID, uint(variantID))
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Created(ctx, attempt)
}

// @Summary Record or replace the answer for one question
// @Tags attempts
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "attempt id"
// @Param body body service.RecordAnswerRequest true "answer payload"
// @Success 200 {object} util.Response
// @Router /api/student/attempts/{id}/answers [put]
func (c *AttemptController) RecordAnswer(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.RecordAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	answer, err := c.AttemptService.RecordAnswer(user.UserID, ctx.Param("id"), req)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, answer)
}

// @Summary Submit the attempt for final scoring
// @Tags attempts
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "attempt id"
// @Success 200 {object} util.Response
// @Router /api/student/attempts/{id}/submit [post]
func (c *AttemptController) SubmitAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	attempt, err := c.AttemptService.SubmitAttempt(ctx.Request.Context(), user.UserID, ctx.Param("id"))
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}

// @Summary Attempt view: ordered questions, remaining time, answers
// @Tags attempts
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "attempt id"
// @Success 200 {object} util.Response
// @Router /api/student/attempts/{id} [get]
func (c *AttemptController) GetAttemptView(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	view, err := c.AttemptService.GetAttemptView(user.UserID, ctx.Param("id"))
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary The student's attempt history on a variant
// @Tags attempts
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "variant id"
// @Success 200 {object} util.Response
// @Router /api/student/variants/{id}/attempts [get]
func (c *AttemptController) ListAttempts(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	variantID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid variant id")
		return
	}

	attempts, err := c.AttemptService.ListAttempts(user.UserID, uint(variantID))
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}
