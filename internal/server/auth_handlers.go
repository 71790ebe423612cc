package server

import (
	"whisperwall/internal/models"

	"github.com/gofiber/fiber/v2"
)

type passwordRequest struct {
	Password string `json:"password"`
}

// Login handles POST /api/auth/login
// @Summary Board login
// @Description Check the shared board password and issue a session token for likes
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{password=string} true "Board password"
// @Success 200 {object} object{success=bool,session_token=string}
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req passwordRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
	}

	token, err := s.authService.Login(req.Password)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":       true,
		"session_token": token,
	})
}

// AdminLogin handles POST /api/auth/admin
// @Summary Admin login
// @Description Exchange the admin password for a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{password=string} true "Admin password"
// @Success 200 {object} object{token=string,expires_at=string}
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /auth/admin [post]
func (s *Server) AdminLogin(c *fiber.Ctx) error {
	var req passwordRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	token, expires, err := s.authService.AdminLogin(req.Password)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"token":      token,
		"expires_at": expires,
	})
}
