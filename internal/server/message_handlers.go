package server

import (
	"whisperwall/internal/models"
	"whisperwall/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createContentRequest struct {
	Content string `json:"content"`
}

type likeRequest struct {
	SessionToken string `json:"session_token"`
}

// sessionToken reads the like dedup key from the body, accepting the
// camelCase spelling too.
func sessionToken(c *fiber.Ctx) (string, error) {
	var req struct {
		likeRequest
		SessionTokenCamel string `json:"sessionToken"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return "", err
		}
	}
	if req.SessionToken != "" {
		return req.SessionToken, nil
	}
	if req.SessionTokenCamel != "" {
		return req.SessionTokenCamel, nil
	}
	return c.Get("X-Session-Token"), nil
}

// CreateMessage handles POST /api/messages
// @Summary Post a message
// @Description Create an anonymous message of 1 to 500 characters
// @Tags messages
// @Accept json
// @Produce json
// @Param request body object{content=string} true "Message"
// @Success 201 {object} models.MessageView
// @Failure 400 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /messages [post]
func (s *Server) CreateMessage(c *fiber.Ctx) error {
	var req createContentRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	view, err := s.messageService.CreateMessage(c.UserContext(), service.CreateMessageInput{
		Content: req.Content,
		Origin:  c.IP(),
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}

// GetMessages handles GET /api/messages
// @Summary List messages
// @Description One ranked page of messages, each with its comments
// @Tags messages
// @Produce json
// @Param sortBy query string false "newest, most_liked, most_commented or hottest"
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.MessageView
// @Failure 400 {object} models.ErrorResponse
// @Router /messages [get]
func (s *Server) GetMessages(c *fiber.Ctx) error {
	mode, err := parseSortMode(c)
	if err != nil {
		return nil
	}
	page := parsePagination(c, defaultPaginationLimit)

	views, err := s.messageService.ListMessages(c.UserContext(), service.ListMessagesInput{
		Mode:   mode,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(views)
}

// GetMessage handles GET /api/messages/:id
// @Summary Get a message
// @Tags messages
// @Produce json
// @Param id path int true "Message ID"
// @Success 200 {object} models.MessageView
// @Failure 404 {object} models.ErrorResponse
// @Router /messages/{id} [get]
func (s *Server) GetMessage(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	view, err := s.messageService.GetMessage(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(view)
}

// LikeMessage handles POST /api/messages/:id/like
// @Summary Like a message
// @Description At most one like per session token
// @Tags messages
// @Accept json
// @Produce json
// @Param id path int true "Message ID"
// @Param request body object{session_token=string} true "Session"
// @Success 200 {object} models.Message
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /messages/{id}/like [post]
func (s *Server) LikeMessage(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	token, err := sessionToken(c)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	message, err := s.messageService.LikeMessage(c.UserContext(), service.LikeInput{
		TargetID:     id,
		Origin:       c.IP(),
		SessionToken: token,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(message)
}

// DemoteMessage handles POST /api/messages/:id/demote
// @Summary Demote a message
// @Description Freeze the message's hottest position. Admin only.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Success 200 {object} models.Message
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /messages/{id}/demote [post]
func (s *Server) DemoteMessage(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	message, err := s.messageService.DemoteMessage(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(message)
}

// DeleteMessage handles DELETE /api/messages/:id
// @Summary Delete a message
// @Description Remove a message with its comments and likes. Admin only.
// @Tags admin
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Success 204
// @Failure 401 {object} models.ErrorResponse
// @Router /messages/{id} [delete]
func (s *Server) DeleteMessage(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.messageService.DeleteMessage(c.UserContext(), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetStats handles GET /api/stats
// @Summary Board totals
// @Tags messages
// @Produce json
// @Success 200 {object} models.Stats
// @Router /stats [get]
func (s *Server) GetStats(c *fiber.Ctx) error {
	stats, err := s.statsService.GetStats(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(stats)
}
