package handlers

import (
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type MatchHandler struct {
	matchService        *services.MatchService
	verificationService *services.VerificationService
	chatService         *services.ChatService
}

func NewMatchHandler(
	matchService *services.MatchService,
	verificationService *services.VerificationService,
	chatService *services.ChatService,
) *MatchHandler {
	return &MatchHandler{
		matchService:        matchService,
		verificationService: verificationService,
		chatService:         chatService,
	}
}

// Active lists the caller's open conversations, most recent first.
func (h *MatchHandler) Active(c *fiber.Ctx) error {
	sess, err := session(c)
	if err != nil {
		return unauthorized(c)
	}

	views, err := h.matchService.Active(c.UserContext(), sess)
	if err != nil {
		return serviceError(c, err)
	}
	data := make([]dto.MatchViewResponse, len(views))
	for i := range views {
		data[i] = matchViewResponse(&views[i], sess.UserID)
	}
	return c.JSON(fiber.Map{"data": data, "total": len(data)})
}

func (h *MatchHandler) Get(c *fiber.Ctx) error {
	sess, err := session(c)
	if err != nil {
		return unauthorized(c)
	}

	view, err := h.matchService.View(c.UserContext(), sess, c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(matchViewResponse(view, sess.UserID))
}

func (h *MatchHandler) Dismiss(c *fiber.Ctx) error {
	sess, err := session(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.DismissRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	n := h.matchService.Dismiss(c.UserContext(), sess, req.MatchIDs)
	return c.JSON(fiber.Map{"dismissed": n})
}

func (h *MatchHandler) Claim(c *fiber.Ctx) error {
	sess, err := session(c)
	if err != nil {
		return unauthorized(c)
	}

	m, err := h.matchService.Claim(c.UserContext(), sess, c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(dto.NewMatchResponse(m))
}

func (h *MatchHandler) Attach(c *fiber.Ctx) error {
	sess, err := session(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.AttachReportRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if req.ReportID == "" {
		return errorJSON(c, fiber.StatusBadRequest, "report_id is required")
	}

	m, err := h.matchService.AttachReport(c.UserContext(), sess, c.Params("id"), req.ReportID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(dto.NewMatchResponse(m))
}

// Verify submits the owner's answer to the finder's question.
func (h *MatchHandler) Verify(c *fiber.Ctx) error {
	sess, err := session(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	res, err := h.verificationService.SubmitAnswer(c.UserContext(), sess, c.Params("id"), req.Answer)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(dto.VerifyResponse{
		Success:           res.Success,
		Status:            string(res.Match.Status),
		Attempts:          res.Match.Attempts,
		RemainingAttempts: res.RemainingAttempts(),
		Evict:             res.Evict(),
	})
}

func (h *MatchHandler) Messages(c *fiber.Ctx) error {
	sess, err := session(c)
	if err != nil {
		return unauthorized(c)
	}

	msgs, err := h.chatService.List(c.UserContext(), sess, c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	data := make([]dto.MessageResponse, len(msgs))
	for i := range msgs {
		data[i] = dto.NewMessageResponse(&msgs[i], sess.UserID)
	}
	return c.JSON(fiber.Map{"data": data, "total": len(data)})
}

// SendMessage answers 201 when the message was stored and 200 with
// stored=false when the channel is locked.
func (h *MatchHandler) SendMessage(c *fiber.Ctx) error {
	sess, err := session(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	msg, stored, err := h.chatService.Send(c.UserContext(), sess, c.Params("id"), req.Text)
	if err != nil {
		return serviceError(c, err)
	}
	if !stored {
		return c.JSON(dto.SendMessageResponse{Stored: false})
	}
	resp := dto.NewMessageResponse(msg, sess.UserID)
	return c.Status(fiber.StatusCreated).JSON(dto.SendMessageResponse{Stored: true, Message: &resp})
}

func matchViewResponse(v *services.MatchView, viewerID string) dto.MatchViewResponse {
	resp := dto.MatchViewResponse{
		Match:             dto.NewMatchResponse(v.Match),
		Role:              string(v.Role),
		Question:          v.Question,
		RemainingAttempts: v.RemainingAttempts,
	}
	if v.Counterpart != nil {
		r := dto.NewReportResponse(v.Counterpart, viewerID)
		resp.Counterpart = &r
	}
	if v.Own != nil {
		r := dto.NewReportResponse(v.Own, viewerID)
		resp.OwnReport = &r
	}
	if !v.LastActivity.IsZero() {
		t := v.LastActivity
		resp.LastActivity = &t
	}
	return resp
}
