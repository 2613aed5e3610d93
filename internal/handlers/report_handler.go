package handlers

import (
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/campus"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ReportHandler struct {
	reportService *services.ReportService
	matchService  *services.MatchService
}

func NewReportHandler(reportService *services.ReportService, matchService *services.MatchService) *ReportHandler {
	return &ReportHandler{reportService: reportService, matchService: matchService}
}

// Create stores a report and returns the matches it produced.
func (h *ReportHandler) Create(c *fiber.Ctx) error {
	sess, err := session(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	res, err := h.reportService.Submit(c.UserContext(), sess, &req)
	if err != nil {
		return serviceError(c, err)
	}

	suggestions := make([]dto.SuggestionResponse, len(res.Suggestions))
	for i := range res.Suggestions {
		sg := &res.Suggestions[i]
		suggestions[i] = dto.SuggestionResponse{
			Match:       dto.NewMatchResponse(&sg.Match),
			Counterpart: dto.NewReportResponse(&sg.Counterpart, sess.UserID),
		}
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SubmitReportResponse{
		Report:      dto.NewReportResponse(res.Report, sess.UserID),
		Suggestions: suggestions,
	})
}

// List serves the campus feed. Query params: type (LOST|FOUND), q.
func (h *ReportHandler) List(c *fiber.Ctx) error {
	sess, err := session(c)
	if err != nil {
		return unauthorized(c)
	}

	reports, err := h.reportService.Feed(c.UserContext(), sess, c.Query("type"), c.Query("q"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"data":  dto.NewReportList(reports, sess.UserID),
		"total": len(reports),
	})
}

func (h *ReportHandler) Get(c *fiber.Ctx) error {
	sess, err := session(c)
	if err != nil {
		return unauthorized(c)
	}

	report, err := h.reportService.Get(c.UserContext(), sess, c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(dto.NewReportResponse(report, sess.UserID))
}

func (h *ReportHandler) Mine(c *fiber.Ctx) error {
	sess, err := session(c)
	if err != nil {
		return unauthorized(c)
	}

	reports, err := h.reportService.Mine(c.UserContext(), sess)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"data":  dto.NewReportList(reports, sess.UserID),
		"total": len(reports),
	})
}

// StartChat opens a direct conversation with the owner of a report.
func (h *ReportHandler) StartChat(c *fiber.Ctx) error {
	sess, err := session(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.StartChatRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
	}

	m, created, err := h.matchService.InitiateChat(c.UserContext(), sess, c.Params("id"), req.OwnReportID)
	if err != nil {
		return serviceError(c, err)
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(dto.NewMatchResponse(m))
}

// Close is the admin operation that withdraws a report from the feed.
func (h *ReportHandler) Close(c *fiber.Ctx) error {
	report, err := h.reportService.Close(c.UserContext(), campus.GetCampusID(c), c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(dto.NewReportResponse(report, ""))
}
