package controller

import (
	"errors"
	"strings"

	"exchange-analytics-dashboard/internal/filter"
	"exchange-analytics-dashboard/internal/logger"
	"exchange-analytics-dashboard/internal/preset"
	"exchange-analytics-dashboard/internal/repository"
	"exchange-analytics-dashboard/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
)

const sessionKey = "dashboard_session"

type DashboardController interface {
	Session(c *fiber.Ctx) error
	RequireLogin(c *fiber.Ctx) error

	Login(c *fiber.Ctx) error
	Logout(c *fiber.Ctx) error
	Status(c *fiber.Ctx) error

	GetFilters(c *fiber.Ctx) error
	UpdateFilter(c *fiber.Ctx) error
	ClearFilters(c *fiber.Ctx) error
	ApplyPreset(c *fiber.Ctx) error

	QueryOffices(c *fiber.Ctx) error
	SubmitOfficeSearch(c *fiber.Ctx) error
	GetOffices(c *fiber.Ctx) error

	Apply(c *fiber.Ctx) error
	GetView(c *fiber.Ctx) error
}

// Options configures the session cookie.
type Options struct {
	CookieName   string
	CookieSecure bool
}

// dashboardController exposes HTTP handlers for the dashboard.
type dashboardController struct {
	dashboardService service.DashboardService
	opts             Options
	log              *logger.Logger
}

// NewDashboardController builds a DashboardController.
func NewDashboardController(svc service.DashboardService, opts Options, log *logger.Logger) DashboardController {
	if opts.CookieName == "" {
		opts.CookieName = "dashboard_session"
	}
	if log == nil {
		log = logger.Nop()
	}
	return &dashboardController{dashboardService: svc, opts: opts, log: log}
}

// Session makes sure the browser carries a session cookie and records the
// session for later handlers.
func (h *dashboardController) Session(c *fiber.Ctx) error {
	id := utils.CopyString(c.Cookies(h.opts.CookieName))
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     h.opts.CookieName,
			Value:    id,
			Path:     "/",
			HTTPOnly: true,
			Secure:   h.opts.CookieSecure,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}

	c.Locals(sessionKey, service.Session{
		ID:          id,
		Credentials: string(c.Request().Header.Peek(fiber.HeaderCookie)),
	})
	c.SetUserContext(h.log.WithSessionID(c.UserContext(), id))
	return c.Next()
}

// RequireLogin lets the request through only once the backend confirms
// the session. Anyone else is sent to the login route.
func (h *dashboardController) RequireLogin(c *fiber.Ctx) error {
	check := h.dashboardService.CheckSession(c.UserContext(), session(c), c.OriginalURL())

	switch check.Wait(c.UserContext()) {
	case service.GuardGranted:
		return c.Next()
	case service.GuardDenied:
		return c.Redirect(check.LoginURL(), fiber.StatusFound)
	default:
		return fiber.NewError(fiber.StatusServiceUnavailable, "session check did not finish")
	}
}

// Login hands the browser over to the backend sign-in flow.
func (h *dashboardController) Login(c *fiber.Ctx) error {
	next := utils.Trim(c.Query("next", "/"), ' ')
	return c.Redirect(h.dashboardService.LoginURL(next), fiber.StatusFound)
}

// Logout ends the backend session and forgets the dashboard state.
func (h *dashboardController) Logout(c *fiber.Ctx) error {
	err := h.dashboardService.Logout(c.UserContext(), session(c))
	c.ClearCookie(h.opts.CookieName)
	if err != nil {
		h.log.Warn(c.UserContext(), "backend logout failed", err)
		return fiber.NewError(fiber.StatusBadGateway, "logout failed")
	}
	return c.JSON(fiber.Map{"status": "logged_out"})
}

// Status returns the backend health, probing again on ?refresh=true.
func (h *dashboardController) Status(c *fiber.Ctx) error {
	return c.JSON(h.dashboardService.Status(c.UserContext(), c.QueryBool("refresh")))
}

func (h *dashboardController) GetFilters(c *fiber.Ctx) error {
	return c.JSON(h.dashboardService.Filters(session(c)))
}

type updateFilterRequest struct {
	Field string `json:"field" validate:"required"`
	Value any    `json:"value"`
}

func (h *dashboardController) UpdateFilter(c *fiber.Ctx) error {
	var req updateFilterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	snap, err := h.dashboardService.UpdateFilter(session(c), filter.Field(req.Field), req.Value)
	if err != nil {
		return toHTTPError(err, "failed to update filter")
	}
	return c.JSON(snap)
}

func (h *dashboardController) ClearFilters(c *fiber.Ctx) error {
	return c.JSON(h.dashboardService.ClearFilters(session(c)))
}

type presetRequest struct {
	Preset string `json:"preset" validate:"required"`
}

func (h *dashboardController) ApplyPreset(c *fiber.Ctx) error {
	var req presetRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	snap, err := h.dashboardService.ApplyPreset(session(c), req.Preset)
	if err != nil {
		return toHTTPError(err, "failed to apply preset")
	}
	return c.JSON(snap)
}

type officeQueryRequest struct {
	Query string `json:"query" validate:"max=200"`
}

// QueryOffices records typed text. The lookup runs once typing pauses;
// poll GetOffices for the result.
func (h *dashboardController) QueryOffices(c *fiber.Ctx) error {
	var req officeQueryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(h.dashboardService.SearchOffices(session(c), req.Query))
}

// SubmitOfficeSearch searches right away, optionally replacing the text.
func (h *dashboardController) SubmitOfficeSearch(c *fiber.Ctx) error {
	var req officeQueryRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}

	state, err := h.dashboardService.SubmitOfficeSearch(session(c), strings.TrimSpace(req.Query))
	if err != nil {
		return toHTTPError(err, "failed to search entities")
	}
	return c.JSON(state)
}

func (h *dashboardController) GetOffices(c *fiber.Ctx) error {
	return c.JSON(h.dashboardService.OfficeResults(session(c)))
}

// Apply fetches analytics for the current filters and returns the view.
func (h *dashboardController) Apply(c *fiber.Ctx) error {
	view, err := h.dashboardService.Apply(c.UserContext(), session(c))
	if err != nil && !errors.Is(err, service.ErrStaleResponse) {
		return toHTTPError(err, service.AnalyticsFailedMessage)
	}
	return c.JSON(view)
}

func (h *dashboardController) GetView(c *fiber.Ctx) error {
	return c.JSON(h.dashboardService.View(session(c)))
}

func session(c *fiber.Ctx) service.Session {
	sess, _ := c.Locals(sessionKey).(service.Session)
	return sess
}

// toHTTPError maps domain errors to status codes. Anything unrecognised
// is an upstream failure reported with fallback.
func toHTTPError(err error, fallback string) error {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return fiber.NewError(fiber.StatusBadRequest, validationErr.Message)
	case errors.Is(err, filter.ErrUnknownField),
		errors.Is(err, filter.ErrInvalidValue),
		errors.Is(err, preset.ErrUnknownPreset),
		errors.Is(err, repository.ErrInvalidQuery):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, filter.ErrRangeInverted):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, filter.ErrNotReady):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrStaleResponse),
		errors.Is(err, service.ErrClosed):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusBadGateway, fallback)
	}
}
