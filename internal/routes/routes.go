package routes

import (
	"net/http"

	"exchange-analytics-dashboard/internal/controller"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// Register attaches all HTTP routes to the Fiber app.
func Register(app *fiber.App, dashboardController controller.DashboardController, metricsHandler http.Handler) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metricsHandler))

	app.Use(dashboardController.Session)

	app.Get("/login", dashboardController.Login)

	api := app.Group("/api")
	api.Get("/status", dashboardController.Status)
	api.Post("/logout", dashboardController.Logout)

	dashboard := api.Group("/dashboard", dashboardController.RequireLogin)
	dashboard.Get("/filters", dashboardController.GetFilters)
	dashboard.Patch("/filters", dashboardController.UpdateFilter)
	dashboard.Delete("/filters", dashboardController.ClearFilters)
	dashboard.Post("/filters/preset", dashboardController.ApplyPreset)
	dashboard.Post("/offices/query", dashboardController.QueryOffices)
	dashboard.Post("/offices/submit", dashboardController.SubmitOfficeSearch)
	dashboard.Get("/offices", dashboardController.GetOffices)
	dashboard.Post("/apply", dashboardController.Apply)
	dashboard.Get("/view", dashboardController.GetView)
}
