// handlers/group_routes.go
package handlers

import (
	"github.com/Lyzus243/Studyrpg2/middleware"
	"github.com/Lyzus243/Studyrpg2/services"

	"github.com/gofiber/fiber/v2"
)

func SetupGroupRoutes(app *fiber.App, groupService *services.GroupService, userService *services.UserService) {
	// Public listing: no user context, but still behind Gateway auth.
	app.Get("/groups", groupService.ListPublicGroups)

	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/groups", groupService.CreateGroup)
	secured.Post("/groups/:id/join", groupService.JoinGroup)

	// Member search for group invites, backed by the local user mirror.
	secured.Get("/users/search", userService.SearchUsers)
}
