package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/workspace-service/internal/api/http/handlers"
	"github.com/spec-kit/workspace-service/internal/auth"
	"github.com/spec-kit/workspace-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Auth     *handlers.AuthHandler
	Users    *handlers.UsersHandler
	Roles    *handlers.RolesHandler
	Projects *handlers.ProjectsHandler
	Tasks    *handlers.TasksHandler
	Ideas    *handlers.IdeasHandler
	Gate     *auth.Gate
}

// RegisterRoutes wires HTTP routes. Everything past the auth group requires a
// valid access token; write routes additionally require capabilities.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)

	authenticated := authGroup.Group("", cfg.Gate.Authenticate())
	authenticated.Get("/me", cfg.Auth.Me)
	authenticated.Post("/logout/all", cfg.Auth.LogoutAll)
	authenticated.Post("/password/change", cfg.Auth.ChangePassword)

	users := app.Group("/users", cfg.Gate.Authenticate())
	users.Get("/", cfg.Gate.Require(auth.ModeAll, domain.PermUsersRead), cfg.Users.List)
	users.Get("/:id", cfg.Gate.Require(auth.ModeAll, domain.PermUsersRead), cfg.Users.Get)
	users.Post("/", cfg.Gate.Require(auth.ModeAll, domain.PermUsersWrite), cfg.Users.Create)
	users.Patch("/:id", cfg.Gate.Require(auth.ModeAll, domain.PermUsersWrite), cfg.Users.Update)
	users.Delete("/:id", cfg.Gate.Require(auth.ModeAll, domain.PermUsersWrite), cfg.Users.Delete)
	users.Get("/:id/roles", cfg.Gate.Require(auth.ModeAny, domain.PermUsersRead, domain.PermRolesRead), cfg.Users.ListRoles)
	users.Post("/:id/roles", cfg.Gate.Require(auth.ModeAll, domain.PermUsersWrite, domain.PermRolesWrite), cfg.Users.AssignRole)
	users.Delete("/:id/roles/:roleId", cfg.Gate.Require(auth.ModeAll, domain.PermUsersWrite, domain.PermRolesWrite), cfg.Users.RemoveRole)

	roles := app.Group("/roles", cfg.Gate.Authenticate())
	roles.Get("/", cfg.Gate.Require(auth.ModeAll, domain.PermRolesRead), cfg.Roles.List)
	roles.Get("/:id", cfg.Gate.Require(auth.ModeAll, domain.PermRolesRead), cfg.Roles.Get)
	roles.Post("/", cfg.Gate.Require(auth.ModeAll, domain.PermRolesWrite), cfg.Roles.Create)
	roles.Patch("/:id", cfg.Gate.Require(auth.ModeAll, domain.PermRolesWrite), cfg.Roles.Update)
	roles.Delete("/:id", cfg.Gate.Require(auth.ModeAll, domain.PermRolesWrite), cfg.Roles.Delete)
	roles.Post("/:id/permissions", cfg.Gate.Require(auth.ModeAll, domain.PermRolesWrite), cfg.Roles.GrantPermission)
	roles.Delete("/:id/permissions/:permission", cfg.Gate.Require(auth.ModeAll, domain.PermRolesWrite), cfg.Roles.RevokePermission)

	permissions := app.Group("/permissions", cfg.Gate.Authenticate())
	permissions.Get("/", cfg.Gate.Require(auth.ModeAll, domain.PermRolesRead), cfg.Roles.ListPermissions)
	permissions.Post("/", cfg.Gate.Require(auth.ModeAll, domain.PermRolesWrite), cfg.Roles.CreatePermission)
	permissions.Delete("/:name", cfg.Gate.Require(auth.ModeAll, domain.PermRolesWrite), cfg.Roles.DeletePermission)

	projects := app.Group("/projects", cfg.Gate.Authenticate())
	projects.Get("/", cfg.Gate.Require(auth.ModeAll, domain.PermProjectsRead), cfg.Projects.List)
	projects.Get("/:id", cfg.Gate.Require(auth.ModeAll, domain.PermProjectsRead), cfg.Projects.Get)
	projects.Post("/", cfg.Gate.Require(auth.ModeAll, domain.PermProjectsWrite), cfg.Projects.Create)
	projects.Put("/:id", cfg.Gate.Require(auth.ModeAll, domain.PermProjectsWrite), cfg.Projects.Update)
	projects.Delete("/:id", cfg.Gate.Require(auth.ModeAll, domain.PermProjectsWrite), cfg.Projects.Delete)

	tasks := app.Group("/tasks", cfg.Gate.Authenticate())
	tasks.Get("/", cfg.Gate.Require(auth.ModeAll, domain.PermTasksRead), cfg.Tasks.List)
	tasks.Get("/:id", cfg.Gate.Require(auth.ModeAll, domain.PermTasksRead), cfg.Tasks.Get)
	tasks.Post("/", cfg.Gate.Require(auth.ModeAll, domain.PermTasksWrite), cfg.Tasks.Create)
	tasks.Patch("/:id", cfg.Gate.Require(auth.ModeAll, domain.PermTasksWrite), cfg.Tasks.Update)
	tasks.Delete("/:id", cfg.Gate.Require(auth.ModeAll, domain.PermTasksWrite), cfg.Tasks.Delete)

	ideas := app.Group("/ideas", cfg.Gate.Authenticate())
	ideas.Get("/", cfg.Gate.Require(auth.ModeAll, domain.PermIdeasRead), cfg.Ideas.List)
	ideas.Get("/:id", cfg.Gate.Require(auth.ModeAll, domain.PermIdeasRead), cfg.Ideas.Get)
	ideas.Post("/", cfg.Gate.Require(auth.ModeAll, domain.PermIdeasWrite), cfg.Ideas.Create)
	ideas.Put("/:id", cfg.Gate.Require(auth.ModeAll, domain.PermIdeasWrite), cfg.Ideas.Update)
	ideas.Delete("/:id", cfg.Gate.Require(auth.ModeAll, domain.PermIdeasWrite), cfg.Ideas.Delete)
	ideas.Post("/:id/suggest", cfg.Gate.Require(auth.ModeAll, domain.PermIdeasWrite), cfg.Ideas.Suggest)
}
