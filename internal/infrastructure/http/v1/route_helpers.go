// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"paydocs/internal/domain/auth"
	"paydocs/internal/infrastructure/http/v1/middleware"
)

// CatalogRouteHandler defines the interface for catalog handlers.
type CatalogRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
}

// access holds the guards applied to read, write and admin routes.
type access struct {
	read  gin.HandlerFunc
	write gin.HandlerFunc
	admin gin.HandlerFunc
}

// newAccess returns role guards, or passthroughs when authentication is off.
func newAccess(authEnabled bool) access {
	if !authEnabled {
		return access{
			read:  middleware.Passthrough(),
			write: middleware.Passthrough(),
			admin: middleware.Passthrough(),
		}
	}
	return access{
		read:  middleware.RequireRole(auth.RoleViewer, auth.RoleManager),
		write: middleware.RequireRole(auth.RoleManager),
		admin: middleware.RequireAdmin(),
	}
}

// RegisterCatalogRoutes registers the standard routes for a catalog.
//
// Usage:
//
//	handler := handlers.NewJournalHandler(base, svc.Catalog)
//	RegisterCatalogRoutes(catalog.Group("/journals"), handler, read, write)
func RegisterCatalogRoutes(group *gin.RouterGroup, handler CatalogRouteHandler, read, write gin.HandlerFunc) {
	group.GET("", read, handler.List)
	group.POST("", write, handler.Create)
	group.GET("/:id", read, handler.Get)
	group.PUT("/:id", write, handler.Update)
}

// action is a workflow route: POST /:id/<path>.
type action struct {
	path    string
	handler gin.HandlerFunc
}

// registerActions registers workflow actions behind the write guard.
func registerActions(group *gin.RouterGroup, write gin.HandlerFunc, actions ...action) {
	for _, a := range actions {
		group.POST("/:id/"+a.path, write, a.handler)
	}
}
