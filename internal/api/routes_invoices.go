package api

import (
	"github.com/gin-gonic/gin"

	"github.com/mdnaeem95/halaltech/internal/handlers"
	"github.com/mdnaeem95/halaltech/internal/middleware"
	"github.com/mdnaeem95/halaltech/internal/permissions"
)

func registerInvoiceRoutes(api *gin.RouterGroup, handler *handlers.InvoiceHandler, checker *permissions.Checker) {
	invoices := api.Group("/invoices")
	{
		invoices.GET("", middleware.RequirePermission(checker, "invoice.view"), handler.List)
		invoices.GET("/:id", middleware.RequirePermission(checker, "invoice.view"), handler.Get)
		invoices.PATCH("/:id", middleware.RequirePermission(checker, "invoice.manage"), handler.Update)
	}
	api.POST("/admin/invoices", middleware.RequirePermission(checker, "invoice.manage"), handler.Create)
}
