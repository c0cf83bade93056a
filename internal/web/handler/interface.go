package handler

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/spark-admin/spark-admin/internal/auth"
	"github.com/spark-admin/spark-admin/internal/config"
	"github.com/spark-admin/spark-admin/internal/db/controller/activity"
	"github.com/spark-admin/spark-admin/internal/registry"
)

// Deps are the services shared by all web handlers.
type Deps struct {
	Cfg      *config.Config
	DB       *gorm.DB
	Auth     *auth.Service
	Users    *auth.LocalProvider
	Registry *registry.Registry
	Activity *activity.Sink
}

// Valid reports whether the mandatory dependencies are set.
func (d Deps) Valid() bool {
	return d.Cfg != nil && d.DB != nil
}

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, deps Deps) error
}
