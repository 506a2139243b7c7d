package main

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/campusflow/school-api/internal/auth"
	"github.com/campusflow/school-api/internal/config"
	"github.com/campusflow/school-api/internal/database"
	"github.com/campusflow/school-api/internal/handler"
	"github.com/campusflow/school-api/internal/permission"
	"github.com/campusflow/school-api/internal/queue"
	"github.com/campusflow/school-api/internal/repository"
	"github.com/campusflow/school-api/internal/router"
	"github.com/campusflow/school-api/internal/service"
)

func main() {
	cfg := config.Load()

	logrus.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Env == "development" {
		logrus.SetLevel(logrus.DebugLevel)
	}

	db, err := database.Open(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	seedCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Seed(seedCtx, db, cfg.BcryptCost); err != nil {
		cancel()
		logrus.WithError(err).Fatal("database seeding failed")
	}
	cancel()

	rdb := config.NewRedisClient()

	tokens := auth.NewTokenService(cfg.JWTSecret)
	blacklist := auth.NewBlacklist(rdb)

	users := repository.NewUserRepo(db)
	roles := repository.NewRoleRepo(db)
	modules := repository.NewModuleRepo(db)
	perms := repository.NewPermissionRepo(db)
	students := repository.NewStudentRepo(db)
	schools := repository.NewSchoolRepo(db)

	engine := permission.NewEngine(modules, perms)
	events := service.NewEventPublisher(cfg.AMQPURL)

	if cfg.AMQPURL != "" {
		go queue.StartAuthConsumer(cfg.AMQPURL)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())

	router.Register(e, router.Handlers{
		Auth:        handler.NewAuthHandler(cfg, users, roles, perms, schools, tokens, blacklist, events),
		Users:       handler.NewUserHandler(cfg, users, roles, engine),
		Roles:       handler.NewRoleHandler(roles, users, engine),
		Modules:     handler.NewModuleHandler(modules, engine),
		Permissions: handler.NewModulePermissionHandler(perms, roles, modules, engine),
		Students:    handler.NewStudentHandler(students, schools, engine),
	}, tokens, blacklist, rdb, cfg.LoginRateLimit, cfg.LoginRateWindow)

	addr := ":" + cfg.Port
	logrus.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("server starting")
	if err := e.Start(addr); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}
