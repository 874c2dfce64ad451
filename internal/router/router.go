package router

import (
	"net/http"
	"time"

	mem "medicine-reminder/internal/adapters/storage/memory"
	_ "medicine-reminder/internal/docs"
	"medicine-reminder/internal/domain/medicines"
	"medicine-reminder/internal/middleware"
	"medicine-reminder/internal/platform/logger"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	// Opcional: si no viene, in-memory y sin recordatorios.
	Service *medicines.Service

	Logger logger.Logger // puede ser nil

	// Zona para interpretar horas sin offset ("2030-06-15T09:00"). Default time.Local.
	Location *time.Location
}

func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog(opts.Logger))
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	svc := opts.Service
	if svc == nil {
		svc = medicines.NewService(mem.NewMedicinesRepo(), nil)
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	medicines.RegisterRoutes(r, svc, loc)

	return r
}
