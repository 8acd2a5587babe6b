package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/reconcile"
)

// JobReconciler is the reconciliation surface the handlers consume.
type JobReconciler interface {
	CheckOne(ctx context.Context, jobID string) (reconcile.Outcome, error)
	RecoverAll(ctx context.Context) (*reconcile.BulkResult, error)
}

// App bundles the dependencies shared by HTTP handlers.
type App struct {
	Store      domain.JobStore
	Reconciler JobReconciler
	Estimator  reconcile.Estimator
	Logger     infra.Logger
}

func NewApp(store domain.JobStore, reconciler JobReconciler, estimator reconcile.Estimator, logger infra.Logger) *App {
	return &App{
		Store:      store,
		Reconciler: reconciler,
		Estimator:  estimator,
		Logger:     logger,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{
		"error": map[string]string{
			"code":    errCode,
			"message": message,
		},
	})
}
