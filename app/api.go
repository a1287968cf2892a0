package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lgimportados/pricewatch/config"
)

func NewAPI(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, svc *Service, registry *prometheus.Registry) *http.Server {
	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	srv := &http.Server{Addr: addr, Handler: router(cfg, log, svc, registry)}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go srv.ListenAndServe()
			return nil
		},
		OnStop: srv.Shutdown,
	})

	return srv
}

func router(cfg *config.Config, log *zap.Logger, svc *Service, registry *prometheus.Registry) http.Handler {
	ctrl := &controller{log, svc}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Method("GET", "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		if creds := cfg.GetCreds(); len(creds) > 0 {
			r.Use(middleware.BasicAuth("pricewatch", creds))
		} else {
			log.Sugar().Info("Auth is disabled since no credentials are defined")
		}

		r.Route("/monitors", func(r chi.Router) {
			r.Get("/", ctrl.listMonitors)
			r.Post("/", ctrl.createMonitor)
			r.Get("/settings", ctrl.getSettings)
			r.Post("/settings", ctrl.saveSettings)
			r.Delete("/{id}", ctrl.deleteMonitor)
			r.Post("/{id}/run", ctrl.runMonitor)
		})
	})

	return r
}

type controller struct {
	log *zap.Logger
	svc *Service
}

func (ctrl *controller) reject(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "error": err.Error()})
}

func (ctrl *controller) resolve(w http.ResponseWriter, status int, body any) {
	b, err := json.Marshal(body)
	if err != nil {
		ctrl.log.Sugar().Errorw("Request failed", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

func (ctrl *controller) listMonitors(w http.ResponseWriter, r *http.Request) {
	rows, err := ctrl.svc.ListMonitors(r.Context())
	if err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}

	views := make([]MonitorView, len(rows))
	for i := range rows {
		views[i] = MonitorView{}.From(&rows[i])
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"success": true, "monitors": views})
}

type createMonitorRequest struct {
	ProductID uint   `json:"productId"`
	URL       string `json:"url"`
	SiteName  string `json:"siteName"`
}

func (ctrl *controller) createMonitor(w http.ResponseWriter, r *http.Request) {
	var req createMonitorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}

	monitor, err := ctrl.svc.CreateMonitor(r.Context(), req.ProductID, req.URL, req.SiteName)
	if errors.Is(err, ErrMissingFields) {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	} else if err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}

	row := MonitorRow{PriceMonitor: *monitor}
	ctrl.resolve(w, http.StatusOK, map[string]any{"success": true, "monitor": MonitorView{}.From(&row)})
}

func (ctrl *controller) deleteMonitor(w http.ResponseWriter, r *http.Request) {
	id := parseID(chi.URLParam(r, "id"))
	if err := ctrl.svc.DeleteMonitor(r.Context(), id); err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"success": true})
}

func (ctrl *controller) runMonitor(w http.ResponseWriter, r *http.Request) {
	id := parseID(chi.URLParam(r, "id"))

	result, err := ctrl.svc.RunNow(r.Context(), id)
	if err != nil {
		// The failure is already recorded on the monitor; surface it to the
		// operator as a structured result rather than a bare 500.
		ctrl.resolve(w, http.StatusOK, map[string]any{
			"success": true,
			"result":  map[string]any{"error": err.Error()},
		})
		return
	}
	if result == nil {
		ctrl.reject(w, http.StatusNotFound, errors.New("monitor not found"))
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"success": true, "result": result})
}

func (ctrl *controller) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := ctrl.svc.GetSettings(r.Context())
	if err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"success": true, "settings": SettingsView{}.From(settings)})
}

type saveSettingsRequest struct {
	CheckIntervalMinutes *int  `json:"checkIntervalMinutes"`
	IsActive             *bool `json:"isActive"`
}

func (ctrl *controller) saveSettings(w http.ResponseWriter, r *http.Request) {
	var req saveSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}

	settings, err := ctrl.svc.UpdateSettings(r.Context(), req.CheckIntervalMinutes, req.IsActive)
	if err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"success": true, "settings": SettingsView{}.From(settings)})
}

func parseID(s string) uint {
	u, _ := strconv.ParseUint(s, 10, 64)
	return uint(u)
}
