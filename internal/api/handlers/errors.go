package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Fantasim/crowdfund/internal/config"
	"github.com/Fantasim/crowdfund/internal/db"
	"github.com/Fantasim/crowdfund/internal/httputil"
	"github.com/Fantasim/crowdfund/internal/models"
	"github.com/go-chi/chi/v5"
)

// ListSystemErrors handles GET /api/errors.
func ListSystemErrors(database *db.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := database.ListUnresolved()
		if err != nil {
			slog.Error("failed to list system errors", "error", err)
			httputil.Error(w, http.StatusInternalServerError, config.ErrorDatabase, "failed to list system errors")
			return
		}
		if list == nil {
			list = []models.SystemError{}
		}
		httputil.JSON(w, http.StatusOK, list)
	}
}

// ResolveSystemError handles POST /api/errors/{id}/resolve.
func ResolveSystemError(database *db.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil || id < 1 {
			httputil.Error(w, http.StatusBadRequest, config.ErrorInvalidInput, "error id must be a positive integer")
			return
		}

		if err := database.MarkResolved(id); err != nil {
			if errors.Is(err, config.ErrSystemErrorNotFound) {
				httputil.Error(w, http.StatusNotFound, config.ErrorNotFound, err.Error())
				return
			}
			slog.Error("failed to resolve system error", "id", id, "error", err)
			httputil.Error(w, http.StatusInternalServerError, config.ErrorDatabase, "failed to resolve system error")
			return
		}

		httputil.JSON(w, http.StatusOK, map[string]interface{}{"id": id, "resolved": true})
	}
}
