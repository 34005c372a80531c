package controllers

import (
	"net/http"

	"github.com/tillpoint/pos-engine/api/middleware"
	"github.com/tillpoint/pos-engine/api/responses"
	"github.com/tillpoint/pos-engine/api/validators"
	"github.com/tillpoint/pos-engine/internal/holds"
	pkgerrors "github.com/tillpoint/pos-engine/pkg/errors"
	"github.com/tillpoint/pos-engine/pkg/logger"
)

type holdRequest struct {
	Note string `json:"note" validate:"max=500"`
}

func HoldCreate(svc holds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := middleware.SessionFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "register session missing"))
			return
		}

		var req holdRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		held, err := svc.Hold(r.Context(), sess, req.Note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, held)
	}
}

func HoldList(svc holds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, svc.List(r.Context()))
	}
}

func HoldResume(svc holds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := middleware.SessionFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "register session missing"))
			return
		}

		holdID, err := parsePathUUID(r, "holdId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resumed, err := svc.Resume(r.Context(), sess, holdID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resumed)
	}
}

func HoldDelete(svc holds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		holdID, err := parsePathUUID(r, "holdId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Remove(r.Context(), holdID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
