package handler

import (
	"net/http"

	"cardetail/internal/promocodes/service"
	httputil "cardetail/pkg/http"
	"cardetail/pkg/logger"
	"cardetail/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type PromoCodeHandler struct {
	service service.PromoCodeService
	log     *logger.Logger
}

func NewPromoCodeHandler(service service.PromoCodeService, log *logger.Logger) *PromoCodeHandler {
	return &PromoCodeHandler{
		service: service,
		log:     log,
	}
}

func (h *PromoCodeHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/promo-codes", h.Create)
	router.GET("/api/v1/promo-codes", h.GetAll)
	router.POST("/api/v1/promo-codes/validate", h.Validate)
	router.GET("/api/v1/promo-codes/code/:code", h.GetByCode)
	router.PATCH("/api/v1/promo-codes/code/:code", h.Update)
	router.DELETE("/api/v1/promo-codes/code/:code", h.Deactivate)
}

func (h *PromoCodeHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	var promo model.PromoCode
	if err := httputil.DecodeJSON(r, &promo, false); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := h.service.Create(r.Context(), &promo, actor); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, promo); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *PromoCodeHandler) GetByCode(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "GetByCode", err)
		return
	}

	promo, err := h.service.GetByCode(r.Context(), ps.ByName("code"), actor)
	if err != nil {
		h.writeError(w, "GetByCode", err)
		return
	}

	if err := httputil.WriteSuccess(w, promo); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByCode", "operation", "WriteSuccess", "error", err)
	}
}

// GetAll lists promo codes. Query: active=true, limit, offset.
func (h *PromoCodeHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	promos, total, err := h.service.GetAll(r.Context(), r.URL.Query().Get("active") == "true", limit, offset, actor)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, promos, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *PromoCodeHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	var updates model.PromoCodeUpdate
	if err := httputil.DecodeJSON(r, &updates, false); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	promo, err := h.service.Update(r.Context(), ps.ByName("code"), &updates, actor)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, promo); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

// Deactivate keeps the code and its usage history; it only stops further use.
func (h *PromoCodeHandler) Deactivate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "Deactivate", err)
		return
	}

	if err := h.service.Deactivate(r.Context(), ps.ByName("code"), actor); err != nil {
		h.writeError(w, "Deactivate", err)
		return
	}

	httputil.WriteNoContent(w)
}

// Validate answers whether a code applies to an order. Customers can only
// check on their own behalf.
func (h *PromoCodeHandler) Validate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "Validate", err)
		return
	}

	var req model.ValidatePromoRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.writeError(w, "Validate", err)
		return
	}
	if !actor.IsOperator() || req.UserID == "" {
		req.UserID = actor.ID
	}

	res, err := h.service.Check(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Validate", err)
		return
	}

	if err := httputil.WriteSuccess(w, res); err != nil {
		h.log.Error("failed to write success response", "handler", "Validate", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PromoCodeHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}
