package handler

import (
	"net/http"

	"cardetail/internal/catalog/repository"
	"cardetail/internal/catalog/service"
	httputil "cardetail/pkg/http"
	"cardetail/pkg/logger"
	"cardetail/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type ServiceHandler struct {
	service service.CatalogService
	log     *logger.Logger
}

func NewServiceHandler(service service.CatalogService, log *logger.Logger) *ServiceHandler {
	return &ServiceHandler{
		service: service,
		log:     log,
	}
}

func (h *ServiceHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/services", h.Create)
	router.GET("/api/v1/services", h.GetAll)
	router.GET("/api/v1/services/:id", h.GetByID)
	router.PATCH("/api/v1/services/:id", h.Update)
}

func (h *ServiceHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	var svc model.Service
	if err := httputil.DecodeJSON(r, &svc, false); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := h.service.Create(r.Context(), &svc, actor); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, svc); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *ServiceHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	svc, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, svc); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

// GetAll lists the catalog. Query: active=true, category=<category>, limit, offset.
func (h *ServiceHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	query := r.URL.Query()
	filter := repository.ServiceFilter{
		ActiveOnly: query.Get("active") == "true",
		Category:   query.Get("category"),
	}

	services, total, err := h.service.GetAll(r.Context(), filter, limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, services, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *ServiceHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	var updates model.ServiceUpdate
	if err := httputil.DecodeJSON(r, &updates, false); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	svc, err := h.service.Update(r.Context(), ps.ByName("id"), &updates, actor)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, svc); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ServiceHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}
