// Package rest exposes the catalog session over HTTP.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	producterrors "github.com/abgdnv/catalog/internal/product/errors"
	"github.com/abgdnv/catalog/internal/product/service"
	"github.com/abgdnv/catalog/internal/product/store"
	"github.com/abgdnv/catalog/internal/product/validation"
	"github.com/abgdnv/catalog/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service  service.CatalogService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new Handler backed by the given catalog session.
func NewHandler(service service.CatalogService, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes of the catalog.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/view", h.View)
			r.Put("/search", h.Search)
			r.Put("/page", h.ChangePage)
			r.Put("/view-type", h.SetViewType)
			r.Get("/categories", h.Categories)

			r.Route("/form", func(r chi.Router) {
				r.Post("/", h.OpenCreateForm)
				r.Delete("/", h.CancelForm)
				r.Post("/submit", h.SubmitForm)
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.FindAll)
			r.Post("/", h.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", h.Update)
				r.Delete("/", h.DeleteByID)
				r.Post("/edit", h.Edit)
			})
		})
	})

	r.Get("/healthz", h.HealthCheck)
}

// View returns the current page of the catalog.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	view := h.service.View(r.Context())
	mLogger.DebugContext(r.Context(), "Rendering catalog view", "page", view.CurrentPage, "matches", view.TotalMatches)
	web.RespondJSON(w, mLogger, http.StatusOK, view)
}

// Search applies a search term, immediately or through the debouncer.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var req SearchRequest
	if !h.decode(w, r, mLogger, &req) {
		return
	}

	if req.Debounce {
		h.service.SearchInput(r.Context(), req.Term)
		web.RespondJSON(w, mLogger, http.StatusAccepted, SearchAccepted{Pending: req.Term})
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, h.service.SearchChanged(r.Context(), req.Term))
}

// ChangePage moves to another page. Out of range pages leave the view unchanged.
func (h *Handler) ChangePage(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var req PageRequest
	if !h.decode(w, r, mLogger, &req) || !h.validateRequest(w, r, mLogger, req) {
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, h.service.ChangePage(r.Context(), req.Page))
}

// SetViewType switches between table and card display.
func (h *Handler) SetViewType(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var req ViewTypeRequest
	if !h.decode(w, r, mLogger, &req) || !h.validateRequest(w, r, mLogger, req) {
		return
	}

	view, err := h.service.SetViewType(r.Context(), req.ViewType)
	if err != nil {
		if errors.Is(err, producterrors.ErrInvalidViewType) {
			web.RespondError(w, mLogger, http.StatusBadRequest, err.Error())
			return
		}
		mLogger.ErrorContext(r.Context(), "Error changing view type", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to change view type")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, view)
}

// Categories returns the options of the category selector.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	web.RespondJSON(w, h.loggerWithReqID(r), http.StatusOK, h.service.Categories())
}

// OpenCreateForm opens an empty product form.
func (h *Handler) OpenCreateForm(w http.ResponseWriter, r *http.Request) {
	web.RespondJSON(w, h.loggerWithReqID(r), http.StatusOK, h.service.OpenCreateForm(r.Context()))
}

// CancelForm closes the product form.
func (h *Handler) CancelForm(w http.ResponseWriter, r *http.Request) {
	web.RespondJSON(w, h.loggerWithReqID(r), http.StatusOK, h.service.CancelForm(r.Context()))
}

// SubmitForm saves the open form as a new product or over the product being edited.
func (h *Handler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var form validation.ProductForm
	if !h.decode(w, r, mLogger, &form) {
		return
	}
	mLogger.DebugContext(r.Context(), "Received form submission", "form", form)
	product, applied, err := h.service.SubmitForm(r.Context(), form)
	h.respondSaved(w, r, mLogger, product, applied, err, http.StatusOK)
}

// FindAll returns every product in store order.
func (h *Handler) FindAll(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	list := h.service.Products(r.Context())
	mLogger.DebugContext(r.Context(), "Successfully retrieved product list", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// Create handles the creation of a new product.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var form validation.ProductForm
	if !h.decode(w, r, mLogger, &form) {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to create product", "form", form)
	product, applied, err := h.service.SaveProduct(r.Context(), form, 0)
	h.respondSaved(w, r, mLogger, product, applied, err, http.StatusCreated)
}

// Update merges the form over an existing product. Unknown IDs are absorbed.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	var form validation.ProductForm
	if !h.decode(w, r, mLogger, &form) {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to update product", "ID", id)
	product, applied, err := h.service.SaveProduct(r.Context(), form, id)
	h.respondSaved(w, r, mLogger, product, applied, err, http.StatusOK)
}

// DeleteByID deletes a product by its ID. Unknown IDs are absorbed.
func (h *Handler) DeleteByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to delete product", "ID", id)
	if h.service.DeleteProduct(r.Context(), id) {
		mLogger.InfoContext(r.Context(), "Product deleted successfully", "ID", id)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Edit opens the product form prefilled with the product.
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	state, err := h.service.EditRequest(r.Context(), id)
	if err != nil {
		if errors.Is(err, producterrors.ErrProductNotFound) {
			mLogger.WarnContext(r.Context(), "Product not found for edit", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %d not found", id))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error opening product for edit", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to edit product with ID %d", id))
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, state)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) respondSaved(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, product store.Product, applied bool, err error, status int) {
	if err != nil {
		if verr, ok := producterrors.AsValidationError(err); ok {
			mLogger.WarnContext(r.Context(), "Validation errors occurred", "errors", verr.Fields)
			web.RespondJSON(w, mLogger, http.StatusBadRequest, map[string]any{"validation_errors": verr.Fields})
			return
		}
		mLogger.ErrorContext(r.Context(), "Error saving product", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to save product")
		return
	}
	if !applied {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	mLogger.InfoContext(r.Context(), "Product saved successfully", "ID", product.ID, "Name", product.Name)
	web.RespondJSON(w, mLogger, status, product)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *Handler) validateRequest(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, req any) bool {
	err := h.validate.Struct(req)
	if err == nil {
		return true
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		errorResponse := make(map[string]string)
		for _, fieldErr := range validationErrors {
			errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
		}
		mLogger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
		web.RespondJSON(w, mLogger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
		return false
	}
	mLogger.ErrorContext(r.Context(), "Error validating request body", "error", err)
	web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
	return false
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
