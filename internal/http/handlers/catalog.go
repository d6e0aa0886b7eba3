package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/beemart/server/internal/auth"
	"github.com/beemart/server/internal/catalog"
	"github.com/beemart/server/internal/validation"
)

// Resource serves flat CRUD for one catalog table. Writes always pass the
// admin guard; reads do when guardReads is set.
type Resource[T any, PT catalog.Record[T]] struct {
	store      *catalog.Store[T, PT]
	validate   *validator.Validate
	guardReads bool
}

func NewResource[T any, PT catalog.Record[T]](store *catalog.Store[T, PT], guardReads bool) *Resource[T, PT] {
	return &Resource[T, PT]{store: store, validate: validation.New(), guardReads: guardReads}
}

// Routes mounts the five CRUD routes behind requireAdmin.
func (h *Resource[T, PT]) Routes(requireAdmin func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		if h.guardReads {
			r.Use(requireAdmin)
		}
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
	})
	r.Group(func(r chi.Router) {
		r.Use(requireAdmin)
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
	return r
}

func (h *Resource[T, PT]) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	items, err := h.store.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Resource[T, PT]) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := resourceID(w, r)
	if !ok {
		return
	}
	item, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Resource[T, PT]) Create(w http.ResponseWriter, r *http.Request) {
	item, ok := h.decode(w, r)
	if !ok {
		return
	}
	if err := h.store.Create(r.Context(), item); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *Resource[T, PT]) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := resourceID(w, r)
	if !ok {
		return
	}
	item, ok := h.decode(w, r)
	if !ok {
		return
	}
	updated, err := h.store.Update(r.Context(), id, item)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Resource[T, PT]) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := resourceID(w, r)
	if !ok {
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "deleted", meta{"id": id})
}

func (h *Resource[T, PT]) decode(w http.ResponseWriter, r *http.Request) (PT, bool) {
	item := PT(new(T))
	if !decodeJSON(w, r, item) {
		return nil, false
	}
	if err := h.validate.Struct(item); err != nil {
		if fields := validation.Fields(err); fields != nil {
			writeError(w, r, &auth.ValidationError{Fields: fields})
			return nil, false
		}
		writeError(w, r, err)
		return nil, false
	}
	return item, true
}

func resourceID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusNotFound, catalog.ErrNotFound.Error(), nil)
		return 0, false
	}
	return id, true
}

// Mounter is a resource that can mount its routes
type Mounter interface {
	Routes(requireAdmin func(http.Handler) http.Handler) http.Handler
}

// CatalogResources maps each catalog path to its resource. Management data
// (warehouses, stock, purchasing) is guarded for reads as well.
func CatalogResources(orm *gorm.DB) map[string]Mounter {
	return map[string]Mounter{
		"/categories":           NewResource(catalog.NewStore[catalog.Category](orm), false),
		"/brands":               NewResource(catalog.NewStore[catalog.Brand](orm), false),
		"/products":             NewResource(catalog.NewStore[catalog.Product](orm), false),
		"/variants":             NewResource(catalog.NewStore[catalog.ProductVariant](orm), false),
		"/warehouses":           NewResource(catalog.NewStore[catalog.Warehouse](orm), true),
		"/inventories":          NewResource(catalog.NewStore[catalog.Inventory](orm), true),
		"/purchase-orders":      NewResource(catalog.NewStore[catalog.PurchaseOrder](orm), true),
		"/purchase-order-items": NewResource(catalog.NewStore[catalog.PurchaseOrderItem](orm), true),
	}
}
