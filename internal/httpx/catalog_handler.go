package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lookali/marketplace-api/internal/auth"
	"github.com/lookali/marketplace-api/internal/catalog"
)

// CatalogHandler serves the partner back office: stores, products,
// customers, suppliers and payment methods.
type CatalogHandler struct {
	Catalog *catalog.Service
}

func (h *CatalogHandler) Register(r chi.Router, authn func(http.Handler) http.Handler) {
	c := h.Catalog
	r.Get("/partners/{partnerID}/products", h.listProducts)

	r.Group(func(r chi.Router) {
		r.Use(authn)
		r.Get("/partners", h.myPartners)
		r.Post("/partners", withBody(http.StatusCreated, func(ctx context.Context, p auth.Principal, rp routeParams, in catalog.PartnerInput) (any, error) {
			return c.CreatePartner(ctx, p, in)
		}))
		r.Put("/partners/{partnerID}", withBody(http.StatusOK, func(ctx context.Context, p auth.Principal, rp routeParams, in catalog.PartnerInput) (any, error) {
			return c.UpdatePartner(ctx, p, rp.partner, in)
		}))
		r.Put("/partners/{partnerID}/payment-credentials", withBody(http.StatusNoContent, func(ctx context.Context, p auth.Principal, rp routeParams, in catalog.PaymentCredentialsInput) (any, error) {
			return nil, c.SetPaymentCredentials(ctx, p, rp.partner, in)
		}))

		r.Post("/partners/{partnerID}/products", withBody(http.StatusCreated, func(ctx context.Context, p auth.Principal, rp routeParams, in catalog.ProductInput) (any, error) {
			return c.CreateProduct(ctx, p, rp.partner, in)
		}))
		r.Put("/partners/{partnerID}/products/{id}", withBody(http.StatusOK, func(ctx context.Context, p auth.Principal, rp routeParams, in catalog.ProductInput) (any, error) {
			return c.UpdateProduct(ctx, p, rp.partner, rp.id, in)
		}))
		r.Delete("/partners/{partnerID}/products/{id}", remove(c.DeleteProduct))

		r.Get("/partners/{partnerID}/customers", list(c.ListCustomers))
		r.Post("/partners/{partnerID}/customers", withBody(http.StatusCreated, func(ctx context.Context, p auth.Principal, rp routeParams, in catalog.CustomerInput) (any, error) {
			return c.CreateCustomer(ctx, p, rp.partner, in)
		}))
		r.Put("/partners/{partnerID}/customers/{id}", withBody(http.StatusOK, func(ctx context.Context, p auth.Principal, rp routeParams, in catalog.CustomerInput) (any, error) {
			return c.UpdateCustomer(ctx, p, rp.partner, rp.id, in)
		}))
		r.Delete("/partners/{partnerID}/customers/{id}", remove(c.DeleteCustomer))

		r.Get("/partners/{partnerID}/suppliers", list(c.ListSuppliers))
		r.Post("/partners/{partnerID}/suppliers", withBody(http.StatusCreated, func(ctx context.Context, p auth.Principal, rp routeParams, in catalog.SupplierInput) (any, error) {
			return c.CreateSupplier(ctx, p, rp.partner, in)
		}))
		r.Put("/partners/{partnerID}/suppliers/{id}", withBody(http.StatusOK, func(ctx context.Context, p auth.Principal, rp routeParams, in catalog.SupplierInput) (any, error) {
			return c.UpdateSupplier(ctx, p, rp.partner, rp.id, in)
		}))
		r.Delete("/partners/{partnerID}/suppliers/{id}", remove(c.DeleteSupplier))

		r.Get("/partners/{partnerID}/payment-methods", list(c.ListPaymentMethods))
		r.Post("/partners/{partnerID}/payment-methods", withBody(http.StatusCreated, func(ctx context.Context, p auth.Principal, rp routeParams, in catalog.PaymentMethodInput) (any, error) {
			return c.CreatePaymentMethod(ctx, p, rp.partner, in)
		}))
		r.Put("/partners/{partnerID}/payment-methods/{id}", withBody(http.StatusOK, func(ctx context.Context, p auth.Principal, rp routeParams, in catalog.PaymentMethodInput) (any, error) {
			return c.UpdatePaymentMethod(ctx, p, rp.partner, rp.id, in)
		}))
		r.Delete("/partners/{partnerID}/payment-methods/{id}", remove(c.DeletePaymentMethod))
	})
}

type routeParams struct {
	partner string
	id      string
}

func paramsOf(r *http.Request) routeParams {
	return routeParams{partner: chi.URLParam(r, "partnerID"), id: chi.URLParam(r, "id")}
}

// withBody decodes In from the request and writes fn's result with code.
func withBody[In any](code int, fn func(context.Context, auth.Principal, routeParams, In) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		var in In
		if err := decode(r, &in); err != nil {
			writeError(w, r, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		out, err := fn(ctx, p, paramsOf(r), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if code == http.StatusNoContent {
			w.WriteHeader(code)
			return
		}
		writeJSON(w, code, out)
	}
}

func list[T any](fn func(context.Context, auth.Principal, string) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		out, err := fn(ctx, p, chi.URLParam(r, "partnerID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func remove(fn func(context.Context, auth.Principal, string, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		rp := paramsOf(r)
		if err := fn(ctx, p, rp.partner, rp.id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *CatalogHandler) myPartners(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Catalog.MyPartners(ctx, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Catalog.ListProducts(ctx, chi.URLParam(r, "partnerID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
