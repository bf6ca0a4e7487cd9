package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/optiplus/storefront/internal/store"
	"github.com/shopspring/decimal"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.shop.Health(ctx); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, payload{"status": "unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, payload{"status": "ok"})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	home, err := s.shop.Home(r.Context())
	if err != nil {
		s.fail(w, r, err, "")
		return
	}

	s.page(w, r, payload{
		"featured_products": toProducts(home.Featured),
		"brands":            home.Brands,
		"categories":        home.Categories,
	})
}

func optionalDecimal(raw string) decimal.NullDecimal {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// productFilter reads the listing filters from the query string. Malformed
// prices are ignored.
func productFilter(r *http.Request) (store.ProductFilter, int) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))

	return store.ProductFilter{
		CategorySlug:  q.Get("category"),
		BrandSlug:     q.Get("brand"),
		FrameShape:    q.Get("frame_shape"),
		FrameMaterial: q.Get("frame_material"),
		MinPrice:      optionalDecimal(q.Get("min_price")),
		MaxPrice:      optionalDecimal(q.Get("max_price")),
		Query:         q.Get("q"),
		Sort:          q.Get("sort"),
	}, page
}

func (s *Server) handleProductList(w http.ResponseWriter, r *http.Request) {
	filter, page := productFilter(r)

	products, err := s.shop.Products(r.Context(), filter, page)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}

	categories, err := s.shop.Categories(r.Context())
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	brands, err := s.shop.Brands(r.Context())
	if err != nil {
		s.fail(w, r, err, "")
		return
	}

	s.page(w, r, payload{
		"products":   toProductPage(products),
		"categories": categories,
		"brands":     brands,
		"sort":       filter.Sort,
	})
}

func (s *Server) handleProductSearch(w http.ResponseWriter, r *http.Request) {
	filter, page := productFilter(r)
	if filter.Query == "" {
		s.page(w, r, payload{"query": "", "products": toProductPage(&store.OffsetPage{
			Items: nil, Page: 1, PageSize: store.DefaultPageSize,
		})})
		return
	}

	products, err := s.shop.Products(r.Context(), filter, page)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}

	s.page(w, r, payload{"query": filter.Query, "products": toProductPage(products)})
}

func (s *Server) handleOffers(w http.ResponseWriter, r *http.Request) {
	filter, page := productFilter(r)

	products, err := s.shop.Offers(r.Context(), filter, page)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}

	s.page(w, r, payload{"products": toProductPage(products), "sort": filter.Sort})
}

func (s *Server) handleBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := s.shop.Brands(r.Context())
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	s.page(w, r, payload{"brands": brands})
}

func (s *Server) handleCategoryProducts(w http.ResponseWriter, r *http.Request) {
	filter, page := productFilter(r)

	category, products, err := s.shop.CategoryProducts(r.Context(), chi.URLParam(r, "slug"), filter, page)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}

	s.page(w, r, payload{"category": category, "products": toProductPage(products)})
}

func (s *Server) handleBrandProducts(w http.ResponseWriter, r *http.Request) {
	filter, page := productFilter(r)

	brand, products, err := s.shop.BrandProducts(r.Context(), chi.URLParam(r, "slug"), filter, page)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}

	s.page(w, r, payload{"brand": brand, "products": toProductPage(products)})
}

func (s *Server) handleProductDetail(w http.ResponseWriter, r *http.Request) {
	view, err := s.shop.Product(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.fail(w, r, err, "")
		return
	}

	s.page(w, r, payload{
		"product":          toProduct(view.Product),
		"related_products": toProducts(view.Related),
	})
}
