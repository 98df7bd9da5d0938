package handlers

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/xelth-com/iditgo/internal/errs"
	"github.com/xelth-com/iditgo/internal/models"
)

// ProductRequest creates or patches a product. Nullable fields distinguish
// an absent key from an explicit null.
type ProductRequest struct {
	Name           *string                          `json:"name"`
	Code           models.Optional[string]          `json:"code"`
	ArticleNumber  models.Optional[string]          `json:"articleNumber"`
	Category       *string                          `json:"category"`
	Color          models.Optional[string]          `json:"color"`
	ResourceWeight models.Optional[decimal.Decimal] `json:"resourceWeight"`
	IsActive       *bool                            `json:"isActive"`
}

// listProducts returns products grouped by category in display order.
// ?includeInactive=true also lists deactivated ones.
func (r *Router) listProducts(w http.ResponseWriter, req *http.Request) {
	var products []models.ProductVariant
	q := r.db.WithContext(req.Context()).Order("name ASC")
	if all, _ := strconv.ParseBool(req.URL.Query().Get("includeInactive")); !all {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&products).Error; err != nil {
		r.respondServiceError(w, req, errs.Persistence("load products", err))
		return
	}
	sort.SliceStable(products, func(i, j int) bool {
		return models.CategoryRank(products[i].Category) < models.CategoryRank(products[j].Category)
	})
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"products":        products,
		"categories":      models.CategoriesOf(products),
		"knownCategories": models.KnownCategories(),
	})
}

func (r *Router) createProduct(w http.ResponseWriter, req *http.Request) {
	var in ProductRequest
	if !decodeJSON(w, req, &in) {
		return
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		r.respondServiceError(w, req, errs.Validation("name is required"))
		return
	}

	product := models.ProductVariant{Name: strings.TrimSpace(*in.Name), IsActive: true}
	if err := applyProductRequest(&product, in); err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	err := r.db.WithContext(req.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&product).Error; err != nil {
			return err
		}
		// the column default would override a false IsActive on insert
		if !product.IsActive {
			return tx.Model(&product).Update("is_active", false).Error
		}
		return nil
	})
	if err != nil {
		r.respondServiceError(w, req, errs.Persistence("create product", err))
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

func (r *Router) updateProduct(w http.ResponseWriter, req *http.Request) {
	var in ProductRequest
	if !decodeJSON(w, req, &in) {
		return
	}
	id := mux.Vars(req)["id"]

	var product models.ProductVariant
	err := r.db.WithContext(req.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&product, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("product not found")
			}
			return errs.Persistence("load product", err)
		}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return errs.Validation("name is required")
			}
			product.Name = name
		}
		if err := applyProductRequest(&product, in); err != nil {
			return err
		}
		if err := tx.Save(&product).Error; err != nil {
			return errs.Persistence("update product", err)
		}
		return nil
	})
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// deleteProduct soft-deletes; history keeps resolving the product
func (r *Router) deleteProduct(w http.ResponseWriter, req *http.Request) {
	res := r.db.WithContext(req.Context()).Delete(&models.ProductVariant{}, "id = ?", mux.Vars(req)["id"])
	if res.Error != nil {
		r.respondServiceError(w, req, errs.Persistence("delete product", res.Error))
		return
	}
	if res.RowsAffected == 0 {
		r.respondServiceError(w, req, errs.NotFound("product not found"))
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// applyProductRequest copies the optional fields of in onto p
func applyProductRequest(p *models.ProductVariant, in ProductRequest) error {
	if in.Code.Set {
		p.Code = blankToNil(in.Code.Value)
	}
	if in.ArticleNumber.Set {
		p.ArticleNumber = blankToNil(in.ArticleNumber.Value)
	}
	if in.Color.Set {
		p.Color = blankToNil(in.Color.Value)
	}
	if in.Category != nil {
		cat := strings.ToLower(strings.TrimSpace(*in.Category))
		if cat == "" {
			cat = models.CategoryFinished
		}
		p.Category = cat
	}
	if in.ResourceWeight.Set {
		if in.ResourceWeight.Value == nil {
			p.ResourceWeight = decimal.NullDecimal{}
		} else {
			if in.ResourceWeight.Value.IsNegative() {
				return errs.Validation("resource weight cannot be negative")
			}
			p.ResourceWeight = decimal.NewNullDecimal(*in.ResourceWeight.Value)
		}
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	return nil
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
