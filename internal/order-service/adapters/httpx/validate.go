package httpx

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

const (
	defaultLimit = 100
	maxLimit     = 100
)

var (
	namePattern = regexp.MustCompile(`^[A-Za-z0-9\s.,\-&()]+$`)
	skuPattern  = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
)

func invalid(field, format string, args ...any) error {
	return &domain.ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func checkLength(field, v string, min, max int) error {
	n := utf8.RuneCountInString(v)
	if n < min || n > max {
		return invalid(field, "length must be between %d and %d characters", min, max)
	}
	return nil
}

// toNewProduct applies the input-shape rules of the create endpoint. Lengths
// are checked on the trimmed values that end up stored.
func (req CreateProductRequest) toNewProduct() (domain.NewProduct, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.SKU = strings.TrimSpace(req.SKU)
	req.Category = strings.TrimSpace(req.Category)
	if err := checkLength("name", req.Name, 3, 255); err != nil {
		return domain.NewProduct{}, err
	}
	if !namePattern.MatchString(req.Name) {
		return domain.NewProduct{}, invalid("name", "contains invalid characters")
	}
	if err := checkLength("sku", req.SKU, 3, 50); err != nil {
		return domain.NewProduct{}, err
	}
	if !skuPattern.MatchString(req.SKU) {
		return domain.NewProduct{}, invalid("sku", "must contain only letters, numbers, and hyphens")
	}
	if err := checkLength("category", req.Category, 2, 100); err != nil {
		return domain.NewProduct{}, err
	}
	if req.Description != nil {
		if err := checkLength("description", *req.Description, 10, 1000); err != nil {
			return domain.NewProduct{}, err
		}
	}
	if req.Price == nil {
		return domain.NewProduct{}, invalid("price", "is required")
	}
	if !domain.ValidPrice(*req.Price) {
		return domain.NewProduct{}, invalid("price", "must be greater than zero with at most 2 decimal places")
	}
	if req.Stock == nil {
		return domain.NewProduct{}, invalid("stock", "is required")
	}
	if *req.Stock < 0 {
		return domain.NewProduct{}, invalid("stock", "must not be negative")
	}

	return domain.NewProduct{
		Name:        req.Name,
		SKU:         domain.NormalizeSKU(req.SKU),
		Category:    req.Category,
		Description: req.Description,
		Price:       *req.Price,
		Stock:       *req.Stock,
	}, nil
}

func (req PlaceOrderRequest) toLineItems() ([]domain.LineItem, error) {
	items := make([]domain.LineItem, len(req.Products))
	for i, p := range req.Products {
		items[i] = domain.LineItem{ProductID: p.ProductID, Quantity: p.Quantity}
	}
	if err := domain.ValidateItems(items); err != nil {
		return nil, err
	}
	return items, nil
}

// pagination reads skip and limit, defaulting to 0 and 100.
func pagination(q url.Values) (skip, limit int, err error) {
	skip, limit = 0, defaultLimit
	if v := q.Get("skip"); v != "" {
		if skip, err = strconv.Atoi(v); err != nil {
			return 0, 0, invalid("skip", "must be an integer")
		}
	}
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			return 0, 0, invalid("limit", "must be an integer")
		}
	}
	if skip < 0 {
		return 0, 0, invalid("skip", "must be greater than or equal to 0")
	}
	if limit < 1 || limit > maxLimit {
		return 0, 0, invalid("limit", "must be between 1 and %d", maxLimit)
	}
	return skip, limit, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, invalid("id", "must be an integer")
	}
	return id, nil
}
