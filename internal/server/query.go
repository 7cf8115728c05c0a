package server

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/and161185/storefront/internal/errs"
	"github.com/and161185/storefront/internal/model"
)

// FilterFromQuery reads a listing filter from the products query string.
// offset must be a multiple of limit; limit defaults to the home page size.
func FilterFromQuery(q url.Values) (model.Filter, error) {
	f := model.DefaultFilter()
	f.Title = q.Get("title")

	var err error
	if f.CategoryID, err = intParam(q, "categoryId", model.DefaultCategoryID); err != nil {
		return model.Filter{}, err
	}
	if f.ItemsPerPage, err = intParam(q, "limit", model.DefaultItemsPerPage); err != nil {
		return model.Filter{}, err
	}
	offset, err := intParam(q, "offset", 0)
	if err != nil {
		return model.Filter{}, err
	}
	if f.ItemsPerPage <= 0 || offset < 0 || offset%f.ItemsPerPage != 0 {
		return model.Filter{}, fmt.Errorf("%w: offset %d, limit %d", errs.ErrInvalidFilter, offset, f.ItemsPerPage)
	}
	f.Page = offset/f.ItemsPerPage + 1

	if f.Price, err = floatParam(q, "price"); err != nil {
		return model.Filter{}, err
	}
	if f.PriceMin, err = floatParam(q, "price_min"); err != nil {
		return model.Filter{}, err
	}
	if f.PriceMax, err = floatParam(q, "price_max"); err != nil {
		return model.Filter{}, err
	}
	return f, f.Validate()
}

func intParam(q url.Values, key string, def int) (int, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", errs.ErrInvalidFilter, key, v)
	}
	return n, nil
}

func floatParam(q url.Values, key string) (*float64, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q", errs.ErrInvalidFilter, key, v)
	}
	return &n, nil
}
