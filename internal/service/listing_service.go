package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"ecofinds/internal/models"
	"ecofinds/internal/store"
	"ecofinds/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxListingImages = 10

var maxListingPrice = decimal.RequireFromString("99999999.99")

// ListingService handles the catalog: search, listing management and
// category lookup.
type ListingService struct {
	listings     ListingRepository
	categories   CategoryRepository
	defaultLimit int
	maxLimit     int
	logger       *zap.Logger
}

func NewListingService(listings ListingRepository, categories CategoryRepository, defaultLimit, maxLimit int) *ListingService {
	return &ListingService{
		listings:     listings,
		categories:   categories,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		logger:       util.GetLogger(),
	}
}

// ListingQuery holds the raw catalog query parameters.
type ListingQuery struct {
	Page      string `form:"page"`
	Limit     string `form:"limit"`
	Search    string `form:"search"`
	Category  string `form:"category"`
	Condition string `form:"condition"`
	MinPrice  string `form:"minPrice"`
	MaxPrice  string `form:"maxPrice"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
}

type ListingPage struct {
	Products   []models.ListingView `json:"products"`
	Pagination models.Pagination    `json:"pagination"`
}

// List searches active, unsold listings.
func (s *ListingService) List(ctx context.Context, q *ListingQuery) (*ListingPage, error) {
	ctx, span := util.StartSpan(ctx, "ListingService.List")
	defer span.End()

	filter, err := s.parseQuery(q)
	if err != nil {
		return nil, err
	}

	listings, total, err := s.listings.SearchListings(ctx, filter)
	if err != nil {
		util.FailSpan(span, err)
		return nil, err
	}

	return &ListingPage{
		Products: listings,
		Pagination: models.Pagination{
			Page:  filter.Page,
			Limit: filter.Limit,
			Total: total,
			Pages: pageCount(total, filter.Limit),
		},
	}, nil
}

func pageCount(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

func (s *ListingService) parseQuery(q *ListingQuery) (models.ListingFilter, error) {
	f := models.ListingFilter{
		Search:       strings.TrimSpace(q.Search),
		CategorySlug: strings.ToLower(strings.TrimSpace(q.Category)),
		Page:         1,
		Limit:        s.defaultLimit,
		SortBy:       models.SortByCreatedAt,
		SortDesc:     true,
	}

	if q.Page != "" {
		page, err := strconv.Atoi(q.Page)
		if err != nil || page < 1 {
			return f, validationError("page must be a positive integer")
		}
		f.Page = page
	}

	if q.Limit != "" {
		limit, err := strconv.Atoi(q.Limit)
		if err != nil || limit < 1 || limit > s.maxLimit {
			return f, validationError(fmt.Sprintf("limit must be between 1 and %d", s.maxLimit))
		}
		f.Limit = limit
	}

	if q.Condition != "" {
		cond := models.Condition(strings.ToUpper(q.Condition))
		if !cond.Valid() {
			return f, validationError("invalid condition")
		}
		f.Condition = cond
	}

	var err error
	if f.MinPrice, err = parsePriceBound(q.MinPrice, "minPrice"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = parsePriceBound(q.MaxPrice, "maxPrice"); err != nil {
		return f, err
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return f, validationError("minPrice cannot exceed maxPrice")
	}

	switch q.SortBy {
	case "":
	case models.SortByCreatedAt, "createdAt":
		f.SortBy = models.SortByCreatedAt
	case models.SortByPrice, models.SortByTitle:
		f.SortBy = q.SortBy
	default:
		return f, validationError("sortBy must be one of created_at, price, title")
	}

	switch strings.ToLower(q.SortOrder) {
	case "", "desc":
	case "asc":
		f.SortDesc = false
	default:
		return f, validationError("sortOrder must be asc or desc")
	}

	return f, nil
}

func parsePriceBound(raw, name string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return nil, validationError(name + " must be a non-negative number")
	}
	return &d, nil
}

type CreateListingRequest struct {
	Title       string           `json:"title" binding:"required,max=200"`
	Description string           `json:"description" binding:"required"`
	Price       decimal.Decimal  `json:"price"`
	Condition   models.Condition `json:"condition" binding:"required"`
	Brand       *string          `json:"brand"`
	Size        *string          `json:"size"`
	Color       *string          `json:"color"`
	Images      []string         `json:"images" binding:"omitempty,dive,required"`
	Category    string           `json:"category"`
	CategoryID  int64            `json:"category_id"`
}

// UpdateListingRequest is a partial update; nil fields are left untouched.
type UpdateListingRequest struct {
	Title       *string           `json:"title" binding:"omitempty,max=200"`
	Description *string           `json:"description"`
	Price       *decimal.Decimal  `json:"price"`
	Condition   *models.Condition `json:"condition"`
	Brand       *string           `json:"brand"`
	Size        *string           `json:"size"`
	Color       *string           `json:"color"`
	Images      []string          `json:"images" binding:"omitempty,dive,required"`
	Category    *string           `json:"category"`
	CategoryID  *int64            `json:"category_id"`
	IsActive    *bool             `json:"is_active"`
}

func validatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return validationError("price must be greater than 0")
	}
	if !price.Round(2).Equal(price) {
		return validationError("price cannot have more than 2 decimal places")
	}
	if price.GreaterThan(maxListingPrice) {
		return validationError("price is too large")
	}
	return nil
}

func validateImages(images []string) error {
	if len(images) > maxListingImages {
		return validationError(fmt.Sprintf("a listing can have at most %d images", maxListingImages))
	}
	return nil
}

// optional trims s and maps blank values to nil.
func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func (s *ListingService) resolveCategory(ctx context.Context, slug string, id int64) (*models.Category, error) {
	var (
		cat *models.Category
		err error
	)
	switch {
	case slug != "":
		cat, err = s.categories.GetCategoryBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	case id > 0:
		cat, err = s.categories.GetCategoryByID(ctx, id)
	default:
		return nil, validationError("category is required")
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrCategoryNotFound
	}
	return cat, err
}

func (s *ListingService) Create(ctx context.Context, sellerID int64, req *CreateListingRequest) (*models.ListingView, error) {
	ctx, span := util.StartSpan(ctx, "ListingService.Create")
	defer span.End()

	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	if title == "" || description == "" {
		return nil, validationError("title and description are required")
	}
	if err := validatePrice(req.Price); err != nil {
		return nil, err
	}
	condition := models.Condition(strings.ToUpper(string(req.Condition)))
	if !condition.Valid() {
		return nil, validationError("invalid condition")
	}
	if err := validateImages(req.Images); err != nil {
		return nil, err
	}

	category, err := s.resolveCategory(ctx, req.Category, req.CategoryID)
	if err != nil {
		return nil, err
	}

	images := req.Images
	if images == nil {
		images = []string{}
	}

	listing := &models.Listing{
		Title:       title,
		Description: description,
		Price:       req.Price,
		Condition:   condition,
		Brand:       optional(req.Brand),
		Size:        optional(req.Size),
		Color:       optional(req.Color),
		Images:      images,
		SellerID:    sellerID,
		CategoryID:  category.ID,
		IsActive:    true,
	}

	if err := s.listings.CreateListing(ctx, listing); err != nil {
		util.FailSpan(span, err)
		return nil, err
	}

	util.ListingsCreatedTotal.Inc()
	s.logger.Info("Listing created",
		zap.Int64("listing_id", listing.ID),
		zap.Int64("seller_id", sellerID))

	return s.Get(ctx, listing.ID)
}

// Get returns any listing by id, whatever its availability.
func (s *ListingService) Get(ctx context.Context, id int64) (*models.ListingView, error) {
	listing, err := s.listings.GetListing(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrListingNotFound
	}
	return listing, err
}

// owned loads a listing and checks that userID is its seller.
func (s *ListingService) owned(ctx context.Context, userID, id int64) (*models.ListingView, error) {
	listing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if listing.SellerID != userID {
		return nil, ErrForbidden
	}
	return listing, nil
}

func (s *ListingService) Update(ctx context.Context, userID, id int64, req *UpdateListingRequest) (*models.ListingView, error) {
	ctx, span := util.StartSpan(ctx, "ListingService.Update")
	defer span.End()

	view, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	listing := view.Listing

	if req.Title != nil {
		if listing.Title = strings.TrimSpace(*req.Title); listing.Title == "" {
			return nil, validationError("title cannot be empty")
		}
	}
	if req.Description != nil {
		if listing.Description = strings.TrimSpace(*req.Description); listing.Description == "" {
			return nil, validationError("description cannot be empty")
		}
	}
	if req.Price != nil {
		if err := validatePrice(*req.Price); err != nil {
			return nil, err
		}
		listing.Price = *req.Price
	}
	if req.Condition != nil {
		condition := models.Condition(strings.ToUpper(string(*req.Condition)))
		if !condition.Valid() {
			return nil, validationError("invalid condition")
		}
		listing.Condition = condition
	}
	if req.Brand != nil {
		listing.Brand = optional(req.Brand)
	}
	if req.Size != nil {
		listing.Size = optional(req.Size)
	}
	if req.Color != nil {
		listing.Color = optional(req.Color)
	}
	if req.Images != nil {
		if err := validateImages(req.Images); err != nil {
			return nil, err
		}
		listing.Images = req.Images
	}
	if req.Category != nil || req.CategoryID != nil {
		var (
			slug  string
			catID int64
		)
		if req.Category != nil {
			slug = *req.Category
		}
		if req.CategoryID != nil {
			catID = *req.CategoryID
		}
		category, err := s.resolveCategory(ctx, slug, catID)
		if err != nil {
			return nil, err
		}
		listing.CategoryID = category.ID
	}
	if req.IsActive != nil {
		if *req.IsActive && !listing.IsActive && listing.IsSold {
			return nil, validationError("a sold listing cannot be re-activated")
		}
		listing.IsActive = *req.IsActive
	}

	if err := s.listings.UpdateListing(ctx, &listing); err != nil {
		util.FailSpan(span, err)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}

	return s.Get(ctx, id)
}

// Delete removes the caller's listing. The returned flag reports whether the
// listing was only deactivated because past orders reference it.
func (s *ListingService) Delete(ctx context.Context, userID, id int64) (bool, error) {
	ctx, span := util.StartSpan(ctx, "ListingService.Delete")
	defer span.End()

	if _, err := s.owned(ctx, userID, id); err != nil {
		return false, err
	}

	kept, err := s.listings.DeleteListing(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, ErrListingNotFound
	}
	if err != nil {
		util.FailSpan(span, err)
		return false, err
	}

	s.logger.Info("Listing deleted", zap.Int64("listing_id", id), zap.Bool("kept_for_history", kept))
	return kept, nil
}

// ListMine returns all listings of the seller in any state.
func (s *ListingService) ListMine(ctx context.Context, sellerID int64) ([]models.ListingView, error) {
	return s.listings.ListListingsBySeller(ctx, sellerID)
}

func (s *ListingService) Categories(ctx context.Context) ([]models.Category, error) {
	return s.categories.ListCategories(ctx)
}
