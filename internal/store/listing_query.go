package store

import (
	"fmt"
	"strings"

	"ecofinds/internal/models"
)

const listingViewSelect = `
	SELECT l.*,
		u.id AS "seller.id", u.name AS "seller.name",
		u.avatar_url AS "seller.avatar_url", u.location AS "seller.location",
		c.id AS "category.id", c.name AS "category.name", c.slug AS "category.slug"
	FROM listings l
	JOIN users u ON u.id = l.seller_id
	JOIN categories c ON c.id = l.category_id`

var sortColumns = map[string]string{
	models.SortByCreatedAt: "l.created_at",
	models.SortByPrice:     "l.price",
	models.SortByTitle:     "l.title",
}

// escapeLike neutralises LIKE wildcards in user input.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// buildListingWhere renders the WHERE clause of a catalog search with
// bindvar-style placeholders. Only active, unsold listings are matched.
func buildListingWhere(f models.ListingFilter) (string, []interface{}) {
	clauses := []string{"l.is_active = TRUE", "l.is_sold = FALSE"}
	args := []interface{}{}

	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		clauses = append(clauses, "(l.title ILIKE ? OR l.description ILIKE ? OR l.brand ILIKE ?)")
		args = append(args, pattern, pattern, pattern)
	}
	if f.CategorySlug != "" {
		clauses = append(clauses, "c.slug = ?")
		args = append(args, f.CategorySlug)
	}
	if f.Condition != "" {
		clauses = append(clauses, "l.condition = ?")
		args = append(args, string(f.Condition))
	}
	if f.MinPrice != nil {
		clauses = append(clauses, "l.price >= ?")
		args = append(args, f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		clauses = append(clauses, "l.price <= ?")
		args = append(args, f.MaxPrice.String())
	}

	return "WHERE " + strings.Join(clauses, " AND "), args
}

// buildListingOrder renders ORDER BY with l.id as tie-breaker. Unknown sort
// fields fall back to creation time.
func buildListingOrder(f models.ListingFilter) string {
	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = sortColumns[models.SortByCreatedAt]
	}
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s, l.id %s", col, dir, dir)
}
