package models

import "encoding/json"

// Money fields render with exactly two fraction digits. decimal.Decimal on
// its own drops trailing zeros.

type listingFields Listing

type listingJSON struct {
	listingFields
	Price string `json:"price"`
}

func newListingJSON(l Listing) listingJSON {
	return listingJSON{listingFields: listingFields(l), Price: l.Price.StringFixed(2)}
}

func (l Listing) MarshalJSON() ([]byte, error) {
	return json.Marshal(newListingJSON(l))
}

// MarshalJSON is required on the view as well; the promoted Listing method
// would otherwise drop the seller and category.
func (v ListingView) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		listingJSON
		Seller   SellerSnapshot `json:"seller"`
		Category CategoryRef    `json:"category"`
	}{newListingJSON(v.Listing), v.Seller, v.Category})
}

type orderFields Order

func (o Order) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		orderFields
		TotalAmount string `json:"total_amount"`
	}{orderFields(o), o.TotalAmount.StringFixed(2)})
}

type orderItemFields OrderItem

func (i OrderItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		orderItemFields
		Price string `json:"price"`
	}{orderItemFields(i), i.Price.StringFixed(2)})
}
