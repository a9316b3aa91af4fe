package ecommerce

import "strings"

// EbayInventoryItem is the body of PUT /sell/inventory/v1/inventory_item/{sku}
type EbayInventoryItem struct {
	Availability         EbayAvailability `json:"availability"`
	Condition            string           `json:"condition"`
	Product              EbayProduct      `json:"product"`
	PackageWeightAndSize *EbayPackage     `json:"packageWeightAndSize,omitempty"`
}

// EbayAvailability holds the ship-to-home quantity
type EbayAvailability struct {
	ShipToLocationAvailability EbayQuantity `json:"shipToLocationAvailability"`
}

// EbayQuantity is an available quantity
type EbayQuantity struct {
	Quantity int `json:"quantity"`
}

// EbayProduct describes the item
type EbayProduct struct {
	Title   string              `json:"title"`
	Aspects map[string][]string `json:"aspects,omitempty"`
}

// EbayPackage holds the shipping weight
type EbayPackage struct {
	Weight EbayWeight `json:"weight"`
}

// EbayWeight is a weight with unit
type EbayWeight struct {
	Value string `json:"value"`
	Unit  string `json:"unit"`
}

// EbayOffer is the body of POST /sell/inventory/v1/offer
type EbayOffer struct {
	SKU                 string               `json:"sku"`
	MarketplaceID       string               `json:"marketplaceId"`
	Format              string               `json:"format"`
	AvailableQuantity   int                  `json:"availableQuantity"`
	CategoryID          string               `json:"categoryId,omitempty"`
	MerchantLocationKey string               `json:"merchantLocationKey,omitempty"`
	PricingSummary      EbayPricingSummary   `json:"pricingSummary"`
	ListingPolicies     *EbayListingPolicies `json:"listingPolicies,omitempty"`
}

// EbayPricingSummary holds the offer price
type EbayPricingSummary struct {
	Price EbayAmount `json:"price"`
}

// EbayAmount is a currency amount as eBay encodes it
type EbayAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// EbayListingPolicies references the seller's business policies
type EbayListingPolicies struct {
	FulfillmentPolicyID string `json:"fulfillmentPolicyId,omitempty"`
	PaymentPolicyID     string `json:"paymentPolicyId,omitempty"`
	ReturnPolicyID      string `json:"returnPolicyId,omitempty"`
}

// EbayOfferResponse is returned by offer creation
type EbayOfferResponse struct {
	OfferID string `json:"offerId"`
}

// EbayPublishResponse is returned by POST /offer/{offerId}/publish
type EbayPublishResponse struct {
	ListingID string `json:"listingId"`
}

// EbayErrorResponse is the Sell API error envelope
type EbayErrorResponse struct {
	Errors []EbayError `json:"errors"`
}

// EbayError is one error entry
type EbayError struct {
	ErrorID  int    `json:"errorId"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

// String joins the error messages
func (r EbayErrorResponse) String() string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}
