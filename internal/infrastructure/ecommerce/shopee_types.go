package ecommerce

// ShopeeAddItemRequest is the body of POST /api/v2/product/add_item
type ShopeeAddItemRequest struct {
	ItemName      string              `json:"item_name"`
	Description   string              `json:"description"`
	ItemSKU       string              `json:"item_sku"`
	OriginalPrice float64             `json:"original_price"`
	SellerStock   []ShopeeStock       `json:"seller_stock"`
	Weight        float64             `json:"weight"`
	CategoryID    int64               `json:"category_id,omitempty"`
	Condition     string              `json:"condition"`
	LogisticInfo  []ShopeeLogisticRef `json:"logistic_info,omitempty"`
}

// ShopeeStock is one stock entry
type ShopeeStock struct {
	Stock int `json:"stock"`
}

// ShopeeLogisticRef enables a logistics channel for the item
type ShopeeLogisticRef struct {
	LogisticID int64 `json:"logistic_id"`
	Enabled    bool  `json:"enabled"`
}

// ShopeeAddItemResponse is the v2 response envelope for add_item
type ShopeeAddItemResponse struct {
	RequestID string             `json:"request_id"`
	Error     string             `json:"error"`
	Message   string             `json:"message"`
	Response  *ShopeeAddItemBody `json:"response,omitempty"`
}

// ShopeeAddItemBody carries the new item id
type ShopeeAddItemBody struct {
	ItemID int64 `json:"item_id"`
}
