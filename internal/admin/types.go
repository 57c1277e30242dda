package admin

import (
	"encoding/json"
	"time"
)

// Envelope is the response shape shared by every backing API endpoint.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`

	// Raw holds the full response body for endpoints that put fields
	// beside data (login, pagination, package status).
	Raw json.RawMessage `json:"-"`
}

// PersistedAsset is a media file already stored by the backing API.
type PersistedAsset struct {
	ID        string `json:"_id"`
	URL       string `json:"url"`
	IsPrimary bool   `json:"isPrimary"`
	Order     int    `json:"order,omitempty"`
}

// UnmarshalJSON accepts both image shapes the backing API returns: banners
// carry "imageUrl" while products carry "url".
func (a *PersistedAsset) UnmarshalJSON(data []byte) error {
	type plain PersistedAsset
	var wire struct {
		plain
		ImageURL string `json:"imageUrl"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*a = PersistedAsset(wire.plain)
	if a.URL == "" {
		a.URL = wire.ImageURL
	}
	return nil
}

// Banner is a promotional banner record.
type Banner struct {
	ID          string           `json:"_id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	IsActive    bool             `json:"isActive"`
	Order       int              `json:"order"`
	Images      []PersistedAsset `json:"images"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// Product is a catalog product record.
type Product struct {
	ID            string           `json:"_id"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	MRP           float64          `json:"mrp"`
	DmartPrice    float64          `json:"dmartPrice"`
	Weight        string           `json:"weight"`
	Brand         string           `json:"brand"`
	Category      string           `json:"category"`
	IsVeg         *bool            `json:"isVeg"`
	Tags          []string         `json:"tags"`
	StockQuantity int              `json:"stockQuantity"`
	Featured      bool             `json:"featured"`
	Rating        float64          `json:"rating"`
	ReviewsCount  int              `json:"reviewsCount"`
	Badge         string           `json:"badge"`
	IsActive      bool             `json:"isActive"`
	Images        []PersistedAsset `json:"images"`
}

// ProductQuery filters the product listing.
type ProductQuery struct {
	Search   string
	Category string
	Page     int
	Limit    int
}

// CategoryStat is one row of the dashboard category breakdown.
type CategoryStat struct {
	Category string `json:"_id"`
	Count    int    `json:"count"`
}

// Stats is the admin dashboard summary.
type Stats struct {
	TotalProducts      int            `json:"totalProducts"`
	ActiveProducts     int            `json:"activeProducts"`
	InStockProducts    int            `json:"inStockProducts"`
	OutOfStockProducts int            `json:"outOfStockProducts"`
	CategoryStats      []CategoryStat `json:"categoryStats"`
	RecentProducts     []Product      `json:"recentProducts"`
}

// OrderStatuses lists the statuses the backing API accepts, in fulfilment order.
var OrderStatuses = []string{"pending", "confirmed", "processing", "shipped", "delivered", "cancelled"}

// ValidOrderStatus reports whether s is an accepted order status.
func ValidOrderStatus(s string) bool {
	for _, status := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// OrderLine is a product line within an order.
type OrderLine struct {
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	DmartPrice float64 `json:"dmartPrice"`
	TotalPrice float64 `json:"totalPrice"`
}

// OrderSummary carries the order totals.
type OrderSummary struct {
	FinalTotal   float64 `json:"finalTotal"`
	TotalItems   int     `json:"totalItems"`
	TotalSavings float64 `json:"totalSavings"`
}

// DeliveryAddress is where an order ships to.
type DeliveryAddress struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	Pincode  string `json:"pincode"`
}

// Order is a customer order.
type Order struct {
	ID              string          `json:"_id"`
	OrderNumber     string          `json:"orderNumber"`
	Status          string          `json:"status"`
	PaymentMethod   string          `json:"paymentMethod"`
	PaymentStatus   string          `json:"paymentStatus"`
	Products        []OrderLine     `json:"products"`
	OrderSummary    OrderSummary    `json:"orderSummary"`
	DeliveryAddress DeliveryAddress `json:"deliveryAddress"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// OrderQuery filters the order listing.
type OrderQuery struct {
	Status string
	Page   int
	Limit  int
}

// Pagination describes a page of a listing.
type Pagination struct {
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Total int `json:"total"`
	Limit int `json:"limit"`
}

// Settings holds the store-wide settings.
type Settings struct {
	MerchantUPI string `json:"merchantUPI"`
	SiteName    string `json:"siteName"`
	SiteEmail   string `json:"siteEmail"`
}

// PackageInfo describes the currently published app package.
type PackageInfo struct {
	Version    string    `json:"version"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// PackageStatus reports whether an app package is available for download.
type PackageStatus struct {
	Available bool         `json:"available"`
	FileInfo  *PackageInfo `json:"fileInfo"`
}

// Operator is the authenticated administrator.
type Operator struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
