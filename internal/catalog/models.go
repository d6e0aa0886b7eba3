// Package catalog holds the flat catalog, inventory and purchase order
// records and their GORM-backed store.
package catalog

import (
	"time"

	"gorm.io/datatypes"
)

// PurchaseOrder statuses
const (
	StatusDraft     = "DRAFT"
	StatusOrdered   = "ORDERED"
	StatusReceived  = "RECEIVED"
	StatusCancelled = "CANCELLED"
)

// Base carries the columns every record shares. They are server-managed
// and ignored on input.
type Base struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ResetSystemFields clears client-supplied id and timestamps.
func (b *Base) ResetSystemFields() {
	b.ID = 0
	b.CreatedAt = time.Time{}
	b.UpdatedAt = time.Time{}
}

type Category struct {
	Base
	Name        string  `json:"name" validate:"required,max=200"`
	Description *string `json:"description"`
	ParentID    *int64  `json:"parent_id" validate:"omitempty,gt=0"`
	ImageURL    *string `json:"image_url" validate:"omitempty,url"`
}

type Brand struct {
	Base
	Name        string  `json:"name" validate:"required,max=200"`
	Logo        *string `json:"logo" validate:"omitempty,url"`
	Description *string `json:"description"`
}

type Product struct {
	Base
	BrandID          *int64         `json:"brand_id" validate:"omitempty,gt=0"`
	CategoryID       *int64         `json:"category_id" validate:"omitempty,gt=0"`
	Title            string         `json:"title" validate:"required,max=500"`
	ShortDescription *string        `json:"short_description" validate:"omitempty,max=1000"`
	LongDescription  *string        `json:"long_description"`
	Specifications   datatypes.JSON `json:"specifications"`
	Thumbnail        *string        `json:"thumbnail" validate:"omitempty,url"`
	IsActive         bool           `json:"is_active"`
	IsFeatured       bool           `json:"is_featured"`
}

// ProductVariant is a sellable SKU of a product, e.g. {"color":"red","ram":"8GB"}
type ProductVariant struct {
	Base
	ProductID     int64          `json:"product_id" validate:"required,gt=0"`
	SKU           string         `gorm:"column:sku" json:"sku" validate:"required,max=200"`
	Attributes    datatypes.JSON `json:"attributes"`
	Price         float64        `json:"price" validate:"gte=0"`
	DiscountPrice *float64       `json:"discount_price" validate:"omitempty,gte=0"`
	WeightGrams   *int           `json:"weight_grams" validate:"omitempty,gte=0"`
	Stock         int            `json:"stock" validate:"gte=0"`
	IsActive      bool           `json:"is_active"`
}

func (ProductVariant) TableName() string { return "product_variants" }

type Warehouse struct {
	Base
	Name     string `json:"name" validate:"required,max=255"`
	Address  string `json:"address" validate:"required"`
	Pincode  string `json:"pincode" validate:"required,max=20"`
	Capacity *int64 `json:"capacity" validate:"omitempty,gte=0"`
}

type Inventory struct {
	Base
	ProductVariantID int64     `json:"product_variant_id" validate:"required,gt=0"`
	WarehouseID      *int64    `json:"warehouse_id" validate:"omitempty,gt=0"`
	StockAvailable   int       `json:"stock_available" validate:"gte=0"`
	ReservedStock    int       `json:"reserved_stock" validate:"gte=0"`
	LastUpdated      time.Time `gorm:"autoUpdateTime" json:"last_updated"`
}

func (Inventory) TableName() string { return "inventories" }

type PurchaseOrder struct {
	Base
	WarehouseID  *int64     `json:"warehouse_id" validate:"omitempty,gt=0"`
	SupplierName string     `json:"supplier_name" validate:"required,max=255"`
	Status       string     `gorm:"default:DRAFT" json:"status" validate:"omitempty,oneof=DRAFT ORDERED RECEIVED CANCELLED"`
	Note         *string    `json:"note"`
	OrderedAt    *time.Time `json:"ordered_at"`
	ReceivedAt   *time.Time `json:"received_at"`
}

// ResetSystemFields also treats an empty status as DRAFT, since updates
// write every column.
func (p *PurchaseOrder) ResetSystemFields() {
	p.Base.ResetSystemFields()
	if p.Status == "" {
		p.Status = StatusDraft
	}
}

type PurchaseOrderItem struct {
	Base
	PurchaseOrderID  int64   `json:"purchase_order_id" validate:"required,gt=0"`
	ProductVariantID *int64  `json:"product_variant_id" validate:"omitempty,gt=0"`
	Quantity         int     `json:"quantity" validate:"required,gt=0"`
	UnitCost         float64 `json:"unit_cost" validate:"gte=0"`
}
