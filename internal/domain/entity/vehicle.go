package entity

import "time"

// Vehicle statuses.
const (
	VehicleAvailable = "available"
	VehicleReserved  = "reserved"
	VehicleSold      = "sold"
)

// Vehicle is a unit in the dealership inventory.
type Vehicle struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	StockNumber    string     `gorm:"size:30;not null;uniqueIndex" json:"stock_number"`
	Make           string     `gorm:"size:50;not null;index" json:"make"`
	Model          string     `gorm:"size:50;not null" json:"model"`
	Year           int        `gorm:"not null" json:"year"`
	RegistrationNo string     `gorm:"size:20;not null;default:''" json:"registration_no"`
	MileageKm      int        `gorm:"not null;default:0" json:"mileage_km"`
	PriceLKR       int64      `gorm:"column:price_lkr;not null" json:"price_lkr"`
	Status         string     `gorm:"size:20;not null;default:'available';index" json:"status"`
	Description    string     `gorm:"type:text;not null;default:''" json:"description"`
	SoldAt         *time.Time `json:"sold_at,omitempty"`
	SoldBy         *uint      `json:"sold_by,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (Vehicle) TableName() string {
	return "vehicles"
}

// IsSold reports whether the vehicle left the inventory.
func (v *Vehicle) IsSold() bool {
	return v.Status == VehicleSold
}

// CanTransitionTo reports whether the status change is allowed:
// available <-> reserved, available|reserved -> sold. Sold is terminal.
func (v *Vehicle) CanTransitionTo(status string) bool {
	switch v.Status {
	case VehicleAvailable:
		return status == VehicleReserved || status == VehicleSold
	case VehicleReserved:
		return status == VehicleAvailable || status == VehicleSold
	}
	return false
}

// Sale records a completed vehicle sale.
type Sale struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	VehicleID     uint      `gorm:"not null;uniqueIndex" json:"vehicle_id"`
	SellerID      uint      `gorm:"not null;index" json:"seller_id"`
	CustomerName  string    `gorm:"size:100;not null" json:"customer_name"`
	CustomerPhone string    `gorm:"size:15;not null" json:"customer_phone"`
	SalePriceLKR  int64     `gorm:"column:sale_price_lkr;not null" json:"sale_price_lkr"`
	SoldAt        time.Time `gorm:"not null" json:"sold_at"`
}

func (Sale) TableName() string {
	return "sales"
}
