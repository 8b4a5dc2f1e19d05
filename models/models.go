package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Деньги уходят клиенту числами, а не строками
	decimal.MarshalJSONWithoutQuotes = true
}

type Role string

const (
	RoleVendor   Role = "vendor"
	RoleSupplier Role = "supplier"
	RoleAdmin    Role = "admin"
)

func ValidRole(r Role) bool {
	switch r {
	case RoleVendor, RoleSupplier, RoleAdmin:
		return true
	default:
		return false
	}
}

type RequirementStatus string

const (
	RequirementOpen      RequirementStatus = "open"
	RequirementBidding   RequirementStatus = "bidding"
	RequirementAwarded   RequirementStatus = "awarded"
	RequirementCompleted RequirementStatus = "completed"
	RequirementCancelled RequirementStatus = "cancelled"
)

func ValidRequirementStatus(s RequirementStatus) bool {
	switch s {
	case RequirementOpen, RequirementBidding, RequirementAwarded, RequirementCompleted, RequirementCancelled:
		return true
	default:
		return false
	}
}

// AcceptsBids сообщает, можно ли подавать предложения в этом статусе.
func (s RequirementStatus) AcceptsBids() bool {
	return s == RequirementOpen || s == RequirementBidding
}

type BidStatus string

const (
	BidPending   BidStatus = "pending"
	BidAccepted  BidStatus = "accepted"
	BidRejected  BidStatus = "rejected"
	BidWithdrawn BidStatus = "withdrawn"
)

type Quality string

const (
	QualityPremium  Quality = "premium"
	QualityStandard Quality = "standard"
	QualityEconomy  Quality = "economy"
)

func ValidQuality(q Quality) bool {
	switch q {
	case QualityPremium, QualityStandard, QualityEconomy:
		return true
	default:
		return false
	}
}

// Единицы измерения материалов в заявке
var Units = []string{"kg", "liters", "pieces", "boxes", "bags"}

func ValidUnit(u string) bool {
	for _, v := range Units {
		if v == u {
			return true
		}
	}
	return false
}

// Сущность Пользователя
type User struct {
	ID                    int64                 `db:"id" json:"id"`
	Email                 string                `db:"email" json:"email"`
	PasswordHash          string                `db:"password_hash" json:"-"`
	Role                  Role                  `db:"role" json:"userType"`
	Name                  string                `db:"name" json:"name"`
	Phone                 string                `db:"phone" json:"phone"`
	Address               Address               `db:"address" json:"address"`
	Verified              bool                  `db:"verified" json:"verified"`
	VerificationDocuments VerificationDocuments `db:"verification_documents" json:"verificationDocuments"`
	Reviews               Reviews               `db:"reviews" json:"reviews"`
	CreatedAt             time.Time             `db:"created_at" json:"createdAt"`
	LastLogin             time.Time             `db:"last_login" json:"lastLogin"`
}

// Краткие данные пользователя для вложения в заявки и предложения
type UserSummary struct {
	ID       int64   `db:"id" json:"id"`
	Name     string  `db:"name" json:"name"`
	Email    string  `db:"email" json:"email"`
	Phone    string  `db:"phone" json:"phone"`
	Verified bool    `db:"verified" json:"verified"`
	Reviews  Reviews `db:"reviews" json:"reviews,omitempty"`
}

type Address struct {
	Street   string `json:"street,omitempty"`
	Address  string `json:"address,omitempty"`
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
	Pincode  string `json:"pincode,omitempty"`
	Locality string `json:"locality,omitempty"`
}

type VerificationDocuments struct {
	AadharNumber   string `json:"aadharNumber,omitempty"`
	FssaiLicense   string `json:"fssaiLicense,omitempty"`
	AadharVerified bool   `json:"aadharVerified"`
	FssaiVerified  bool   `json:"fssaiVerified"`
}

// Отзыв хранится внутри владельца (пользователя или предложения) и только ссылается на автора
type Review struct {
	ReviewerID int64     `json:"reviewer"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Reviews []Review

// Сущность Заявки
type Requirement struct {
	ID               int64             `db:"id" json:"id"`
	VendorID         int64             `db:"vendor_id" json:"vendorId"`
	Title            string            `db:"title" json:"title"`
	Description      string            `db:"description" json:"description,omitempty"`
	Materials        RequiredMaterials `db:"materials" json:"materials"`
	Budget           Budget            `db:"budget" json:"budget"`
	DeliveryLocation Address           `db:"delivery_location" json:"deliveryLocation"`
	DeliveryDate     time.Time         `db:"delivery_date" json:"deliveryDate"`
	BiddingEndDate   time.Time         `db:"bidding_end_date" json:"biddingEndDate"`
	Status           RequirementStatus `db:"status" json:"status"`
	TotalBids        int               `db:"total_bids" json:"totalBids"`
	AwardedTo        *int64            `db:"awarded_to" json:"awardedTo,omitempty"`
	AwardedBid       *int64            `db:"awarded_bid" json:"awardedBid,omitempty"`
	Tags             Tags              `db:"tags" json:"tags"`
	CreatedAt        time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updatedAt"`

	Vendor *UserSummary `db:"vendor" json:"vendor,omitempty"`
	// Победивший поставщик, заполняется только в карточке заявки
	AwardedSupplier *UserSummary `db:"-" json:"awardedSupplier,omitempty"`
}

// BiddingClosed сообщает, истёк ли срок приёма предложений к моменту now.
func (r *Requirement) BiddingClosed(now time.Time) bool {
	return now.After(r.BiddingEndDate)
}

type RequiredMaterial struct {
	Name           string  `json:"name"`
	Quantity       float64 `json:"quantity"`
	Unit           string  `json:"unit"`
	Specifications string  `json:"specifications,omitempty"`
}

type RequiredMaterials []RequiredMaterial

// Budget хранится в двух колонках budget_min / budget_max
type Budget struct {
	Min decimal.Decimal `db:"min" json:"min"`
	Max decimal.Decimal `db:"max" json:"max"`
}

// Краткие данные заявки для списка предложений поставщика
type RequirementSummary struct {
	ID             int64             `db:"id" json:"id"`
	Title          string            `db:"title" json:"title"`
	Description    string            `db:"description" json:"description,omitempty"`
	Status         RequirementStatus `db:"status" json:"status"`
	Budget         Budget            `db:"budget" json:"budget"`
	BiddingEndDate time.Time         `db:"bidding_end_date" json:"biddingEndDate"`
	VendorID       int64             `db:"vendor_id" json:"vendorId"`
}

// Сущность Предложения
type Bid struct {
	ID            int64           `db:"id" json:"id"`
	RequirementID int64           `db:"requirement_id" json:"requirementId"`
	SupplierID    int64           `db:"supplier_id" json:"supplierId"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	DeliveryTime  int             `db:"delivery_time" json:"deliveryTime"`
	Description   string          `db:"description" json:"description"`
	Materials     BidMaterials    `db:"materials" json:"materials"`
	Terms         Terms           `db:"terms" json:"terms"`
	Photos        Photos          `db:"photos" json:"photos"`
	Status        BidStatus       `db:"status" json:"status"`
	IsWinning     bool            `db:"is_winning" json:"isWinning"`
	Reviews       Reviews         `db:"reviews" json:"reviews"`
	SubmittedAt   time.Time       `db:"submitted_at" json:"submittedAt"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updatedAt"`

	Supplier    *UserSummary        `db:"supplier" json:"supplier,omitempty"`
	Requirement *RequirementSummary `db:"requirement" json:"requirement,omitempty"`
}

type BidMaterial struct {
	Name     string          `json:"name"`
	Quantity float64         `json:"quantity"`
	Unit     string          `json:"unit"`
	Price    decimal.Decimal `json:"price"`
	Quality  Quality         `json:"quality"`
}

type BidMaterials []BidMaterial

type Terms struct {
	PaymentTerms  string `json:"paymentTerms,omitempty"`
	DeliveryTerms string `json:"deliveryTerms,omitempty"`
	Warranty      string `json:"warranty,omitempty"`
}

type Photos []string

type Tags []string

// Сущность Аналитики продавца
type Analytics struct {
	VendorID      int64         `db:"vendor_id" json:"vendor"`
	SalesData     SalesData     `db:"sales_data" json:"salesData"`
	MaterialUsage MaterialUsage `db:"material_usage" json:"materialUsage"`
	Insights      Insights      `db:"insights" json:"insights"`
	LastUpdated   time.Time     `db:"last_updated" json:"lastUpdated"`
}

type Sale struct {
	Date        time.Time       `json:"date"`
	ProductName string          `json:"productName"`
	Quantity    float64         `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
	Cost        decimal.Decimal `json:"cost"`
	Profit      decimal.Decimal `json:"profit"`
}

type SalesData []Sale

type MaterialUse struct {
	MaterialName string          `json:"materialName"`
	Quantity     float64         `json:"quantity"`
	Unit         string          `json:"unit"`
	Cost         decimal.Decimal `json:"cost"`
	Date         time.Time       `json:"date"`
}

type MaterialUsage []MaterialUse

type Insights struct {
	TopSellingProducts []ProductSales       `json:"topSellingProducts"`
	MaterialEfficiency []MaterialEfficiency `json:"materialEfficiency"`
	ProfitMargins      []ProductMargin      `json:"profitMargins"`
	Recommendations    []Recommendation     `json:"recommendations"`
}

type ProductSales struct {
	ProductName   string          `json:"productName"`
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
	TotalQuantity float64         `json:"totalQuantity"`
}

type UsageTrend string

const (
	TrendIncreasing UsageTrend = "increasing"
	TrendDecreasing UsageTrend = "decreasing"
	TrendStable     UsageTrend = "stable"
)

type MaterialEfficiency struct {
	MaterialName string          `json:"materialName"`
	CostPerUnit  decimal.Decimal `json:"costPerUnit"`
	UsageTrend   UsageTrend      `json:"usageTrend"`
}

type ProductMargin struct {
	ProductName string     `json:"productName"`
	Margin      float64    `json:"margin"`
	Trend       UsageTrend `json:"trend"`
}

type RecommendationType string

const (
	RecommendBuy      RecommendationType = "buy"
	RecommendSell     RecommendationType = "sell"
	RecommendOptimize RecommendationType = "optimize"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

type Recommendation struct {
	Type     RecommendationType `json:"type"`
	Material string             `json:"material"`
	Quantity float64            `json:"quantity"`
	Reason   string             `json:"reason"`
	Priority Priority           `json:"priority"`
}
