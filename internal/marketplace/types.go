package marketplace

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Platform constants
const (
	MaxOrderPageSize = 200
	MaxBatchItems    = 500

	BatchStatusCompleted  = "COMPLETED"
	BatchStatusInProgress = "IN_PROGRESS"

	ItemStatusSuccess = "SUCCESS"
	ItemStatusFailed  = "FAILED"

	OrderByLastModified = "PackageLastModifiedDate"
)

// OrderQuery selects one page of shipment packages inside a date window
type OrderQuery struct {
	Page             int
	Size             int
	StartDate        int64 // epoch milliseconds, inclusive
	EndDate          int64 // epoch milliseconds, exclusive
	OrderByField     string
	OrderByDirection string
}

// OrderPage is one paginated response of the orders endpoint
type OrderPage struct {
	Page          int               `json:"page"`
	Size          int               `json:"size"`
	TotalPages    int               `json:"totalPages"`
	TotalElements int               `json:"totalElements"`
	Content       []ShipmentPackage `json:"content"`
}

// ShipmentPackage is the platform representation of an order
type ShipmentPackage struct {
	ID                  int64          `json:"id"`
	OrderNumber         string         `json:"orderNumber"`
	Status              string         `json:"status"`
	CargoProviderName   string         `json:"cargoProviderName"`
	CargoTrackingNumber FlexString     `json:"cargoTrackingNumber"`
	CustomerFirstName   string         `json:"customerFirstName"`
	CustomerLastName    string         `json:"customerLastName"`
	TotalPrice          float64        `json:"totalPrice"`
	CurrencyCode        string         `json:"currencyCode"`
	OrderDate           int64          `json:"orderDate"`
	LastModifiedDate    int64          `json:"lastModifiedDate"`
	Lines               []ShipmentLine `json:"lines"`
}

// ShipmentLine is one product line of a shipment package
type ShipmentLine struct {
	Barcode     string  `json:"barcode"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

// PriceInventoryItem is one entry of a bulk price/stock submission.
// Nil fields are left untouched by the platform.
type PriceInventoryItem struct {
	Barcode   string   `json:"barcode"`
	Quantity  *int64   `json:"quantity,omitempty"`
	SalePrice *float64 `json:"salePrice,omitempty"`
	ListPrice *float64 `json:"listPrice,omitempty"`
}

// BatchRequestResult is the asynchronous outcome of a submission
type BatchRequestResult struct {
	BatchRequestID string            `json:"batchRequestId"`
	Status         string            `json:"status"`
	ItemCount      int               `json:"itemCount"`
	Items          []BatchItemResult `json:"items"`
}

// Completed reports whether the platform finished processing the batch
func (r *BatchRequestResult) Completed() bool {
	return strings.EqualFold(r.Status, BatchStatusCompleted)
}

// BatchItemResult is the per-item outcome keyed by barcode
type BatchItemResult struct {
	RequestItem    PriceInventoryItem `json:"requestItem"`
	Status         string             `json:"status"`
	FailureReasons []string           `json:"failureReasons"`
}

// Barcode returns the business identifier the item was submitted with
func (r BatchItemResult) Barcode() string {
	return r.RequestItem.Barcode
}

// Succeeded reports whether the platform applied the item
func (r BatchItemResult) Succeeded() bool {
	return strings.EqualFold(r.Status, ItemStatusSuccess)
}

type submitRequest struct {
	Items []PriceInventoryItem `json:"items"`
}

type submitResponse struct {
	BatchRequestID string `json:"batchRequestId"`
}

// FlexString accepts both JSON strings and numbers; tracking numbers arrive as either.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}
