package ordersync

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/xelth-com/eckmarket/internal/marketplace"
	"github.com/xelth-com/eckmarket/internal/models"
	"gorm.io/datatypes"
)

// toOrder maps a shipment package onto the persisted order shape
func toOrder(p marketplace.ShipmentPackage) models.MarketplaceOrder {
	lines := make([]models.OrderLine, 0, len(p.Lines))
	for _, l := range p.Lines {
		lines = append(lines, models.OrderLine{
			Barcode:     l.Barcode,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			Price:       l.Price,
		})
	}

	currency := p.CurrencyCode
	if currency == "" {
		currency = "TRY"
	}

	return models.MarketplaceOrder{
		OrderNumber:         strings.TrimSpace(p.OrderNumber),
		PackageID:           p.ID,
		Status:              p.Status,
		CargoProvider:       p.CargoProviderName,
		CargoTrackingNumber: string(p.CargoTrackingNumber),
		CustomerName:        strings.TrimSpace(p.CustomerFirstName + " " + p.CustomerLastName),
		TotalPrice:          p.TotalPrice,
		Currency:            currency,
		OrderDate:           fromMillis(p.OrderDate),
		LastModifiedAt:      fromMillis(p.LastModifiedDate),
		Lines:               marshalJSON(lines),
		RawPayload:          marshalJSON(p),
	}
}

func fromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func marshalJSON(v interface{}) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(b)
}
