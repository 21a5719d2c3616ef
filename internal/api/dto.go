package api

import (
	"time"

	"tabletap-be/internal/order"
)

type orderItemPayload struct {
	SKU       *string `json:"sku,omitempty"`
	Name      string  `json:"name"`
	UnitPrice int64   `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
	Note      *string `json:"note,omitempty"`
}

type createOrderRequest struct {
	VenueID         string             `json:"venueId"`
	FulfillmentType string             `json:"fulfillmentType"`
	QRType          string             `json:"qrType"`
	PaymentMethod   string             `json:"paymentMethod"`
	TableRef        *string            `json:"tableRef,omitempty"`
	Items           []orderItemPayload `json:"items"`
	ClientTotal     *int64             `json:"clientTotal,omitempty"`
	Currency        string             `json:"currency,omitempty"`
	CustomerName    string             `json:"customerName,omitempty"`
	CustomerPhone   string             `json:"customerPhone,omitempty"`
}

type advanceOrderRequest struct {
	NextStatus string `json:"nextStatus"`
}

type completeOrderRequest struct {
	Forced       bool   `json:"forced,omitempty"`
	ForcedReason string `json:"forcedReason,omitempty"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

type refundOrderRequest struct {
	Amount *int64 `json:"amount,omitempty"`
	Reason string `json:"reason"`
}

type refundResponse struct {
	RefundRef     string `json:"refundRef,omitempty"`
	RefundAmount  int64  `json:"refundAmount"`
	TotalRefunded int64  `json:"totalRefunded"`
	PaymentStatus string `json:"paymentStatus"`
}

type orderResponse struct {
	ID                 string             `json:"id"`
	VenueID            string             `json:"venueId"`
	FulfillmentType    string             `json:"fulfillmentType"`
	TableRef           *string            `json:"tableRef,omitempty"`
	QRType             string             `json:"qrType"`
	RequiresCollection bool               `json:"requiresCollection"`
	Items              []orderItemPayload `json:"items"`
	TotalAmount        int64              `json:"totalAmount"`
	Currency           string             `json:"currency"`
	OrderStatus        string             `json:"orderStatus"`
	PaymentStatus      string             `json:"paymentStatus"`
	PaymentMethod      string             `json:"paymentMethod"`
	CustomerName       string             `json:"customerName,omitempty"`
	RefundAmount       int64              `json:"refundAmount"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
	CompletedAt        *time.Time         `json:"completedAt,omitempty"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemPayload, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemPayload{
			SKU:       it.SKU,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			Note:      it.Note,
		})
	}
	return orderResponse{
		ID:                 o.ID,
		VenueID:            o.VenueID,
		FulfillmentType:    string(o.FulfillmentType),
		TableRef:           o.TableRef,
		QRType:             string(o.QRType),
		RequiresCollection: o.RequiresCollection,
		Items:              items,
		TotalAmount:        o.TotalAmount,
		Currency:           o.Currency,
		OrderStatus:        string(o.Status),
		PaymentStatus:      string(o.PaymentStatus),
		PaymentMethod:      string(o.PaymentMethod),
		CustomerName:       o.CustomerName,
		RefundAmount:       o.RefundAmount,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
		CompletedAt:        o.CompletedAt,
	}
}

func toItems(payload []orderItemPayload) []order.Item {
	items := make([]order.Item, 0, len(payload))
	for _, it := range payload {
		items = append(items, order.Item{
			SKU:       it.SKU,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			Note:      it.Note,
		})
	}
	return items
}
