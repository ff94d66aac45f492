package services

import applog "storefront/internal/log"

// Payer is the payment side-effect boundary. The gateway integration
// lives behind it; the order flow only assumes Pay succeeds or errors.
type Payer interface {
	Pay(orderID string) error
}

// NoopPayer stands in for a real gateway.
type NoopPayer struct{}

func (NoopPayer) Pay(orderID string) error {
	applog.Info("payment.pay", map[string]any{"order_id": orderID})
	return nil
}
