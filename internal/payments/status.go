package payments

import "github.com/lookali/marketplace-api/internal/orders"

// MapStatus translates the processor's payment status into an order status.
func MapStatus(processorStatus string) orders.Status {
	switch processorStatus {
	case "approved":
		return orders.StatusPaid
	case "rejected", "cancelled", "refunded", "charged_back":
		return orders.StatusCancelled
	default:
		return orders.StatusPending
	}
}
