package redisx

import "time"

const (
	// Cached order status: order_status:{order_id} -> {"status": "..."}
	KeyOrderStatus = "order_status:%s"

	// Processed-event marker: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// External lookups: lookup:cep:{digits}, lookup:cnpj:{digits}
	KeyLookupCEP  = "lookup:cep:%s"
	KeyLookupCNPJ = "lookup:cnpj:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
	TTLLookup      = 24 * time.Hour
)
