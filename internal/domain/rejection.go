package domain

// Rejection is returned by gated commit operations. It never indicates an
// infrastructure failure; the state it guarded is left untouched.
type Rejection struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (r *Rejection) Error() string {
	if r == nil {
		return ""
	}
	return r.Message
}

func reject(code, message string) *Rejection {
	return &Rejection{Code: code, Message: message}
}

var (
	ErrInvalidQuantity       = reject("invalid_quantity", "quantity must be between 1 and 9999")
	ErrProductNotSellable    = reject("product_not_sellable", "product is inactive or priced at zero")
	ErrEmptyTransaction      = reject("empty_transaction", "transaction has no items")
	ErrZeroNetWeight         = reject("zero_net_weight", "net weight must be greater than zero")
	ErrUnknownContainer      = reject("unknown_container", "container type is not recognised")
	ErrUnknownCylinderSize   = reject("unknown_cylinder_size", "cylinder size is not recognised")
	ErrUnknownCondition      = reject("unknown_condition", "cylinder condition is not recognised")
	ErrContainerRequired     = reject("container_required", "a container option must be selected")
	ErrCustomWeightRange     = reject("custom_weight_out_of_range", "custom weight must be above 0 kg and at most 50 kg")
	ErrRefillSafetyCheck     = reject("refill_safety_check_failed", "safety, valve and leak checks must all pass")
	ErrRefillOverCapacity    = reject("refill_over_capacity", "gas weight exceeds cylinder capacity")
	ErrRefillNoGas           = reject("refill_no_gas", "filled weight must exceed empty weight")
	ErrNeedsInspection       = reject("cylinder_needs_inspection", "cylinder must be inspected before refilling")
	ErrCreditWithoutCustomer = reject("credit_without_customer", "credit tender requires an attached customer")
	ErrCreditLimitExceeded   = reject("credit_limit_exceeded", "total exceeds the customer's available credit")
	ErrUnknownTender         = reject("unknown_tender", "tender type is not recognised")
	ErrShiftClosed           = reject("shift_closed", "the shift for this terminal is closed")
)
