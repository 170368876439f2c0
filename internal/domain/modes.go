package domain

import (
	"encoding/json"
	"fmt"
)

type TransactionType string

const (
	TransactionSale         TransactionType = "sale"
	TransactionExchange     TransactionType = "exchange"
	TransactionRefill       TransactionType = "refill"
	TransactionBulk         TransactionType = "bulk"
	TransactionCustomWeight TransactionType = "custom_weight"
)

// ModeDetails is the audit payload of the most recent sale-mode action. The
// set of implementations is closed; consumers switch on the concrete type.
type ModeDetails interface {
	Type() TransactionType
	modeDetails()
}

type SaleDetails struct{}

func (SaleDetails) Type() TransactionType { return TransactionSale }
func (SaleDetails) modeDetails() {}

type ExchangeCondition string

const (
	ConditionEmpty   ExchangeCondition = "empty"
	ConditionPartial ExchangeCondition = "partial"
	ConditionDamaged ExchangeCondition = "damaged"
)

type ExchangeDetails struct {
	ReturnedSize           string            `json:"returned_size"`
	ReturnedCondition      ExchangeCondition `json:"returned_condition"`
	NewSize                string            `json:"new_size"`
	Quantity               int               `json:"quantity"`
	ExchangeCreditCents    int64             `json:"exchange_credit_cents"`
	NewCylindersCostCents  int64             `json:"new_cylinders_cost_cents"`
	ExchangeFeeCents       int64             `json:"exchange_fee_cents"`
	AdditionalPaymentCents int64             `json:"additional_payment_cents"`
	RefundCents            int64             `json:"refund_cents"`
	NetAmountCents         int64             `json:"net_amount_cents"`
}

func (ExchangeDetails) Type() TransactionType { return TransactionExchange }
func (ExchangeDetails) modeDetails() {}

type ContainerType string

const (
	ContainerCustomerTank ContainerType = "customer_tank"
	ContainerTruck        ContainerType = "truck"
	ContainerCylinderBulk ContainerType = "cylinder_bulk"
)

type BulkSaleDetails struct {
	ContainerType      ContainerType `json:"container_type"`
	TareWeightGrams    *int64        `json:"tare_weight_grams,omitempty"`
	GrossWeightGrams   *int64        `json:"gross_weight_grams,omitempty"`
	NetWeightGrams     int64         `json:"net_weight_grams"`
	PricePerKgCents    int64         `json:"price_per_kg_cents"`
	MinimumChargeCents int64         `json:"minimum_charge_cents"`
	SubtotalCents      int64         `json:"subtotal_cents"`
	TotalCents         int64         `json:"total_cents"`
	MinimumApplied     bool          `json:"minimum_applied"`
}

func (BulkSaleDetails) Type() TransactionType { return TransactionBulk }
func (BulkSaleDetails) modeDetails() {}

type CylinderCondition string

const (
	CylinderGood            CylinderCondition = "good"
	CylinderFair            CylinderCondition = "fair"
	CylinderNeedsInspection CylinderCondition = "needs_inspection"
)

type RefillDetails struct {
	CylinderType          string            `json:"cylinder_type"`
	CylinderCapacityGrams int64             `json:"cylinder_capacity_grams"`
	CylinderCondition     CylinderCondition `json:"cylinder_condition"`
	EmptyWeightGrams      int64             `json:"empty_weight_grams"`
	FilledWeightGrams     int64             `json:"filled_weight_grams"`
	GasWeightGrams        int64             `json:"gas_weight_grams"`
	PricePerKgCents       int64             `json:"price_per_kg_cents"`
	TotalPriceCents       int64             `json:"total_price_cents"`
	SafetyCheck           bool              `json:"safety_check"`
	ValveCheck            bool              `json:"valve_check"`
	LeakTest              bool              `json:"leak_test"`
}

func (RefillDetails) Type() TransactionType { return TransactionRefill }
func (RefillDetails) modeDetails() {}

type CustomWeightDetails struct {
	WeightGrams        int64  `json:"weight_grams"`
	PricePerKgCents    int64  `json:"price_per_kg_cents"`
	LPGCostCents       int64  `json:"lpg_cost_cents"`
	ContainerOption    string `json:"container_option"`
	ContainerCostCents int64  `json:"container_cost_cents"`
	TotalPriceCents    int64  `json:"total_price_cents"`
}

func (CustomWeightDetails) Type() TransactionType { return TransactionCustomWeight }
func (CustomWeightDetails) modeDetails() {}

// DecodeModeDetails restores the concrete details for a transaction type.
// Empty input yields the zero value of that type.
func DecodeModeDetails(typ TransactionType, raw []byte) (ModeDetails, error) {
	switch typ {
	case "", TransactionSale:
		return SaleDetails{}, nil
	case TransactionExchange:
		var d ExchangeDetails
		err := unmarshalOptional(raw, &d)
		return d, err
	case TransactionBulk:
		var d BulkSaleDetails
		err := unmarshalOptional(raw, &d)
		return d, err
	case TransactionRefill:
		var d RefillDetails
		err := unmarshalOptional(raw, &d)
		return d, err
	case TransactionCustomWeight:
		var d CustomWeightDetails
		err := unmarshalOptional(raw, &d)
		return d, err
	}
	return nil, fmt.Errorf("unknown transaction type %q", typ)
}

func unmarshalOptional(raw []byte, dest any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dest)
}

// UnmarshalJSON restores the concrete mode details from transaction_type.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	type plain Transaction
	var raw struct {
		plain
		Details json.RawMessage `json:"mode_details"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	details, err := DecodeModeDetails(raw.Type, raw.Details)
	if err != nil {
		return err
	}
	*t = Transaction(raw.plain)
	t.Details = details
	return nil
}
