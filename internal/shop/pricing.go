package shop

import "fmt"

// ShippingMethod selects one of the offered delivery speeds.
type ShippingMethod string

const (
	ShippingStandard  ShippingMethod = "standard"
	ShippingExpress   ShippingMethod = "express"
	ShippingOvernight ShippingMethod = "overnight"
)

// ParseShippingMethod validates a raw method value; empty defaults to standard.
func ParseShippingMethod(raw string) (ShippingMethod, error) {
	if raw == "" {
		return ShippingStandard, nil
	}
	switch ShippingMethod(raw) {
	case ShippingStandard, ShippingExpress, ShippingOvernight:
		return ShippingMethod(raw), nil
	}
	return "", fmt.Errorf("unknown shipping method %q", raw)
}

// PricingPolicy is the single canonical pricing rule set: 10% tax on the
// subtotal, and standard shipping free above the threshold. Express and
// overnight are flat rates.
type PricingPolicy struct {
	TaxRate               float64
	FreeShippingThreshold float64
	StandardRate          float64
	ExpressRate           float64
	OvernightRate         float64
}

// DefaultPricing returns the storefront's production pricing policy.
func DefaultPricing() PricingPolicy {
	return PricingPolicy{
		TaxRate:               0.10,
		FreeShippingThreshold: 100,
		StandardRate:          9.99,
		ExpressRate:           15,
		OvernightRate:         30,
	}
}

// Quote is the priced breakdown shown on every checkout step.
type Quote struct {
	Subtotal   float64        `json:"subtotal"`
	Shipping   float64        `json:"shipping"`
	Tax        float64        `json:"tax"`
	GrandTotal float64        `json:"grand_total"`
	Method     ShippingMethod `json:"shipping_method"`
}

// Quote prices a cart subtotal under the policy.
func (p PricingPolicy) Quote(subtotal float64, method ShippingMethod) (Quote, error) {
	shipping, err := p.shippingCost(subtotal, method)
	if err != nil {
		return Quote{}, err
	}
	tax := subtotal * p.TaxRate
	return Quote{
		Subtotal:   subtotal,
		Shipping:   shipping,
		Tax:        tax,
		GrandTotal: subtotal + shipping + tax,
		Method:     method,
	}, nil
}

func (p PricingPolicy) shippingCost(subtotal float64, method ShippingMethod) (float64, error) {
	switch method {
	case ShippingStandard:
		if subtotal > p.FreeShippingThreshold {
			return 0, nil
		}
		return p.StandardRate, nil
	case ShippingExpress:
		return p.ExpressRate, nil
	case ShippingOvernight:
		return p.OvernightRate, nil
	}
	return 0, fmt.Errorf("unknown shipping method %q", method)
}
