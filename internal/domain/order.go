package domain

import "strconv"

// OrderPaidEvent is the subset of the Shopify orders/paid webhook payload
// the issuance pipeline cares about.
type OrderPaidEvent struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Note      string          `json:"note"`
	Currency  string          `json:"currency"`
	Customer  *OrderCustomer  `json:"customer"`
	LineItems []OrderLineItem `json:"line_items"`
}

// OrderCustomer identifies the buyer. Nil on the order for guest checkouts.
type OrderCustomer struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// FullName returns the customer's display name, or an empty string when
// neither name part is present.
func (c *OrderCustomer) FullName() string {
	if c == nil {
		return ""
	}
	switch {
	case c.FirstName != "" && c.LastName != "":
		return c.FirstName + " " + c.LastName
	case c.FirstName != "":
		return c.FirstName
	default:
		return c.LastName
	}
}

// OrderLineItem is one purchased line of the order. Price is the per-unit
// price as a decimal string, exactly as Shopify delivers it.
type OrderLineItem struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	VariantID int64  `json:"variant_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	Title     string `json:"title"`
}

// VariantKey returns the variant identifier in the string form used by
// ShopSettings.TriggerVariants.
func (li OrderLineItem) VariantKey() string {
	return strconv.FormatInt(li.VariantID, 10)
}

// MatchTriggerLineItems filters the order's line items down to those whose
// variant is configured as a gift card trigger, preserving line item order.
func MatchTriggerLineItems(items []OrderLineItem, settings *ShopSettings) []OrderLineItem {
	if settings == nil || !settings.HasTriggers() {
		return nil
	}
	var matched []OrderLineItem
	for _, li := range items {
		if settings.IsTrigger(li.VariantKey()) {
			matched = append(matched, li)
		}
	}
	return matched
}
