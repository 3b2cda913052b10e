package dto

// CheckoutRequest is the body of POST /billing/checkout.
type CheckoutRequest struct {
	Plan     string `json:"plan" binding:"required"`
	Interval string `json:"interval" binding:"omitempty,oneof=monthly annual"`
	Provider string `json:"provider" binding:"omitempty,oneof=STRIPE POLAR PAYSTACK stripe polar paystack"`
}

type CheckoutResponse struct {
	Provider  string `json:"provider"`
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

type PortalResponse struct {
	Provider string `json:"provider"`
	URL      string `json:"url"`
}

// PortalRequest is the optional body of POST /billing/portal.
type PortalRequest struct {
	Provider string `json:"provider" binding:"omitempty,oneof=STRIPE POLAR PAYSTACK stripe polar paystack"`
}
