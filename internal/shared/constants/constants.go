package constants

const (
	TableSubscriptions = "subscriptions"
	TableUsageRecords  = "usage_records"
	TableBillingEvents = "billing_events"
	TableCasbinRules   = "casbin_rule"
)

// Gin context keys set by the auth middleware.
const (
	ContextKeyUserID         = "user_id"
	ContextKeyOrganizationID = "organization_id"
	ContextKeyOrgRole        = "org_role"
	ContextKeyPrincipal      = "principal"
	ContextKeyEntitlement    = "entitlement_view"
)

// Headers
const (
	HeaderRequestID         = "X-Request-ID"
	HeaderStripeSignature   = "Stripe-Signature"
	HeaderPaystackSignature = "X-Paystack-Signature"
	HeaderWebhookID         = "webhook-id"
	HeaderWebhookTimestamp  = "webhook-timestamp"
	HeaderWebhookSignature  = "webhook-signature"
)

// Environments
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)
