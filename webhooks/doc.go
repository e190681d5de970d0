// Package webhooks reconciles webhook subscriptions against the Admin GraphQL
// API and dispatches signed inbound deliveries to registered handlers.
//
// The registry holds at most one entry per normalized topic (ORDERS_CREATE).
// Register only replaces the entry after the platform confirmed the
// subscription, and Process always writes the HTTP status before it returns.
package webhooks
