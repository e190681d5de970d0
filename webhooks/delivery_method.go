package webhooks

import (
	"regexp"
	"strings"

	"github.com/goliatone/go-shopify-auth/core"
)

type DeliveryMethod string

const (
	DeliveryMethodHTTP        DeliveryMethod = "http"
	DeliveryMethodEventBridge DeliveryMethod = "eventbridge"
	DeliveryMethodPubSub      DeliveryMethod = "pubsub"
)

const pubSubScheme = "pubsub://"

var topicPattern = regexp.MustCompile(`^[A-Z0-9_]+$`)

// NormalizeTopic maps a header topic (orders/create) to its GraphQL enum
// form (ORDERS_CREATE).
func NormalizeTopic(topic string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(topic)), "/", "_")
}

func normalizeDeliveryMethod(method DeliveryMethod) DeliveryMethod {
	switch DeliveryMethod(strings.ToLower(strings.TrimSpace(string(method)))) {
	case "", DeliveryMethodHTTP:
		return DeliveryMethodHTTP
	case DeliveryMethodEventBridge, "event_bridge":
		return DeliveryMethodEventBridge
	case DeliveryMethodPubSub, "pub_sub":
		return DeliveryMethodPubSub
	default:
		return method
	}
}

// ValidateDeliveryMethod fails when version cannot deliver through method.
func ValidateDeliveryMethod(method DeliveryMethod, version core.APIVersion) error {
	switch normalizeDeliveryMethod(method) {
	case DeliveryMethodHTTP:
		return nil
	case DeliveryMethodEventBridge:
		if !core.VersionCompatible(core.EventBridgeMinVersion, version) {
			return core.NewUnsupportedClientTypeError(
				`webhooks: EventBridge webhooks are not supported in API version "`+version.String()+`"`,
				map[string]any{"delivery_method": string(DeliveryMethodEventBridge), "api_version": version.String()},
			)
		}
		return nil
	case DeliveryMethodPubSub:
		if !core.VersionCompatible(core.PubSubMinVersion, version) {
			return core.NewUnsupportedClientTypeError(
				`webhooks: Pub/Sub webhooks are not supported in API version "`+version.String()+`"`,
				map[string]any{"delivery_method": string(DeliveryMethodPubSub), "api_version": version.String()},
			)
		}
		return nil
	default:
		return core.NewUnsupportedClientTypeError(
			"webhooks: unknown delivery method",
			map[string]any{"delivery_method": string(method)},
		)
	}
}

// deliveryAddress is the callback URL for HTTP delivery and the raw
// ARN or pubsub:// URI otherwise.
func deliveryAddress(method DeliveryMethod, hostName string, path string) string {
	if normalizeDeliveryMethod(method) == DeliveryMethodHTTP {
		return "https://" + hostName + path
	}
	return path
}

func splitPubSubAddress(address string) (project string, topic string, ok bool) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(address), pubSubScheme)
	project, topic, found := strings.Cut(trimmed, ":")
	if !found || strings.TrimSpace(project) == "" || strings.TrimSpace(topic) == "" {
		return "", "", false
	}
	return project, topic, true
}
