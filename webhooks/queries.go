package webhooks

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-shopify-auth/core"
)

// BuildCheckQuery returns the query reading the current subscription for
// topic. Versions before the endpoint union only expose callbackUrl.
func BuildCheckQuery(topic string, version core.APIVersion) string {
	topic = NormalizeTopic(topic)
	if !core.VersionCompatible(core.EventBridgeMinVersion, version) {
		return fmt.Sprintf(`{
  webhookSubscriptions(first: 1, topics: %s) {
    edges {
      node {
        id
        callbackUrl
      }
    }
  }
}`, topic)
	}

	pubSubFragment := ""
	if core.VersionCompatible(core.PubSubMinVersion, version) {
		pubSubFragment = `
          ... on WebhookPubSubEndpoint {
            pubSubProject
            pubSubTopic
          }`
	}
	return fmt.Sprintf(`{
  webhookSubscriptions(first: 1, topics: %s) {
    edges {
      node {
        id
        endpoint {
          __typename
          ... on WebhookHttpEndpoint {
            callbackUrl
          }
          ... on WebhookEventBridgeEndpoint {
            arn
          }%s
        }
      }
    }
  }
}`, topic, pubSubFragment)
}

// BuildMutation returns the create mutation, or the update mutation when
// webhookID names an existing subscription.
func BuildMutation(
	topic string,
	address string,
	method DeliveryMethod,
	version core.APIVersion,
	webhookID string,
) (string, error) {
	method = normalizeDeliveryMethod(method)
	if err := ValidateDeliveryMethod(method, version); err != nil {
		return "", err
	}
	topic = NormalizeTopic(topic)
	if !topicPattern.MatchString(topic) {
		return "", core.NewArgumentError("webhooks: invalid topic", map[string]any{"topic": topic})
	}

	identifier := "topic: " + topic
	if id := strings.TrimSpace(webhookID); id != "" {
		identifier = "id: " + graphqlString(id)
	}

	var args string
	switch method {
	case DeliveryMethodHTTP:
		args = "{callbackUrl: " + graphqlString(address) + "}"
	case DeliveryMethodEventBridge:
		args = "{arn: " + graphqlString(address) + "}"
	case DeliveryMethodPubSub:
		project, pubSubTopic, ok := splitPubSubAddress(address)
		if !ok {
			return "", core.NewArgumentError(
				"webhooks: pub/sub address must look like pubsub://{project}:{topic}",
				map[string]any{"address": address},
			)
		}
		args = "{pubSubProject: " + graphqlString(project) + ", pubSubTopic: " + graphqlString(pubSubTopic) + "}"
	}

	return fmt.Sprintf(`mutation webhookSubscription {
  %s(%s, webhookSubscription: %s) {
    userErrors {
      field
      message
    }
    webhookSubscription {
      id
    }
  }
}`, mutationName(method, webhookID), identifier, args), nil
}

func mutationName(method DeliveryMethod, webhookID string) string {
	var name string
	switch normalizeDeliveryMethod(method) {
	case DeliveryMethodEventBridge:
		name = "eventBridgeWebhookSubscription"
	case DeliveryMethodPubSub:
		name = "pubSubWebhookSubscription"
	default:
		name = "webhookSubscription"
	}
	if strings.TrimSpace(webhookID) != "" {
		return name + "Update"
	}
	return name + "Create"
}

func graphqlString(value string) string {
	encoded, err := json.Marshal(value)
	if err != nil {
		return `""`
	}
	return string(encoded)
}

type checkResponse struct {
	Data struct {
		WebhookSubscriptions struct {
			Edges []struct {
				Node subscriptionNode `json:"node"`
			} `json:"edges"`
		} `json:"webhookSubscriptions"`
	} `json:"data"`
}

type subscriptionNode struct {
	ID          string                `json:"id"`
	CallbackURL string                `json:"callbackUrl"`
	Endpoint    *subscriptionEndpoint `json:"endpoint"`
}

type subscriptionEndpoint struct {
	Typename      string `json:"__typename"`
	CallbackURL   string `json:"callbackUrl"`
	Arn           string `json:"arn"`
	PubSubProject string `json:"pubSubProject"`
	PubSubTopic   string `json:"pubSubTopic"`
}

func (n subscriptionNode) address() string {
	if n.Endpoint == nil {
		return n.CallbackURL
	}
	switch n.Endpoint.Typename {
	case "WebhookHttpEndpoint":
		return n.Endpoint.CallbackURL
	case "WebhookEventBridgeEndpoint":
		return n.Endpoint.Arn
	case "WebhookPubSubEndpoint":
		return pubSubScheme + n.Endpoint.PubSubProject + ":" + n.Endpoint.PubSubTopic
	default:
		return ""
	}
}

// existingSubscription returns the id and address of the first
// subscription in a check query result.
func existingSubscription(body []byte) (id string, address string, found bool, err error) {
	var decoded checkResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", "", false, core.NewInternalError(err, "webhooks: decode subscription check response")
	}
	edges := decoded.Data.WebhookSubscriptions.Edges
	if len(edges) == 0 {
		return "", "", false, nil
	}
	node := edges[0].Node
	return node.ID, node.address(), true, nil
}

// mutationSucceeded reports whether the named mutation field returned a
// subscription object.
func mutationSucceeded(body []byte, method DeliveryMethod, webhookID string) bool {
	var decoded struct {
		Data map[string]struct {
			WebhookSubscription json.RawMessage `json:"webhookSubscription"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return false
	}
	field, ok := decoded.Data[mutationName(method, webhookID)]
	if !ok {
		return false
	}
	raw := strings.TrimSpace(string(field.WebhookSubscription))
	return raw != "" && raw != "null"
}
