package shopifyauth

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/goliatone/go-shopify-auth/core"
	"github.com/goliatone/go-shopify-auth/transport"
)

// GraphqlProxy forwards the request body to the Admin GraphQL API with the
// caller's online session and copies the answer back.
func (a *App) GraphqlProxy(w http.ResponseWriter, r *http.Request) (err error) {
	ctx := r.Context()
	startedAt := time.Now()
	defer func() {
		a.observer.Observe(ctx, startedAt, "graphql_proxy", err, nil)
	}()

	session, err := a.LoadCurrentSession(ctx, r, true)
	if err != nil {
		writeProxyError(w, err)
		return err
	}
	if session == nil || session.AccessToken == "" {
		err = core.NewSessionNotFoundError("")
		writeProxyError(w, err)
		return err
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, a.cfg.HTTP.MaxResponseBodyBytes))
	if err != nil {
		err = core.NewArgumentError("shopify: read proxied query", map[string]any{"error": err.Error()})
		writeProxyError(w, err)
		return err
	}

	client, err := transport.NewGraphqlClient(session.Shop, a.cfg, session.AccessToken, a.doer)
	if err != nil {
		writeProxyError(w, err)
		return err
	}
	res, err := client.Query(ctx, body, nil)
	if err != nil {
		writeProxyError(w, err)
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.StatusCode)
	_, _ = w.Write(res.Body)
	return nil
}

func writeProxyError(w http.ResponseWriter, err error) {
	rich := core.MapError(err)
	status := rich.Code
	if status <= 0 {
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message":   rich.Message,
			"text_code": rich.TextCode,
			"category":  rich.Category,
		},
	})
}
