// -----------------------------------------------------------------------
// Client is the typed coordinator façade every other package depends on
// (spec.md §6 "External interfaces"). It wraps go-resty/resty for the
// transport, golang.org/x/time/rate for client-side pacing,
// cenkalti/backoff/v4 for transient-failure retry, and
// go-playground/validator/v10 to reject malformed struct bodies
// (job envelopes, entities, batch results) before they reach the wire.
// -----------------------------------------------------------------------

package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/ternarybob/arbor"
)

// Client talks to the coordinator's REST API. All methods are safe for
// concurrent use.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	logger  arbor.ILogger
	retryFor time.Duration
}

// Config controls how a Client is built.
type Config struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
	RateLimit      float64 // requests per second; 0 disables limiting
	RetryFor       time.Duration
}

// New constructs a Client against the given coordinator base URL.
func New(cfg Config, logger arbor.ILogger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retryFor := cfg.RetryFor
	if retryFor <= 0 {
		retryFor = 20 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("Accept", "application/json")

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &Client{
		http:     httpClient,
		limiter:  limiter,
		logger:   logger,
		retryFor: retryFor,
	}
}

// wait blocks for the client-side rate limiter, if one is configured.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// Me authenticates the worker and returns the coordinator's view of it,
// per spec.md §6 "the first call a worker makes".
func (c *Client) Me(ctx context.Context) (*MeResponse, error) {
	var out MeResponse
	err := c.do(ctx, "me", func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(&out).
			Get("/api/me")
		return checkResponse(resp, err, "me")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// MeResponse is the coordinator's reply to GET /api/me.
type MeResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Status       string   `json:"status"`
	Capabilities []string `json:"capabilities"`
}

// Find issues a find request against collection, decoding the "docs" array
// of the response into out (a pointer to a slice).
func (c *Client) Find(ctx context.Context, collection string, q Query, out interface{}) error {
	return c.do(ctx, "find:"+collection, func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParamsFromValues(q.Encode()).
			SetResult(&findEnvelope{Docs: out}).
			Get("/api/" + collection)
		return checkResponse(resp, err, "find:"+collection)
	})
}

// findEnvelope lets resty unmarshal directly into the caller's slice
// pointer without an intermediate copy.
type findEnvelope struct {
	Docs interface{} `json:"docs"`
}

// FindByID fetches a single document by ID, decoding into out.
func (c *Client) FindByID(ctx context.Context, collection, id string, out interface{}) error {
	return c.do(ctx, "findById:"+collection, func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(out).
			Get(fmt.Sprintf("/api/%s/%s", collection, id))
		if resp != nil && resp.StatusCode() == 404 {
			return backoffPermanentNotFound(collection, id)
		}
		return checkResponse(resp, err, "findById:"+collection)
	})
}

// Count returns the number of documents matching q.
func (c *Client) Count(ctx context.Context, collection string, q Query) (int, error) {
	var out struct {
		TotalDocs int `json:"totalDocs"`
	}
	err := c.do(ctx, "count:"+collection, func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParamsFromValues(q.Encode()).
			SetQueryParam("limit", "0").
			SetResult(&out).
			Get("/api/" + collection)
		return checkResponse(resp, err, "count:"+collection)
	})
	return out.TotalDocs, err
}

// Create inserts a new document into collection. If fileField and file are
// non-empty, the request is sent multipart with the JSON body under the
// "_payload" field, per spec.md §6 "media upload".
func (c *Client) Create(ctx context.Context, collection string, doc interface{}, fileField, filename string, file io.Reader, out interface{}) error {
	if err := Validate(doc); err != nil {
		return err
	}
	return c.do(ctx, "create:"+collection, func() error {
		req := c.http.R().SetContext(ctx)
		if file != nil {
			req.SetFileReader(fileField, filename, file)
			req.SetMultipartField("_payload", "", "application/json", jsonReader(doc))
		} else {
			req.SetBody(doc)
		}
		if out != nil {
			req.SetResult(out)
		}
		resp, err := req.Post("/api/" + collection)
		return checkResponse(resp, err, "create:"+collection)
	})
}

// UpdateByID patches a single document by ID. extraHeaders is applied on
// top of the client's defaults (spec.md §6 claim updates need an
// If-Unmodified-Since-style optimistic header on some coordinators).
func (c *Client) UpdateByID(ctx context.Context, collection, id string, patch interface{}, extraHeaders map[string]string) error {
	if err := Validate(patch); err != nil {
		return err
	}
	return c.do(ctx, "updateById:"+collection, func() error {
		req := c.http.R().SetContext(ctx).SetBody(patch)
		for k, v := range extraHeaders {
			req.SetHeader(k, v)
		}
		resp, err := req.Patch(fmt.Sprintf("/api/%s/%s", collection, id))
		return checkResponse(resp, err, "updateById:"+collection)
	})
}

// UpdateByWhere patches every document matching q. This is the primitive
// the claim engine uses for conditional claim attempts: the where clause
// encodes the optimistic-concurrency precondition and a response with zero
// matched documents is a lost race, not an error (spec.md §4.1).
func (c *Client) UpdateByWhere(ctx context.Context, collection string, q Query, patch interface{}) (int, error) {
	var out struct {
		Docs []interface{} `json:"docs"`
	}
	err := c.do(ctx, "updateByWhere:"+collection, func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParamsFromValues(q.Encode()).
			SetBody(patch).
			SetResult(&out).
			Patch("/api/" + collection)
		return checkResponse(resp, err, "updateByWhere:"+collection)
	})
	return len(out.Docs), err
}

// Delete removes a single document by ID.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	return c.do(ctx, "delete:"+collection, func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			Delete(fmt.Sprintf("/api/%s/%s", collection, id))
		return checkResponse(resp, err, "delete:"+collection)
	})
}

// do runs fn under the rate limiter and the retry policy, logging the
// final failure (if any) at warn level.
func (c *Client) do(ctx context.Context, op string, fn func() error) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	err := withRetry(ctx, c.retryFor, fn)
	if err != nil && c.logger != nil {
		c.logger.Warn().Str("op", op).Err(err).Msg("coordinator request failed")
	}
	return err
}

func checkResponse(resp *resty.Response, err error, op string) error {
	if err != nil {
		return fmt.Errorf("coordinator: %s: %w", op, err)
	}
	if resp.IsError() {
		return &StatusError{Op: op, StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}
	return nil
}

func backoffPermanentNotFound(collection, id string) error {
	return &ErrNotFound{Collection: collection, ID: id}
}

// jsonReader marshals v for inclusion as the "_payload" multipart field
// alongside an uploaded file. A marshal failure here is a programmer
// error (callers pass plain structs), so it panics rather than silently
// dropping the document body.
func jsonReader(v interface{}) io.Reader {
	data, err := json.Marshal(v)
	if err != nil {
		panic("coordinator: marshal create payload: " + err.Error())
	}
	return bytes.NewReader(data)
}
