package wsn

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/valyala/fastjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("wsn-query/client")

// MaxErrorBodySize caps how much of a non 2xx response body is kept.
const MaxErrorBodySize int64 = 64 * 1024

// Credential is the API token. It is never logged.
type Credential string

func (c Credential) header() string {
	return "Token " + string(c)
}

type Client struct {
	url        string
	credential Credential
	httpClient *http.Client
}

// Response is the body of a successful query together with the pagination
// fields the API reports next to the results.
type Response struct {
	Body     []byte
	Count    *int64
	Next     string
	Previous string
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(string(cfg.Token)) == "" {
		return nil, &ConfigurationError{Setting: TokenVariable}
	}
	if cfg.URL == "" {
		return nil, &ConfigurationError{Setting: URLVariable}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   cfg.Timeout,
		}
	}

	return &Client{
		url:        cfg.URL,
		credential: cfg.Token,
		httpClient: httpClient,
	}, nil
}

func (c *Client) Query(ctx context.Context, filter QueryFilter) (resp Response, err error) {
	ctx, span := tracer.Start(ctx, "query")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	log := logging.GetFromContext(ctx)

	if err = filter.Validate(); err != nil {
		return Response{}, err
	}

	req, err := c.newRequest(ctx, filter)
	if err != nil {
		return Response{}, err
	}

	log.Debug("querying sensor data", "url", req.URL.String())

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		err = &TransportError{URL: c.url, Err: err}
		return Response{}, err
	}
	defer res.Body.Close()

	success := res.StatusCode >= http.StatusOK && res.StatusCode < http.StatusMultipleChoices

	var r io.Reader = res.Body
	if !success {
		r = io.LimitReader(res.Body, MaxErrorBodySize)
	}

	body, err := io.ReadAll(r)
	if err != nil {
		err = &TransportError{URL: c.url, Err: fmt.Errorf("could not read response body: %w", err)}
		return Response{}, err
	}

	if !success {
		log.Debug("query was not successful", "status", res.StatusCode)
		err = &RemoteRequestError{URL: c.url, StatusCode: res.StatusCode, Body: body}
		return Response{}, err
	}

	resp, err = newResponse(body)
	if err != nil {
		return Response{}, err
	}

	log.Debug("query completed", "status", res.StatusCode, "bytes", len(body), "duration", time.Since(start))

	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, filter QueryFilter) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, &ConfigurationError{Setting: URLVariable, Err: err}
	}

	req.URL.RawQuery = filter.Values().Encode()
	req.Header.Set("Authorization", c.credential.header())
	req.Header.Set("Accept", "application/json")

	return req, nil
}

func newResponse(body []byte) (Response, error) {
	v, err := fastjson.ParseBytes(body)
	if err != nil {
		return Response{}, &MalformedResponseError{Reason: "body is not valid json", Err: err}
	}

	resp := Response{Body: body}

	if v.Type() != fastjson.TypeObject {
		return resp, nil
	}

	if c := v.Get("count"); c != nil && c.Type() == fastjson.TypeNumber {
		n := c.GetInt64()
		resp.Count = &n
	}
	resp.Next = string(v.GetStringBytes("next"))
	resp.Previous = string(v.GetStringBytes("previous"))

	return resp, nil
}
