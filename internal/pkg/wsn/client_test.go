package wsn

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/matryer/is"
)

func TestQuery(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	var query url.Values
	var authorization string

	s := newTestServer(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		authorization = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(resultsJson))
	})
	defer s.Close()

	c := newTestClient(t, s.URL)

	resp, err := c.Query(ctx, NewFilter(WithSensor("ds1820")))
	is.NoErr(err)

	is.Equal(authorization, "Token secret")
	is.Equal(query.Get("sensor"), "ds1820")
	is.True(!query.Has("mote"))
	is.Equal(string(resp.Body), resultsJson)
	is.True(resp.Count != nil)
	is.Equal(*resp.Count, int64(3))
	is.Equal(resp.Next, "http://hycamp.org/wsn/api/query/?limit=3&offset=3")
	is.Equal(resp.Previous, "")
}

func TestQueryUnauthorized(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		is := is.New(t)

		s := newTestServer(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			w.Write([]byte(`{"detail":"Invalid token."}`))
		})

		c := newTestClient(t, s.URL)
		_, err := c.Query(context.Background(), NewFilter())
		s.Close()

		var rre *RemoteRequestError
		is.True(errors.As(err, &rre))
		is.Equal(rre.StatusCode, status)
		is.Equal(string(rre.Body), `{"detail":"Invalid token."}`)
	}
}

func TestQueryLimitsErrorBody(t *testing.T) {
	is := is.New(t)

	s := newTestServer(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(strings.Repeat("x", int(MaxErrorBodySize)*2)))
	})
	defer s.Close()

	c := newTestClient(t, s.URL)
	_, err := c.Query(context.Background(), NewFilter())

	var rre *RemoteRequestError
	is.True(errors.As(err, &rre))
	is.Equal(rre.StatusCode, http.StatusInternalServerError)
	is.Equal(int64(len(rre.Body)), MaxErrorBodySize)
}

func TestQueryTransportError(t *testing.T) {
	is := is.New(t)

	s := newTestServer(func(w http.ResponseWriter, r *http.Request) {})
	u := s.URL
	s.Close()

	c := newTestClient(t, u)
	_, err := c.Query(context.Background(), NewFilter())

	var te *TransportError
	is.True(errors.As(err, &te))
}

func TestQueryInvalidJson(t *testing.T) {
	is := is.New(t)

	s := newTestServer(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`<html>`))
	})
	defer s.Close()

	c := newTestClient(t, s.URL)
	_, err := c.Query(context.Background(), NewFilter())

	var mre *MalformedResponseError
	is.True(errors.As(err, &mre))
}

func TestQueryRejectsInvalidFilter(t *testing.T) {
	is := is.New(t)

	called := false
	s := newTestServer(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	defer s.Close()

	c := newTestClient(t, s.URL)
	_, err := c.Query(context.Background(), NewFilter(WithLimit(-5)))

	is.True(errors.Is(err, ErrInvalidFilter))
	is.True(!called)
}

func TestNewRequiresCredential(t *testing.T) {
	is := is.New(t)

	_, err := New(Config{URL: DefaultURL})

	var ce *ConfigurationError
	is.True(errors.As(err, &ce))
	is.Equal(ce.Setting, TokenVariable)
}

func TestLoadConfigurationTimeout(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	t.Setenv(TokenVariable, "secret")
	t.Setenv(TimeoutVariable, "soon")
	cfg := LoadConfiguration(ctx)
	is.Equal(cfg.Timeout, DefaultTimeout)
	is.Equal(cfg.Token, Credential("secret"))

	t.Setenv(TimeoutVariable, "-1s")
	is.Equal(LoadConfiguration(ctx).Timeout, DefaultTimeout)

	t.Setenv(TimeoutVariable, "5s")
	is.Equal(LoadConfiguration(ctx).Timeout, 5*time.Second)
}

func newTestServer(h http.HandlerFunc) *httptest.Server {
	r := chi.NewRouter()
	r.Get("/wsn/api/query/", h)
	return httptest.NewServer(r)
}

func newTestClient(t *testing.T, serverURL string) *Client {
	c, err := New(Config{
		URL:   serverURL + "/wsn/api/query/",
		Token: Credential("secret"),
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

const resultsJson string = `{"count":3,"next":"http://hycamp.org/wsn/api/query/?limit=3&offset=3","previous":null,"results":[
{"epoch":1000000200,"mote":"161398434909148276","sensor":"ds1820","data":{"temp":-3.5,"bat":87}},
{"epoch":1000000100,"mote":"161398434909148276","sensor":"ds1820","data":{"temp":-3.25,"bat":87}},
{"epoch":1000000000,"mote":"161398434909148276","sensor":"ds1820","data":{"temp":-3.0,"bat":88}}]}`
