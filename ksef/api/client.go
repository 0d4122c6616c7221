package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-resty/resty/v2"

	"github.com/fakturnik/ksef-client/ksef/util"
)

// Client jest cienkim transportem HTTP nad API KSeF. Nie interpretuje
// statusów; to zadanie warstw wyżej, które znają oczekiwane kody
// poszczególnych operacji.
type Client struct {
	rest *resty.Client
	base string
	log  ExchangeLogger
}

// Response surowy wynik wymiany: status HTTP i treść odpowiedzi.
type Response struct {
	Status int
	Body   []byte
}

func New(baseURL string, httpClient *http.Client, log ExchangeLogger) *Client {
	var rest *resty.Client
	if httpClient != nil {
		rest = resty.NewWithClient(httpClient)
	} else {
		rest = resty.New()
	}
	if log == nil {
		log = NopExchangeLogger{}
	}
	return &Client{rest: rest, base: baseURL, log: log}
}

// BaseURL zwraca adres bazowy, z którym klient został utworzony.
func (c *Client) BaseURL() string { return c.base }

// GetJSON wykonuje GET z nagłówkiem Accept: application/json. Wynik jest
// dekodowany do result tylko dla statusów 2xx; result może być nil.
func (c *Client) GetJSON(ctx context.Context, endpoint, bearer string, result any) (*Response, error) {
	req := c.newRequest(ctx, bearer).
		SetHeader("Accept", "application/json")

	resp, err := req.Get(c.base + endpoint)
	return c.finish("GET", endpoint, nil, resp, result, err)
}

// PostJSON wykonuje POST application/json.
func (c *Client) PostJSON(ctx context.Context, endpoint, bearer string, body, result any) (*Response, error) {
	var reqBody []byte
	if body != nil {
		var err error
		reqBody, err = json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "marshal request body")
		}
	}

	req := c.newRequest(ctx, bearer).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if reqBody != nil {
		req.SetBody(reqBody)
	}

	resp, err := req.Post(c.base + endpoint)
	return c.finish("POST", endpoint, reqBody, resp, result, err)
}

// PostXML wysyła surowy, podpisany dokument XML (logowanie podpisem XAdES).
func (c *Client) PostXML(ctx context.Context, endpoint string, body []byte, result any) (*Response, error) {
	req := c.newRequest(ctx, "").
		SetHeader("Content-Type", "application/xml").
		SetHeader("Accept", "application/json").
		SetBody(body)

	resp, err := req.Post(c.base + endpoint)
	return c.finish("POST", endpoint, body, resp, result, err)
}

// GetBytes pobiera surową treść (XML faktury), bez dekodowania.
func (c *Client) GetBytes(ctx context.Context, endpoint, bearer string) (*Response, error) {
	req := c.newRequest(ctx, bearer).
		SetHeader("Accept", "*/*")

	resp, err := req.Get(c.base + endpoint)
	return c.finish("GET", endpoint, nil, resp, nil, err)
}

func (c *Client) newRequest(ctx context.Context, bearer string) *resty.Request {
	req := c.rest.R().SetContext(ctx)
	if util.HttpTraceEnabled() {
		req.EnableTrace()
	}
	if bearer != "" {
		req.SetAuthToken(bearer)
	}
	return req
}

func (c *Client) finish(method, endpoint string, reqBody []byte, resp *resty.Response, result any, err error) (*Response, error) {
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, endpoint)
	}

	out := &Response{Status: resp.StatusCode(), Body: resp.Body()}
	c.log.LogExchange(method, c.base+endpoint, reqBody, out.Status, out.Body)

	if result != nil && resp.IsSuccess() && len(out.Body) > 0 {
		if err := json.Unmarshal(out.Body, result); err != nil {
			return out, errors.Wrapf(err, "decode %s %s response", method, endpoint)
		}
	}
	return out, nil
}
