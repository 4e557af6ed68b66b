package client

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// sessionHeader carries the session token on every authenticated request.
const sessionHeader = "X-API-Session"

// requestIDHeader carries a per-request correlation id so failed requests
// can be matched against the console's audit log.
const requestIDHeader = "X-Request-Id"

// defaultPort is the console's web services API port.
const defaultPort = 6794

// expiredSessionReasons are the console reason codes that mean "the token
// is no longer valid" rather than "the credentials are wrong".
var expiredSessionReasons = map[int]bool{4: true, 5: true}

// RESTClient implements Client against the console's web services API.
type RESTClient struct {
	http *resty.Client
	host string
}

// RESTOptions configure a RESTClient.
type RESTOptions struct {
	// Timeout bounds every request, connection setup included.
	Timeout time.Duration
	// Debug enables resty's request/response tracing to stderr.
	Debug bool
}

// NewRESTClient builds a client for the given console. The host may be a
// bare hostname, a host:port, or a full https URL.
func NewRESTClient(creds Credentials, opts RESTOptions) *RESTClient {
	base := normalizeHost(creds.Host)

	hc := resty.New().
		SetBaseURL(base).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetDebug(opts.Debug)

	if !creds.VerifyCert {
		hc.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	} else if creds.CACertPath != "" {
		hc.SetRootCertificate(creds.CACertPath)
	}

	hc.OnBeforeRequest(func(c *resty.Client, req *resty.Request) error {
		req.SetHeader(requestIDHeader, uuid.NewString())
		return nil
	})

	return &RESTClient{http: hc, host: base}
}

// normalizeHost turns the user-supplied host into a base URL.
func normalizeHost(host string) string {
	if strings.Contains(host, "://") {
		return strings.TrimRight(host, "/")
	}
	if strings.Contains(host, ":") {
		return "https://" + host
	}
	return fmt.Sprintf("https://%s:%d", host, defaultPort)
}

// Host returns the normalized base URL of the console.
func (c *RESTClient) Host() string { return c.host }

// Authenticate logs on with POST /api/sessions and returns the token.
func (c *RESTClient) Authenticate(ctx context.Context, creds Credentials) (string, error) {
	var result struct {
		Session string `json:"api-session"`
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"userid": creds.Userid, "password": creds.Password}).
		SetResult(&result).
		Post("/api/sessions")
	if err != nil {
		return "", &ConnectivityError{Host: c.host, Reason: err}
	}

	if resp.IsError() {
		fault := parseFault(resp.Body())
		if resp.StatusCode() == 403 || resp.StatusCode() == 401 {
			return "", &AuthenticationError{Host: c.host, Reason: fault}
		}
		return "", &ConnectivityError{Host: c.host, Reason: fault}
	}
	if result.Session == "" {
		return "", &ConnectivityError{Host: c.host, Reason: fmt.Errorf("logon response without api-session")}
	}
	return result.Session, nil
}

// Logoff invalidates the session token with DELETE /api/sessions/this-session.
func (c *RESTClient) Logoff(ctx context.Context, token string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(sessionHeader, token).
		Delete("/api/sessions/this-session")
	if err != nil {
		return &ConnectivityError{Host: c.host, Reason: err}
	}
	if resp.IsError() && resp.StatusCode() != 404 {
		return c.faultError(resp)
	}
	return nil
}

// Lookup finds a resource by name, or by URI when the identifier starts
// with a slash. Name matches are filtered server-side; the full property
// snapshot is fetched before returning so the handle is usable for show.
func (c *RESTClient) Lookup(ctx context.Context, token string, kind Kind, identifier string, scope *Handle) (*Handle, error) {
	if strings.HasPrefix(identifier, "/") {
		return c.get(ctx, token, kind, identifier)
	}

	listing, err := c.list(ctx, token, kind, scope, map[string]string{"name": identifier})
	if err != nil {
		return nil, err
	}

	switch len(listing) {
	case 0:
		return nil, &NotFoundError{Kind: kind, Identifier: identifier}
	case 1:
		uri, _ := listing[0]["object-uri"].(string)
		if uri == "" {
			return nil, &ConnectivityError{Host: c.host, Reason: fmt.Errorf("listing entry without object-uri")}
		}
		return c.get(ctx, token, kind, uri)
	default:
		candidates := make([]string, 0, len(listing))
		for _, entry := range listing {
			if uri, ok := entry["object-uri"].(string); ok {
				candidates = append(candidates, uri)
			}
		}
		return nil, &AmbiguousNameError{Kind: kind, Identifier: identifier, Candidates: candidates}
	}
}

// Invoke routes a request to the protocol verb its operation implies.
func (c *RESTClient) Invoke(ctx context.Context, token string, req Request) (*Outcome, error) {
	switch req.Operation {
	case "list":
		filter := make(map[string]string, len(req.Params))
		for k, v := range req.Params {
			filter[k] = fmt.Sprintf("%v", v)
		}
		records, err := c.list(ctx, token, req.Kind, req.Scope, filter)
		if err != nil {
			return nil, err
		}
		return &Outcome{Records: records}, nil

	case "get":
		h, err := c.get(ctx, token, req.Target.Kind, req.Target.URI)
		if err != nil {
			return nil, err
		}
		return &Outcome{Records: []map[string]interface{}{h.Properties}}, nil

	case "create":
		return c.create(ctx, token, req)

	case "update":
		resp, err := c.authed(ctx, token).SetBody(req.Params).Post(req.Target.URI)
		return c.outcome(resp, err)

	case "delete":
		resp, err := c.authed(ctx, token).Delete(req.Target.URI)
		return c.outcome(resp, err)

	default:
		opURI := req.Target.URI + "/operations/" + req.Operation
		r := c.authed(ctx, token)
		if len(req.Params) > 0 {
			r.SetBody(req.Params)
		}
		resp, err := r.Post(opURI)
		return c.outcome(resp, err)
	}
}

// PollStatus reads one job status observation with GET on the job URI.
func (c *RESTClient) PollStatus(ctx context.Context, token string, jobURI string) (JobStatus, error) {
	resp, err := c.authed(ctx, token).Get(jobURI)
	if err != nil {
		return JobStatus{}, &ConnectivityError{Host: c.host, Reason: err}
	}
	if resp.IsError() {
		return JobStatus{}, c.faultError(resp)
	}

	var body struct {
		Status     string                 `json:"status"`
		StatusCode int                    `json:"job-status-code"`
		ReasonCode int                    `json:"job-reason-code"`
		Results    map[string]interface{} `json:"job-results"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return JobStatus{}, &ConnectivityError{Host: c.host, Reason: fmt.Errorf("malformed job status: %w", err)}
	}

	if body.Status != "complete" {
		return JobStatus{State: JobPending}, nil
	}
	if body.StatusCode >= 200 && body.StatusCode <= 299 {
		return JobStatus{State: JobCompleted, Result: body.Results}, nil
	}

	message := fmt.Sprintf("job ended with status %d", body.StatusCode)
	if m, ok := body.Results["message"].(string); ok && m != "" {
		message = m
	}
	return JobStatus{
		State:   JobFailed,
		Code:    fmt.Sprintf("%d.%d", body.StatusCode, body.ReasonCode),
		Message: message,
	}, nil
}

// authed returns a request primed with context and session header.
func (c *RESTClient) authed(ctx context.Context, token string) *resty.Request {
	return c.http.R().SetContext(ctx).SetHeader(sessionHeader, token)
}

// list fetches a collection, optionally scoped to a parent resource and
// filtered by query parameters.
func (c *RESTClient) list(ctx context.Context, token string, kind Kind, scope *Handle, filter map[string]string) ([]map[string]interface{}, error) {
	path := "/api/" + kind.Plural()
	if scope != nil {
		path = scope.URI + "/" + kind.Plural()
	}

	r := c.authed(ctx, token)
	for k, v := range filter {
		r.SetQueryParam(k, v)
	}

	resp, err := r.Get(path)
	if err != nil {
		return nil, &ConnectivityError{Host: c.host, Reason: err}
	}
	if resp.IsError() {
		return nil, c.faultError(resp)
	}

	// Collections come back wrapped: {"partitions": [{...}, ...]}.
	var wrapper map[string][]map[string]interface{}
	if err := json.Unmarshal(resp.Body(), &wrapper); err != nil {
		return nil, &ConnectivityError{Host: c.host, Reason: fmt.Errorf("malformed listing: %w", err)}
	}
	if records, ok := wrapper[kind.Plural()]; ok {
		return records, nil
	}
	for _, records := range wrapper {
		return records, nil
	}
	return nil, nil
}

// get fetches the full property snapshot of one object.
func (c *RESTClient) get(ctx context.Context, token string, kind Kind, uri string) (*Handle, error) {
	resp, err := c.authed(ctx, token).Get(uri)
	if err != nil {
		return nil, &ConnectivityError{Host: c.host, Reason: err}
	}
	if resp.StatusCode() == 404 {
		return nil, &NotFoundError{Kind: kind, Identifier: uri}
	}
	if resp.IsError() {
		return nil, c.faultError(resp)
	}

	var props map[string]interface{}
	if err := json.Unmarshal(resp.Body(), &props); err != nil {
		return nil, &ConnectivityError{Host: c.host, Reason: fmt.Errorf("malformed object body: %w", err)}
	}

	name, _ := props["name"].(string)
	return &Handle{Kind: kind, Name: name, URI: uri, Properties: props}, nil
}

// create POSTs to the collection and resolves the created object.
func (c *RESTClient) create(ctx context.Context, token string, req Request) (*Outcome, error) {
	path := "/api/" + req.Kind.Plural()
	if req.Scope != nil {
		path = req.Scope.URI + "/" + req.Kind.Plural()
	}

	resp, err := c.authed(ctx, token).SetBody(req.Params).Post(path)
	if err != nil {
		return nil, &ConnectivityError{Host: c.host, Reason: err}
	}
	if resp.IsError() {
		return nil, c.faultError(resp)
	}

	var body struct {
		ObjectURI string `json:"object-uri"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil || body.ObjectURI == "" {
		return &Outcome{}, nil
	}
	h, err := c.get(ctx, token, req.Kind, body.ObjectURI)
	if err != nil {
		return nil, err
	}
	return &Outcome{Records: []map[string]interface{}{h.Properties}}, nil
}

// outcome maps a mutating response to a sync or async result.
func (c *RESTClient) outcome(resp *resty.Response, err error) (*Outcome, error) {
	if err != nil {
		return nil, &ConnectivityError{Host: c.host, Reason: err}
	}
	if resp.IsError() {
		return nil, c.faultError(resp)
	}

	// 202 Accepted carries the job URI for asynchronous operations.
	if resp.StatusCode() == 202 {
		var body struct {
			JobURI string `json:"job-uri"`
		}
		if err := json.Unmarshal(resp.Body(), &body); err != nil || body.JobURI == "" {
			return nil, &ConnectivityError{Host: c.host, Reason: fmt.Errorf("202 response without job-uri")}
		}
		return &Outcome{JobURI: body.JobURI}, nil
	}

	if len(resp.Body()) == 0 || resp.StatusCode() == 204 {
		return &Outcome{}, nil
	}
	var record map[string]interface{}
	if err := json.Unmarshal(resp.Body(), &record); err != nil {
		return &Outcome{}, nil
	}
	return &Outcome{Records: []map[string]interface{}{record}}, nil
}

// fault is the console's error body.
type fault struct {
	Reason  int    `json:"reason"`
	Message string `json:"message"`
}

func parseFault(body []byte) error {
	var f fault
	if err := json.Unmarshal(body, &f); err != nil || f.Message == "" {
		return fmt.Errorf("console error: %s", strings.TrimSpace(string(body)))
	}
	return fmt.Errorf("%s (reason %d)", f.Message, f.Reason)
}

// faultError translates an HTTP error response into the typed error the
// upper layers dispatch on.
func (c *RESTClient) faultError(resp *resty.Response) error {
	var f fault
	_ = json.Unmarshal(resp.Body(), &f)

	switch resp.StatusCode() {
	case 403:
		if expiredSessionReasons[f.Reason] {
			return &SessionExpiredError{Host: c.host}
		}
		return &AuthenticationError{Host: c.host, Reason: parseFault(resp.Body())}
	case 401:
		return &AuthenticationError{Host: c.host, Reason: parseFault(resp.Body())}
	default:
		message := f.Message
		if message == "" {
			message = fmt.Sprintf("console returned HTTP %d", resp.StatusCode())
		}
		return &OperationError{
			Code:    fmt.Sprintf("%d.%d", resp.StatusCode(), f.Reason),
			Message: message,
		}
	}
}
