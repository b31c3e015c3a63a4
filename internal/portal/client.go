package portal

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// State tracks the login machine. Every Login call starts over from
// StateAnonymous; StateCustomersLoaded is the only usable terminal state.
type State string

const (
	StateAnonymous            State = "ANONYMOUS"
	StateCredentialsSubmitted State = "CREDENTIALS_SUBMITTED"
	StateTokenIssued          State = "TOKEN_ISSUED"
	StateAuthorized           State = "AUTHORIZED"
	StateCustomersLoaded      State = "CUSTOMERS_LOADED"
	StateFailed               State = "FAILED"
)

// Relation is one (account, customer) pair returned by the relations API.
type Relation struct {
	AccountID  string `json:"noPartenaireDemandeur"`
	CustomerID string `json:"noPartenaireTitulaire"`
}

// Client drives the authenticated portal session: the login chain, the
// customer selection protocol and the customer directory. One Client owns one
// Session; fetches against it must be sequenced, never concurrent.
type Client struct {
	sess      *Session
	endpoints Endpoints
	logger    *slog.Logger

	username string
	password string
	timeout  time.Duration

	state            State
	token            string
	correlationID    string
	selectedCustomer string
	relations        []Relation
	customers        []*Customer
	seeds            []seedCookie

	// selectionCalls counts completed 4-call selection sequences. Tests use
	// it to verify the reselection no-op.
	selectionCalls int

	randString func(int) string
	now        func() time.Time
}

func NewClient(username, password string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		sess:       NewSession(timeout),
		endpoints:  DefaultEndpoints(),
		logger:     logger,
		username:   username,
		password:   password,
		timeout:    timeout,
		state:      StateAnonymous,
		randString: randAlphanumeric,
		now:        time.Now,
	}
}

// SetEndpoints overrides the portal URLs, for tests.
func (c *Client) SetEndpoints(e Endpoints) { c.endpoints = e }

func (c *Client) State() State { return c.state }

func (c *Client) Token() string { return c.token }

// Customers returns the usable customer directory. Customers without a
// resolved contract never appear here.
func (c *Client) Customers() []*Customer { return c.customers }

func (c *Client) SelectionCalls() int { return c.selectionCalls }

// Request exposes the underlying session to the fetch layer.
func (c *Client) Request(ctx context.Context, opts ReqOptions) (*Response, error) {
	return c.sess.Request(ctx, opts)
}

func (c *Client) CloseSession() {
	c.sess.CloseIdleConnections()
}

// callbackTemplate is the credential form the authentication service hands
// out. tokenId appears once the provider considers the session authenticated.
type callbackTemplate struct {
	AuthID    string     `json:"authId,omitempty"`
	Stage     string     `json:"stage,omitempty"`
	TokenID   string     `json:"tokenId,omitempty"`
	Callbacks []callback `json:"callbacks,omitempty"`
}

type callback struct {
	Type   string          `json:"type"`
	Output json.RawMessage `json:"output,omitempty"`
	Input  []callbackInput `json:"input,omitempty"`
}

type callbackInput struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Login runs the whole authentication chain and loads the customer
// directory. It is idempotent: every call resets all session state first.
// There are no retries anywhere in the chain; a credential or provider
// failure must not be replayed against the login endpoint.
func (c *Client) Login(ctx context.Context) error {
	c.state = StateAnonymous
	c.sess.Reset()
	c.applySeeds()
	c.token = ""
	c.selectedCustomer = ""
	c.relations = nil
	c.customers = nil
	c.correlationID = uuid.NewString()

	tpl, err := c.fetchCallbackTemplate(ctx)
	if err != nil {
		c.state = StateFailed
		return err
	}

	if tpl.TokenID == "" {
		tpl, err = c.submitCredentials(ctx, tpl)
		if err != nil {
			c.state = StateFailed
			return err
		}
	}
	c.state = StateCredentialsSubmitted

	if tpl.TokenID == "" {
		c.state = StateFailed
		err := &AuthError{Reason: "no token issued, check username/password"}
		c.logger.Error("login failed", "err", err)
		return err
	}
	c.state = StateTokenIssued

	clientID, redirectURI, scope, err := c.fetchSecurityConfig(ctx)
	if err != nil {
		c.state = StateFailed
		return err
	}

	callbackURL, err := c.authorize(ctx, clientID, redirectURI, scope)
	if err != nil {
		c.state = StateFailed
		return err
	}

	token, err := c.fetchAccessToken(ctx, callbackURL)
	if err != nil {
		c.state = StateFailed
		return err
	}
	c.token = token
	c.state = StateAuthorized

	if err := c.convertAccessToken(ctx); err != nil {
		c.state = StateFailed
		return err
	}

	if err := c.loadCustomers(ctx); err != nil {
		c.state = StateFailed
		return err
	}
	c.state = StateCustomersLoaded

	c.logger.Info("login complete", "customers", len(c.customers))
	return nil
}

func (c *Client) fetchCallbackTemplate(ctx context.Context) (*callbackTemplate, error) {
	res, err := c.sess.Request(ctx, ReqOptions{
		Method:  http.MethodPost,
		URL:     c.endpoints.Authenticate,
		Headers: anonymousHeaders(),
	})
	if err != nil {
		return nil, err
	}
	var tpl callbackTemplate
	if err := json.Unmarshal(res.Body, &tpl); err != nil {
		return nil, fmt.Errorf("portal: decoding callback template: %w", err)
	}
	return &tpl, nil
}

// submitCredentials fills the two known input slots of the callback template
// and resubmits it. A failure here means bad credentials; it is fatal.
func (c *Client) submitCredentials(ctx context.Context, tpl *callbackTemplate) (*callbackTemplate, error) {
	if len(tpl.Callbacks) < 2 || len(tpl.Callbacks[0].Input) == 0 || len(tpl.Callbacks[1].Input) == 0 {
		return nil, &AuthError{Reason: "unexpected callback template shape"}
	}
	tpl.Callbacks[0].Input[0].Value = c.username
	tpl.Callbacks[1].Input[0].Value = c.password

	body, err := json.Marshal(tpl)
	if err != nil {
		return nil, fmt.Errorf("portal: encoding callback template: %w", err)
	}

	res, err := c.sess.Request(ctx, ReqOptions{
		Method:  http.MethodPost,
		URL:     c.endpoints.Authenticate,
		Body:    body,
		Headers: anonymousHeaders(),
	})
	if err != nil {
		return nil, err
	}

	var filled callbackTemplate
	if err := json.Unmarshal(res.Body, &filled); err != nil {
		return nil, fmt.Errorf("portal: decoding authentication response: %w", err)
	}
	return &filled, nil
}

type securityConfig struct {
	OAuth2 []struct {
		ClientID    string `json:"clientId"`
		RedirectURI string `json:"redirectUri"`
		Scope       string `json:"scope"`
	} `json:"oauth2"`
}

func (c *Client) fetchSecurityConfig(ctx context.Context) (clientID, redirectURI, scope string, err error) {
	res, err := c.sess.Request(ctx, ReqOptions{URL: c.endpoints.SecurityConfig})
	if err != nil {
		return "", "", "", err
	}
	var cfg securityConfig
	if err := json.Unmarshal(res.Body, &cfg); err != nil {
		return "", "", "", fmt.Errorf("portal: decoding security config: %w", err)
	}
	if len(cfg.OAuth2) == 0 {
		return "", "", "", &AuthError{Reason: "security config lists no oauth2 client"}
	}
	return cfg.OAuth2[0].ClientID, cfg.OAuth2[0].RedirectURI, cfg.OAuth2[0].Scope, nil
}

// authorize calls the OAuth authorize endpoint and returns the callback URL
// from the 302 Location header. The same 40-char random string serves as
// state and nonce; it only needs to be unique within the session.
func (c *Client) authorize(ctx context.Context, clientID, redirectURI, scope string) (string, error) {
	stateNonce := c.randString(40)
	params := url.Values{
		"response_type": {"id_token token"},
		"client_id":     {clientID},
		"redirect_uri":  {redirectURI},
		"scope":         {scope},
		"state":         {stateNonce},
		"nonce":         {stateNonce},
		"locale":        {"en"},
	}
	res, err := c.sess.Request(ctx, ReqOptions{
		URL:            c.endpoints.Authorize,
		Params:         params,
		ExpectedStatus: http.StatusFound,
	})
	if err != nil {
		return "", err
	}
	loc := res.Header.Get("Location")
	if loc == "" {
		return "", &AuthError{Reason: "authorize redirect carries no Location header"}
	}
	return loc, nil
}

// fetchAccessToken primes the callback URL (it sets additional session
// cookies) and pulls access_token out of the URL fragment.
func (c *Client) fetchAccessToken(ctx context.Context, callbackURL string) (string, error) {
	if _, err := c.sess.Request(ctx, ReqOptions{URL: callbackURL}); err != nil {
		return "", err
	}
	token := fragmentValue(callbackURL, "access_token")
	if token == "" {
		return "", &AuthError{Reason: "access token missing from authorize callback"}
	}
	return token, nil
}

// fragmentValue splits a #k=v&k=v URL fragment the way the provider builds
// it; url.ParseQuery is deliberately avoided because the fragment is not
// query-escaped.
func fragmentValue(rawURL, key string) string {
	_, frag, ok := strings.Cut(rawURL, "#")
	if !ok {
		return ""
	}
	for _, pair := range strings.Split(frag, "&") {
		k, v, ok := strings.Cut(pair, "=")
		if ok && k == key {
			return v
		}
	}
	return ""
}

func (c *Client) convertAccessToken(ctx context.Context) error {
	_, err := c.sess.Request(ctx, ReqOptions{
		Method:  http.MethodPost,
		URL:     c.endpoints.TokenConversion,
		Headers: c.bearerHeaders(),
	})
	return err
}

// loadCustomers fetches the account/customer relations and resolves each
// into zero or more customers via the account overview scrape. Relations
// without a billable contract are dropped, not errored.
func (c *Client) loadCustomers(ctx context.Context) error {
	res, err := c.sess.Request(ctx, ReqOptions{
		URL:     c.endpoints.Relations,
		Headers: c.bearerHeaders(),
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(res.Body, &c.relations); err != nil {
		return fmt.Errorf("portal: decoding relations: %w", err)
	}

	for _, rel := range c.relations {
		customers, err := c.loadCustomersFromSummary(ctx, rel.AccountID, rel.CustomerID)
		if err != nil {
			return err
		}
		c.customers = append(c.customers, customers...)
	}
	return nil
}

// SelectCustomer performs the context switch the provider requires before
// any data fetch. It is a no-op when customerID is already selected unless
// force is set; force first evicts the session-host cookies so stale
// per-customer state cannot leak into the new selection. On any failure the
// previous selection is left unrecorded and the caller must not fetch.
func (c *Client) SelectCustomer(ctx context.Context, accountID, customerID string, force bool) error {
	if !force && c.selectedCustomer == customerID {
		return nil
	}
	if !c.knownCustomer(customerID) {
		return &UnknownCustomerError{CustomerID: customerID}
	}
	if force {
		c.sess.EvictCookies(c.endpoints.SessionHost)
	}
	c.selectedCustomer = ""

	hdrs := c.customerHeaders(accountID, customerID)

	if _, err := c.sess.Request(ctx, ReqOptions{URL: c.endpoints.InfoBase, Headers: hdrs}); err != nil {
		return err
	}
	if _, err := c.sess.Request(ctx, ReqOptions{
		Method:  http.MethodPost,
		URL:     c.endpoints.SessionRefresh,
		Body:    []byte(`{"mode":"WEB"}`),
		Headers: hdrs,
	}); err != nil {
		return err
	}
	if _, err := c.sess.Request(ctx, ReqOptions{URL: c.endpoints.AccountPage, Headers: hdrs}); err != nil {
		return err
	}
	if _, err := c.sess.Request(ctx, ReqOptions{URL: c.endpoints.ConsumptionProfile, Headers: hdrs}); err != nil {
		return err
	}

	c.selectedCustomer = customerID
	c.selectionCalls++
	c.logger.Debug("customer selected", "customer", customerID, "forced", force)
	return nil
}

func (c *Client) knownCustomer(customerID string) bool {
	for _, rel := range c.relations {
		if rel.CustomerID == customerID {
			return true
		}
	}
	return false
}

func anonymousHeaders() map[string]string {
	return map[string]string{
		"Content-Type":     "application/json",
		"X-NoSession":      "true",
		"X-Password":       "anonymous",
		"X-Requested-With": "XMLHttpRequest",
	}
}

func (c *Client) bearerHeaders() map[string]string {
	return map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + c.token,
	}
}

// customerHeaders carries the full customer context every selection and
// fetch call needs: account, customer, bearer token, session correlation id
// and the current timestamp.
func (c *Client) customerHeaders(accountID, customerID string) map[string]string {
	return map[string]string{
		"Content-Type":            "application/json",
		"Authorization":           "Bearer " + c.token,
		"NO_PARTENAIRE_DEMANDEUR": accountID,
		"NO_PARTENAIRE_TITULAIRE": customerID,
		"GUID_SESSION":            c.correlationID,
		"DATE_DERNIERE_VISITE":    c.now().Format("2006-01-02T15:04:05.000-0700"),
	}
}

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randAlphanumeric(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand never fails on supported platforms
	}
	for i, b := range buf {
		buf[i] = alphanumeric[int(b)%len(alphanumeric)]
	}
	return string(buf)
}
