package portal

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// The overview page exposes exactly two markup regions per account: the
// balance paragraph and the contract block. Anchored expressions cover them;
// the page is otherwise never interpreted.
var (
	multiAccountRe = regexp.MustCompile(`class="[^"]*entete-multi-compte`)
	accountBlockRe = regexp.MustCompile(`(?s)<article[^>]*class="[^"]*compte[^"]*"[^>]*id="compte-([0-9]+)"[^>]*>(.*?)</article>`)
	balanceRe      = regexp.MustCompile(`(?s)<p[^>]*class="[^"]*solde[^"]*"[^>]*>([^<]+)</p>`)
	contractRe     = regexp.MustCompile(`(?s)<div[^>]*class="[^"]*contrat[^"]*"[^>]*>(.*?)</div>`)
)

// loadCustomersFromSummary resolves the contracts reachable from one
// relation by scraping the account overview page. Multi-contract accounts
// yield one Customer per article block; blocks without the expected markup
// (no billable contract) are dropped with a log line, never errored.
func (c *Client) loadCustomersFromSummary(ctx context.Context, accountID, customerID string) ([]*Customer, error) {
	logger := c.logger.With("customer", customerID)
	logger.Info("fetching summary page")

	if err := c.SelectCustomer(ctx, accountID, customerID, false); err != nil {
		return nil, err
	}

	res, err := c.sess.Request(ctx, ReqOptions{
		URL:     c.endpoints.AccountPage,
		Headers: c.customerHeaders(accountID, customerID),
	})
	if err != nil {
		return nil, err
	}
	page := string(res.Body)

	var customers []*Customer
	if multiAccountRe.MatchString(page) {
		for _, block := range accountBlockRe.FindAllStringSubmatch(page, -1) {
			ncc, body := block[1], block[2]
			cust, ok := c.customerFromBlock(ctx, accountID, customerID, ncc, body)
			if !ok {
				logger.Info("customer has no contract", "ncc", ncc)
				continue
			}
			customers = append(customers, cust)
		}
	} else {
		cust, ok := c.customerFromPage(accountID, customerID, page)
		if !ok {
			logger.Info("customer has no contract")
		} else {
			customers = append(customers, cust)
		}
	}

	// The consumption profile landing page must load once here or the
	// provider breaks the next page loads.
	if _, err := c.sess.Request(ctx, ReqOptions{
		URL:     c.endpoints.ConsumptionProfile,
		Headers: c.customerHeaders(accountID, customerID),
	}); err != nil {
		return nil, err
	}

	return customers, nil
}

// customerFromBlock handles one article of a multi-contract overview: the
// balance sits in the block, the contract id needs a follow-up call keyed by
// the block's ncc.
func (c *Client) customerFromBlock(ctx context.Context, accountID, customerID, ncc, body string) (*Customer, bool) {
	balance, ok := parseBalance(body)
	if !ok {
		return nil, false
	}

	res, err := c.sess.Request(ctx, ReqOptions{
		URL:     c.endpoints.ContractDetail,
		Params:  url.Values{"ncc": {ncc}},
		Headers: c.customerHeaders(accountID, customerID),
	})
	if err != nil {
		return nil, false
	}
	contractID, ok := parseContractID(string(res.Body))
	if !ok {
		return nil, false
	}

	cust := newCustomer(c, accountID, customerID)
	cust.contractID = contractID
	cust.balance = balance
	return cust, true
}

func (c *Client) customerFromPage(accountID, customerID, page string) (*Customer, bool) {
	balance, ok := parseBalance(page)
	if !ok {
		return nil, false
	}
	contractID, ok := parseContractID(page)
	if !ok {
		return nil, false
	}
	cust := newCustomer(c, accountID, customerID)
	cust.contractID = contractID
	cust.balance = balance
	return cust, true
}

// parseBalance normalizes the French-locale balance text: non-breaking-space
// digit grouping, comma decimal separator, trailing currency sign.
func parseBalance(markup string) (float64, bool) {
	m := balanceRe.FindStringSubmatch(markup)
	if m == nil {
		return 0, false
	}
	raw := strings.TrimSpace(m[1])
	raw = strings.TrimSuffix(raw, "$")
	raw = strings.ReplaceAll(raw, "\u00a0", "")
	raw = strings.ReplaceAll(raw, " ", "")
	raw = strings.ReplaceAll(raw, ",", ".")
	balance, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return balance, true
}

// parseContractID pulls the contract number out of the contract block,
// dropping the "Contrat" label, layout whitespace and digit grouping.
func parseContractID(markup string) (string, bool) {
	m := contractRe.FindStringSubmatch(markup)
	if m == nil {
		return "", false
	}
	text := m[1]
	if _, after, ok := strings.Cut(text, "Contrat"); ok {
		text = after
	}
	text = strings.NewReplacer("\t", "", "\n", "", " ", "").Replace(text)
	if text == "" {
		return "", false
	}
	return text, true
}
