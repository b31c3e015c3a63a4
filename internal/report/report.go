package report

import (
	"sort"

	"github.com/samber/lo"

	"github.com/hydroscan/hydroscan/internal/portal"
)

// Contract is the read-only snapshot of one customer's fetched data, decoupled
// from the live client so renderers and encoders never trigger network calls.
type Contract struct {
	AccountID  string `json:"account_id"`
	CustomerID string `json:"customer_id"`
	ContractID string `json:"contract_id"`

	Balance float64 `json:"balance"`

	CurrentPeriod map[string]any `json:"current_period,omitempty"`

	CurrentAnnual map[string]any `json:"current_annual,omitempty"`
	CompareAnnual map[string]any `json:"compare_annual,omitempty"`

	CurrentMonthly map[string]map[string]any `json:"current_monthly,omitempty"`
	CompareMonthly map[string]map[string]any `json:"compare_monthly,omitempty"`

	CurrentDaily map[string]map[string]any `json:"current_daily,omitempty"`
	CompareDaily map[string]map[string]any `json:"compare_daily,omitempty"`

	Hourly map[string]*portal.HourlyDay `json:"hourly,omitempty"`
}

// Snapshot copies every cached result out of a customer.
func Snapshot(cust *portal.Customer) Contract {
	return Contract{
		AccountID:      cust.AccountID(),
		CustomerID:     cust.CustomerID(),
		ContractID:     cust.ContractID(),
		Balance:        cust.Balance(),
		CurrentPeriod:  cust.CurrentPeriod(),
		CurrentAnnual:  cust.CurrentAnnualData(),
		CompareAnnual:  cust.CompareAnnualData(),
		CurrentMonthly: cust.CurrentMonthlyData(),
		CompareMonthly: cust.CompareMonthlyData(),
		CurrentDaily:   cust.CurrentDailyData(),
		CompareDaily:   cust.CompareDailyData(),
		Hourly:         cust.HourlyData(),
	}
}

// Report wraps the contracts of one fetch run.
type Report struct {
	Account   string     `json:"account"`
	Contracts []Contract `json:"contracts"`
}

func New(account string, customers []*portal.Customer) Report {
	contracts := lo.Map(customers, func(cust *portal.Customer, _ int) Contract {
		return Snapshot(cust)
	})
	sort.Slice(contracts, func(i, j int) bool {
		return contracts[i].ContractID < contracts[j].ContractID
	})
	return Report{Account: account, Contracts: contracts}
}

// sortedKeys yields a map's keys in ascending order so renderings are stable
// run to run.
func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}

// latestKey returns the lexically greatest key, which for ISO dates is the
// most recent one.
func latestKey[V any](m map[string]V) (string, bool) {
	keys := sortedKeys(m)
	if len(keys) == 0 {
		return "", false
	}
	return keys[len(keys)-1], true
}
