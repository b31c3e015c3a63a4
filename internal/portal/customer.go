package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"
)

// requestsTTL bounds how long fetch results are reused within one run.
// Several renderers ask for overlapping data for the same customer; replaying
// the HTTP sequence that often annoys the provider for no gain.
const requestsTTL = 60 * time.Second

// Customer is one (account, customer) relation discovered after login.
//
// The account id is called noPartenaireDemandeur by the provider's API, the
// customer id is the "Customer number" of the My Accounts UI and the contract
// id is the "Contract" of the At a Glance UI. All fetched data lives in
// per-instance caches keyed the provider's native way; nothing is shared
// across customers and nothing persists across runs.
type Customer struct {
	client *Client
	logger *slog.Logger
	cache  *fetchCache

	accountID  string
	customerID string
	contractID string
	balance    float64

	allPeriodsRaw []map[string]any

	currentPeriod  map[string]any
	currentAnnual  map[string]any
	compareAnnual  map[string]any
	currentMonthly map[string]map[string]any
	compareMonthly map[string]map[string]any
	currentDaily   map[string]map[string]any
	compareDaily   map[string]map[string]any
	hourly         map[string]*HourlyDay
	hourlyRaw      map[string]*HourlyRaw
}

// HourlyDay aggregates one day of hourly data. Hours always holds exactly 24
// slots (0–23); when the provider has no weather data the temperature values
// degrade to nil instead of dropping slots.
type HourlyDay struct {
	DayMeanTemp *float64
	DayMinTemp  *float64
	DayMaxTemp  *float64
	Hours       map[int]map[string]any
}

// HourlyRaw keeps the untouched provider arrays for one day. Commercial
// accounts carry 15-minute power data here that the normalized view drops.
type HourlyRaw struct {
	Energy  json.RawMessage
	Power   json.RawMessage
	Weather []*float64
}

func newCustomer(client *Client, accountID, customerID string) *Customer {
	return &Customer{
		client:         client,
		logger:         client.logger.With("customer", customerID),
		cache:          newFetchCache(requestsTTL, client.now),
		accountID:      accountID,
		customerID:     customerID,
		currentPeriod:  map[string]any{},
		currentAnnual:  map[string]any{},
		compareAnnual:  map[string]any{},
		currentMonthly: map[string]map[string]any{},
		compareMonthly: map[string]map[string]any{},
		currentDaily:   map[string]map[string]any{},
		compareDaily:   map[string]map[string]any{},
		hourly:         map[string]*HourlyDay{},
		hourlyRaw:      map[string]*HourlyRaw{},
	}
}

func (cu *Customer) AccountID() string  { return cu.accountID }
func (cu *Customer) CustomerID() string { return cu.customerID }
func (cu *Customer) ContractID() string { return cu.contractID }
func (cu *Customer) Balance() float64   { return cu.balance }

// CurrentPeriod returns the normalized current-period snapshot. All accessor
// maps are read-only views owned by the Customer.
func (cu *Customer) CurrentPeriod() map[string]any { return cu.currentPeriod }

func (cu *Customer) CurrentAnnualData() map[string]any { return cu.currentAnnual }
func (cu *Customer) CompareAnnualData() map[string]any { return cu.compareAnnual }

func (cu *Customer) CurrentMonthlyData() map[string]map[string]any { return cu.currentMonthly }
func (cu *Customer) CompareMonthlyData() map[string]map[string]any { return cu.compareMonthly }

func (cu *Customer) CurrentDailyData() map[string]map[string]any { return cu.currentDaily }
func (cu *Customer) CompareDailyData() map[string]map[string]any { return cu.compareDaily }

func (cu *Customer) HourlyData() map[string]*HourlyDay    { return cu.hourly }
func (cu *Customer) HourlyRawData() map[string]*HourlyRaw { return cu.hourlyRaw }

func (cu *Customer) selectSelf(ctx context.Context) error {
	return cu.client.SelectCustomer(ctx, cu.accountID, cu.customerID, false)
}

// resultsEnvelope is the provider's response shape for every consumption
// resource. The body must be decoded as raw JSON: the portal serves it with
// a text content type.
type resultsEnvelope struct {
	Success *bool           `json:"success"`
	Results json.RawMessage `json:"results"`
}

func decodeResultList(body []byte) ([]map[string]any, error) {
	var env resultsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("portal: decoding results envelope: %w", err)
	}
	if len(env.Results) == 0 || string(env.Results) == "null" {
		return nil, nil
	}
	var results []map[string]any
	if err := json.Unmarshal(env.Results, &results); err != nil {
		return nil, fmt.Errorf("portal: decoding result list: %w", err)
	}
	return results, nil
}

// fetchAllPeriodsRaw loads the raw period list backing the current-period
// snapshot. The first-page action must run first; the resource endpoint
// answers for whatever contract the page last displayed.
func (cu *Customer) fetchAllPeriodsRaw(ctx context.Context) error {
	return cu.cache.do("all_periods", func() error {
		if err := cu.selectSelf(ctx); err != nil {
			return err
		}
		if _, err := cu.client.Request(ctx, ReqOptions{
			URL:    cu.client.endpoints.PeriodsFirstPage,
			Params: url.Values{"idContrat": {"0" + cu.contractID}},
		}); err != nil {
			return err
		}
		res, err := cu.client.Request(ctx, ReqOptions{
			URL:     cu.client.endpoints.PeriodsResource,
			Headers: map[string]string{"Content-Type": "application/json"},
		})
		if err != nil {
			return err
		}
		results, err := decodeResultList(res.Body)
		if err != nil {
			return err
		}
		cu.allPeriodsRaw = results
		return nil
	})
}

// FetchCurrentPeriod fetches and normalizes the current billing-period
// snapshot. An empty period list is a soft miss: caches stay untouched.
func (cu *Customer) FetchCurrentPeriod(ctx context.Context) error {
	return cu.cache.do("current_period", func() error {
		cu.logger.Info("fetching current period data")
		if err := cu.fetchAllPeriodsRaw(ctx); err != nil {
			return err
		}
		if len(cu.allPeriodsRaw) == 0 {
			cu.logger.Warn("no period data available")
			return nil
		}
		cu.currentPeriod = renameFields(cu.allPeriodsRaw[0], currentPeriodMap)
		return nil
	})
}

// FetchAnnual fetches the current-year and compare-year annual records.
// Accounts younger than a year legitimately have no annual history; that is
// a soft failure and the annual maps stay empty.
func (cu *Customer) FetchAnnual(ctx context.Context) error {
	return cu.cache.do("annual", func() error {
		cu.logger.Info("fetching annual data")
		if err := cu.selectSelf(ctx); err != nil {
			return err
		}
		res, err := cu.client.Request(ctx, ReqOptions{
			URL:     cu.client.endpoints.Annual,
			Headers: map[string]string{"Content-Type": "application/json"},
		})
		if err != nil {
			return err
		}
		results, err := decodeResultList(res.Body)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			cu.logger.Info("no annual history yet")
			return nil
		}
		if current, ok := results[0]["courant"].(map[string]any); ok {
			cu.currentAnnual = renameFields(current, annualMap)
		}
		if compare, ok := results[0]["compare"].(map[string]any); ok {
			cu.compareAnnual = renameFields(compare, annualMap)
		}
		return nil
	})
}

// FetchMonthly fetches per-month data for the current and compare years,
// keyed by the month-start date with the day component dropped.
func (cu *Customer) FetchMonthly(ctx context.Context) error {
	return cu.cache.do("monthly", func() error {
		cu.logger.Info("fetching monthly data")
		if err := cu.selectSelf(ctx); err != nil {
			return err
		}
		res, err := cu.client.Request(ctx, ReqOptions{
			URL:     cu.client.endpoints.Monthly,
			Headers: map[string]string{"Content-Type": "application/json"},
		})
		if err != nil {
			return err
		}
		results, err := decodeResultList(res.Body)
		if err != nil {
			return err
		}
		for _, monthData := range results {
			current, ok := monthData["courant"].(map[string]any)
			if !ok {
				continue
			}
			start, _ := current["dateDebutMois"].(string)
			if len(start) < 3 {
				continue
			}
			month := start[:len(start)-3]
			cu.currentMonthly[month] = renameFields(current, monthlyMap)
			if compare, ok := monthData["compare"].(map[string]any); ok {
				cu.compareMonthly[month] = renameFields(compare, monthlyMap)
			}
		}
		return nil
	})
}

// FetchDaily fetches per-day data over [start, end], keyed by calendar date.
// A zero start defaults to yesterday; a malformed date logs and skips the
// fetch. Ranges the provider considers empty (including start > end) leave
// the daily maps untouched.
func (cu *Customer) FetchDaily(ctx context.Context, start, end DateInput) error {
	startStr, endStr, err := cu.dailyRange(start, end)
	if err != nil {
		cu.logger.Warn("skipping daily fetch", "err", err)
		return nil
	}

	return cu.cache.do("daily:"+startStr+":"+endStr, func() error {
		cu.logger.Info("fetching daily data", "start", startStr, "end", endStr)
		if err := cu.selectSelf(ctx); err != nil {
			return err
		}
		params := url.Values{"dateDebut": {startStr}}
		if endStr != "" {
			params.Set("dateFin", endStr)
		}
		res, err := cu.client.Request(ctx, ReqOptions{
			URL:     cu.client.endpoints.Daily,
			Params:  params,
			Headers: map[string]string{"Content-Type": "application/json"},
		})
		if err != nil {
			return err
		}
		results, err := decodeResultList(res.Body)
		if err != nil {
			return err
		}
		for _, dayData := range results {
			current, ok := dayData["courant"].(map[string]any)
			if !ok {
				continue
			}
			day, _ := current["dateJourConso"].(string)
			if day == "" {
				continue
			}
			cu.currentDaily[day] = renameFields(current, dailyMap)
			if compare, ok := dayData["compare"].(map[string]any); ok {
				cu.compareDaily[day] = renameFields(compare, dailyMap)
			}
		}
		return nil
	})
}

func (cu *Customer) dailyRange(start, end DateInput) (string, string, error) {
	startStr := ""
	if start.IsZero() {
		startStr = cu.client.now().AddDate(0, 0, -1).Format(dateLayout)
	} else {
		var err error
		if startStr, err = start.normalize(); err != nil {
			return "", "", err
		}
	}
	endStr := ""
	if !end.IsZero() {
		var err error
		if endStr, err = end.normalize(); err != nil {
			return "", "", err
		}
	}
	return startStr, endStr, nil
}

type hourlyWeatherResult struct {
	DayMeanTemp  *float64   `json:"tempMoyJour"`
	DayMinTemp   *float64   `json:"tempMinJour"`
	DayMaxTemp   *float64   `json:"tempMaxJour"`
	Temperatures []*float64 `json:"listeTemperaturesHeure"`
}

type hourlyEnergyResults struct {
	Energy []struct {
		ConsoReg   any `json:"consoReg"`
		ConsoHaut  any `json:"consoHaut"`
		ConsoTotal any `json:"consoTotal"`
	} `json:"listeDonneesConsoEnergieHoraire"`
	Power json.RawMessage `json:"listeDonneesConsoPuissanceHoraire"`
}

// FetchHourly fetches one day of hourly data. It needs two endpoint calls:
// weather first, then energy. Missing weather degrades to nil temperatures
// across all 24 slots; missing energy leaves the hourly map untouched.
func (cu *Customer) FetchHourly(ctx context.Context, day DateInput) error {
	dayStr := ""
	if day.IsZero() {
		dayStr = cu.client.now().AddDate(0, 0, -1).Format(dateLayout)
	} else {
		var err error
		if dayStr, err = day.normalize(); err != nil {
			cu.logger.Warn("skipping hourly fetch", "err", err)
			return nil
		}
	}

	return cu.cache.do("hourly:"+dayStr, func() error {
		cu.logger.Info("fetching hourly data", "day", dayStr)
		if err := cu.selectSelf(ctx); err != nil {
			return err
		}

		weather, err := cu.fetchHourlyWeather(ctx, dayStr)
		if err != nil {
			return err
		}

		res, err := cu.client.Request(ctx, ReqOptions{
			URL:    cu.client.endpoints.HourlyEnergy,
			Params: url.Values{"date": {dayStr}},
		})
		if err != nil {
			return err
		}
		var env resultsEnvelope
		if err := json.Unmarshal(res.Body, &env); err != nil {
			return fmt.Errorf("portal: decoding hourly energy envelope: %w", err)
		}
		if len(env.Results) == 0 || string(env.Results) == "null" {
			cu.logger.Warn("no hourly energy data available", "day", dayStr)
			return nil
		}
		var energy hourlyEnergyResults
		if err := json.Unmarshal(env.Results, &energy); err != nil {
			return fmt.Errorf("portal: decoding hourly energy results: %w", err)
		}
		if len(energy.Energy) == 0 {
			cu.logger.Warn("no hourly energy data available", "day", dayStr)
			return nil
		}

		hd := &HourlyDay{Hours: make(map[int]map[string]any, 24)}
		var weatherRaw []*float64
		if weather != nil {
			hd.DayMeanTemp = weather.DayMeanTemp
			hd.DayMinTemp = weather.DayMinTemp
			hd.DayMaxTemp = weather.DayMaxTemp
			weatherRaw = weather.Temperatures
		}
		for h := 0; h < 24; h++ {
			slot := map[string]any{"average_temperature": nil}
			if weather != nil && h < len(weather.Temperatures) && weather.Temperatures[h] != nil {
				slot["average_temperature"] = *weather.Temperatures[h]
			}
			hd.Hours[h] = slot
		}
		for h, e := range energy.Energy {
			if h > 23 {
				break
			}
			hd.Hours[h]["lower_price_consumption"] = e.ConsoReg
			hd.Hours[h]["higher_price_consumption"] = e.ConsoHaut
			hd.Hours[h]["total_consumption"] = e.ConsoTotal
		}

		cu.hourly[dayStr] = hd
		cu.hourlyRaw[dayStr] = &HourlyRaw{
			Energy:  env.Results,
			Power:   energy.Power,
			Weather: weatherRaw,
		}
		return nil
	})
}

// fetchHourlyWeather returns nil (not an error) when the provider has no
// weather result for the day.
func (cu *Customer) fetchHourlyWeather(ctx context.Context, dayStr string) (*hourlyWeatherResult, error) {
	res, err := cu.client.Request(ctx, ReqOptions{
		URL:    cu.client.endpoints.HourlyWeather,
		Params: url.Values{"dateDebut": {dayStr}, "dateFin": {dayStr}},
	})
	if err != nil {
		return nil, err
	}
	var env resultsEnvelope
	if err := json.Unmarshal(res.Body, &env); err != nil {
		return nil, fmt.Errorf("portal: decoding hourly weather envelope: %w", err)
	}
	if len(env.Results) == 0 || string(env.Results) == "null" {
		return nil, nil
	}
	var results []hourlyWeatherResult
	if err := json.Unmarshal(env.Results, &results); err != nil {
		return nil, fmt.Errorf("portal: decoding hourly weather results: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}
