package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hydroscan/hydroscan/internal/config"
	"github.com/hydroscan/hydroscan/internal/portal"
	"github.com/hydroscan/hydroscan/internal/store"
)

// Daemon runs the gather loop: log in, walk the contracts, fetch fresh
// consumption data and append it to the history store. The config file is
// watched so interval and credential changes apply without a restart.
type Daemon struct {
	mu         sync.RWMutex
	cfg        config.Config
	configPath string
	logger     *slog.Logger
	store      *store.Store

	// newClient is swappable in tests.
	newClient func(cfg config.Config) *portal.Client

	reloaded chan struct{}
}

func New(cfg config.Config, configPath string, logger *slog.Logger, st *store.Store) *Daemon {
	return &Daemon{
		cfg:        cfg,
		configPath: configPath,
		logger:     logger,
		store:      st,
		newClient: func(cfg config.Config) *portal.Client {
			return portal.NewClient(cfg.Username, cfg.Password,
				time.Duration(cfg.TimeoutSeconds)*time.Second, logger)
		},
		reloaded: make(chan struct{}, 1),
	}
}

// Run blocks until ctx is cancelled. The first gather fires immediately, then
// on every interval tick and on every config reload that changes the interval.
func (d *Daemon) Run(ctx context.Context) error {
	watcher, err := d.watchConfig(ctx)
	if err != nil {
		d.logger.Warn("config watch unavailable, running without live reload", "error", err)
	} else if watcher != nil {
		defer watcher.Close()
	}

	interval := d.interval()
	d.logger.Info("daemon started", "interval", interval)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("daemon stopping")
			return ctx.Err()
		case <-d.reloaded:
			if next := d.interval(); next != interval {
				interval = next
				d.logger.Info("gather interval changed", "interval", interval)
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(interval)
			}
		case <-timer.C:
			if err := d.GatherOnce(ctx); err != nil {
				d.logger.Error("gather failed", "error", err)
			}
			timer.Reset(interval)
		}
	}
}

func (d *Daemon) config() config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

func (d *Daemon) setConfig(cfg config.Config) {
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()
}

func (d *Daemon) interval() time.Duration {
	minutes := d.config().FrequencyMinutes
	if minutes <= 0 {
		minutes = 360
	}
	return time.Duration(minutes) * time.Minute
}

// watchConfig reloads d.cfg whenever the settings file is rewritten. Editors
// replace files rather than write in place, so Create events count too.
func (d *Daemon) watchConfig(ctx context.Context) (*fsnotify.Watcher, error) {
	if d.configPath == "" {
		return nil, nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(d.configPath); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				cfg, err := config.LoadFrom(d.configPath)
				if err != nil {
					d.logger.Warn("config reload failed", "error", err)
					continue
				}
				d.setConfig(cfg)
				d.logger.Info("config reloaded", "path", d.configPath)
				select {
				case d.reloaded <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				d.logger.Warn("config watch error", "error", err)
			}
		}
	}()

	return watcher, nil
}

// GatherOnce performs one complete fetch pass over every reachable contract.
func (d *Daemon) GatherOnce(ctx context.Context) error {
	cfg := d.config()
	client := d.newClient(cfg)
	if cfg.BrowserCookies {
		client.SeedBrowserCookies(ctx)
	}

	if err := client.Login(ctx); err != nil {
		return err
	}
	defer client.CloseSession()

	for _, cust := range client.Customers() {
		if cfg.Contract != "" && cust.ContractID() != cfg.Contract {
			continue
		}
		d.gatherCustomer(ctx, cfg, client, cust)
	}
	return nil
}

// gatherCustomer fetches and stores one contract. Individual fetch failures
// log and move on; one broken contract never stalls the rest of the pass.
func (d *Daemon) gatherCustomer(ctx context.Context, cfg config.Config, client *portal.Client, cust *portal.Customer) {
	logger := d.logger.With("contract", cust.ContractID())

	if err := client.SelectCustomer(ctx, cust.AccountID(), cust.CustomerID(), false); err != nil {
		logger.Error("customer selection failed", "error", err)
		return
	}

	if err := cust.FetchCurrentPeriod(ctx); err != nil {
		logger.Error("current period fetch failed", "error", err)
	} else if err := d.store.RecordBalance(ctx, cust.ContractID(), cust.Balance()); err != nil {
		logger.Error("balance store failed", "error", err)
	}

	yesterday := time.Now().AddDate(0, 0, -1)
	if err := cust.FetchDaily(ctx, portal.DateOf(yesterday), portal.DateInput{}); err != nil {
		logger.Error("daily fetch failed", "error", err)
	} else if len(cust.CurrentDailyData()) == 0 {
		// Yesterday's figures sometimes land a day late.
		dayBefore := yesterday.AddDate(0, 0, -1)
		if err := cust.FetchDaily(ctx, portal.DateOf(dayBefore), portal.DateInput{}); err != nil {
			logger.Error("daily fallback fetch failed", "error", err)
		}
	}
	if daily := cust.CurrentDailyData(); len(daily) > 0 {
		if err := d.store.RecordDaily(ctx, cust.ContractID(), daily); err != nil {
			logger.Error("daily store failed", "error", err)
		}
	}

	if cfg.Hourly {
		if err := cust.FetchHourly(ctx, portal.DateOf(yesterday)); err != nil {
			logger.Error("hourly fetch failed", "error", err)
		}
		date := yesterday.Format("2006-01-02")
		if day, ok := cust.HourlyData()[date]; ok {
			if err := d.store.RecordHourly(ctx, cust.ContractID(), date, day); err != nil {
				logger.Error("hourly store failed", "error", err)
			}
		}
	}

	logger.Info("gather complete", "balance", cust.Balance())
}
