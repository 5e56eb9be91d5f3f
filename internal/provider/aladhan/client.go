package aladhan

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"prayerd/internal/eventbus"
	"prayerd/internal/prayer"
	"prayerd/internal/retry"
	"prayerd/internal/storage"
	"prayerd/pkg/logx"
)

const (
	// DefaultBaseURL is the public Al Adhan API root.
	DefaultBaseURL = "https://api.aladhan.com/v1"

	// Calculation method codes accepted by the API. 2 (ISNA) is the
	// default; 3 is Muslim World League, 4 Umm Al-Qura, 5 Egyptian GAS.
	MinMethod = 1
	MaxMethod = 15

	DefaultMethod = 2

	// dateLayout renders the non-padded day-month-year path segment the
	// API expects, e.g. "2-1-2026".
	dateLayout = "2-1-2006"

	defaultTimeout = 15 * time.Second
)

// Config configures the timings client.
type Config struct {
	BaseURL   string
	Latitude  float64
	Longitude float64
	Method    int // MinMethod..MaxMethod; 0 means DefaultMethod

	// Location is the display name stored on fetched tables. Empty
	// means a "lat, lon" string.
	Location string

	// RequestsPerMinute caps outbound API calls. 0 means 10.
	RequestsPerMinute int

	Timeout time.Duration
	Retry   retry.Options
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Method == 0 {
		c.Method = DefaultMethod
	}
	if c.RequestsPerMinute == 0 {
		c.RequestsPerMinute = 10
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.Location == "" {
		c.Location = fmt.Sprintf("%.4f, %.4f", c.Latitude, c.Longitude)
	}
	return c
}

// Client fetches daily prayer-time tables from the Al Adhan API, with
// retries for transient failures and a cache-table fallback when the
// network is down entirely.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	store   storage.Store
	log     logx.Logger
	bus     eventbus.Bus

	now func() time.Time
}

// New builds a Client. store may be nil, in which case fetched tables
// are not cached and fetch failures always propagate. The returned
// error only reports configuration problems.
func New(cfg Config, store storage.Store, log logx.Logger, bus eventbus.Bus) (*Client, error) {
	cfg = cfg.withDefaults()
	if cfg.Method < MinMethod || cfg.Method > MaxMethod {
		return nil, fmt.Errorf("aladhan: method %d out of range %d..%d", cfg.Method, MinMethod, MaxMethod)
	}
	if cfg.Latitude < -90 || cfg.Latitude > 90 || cfg.Longitude < -180 || cfg.Longitude > 180 {
		return nil, fmt.Errorf("aladhan: coordinates %.4f, %.4f out of range", cfg.Latitude, cfg.Longitude)
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
		store:   store,
		log:     log.With(logx.String("component", "aladhan")),
		bus:     bus,
		now:     time.Now,
	}, nil
}

// Timings returns today's prayer-time table.
//
// A live fetch is attempted first (with retries per the configured
// policy) and the result is written to the cache. If the fetch fails
// after all retries, the last cached table is returned instead; its
// FreshFor tells the caller whether it is from today. The fetch error
// propagates only when no cached table exists.
func (c *Client) Timings(ctx context.Context) (prayer.Table, error) {
	day := c.now()

	t, err := c.fetch(ctx, day)
	if err == nil {
		if c.store != nil {
			if perr := c.store.PutTable(ctx, t); perr != nil {
				c.log.Warn("cache prayer table failed", logx.Err(perr))
			}
		}
		c.publish(t)
		return t, nil
	}

	if c.store != nil {
		if cached, ok, gerr := c.store.GetTable(ctx); gerr == nil && ok {
			c.log.Warn("live fetch failed, using cached table",
				logx.Err(err),
				logx.String("cached_date", cached.Date),
				logx.Bool("fresh", cached.FreshFor(day)))
			return cached, nil
		}
	}
	return prayer.Table{}, fmt.Errorf("fetch prayer times: %w", err)
}

// CacheValid reports whether a cached table exists and was fetched on
// the current local calendar day.
func (c *Client) CacheValid(ctx context.Context) bool {
	if c.store == nil {
		return false
	}
	t, ok, err := c.store.GetTable(ctx)
	return err == nil && ok && t.FreshFor(c.now())
}

func (c *Client) fetch(ctx context.Context, day time.Time) (prayer.Table, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return prayer.Table{}, err
	}

	u := c.timingsURL(day)
	c.log.Debug("fetching prayer times", logx.String("url", u))

	resp, err := retry.FetchJSON[response](ctx, c.http, u, c.cfg.Retry)
	if err != nil {
		return prayer.Table{}, err
	}
	if resp.Code != http.StatusOK {
		return prayer.Table{}, fmt.Errorf("aladhan: api code %d (%s)", resp.Code, resp.Status)
	}

	t := c.tableFrom(resp.Data)
	if err := t.Validate(); err != nil {
		return prayer.Table{}, fmt.Errorf("aladhan: %w", err)
	}
	return t, nil
}

func (c *Client) timingsURL(day time.Time) string {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%f", c.cfg.Latitude))
	q.Set("longitude", fmt.Sprintf("%f", c.cfg.Longitude))
	q.Set("method", fmt.Sprintf("%d", c.cfg.Method))
	return fmt.Sprintf("%s/timings/%s?%s",
		strings.TrimSuffix(c.cfg.BaseURL, "/"), day.Format(dateLayout), q.Encode())
}

func (c *Client) tableFrom(d data) prayer.Table {
	return prayer.Table{
		Fajr:    stripTimezone(d.Timings.Fajr),
		Sunrise: stripTimezone(d.Timings.Sunrise),
		Dhuhr:   stripTimezone(d.Timings.Dhuhr),
		Asr:     stripTimezone(d.Timings.Asr),
		Maghrib: stripTimezone(d.Timings.Maghrib),
		Isha:    stripTimezone(d.Timings.Isha),

		Date:       d.Date.Readable,
		HijriDate:  d.Date.Hijri.Date,
		HijriMonth: d.Date.Hijri.Month.En,
		HijriYear:  d.Date.Hijri.Year,

		Location:    c.cfg.Location,
		LastFetched: c.now(),
	}
}

func (c *Client) publish(t prayer.Table) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(eventbus.Event{
		Type: eventbus.EventProviderFetched,
		Data: map[string]string{"date": t.Date, "location": t.Location},
	})
}

// stripTimezone drops the " (BST)"-style suffix some deployments append
// to timing strings, leaving bare "HH:MM".
func stripTimezone(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}
