package spothinta

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nergy-se/heatcontrol/pkg/clock"
	"github.com/nergy-se/heatcontrol/pkg/price"
	"github.com/sirupsen/logrus"
)

var httpClient = &http.Client{
	Timeout: time.Second * 30,
}

// hourPrice is one element of the /Today and /DayForward responses.
type hourPrice struct {
	Rank         int     `json:"Rank"`
	DateTime     string  `json:"DateTime"`
	PriceNoTax   float64 `json:"PriceNoTax"`
	PriceWithTax float64 `json:"PriceWithTax"`
}

// Client fetches hourly spot prices from api.spot-hinta.fi.
type Client struct {
	server   string
	location *time.Location
	clock    clock.Clock
}

func New(server string, location *time.Location, c clock.Clock) *Client {
	if c == nil {
		c = clock.Real{}
	}
	return &Client{
		server:   server,
		location: location,
		clock:    c,
	}
}

// Prices returns the prices of day. Only today and tomorrow are available.
func (c *Client) Prices(ctx context.Context, day time.Time) (*price.Set, error) {
	today := clock.Day(c.clock.Now().In(c.location))
	day = clock.Day(day.In(c.location))

	var endpoint string
	switch {
	case day.Equal(today):
		endpoint = "Today"
	case day.Equal(today.AddDate(0, 0, 1)):
		endpoint = "DayForward"
	default:
		return nil, fmt.Errorf("prices for %s not available, today is %s", day.Format("2006-01-02"), today.Format("2006-01-02"))
	}

	records, err := c.fetch(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if !clock.Day(r.Time).Equal(day) {
			return nil, fmt.Errorf("got price for %s when asking for %s", r.Time.Format(time.RFC3339), day.Format("2006-01-02"))
		}
	}
	return price.NewSet(records)
}

func (c *Client) fetch(ctx context.Context, endpoint string) ([]price.Record, error) {
	u := fmt.Sprintf("%s/%s", c.server, endpoint)
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("error fetching %s StatusCode: %d", endpoint, resp.StatusCode)
	}

	response := []hourPrice{}
	err = json.NewDecoder(resp.Body).Decode(&response)
	if err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", endpoint, err)
	}
	if len(response) == 0 {
		return nil, price.ErrEmpty
	}

	records := make([]price.Record, 0, len(response))
	for _, hp := range response {
		ts, err := time.Parse(time.RFC3339, hp.DateTime)
		if err != nil {
			return nil, fmt.Errorf("error parsing DateTime %q: %w", hp.DateTime, err)
		}
		ts = ts.In(c.location)
		records = append(records, price.Record{
			Time:         ts,
			Hour:         ts.Hour(),
			PriceNoTax:   hp.PriceNoTax,
			PriceWithTax: hp.PriceWithTax,
			Rank:         hp.Rank,
		})
	}
	logrus.WithFields(logrus.Fields{"endpoint": endpoint, "count": len(records)}).Debug("spothinta: fetched prices")
	return records, nil
}
