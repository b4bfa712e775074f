package geocode

import (
	"context"
	"fmt"
	neturl "net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/kofalt/go-memoize"
	"github.com/rm-hull/near-expiry-food/internal"
	"github.com/rm-hull/near-expiry-food/internal/geo"
	"go.uber.org/zap"
	"golang.org/x/text/width"
)

const (
	DefaultBaseURL = "https://nominatim.openstreetmap.org"
	userAgent      = "near-expiry-food/1.0"
)

var ErrNoPostcode = errors.New("no postcode for location")

type Address struct {
	DisplayName string `json:"display_name"`
	Postcode    string `json:"postcode"`
	City        string `json:"city"`
	Suburb      string `json:"suburb"`
	Country     string `json:"country"`
}

// Geocoder converts coordinates into a postal address.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, p geo.GeoPoint) (*Address, error)
}

type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error,omitempty"`
	Address     struct {
		Postcode string `json:"postcode"`
		City     string `json:"city"`
		Town     string `json:"town"`
		Suburb   string `json:"suburb"`
		Country  string `json:"country"`
	} `json:"address"`
}

type nominatim struct {
	baseURL string
	client  *internal.VendorClient
	cache   *memoize.Memoizer
}

// NewNominatim returns an OpenStreetMap Nominatim geocoder. Lookups are
// memoised per exact coordinate for cacheTTL.
func NewNominatim(baseURL string, timeout, cacheTTL time.Duration, logger *zap.Logger) Geocoder {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &nominatim{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: internal.NewVendorClient(timeout, map[string]string{
			"User-Agent": userAgent,
		}, logger),
		cache: memoize.NewMemoizer(cacheTTL, 2*cacheTTL),
	}
}

func (n *nominatim) ReverseGeocode(ctx context.Context, p geo.GeoPoint) (*Address, error) {
	key := fmt.Sprintf("%.7f,%.7f", p.Latitude, p.Longitude)
	result, err, _ := n.cache.Memoize(key, func() (any, error) {
		return n.reverse(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Address), nil
}

func (n *nominatim) reverse(ctx context.Context, p geo.GeoPoint) (*Address, error) {
	params := neturl.Values{}
	params.Set("lat", fmt.Sprintf("%f", p.Latitude))
	params.Set("lon", fmt.Sprintf("%f", p.Longitude))
	params.Set("format", "json")
	params.Set("addressdetails", "1")

	var resp nominatimResponse
	if err := n.client.GetJSON(ctx, n.baseURL+"/reverse?"+params.Encode(), &resp); err != nil {
		return nil, errors.Wrap(err, "reverse geocode failed")
	}
	if resp.Error != "" {
		return nil, errors.Newf("reverse geocode failed: %s", resp.Error)
	}

	city := resp.Address.City
	if city == "" {
		city = resp.Address.Town
	}
	return &Address{
		DisplayName: resp.DisplayName,
		Postcode:    resp.Address.Postcode,
		City:        city,
		Suburb:      resp.Address.Suburb,
		Country:     resp.Address.Country,
	}, nil
}

// Postcode returns the three-digit Taiwanese postal zone for p.
func Postcode(ctx context.Context, g Geocoder, p geo.GeoPoint) (string, error) {
	addr, err := g.ReverseGeocode(ctx, p)
	if err != nil {
		return "", err
	}

	// full-width digits are folded to ASCII; any other script's digits are dropped
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, width.Narrow.String(addr.Postcode))

	if len(digits) < 3 {
		return "", errors.Mark(errors.Newf("postcode %q too short", addr.Postcode), ErrNoPostcode)
	}
	return digits[:3], nil
}
