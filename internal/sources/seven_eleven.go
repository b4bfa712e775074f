package sources

import (
	"context"
	"fmt"
	neturl "net/url"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rm-hull/near-expiry-food/internal"
	"github.com/rm-hull/near-expiry-food/internal/brands"
	"github.com/rm-hull/near-expiry-food/internal/geo"
	"github.com/rm-hull/near-expiry-food/internal/metrics"
	"github.com/rm-hull/near-expiry-food/internal/models"
	"github.com/rm-hull/near-expiry-food/internal/textutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	SevenElevenBaseURL = "https://lovefood.openpoint.com.tw/LoveFood/api/"

	sevenElevenUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	sevenElevenReferer   = "https://lovefood.openpoint.com.tw/"
)

type SevenElevenConfig struct {
	BaseURL string
	MidV    string
	Timeout time.Duration
	// RateLimit paces the per-store enrichment calls (requests per second).
	RateLimit    float64
	DirectoryTTL time.Duration
}

// SevenEleven queries the 7-ELEVEN "i珍食" LoveFood API. The access token is
// acquired on first use and kept for the lifetime of the instance.
type SevenEleven struct {
	cfg     SevenElevenConfig
	client  *internal.VendorClient
	limiter *rate.Limiter
	opts    options

	mu    sync.Mutex
	token string
}

func NewSevenEleven(cfg SevenElevenConfig, opts ...Option) *SevenEleven {
	if cfg.BaseURL == "" {
		cfg.BaseURL = SevenElevenBaseURL
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 5
	}
	if cfg.DirectoryTTL <= 0 {
		cfg.DirectoryTTL = 7 * 24 * time.Hour
	}

	o := buildOptions(opts)
	return &SevenEleven{
		cfg: cfg,
		client: internal.NewVendorClient(cfg.Timeout, map[string]string{
			"User-Agent": sevenElevenUserAgent,
			"Referer":    sevenElevenReferer,
		}, o.logger),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		opts:    o,
	}
}

func (s *SevenEleven) ID() models.SourceID { return models.SevenEleven }

func (s *SevenEleven) Brand() string { return brands.Label(models.SevenEleven) }

func (s *SevenEleven) FetchNearby(ctx context.Context, query geo.GeoPoint, radiusMeters float64, limit int) ([]models.Store, error) {
	token, err := s.accessToken(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "7-11 authentication failed")
	}

	listing, err := s.nearbyStores(ctx, token, query)
	if err != nil {
		return nil, errors.Wrap(err, "7-11 nearby store list failed")
	}

	locate := func(r models.SevenElevenStoreStock) (float64, bool) {
		if d, ok := distanceTo(query, r.Latitude, r.Longitude); ok {
			return d, true
		}
		// no coordinates: fall back to the vendor's own figure
		if r.Distance != nil {
			return *r.Distance, true
		}
		return 0, false
	}
	quantity := func(r models.SevenElevenStoreStock) int {
		return deref(r.RemainingQty)
	}

	nearby := rankNearby(listing, locate, quantity, radiusMeters, limit)
	results := make([]models.Store, 0, len(nearby))
	for _, n := range nearby {
		store := s.normalize(n.raw, n.distance)
		store.Items = s.storeItems(ctx, token, n.raw.StoreNo, query)
		if info, ok := s.storeInfo(ctx, token, n.raw.StoreName); ok {
			store.Address = info.Address
			store.Phone = info.Phone
		}
		results = append(results, store)
	}

	s.opts.logger.Debug("7-11 search complete",
		zap.Int("listed", len(listing)),
		zap.Int("returned", len(results)))
	return results, nil
}

func (s *SevenEleven) normalize(r models.SevenElevenStoreStock, distance float64) models.Store {
	store := models.Store{
		Source:         models.SevenEleven,
		Brand:          s.Brand(),
		StoreID:        r.StoreNo,
		StoreName:      fmt.Sprintf("7-11 %s門市", textutil.CleanText(r.StoreName)),
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
		DistanceMeters: distance,
		TotalQuantity:  nonNegative(deref(r.RemainingQty)),
		Categories:     make([]models.Category, 0, len(r.CategoryStockItems)),
		Items:          []models.Item{},
	}
	for _, cat := range r.CategoryStockItems {
		store.Categories = append(store.Categories, models.Category{
			Name:     textutil.CleanText(cat.Name),
			Quantity: nonNegative(deref(cat.RemainingQty)),
		})
	}
	return store
}

func (s *SevenEleven) accessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" {
		return s.token, nil
	}

	url := s.cfg.BaseURL + "Auth/FrontendAuth/AccessToken?mid_v=" + neturl.QueryEscape(s.cfg.MidV)
	var resp models.SevenElevenEnvelope[string]
	if err := s.client.PostJSON(ctx, url, nil, &resp); err != nil {
		return "", err
	}
	if !resp.IsSuccess || resp.Element == "" {
		return "", errors.Mark(errors.Newf("access token rejected: %s", resp.Message), ErrVendor)
	}

	s.token = resp.Element
	s.opts.logger.Info("7-11 access token acquired")
	return s.token, nil
}

func (s *SevenEleven) nearbyStores(ctx context.Context, token string, query geo.GeoPoint) ([]models.SevenElevenStoreStock, error) {
	coords := models.SevenElevenCoordinates{Latitude: query.Latitude, Longitude: query.Longitude}
	body := models.SevenElevenNearbyRequest{
		CurrentLocation: coords,
		SearchLocation:  coords,
	}

	var resp models.SevenElevenEnvelope[models.SevenElevenNearbyElement]
	if err := s.client.PostJSON(ctx, s.endpoint("Search/FrontendStoreItemStock/GetNearbyStoreList", token), body, &resp); err != nil {
		return nil, err
	}
	if !resp.IsSuccess {
		return nil, errors.Mark(errors.Newf("query rejected: %s", resp.Message), ErrVendor)
	}
	return resp.Element.StoreStockItemList, nil
}

// storeItems is best-effort: on failure the store is kept with no items.
func (s *SevenEleven) storeItems(ctx context.Context, token, storeNo string, query geo.GeoPoint) []models.Item {
	items := []models.Item{}
	detail, err := s.storeDetail(ctx, token, storeNo, query)
	if err != nil {
		s.opts.logger.Warn("7-11 store detail unavailable", zap.String("store_no", storeNo), zap.Error(err))
		s.opts.metrics.EnrichmentFailed(models.SevenEleven, metrics.EnrichmentDetail)
		return items
	}

	for _, cat := range detail.StoreStockItem.CategoryStockItems {
		catName := textutil.CleanText(cat.Name)
		for _, item := range cat.ItemList {
			items = append(items, models.Item{
				Name:     textutil.CleanText(item.ItemName),
				Quantity: nonNegative(item.RemainingQty),
				Category: catName,
			})
		}
	}
	return items
}

func (s *SevenEleven) storeDetail(ctx context.Context, token, storeNo string, query geo.GeoPoint) (*models.SevenElevenDetailElement, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body := models.SevenElevenDetailRequest{
		StoreNo:         storeNo,
		CurrentLocation: models.SevenElevenCoordinates{Latitude: query.Latitude, Longitude: query.Longitude},
	}
	var resp models.SevenElevenEnvelope[models.SevenElevenDetailElement]
	if err := s.client.PostJSON(ctx, s.endpoint("Search/FrontendStoreItemStock/GetStoreDetail", token), body, &resp); err != nil {
		return nil, err
	}
	if !resp.IsSuccess {
		return nil, errors.Mark(errors.Newf("detail rejected: %s", resp.Message), ErrVendor)
	}
	return &resp.Element, nil
}

type storeInfo struct {
	Address string
	Phone   string
}

// storeInfo is best-effort: the directory cache is consulted first, then the
// vendor's store search. ok is false when neither produced an entry.
func (s *SevenEleven) storeInfo(ctx context.Context, token, storeName string) (storeInfo, bool) {
	logger := s.opts.logger.With(zap.String("store_name", storeName))

	if dir := s.opts.directory; dir != nil {
		entry, fresh, err := dir.Lookup(ctx, models.SevenEleven, storeName, s.cfg.DirectoryTTL)
		if err != nil {
			logger.Warn("store directory lookup failed", zap.Error(err))
		} else if fresh {
			return storeInfo{Address: entry.Address, Phone: entry.Phone}, true
		}
	}

	found, err := s.storeByName(ctx, token, storeName)
	if err != nil {
		logger.Warn("7-11 store address unavailable", zap.Error(err))
		s.opts.metrics.EnrichmentFailed(models.SevenEleven, metrics.EnrichmentAddress)
		return storeInfo{}, false
	}
	if found == nil {
		logger.Debug("7-11 store address not found")
		return storeInfo{}, false
	}

	info := storeInfo{
		Address: textutil.CleanText(found.Address),
		Phone:   strings.TrimSpace(found.Telno),
	}
	if dir := s.opts.directory; dir != nil {
		err := dir.Save(ctx, models.DirectoryEntry{
			Source:    models.SevenEleven,
			StoreName: storeName,
			StoreNo:   found.StoreNo,
			Address:   info.Address,
			Phone:     info.Phone,
		})
		if err != nil {
			logger.Warn("failed to cache store directory entry", zap.Error(err))
		}
	}
	return info, true
}

// storeByName prefers an exact name match and otherwise takes the first hit.
func (s *SevenEleven) storeByName(ctx context.Context, token, storeName string) (*models.SevenElevenStoreInfo, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := s.endpoint("Master/FrontendStore/GetStoreByAddress", token) + "&keyword=" + neturl.QueryEscape(storeName)
	var resp models.SevenElevenEnvelope[[]models.SevenElevenStoreInfo]
	if err := s.client.PostJSON(ctx, url, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.IsSuccess {
		return nil, errors.Mark(errors.Newf("store search rejected: %s", resp.Message), ErrVendor)
	}

	for i := range resp.Element {
		if resp.Element[i].StoreName == storeName {
			return &resp.Element[i], nil
		}
	}
	if len(resp.Element) > 0 {
		return &resp.Element[0], nil
	}
	return nil, nil
}

func (s *SevenEleven) endpoint(path, token string) string {
	return s.cfg.BaseURL + path + "?token=" + neturl.QueryEscape(token)
}
