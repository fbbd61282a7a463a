// Package floatplane wires the subscription video API into cached operations.
//
// One Client holds one session's operations. Logout (or an account switch)
// clears every one of them through the shared registry.
package floatplane

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unkn0wn-root/opcache"
	"github.com/unkn0wn-root/opcache/codec"
	"github.com/unkn0wn-root/opcache/genstore"
	pr "github.com/unkn0wn-root/opcache/provider"
	"github.com/unkn0wn-root/opcache/store"
	"github.com/unkn0wn-root/opcache/transport"
)

// Policy bounds one endpoint's cache.
type Policy struct {
	TTL      time.Duration
	Capacity int // live entries per endpoint
}

// DefaultPolicies size each cache by how many distinct results it sees in a
// session: per-user lists hold one entry.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		EndpointCreatorList:   {TTL: opcache.DefaultTTL, Capacity: 1},
		EndpointSubscriptions: {TTL: opcache.DefaultTTL, Capacity: 1},
		EndpointCreator:       {TTL: opcache.DefaultTTL, Capacity: 20},
		EndpointContentVideo:  {TTL: opcache.DefaultTTL, Capacity: opcache.DefaultCapacity},
		EndpointContentFeed:   {TTL: opcache.DefaultTTL, Capacity: 20},
		EndpointSearch:        {TTL: opcache.DefaultTTL, Capacity: 20},
	}
}

type Options struct {
	// Required
	Transport transport.Transport

	// Policies override DefaultPolicies per endpoint; zero fields keep the default.
	Policies map[string]Policy

	// Provider, when set, backs every cache with a shared byte store
	// (ristretto, bigcache, redis) instead of per-endpoint memory LRUs.
	// The caller owns and closes it.
	Provider pr.Provider
	// GenStore scopes clears for provider-backed caches. nil => in-process.
	GenStore genstore.GenStore
	// Scope partitions a shared Provider, typically per deployment and
	// session, so clients signed in as different users never read each
	// other's entries.
	Scope string

	Logger opcache.Logger // if nil, opcache.NopLogger is used
	Hooks  opcache.Hooks  // if nil, opcache.NopHooks is used
}

type Client struct {
	tr       transport.Transport
	log      opcache.Logger
	registry *opcache.Registry
	stores   []interface{ Close(context.Context) error }

	creator       opcache.Operation[CreatorRequest, Creator]
	creatorList   opcache.Operation[CreatorListRequest, []BaseCreator]
	subscriptions opcache.Operation[SubscriptionsRequest, []Subscription]
	contentVideo  opcache.Operation[ContentVideoRequest, ContentVideo]
	contentFeed   opcache.Operation[ContentFeedRequest, []FeedItem]
	search        opcache.Operation[SearchRequest, []FeedItem]
}

func New(opts Options) (*Client, error) {
	if opts.Transport == nil {
		return nil, errors.New("floatplane: transport is required")
	}
	c := &Client{
		tr:  opts.Transport,
		log: opts.Logger,
	}
	if c.log == nil {
		c.log = opcache.NopLogger{}
	}
	c.registry = opcache.NewRegistry(opcache.RegistryOptions{Logger: c.log})

	var err error
	if c.creator, err = build[CreatorRequest, Creator](c, opts, EndpointCreator, creatorDecoder); err != nil {
		return nil, err
	}
	if c.creatorList, err = build[CreatorListRequest, []BaseCreator](c, opts, EndpointCreatorList, creatorListDecoder); err != nil {
		return nil, err
	}
	if c.subscriptions, err = build[SubscriptionsRequest, []Subscription](c, opts, EndpointSubscriptions, codec.JSON[[]Subscription]{}); err != nil {
		return nil, err
	}
	if c.contentVideo, err = build[ContentVideoRequest, ContentVideo](c, opts, EndpointContentVideo, codec.JSON[ContentVideo]{}); err != nil {
		return nil, err
	}
	if c.contentFeed, err = build[ContentFeedRequest, []FeedItem](c, opts, EndpointContentFeed, codec.JSON[[]FeedItem]{}); err != nil {
		return nil, err
	}
	if c.search, err = build[SearchRequest, []FeedItem](c, opts, EndpointSearch, codec.JSON[[]FeedItem]{}); err != nil {
		return nil, err
	}
	return c, nil
}

// build creates one endpoint's operation and registers it. On error the
// operations built so far are closed.
func build[R opcache.Request, V any](c *Client, opts Options, name string, dec codec.Decoder[V]) (opcache.Operation[R, V], error) {
	pol := policyFor(opts.Policies, name)

	o := opcache.Options[R, V]{
		Name:      name,
		Transport: c.tr,
		Decoder:   dec,
		Capacity:  pol.Capacity,
		TTL:       pol.TTL,
		Logger:    c.log,
		Hooks:     opts.Hooks,
	}
	if opts.Provider != nil {
		s, err := store.NewProvider(store.ProviderConfig[V]{
			Namespace:      name,
			Provider:       opts.Provider,
			Codec:          codec.Msgpack[V]{},
			TTL:            pol.TTL,
			Scope:          opts.Scope,
			Capacity:       pol.Capacity,
			GenStore:       opts.GenStore,
			SharedProvider: true,
			OnSelfHeal: func(key, reason string) {
				c.log.Debug("dropped unusable cache entry", opcache.Fields{"op": name, "key": key, "reason": reason})
			},
		})
		if err != nil {
			_ = c.Close(context.Background())
			return nil, fmt.Errorf("floatplane: %s store: %w", name, err)
		}
		c.stores = append(c.stores, s)
		o.Store = s
	}

	op, err := opcache.New(o)
	if err == nil {
		err = c.registry.Register(op)
	}
	if err != nil {
		_ = c.Close(context.Background())
		return nil, fmt.Errorf("floatplane: %s: %w", name, err)
	}
	return op, nil
}

func policyFor(overrides map[string]Policy, name string) Policy {
	p := DefaultPolicies()[name]
	if o, ok := overrides[name]; ok {
		if o.TTL > 0 {
			p.TTL = o.TTL
		}
		if o.Capacity > 0 {
			p.Capacity = o.Capacity
		}
	}
	return p
}

// Registry exposes the session's operations, e.g. for an account switch.
func (c *Client) Registry() *opcache.Registry { return c.registry }

func (c *Client) Creator(ctx context.Context, urlName string) (Creator, error) {
	if urlName == "" {
		return Creator{}, fmt.Errorf("%w: creator url name is required", ErrInvalidRequest)
	}
	return c.creator.Get(ctx, CreatorRequest{URLName: urlName})
}

// Creators lists the creators the user follows.
func (c *Client) Creators(ctx context.Context) ([]BaseCreator, error) {
	return c.creatorList.Get(ctx, CreatorListRequest{})
}

func (c *Client) Subscriptions(ctx context.Context) ([]Subscription, error) {
	return c.subscriptions.Get(ctx, SubscriptionsRequest{})
}

func (c *Client) Video(ctx context.Context, id string) (ContentVideo, error) {
	if id == "" {
		return ContentVideo{}, fmt.Errorf("%w: video id is required", ErrInvalidRequest)
	}
	return c.contentVideo.Get(ctx, ContentVideoRequest{ID: id})
}

func (c *Client) Feed(ctx context.Context, req ContentFeedRequest) ([]FeedItem, error) {
	if req.CreatorID == "" {
		return nil, fmt.Errorf("%w: creator id is required", ErrInvalidRequest)
	}
	return c.contentFeed.Get(ctx, req)
}

func (c *Client) Search(ctx context.Context, req SearchRequest) ([]FeedItem, error) {
	if req.CreatorID == "" || req.Query == "" {
		return nil, fmt.Errorf("%w: creator id and query are required", ErrInvalidRequest)
	}
	return c.search.Get(ctx, req)
}

// DeliveryKey fetches a fresh stream key. It bypasses every cache.
func (c *Client) DeliveryKey(ctx context.Context, req DeliveryKeyRequest) (DeliveryKey, error) {
	if req.GUID == "" {
		return DeliveryKey{}, fmt.Errorf("%w: guid is required", ErrInvalidRequest)
	}
	b, err := c.tr.Do(ctx, req.Descriptor())
	if err != nil {
		return DeliveryKey{}, err
	}
	dk, err := codec.JSON[DeliveryKey]{}.Decode(b)
	if err != nil {
		return DeliveryKey{}, &opcache.DecodeError{Op: EndpointDeliveryKey, Err: err}
	}
	return dk, nil
}

// Logout ends the session remotely and clears every cache. Caches are
// cleared even when the remote call fails; both errors are returned.
func (c *Client) Logout(ctx context.Context) error {
	_, logoutErr := c.tr.Do(ctx, logoutDescriptor())
	if logoutErr != nil {
		c.log.Warn("logout request failed; clearing caches anyway", opcache.Fields{"err": logoutErr})
	} else {
		c.log.Info("logged out", nil)
	}

	clearErr := c.registry.ClearAll(context.WithoutCancel(ctx))
	return errors.Join(logoutErr, clearErr)
}

// Close releases every operation and provider-backed store.
func (c *Client) Close(ctx context.Context) error {
	errs := []error{c.registry.Close(ctx)}
	for _, s := range c.stores {
		errs = append(errs, s.Close(ctx))
	}
	return errors.Join(errs...)
}
