package floatplane

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/unkn0wn-root/opcache/transport"
)

// Endpoint names identify operations in the registry, logs, metrics and
// config policies.
const (
	EndpointCreator       = "creator"
	EndpointCreatorList   = "creator_list"
	EndpointSubscriptions = "subscriptions"
	EndpointContentVideo  = "content_video"
	EndpointContentFeed   = "content_feed"
	EndpointSearch        = "search"
	EndpointDeliveryKey   = "delivery_key"
	EndpointLogout        = "logout"
)

const (
	pathCreator       = "/api/v2/creator/named"
	pathCreatorList   = "/api/v3/user/notification/list"
	pathSubscriptions = "/api/v3/user/subscriptions"
	pathContentVideo  = "/api/v3/content/video"
	pathCreatorPosts  = "/api/v3/content/creator"
	pathDelivery      = "/api/v2/cdn/delivery"
	pathLogout        = "/api/v2/auth/logout"

	DefaultFeedLimit = 20
)

var ErrInvalidRequest = errors.New("floatplane: invalid request")

// CreatorRequest looks a creator up by the name used in its URL.
type CreatorRequest struct {
	URLName string
}

func (r CreatorRequest) Descriptor() transport.Descriptor {
	return transport.Descriptor{
		Endpoint: EndpointCreator,
		Path:     pathCreator,
		Query:    url.Values{"creatorURL": {r.URLName}},
	}
}

// CreatorListRequest lists the creators the signed-in user follows.
// It has no parameters: one entry per session.
type CreatorListRequest struct{}

func (CreatorListRequest) Descriptor() transport.Descriptor {
	return transport.Descriptor{Endpoint: EndpointCreatorList, Path: pathCreatorList}
}

type SubscriptionsRequest struct{}

func (SubscriptionsRequest) Descriptor() transport.Descriptor {
	return transport.Descriptor{Endpoint: EndpointSubscriptions, Path: pathSubscriptions}
}

type ContentVideoRequest struct {
	ID string
}

func (r ContentVideoRequest) Descriptor() transport.Descriptor {
	return transport.Descriptor{
		Endpoint: EndpointContentVideo,
		Path:     pathContentVideo,
		Query:    url.Values{"id": {r.ID}},
	}
}

// ContentFeedRequest pages through a creator's posts.
type ContentFeedRequest struct {
	CreatorID  string
	Limit      int // 0 => DefaultFeedLimit
	FetchAfter int // number of posts already shown
}

func (r ContentFeedRequest) Descriptor() transport.Descriptor {
	q := url.Values{
		"id":    {r.CreatorID},
		"limit": {strconv.Itoa(limitOrDefault(r.Limit))},
	}
	if r.FetchAfter > 0 {
		q.Set("fetchAfter", strconv.Itoa(r.FetchAfter))
	}
	return transport.Descriptor{Endpoint: EndpointContentFeed, Path: pathCreatorPosts, Query: q}
}

// SearchRequest searches one creator's posts.
type SearchRequest struct {
	CreatorID string
	Query     string
	Limit     int // 0 => DefaultFeedLimit
}

func (r SearchRequest) Descriptor() transport.Descriptor {
	return transport.Descriptor{
		Endpoint: EndpointSearch,
		Path:     pathCreatorPosts,
		Query: url.Values{
			"id":     {r.CreatorID},
			"search": {r.Query},
			"limit":  {strconv.Itoa(limitOrDefault(r.Limit))},
		},
	}
}

type DeliveryType string

const (
	DeliveryVOD  DeliveryType = "vod"
	DeliveryLive DeliveryType = "live"
)

// DeliveryKeyRequest asks for a stream key. GUID is the video guid for VOD
// and the creator id for live.
type DeliveryKeyRequest struct {
	Type DeliveryType // "" => DeliveryVOD
	GUID string
}

func (r DeliveryKeyRequest) Descriptor() transport.Descriptor {
	typ := r.Type
	if typ == "" {
		typ = DeliveryVOD
	}
	q := url.Values{"type": {string(typ)}}
	if typ == DeliveryLive {
		q.Set("creator", r.GUID)
	} else {
		q.Set("guid", r.GUID)
	}
	return transport.Descriptor{Endpoint: EndpointDeliveryKey, Path: pathDelivery, Query: q}
}

func logoutDescriptor() transport.Descriptor {
	return transport.Descriptor{Endpoint: EndpointLogout, Method: http.MethodPost, Path: pathLogout}
}

func limitOrDefault(n int) int {
	if n <= 0 {
		return DefaultFeedLimit
	}
	return n
}
