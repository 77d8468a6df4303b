package client

import (
	"context"
	"fmt"
	"net/url"
	"reservo/pkg/model"
)

type BookingClient struct {
	httpClient *HttpClient
}

func NewBookingClient(baseUrl string) *BookingClient {
	return &BookingClient{
		httpClient: NewHttpClient(baseUrl),
	}
}

// WithBearer sends token as the Authorization header on every request.
func (c *BookingClient) WithBearer(token string) *BookingClient {
	c.httpClient.Headers["Authorization"] = "Bearer " + token
	return c
}

func (c *BookingClient) Book(ctx context.Context, req *model.BookingRequest) (*Response, error) {
	return c.httpClient.POST(ctx, "/api/v1/bookings", req)
}

// BookIdempotent submits req under key so a retried submission replays the
// first response.
func (c *BookingClient) BookIdempotent(ctx context.Context, req *model.BookingRequest, key string) (*Response, error) {
	return c.httpClient.POSTWithHeaders(ctx, "/api/v1/bookings", req, map[string]string{"Idempotency-Key": key})
}

func (c *BookingClient) BookRaw(ctx context.Context, rawBody []byte) (*Response, error) {
	return c.httpClient.POSTRaw(ctx, "/api/v1/bookings", rawBody)
}

func (c *BookingClient) GetAll(ctx context.Context, limit int, offset int64) (*Response, error) {
	path := fmt.Sprintf("/api/v1/bookings?limit=%d&offset=%d", limit, offset)
	return c.httpClient.GET(ctx, path)
}

func (c *BookingClient) Mine(ctx context.Context, period model.Period, limit int, offset int64) (*Response, error) {
	path := fmt.Sprintf("/api/v1/bookings/mine?limit=%d&offset=%d", limit, offset)
	if period != model.PeriodAll {
		path += "&when=" + url.QueryEscape(string(period))
	}
	return c.httpClient.GET(ctx, path)
}

func (c *BookingClient) GetByID(ctx context.Context, id string) (*Response, error) {
	return c.httpClient.GET(ctx, "/api/v1/bookings/id/"+url.PathEscape(id))
}

func (c *BookingClient) Cancel(ctx context.Context, id string) (*Response, error) {
	return c.httpClient.DELETE(ctx, "/api/v1/bookings/id/"+url.PathEscape(id))
}

func (c *BookingClient) GetByToken(ctx context.Context, token string) (*Response, error) {
	return c.httpClient.GET(ctx, "/api/v1/bookings/token/"+url.PathEscape(token))
}

// FollowCancelLink cancels the way the emailed link does, with a GET.
func (c *BookingClient) FollowCancelLink(ctx context.Context, token string) (*Response, error) {
	return c.httpClient.GET(ctx, "/api/v1/bookings/cancel/"+url.PathEscape(token))
}

func (c *BookingClient) CancelByToken(ctx context.Context, token string) (*Response, error) {
	return c.httpClient.DELETE(ctx, "/api/v1/bookings/cancel/"+url.PathEscape(token))
}

func (c *BookingClient) DecodeBooking(resp *Response) (*model.Booking, error) {
	return decodeData[model.Booking](resp, "booking")
}

func (c *BookingClient) DecodeBookings(resp *Response) ([]*model.Booking, *Metadata, error) {
	return decodePage[model.Booking](resp, "bookings")
}
