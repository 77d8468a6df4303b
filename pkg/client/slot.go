package client

import (
	"context"
	"fmt"
	"net/url"
	"reservo/pkg/model"
)

type SlotClient struct {
	httpClient *HttpClient
}

func NewSlotClient(baseUrl string) *SlotClient {
	return &SlotClient{
		httpClient: NewHttpClient(baseUrl),
	}
}

func (c *SlotClient) Create(ctx context.Context, req *model.SlotRequest) (*Response, error) {
	return c.httpClient.POST(ctx, "/api/v1/slots", req)
}

func (c *SlotClient) GetAll(ctx context.Context, availableOnly bool, limit int, offset int64) (*Response, error) {
	path := fmt.Sprintf("/api/v1/slots?limit=%d&offset=%d", limit, offset)
	if availableOnly {
		path += "&available=true"
	}
	return c.httpClient.GET(ctx, path)
}

func (c *SlotClient) GetByID(ctx context.Context, id string) (*Response, error) {
	return c.httpClient.GET(ctx, "/api/v1/slots/id/"+url.PathEscape(id))
}

func (c *SlotClient) Update(ctx context.Context, id string, req *model.SlotRequest) (*Response, error) {
	return c.httpClient.PUT(ctx, "/api/v1/slots/id/"+url.PathEscape(id), req)
}

func (c *SlotClient) Delete(ctx context.Context, id string) (*Response, error) {
	return c.httpClient.DELETE(ctx, "/api/v1/slots/id/"+url.PathEscape(id))
}

func (c *SlotClient) Reopen(ctx context.Context, id string) (*Response, error) {
	return c.httpClient.POST(ctx, "/api/v1/slots/id/"+url.PathEscape(id)+"/reopen", nil)
}

func (c *SlotClient) DecodeSlot(resp *Response) (*model.Slot, error) {
	return decodeData[model.Slot](resp, "slot")
}

func (c *SlotClient) DecodeSlots(resp *Response) ([]*model.Slot, *Metadata, error) {
	return decodePage[model.Slot](resp, "slots")
}
