package siteapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/morf1ng/105site/pkg/projectshape"
)

// ProjectSummary は一覧 API の要素
type ProjectSummary struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	PreviewImg *string `json:"preview_img"`
	Result     struct {
		Description *string `json:"description"`
	} `json:"result"`
}

// ListProjects は GET /projects
func (c *Client) ListProjects(ctx context.Context) ([]ProjectSummary, error) {
	var out []ProjectSummary
	if err := c.getJSON(ctx, "/projects", "list projects", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProject は GET /projects/{id}
func (c *Client) GetProject(ctx context.Context, id int64) (*projectshape.Wire, error) {
	var out projectshape.Wire
	if err := c.getJSON(ctx, "/projects/"+strconv.FormatInt(id, 10), "get project", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateProject は POST /projects (multipart)
func (c *Client) CreateProject(ctx context.Context, p *projectshape.Payload) (*projectshape.Wire, error) {
	return c.sendProject(ctx, http.MethodPost, "/projects", "create project", p)
}

// UpdateProject は PUT /projects/{id} (multipart)
func (c *Client) UpdateProject(ctx context.Context, id int64, p *projectshape.Payload) (*projectshape.Wire, error) {
	return c.sendProject(ctx, http.MethodPut, "/projects/"+strconv.FormatInt(id, 10), "update project", p)
}

// DeleteProject は DELETE /projects/{id}
func (c *Client) DeleteProject(ctx context.Context, id int64) error {
	return c.delete(ctx, "/projects/"+strconv.FormatInt(id, 10), "delete project")
}

func (c *Client) sendProject(ctx context.Context, method, path, op string, p *projectshape.Payload) (*projectshape.Wire, error) {
	body, contentType, err := p.Encode()
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	var out projectshape.Wire
	if _, err := c.do(req, op, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
