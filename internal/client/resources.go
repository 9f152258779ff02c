package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/iso27001/tracker/internal/models"
)

// Resource is the CRUD surface shared by every collection endpoint.
type Resource[T any] struct {
	client *Client
	path   string
}

func newResource[T any](c *Client, path string) *Resource[T] {
	return &Resource[T]{client: c, path: path}
}

func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	req, err := r.client.newRequest(ctx, http.MethodGet, r.path, nil)
	if err != nil {
		return nil, err
	}
	_, data, err := r.client.send(req)
	if err != nil {
		return nil, err
	}
	return decodeList[T](data)
}

func (r *Resource[T]) Get(ctx context.Context, id int64) (*T, error) {
	var out T
	if err := r.client.do(ctx, http.MethodGet, r.itemPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Resource[T]) Create(ctx context.Context, item *T) (*T, error) {
	var out T
	if err := r.client.do(ctx, http.MethodPost, r.path, item, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Resource[T]) Update(ctx context.Context, id int64, item *T) (*T, error) {
	var out T
	if err := r.client.do(ctx, http.MethodPut, r.itemPath(id), item, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Resource[T]) Delete(ctx context.Context, id int64) error {
	return r.client.do(ctx, http.MethodDelete, r.itemPath(id), nil, nil)
}

func (r *Resource[T]) itemPath(id int64) string {
	return fmt.Sprintf("%s/%d", r.path, id)
}

func (c *Client) GapAssessments() *Resource[models.GapAssessment] {
	return newResource[models.GapAssessment](c, "/gap-assessments")
}

func (c *Client) MaturityAssessments() *Resource[models.MaturityAssessment] {
	return newResource[models.MaturityAssessment](c, "/maturity-assessments")
}

func (c *Client) ActionItems() *Resource[models.ActionItem] {
	return newResource[models.ActionItem](c, "/action-items")
}

func (c *Client) Evidence() *Resource[models.Evidence] {
	return newResource[models.Evidence](c, "/evidence")
}

func (c *Client) Risks() *Resource[models.RiskRegister] {
	return newResource[models.RiskRegister](c, "/risks")
}
