package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/iso27001/tracker/internal/scheduler"
)

func (c *Client) Jobs(ctx context.Context) ([]scheduler.Job, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/jobs", nil)
	if err != nil {
		return nil, err
	}
	_, data, err := c.send(req)
	if err != nil {
		return nil, err
	}
	return decodeList[scheduler.Job](data)
}

// RunJob runs a scheduled job on the server and waits for it to finish.
func (c *Client) RunJob(ctx context.Context, name string) (*scheduler.JobExecution, error) {
	var exec scheduler.JobExecution
	if err := c.do(ctx, http.MethodPost, "/jobs/"+url.PathEscape(name)+"/run", nil, &exec); err != nil {
		return nil, err
	}
	return &exec, nil
}

func (c *Client) JobExecutions(ctx context.Context, name string, limit int) ([]scheduler.JobExecution, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/jobs/%s/executions?limit=%d", url.PathEscape(name), limit), nil)
	if err != nil {
		return nil, err
	}
	_, data, err := c.send(req)
	if err != nil {
		return nil, err
	}
	return decodeList[scheduler.JobExecution](data)
}
