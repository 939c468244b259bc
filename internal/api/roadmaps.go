package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// ListRoadmaps returns the signed-in user's roadmaps.
func (c *Client) ListRoadmaps(ctx context.Context) ([]RoadmapSummary, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/roadmaps", "/roadmaps", nil)
	if err != nil {
		return nil, err
	}

	var list []RoadmapSummary
	if err := parseResponse(resp, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetRoadmap returns a roadmap with its task tree. Results are cached until
// the roadmap is modified through this client; callers get their own copy.
func (c *Client) GetRoadmap(ctx context.Context, id string) (*Roadmap, error) {
	if r, ok := c.roadmaps.Get(id); ok {
		c.cacheHit(true)
		return r.Clone(), nil
	}
	c.cacheHit(false)

	resp, err := c.doRequest(ctx, http.MethodGet, "/roadmaps/{id}", roadmapPath(id), nil)
	if err != nil {
		return nil, err
	}

	var r Roadmap
	if err := parseResponse(resp, &r); err != nil {
		return nil, err
	}
	c.roadmaps.Add(id, r.Clone())
	return &r, nil
}

// UpdateRoadmap patches title or description.
func (c *Client) UpdateRoadmap(ctx context.Context, id string, req UpdateRoadmapRequest) (*Roadmap, error) {
	c.roadmaps.Remove(id)

	resp, err := c.doRequest(ctx, http.MethodPatch, "/roadmaps/{id}", roadmapPath(id), req)
	if err != nil {
		return nil, err
	}
	// A read racing the request may have cached the old version.
	defer c.roadmaps.Remove(id)

	var r Roadmap
	if err := parseResponse(resp, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteRoadmap removes a roadmap.
func (c *Client) DeleteRoadmap(ctx context.Context, id string) error {
	c.roadmaps.Remove(id)

	resp, err := c.doRequest(ctx, http.MethodDelete, "/roadmaps/{id}", roadmapPath(id), nil)
	if err != nil {
		return err
	}
	defer c.roadmaps.Remove(id)
	return parseResponse(resp, nil)
}

// SetTaskCompleted checks or unchecks a daily task.
func (c *Client) SetTaskCompleted(ctx context.Context, roadmapID, taskID string, completed bool) (*DailyTask, error) {
	c.roadmaps.Remove(roadmapID)

	path := fmt.Sprintf("%s/daily-tasks/%s", roadmapPath(roadmapID), url.PathEscape(taskID))
	resp, err := c.doRequest(ctx, http.MethodPatch, "/roadmaps/{id}/daily-tasks/{task_id}", path,
		UpdateTaskRequest{IsCompleted: completed})
	if err != nil {
		return nil, err
	}
	defer c.roadmaps.Remove(roadmapID)

	var task DailyTask
	if err := parseResponse(resp, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// GetProgress returns checklist completion for a roadmap.
func (c *Client) GetProgress(ctx context.Context, roadmapID string) (*LearningProgress, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/roadmaps/{id}/progress", roadmapPath(roadmapID)+"/progress", nil)
	if err != nil {
		return nil, err
	}

	var p LearningProgress
	if err := parseResponse(resp, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func roadmapPath(id string) string {
	return "/roadmaps/" + url.PathEscape(id)
}

func (c *Client) cacheHit(hit bool) {
	if c.metrics == nil {
		return
	}
	if hit {
		c.metrics.CacheHits.WithLabelValues("roadmap").Inc()
	} else {
		c.metrics.CacheMisses.WithLabelValues("roadmap").Inc()
	}
}
