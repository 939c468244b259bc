package api

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/felixgeelhaar/studyplan/internal/stream"
)

// StartInterview opens an interview and returns the first round.
func (c *Client) StartInterview(ctx context.Context, req InterviewStartRequest) (*InterviewSession, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/interviews", "/interviews", req)
	if err != nil {
		return nil, err
	}

	var session InterviewSession
	if err := parseResponse(resp, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// SubmitAnswers submits one round of answers.
func (c *Client) SubmitAnswers(ctx context.Context, sessionID string, answers []InterviewAnswer) (*InterviewSubmitResponse, error) {
	path := "/interviews/" + url.PathEscape(sessionID) + "/answers"
	resp, err := c.doRequest(ctx, http.MethodPost, "/interviews/{id}/answers", path, AnswerSubmission{Answers: answers})
	if err != nil {
		return nil, err
	}

	var out InterviewSubmitResponse
	if err := parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// InterviewStartStream opens the streaming variant of StartInterview.
func (c *Client) InterviewStartStream(req InterviewStartRequest) stream.OpenFunc {
	return c.openStream("/stream/interviews/start", "/stream/interviews/start", req)
}

// InterviewSubmitStream opens the streaming variant of SubmitAnswers.
func (c *Client) InterviewSubmitStream(sessionID string, answers []InterviewAnswer) stream.OpenFunc {
	path := "/stream/interviews/" + url.PathEscape(sessionID) + "/submit"
	return c.openStream("/stream/interviews/{id}/submit", path, AnswerSubmission{Answers: answers})
}

// GenerateStream opens a roadmap generation stream.
func (c *Client) GenerateStream(req GenerateRequest) stream.OpenFunc {
	return c.openStream("/stream/roadmaps/generate", "/stream/roadmaps/generate", req)
}

// GenerateStreamLegacy opens the older generation endpoint, which names
// events on separate "event:" lines.
func (c *Client) GenerateStreamLegacy(req GenerateRequest) stream.OpenFunc {
	return c.openStream("/roadmaps/generate-stream", "/roadmaps/generate-stream", req)
}

// openStream returns an opener that POSTs body and hands back the raw
// event-stream body.
func (c *Client) openStream(route, path string, body any) stream.OpenFunc {
	return func(ctx context.Context) (io.ReadCloser, error) {
		resp, err := c.send(ctx, c.streamHTTP, http.MethodPost, route, path, body, "text/event-stream")
		if err != nil {
			return nil, err
		}
		if err := checkStatus(resp); err != nil {
			_ = resp.Body.Close()
			return nil, err
		}
		return resp.Body, nil
	}
}
