package api

import (
	"context"
	"net/http"
	"net/url"
)

// ListQuizzes returns the quizzes of a roadmap.
func (c *Client) ListQuizzes(ctx context.Context, roadmapID string) ([]Quiz, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/roadmaps/{id}/quizzes", roadmapPath(roadmapID)+"/quizzes", nil)
	if err != nil {
		return nil, err
	}

	var quizzes []Quiz
	if err := parseResponse(resp, &quizzes); err != nil {
		return nil, err
	}
	return quizzes, nil
}

// SubmitQuiz grades a set of answers.
func (c *Client) SubmitQuiz(ctx context.Context, quizID string, answers []QuizAnswer) (*QuizResult, error) {
	path := "/quizzes/" + url.PathEscape(quizID) + "/submit"
	resp, err := c.doRequest(ctx, http.MethodPost, "/quizzes/{id}/submit", path, QuizSubmission{Answers: answers})
	if err != nil {
		return nil, err
	}

	var result QuizResult
	if err := parseResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
