package api

// GenerateGameRequest is the body of POST /generate-game.
type GenerateGameRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

// GenerateGameResponse is returned with 202 Accepted after a submission.
type GenerateGameResponse struct {
	TaskID string `json:"task_id"`
}

// ResultResponse is the body of GET /get-result/{task_id}.
type ResultResponse struct {
	Status   string  `json:"status"`
	GameCode *string `json:"game_code,omitempty"`
	Error    string  `json:"error,omitempty"`
}
