package shared

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type promptRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
		want    string
	}{
		{name: "valid", body: `{"prompt":"make a game"}`, want: "make a game"},
		{name: "unknown_fields_ignored", body: `{"prompt":"p","extra":1}`, want: "p"},
		{name: "empty_body", body: "", wantErr: true},
		{name: "malformed", body: `{"prompt":`, wantErr: true},
		{name: "wrong_type", body: `{"prompt":42}`, wantErr: true},
		{name: "trailing_data", body: `{"prompt":"a"}{"prompt":"b"}`, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var got promptRequest
			err := DecodeJSON(httptest.NewRecorder(), req, &got)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Prompt)
		})
	}
}

func TestDecodeJSON_NoBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	var got promptRequest
	assert.ErrorIs(t, DecodeJSON(httptest.NewRecorder(), req, &got), ErrEmptyBody)
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	body := `{"prompt":"` + strings.Repeat("a", MaxRequestBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var got promptRequest
	assert.Error(t, DecodeJSON(httptest.NewRecorder(), req, &got))
}

type selfValidating struct{ ok bool }

func (s selfValidating) Validate() error {
	if !s.ok {
		return assert.AnError
	}
	return nil
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(promptRequest{Prompt: "x"}))
	assert.Error(t, ValidateRequest(promptRequest{}))

	assert.NoError(t, ValidateRequest(selfValidating{ok: true}))
	assert.ErrorIs(t, ValidateRequest(selfValidating{}), assert.AnError)
}
