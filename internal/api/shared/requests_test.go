package shared

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ratingBody struct {
	Rating int `json:"rating" validate:"required,min=1,max=4"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int
		wantErr bool
	}{
		{name: "valid", body: `{"rating": 3}`, want: 3},
		{name: "malformed", body: `{"rating": 3,}`, wantErr: true},
		{name: "empty", body: ``, wantErr: true},
		{name: "trailing value", body: `{"rating": 3}{"rating": 4}`, wantErr: true},
		{name: "wrong type", body: `{"rating": "good"}`, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var got ratingBody
			err := DecodeJSON(req, &got)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Rating)
		})
	}
}

func TestDecodeJSONTrailingData(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{} {}`))
	var v struct{}
	assert.ErrorIs(t, DecodeJSON(req, &v), ErrTrailingData)
}

type selfValidating struct{ ok bool }

func (s selfValidating) Validate() error {
	if !s.ok {
		return errors.New("not ok")
	}
	return nil
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(&ratingBody{Rating: 4}))
	assert.Error(t, ValidateRequest(&ratingBody{Rating: 5}))
	assert.Error(t, ValidateRequest(&ratingBody{}))

	assert.NoError(t, ValidateRequest(selfValidating{ok: true}))
	assert.Error(t, ValidateRequest(selfValidating{}))
}
