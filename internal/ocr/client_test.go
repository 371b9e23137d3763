package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
)

func TestRecognize_SendsMultipartAndTrimsLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		f, _, err := r.FormFile("image")
		if !assert.NoError(t, err) {
			http.Error(w, "no image", http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		assert.Equal(t, []byte("png-bytes"), data)
		_ = json.NewEncoder(w).Encode(map[string]any{"lines": []string{" Jogue ", "", "com responsabilidade"}})
	}))
	defer srv.Close()

	lines, err := New(srv.URL, time.Second).Recognize(context.Background(), []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Jogue", "com responsabilidade"}, lines)
}

func TestRecognize_HTTPErrorIsServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "engine down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Recognize(context.Background(), []byte("x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrOCRService))
	assert.Contains(t, err.Error(), "502")
}

func TestRecognize_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	_, err := New(srv.URL, 50*time.Millisecond).Recognize(context.Background(), []byte("x"))
	assert.True(t, errors.Is(err, model.ErrOCRService))
}
