package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
)

// Recognizer devolve as linhas de texto reconhecidas numa imagem, em ordem de leitura
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) ([]string, error)
}

type recognizeResponse struct {
	Lines []string `json:"lines"`
}

// Client fala com o serviço externo de OCR
type Client struct {
	URL  string
	HTTP *http.Client
}

func New(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		URL:  url,
		HTTP: &http.Client{Timeout: timeout},
	}
}

// Recognize envia a imagem como multipart (campo "image"); qualquer falha vira ErrOCRService
func (c *Client) Recognize(ctx context.Context, image []byte) ([]string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "image.png")
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", model.ErrOCRService, err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("%w: build request: %v", model.ErrOCRService, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("%w: build request: %v", model.ErrOCRService, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, &body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", model.ErrOCRService, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrOCRService, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("%w: http %d: %s", model.ErrOCRService, res.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out recognizeResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", model.ErrOCRService, err)
	}
	lines := make([]string, 0, len(out.Lines))
	for _, l := range out.Lines {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines, nil
}
