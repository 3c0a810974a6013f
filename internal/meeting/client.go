package meeting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/timebank-backend/internal/pkg/apperror"
)

// Client ходит во внешний сервис, выдающий ссылки на видеовстречи.
// Вызов строго best-effort: подтверждение бронирования не зависит от его
// успеха, при отказе ссылка остаётся пустой и видна пользователю как
// «ещё не доступна».
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиента. При пустом baseURL ссылки не запрашиваются.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type createLinkRequest struct {
	BookingID string `json:"booking_id"`
}

type createLinkResponse struct {
	Link string `json:"link"`
}

// CreateLink запрашивает ссылку на встречу для бронирования.
func (c *Client) CreateLink(ctx context.Context, bookingID uuid.UUID) (string, error) {
	if c.baseURL == "" {
		return "", apperror.ErrExternalServiceUnavailable
	}

	body, err := json.Marshal(createLinkRequest{BookingID: bookingID.String()})
	if err != nil {
		return "", fmt.Errorf("meeting client: marshal request %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/links", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("meeting client: build request %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperror.Wrap(err, apperror.ErrCodeUnavailable, "сервис встреч недоступен")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", apperror.New(apperror.ErrCodeUnavailable, fmt.Sprintf("сервис встреч вернул статус %d", resp.StatusCode))
	}

	var out createLinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("meeting client: decode response %w", err)
	}
	if out.Link == "" {
		return "", apperror.New(apperror.ErrCodeUnavailable, "сервис встреч вернул пустую ссылку")
	}

	return out.Link, nil
}
