package tubearchivist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/amaumene/tubearchive/internal/models"
)

// ErrEmptyToken is returned when the login succeeds without a token
var ErrEmptyToken = errors.New("login response carried no token")

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login exchanges the configured credentials for a token. It is not retried.
func (c *Client) Login(ctx context.Context) (models.Token, error) {
	body, err := c.doRequest(ctx, "POST", c.apiURL+"/login/", "", loginRequest{
		Username: c.username,
		Password: c.password,
	}, loginTimeout)
	if err != nil {
		return "", fmt.Errorf("failed to login: %w", err)
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode login response: %w", err)
	}
	if resp.Token == "" {
		return "", ErrEmptyToken
	}

	c.logger.WithField("username", c.username).Info("Logged in to TubeArchivist")
	return models.Token(resp.Token), nil
}
