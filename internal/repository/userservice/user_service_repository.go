package userservice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"recipingAds/domain"

	"github.com/pobyzaarif/goshortcute"
)

type UserServiceConfig struct {
	BaseURL           string
	BasicAuthUsername string
	BasicAuthPassword string
	Timeout           time.Duration
}

// UserServiceRepository reads requester attributes from the user service.
type UserServiceRepository struct {
	cfg    UserServiceConfig
	client *http.Client
}

func NewUserServiceRepository(cfg UserServiceConfig) *UserServiceRepository {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 300 * time.Millisecond
	}
	return &UserServiceRepository{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type userInfoResponse struct {
	UserID          uint   `json:"userId"`
	Sex             string `json:"sex"`
	Age             string `json:"age"`
	InterestKeyword string `json:"interestKeyword"`
}

var (
	sexes = map[string]domain.Sex{
		"FEMALE": domain.SexFemale,
		"MALE":   domain.SexMale,
	}
	ages = map[string]domain.AgeBracket{
		"TEENS":        domain.Age10s,
		"TWENTIES":     domain.Age20s,
		"THIRTIES":     domain.Age30s,
		"FORTIES":      domain.Age40s,
		"FIFTIES":      domain.Age50s,
		"SIXTIES_PLUS": domain.Age60s,
	}
)

// Lookup returns ok=false when the user service does not know the user.
// Unrecognised attribute values are dropped rather than rejected.
func (r *UserServiceRepository) Lookup(ctx context.Context, userID uint) (domain.UserProfile, bool, error) {
	url := fmt.Sprintf("%s/api/v1/internal/users/%d/info", r.cfg.BaseURL, userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.UserProfile{}, false, err
	}

	req.Header.Add("Accept", "application/json")
	if r.cfg.BasicAuthUsername != "" {
		buildBasicAuth := goshortcute.StringtoBase64Encode(r.cfg.BasicAuthUsername + ":" + r.cfg.BasicAuthPassword)
		req.Header.Add("Authorization", "Basic "+buildBasicAuth)
	}

	res, err := r.client.Do(req)
	if err != nil {
		return domain.UserProfile{}, false, fmt.Errorf("user service request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return domain.UserProfile{}, false, nil
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return domain.UserProfile{}, false, fmt.Errorf("user service returned %d: %s", res.StatusCode, string(bodyBytes))
	}

	var body userInfoResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return domain.UserProfile{}, false, fmt.Errorf("failed to decode user info: %w", err)
	}

	return domain.UserProfile{
		UserID:   userID,
		Sex:      sexes[body.Sex],
		Age:      ages[body.Age],
		Interest: domain.InterestKeyword(body.InterestKeyword),
	}, true, nil
}
