package risk

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultModelListTTL = 10 * time.Minute

// modelCatalog caches the provider's currently available model list and
// resolves requested names against it.
type modelCatalog struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  zerolog.Logger
	ttl     time.Duration

	mu        sync.Mutex
	available map[string]bool
	fetchedAt time.Time
	now       func() time.Time
}

func newModelCatalog(baseURL, apiKey string, client *http.Client, ttl time.Duration, logger zerolog.Logger) *modelCatalog {
	if ttl <= 0 {
		ttl = defaultModelListTTL
	}
	return &modelCatalog{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  client,
		logger:  logger,
		ttl:     ttl,
		now:     time.Now,
	}
}

// resolve returns the model to use and whether a substitution occurred.
// When the requested model is missing from the provider list, the first
// available entry of the ordered fallback list wins. If the list cannot be
// fetched at all, the requested model is passed through unchanged.
func (m *modelCatalog) resolve(ctx context.Context, requested string, fallbacks []string) (string, bool) {
	available := m.list(ctx)
	if available == nil || available[requested] {
		return requested, false
	}

	for _, candidate := range fallbacks {
		if available[candidate] {
			return candidate, true
		}
	}

	// Nothing from the fallback list is available either; let the endpoint
	// report the unknown model rather than guessing further.
	return requested, false
}

type modelListResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (m *modelCatalog) list(ctx context.Context) map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.available != nil && m.now().Sub(m.fetchedAt) < m.ttl {
		return m.available
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/models", nil)
	if err != nil {
		return m.available
	}
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		m.logger.Debug().Err(err).Msg("model list fetch failed")
		return m.available
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		m.logger.Debug().Int("status", resp.StatusCode).Msg("model list fetch rejected")
		return m.available
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return m.available
	}

	var parsed modelListResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return m.available
	}

	available := make(map[string]bool, len(parsed.Data))
	for _, entry := range parsed.Data {
		available[entry.ID] = true
	}
	m.available = available
	m.fetchedAt = m.now()
	return m.available
}
