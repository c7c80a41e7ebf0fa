package igdb

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"GameSync/internal/cache"
	"GameSync/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type igdbServer struct {
	*httptest.Server
	authCalls  atomic.Int32
	gameCalls  atomic.Int32
	lastQuery  atomic.Value
	games      string
	rejectOnce atomic.Bool
}

func newIGDBServer(t *testing.T, games string) *igdbServer {
	s := &igdbServer{games: games}
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		n := s.authCalls.Add(1)
		assert.Equal(t, "client_credentials", r.FormValue("grant_type"))
		time.Sleep(20 * time.Millisecond)
		_, _ = w.Write([]byte(`{"access_token":"tok-` + string(rune('0'+n)) + `","expires_in":3600,"token_type":"bearer"}`))
	})
	mux.HandleFunc("/games", func(w http.ResponseWriter, r *http.Request) {
		s.gameCalls.Add(1)
		assert.Equal(t, "client-id", r.Header.Get("Client-ID"))
		body, _ := io.ReadAll(r.Body)
		s.lastQuery.Store(string(body))
		if s.rejectOnce.CompareAndSwap(true, false) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(s.games))
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func newTestAdapter(srv *igdbServer) *Adapter {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := &config.ProviderConfig{
		BaseURL:      srv.URL,
		AuthURL:      srv.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Timeout:      5,
	}
	return NewIGDBAdapter(cfg, 1000, cache.NewMemoryCache(), logger)
}

func TestAccessToken_ConcurrentCallersShareOneRefresh(t *testing.T) {
	srv := newIGDBServer(t, `[]`)
	a := newTestAdapter(srv)

	var wg sync.WaitGroup
	tokens := make([]string, 10)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := a.AccessToken(context.Background())
			assert.NoError(t, err)
			tokens[i] = tok
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), srv.authCalls.Load())
	for _, tok := range tokens {
		assert.Equal(t, "tok-1", tok)
	}
}

func TestFetchByIDAfter_BuildsQueryAndDecodes(t *testing.T) {
	srv := newIGDBServer(t, `[{"id":11,"name":"Half-Life","updated_at":1700000000,
		"external_games":[{"id":1,"external_game_source":1,"uid":"70"}]}]`)
	a := newTestAdapter(srv)

	got, err := a.FetchByIDAfter(context.Background(), 10, 2000)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(11), got[0].ID)
	assert.Equal(t, "70", got[0].ExternalGames[0].UID)
	q := srv.lastQuery.Load().(string)
	assert.Contains(t, q, "where id > 10 & external_games.external_game_source = 1;")
	assert.Contains(t, q, "sort id asc;")
	assert.Contains(t, q, "limit 500;")
}

func TestFetchDetails_RejectsOversizedBatch(t *testing.T) {
	srv := newIGDBServer(t, `[]`)
	a := newTestAdapter(srv)

	_, err := a.FetchDetails(context.Background(), make([]int64, MaxBatch+1))

	require.Error(t, err)
	assert.Zero(t, srv.gameCalls.Load())
}

func TestUnauthorizedInvalidatesToken(t *testing.T) {
	srv := newIGDBServer(t, `[]`)
	a := newTestAdapter(srv)
	srv.rejectOnce.Store(true)

	_, err := a.FetchDetails(context.Background(), []int64{1, 2})
	require.Error(t, err)

	_, err = a.FetchDetails(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, int32(2), srv.authCalls.Load())
	assert.Equal(t, "fields id,genres.name,themes.name,keywords.name,involved_companies.developer,involved_companies.publisher,involved_companies.company.name,involved_companies.company.logo.image_id,involved_companies.company.websites.url,involved_companies.company.websites.type,screenshots.image_id,screenshots.width,screenshots.height,language_supports.language.name,language_supports.language_support_type.name; where id = (1,2); limit 2;", srv.lastQuery.Load())
}
